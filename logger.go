package warehouse

import (
	"fmt"
	"log"

	"github.com/TheBitDrifter/bark"
)

// Logger is the injected logging interface SPEC_FULL.md's Ambient Stack
// section calls for ("the core accepts an injected logger interface ... it
// does not assume globals", generalizing §9's note on the source's global
// logger macros). The teacher only ever wraps errors with bark.AddTrace; this
// adds leveled entry points, used by the world, cursors, and command-buffer
// flush, without introducing a second logging dependency.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// barkLogger is the default Logger. bark.AddTrace augments an error with a
// call-stack trace; barkLogger applies that same discipline to log lines
// before handing the traced error to the standard logger, rather than
// printing a bare string the way the teacher's inline fmt.Sprintf calls do.
type barkLogger struct{}

func (barkLogger) Debugf(format string, args ...any) {
	log.Println("DEBUG", bark.AddTrace(fmt.Errorf(format, args...)))
}

func (barkLogger) Warnf(format string, args ...any) {
	log.Println("WARN", bark.AddTrace(fmt.Errorf(format, args...)))
}

func (barkLogger) Errorf(format string, args ...any) {
	log.Println("ERROR", bark.AddTrace(fmt.Errorf(format, args...)))
}

// noopLogger discards everything. Nothing selects it automatically: a World
// whose Config.Logger is nil falls back to barkLogger.
type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}
