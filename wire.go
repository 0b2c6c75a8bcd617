package warehouse

// External interfaces for the editor/debugger integration the core supports
// but does not itself transport (SPEC_FULL.md §6): a reflection wire
// protocol that streams TypeDescriptor records over any bidirectional byte
// channel, and a text-tagged debugger control channel. Framing follows the
// length-prefixed, big-endian style Acksell-bezos's dynamodb/ddbstore/
// encoding.go uses for its own on-wire key encoding (encoding/binary over a
// byte-separated/length-prefixed layout); no example repo in the pack wraps
// a generic RPC framework suited to this one-off protocol, so it is built
// directly on encoding/binary and bufio.

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/TheBitDrifter/bark"
)

// traitTag identifies which TypeDescriptor traits a wire record carries, one
// bit per trait, mirroring the "trait tags" phrase in §6.
type traitTag uint8

const (
	traitConstructible traitTag = 1 << iota
	traitFields
	traitArray
	traitDictionary
	traitStringConversion
	traitNullable
)

// TypeServer streams a TypeDescriptor per registered type to a connected
// TypeClient: the length-prefixed record (name, size, alignment, trait
// tags, per-trait data) named in §6. Per-trait data is limited to the
// FieldsTrait's (name, type name, offset) triples, since that is the only
// trait the distilled spec's field-walking debugger view needs; other
// traits are announced by their tag bit with no payload, and a client
// wanting full remote-forwarding semantics for them is a documented
// Non-goal (§9 scripting/codegen is excluded; remote Array/Dictionary
// forwarding would be exactly that kind of tooling-only addition).
type TypeServer struct {
	w *bufio.Writer
}

// NewTypeServer wraps w for writing length-prefixed TypeDescriptor records.
func NewTypeServer(w io.Writer) *TypeServer {
	return &TypeServer{w: bufio.NewWriter(w)}
}

// Send writes one TypeDescriptor record and flushes the stream.
func (s *TypeServer) Send(desc *TypeDescriptor) error {
	var body bytes.Buffer
	if err := writeString(&body, desc.Name); err != nil {
		return bark.AddTrace(err)
	}
	if err := binary.Write(&body, binary.BigEndian, uint64(desc.Size)); err != nil {
		return bark.AddTrace(err)
	}
	if err := binary.Write(&body, binary.BigEndian, uint64(desc.Align)); err != nil {
		return bark.AddTrace(err)
	}

	var tags traitTag
	if desc.HasConstructible() {
		tags |= traitConstructible
	}
	if desc.HasFields() {
		tags |= traitFields
	}
	if desc.HasArray() {
		tags |= traitArray
	}
	if desc.HasDictionary() {
		tags |= traitDictionary
	}
	if desc.HasStringConversion() {
		tags |= traitStringConversion
	}
	if desc.HasNullable() {
		tags |= traitNullable
	}
	if err := body.WriteByte(byte(tags)); err != nil {
		return bark.AddTrace(err)
	}

	if desc.HasFields() {
		fields := desc.Fields().Fields
		if err := binary.Write(&body, binary.BigEndian, uint32(len(fields))); err != nil {
			return bark.AddTrace(err)
		}
		for _, f := range fields {
			if err := writeString(&body, f.Name); err != nil {
				return bark.AddTrace(err)
			}
			if err := writeString(&body, f.Type.Name); err != nil {
				return bark.AddTrace(err)
			}
			if err := binary.Write(&body, binary.BigEndian, uint64(f.Offset)); err != nil {
				return bark.AddTrace(err)
			}
		}
	}

	if err := binary.Write(s.w, binary.BigEndian, uint32(body.Len())); err != nil {
		return bark.AddTrace(err)
	}
	if _, err := s.w.Write(body.Bytes()); err != nil {
		return bark.AddTrace(err)
	}
	if err := s.w.Flush(); err != nil {
		return bark.AddTrace(err)
	}
	return nil
}

// RemoteField is one field entry of a RemoteTypeDescriptor, as reconstructed
// from the wire rather than from local reflection.
type RemoteField struct {
	Name     string
	TypeName string
	Offset   uint64
}

// RemoteTypeDescriptor is the client-side reconstruction of a TypeDescriptor
// sent by a TypeServer: enough to render a debugger's type/field view
// without either side sharing a process. It carries no function pointers —
// a real "traits forward operations as remote calls" client would pair each
// trait tag with request/response round-trips over the same stream; that
// wiring is left to the embedding debugger, which owns the transport (§6
// "define no transport").
type RemoteTypeDescriptor struct {
	Name   string
	Size   uint64
	Align  uint64
	Tags   traitTag
	Fields []RemoteField
}

// HasTrait reports whether the descriptor announced the given trait tag.
func (d *RemoteTypeDescriptor) HasTrait(t traitTag) bool { return d.Tags&t != 0 }

// TypeClient reads TypeDescriptor records written by a TypeServer.
type TypeClient struct {
	r *bufio.Reader
}

// NewTypeClient wraps r for reading length-prefixed TypeDescriptor records.
func NewTypeClient(r io.Reader) *TypeClient {
	return &TypeClient{r: bufio.NewReader(r)}
}

// Receive reads and reconstructs the next TypeDescriptor record, or returns
// io.EOF when the stream closes cleanly between records.
func (c *TypeClient) Receive() (*RemoteTypeDescriptor, error) {
	var length uint32
	if err := binary.Read(c.r, binary.BigEndian, &length); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, bark.AddTrace(err)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(c.r, body); err != nil {
		return nil, bark.AddTrace(err)
	}
	r := bytes.NewReader(body)

	name, err := readString(r)
	if err != nil {
		return nil, bark.AddTrace(err)
	}
	var size, align uint64
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return nil, bark.AddTrace(err)
	}
	if err := binary.Read(r, binary.BigEndian, &align); err != nil {
		return nil, bark.AddTrace(err)
	}
	tagByte, err := r.ReadByte()
	if err != nil {
		return nil, bark.AddTrace(err)
	}
	desc := &RemoteTypeDescriptor{Name: name, Size: size, Align: align, Tags: traitTag(tagByte)}

	if desc.HasTrait(traitFields) {
		var count uint32
		if err := binary.Read(r, binary.BigEndian, &count); err != nil {
			return nil, bark.AddTrace(err)
		}
		desc.Fields = make([]RemoteField, count)
		for i := range desc.Fields {
			fname, err := readString(r)
			if err != nil {
				return nil, bark.AddTrace(err)
			}
			ftype, err := readString(r)
			if err != nil {
				return nil, bark.AddTrace(err)
			}
			var offset uint64
			if err := binary.Read(r, binary.BigEndian, &offset); err != nil {
				return nil, bark.AddTrace(err)
			}
			desc.Fields[i] = RemoteField{Name: fname, TypeName: ftype, Offset: offset}
		}
	}

	return desc, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// DebugCommand is one request sent over the debugger control channel (§6):
// "a text-tagged request/response protocol ... commands run, pause,
// update <n>, close, disconnect".
type DebugCommand struct {
	Verb  string
	Count int // only meaningful for "update"
}

const (
	DebugRun        = "run"
	DebugPause      = "pause"
	DebugUpdate     = "update"
	DebugClose      = "close"
	DebugDisconnect = "disconnect"
)

// DebugStatus is the status byte a DebugResponse carries.
type DebugStatus byte

const (
	DebugOK DebugStatus = iota
	DebugError
)

// DebugResponse is a status byte plus optional payload text.
type DebugResponse struct {
	Status  DebugStatus
	Payload string
}

// WriteDebugCommand writes one newline-terminated text command, e.g.
// "update 3\n", matching §6's "text-tagged request/response protocol".
func WriteDebugCommand(w io.Writer, cmd DebugCommand) error {
	var line string
	if cmd.Verb == DebugUpdate {
		line = fmt.Sprintf("%s %d\n", DebugUpdate, cmd.Count)
	} else {
		line = cmd.Verb + "\n"
	}
	if _, err := io.WriteString(w, line); err != nil {
		return bark.AddTrace(err)
	}
	return nil
}

// ReadDebugCommand parses one line of debugger control input.
func ReadDebugCommand(r *bufio.Reader) (DebugCommand, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return DebugCommand{}, bark.AddTrace(err)
	}
	var verb string
	var count int
	n, scanErr := fmt.Sscanf(line, "%s %d", &verb, &count)
	if scanErr != nil || n < 1 {
		verb = trimNewline(line)
	}
	switch verb {
	case DebugRun, DebugPause, DebugUpdate, DebugClose, DebugDisconnect:
		return DebugCommand{Verb: verb, Count: count}, nil
	default:
		return DebugCommand{}, bark.AddTrace(fmt.Errorf("warehouse: unrecognized debugger command %q", verb))
	}
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// WriteDebugResponse writes a status byte followed by a length-prefixed
// payload, mirroring the type records' own length-prefixed framing.
func WriteDebugResponse(w io.Writer, resp DebugResponse) error {
	if _, err := w.Write([]byte{byte(resp.Status)}); err != nil {
		return bark.AddTrace(err)
	}
	if err := writeString(w, resp.Payload); err != nil {
		return bark.AddTrace(err)
	}
	return nil
}

// ReadDebugResponse reads a DebugResponse written by WriteDebugResponse.
func ReadDebugResponse(r io.Reader) (DebugResponse, error) {
	var statusByte [1]byte
	if _, err := io.ReadFull(r, statusByte[:]); err != nil {
		return DebugResponse{}, bark.AddTrace(err)
	}
	payload, err := readString(r)
	if err != nil {
		return DebugResponse{}, bark.AddTrace(err)
	}
	return DebugResponse{Status: DebugStatus(statusByte[0]), Payload: payload}, nil
}

// DebugController drives the control channel named in §6: the core accepts
// run/pause/update<n>/close/disconnect from an external controller over any
// bufio.Reader/io.Writer pair the embedding binary supplies.
type DebugController struct {
	r       *bufio.Reader
	w       io.Writer
	world   *World
	running bool
}

// NewDebugController wires a control channel to world: run/pause set the
// flag Running reports (Handle itself never steps on them), update <n> calls
// step n times regardless of the running flag, close/disconnect end the
// session.
func NewDebugController(r io.Reader, w io.Writer, world *World) *DebugController {
	return &DebugController{r: bufio.NewReader(r), w: w, world: world}
}

// Handle processes one command from the channel, returning done=true once
// close or disconnect is received.
func (d *DebugController) Handle(step func(*World) error) (done bool, err error) {
	cmd, err := ReadDebugCommand(d.r)
	if err != nil {
		return false, err
	}
	switch cmd.Verb {
	case DebugRun:
		d.running = true
		if err := WriteDebugResponse(d.w, DebugResponse{Status: DebugOK}); err != nil {
			return false, bark.AddTrace(err)
		}
		return false, nil
	case DebugPause:
		d.running = false
		if err := WriteDebugResponse(d.w, DebugResponse{Status: DebugOK}); err != nil {
			return false, bark.AddTrace(err)
		}
		return false, nil
	case DebugUpdate:
		for i := 0; i < cmd.Count; i++ {
			if err := step(d.world); err != nil {
				WriteDebugResponse(d.w, DebugResponse{Status: DebugError, Payload: err.Error()})
				return false, bark.AddTrace(err)
			}
		}
		if err := WriteDebugResponse(d.w, DebugResponse{Status: DebugOK}); err != nil {
			return false, bark.AddTrace(err)
		}
		return false, nil
	case DebugClose, DebugDisconnect:
		if err := WriteDebugResponse(d.w, DebugResponse{Status: DebugOK}); err != nil {
			return true, bark.AddTrace(err)
		}
		return true, nil
	default:
		return false, bark.AddTrace(fmt.Errorf("warehouse: unhandled debugger command %q", cmd.Verb))
	}
}

// Running reports whether the last command left the session in the running
// state (i.e. the embedding loop should keep calling step() each frame).
func (d *DebugController) Running() bool { return d.running }
