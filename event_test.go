package warehouse

import "testing"

type collisionEvent struct {
	A, B Entity
}

// TestEventPipeReaderRetainsCursorAcrossReads covers spec.md §3's Event
// pipe: a reader only sees entries written after it registered, and each
// Read only returns what's unconsumed since the reader's last call.
func TestEventPipeReaderRetainsCursorAcrossReads(t *testing.T) {
	w := newTestWorld(t)
	collisions := RegisterEvent[collisionEvent](w)

	reader := collisions.NewReader()

	a, _ := w.Create()
	b, _ := w.Create()
	collisions.Write(collisionEvent{A: a, B: b})

	got := reader.Read()
	if len(got) != 1 || got[0].A != a || got[0].B != b {
		t.Fatalf("Read() = %v, want one entry {%v %v}", got, a, b)
	}

	if got := reader.Read(); len(got) != 0 {
		t.Fatalf("second Read() = %v, want empty (nothing written since)", got)
	}

	collisions.Write(collisionEvent{A: b, B: a})
	collisions.Write(collisionEvent{A: a, B: a})
	got = reader.Read()
	if len(got) != 2 {
		t.Fatalf("Read() after two writes = %v, want 2 entries", got)
	}
}

// TestEventPipeLateReaderMissesEarlierWrites covers "readers register once":
// a reader that registers after some writes never observes them, only ones
// written from registration onward.
func TestEventPipeLateReaderMissesEarlierWrites(t *testing.T) {
	w := newTestWorld(t)
	collisions := RegisterEvent[collisionEvent](w)

	a, _ := w.Create()
	collisions.Write(collisionEvent{A: a, B: a})

	late := collisions.NewReader()
	if got := late.Read(); len(got) != 0 {
		t.Fatalf("late reader's first Read() = %v, want empty", got)
	}

	collisions.Write(collisionEvent{A: a, B: a})
	if got := late.Read(); len(got) != 1 {
		t.Fatalf("late reader's Read() after a new write = %v, want 1 entry", got)
	}
}

// TestEventPipeReclaimsEntriesBelowSlowestReader exercises reclaim: once
// every registered reader has consumed an entry, it's dropped from the
// backing slice, keeping memory bounded by the slowest reader's backlog
// rather than total writes ever made.
func TestEventPipeReclaimsEntriesBelowSlowestReader(t *testing.T) {
	w := newTestWorld(t)
	collisions := RegisterEvent[collisionEvent](w)

	fast := collisions.NewReader()
	slow := collisions.NewReader()

	a, _ := w.Create()
	for i := 0; i < 5; i++ {
		collisions.Write(collisionEvent{A: a, B: a})
	}

	if got := fast.Read(); len(got) != 5 {
		t.Fatalf("fast reader Read() = %d entries, want 5", len(got))
	}

	pipe := collisions.pipe()
	if pipe.base != 0 {
		t.Fatalf("pipe.base = %d before the slow reader catches up, want 0", pipe.base)
	}

	if got := slow.Read(); len(got) != 5 {
		t.Fatalf("slow reader Read() = %d entries, want 5", len(got))
	}
	if pipe.base != 5 || len(pipe.entries) != 0 {
		t.Fatalf("pipe = {base:%d entries:%d} after both readers caught up, want {5 0}", pipe.base, len(pipe.entries))
	}
}

// TestEventReadWriteParamsRoundTripThroughFetch exercises EventRead/
// EventWrite as Param values the way a registered system would receive them
// (SPEC_FULL.md §4.10).
func TestEventReadWriteParamsRoundTripThroughFetch(t *testing.T) {
	w := newTestWorld(t)
	collisions := RegisterEvent[collisionEvent](w)

	writeParam := EventWrite(collisions)
	readParam := EventRead(collisions)

	var rel []func()
	writerAny, err := writeParam.fetch(w, nil, &rel)
	if err != nil {
		t.Fatalf("fetch(write): %v", err)
	}
	writer := writerAny.(EventWriter[collisionEvent])

	a, _ := w.Create()
	writer.Write(collisionEvent{A: a, B: a})

	readerAny, err := readParam.fetch(w, nil, &rel)
	if err != nil {
		t.Fatalf("fetch(read): %v", err)
	}
	got := readerAny.([]collisionEvent)
	if len(got) != 1 || got[0].A != a {
		t.Fatalf("fetch(read) = %v, want one entry referencing %v", got, a)
	}
}
