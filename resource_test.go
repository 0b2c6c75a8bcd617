package warehouse

import "testing"

type wireFrameCounter struct {
	Count int
}

func TestResourceReadWriteRoundTrip(t *testing.T) {
	w, err := Factory.NewWorld()
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}

	counter := RegisterResource(w, wireFrameCounter{Count: 0})

	ptr, release := counter.Write()
	ptr.Count = 5
	release()

	v, release := counter.Read()
	defer release()
	if v.Count != 5 {
		t.Fatalf("Count = %d, want 5", v.Count)
	}
}

func TestResourceReadDoesNotBlockConcurrentReads(t *testing.T) {
	w, err := Factory.NewWorld()
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	counter := RegisterResource(w, wireFrameCounter{Count: 42})

	v1, release1 := counter.Read()
	v2, release2 := counter.Read()
	defer release1()
	defer release2()

	if v1.Count != 42 || v2.Count != 42 {
		t.Fatalf("expected both reads to observe 42, got %d and %d", v1.Count, v2.Count)
	}
}

func TestResourceIDStableAcrossRegistration(t *testing.T) {
	w, err := Factory.NewWorld()
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	first := RegisterResource(w, wireFrameCounter{})
	second := RegisterResource(w, wireFrameCounter{Count: 99})
	if first.ID() != second.ID() {
		t.Fatalf("re-registering the same resource type changed its id: %d != %d", first.ID(), second.ID())
	}
	v, release := second.Read()
	defer release()
	if v.Count != 99 {
		t.Fatalf("Count = %d, want 99 (last insert wins)", v.Count)
	}
}
