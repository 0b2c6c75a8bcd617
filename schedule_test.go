package warehouse

import "testing"

func noopSystem(t *testing.T, w *World, name string, record *[]string) *System {
	t.Helper()
	fn := func() { *record = append(*record, name) }
	sys, err := RegisterSystem(w, name, fn)
	if err != nil {
		t.Fatalf("RegisterSystem(%s): %v", name, err)
	}
	return sys
}

// TestPlannerOrderingRunsInDeclaredOrder is scenario S5: order(a, b) must
// place a strictly before b in every valid schedule execution.
func TestPlannerOrderingRunsInDeclaredOrder(t *testing.T) {
	w := newTestWorld(t)
	var record []string

	a := noopSystem(t, w, "a", &record)
	b := noopSystem(t, w, "b", &record)
	c := noopSystem(t, w, "c", &record)

	p := NewPlanner()
	tagA := p.AddSystem("a", a)
	tagB := p.AddSystem("b", b)
	tagC := p.AddSystem("c", c)
	p.Order(tagA, tagB)
	p.Order(tagB, tagC)

	schedule, err := p.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := schedule.Run(w); err != nil {
		t.Fatalf("Run: %v", err)
	}

	indexOf := func(name string) int {
		for i, r := range record {
			if r == name {
				return i
			}
		}
		t.Fatalf("system %s never ran", name)
		return -1
	}
	if indexOf("a") >= indexOf("b") || indexOf("b") >= indexOf("c") {
		t.Errorf("execution order %v violates a < b < c", record)
	}
}

// TestPlannerOrderingCycleFails matches OrderingCycleError (§7, §4.11).
func TestPlannerOrderingCycleFails(t *testing.T) {
	w := newTestWorld(t)
	var record []string

	a := noopSystem(t, w, "a", &record)
	b := noopSystem(t, w, "b", &record)

	p := NewPlanner()
	tagA := p.AddSystem("a", a)
	tagB := p.AddSystem("b", b)
	p.Order(tagA, tagB)
	p.Order(tagB, tagA)

	_, err := p.Build()
	if _, ok := err.(OrderingCycleError); !ok {
		t.Fatalf("expected OrderingCycleError, got %v", err)
	}
}

// TestPlannerRepeatWhileRunsSubtreeUntilConditionFalse checks that a
// repeating tag's subtree runs once per iteration while its condition holds.
func TestPlannerRepeatWhileRunsSubtreeUntilConditionFalse(t *testing.T) {
	w := newTestWorld(t)
	var record []string

	step := noopSystem(t, w, "step", &record)

	p := NewPlanner()
	repeatTag := p.Add()
	stepTag := p.AddSystem("step", step)
	if !p.Tag(stepTag, repeatTag) {
		t.Fatalf("Tag failed")
	}

	remaining := 3
	ok := p.RepeatWhile(repeatTag, func(w *World) (bool, error) {
		if remaining == 0 {
			return false, nil
		}
		remaining--
		return true, nil
	})
	if !ok {
		t.Fatalf("RepeatWhile failed")
	}

	schedule, err := p.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := schedule.Run(w); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(record) != 3 {
		t.Errorf("step ran %d times, want 3", len(record))
	}
}

// TestPlannerOnlyIfGatesExecution matches §4.11's only_if semantics.
func TestPlannerOnlyIfGatesExecution(t *testing.T) {
	w := newTestWorld(t)
	var record []string

	gated := noopSystem(t, w, "gated", &record)

	p := NewPlanner()
	tag := p.AddSystem("gated", gated)
	p.OnlyIf(tag, func(w *World) (bool, error) { return false, nil })

	schedule, err := p.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := schedule.Run(w); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(record) != 0 {
		t.Errorf("gated system ran despite false condition: %v", record)
	}
}

// TestPlannerMultipleRepeatParentsFails matches MultipleRepeatParentsError.
func TestPlannerMultipleRepeatParentsFails(t *testing.T) {
	w := newTestWorld(t)
	var record []string
	sys := noopSystem(t, w, "leaf", &record)

	p := NewPlanner()
	repeatA := p.Add()
	repeatB := p.Add()
	child := p.AddSystem("leaf", sys)

	p.RepeatWhile(repeatA, func(w *World) (bool, error) { return false, nil })
	p.RepeatWhile(repeatB, func(w *World) (bool, error) { return false, nil })

	if !p.Tag(child, repeatA) {
		t.Fatalf("Tag(child, repeatA) failed")
	}
	if !p.Tag(child, repeatB) {
		t.Fatalf("Tag(child, repeatB) failed")
	}

	_, err := p.Build()
	if _, ok := err.(MultipleRepeatParentsError); !ok {
		t.Fatalf("expected MultipleRepeatParentsError, got %v", err)
	}
}
