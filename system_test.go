package warehouse

import "testing"

// TestRegisterSystemRunsAndFetchesParams exercises a system mixing query,
// resource write, and commands parameters, per §4.10's fetcher contract.
func TestRegisterSystemRunsAndFetchesParams(t *testing.T) {
	w := newTestWorld(t)
	pos := RegisterComponent[Position](w)
	vel := RegisterComponent[Velocity](w)
	total := RegisterResource[int](w, 0)

	if _, err := w.CreateMany(5, pos, vel); err != nil {
		t.Fatalf("CreateMany: %v", err)
	}

	query := NewQuery(WithWrite(pos.Column()), With(vel.Column()))
	ran := false

	integrate := func(cursor *Cursor, sum *int, cmds Commands) {
		ran = true
		for cursor.Next() {
			p := pos.GetFromCursor(cursor)
			v := vel.GetFromCursor(cursor)
			p.X += v.X
			*sum++
		}
		cmds.Create(pos.Column())
	}

	sys, err := RegisterSystem(w, "integrate", integrate,
		QueryAccess(query, 0),
		ResourceWrite(total),
		CommandsAccess(),
	)
	if err != nil {
		t.Fatalf("RegisterSystem: %v", err)
	}

	if err := sys.Run(w); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ran {
		t.Fatalf("system function never invoked")
	}

	sum, release := total.Read()
	defer release()
	if sum != 5 {
		t.Errorf("resource write not visible after Run: got %d, want 5", sum)
	}

	count, err := NewCursor(w, NewQuery(With(pos.Column())), 1).TotalMatched()
	if err != nil {
		t.Fatalf("TotalMatched: %v", err)
	}
	if count != 6 {
		t.Errorf("expected command buffer's Create to be flushed after Run, got %d position entities, want 6", count)
	}
}

// TestRegisterSystemRejectsArityMismatch matches §4.10's registration-time
// validation: one Param per function argument is required.
func TestRegisterSystemRejectsArityMismatch(t *testing.T) {
	w := newTestWorld(t)
	pos := RegisterComponent[Position](w)
	query := NewQuery(With(pos.Column()))

	fn := func(cursor *Cursor, extra int) {}
	_, err := RegisterSystem(w, "bad", fn, QueryAccess(query, 0))
	if err == nil {
		t.Fatalf("expected an error for mismatched arity, got nil")
	}
}

// TestRegisterSystemRejectsReadWriteConflict matches QueryAccessConflictError
// (§7, §4.10): a system may not both read and write the same resource.
func TestRegisterSystemRejectsReadWriteConflict(t *testing.T) {
	w := newTestWorld(t)
	total := RegisterResource[int](w, 0)

	fn := func(a int, b *int) {}
	_, err := RegisterSystem(w, "conflict", fn, ResourceRead(total), ResourceWrite(total))
	if _, ok := err.(QueryAccessConflictError); !ok {
		t.Fatalf("expected QueryAccessConflictError, got %v", err)
	}
}

// TestRegisterSystemRejectsWorldAccessAlongsideOtherParams matches §4.10's
// rule that world-exclusive access must stand alone.
func TestRegisterSystemRejectsWorldAccessAlongsideOtherParams(t *testing.T) {
	w := newTestWorld(t)
	total := RegisterResource[int](w, 0)

	fn := func(world *World, val int) {}
	_, err := RegisterSystem(w, "exclusive", fn, WorldAccess(), ResourceRead(total))
	qErr, ok := err.(QueryAccessConflictError)
	if !ok || !qErr.Exclusive {
		t.Fatalf("expected an exclusive QueryAccessConflictError, got %v", err)
	}
}

// TestSystemAccessReportsDeclaredSets checks Access aggregates every
// parameter's reads/writes/exclusivity for the planner/scheduler (§5).
func TestSystemAccessReportsDeclaredSets(t *testing.T) {
	w := newTestWorld(t)
	pos := RegisterComponent[Position](w)
	vel := RegisterComponent[Velocity](w)
	query := NewQuery(WithWrite(pos.Column()), With(vel.Column()))

	fn := func(cursor *Cursor) {}
	sys, err := RegisterSystem(w, "access", fn, QueryAccess(query, 0))
	if err != nil {
		t.Fatalf("RegisterSystem: %v", err)
	}

	reads, writes, exclusive := sys.Access()
	if exclusive {
		t.Errorf("query-only system reported exclusive access")
	}
	if len(reads) != 1 || reads[0] != vel.Column().Type {
		t.Errorf("reads = %v, want [%d]", reads, vel.Column().Type)
	}
	if len(writes) != 1 || writes[0] != pos.Column().Type {
		t.Errorf("writes = %v, want [%d]", writes, pos.Column().Type)
	}
}
