package warehouse

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// NodeID identifies a node within a Schedule, assigned in emission order.
type NodeID uint32

type nodeKind uint8

const (
	nodeSystem nodeKind = iota
	nodeRepeat
	nodeCondition
)

type scheduleNode struct {
	kind nodeKind

	system *System

	repeatCond ConditionFunc
	condition  ConditionFunc

	hasRepeatParent bool
	repeatParent    NodeID

	before map[NodeID]struct{}
	after  map[NodeID]struct{}
	gates  []NodeID
}

// Schedule is the executable DAG the planner emits (§4.11): one node per
// leaf system, one per repeating tag, one per condition, wired by ordering
// and gating edges. Ported from cubos's Schedule
// (core/include/cubos/core/ecs/system/schedule.hpp), generalized from its
// template-parameterized condition/system ids to this module's ConditionFunc
// and *System values.
type Schedule struct {
	nodes []scheduleNode
}

func newSchedule() *Schedule { return &Schedule{} }

func (s *Schedule) addNode(n scheduleNode) NodeID {
	n.before = make(map[NodeID]struct{})
	n.after = make(map[NodeID]struct{})
	s.nodes = append(s.nodes, n)
	return NodeID(len(s.nodes) - 1)
}

func (s *Schedule) addSystemNode(sys *System, repeatParent NodeID, hasParent bool) NodeID {
	return s.addNode(scheduleNode{kind: nodeSystem, system: sys, repeatParent: repeatParent, hasRepeatParent: hasParent})
}

func (s *Schedule) addRepeatNode(cond ConditionFunc, repeatParent NodeID, hasParent bool) NodeID {
	return s.addNode(scheduleNode{kind: nodeRepeat, repeatCond: cond, repeatParent: repeatParent, hasRepeatParent: hasParent})
}

func (s *Schedule) addConditionNode(cond ConditionFunc, repeatParent NodeID, hasParent bool) NodeID {
	return s.addNode(scheduleNode{kind: nodeCondition, condition: cond, repeatParent: repeatParent, hasRepeatParent: hasParent})
}

// gate makes nodeID's execution depend on condNode evaluating true.
func (s *Schedule) gate(nodeID, condNode NodeID) {
	s.nodes[nodeID].gates = append(s.nodes[nodeID].gates, condNode)
}

// order records that beforeID must run before afterID, failing with an
// error (the caller wraps it as OrderingCycleError) if the edge would close
// a cycle.
func (s *Schedule) order(beforeID, afterID NodeID) error {
	s.nodes[afterID].after[beforeID] = struct{}{}
	s.nodes[beforeID].before[afterID] = struct{}{}
	if s.hasCycle() {
		delete(s.nodes[afterID].after, beforeID)
		delete(s.nodes[beforeID].before, afterID)
		return OrderingCycleError{}
	}
	return nil
}

func (s *Schedule) hasCycle() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(s.nodes))
	var visit func(id NodeID) bool
	visit = func(id NodeID) bool {
		color[id] = gray
		for next := range s.nodes[id].before {
			switch color[next] {
			case gray:
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}
	for i := range s.nodes {
		if color[i] == white {
			if visit(NodeID(i)) {
				return true
			}
		}
	}
	return false
}

// topLevel returns members in a topologically valid order with respect to
// the "after" ordering edges between them (Kahn's algorithm). runSubtree
// passes it one level at a time: the nodes with no repeat parent, or the
// direct children of one repeat node.
func (s *Schedule) topLevel(members []NodeID) []NodeID {
	inSet := make(map[NodeID]struct{}, len(members))
	for _, id := range members {
		inSet[id] = struct{}{}
	}
	indegree := make(map[NodeID]int, len(members))
	for _, id := range members {
		count := 0
		for before := range s.nodes[id].after {
			if _, ok := inSet[before]; ok {
				count++
			}
		}
		indegree[id] = count
	}

	var ready, order []NodeID
	for _, id := range members {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, id := range members {
			if _, ok := s.nodes[id].after[next]; ok {
				indegree[id]--
				if indegree[id] == 0 {
					ready = append(ready, id)
				}
			}
		}
	}
	return order
}

func (s *Schedule) childrenOf(parent NodeID, hasParent bool) []NodeID {
	var out []NodeID
	for i, n := range s.nodes {
		if n.hasRepeatParent == hasParent && (!hasParent || n.repeatParent == parent) {
			out = append(out, NodeID(i))
		}
	}
	return out
}

// conditionCache memoizes condition evaluations within one Run call, so a
// condition shared by several nodes (directly or via a parent tag) never
// runs twice in the same pass (§4.11 "Conditions are evaluated lazily and
// cached within a single scheduler pass"). Guarded by a mutex since nodes in
// the same parallel group may share a gate and evaluate it concurrently.
type conditionCache struct {
	mu      sync.Mutex
	once    map[NodeID]*sync.Once
	results map[NodeID]bool
	errs    map[NodeID]error
}

func newConditionCache() *conditionCache {
	return &conditionCache{
		once:    make(map[NodeID]*sync.Once),
		results: make(map[NodeID]bool),
		errs:    make(map[NodeID]error),
	}
}

func (c *conditionCache) eval(w *World, s *Schedule, id NodeID) (bool, error) {
	c.mu.Lock()
	once, ok := c.once[id]
	if !ok {
		once = &sync.Once{}
		c.once[id] = once
	}
	c.mu.Unlock()

	once.Do(func() {
		v, err := s.nodes[id].condition(w)
		c.mu.Lock()
		c.results[id], c.errs[id] = v, err
		c.mu.Unlock()
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results[id], c.errs[id]
}

func (c *conditionCache) gatesPass(w *World, s *Schedule, id NodeID) (bool, error) {
	for _, gate := range s.nodes[id].gates {
		ok, err := c.eval(w, s, gate)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Run executes the schedule once against w: every top-level node runs in
// ordering-respecting order, parallelizing nodes whose declared access sets
// are disjoint and which have no ordering relation (§5). Repeat subtrees
// iterate their children while their repeat condition holds, re-sampled at
// the start of each iteration; a fresh conditionCache backs each iteration
// since condition results may depend on state the iteration just changed.
func (s *Schedule) Run(w *World) error {
	return s.runSubtree(w, 0, false)
}

func (s *Schedule) runSubtree(w *World, parent NodeID, hasParent bool) error {
	members := s.childrenOf(parent, hasParent)
	order := s.topLevel(members)

	cache := newConditionCache()
	i := 0
	for i < len(order) {
		group := []NodeID{order[i]}
		var reads, writes []DataTypeID
		exclusive := order[i].kind(s) == nodeRepeat
		if order[i].kind(s) == nodeSystem {
			reads, writes, exclusive = s.nodes[order[i]].system.Access()
		}
		j := i + 1
		for !exclusive && j < len(order) && s.independentOf(order[j], group, &reads, &writes) {
			group = append(group, order[j])
			j++
		}

		if err := s.runGroup(w, group, cache); err != nil {
			return err
		}
		i = j
	}
	return nil
}

func (id NodeID) kind(s *Schedule) nodeKind { return s.nodes[id].kind }

func (s *Schedule) independentOf(candidate NodeID, group []NodeID, reads, writes *[]DataTypeID) bool {
	if s.nodes[candidate].kind != nodeSystem {
		return false
	}
	for _, g := range group {
		if _, ordered := s.nodes[g].after[candidate]; ordered {
			return false
		}
		if _, ordered := s.nodes[candidate].after[g]; ordered {
			return false
		}
	}
	cReads, cWrites, exclusive := s.nodes[candidate].system.Access()
	if exclusive {
		return false
	}
	if conflicts(*reads, *writes, cReads, cWrites) {
		return false
	}
	*reads = append(*reads, cReads...)
	*writes = append(*writes, cWrites...)
	return true
}

func conflicts(reads, writes, otherReads, otherWrites []DataTypeID) bool {
	for _, w := range writes {
		for _, r := range otherReads {
			if w == r {
				return true
			}
		}
		for _, w2 := range otherWrites {
			if w == w2 {
				return true
			}
		}
	}
	for _, r := range reads {
		for _, w2 := range otherWrites {
			if r == w2 {
				return true
			}
		}
	}
	return false
}

func (s *Schedule) runGroup(w *World, group []NodeID, cache *conditionCache) error {
	if len(group) == 1 {
		return s.runNode(w, group[0], cache)
	}
	g := new(errgroup.Group)
	if n := w.config.Workers; n > 0 {
		g.SetLimit(n)
	}
	for _, id := range group {
		id := id
		g.Go(func() error { return s.runNode(w, id, cache) })
	}
	return g.Wait()
}

func (s *Schedule) runNode(w *World, id NodeID, cache *conditionCache) error {
	ok, err := cache.gatesPass(w, s, id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	switch s.nodes[id].kind {
	case nodeSystem:
		return s.nodes[id].system.Run(w)
	case nodeRepeat:
		for {
			again, err := s.nodes[id].repeatCond(w)
			if err != nil {
				return err
			}
			if !again {
				return nil
			}
			if err := s.runSubtree(w, id, true); err != nil {
				return err
			}
		}
	default:
		return nil
	}
}
