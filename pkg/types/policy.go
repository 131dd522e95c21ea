package types

import (
	"errors"
	"fmt"
	"sort"
)

// ErrTransitionNotAllowed reports that the target lifecycle state is not
// reachable from the current state.
var ErrTransitionNotAllowed = errors.New("go-staff: lifecycle transition not allowed")

// TransitionError names the rejected edge. It matches ErrTransitionNotAllowed
// under errors.Is.
type TransitionError struct {
	From LifecycleState
	To   LifecycleState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %q -> %q", ErrTransitionNotAllowed.Error(), e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrTransitionNotAllowed }

// TransitionPolicy validates identity lifecycle transitions.
type TransitionPolicy interface {
	Validate(current, target LifecycleState) error
	AllowedTargets(current LifecycleState) []LifecycleState
}

// StaticTransitionPolicy checks transitions against a fixed edge set.
type StaticTransitionPolicy struct {
	edges map[LifecycleState][]LifecycleState
}

// NewStaticTransitionPolicy copies graph, dropping empty targets and
// duplicates. Targets are kept sorted.
func NewStaticTransitionPolicy(graph map[LifecycleState][]LifecycleState) *StaticTransitionPolicy {
	edges := make(map[LifecycleState][]LifecycleState, len(graph))
	for from, targets := range graph {
		seen := make(map[LifecycleState]bool, len(targets))
		list := make([]LifecycleState, 0, len(targets))
		for _, to := range targets {
			if to == "" || seen[to] {
				continue
			}
			seen[to] = true
			list = append(list, to)
		}
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
		edges[from] = list
	}
	return &StaticTransitionPolicy{edges: edges}
}

// DefaultTransitionPolicy returns the staff account graph. Invited identities
// start active because they are pre-confirmed. Suspension toggles between
// active and suspended, and removal archives from any live state. Archived is
// terminal.
func DefaultTransitionPolicy() *StaticTransitionPolicy {
	live := []LifecycleState{LifecycleStateActive, LifecycleStateSuspended, LifecycleStatePending}
	graph := make(map[LifecycleState][]LifecycleState, len(live)+1)
	for _, from := range live {
		targets := []LifecycleState{LifecycleStateArchived}
		switch from {
		case LifecycleStatePending:
			targets = append(targets, LifecycleStateActive, LifecycleStateSuspended)
		case LifecycleStateActive:
			targets = append(targets, LifecycleStateSuspended, LifecycleStateDisabled)
		case LifecycleStateSuspended:
			targets = append(targets, LifecycleStateActive, LifecycleStateDisabled)
		}
		graph[from] = targets
	}
	graph[LifecycleStateDisabled] = []LifecycleState{LifecycleStateArchived}
	return NewStaticTransitionPolicy(graph)
}

// Validate returns a *TransitionError when target is not reachable.
func (p *StaticTransitionPolicy) Validate(current, target LifecycleState) error {
	if current != "" && target != "" {
		for _, to := range p.edges[current] {
			if to == target {
				return nil
			}
		}
	}
	return &TransitionError{From: current, To: target}
}

// AllowedTargets lists the states reachable from current, sorted. Terminal
// states return nil.
func (p *StaticTransitionPolicy) AllowedTargets(current LifecycleState) []LifecycleState {
	targets := p.edges[current]
	if len(targets) == 0 {
		return nil
	}
	return append([]LifecycleState(nil), targets...)
}
