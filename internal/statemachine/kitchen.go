// Package statemachine defines the legal kitchen-status transitions for an
// order. Status updates are validated here before any call to the upstream
// API, so an illegal jump never leaves the dashboard.
package statemachine

import "errors"

// Status represents the kitchen lifecycle of an accepted order
type Status string

const (
	StatusPending   Status = "Pending"
	StatusPreparing Status = "Preparing"
	StatusReady     Status = "Ready"
	StatusCompleted Status = "Completed"
	StatusDeclined  Status = "Declined"
	StatusCancelled Status = "Cancelled"
)

// Transition defines a valid state change
type Transition struct {
	From Status
	To   Status
}

// validTransitions is the authoritative state machine definition
var validTransitions = []Transition{
	{From: StatusPending, To: StatusPreparing},
	{From: StatusPending, To: StatusDeclined},
	{From: StatusPending, To: StatusCancelled},
	{From: StatusPreparing, To: StatusReady},
	{From: StatusPreparing, To: StatusCancelled},
	{From: StatusReady, To: StatusCompleted},
}

// Build a lookup map for O(1) validation
var transitionMap = func() map[Transition]bool {
	m := make(map[Transition]bool)
	for _, t := range validTransitions {
		m[t] = true
	}
	return m
}()

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(from Status) []Status {
	var nexts []Status
	for _, t := range validTransitions {
		if t.From == from {
			nexts = append(nexts, t.To)
		}
	}
	return nexts
}

// CanTransition checks whether an order may move from one status to another
func CanTransition(from, to Status) error {
	if transitionMap[Transition{From: from, To: to}] {
		return nil
	}
	return errors.New("invalid status change: " + string(from) + " to " + string(to))
}
