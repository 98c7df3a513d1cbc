package document

import (
	"fmt"
	"strings"
	"time"

	"doctrack/internal/domain/user"
)

// WorkflowState is the forward/receive/return position of a document,
// derived from the forwarded flag and adminStatus.
type WorkflowState string

const (
	StateIdle      WorkflowState = "idle"
	StateForwarded WorkflowState = "forwarded"
	StateReceived  WorkflowState = "received"
	StateReturned  WorkflowState = "returned"
)

type Transition string

const (
	TransitionForward Transition = "forward"
	TransitionReceive Transition = "receive"
	TransitionReturn  Transition = "return"
)

// transitions is the legal move matrix. Returned documents may start a new
// forward cycle.
var transitions = map[WorkflowState]map[Transition]WorkflowState{
	StateIdle:      {TransitionForward: StateForwarded},
	StateReturned:  {TransitionForward: StateForwarded},
	StateForwarded: {TransitionReceive: StateReceived},
	StateReceived:  {TransitionReturn: StateReturned},
}

// Actor is whoever triggers a transition.
type Actor struct {
	Username string
	Role     user.Role
}

func (d Document) WorkflowState() WorkflowState {
	switch {
	case d.Forwarded:
		return StateForwarded
	case d.AdminStatus == AdminReceived:
		return StateReceived
	case d.AdminStatus == AdminReturned:
		return StateReturned
	}
	return StateIdle
}

func CanTransition(from WorkflowState, t Transition) bool {
	_, ok := transitions[from][t]
	return ok
}

// SetStatus is unconstrained within the closed Status set.
func SetStatus(d Document, a Actor, s Status, now time.Time) (Document, error) {
	if err := Authorize(a.Role, ActionSetStatus, &d); err != nil {
		return d, err
	}
	if !s.Valid() {
		return d, fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	d.Status = s
	d.UpdatedAt = now.UnixMilli()
	return d, nil
}

// SetWinsStatus is independent of Status.
func SetWinsStatus(d Document, a Actor, s WinsStatus, now time.Time) (Document, error) {
	if err := Authorize(a.Role, ActionSetWins, &d); err != nil {
		return d, err
	}
	if !s.Valid() {
		return d, fmt.Errorf("%w: %q", ErrInvalidWinsStatus, s)
	}
	d.WinsStatus = s
	d.UpdatedAt = now.UnixMilli()
	return d, nil
}

func EditNotes(d Document, a Actor, notes string, now time.Time) (Document, error) {
	if err := Authorize(a.Role, ActionEditNotes, &d); err != nil {
		return d, err
	}
	d.Notes = strings.TrimSpace(notes)
	d.UpdatedAt = now.UnixMilli()
	return d, nil
}

// Forward submits d for admin acknowledgement. Only non-admin roles may
// forward, and never twice in a row: forwardedAt is stamped once per cycle.
func Forward(d Document, a Actor, now time.Time) (Document, error) {
	if err := Authorize(a.Role, ActionForward, &d); err != nil {
		return d, err
	}
	from := d.WorkflowState()
	if from == StateForwarded {
		return d, ErrAlreadyForwarded
	}
	if !CanTransition(from, TransitionForward) {
		return d, fmt.Errorf("%w: forward from %s", ErrInvalidTransition, from)
	}
	ms := now.UnixMilli()
	d.Forwarded = true
	d.ForwardedBy = a.Username
	d.ForwardedAt = ms
	d.ForwardedHandledBy, d.ForwardedHandledAt = "", 0
	d.AdminStatus = AdminUnset
	d.ReturnedBy, d.ReturnedAt, d.ReturnReason = "", 0, ""
	d.UpdatedAt = ms
	return d, nil
}

// Receive is the admin acknowledgement of a forwarded document.
func Receive(d Document, a Actor, now time.Time) (Document, error) {
	if err := Authorize(a.Role, ActionReceive, &d); err != nil {
		return d, err
	}
	if !CanTransition(d.WorkflowState(), TransitionReceive) {
		return d, ErrNotForwarded
	}
	ms := now.UnixMilli()
	d.Forwarded = false
	d.AdminStatus = AdminReceived
	d.ForwardedHandledBy = a.Username
	d.ForwardedHandledAt = ms
	d.UpdatedAt = ms
	return d, nil
}

// Return sends a received document back to its originator.
func Return(d Document, a Actor, reason string, now time.Time) (Document, error) {
	if err := Authorize(a.Role, ActionReturn, &d); err != nil {
		return d, err
	}
	if !CanTransition(d.WorkflowState(), TransitionReturn) {
		return d, ErrNotReceived
	}
	ms := now.UnixMilli()
	d.Forwarded = false
	d.AdminStatus = AdminReturned
	d.ReturnedBy = a.Username
	d.ReturnedAt = ms
	d.ReturnReason = strings.TrimSpace(reason)
	d.UpdatedAt = ms
	return d, nil
}
