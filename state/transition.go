package state

import (
	"errors"
	"fmt"
)

// EventKind names a transition request.
type EventKind uint8

const (
	EventInitialize EventKind = iota
	EventActivate
	EventDeactivate
	EventFault
	EventReset
)

var eventNames = [...]string{
	EventInitialize: "initialize",
	EventActivate:   "activate",
	EventDeactivate: "deactivate",
	EventFault:      "fault",
	EventReset:      "reset",
}

func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("event(%d)", uint8(k))
}

// Event is a transition request plus the attributes it writes on success.
type Event struct {
	Kind       EventKind
	Attributes []Attribute
}

var ErrInvalidTransition = errors.New("invalid transition")

// TransitionError reports the (mode, event) pair that has no row in the
// transition table.
type TransitionError struct {
	From  Mode
	Event EventKind
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s from %s", e.Event, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

type edge struct {
	from  Mode
	event EventKind
}

var transitions = map[edge]Mode{
	{Uninitialized, EventInitialize}: Idle,
	{Idle, EventActivate}:            Active,
	{Active, EventDeactivate}:        Idle,
	{Active, EventFault}:             Faulted,
	{Faulted, EventReset}:            Idle,
}

// Next looks up the mode reached from `from` by event `kind`.
func Next(from Mode, kind EventKind) (Mode, error) {
	to, ok := transitions[edge{from, kind}]
	if !ok {
		return from, &TransitionError{From: from, Event: kind}
	}
	return to, nil
}

// NextEvent is the advancement policy used when the caller does not name an
// event: it walks the table cyclically and never picks EventFault.
func NextEvent(m Mode) EventKind {
	switch m {
	case Uninitialized:
		return EventInitialize
	case Idle:
		return EventActivate
	case Active:
		return EventDeactivate
	default:
		return EventReset
	}
}
