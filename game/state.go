/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"encoding/json"
	"errors"
)

var errInvalidTransition = errors.New("invalid slot transition")

// Status is the lifecycle state of one slot.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusValid
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CanTransition reports whether a slot may move from s to to. Valid is
// terminal until the whole session is reset.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusIdle:
		return to == StatusIdle || to == StatusPending || to == StatusInvalid
	case StatusPending:
		return to == StatusValid || to == StatusInvalid
	case StatusInvalid:
		return to == StatusIdle || to == StatusPending || to == StatusInvalid
	default:
		return false
	}
}

// State is the lifecycle state of a whole session.
type State int

const (
	StateActive State = iota
	StateComplete
)

func (s State) String() string {
	if s == StateComplete {
		return "complete"
	}

	return "active"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
