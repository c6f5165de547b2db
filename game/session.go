/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package game holds the per-session slot state machine: players fill
// numbered slots with names, each slot moving idle -> pending -> valid or
// invalid as the classification pipeline decides.
package game

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Seednode/nameher/names"
)

var (
	ErrInvalidMode     = errors.New("invalid game mode")
	ErrSlotRange       = errors.New("slot out of range")
	ErrSlotPending     = errors.New("slot is already being checked")
	ErrSlotFrozen      = errors.New("slot already holds an accepted name")
	ErrSessionComplete = errors.New("session is complete")
	// ErrStale reports a classification that finished after a reset.
	ErrStale = errors.New("session was reset")

	errDuplicate = fmt.Errorf("%w: already named", names.ErrInputRejected)
)

// Modes lists the supported target counts.
var Modes = []int{25, 50, 100}

// ValidMode reports whether n is one of Modes.
func ValidMode(n int) bool {
	return slices.Contains(Modes, n)
}

// Classifier decides a single candidate. *names.Pipeline satisfies it.
type Classifier interface {
	Classify(ctx context.Context, raw string) names.Result
}

// Slot is one input slot.
type Slot struct {
	Index  int    `json:"index"`
	Status Status `json:"status"`
	Name   string `json:"name"`
	Match  string `json:"match,omitempty"`
	Reason string `json:"reason,omitempty"`

	key string
}

// Snapshot is a copy of session state safe to hand to other goroutines.
// Revision increases with every change, across resets, so receivers can
// discard snapshots that arrive out of order.
type Snapshot struct {
	Revision   uint64        `json:"revision"`
	Generation uint64        `json:"generation"`
	Mode       int           `json:"mode"`
	State      State         `json:"state"`
	Slots      []Slot        `json:"slots"`
	Focus      int           `json:"focus"`
	Accepted   int           `json:"accepted"`
	Elapsed    time.Duration `json:"elapsed"`
	StartedAt  time.Time     `json:"started_at"`
}

// Names returns the surface forms of the accepted slots in slot order.
func (s Snapshot) Names() []string {
	out := make([]string, 0, s.Accepted)
	for _, slot := range s.Slots {
		if slot.Status == StatusValid {
			out = append(out, slot.Name)
		}
	}
	return out
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// OnChange registers a callback invoked, outside the session lock, after
// every state change.
func OnChange(fn func(Snapshot)) Option {
	return func(s *Session) { s.onChange = fn }
}

// Session is one play-through. All methods are safe for concurrent use;
// classifications run outside the lock so different slots can be checked at
// the same time.
type Session struct {
	mu sync.Mutex

	classifier Classifier
	logger     *zap.Logger
	now        func() time.Time
	onChange   func(Snapshot)

	revision   uint64
	generation uint64
	mode       int
	state      State
	slots      []Slot
	accepted   *names.AcceptedSet
	focus      int
	startedAt  time.Time
	finishedAt time.Time
}

// NewSession starts a session targeting mode names.
func NewSession(mode int, classifier Classifier, opts ...Option) (*Session, error) {
	if !ValidMode(mode) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}

	s := &Session{
		classifier: classifier,
		logger:     zap.NewNop(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.resetLocked(mode)
	s.revision = 1

	return s, nil
}

func (s *Session) resetLocked(mode int) {
	s.generation++
	s.mode = mode
	s.state = StateActive
	s.slots = make([]Slot, mode)
	for i := range s.slots {
		s.slots[i] = Slot{Index: i, Status: StatusIdle}
	}
	s.accepted = names.NewAcceptedSet()
	s.focus = 0
	s.startedAt = s.now()
	s.finishedAt = time.Time{}
}

// Reset clears the session and starts over, optionally in a new mode (zero
// keeps the current one). Classifications still in flight are discarded
// when they finish.
func (s *Session) Reset(mode int) error {
	s.mu.Lock()

	if mode == 0 {
		mode = s.mode
	}
	if !ValidMode(mode) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}

	s.resetLocked(mode)
	snap := s.changedLocked()
	s.mu.Unlock()

	s.logger.Debug("session reset", zap.Uint64("generation", snap.Generation), zap.Int("mode", mode))
	s.notify(snap)

	return nil
}

// Edit stores text typed into a slot. Editing an invalid slot returns it to
// idle; pending and valid slots cannot be edited.
func (s *Session) Edit(index int, raw string) (Slot, error) {
	s.mu.Lock()

	slot, err := s.slotLocked(index)
	if err != nil {
		s.mu.Unlock()
		return Slot{}, err
	}

	switch slot.Status {
	case StatusPending:
		s.mu.Unlock()
		return *slot, ErrSlotPending
	case StatusValid:
		s.mu.Unlock()
		return *slot, ErrSlotFrozen
	}

	if err := s.transitionLocked(slot, StatusIdle); err != nil {
		s.mu.Unlock()
		return *slot, err
	}
	slot.Name = raw
	slot.Match = ""
	slot.Reason = ""

	out := *slot
	snap := s.changedLocked()
	s.mu.Unlock()

	s.notify(snap)

	return out, nil
}

// Submit commits raw into slot index and classifies it, blocking until a
// verdict is reached. It returns the slot as it stands afterwards.
//
// Blank input, including input with nothing left once normalized, leaves
// the slot untouched. A slot that is already pending or valid is refused.
// Duplicates of accepted names are rejected before any lookup.
func (s *Session) Submit(ctx context.Context, index int, raw string) (Slot, error) {
	s.mu.Lock()

	if s.state == StateComplete {
		s.mu.Unlock()
		return Slot{}, ErrSessionComplete
	}

	slot, err := s.slotLocked(index)
	if err != nil {
		s.mu.Unlock()
		return Slot{}, err
	}

	key := names.Normalize(raw)
	if key == "" {
		out := *slot
		s.mu.Unlock()
		return out, nil
	}

	switch slot.Status {
	case StatusPending:
		out := *slot
		s.mu.Unlock()
		return out, ErrSlotPending
	case StatusValid:
		out := *slot
		s.mu.Unlock()
		return out, ErrSlotFrozen
	}

	if s.accepted.Contains(key) {
		if err := s.transitionLocked(slot, StatusInvalid); err != nil {
			out := *slot
			s.mu.Unlock()
			return out, err
		}
		s.fillLocked(slot, raw, key)
		slot.Reason = errDuplicate.Error()
		s.focus = index
		out := *slot
		snap := s.changedLocked()
		s.mu.Unlock()

		s.logger.Debug("duplicate name", zap.Int("slot", index), zap.String("name", raw))
		s.notify(snap)

		return out, nil
	}

	if err := s.transitionLocked(slot, StatusPending); err != nil {
		out := *slot
		s.mu.Unlock()
		return out, err
	}
	s.fillLocked(slot, raw, key)
	generation := s.generation
	snap := s.changedLocked()
	s.mu.Unlock()

	s.notify(snap)

	res := s.classifier.Classify(ctx, raw)

	return s.commit(generation, index, raw, res)
}

// commit applies a verdict. The duplicate re-check and the state change
// happen under one lock acquisition.
func (s *Session) commit(generation uint64, index int, raw string, res names.Result) (Slot, error) {
	s.mu.Lock()

	if generation != s.generation {
		s.mu.Unlock()
		s.logger.Debug("discarding stale verdict", zap.Int("slot", index), zap.String("name", raw))
		return Slot{}, ErrStale
	}

	slot := &s.slots[index]
	valid := res.Outcome == names.Accepted

	if valid && s.accepted.Contains(slot.key) {
		valid = false
		res.Reason = names.ErrRaceLost
	}

	to := StatusInvalid
	if valid {
		to = StatusValid
	}

	if err := s.transitionLocked(slot, to); err != nil {
		out := *slot
		s.mu.Unlock()
		s.logger.Error("dropping verdict", zap.Int("slot", index), zap.Error(err))
		return out, err
	}

	if valid {
		s.accepted.Add(slot.key)
		slot.Match = res.Match
		s.focus = s.nextOpenLocked(index)

		if s.accepted.Len() >= s.mode {
			s.state = StateComplete
			s.finishedAt = s.now()
		}
	} else {
		if res.Reason == nil {
			res.Reason = names.ErrInputRejected
		}
		slot.Reason = res.Reason.Error()
		s.focus = index
	}

	out := *slot
	snap := s.changedLocked()
	s.mu.Unlock()

	s.logger.Debug("slot decided",
		zap.Int("slot", index),
		zap.String("name", raw),
		zap.Stringer("status", out.Status),
		zap.String("stage", res.Stage),
		zap.NamedError("reason", res.Reason),
	)
	s.notify(snap)

	return out, nil
}

func (s *Session) transitionLocked(slot *Slot, to Status) error {
	if !slot.Status.CanTransition(to) {
		return fmt.Errorf("slot %d: %s -> %s: %w", slot.Index, slot.Status, to, errInvalidTransition)
	}

	slot.Status = to

	return nil
}

func (s *Session) fillLocked(slot *Slot, raw, key string) {
	slot.Name = raw
	slot.Match = ""
	slot.Reason = ""
	slot.key = key
}

// nextOpenLocked finds the first slot after from (wrapping) that is idle and
// empty, or from itself when there is none.
func (s *Session) nextOpenLocked(from int) int {
	for i := 1; i <= len(s.slots); i++ {
		j := (from + i) % len(s.slots)
		if s.slots[j].Status == StatusIdle && strings.TrimSpace(s.slots[j].Name) == "" {
			return j
		}
	}

	return from
}

func (s *Session) slotLocked(index int) (*Slot, error) {
	if index < 0 || index >= len(s.slots) {
		return nil, fmt.Errorf("%w: %d", ErrSlotRange, index)
	}

	return &s.slots[index], nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

// changedLocked records a state change and returns the snapshot to publish.
func (s *Session) changedLocked() Snapshot {
	s.revision++

	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	end := s.now()
	if s.state == StateComplete {
		end = s.finishedAt
	}

	return Snapshot{
		Revision:   s.revision,
		Generation: s.generation,
		Mode:       s.mode,
		State:      s.state,
		Slots:      slices.Clone(s.slots),
		Focus:      s.focus,
		Accepted:   s.accepted.Len(),
		Elapsed:    end.Sub(s.startedAt),
		StartedAt:  s.startedAt,
	}
}

// AcceptedKeys returns the normalized accepted names in acceptance order.
func (s *Session) AcceptedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.accepted.Keys()
}

func (s *Session) notify(snap Snapshot) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}
