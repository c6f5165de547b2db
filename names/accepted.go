/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package names

// AcceptedSet holds the normalized keys accepted during one session, in the
// order they were accepted. It is not safe for concurrent use; callers
// serialize access.
type AcceptedSet struct {
	keys  []string
	index map[string]struct{}
}

func NewAcceptedSet() *AcceptedSet {
	return &AcceptedSet{index: make(map[string]struct{})}
}

// Contains reports whether key has been accepted.
func (s *AcceptedSet) Contains(key string) bool {
	_, ok := s.index[key]

	return ok
}

// Add records key, refusing the empty key and keys already present.
func (s *AcceptedSet) Add(key string) bool {
	if key == "" || s.Contains(key) {
		return false
	}

	s.index[key] = struct{}{}
	s.keys = append(s.keys, key)

	return true
}

func (s *AcceptedSet) Len() int {
	return len(s.keys)
}

// Keys returns a copy of the accepted keys in acceptance order.
func (s *AcceptedSet) Keys() []string {
	return append([]string(nil), s.keys...)
}

// IsDuplicate reports whether raw normalizes to a key already in accepted.
func IsDuplicate(raw string, accepted *AcceptedSet) bool {
	if accepted == nil {
		return false
	}

	return accepted.Contains(Normalize(raw))
}
