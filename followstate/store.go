package followstate

import "sync"

// Store holds "does the session follow userId" as best known to the client.
// A missing key means unknown, never false.
//
// Every write stamps the entries it touches with a fresh version, so a
// caller holding the version from its own write can tell whether anything
// has overwritten the entry since.
type Store struct {
	mu       sync.RWMutex
	entries  map[int64]bool
	versions map[int64]uint64
	seq      uint64
}

func NewStore() *Store {
	return &Store{
		entries:  make(map[int64]bool),
		versions: make(map[int64]uint64),
	}
}

func (s *Store) Set(userId int64, value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(userId, value)
}

func (s *Store) write(userId int64, value bool) uint64 {
	s.seq++
	s.entries[userId] = value
	s.versions[userId] = s.seq
	return s.seq
}

// Flip toggles a known entry and returns the value it had before along with
// the version of the flipped entry. ok is false and nothing changes when the
// entry is unknown.
func (s *Store) Flip(userId int64) (previous bool, version uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, ok = s.entries[userId]
	if !ok {
		return false, 0, false
	}
	return previous, s.write(userId, !previous), true
}

// RestoreIf sets the entry to value only if it still carries version. It
// reports whether the write happened.
func (s *Store) RestoreIf(userId int64, value bool, version uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[userId]; !ok || s.versions[userId] != version {
		return false
	}
	s.write(userId, value)
	return true
}

func (s *Store) Get(userId int64) (value bool, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok = s.entries[userId]
	return value, ok
}

// Replace swaps the whole mapping for entries. All entries get a new
// version, including ones whose value did not change.
func (s *Store) Replace(entries map[int64]bool) {
	next := make(map[int64]bool, len(entries))
	for k, v := range entries {
		next[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	versions := make(map[int64]uint64, len(next))
	for k := range next {
		versions[k] = s.seq
	}
	s.entries = next
	s.versions = versions
}

// Entries returns a copy of the current mapping.
func (s *Store) Entries() map[int64]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]bool, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}
