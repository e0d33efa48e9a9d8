package crawl

import "sync"

// State tracks the products saved during one run. Deduplication and the
// results cap are enforced under a single lock so that concurrent workers
// never overshoot the target or double-save an ID.
type State struct {
	mu     sync.Mutex
	target int
	seen   map[string]struct{}
	saved  int
}

func NewState(target int) *State {
	return &State{
		target: target,
		seen:   make(map[string]struct{}),
	}
}

// TrySave claims a slot for the given product ID. It returns false when the
// ID was already saved or the target has been reached; the check and the
// claim are atomic.
func (s *State) TrySave(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saved >= s.target {
		return false
	}
	if _, dup := s.seen[productID]; dup {
		return false
	}
	s.seen[productID] = struct{}{}
	s.saved++
	return true
}

func (s *State) Saved() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

func (s *State) TargetReached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved >= s.target
}
