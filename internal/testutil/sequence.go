package testutil

import "sync"

// Sequence is a resettable monotonic counter. Scenario runs number their
// steps with it so traces are identical across runs.
//
// Safe for concurrent use.
type Sequence struct {
	mu  sync.Mutex
	seq uint64
}

// NewSequence returns a sequence whose first Next is 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next increments and returns the sequence.
func (s *Sequence) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Current returns the last value handed out, 0 before the first Next.
func (s *Sequence) Current() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Reset starts the sequence over.
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = 0
}
