package dispenser

import (
	"sync"

	"github.com/kilianp07/kitty3000/core/model"
)

// State is the dispenser's shared mutable state. The router writes to it
// from transport callbacks while the dispatch loop reads it, so every access
// goes through the mutex.
type State struct {
	mu      sync.Mutex
	pending model.Command
	seq     uint64
	treats  int
	counter int
	remote  *model.RemoteConfig
	wake    chan struct{}
}

// NewState returns an unconfigured state with no pending command.
func NewState() *State {
	return &State{wake: make(chan struct{}, 1)}
}

// SetPending stores cmd in the single command slot, replacing any command
// the loop has not picked up yet, and returns its sequence number.
func (s *State) SetPending(cmd model.Command) uint64 {
	s.mu.Lock()
	s.pending = cmd
	s.seq++
	seq := s.seq
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return seq
}

// Pending returns the current command and its sequence number.
func (s *State) Pending() (model.Command, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, s.seq
}

// ClearPending resets the slot if it still holds the command identified by
// seq. A command written after seq was observed is left in place.
func (s *State) ClearPending(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq != seq {
		return false
	}
	s.pending = model.CommandNone
	return true
}

// Wake fires after SetPending so an idle loop can react without waiting for
// the full idle interval.
func (s *State) Wake() <-chan struct{} { return s.wake }

// Treats returns the remaining inventory.
func (s *State) Treats() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.treats
}

// SetTreats overrides the inventory, clamping negative values to zero, and
// returns the stored value.
func (s *State) SetTreats(n int) int {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	s.treats = n
	s.mu.Unlock()
	return n
}

// ConsumeTreat decrements the inventory without going below zero.
func (s *State) ConsumeTreat() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.treats > 0 {
		s.treats--
	}
	return s.treats
}

// Counter returns the number of dispenses since the last periodic
// recalibration.
func (s *State) Counter() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// AdvanceCounter records one dispense. When the counter reaches freq it
// wraps to zero and wrapped is true.
func (s *State) AdvanceCounter(freq int) (count int, wrapped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	// >= keeps the cycle bounded if freq shrank after a config update
	if s.counter >= freq {
		s.counter = 0
		return 0, true
	}
	return s.counter, false
}

// RemoteConfig returns the active configuration, ok is false until one was
// accepted.
func (s *State) RemoteConfig() (model.RemoteConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remote == nil {
		return model.RemoteConfig{}, false
	}
	return *s.remote, true
}

// SetRemoteConfig replaces the whole configuration.
func (s *State) SetRemoteConfig(cfg model.RemoteConfig) {
	s.mu.Lock()
	s.remote = &cfg
	s.mu.Unlock()
}

// Snapshot is a consistent copy of the state for logging and inspection.
type Snapshot struct {
	Pending    model.Command
	Treats     int
	Counter    int
	Configured bool
}

// Snapshot returns a copy of the state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Pending:    s.pending,
		Treats:     s.treats,
		Counter:    s.counter,
		Configured: s.remote != nil,
	}
}
