package scheduler

import "fmt"

// Mode is the scheduler's single active behavior category at any instant.
// idle is both the initial state and the only state every other state must
// return to; all non-idle modes are mutually exclusive leaves reached only
// from idle.
type Mode int

const (
	ModeIdle Mode = iota
	ModeAwareness
	ModeResponding
	ModeExpressing
	ModeReflecting
	ModeImproving
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeAwareness:
		return "awareness"
	case ModeResponding:
		return "responding"
	case ModeExpressing:
		return "expressing"
	case ModeReflecting:
		return "reflecting"
	case ModeImproving:
		return "improving"
	default:
		return fmt.Sprintf("unknown(%d)", m)
	}
}

// tryEnter attempts the idle -> m transition. Returns false when another
// mode is active: the caller's cycle is skipped and retried at its next
// tick. This is the whole mutual-exclusion mechanism; no loop ever waits
// for another.
func (s *Scheduler) tryEnter(m Mode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.state.Mode != ModeIdle {
		return false
	}
	s.state.Mode = m
	return true
}

// shift moves between non-idle modes within one owning cycle (awareness
// handing off to responding, reflection to improving). The caller must
// already hold a non-idle mode.
func (s *Scheduler) shift(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Mode = m
}

// exitMode restores idle. Deferred by every cycle body so the mode is
// released regardless of success or failure.
func (s *Scheduler) exitMode() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Mode = ModeIdle
}

// CurrentMode returns the mode at this instant.
func (s *Scheduler) CurrentMode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Mode
}
