// Package instruction turns calibration phase reports into a steppable list
// of human-readable instructions.
package instruction

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hastakriti/handctl/pkg/calibration"
)

// Sequencer holds the active instruction set and a cursor into it.
//
// A Sequencer is safe for concurrent use. Every report replaces the phase,
// the instruction set and the cursor under a single lock, so readers never
// see a new set paired with an old cursor.
type Sequencer struct {
	mu sync.RWMutex

	phase  calibration.Phase
	steps  []string
	loaded bool // a report (valid or not) has been applied
	cursor int

	errorInstruction *string
}

// NewSequencer returns an empty Sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Snapshot is a consistent view of the sequencer state.
type Snapshot struct {
	Phase            calibration.Phase
	Instruction      string
	Index            int
	Total            int
	HasMore          bool
	ErrorInstruction string
}

// Apply replaces the active instruction set with the one built for r.
func (s *Sequencer) Apply(r calibration.Report) {
	phase := r.Phase()
	steps := buildSteps(phase, r.CustomInstructions)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.phase = phase
	s.steps = steps
	s.loaded = true
	s.cursor = 0
	if r.ErrorMessage != nil {
		msg := *r.ErrorMessage
		s.errorInstruction = &msg
	}

	logrus.WithFields(logrus.Fields{
		"phase": phase,
		"steps": len(steps),
	}).Debug("instruction set replaced")
}

// ApplyJSON decodes a raw phase report and applies it. A report that can not
// be decoded is not an error for the caller: the instruction set is replaced
// with a single DecodeFailure instruction and the active phase is kept.
func (s *Sequencer) ApplyJSON(b []byte) {
	r, err := calibration.DecodeReport(b)
	if err == nil {
		s.Apply(r)
		return
	}

	logrus.WithError(err).Warn("failed to decode phase report")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.steps = []string{DecodeFailure}
	s.loaded = true
	s.cursor = 0
	if r.ErrorMessage != nil {
		msg := *r.ErrorMessage
		s.errorInstruction = &msg
	}
}

// Current returns the instruction at the cursor.
func (s *Sequencer) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.currentLocked()
}

func (s *Sequencer) currentLocked() string {
	if len(s.steps) == 0 {
		if !s.loaded {
			return DefaultInstruction
		}
		return NoInstructions
	}
	if s.cursor < len(s.steps) {
		return s.steps[s.cursor]
	}
	return CompletedInstruction
}

// HasMore reports whether Advance would move the cursor.
func (s *Sequencer) HasMore() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.hasMoreLocked()
}

func (s *Sequencer) hasMoreLocked() bool {
	return len(s.steps) > 0 && s.cursor < len(s.steps)-1
}

// Advance moves the cursor to the next instruction. At the last instruction
// it does nothing and returns false.
func (s *Sequencer) Advance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasMoreLocked() {
		return false
	}
	s.cursor++
	return true
}

// Reset moves the cursor back to the first instruction.
func (s *Sequencer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursor = 0
}

// ErrorInstruction returns the last reported error message.
func (s *Sequencer) ErrorInstruction() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.errorLocked()
}

func (s *Sequencer) errorLocked() string {
	if s.errorInstruction == nil {
		return DefaultError
	}
	return *s.errorInstruction
}

// Phase returns the last successfully decoded phase, or PhaseNone.
func (s *Sequencer) Phase() calibration.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.phase
}

// Snapshot returns the current state in one read.
func (s *Sequencer) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Phase:            s.phase,
		Instruction:      s.currentLocked(),
		Index:            s.cursor,
		Total:            len(s.steps),
		HasMore:          s.hasMoreLocked(),
		ErrorInstruction: s.errorLocked(),
	}
}
