package daemon

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hastakriti/handctl/pkg/calibration"
	"github.com/hastakriti/handctl/pkg/events"
	"github.com/hastakriti/handctl/pkg/instruction"
)

var ErrCalibrationInProgress = &calibrationError{"calibration already in progress"}
var ErrCalibrationNotRunning = &calibrationError{"calibration not running"}

type calibrationError struct{ msg string }

func (e *calibrationError) Error() string { return e.msg }

// Controller drives one calibration session at a time: it owns the
// instruction sequencer, maps "tap to continue" onto HasMore/Advance and asks
// the backend for the next phase when the current one is exhausted.
//
// Once a terminal phase is applied the session stays visible for resetDelay
// and then becomes inactive.
type Controller struct {
	seq        *instruction.Sequencer
	backend    Backend
	pub        events.Publisher
	resetDelay time.Duration

	mu         sync.Mutex
	active     bool
	sessionID  string
	startedAt  time.Time
	resetTimer *time.Timer
	// resetGen is bumped whenever resetTimer is stopped so that a timer
	// already firing can tell it was cancelled.
	resetGen uint64

	// scheduledAt reports the next scheduled session, if any.
	scheduledAt func() time.Time
}

func NewController(seq *instruction.Sequencer, backend Backend, pub events.Publisher, resetDelay time.Duration) *Controller {
	if seq == nil {
		seq = instruction.NewSequencer()
	}
	if backend == nil {
		backend = SimulatedBackend{}
	}
	return &Controller{
		seq:        seq,
		backend:    backend,
		pub:        pub,
		resetDelay: resetDelay,
	}
}

// Start begins a new session from the first phase. A running session is
// restarted.
func (c *Controller) Start() calibration.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopResetTimerLocked()
	c.active = true
	c.sessionID = uuid.NewString()
	c.startedAt = time.Now()

	c.seq.Apply(c.backend.NextReport(calibration.PhaseNone))

	logrus.WithFields(logrus.Fields{
		"session": c.sessionID,
		"phase":   c.seq.Phase(),
	}).Info("calibration started")

	return c.publishLocked(calibration.ActionStart)
}

// StartIfIdle is Start for unattended callers such as the scheduler.
func (c *Controller) StartIfIdle() error {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	if active {
		return ErrCalibrationInProgress
	}
	c.Start()
	return nil
}

// Next handles the user acknowledging the current instruction.
func (c *Controller) Next() (calibration.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return c.statusLocked(), ErrCalibrationNotRunning
	}

	if c.seq.HasMore() {
		c.seq.Advance()
		return c.publishLocked(calibration.ActionNext), nil
	}

	phase := c.seq.Phase()
	if terminal(phase) {
		// Already finishing; the reset timer ends the session.
		return c.statusLocked(), nil
	}

	r := c.backend.NextReport(phase)
	c.seq.Apply(r)
	logrus.WithFields(logrus.Fields{
		"session": c.sessionID,
		"from":    phase,
		"to":      c.seq.Phase(),
	}).Info("calibration phase changed")

	action := calibration.ActionNext
	if terminal(c.seq.Phase()) {
		action = calibration.ActionFinish
		c.scheduleResetLocked()
	}
	return c.publishLocked(action), nil
}

// Submit applies a phase report received from outside. Malformed reports
// are absorbed by the sequencer.
func (c *Controller) Submit(raw []byte) calibration.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopResetTimerLocked()
	if !c.active {
		c.active = true
		c.sessionID = uuid.NewString()
		c.startedAt = time.Now()
	}

	c.seq.ApplyJSON(raw)
	if terminal(c.seq.Phase()) {
		c.scheduleResetLocked()
	}

	return c.publishLocked(calibration.ActionReport)
}

// Reset ends the session immediately.
func (c *Controller) Reset() calibration.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopResetTimerLocked()
	c.resetLocked()
	return c.publishLocked(calibration.ActionReset)
}

// Status returns the current view model.
func (c *Controller) Status() calibration.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.statusLocked()
}

// ErrorInstruction returns the last error message reported by the backend.
func (c *Controller) ErrorInstruction() string {
	return c.seq.ErrorInstruction()
}

func (c *Controller) statusLocked() calibration.Status {
	snap := c.seq.Snapshot()
	st := calibration.Status{
		SessionID:        c.sessionID,
		Phase:            snap.Phase,
		Instruction:      snap.Instruction,
		Index:            snap.Index,
		Total:            snap.Total,
		HasMore:          snap.HasMore,
		Active:           c.active,
		ErrorInstruction: snap.ErrorInstruction,
		StartedAt:        c.startedAt,
	}
	if c.scheduledAt != nil {
		st.ScheduledAt = c.scheduledAt()
	}
	return st
}

func (c *Controller) publishLocked(action calibration.Action) calibration.Status {
	st := c.statusLocked()
	if c.pub != nil {
		c.pub.Publish(events.CalibrationInstruction, events.CalibrationInstructionEvent{
			Action:      string(action),
			Phase:       string(st.Phase),
			Instruction: st.Instruction,
			Index:       st.Index,
			Total:       st.Total,
			HasMore:     st.HasMore,
			Active:      st.Active,
			Ts:          time.Now().Unix(),
		})
	}
	return st
}

func (c *Controller) scheduleResetLocked() {
	c.stopResetTimerLocked()
	if c.resetDelay <= 0 {
		c.resetLocked()
		return
	}

	gen := c.resetGen
	c.resetTimer = time.AfterFunc(c.resetDelay, func() { c.expireReset(gen) })
}

// expireReset ends the session scheduled for reset at generation gen.
func (c *Controller) expireReset(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resetGen != gen || !c.active {
		return
	}
	c.resetTimer = nil
	c.resetLocked()
	c.publishLocked(calibration.ActionReset)
}

func (c *Controller) stopResetTimerLocked() {
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
	c.resetGen++
}

// SetResetDelay changes the delay used for sessions finishing from now on.
func (c *Controller) SetResetDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetDelay = d
}

func (c *Controller) resetLocked() {
	if c.active {
		logrus.WithFields(logrus.Fields{
			"session":  c.sessionID,
			"phase":    c.seq.Phase(),
			"duration": formatDuration(time.Since(c.startedAt)),
		}).Info("calibration session ended")
	}
	c.active = false
	c.seq.Reset()
}
