package daemon

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hastakriti/handctl/pkg/calibration"
	"github.com/hastakriti/handctl/pkg/events"
	"github.com/hastakriti/handctl/pkg/instruction"
)

type fakePublisher struct {
	mu      sync.Mutex
	actions []string
}

func (f *fakePublisher) Publish(name string, payload any) {
	if name != events.CalibrationInstruction {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, payload.(events.CalibrationInstructionEvent).Action)
}

func (f *fakePublisher) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.actions) == 0 {
		return ""
	}
	return f.actions[len(f.actions)-1]
}

// tapThrough presses "next" until the controller reaches want or gives up.
func tapThrough(t *testing.T, c *Controller, want calibration.Phase) calibration.Status {
	t.Helper()
	for i := 0; i < 20; i++ {
		st, err := c.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if st.Phase == want {
			return st
		}
	}
	t.Fatalf("never reached phase %s", want)
	return calibration.Status{}
}

// TestCalibrationFlow walks a full session through the simulated backend.
func TestCalibrationFlow(t *testing.T) {
	pub := &fakePublisher{}
	c := NewController(instruction.NewSequencer(), SimulatedBackend{}, pub, time.Hour)

	if _, err := c.Next(); !errors.Is(err, ErrCalibrationNotRunning) {
		t.Fatalf("Next before Start = %v, want ErrCalibrationNotRunning", err)
	}

	st := c.Start()
	if st.Phase != calibration.PhaseInitial || st.Instruction != "Relax your hand completely" || !st.Active {
		t.Fatalf("unexpected status after start: %+v", st)
	}
	if st.SessionID == "" || st.StartedAt.IsZero() {
		t.Fatalf("session should be stamped: %+v", st)
	}

	// Two taps walk the rest of Initial, the third asks the backend.
	c.Next()
	st, _ = c.Next()
	if st.Instruction != "Keep your hand in a neutral, relaxed position" || st.HasMore {
		t.Fatalf("unexpected status at end of Initial: %+v", st)
	}
	st, _ = c.Next()
	if st.Phase != calibration.PhaseGripCalibration || st.Index != 0 {
		t.Fatalf("expected GripCalibration at index 0, got %+v", st)
	}

	st = tapThrough(t, c, calibration.PhaseCompleted)
	if st.Instruction != "Hand calibration is now complete" || !st.Active {
		t.Fatalf("unexpected completed status: %+v", st)
	}
	if pub.last() != string(calibration.ActionFinish) {
		t.Errorf("last action = %q, want Finish", pub.last())
	}

	// Tapping through the terminal phase never asks the backend again.
	c.Next()
	st, _ = c.Next()
	if st.Phase != calibration.PhaseCompleted || st.Instruction != "Your device is ready for use" {
		t.Errorf("unexpected status after completion: %+v", st)
	}
}

func TestCalibrationResetAfterDelay(t *testing.T) {
	pub := &fakePublisher{}
	c := NewController(nil, nil, pub, 20*time.Millisecond)

	c.Start()
	tapThrough(t, c, calibration.PhaseCompleted)

	deadline := time.Now().Add(2 * time.Second)
	for c.Status().Active {
		if time.Now().After(deadline) {
			t.Fatalf("session should end after the reset delay")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if pub.last() != string(calibration.ActionReset) {
		t.Errorf("last action = %q, want Reset", pub.last())
	}
	if _, err := c.Next(); !errors.Is(err, ErrCalibrationNotRunning) {
		t.Errorf("Next after reset = %v, want ErrCalibrationNotRunning", err)
	}
}

func TestCalibrationRestartCancelsPendingReset(t *testing.T) {
	c := NewController(nil, nil, nil, 30*time.Millisecond)

	c.Start()
	tapThrough(t, c, calibration.PhaseCompleted)
	st := c.Start()

	time.Sleep(80 * time.Millisecond)
	if !c.Status().Active {
		t.Fatalf("a restarted session must not be ended by the old timer")
	}
	if c.Status().SessionID != st.SessionID {
		t.Fatalf("session id changed unexpectedly")
	}
}

// A reset timer that already fired but lost the race for the lock must not
// wipe a report submitted in the meantime.
func TestCalibrationStaleResetAfterSubmit(t *testing.T) {
	pub := &fakePublisher{}
	c := NewController(nil, nil, pub, time.Hour)

	c.Submit([]byte(`{"calibration_state":"FAILED"}`))
	c.mu.Lock()
	gen := c.resetGen
	c.mu.Unlock()

	st := c.Submit([]byte(`{"calibration_state":"GRIP_CALIBRATION"}`))
	c.Next()
	c.expireReset(gen)

	got := c.Status()
	if !got.Active || got.SessionID != st.SessionID {
		t.Fatalf("stale reset ended the session: %+v", got)
	}
	if got.Phase != calibration.PhaseGripCalibration || got.Index != 1 {
		t.Errorf("stale reset touched the sequencer: %+v", got)
	}
	if pub.last() == string(calibration.ActionReset) {
		t.Errorf("stale reset should not publish")
	}
}

func TestCalibrationSetResetDelay(t *testing.T) {
	c := NewController(nil, nil, nil, time.Hour)
	c.SetResetDelay(0)

	st := c.Submit([]byte(`{"calibration_state":"COMPLETED"}`))
	if st.Active {
		t.Errorf("session should end immediately after lowering the reset delay")
	}
}

func TestCalibrationZeroResetDelay(t *testing.T) {
	c := NewController(nil, nil, nil, 0)
	c.Start()

	st := tapThrough(t, c, calibration.PhaseCompleted)
	if st.Active {
		t.Errorf("session should end immediately with a zero reset delay")
	}
}

func TestCalibrationSubmit(t *testing.T) {
	c := NewController(nil, nil, nil, time.Hour)

	st := c.Submit([]byte(`{"calibration_state":"FAILED","error_message":"Sensor 1 disconnected"}`))
	if st.Phase != calibration.PhaseFailed || !st.Active {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.ErrorInstruction != "Sensor 1 disconnected" || c.ErrorInstruction() != "Sensor 1 disconnected" {
		t.Errorf("error instruction = %q", st.ErrorInstruction)
	}

	st = c.Submit([]byte(`not json`))
	if st.Instruction != instruction.DecodeFailure {
		t.Errorf("malformed report should show %q, got %q", instruction.DecodeFailure, st.Instruction)
	}
	if st.Phase != calibration.PhaseFailed {
		t.Errorf("phase should be kept after a malformed report, got %s", st.Phase)
	}
}

func TestCalibrationStartIfIdle(t *testing.T) {
	c := NewController(nil, nil, nil, time.Hour)

	if err := c.StartIfIdle(); err != nil {
		t.Fatalf("StartIfIdle failed: %v", err)
	}
	if err := c.StartIfIdle(); !errors.Is(err, ErrCalibrationInProgress) {
		t.Errorf("StartIfIdle = %v, want ErrCalibrationInProgress", err)
	}

	st := c.Reset()
	if st.Active || st.Index != 0 {
		t.Errorf("unexpected status after reset: %+v", st)
	}
}

func TestStatusBeforeStart(t *testing.T) {
	c := NewController(nil, nil, nil, time.Hour)
	st := c.Status()
	if st.Active || st.Phase != calibration.PhaseNone || st.Instruction != instruction.DefaultInstruction {
		t.Errorf("unexpected initial status: %+v", st)
	}
	if st.ErrorInstruction != instruction.DefaultError {
		t.Errorf("ErrorInstruction = %q", st.ErrorInstruction)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{5*time.Minute + 3*time.Second, "5m3s"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
