package calibration

import (
	"strings"
	"time"
)

// Phase defines phases for hand calibration.
type Phase string

const (
	// PhaseNone is the zero value, held before any report was applied.
	PhaseNone            Phase = ""
	PhaseInitial         Phase = "Initial"
	PhaseGripCalibration Phase = "GripCalibration"
	PhaseCompleted       Phase = "Completed"
	PhaseFailed          Phase = "Failed"
	// PhaseUnknown is used for any tag we do not recognize.
	PhaseUnknown Phase = "Unknown"
)

// Phases lists every decodable phase in calibration order.
var Phases = []Phase{
	PhaseInitial,
	PhaseGripCalibration,
	PhaseCompleted,
	PhaseFailed,
	PhaseUnknown,
}

// ParsePhase maps a phase tag to a Phase. Both the back-end spelling
// (GRIP_CALIBRATION) and the Phase spelling (GripCalibration) are accepted,
// case-insensitively. It never fails: unrecognized tags yield PhaseUnknown.
func ParsePhase(tag string) Phase {
	for _, p := range Phases {
		if strings.EqualFold(tag, p.Tag()) || strings.EqualFold(tag, string(p)) {
			return p
		}
	}
	return PhaseUnknown
}

// Tag returns the back-end spelling of p, e.g. GRIP_CALIBRATION.
func (p Phase) Tag() string {
	switch p {
	case PhaseInitial:
		return "INITIAL"
	case PhaseGripCalibration:
		return "GRIP_CALIBRATION"
	case PhaseCompleted:
		return "COMPLETED"
	case PhaseFailed:
		return "FAILED"
	case PhaseUnknown:
		return "UNKNOWN"
	default:
		return ""
	}
}

func (p Phase) String() string {
	if p == PhaseNone {
		return "None"
	}
	return string(p)
}

// Action defines user actions for hand calibration.
type Action string

const (
	ActionStart  Action = "Start"
	ActionNext   Action = "Next"
	ActionFinish Action = "Finish"
	ActionReport Action = "Report"
	ActionReset  Action = "Reset"
)

// Status is a synthesized view model exposed via HTTP and used by the CLI and
// GUI. Instruction is always displayable, even when no report was applied.
// Index is zero-based; Total is the length of the active instruction set.
type Status struct {
	SessionID        string    `json:"sessionId,omitempty"`
	Phase            Phase     `json:"phase"`
	Instruction      string    `json:"instruction"`
	Index            int       `json:"index"`
	Total            int       `json:"total"`
	HasMore          bool      `json:"hasMore"`
	Active           bool      `json:"active"`
	ErrorInstruction string    `json:"errorInstruction"`
	StartedAt        time.Time `json:"startedAt"`
	ScheduledAt      time.Time `json:"scheduledAt"`
}
