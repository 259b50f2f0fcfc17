package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedReport is returned by DecodeReport when the payload can not be
// turned into a Report.
var ErrMalformedReport = errors.New("malformed phase report")

// Report is a calibration phase report as produced by the back end.
//
// ErrorMessage is a pointer so an explicit empty message can be told apart
// from an absent one.
type Report struct {
	State              string   `json:"calibration_state"`
	CustomInstructions []string `json:"custom_instructions,omitempty"`
	ErrorMessage       *string  `json:"error_message,omitempty"`
}

// NewReport returns a report for p without extra instructions.
func NewReport(p Phase) Report {
	return Report{State: p.Tag()}
}

// Phase decodes the phase tag of r.
func (r Report) Phase() Phase {
	return ParsePhase(r.State)
}

type rawReport struct {
	State              *string  `json:"calibration_state"`
	Phase              *string  `json:"phase"`
	CustomInstructions []string `json:"custom_instructions"`
	ErrorMessage       *string  `json:"error_message"`
}

// DecodeReport parses a JSON phase report. The phase tag may be given as
// calibration_state or phase.
//
// When the phase tag is absent or null the returned error wraps
// ErrMalformedReport, but the returned Report still carries any error message
// that was present. A present but blank tag decodes as PhaseUnknown.
func DecodeReport(b []byte) (Report, error) {
	var raw rawReport
	if err := json.Unmarshal(b, &raw); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}

	r := Report{
		CustomInstructions: raw.CustomInstructions,
		ErrorMessage:       raw.ErrorMessage,
	}

	state := raw.State
	if state == nil {
		state = raw.Phase
	}
	if state == nil {
		return r, fmt.Errorf("%w: missing calibration_state", ErrMalformedReport)
	}
	r.State = *state

	return r, nil
}
