package calibration

import (
	"errors"
	"testing"
)

func TestParsePhase(t *testing.T) {
	tests := []struct {
		tag  string
		want Phase
	}{
		{"INITIAL", PhaseInitial},
		{"Initial", PhaseInitial},
		{"GRIP_CALIBRATION", PhaseGripCalibration},
		{"GripCalibration", PhaseGripCalibration},
		{"grip_calibration", PhaseGripCalibration},
		{"gripcalibration", PhaseGripCalibration},
		{"COMPLETED", PhaseCompleted},
		{"failed", PhaseFailed},
		{"grip-calibration", PhaseUnknown},
		{"GRIP CALIBRATION", PhaseUnknown},
		{"GRIP_CALIB_RATION", PhaseUnknown},
		{"_COMPLETED_", PhaseUnknown},
		{" Failed ", PhaseUnknown},
		{"UNKNOWN", PhaseUnknown},
		{"WARMUP", PhaseUnknown},
		{"", PhaseUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			if got := ParsePhase(tt.tag); got != tt.want {
				t.Errorf("ParsePhase(%q) = %v, want %v", tt.tag, got, tt.want)
			}
		})
	}
}

func TestPhaseTagRoundTrip(t *testing.T) {
	for _, p := range Phases {
		if got := ParsePhase(p.Tag()); got != p {
			t.Errorf("ParsePhase(%q) = %v, want %v", p.Tag(), got, p)
		}
	}
	if PhaseNone.Tag() != "" {
		t.Errorf("PhaseNone should have no tag")
	}
}

func TestDecodeReport(t *testing.T) {
	r, err := DecodeReport([]byte(`{"calibration_state":"INITIAL","custom_instructions":["Extra step"],"error_message":"sensor 1 noisy"}`))
	if err != nil {
		t.Fatalf("DecodeReport failed: %v", err)
	}
	if r.Phase() != PhaseInitial {
		t.Errorf("phase = %v, want %v", r.Phase(), PhaseInitial)
	}
	if len(r.CustomInstructions) != 1 || r.CustomInstructions[0] != "Extra step" {
		t.Errorf("unexpected custom instructions: %v", r.CustomInstructions)
	}
	if r.ErrorMessage == nil || *r.ErrorMessage != "sensor 1 noisy" {
		t.Errorf("unexpected error message: %v", r.ErrorMessage)
	}
}

func TestDecodeReportPhaseAlias(t *testing.T) {
	r, err := DecodeReport([]byte(`{"phase":"GripCalibration"}`))
	if err != nil {
		t.Fatalf("DecodeReport failed: %v", err)
	}
	if r.Phase() != PhaseGripCalibration {
		t.Errorf("phase = %v, want %v", r.Phase(), PhaseGripCalibration)
	}
}

func TestDecodeReportMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", `calibration_state=INITIAL`},
		{"array", `["INITIAL"]`},
		{"null", `null`},
		{"missing phase", `{"custom_instructions":["a"]}`},
		{"null phase", `{"calibration_state":null}`},
		{"wrong phase type", `{"calibration_state":3}`},
		{"wrong instruction type", `{"calibration_state":"INITIAL","custom_instructions":[1,2]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeReport([]byte(tt.in))
			if !errors.Is(err, ErrMalformedReport) {
				t.Fatalf("expected ErrMalformedReport, got %v", err)
			}
		})
	}
}

func TestDecodeReportKeepsErrorMessageWithoutPhase(t *testing.T) {
	r, err := DecodeReport([]byte(`{"error_message":"lost contact"}`))
	if !errors.Is(err, ErrMalformedReport) {
		t.Fatalf("expected ErrMalformedReport, got %v", err)
	}
	if r.ErrorMessage == nil || *r.ErrorMessage != "lost contact" {
		t.Fatalf("error message should survive a missing phase, got %v", r.ErrorMessage)
	}
}

func TestDecodeReportBlankPhase(t *testing.T) {
	for _, in := range []string{`{"calibration_state":""}`, `{"calibration_state":"  "}`, `{"phase":""}`} {
		r, err := DecodeReport([]byte(in))
		if err != nil {
			t.Fatalf("DecodeReport(%s) failed: %v", in, err)
		}
		if r.Phase() != PhaseUnknown {
			t.Errorf("DecodeReport(%s) phase = %v, want %v", in, r.Phase(), PhaseUnknown)
		}
	}
}
