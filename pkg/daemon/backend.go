package daemon

import "github.com/hastakriti/handctl/pkg/calibration"

// Backend decides which phase follows once the user has gone through every
// instruction of the current one.
type Backend interface {
	NextReport(current calibration.Phase) calibration.Report
}

// SimulatedBackend stands in for the calibration service: it walks
// Initial -> GripCalibration -> Completed without any network round trip.
type SimulatedBackend struct{}

func (SimulatedBackend) NextReport(current calibration.Phase) calibration.Report {
	switch current {
	case calibration.PhaseNone:
		return calibration.NewReport(calibration.PhaseInitial)
	case calibration.PhaseInitial:
		return calibration.NewReport(calibration.PhaseGripCalibration)
	default:
		return calibration.NewReport(calibration.PhaseCompleted)
	}
}

// terminal phases end a session once their instructions were shown.
func terminal(p calibration.Phase) bool {
	return p == calibration.PhaseCompleted || p == calibration.PhaseFailed
}
