package instruction

import "github.com/hastakriti/handctl/pkg/calibration"

// Fixed strings shown when there is nothing better to show.
const (
	DefaultInstruction   = "Follow standard calibration procedure"
	NoInstructions       = "No instructions available"
	CompletedInstruction = "Calibration instructions completed"
	AwaitingInstruction  = "Awaiting calibration instructions"
	DecodeFailure        = "Error processing instructions"
	DefaultError         = "Unknown error occurred"
)

// buildSteps returns the instruction set for p followed by custom. The result
// is never empty.
func buildSteps(p calibration.Phase, custom []string) []string {
	steps := append(stepsFor(p), custom...)
	if len(steps) == 0 {
		return []string{AwaitingInstruction}
	}
	return steps
}

// stepsFor returns a fresh copy of the instruction table entry for p.
func stepsFor(p calibration.Phase) []string {
	switch p {
	case calibration.PhaseInitial:
		return []string{
			"Relax your hand completely",
			"Rest your hand on a flat surface",
			"Keep your hand in a neutral, relaxed position",
		}
	case calibration.PhaseGripCalibration:
		return []string{
			"Relax your hand",
			"Flex muscle for sensor 0 - fully extend your hand",
			"Relax your hand",
			"Flex muscle for sensor 1 - fully close your hand into a tight grip",
			"Relax your hand",
			"Repeat full open and close motions 3 times",
		}
	case calibration.PhaseCompleted:
		return []string{
			"Hand calibration is now complete",
			"Your device is ready for use",
		}
	case calibration.PhaseFailed:
		return []string{
			"Calibration process encountered an error",
			"Please restart the calibration",
			"Ensure your hand is clean and dry",
			"Check sensor connections",
		}
	case calibration.PhaseUnknown:
		return []string{AwaitingInstruction}
	default:
		return nil
	}
}
