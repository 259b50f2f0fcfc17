package events

import "encoding/json"

// Event name constants
const (
	CalibrationInstruction = "calibration.instruction"
	CalibrationSchedule    = "calibration.schedule"
	SensorSample           = "sensor.sample"
	SensorState            = "sensor.state"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// CalibrationInstructionEvent is published whenever the displayed
// instruction may have changed.
type CalibrationInstructionEvent struct {
	Action      string `json:"action"`
	Phase       string `json:"phase"`
	Instruction string `json:"instruction"`
	Index       int    `json:"index"`
	Total       int    `json:"total"`
	HasMore     bool   `json:"hasMore"`
	Active      bool   `json:"active"`
	Ts          int64  `json:"ts"`
}

// CalibrationScheduleEvent is the typed payload for calibration.schedule.
type CalibrationScheduleEvent struct {
	Message string `json:"message"`
	Ts      int64  `json:"ts"`
}

// SensorSampleEvent carries one sample of both channels.
type SensorSampleEvent struct {
	X         int     `json:"x"`
	Sensor0   float64 `json:"sensor0"`
	Sensor1   float64 `json:"sensor1"`
	Simulated bool    `json:"simulated"`
	Ts        int64   `json:"ts"`
}

// SensorStateEvent is published on connect, disconnect and read failures.
type SensorStateEvent struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
	Message   string `json:"message,omitempty"`
	Ts        int64  `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.CalibrationInstructionEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.Phase, payload.Instruction)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
