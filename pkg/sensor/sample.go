// Package sensor reads the two analog channels of the hand controller and
// keeps a rolling window of samples for charting.
package sensor

import (
	"math/rand/v2"
)

// Sample is one reading of both channels.
type Sample struct {
	Sensor0 float64 `json:"sensor0"`
	Sensor1 float64 `json:"sensor1"`
}

// Parser derives a Sample from one chunk of raw bytes read off the device.
type Parser interface {
	Parse(b []byte) (Sample, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(b []byte) (Sample, error)

func (f ParserFunc) Parse(b []byte) (Sample, error) { return f(b) }

// Channel ranges used by RandomParser and the simulator.
const (
	Sensor0Max = 10.0
	Sensor1Max = 15.0
)

// RandomParser ignores the payload and returns uniformly distributed values.
// The firmware framing is not settled yet; this keeps the chart moving so the
// transport can be exercised end to end.
type RandomParser struct{}

func (RandomParser) Parse(_ []byte) (Sample, error) {
	return randomSample(), nil
}

func randomSample() Sample {
	return Sample{
		Sensor0: rand.Float64() * Sensor0Max,
		Sensor1: rand.Float64() * Sensor1Max,
	}
}
