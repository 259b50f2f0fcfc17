package config

import (
	"time"

	"github.com/sirupsen/logrus"
)

type Config interface {
	Language() string
	DeviceAddress() string
	RFCOMMChannel() uint8
	MaxDataPoints() int
	SimulateSensor() bool
	SimulationInterval() time.Duration
	ResetDelay() time.Duration
	CalibrationCron() string
	AllowNonRootAccess() bool

	SetLanguage(string)
	SetDeviceAddress(string)
	SetRFCOMMChannel(uint8)
	SetMaxDataPoints(int)
	SetSimulateSensor(bool)
	SetCalibrationCron(string)
	SetAllowNonRootAccess(bool)

	LogrusFields() logrus.Fields

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
