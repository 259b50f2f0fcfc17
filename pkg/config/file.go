package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hastakriti/handctl/pkg/locale"
	"github.com/hastakriti/handctl/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		Language:      ptr.To(locale.Default),
		DeviceAddress: ptr.To(""),
		// Most SPP firmwares register the serial port service on channel 1.
		RFCOMMChannel:        ptr.To(uint8(1)),
		MaxDataPoints:        ptr.To(50),
		SimulateSensor:       ptr.To(true),
		SimulationIntervalMs: ptr.To(1000),
		ResetDelayMs:         ptr.To(2000),
		CalibrationCron:      ptr.To(""),
		AllowNonRootAccess:   ptr.To(false),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	Language             *string `json:"language,omitempty"`
	DeviceAddress        *string `json:"deviceAddress,omitempty"`
	RFCOMMChannel        *uint8  `json:"rfcommChannel,omitempty"`
	MaxDataPoints        *int    `json:"maxDataPoints,omitempty"`
	SimulateSensor       *bool   `json:"simulateSensor,omitempty"`
	SimulationIntervalMs *int    `json:"simulationIntervalMs,omitempty"`
	ResetDelayMs         *int    `json:"resetDelayMs,omitempty"`
	CalibrationCron      *string `json:"calibrationCron,omitempty"`
	AllowNonRootAccess   *bool   `json:"allowNonRootAccess,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		Language:             ptr.To(c.Language()),
		DeviceAddress:        ptr.To(c.DeviceAddress()),
		RFCOMMChannel:        ptr.To(c.RFCOMMChannel()),
		MaxDataPoints:        ptr.To(c.MaxDataPoints()),
		SimulateSensor:       ptr.To(c.SimulateSensor()),
		SimulationIntervalMs: ptr.To(int(c.SimulationInterval() / time.Millisecond)),
		ResetDelayMs:         ptr.To(int(c.ResetDelay() / time.Millisecond)),
		CalibrationCron:      ptr.To(c.CalibrationCron()),
		AllowNonRootAccess:   ptr.To(c.AllowNonRootAccess()),
	}

	return rawConfig, nil
}

// get reads one field under the read lock, falling back to the default.
func get[T any](f *File, field func(*RawFileConfig) *T) T {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if v := field(f.c); v != nil {
		return *v
	}
	return *field(defaultFileConfig)
}

// set writes one field under the write lock.
func set[T any](f *File, field func(*RawFileConfig) **T, v T) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	*field(f.c) = &v
}

func (f *File) Language() string {
	lang := get(f, func(c *RawFileConfig) *string { return c.Language })
	code, err := locale.Normalize(lang)
	if err != nil {
		logrus.WithError(err).Warnf("falling back to %s", locale.Default)
		return locale.Default
	}
	return code
}

func (f *File) DeviceAddress() string {
	return get(f, func(c *RawFileConfig) *string { return c.DeviceAddress })
}

func (f *File) RFCOMMChannel() uint8 {
	ch := get(f, func(c *RawFileConfig) *uint8 { return c.RFCOMMChannel })
	// Valid RFCOMM channels are 1-30.
	if ch < 1 || ch > 30 {
		return *defaultFileConfig.RFCOMMChannel
	}
	return ch
}

func (f *File) MaxDataPoints() int {
	n := get(f, func(c *RawFileConfig) *int { return c.MaxDataPoints })
	if n <= 0 {
		return *defaultFileConfig.MaxDataPoints
	}
	return n
}

func (f *File) SimulateSensor() bool {
	return get(f, func(c *RawFileConfig) *bool { return c.SimulateSensor })
}

func (f *File) SimulationInterval() time.Duration {
	ms := get(f, func(c *RawFileConfig) *int { return c.SimulationIntervalMs })
	if ms <= 0 {
		ms = *defaultFileConfig.SimulationIntervalMs
	}
	return time.Duration(ms) * time.Millisecond
}

func (f *File) ResetDelay() time.Duration {
	ms := get(f, func(c *RawFileConfig) *int { return c.ResetDelayMs })
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}

func (f *File) CalibrationCron() string {
	return get(f, func(c *RawFileConfig) *string { return c.CalibrationCron })
}

func (f *File) AllowNonRootAccess() bool {
	return get(f, func(c *RawFileConfig) *bool { return c.AllowNonRootAccess })
}

func (f *File) SetLanguage(code string) {
	set(f, func(c *RawFileConfig) **string { return &c.Language }, code)
}

func (f *File) SetDeviceAddress(addr string) {
	set(f, func(c *RawFileConfig) **string { return &c.DeviceAddress }, addr)
}

func (f *File) SetRFCOMMChannel(ch uint8) {
	if ch < 1 || ch > 30 {
		panic("rfcomm channel must be between 1 and 30")
	}
	set(f, func(c *RawFileConfig) **uint8 { return &c.RFCOMMChannel }, ch)
}

func (f *File) SetMaxDataPoints(n int) {
	if n <= 0 {
		panic("max data points must be positive")
	}
	set(f, func(c *RawFileConfig) **int { return &c.MaxDataPoints }, n)
}

func (f *File) SetSimulateSensor(b bool) {
	set(f, func(c *RawFileConfig) **bool { return &c.SimulateSensor }, b)
}

func (f *File) SetCalibrationCron(expr string) {
	set(f, func(c *RawFileConfig) **string { return &c.CalibrationCron }, expr)
}

func (f *File) SetAllowNonRootAccess(b bool) {
	set(f, func(c *RawFileConfig) **bool { return &c.AllowNonRootAccess }, b)
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"language":           f.Language(),
		"deviceAddress":      f.DeviceAddress(),
		"rfcommChannel":      f.RFCOMMChannel(),
		"maxDataPoints":      f.MaxDataPoints(),
		"simulateSensor":     f.SimulateSensor(),
		"simulationInterval": f.SimulationInterval(),
		"resetDelay":         f.ResetDelay(),
		"calibrationCron":    f.CalibrationCron(),
		"allowNonRootAccess": f.AllowNonRootAccess(),
	}
}
