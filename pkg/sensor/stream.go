package sensor

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hastakriti/handctl/pkg/events"
)

const readBufferSize = 1024

var (
	ErrAlreadyConnected = errors.New("sensor already connected")
	ErrNotConnected     = errors.New("sensor not connected")
	ErrNoAddress        = errors.New("no device address configured")
)

// Options configures a Stream. Zero values fall back to sensible defaults.
type Options struct {
	MaxDataPoints      int
	Simulate           bool
	SimulationInterval time.Duration
	Parser             Parser
	Dialer             Dialer
	Publisher          events.Publisher
}

// Status describes the stream for the API.
type Status struct {
	Connected     bool   `json:"connected"`
	Address       string `json:"address,omitempty"`
	Channel       uint8  `json:"channel,omitempty"`
	Service       string `json:"service"`
	Simulating    bool   `json:"simulating"`
	Samples       uint64 `json:"samples"`
	MaxDataPoints int    `json:"maxDataPoints"`
	LastError     string `json:"lastError,omitempty"`
}

// Samples holds both chart series.
type Samples struct {
	Sensor0 []Point `json:"sensor0"`
	Sensor1 []Point `json:"sensor1"`
}

// Stream owns the device connection, the simulator and both series. Only one
// of the simulator and the read loop feeds the series at a time.
type Stream struct {
	opts Options

	series0 *Series
	series1 *Series

	mu         sync.Mutex
	conn       io.ReadCloser
	address    string
	channel    uint8
	lastErr    string
	samples    uint64
	simCancel  context.CancelFunc
	simulating bool

	wg sync.WaitGroup
}

func NewStream(opts Options) *Stream {
	if opts.MaxDataPoints <= 0 {
		opts.MaxDataPoints = 50
	}
	if opts.SimulationInterval <= 0 {
		opts.SimulationInterval = time.Second
	}
	if opts.Parser == nil {
		opts.Parser = RandomParser{}
	}
	if opts.Dialer == nil {
		opts.Dialer = RFCOMMDialer
	}

	return &Stream{
		opts:    opts,
		series0: NewSeries(opts.MaxDataPoints),
		series1: NewSeries(opts.MaxDataPoints),
	}
}

// StartSimulation feeds random samples until a device connects or ctx is
// done. It does nothing if simulation is disabled or a device is connected.
func (s *Stream) StartSimulation(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startSimulationLocked(ctx)
}

// startSimulationLocked must be called with s.mu held.
func (s *Stream) startSimulationLocked(ctx context.Context) {
	if !s.opts.Simulate || s.conn != nil || s.simulating {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.simCancel = cancel
	s.simulating = true

	interval := s.opts.SimulationInterval
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.simulate(ctx, interval)
	}()

	logrus.WithField("interval", interval).Info("sensor simulation started")
}

// Reconfigure applies new simulation settings. A running simulator is
// restarted when the interval changes and stopped when simulation is turned
// off. ctx bounds a simulator started here.
func (s *Stream) Reconfigure(ctx context.Context, simulate bool, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := interval != s.opts.SimulationInterval
	s.opts.Simulate = simulate
	s.opts.SimulationInterval = interval

	if s.simulating && (!simulate || changed) {
		s.stopSimulationLocked()
	}
	s.startSimulationLocked(ctx)
}

func (s *Stream) simulate(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.record(randomSample(), true)
		}
	}
}

// stopSimulationLocked must be called with s.mu held.
func (s *Stream) stopSimulationLocked() {
	if s.simCancel != nil {
		s.simCancel()
		s.simCancel = nil
	}
	if s.simulating {
		logrus.Info("sensor simulation stopped")
	}
	s.simulating = false
}

// Connect dials the device and starts the read loop. Simulated data stops
// once the connection is established.
func (s *Stream) Connect(address string, channel uint8) error {
	if address == "" {
		return ErrNoAddress
	}

	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.mu.Unlock()

	conn, err := s.opts.Dialer.Dial(address, channel)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		logrus.WithError(err).WithField("address", address).Error("failed to connect to sensor")
		return err
	}

	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		_ = conn.Close()
		return ErrAlreadyConnected
	}
	s.stopSimulationLocked()
	s.conn = conn
	s.address = address
	s.channel = channel
	s.lastErr = ""
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"address": address,
		"channel": channel,
	}).Info("connected to sensor")
	s.publishState(true, address, "Connected to "+address)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.readLoop(conn)
	}()

	return nil
}

func (s *Stream) readLoop(conn io.ReadCloser) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			sample, perr := s.opts.Parser.Parse(buf[:n])
			if perr != nil {
				logrus.WithError(perr).WithField("bytes", n).Debug("failed to parse sensor data")
			} else {
				s.record(sample, false)
			}
		}
		if err == nil {
			continue
		}

		s.mu.Lock()
		current := s.conn == conn
		if current {
			s.conn = nil
			s.lastErr = err.Error()
		}
		address := s.address
		s.mu.Unlock()

		// Disconnect already cleaned up and reported.
		if !current {
			return
		}

		_ = conn.Close()
		if errors.Is(err, io.EOF) {
			logrus.WithField("address", address).Info("sensor closed the connection")
		} else {
			logrus.WithError(err).WithField("address", address).Warn("sensor read failed")
		}
		s.publishState(false, address, "Data reading interrupted")
		return
	}
}

// Disconnect closes the device connection.
func (s *Stream) Disconnect() error {
	s.mu.Lock()
	conn := s.conn
	address := s.address
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	err := conn.Close()
	logrus.WithField("address", address).Info("disconnected from sensor")
	s.publishState(false, address, "Disconnected")
	return err
}

func (s *Stream) record(sample Sample, simulated bool) {
	p0 := s.series0.Append(sample.Sensor0)
	s.series1.Append(sample.Sensor1)

	s.mu.Lock()
	s.samples++
	s.mu.Unlock()

	if s.opts.Publisher != nil {
		s.opts.Publisher.Publish(events.SensorSample, events.SensorSampleEvent{
			X:         p0.X,
			Sensor0:   sample.Sensor0,
			Sensor1:   sample.Sensor1,
			Simulated: simulated,
			Ts:        time.Now().Unix(),
		})
	}
}

func (s *Stream) publishState(connected bool, address, msg string) {
	if s.opts.Publisher == nil {
		return
	}
	s.opts.Publisher.Publish(events.SensorState, events.SensorStateEvent{
		Connected: connected,
		Address:   address,
		Message:   msg,
		Ts:        time.Now().Unix(),
	})
}

// Status returns the current connection status.
func (s *Stream) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Connected:     s.conn != nil,
		Service:       SerialPortUUID.String(),
		Simulating:    s.simulating,
		Samples:       s.samples,
		MaxDataPoints: s.opts.MaxDataPoints,
		LastError:     s.lastErr,
	}
	if st.Connected {
		st.Address = s.address
		st.Channel = s.channel
	}
	return st
}

// Samples returns a copy of both series.
func (s *Stream) Samples() Samples {
	return Samples{
		Sensor0: s.series0.Points(),
		Sensor1: s.series1.Points(),
	}
}

// SetMaxDataPoints resizes both series windows.
func (s *Stream) SetMaxDataPoints(n int) {
	if n <= 0 {
		return
	}

	s.mu.Lock()
	s.opts.MaxDataPoints = n
	s.mu.Unlock()

	s.series0.Resize(n)
	s.series1.Resize(n)
}

// Close stops the simulator and the read loop and waits for them to exit.
func (s *Stream) Close() {
	s.mu.Lock()
	s.stopSimulationLocked()
	s.mu.Unlock()

	if err := s.Disconnect(); err != nil && !errors.Is(err, ErrNotConnected) {
		logrus.WithError(err).Warn("failed to close sensor connection")
	}

	s.wg.Wait()
}
