package sensor

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/hastakriti/handctl/pkg/events"
)

func TestSeriesRollingWindow(t *testing.T) {
	s := NewSeries(3)
	for i := 0; i < 5; i++ {
		s.Append(float64(i))
	}

	pts := s.Points()
	if len(pts) != 3 {
		t.Fatalf("len = %d, want 3", len(pts))
	}
	for i, p := range pts {
		if p.X != i+2 || p.Y != float64(i+2) {
			t.Errorf("point %d = %+v", i, p)
		}
	}

	s.Resize(2)
	pts = s.Points()
	if len(pts) != 2 || pts[0].X != 3 {
		t.Errorf("after Resize: %+v", pts)
	}
	if p := s.Append(9); p.X != 5 {
		t.Errorf("X should keep increasing after Resize, got %d", p.X)
	}
}

func TestRandomParserRanges(t *testing.T) {
	for i := 0; i < 100; i++ {
		s, err := RandomParser{}.Parse(nil)
		if err != nil {
			t.Fatal(err)
		}
		if s.Sensor0 < 0 || s.Sensor0 >= Sensor0Max || s.Sensor1 < 0 || s.Sensor1 >= Sensor1Max {
			t.Fatalf("sample out of range: %+v", s)
		}
	}
}

func TestParseBDAddr(t *testing.T) {
	got, err := parseBDAddr("00:11:22:33:44:55")
	if err != nil {
		t.Fatal(err)
	}
	want := [6]byte{0x55, 0x44, 0x33, 0x22, 0x11, 0x00}
	if got != want {
		t.Errorf("parseBDAddr = %x, want %x", got, want)
	}

	for _, bad := range []string{"", "nope", "00:11:22:33:44:55:66:77"} {
		if _, err := parseBDAddr(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(name string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, name)
}

func (p *recordingPublisher) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == name {
			n++
		}
	}
	return n
}

func pipeDialer(r io.ReadCloser) Dialer {
	return DialerFunc(func(string, uint8) (io.ReadCloser, error) { return r, nil })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestStreamReadLoop(t *testing.T) {
	pr, pw := io.Pipe()
	pub := &recordingPublisher{}

	var n float64
	s := NewStream(Options{
		MaxDataPoints: 10,
		Dialer:        pipeDialer(pr),
		Publisher:     pub,
		Parser: ParserFunc(func(b []byte) (Sample, error) {
			n++
			return Sample{Sensor0: n, Sensor1: float64(len(b))}, nil
		}),
	})
	defer s.Close()

	if err := s.Connect("00:11:22:33:44:55", 1); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := s.Connect("00:11:22:33:44:55", 1); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("second Connect = %v, want ErrAlreadyConnected", err)
	}

	for _, chunk := range []string{"abc", "defg"} {
		if _, err := pw.Write([]byte(chunk)); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, func() bool { return s.Status().Samples == 2 })

	got := s.Samples()
	if len(got.Sensor0) != 2 || got.Sensor0[1].Y != 2 || got.Sensor1[1].Y != 4 {
		t.Errorf("unexpected samples: %+v", got)
	}

	st := s.Status()
	if !st.Connected || st.Address != "00:11:22:33:44:55" || st.Service != SerialPortUUID.String() {
		t.Errorf("unexpected status: %+v", st)
	}

	// The device going away ends the loop and marks the stream disconnected.
	_ = pw.CloseWithError(errors.New("link lost"))
	waitFor(t, func() bool { return !s.Status().Connected })
	if s.Status().LastError == "" {
		t.Errorf("LastError should be set after a read failure")
	}
	if pub.count(events.SensorState) != 2 {
		t.Errorf("expected connect and disconnect state events, got %v", pub.events)
	}
	if pub.count(events.SensorSample) != 2 {
		t.Errorf("expected 2 sample events, got %d", pub.count(events.SensorSample))
	}
}

func TestStreamDisconnect(t *testing.T) {
	pr, _ := io.Pipe()
	s := NewStream(Options{Dialer: pipeDialer(pr)})

	if err := s.Disconnect(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Disconnect() = %v, want ErrNotConnected", err)
	}
	if err := s.Connect("00:11:22:33:44:55", 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Disconnect(); err != nil {
		t.Errorf("Disconnect() = %v", err)
	}
	s.Close()
	if s.Status().Connected {
		t.Errorf("stream should be disconnected")
	}
}

func TestStreamConnectErrors(t *testing.T) {
	s := NewStream(Options{
		Dialer: DialerFunc(func(string, uint8) (io.ReadCloser, error) {
			return nil, errors.New("host is down")
		}),
	})
	defer s.Close()

	if err := s.Connect("", 1); !errors.Is(err, ErrNoAddress) {
		t.Errorf("Connect(\"\") = %v, want ErrNoAddress", err)
	}
	if err := s.Connect("00:11:22:33:44:55", 1); err == nil {
		t.Errorf("expected dial error")
	}
	if got := s.Status().LastError; got != "host is down" {
		t.Errorf("LastError = %q", got)
	}
}

func TestStreamSimulationStopsOnConnect(t *testing.T) {
	pr, _ := io.Pipe()
	s := NewStream(Options{
		MaxDataPoints:      5,
		Simulate:           true,
		SimulationInterval: 5 * time.Millisecond,
		Dialer:             pipeDialer(pr),
	})
	defer s.Close()

	s.StartSimulation(context.Background())
	waitFor(t, func() bool { return s.Status().Samples >= 3 })
	if !s.Status().Simulating {
		t.Fatalf("expected simulation to be running")
	}
	if got := len(s.Samples().Sensor0); got > 5 {
		t.Errorf("series exceeded window: %d", got)
	}

	if err := s.Connect("00:11:22:33:44:55", 1); err != nil {
		t.Fatal(err)
	}
	if s.Status().Simulating {
		t.Errorf("simulation should stop once connected")
	}

	// Starting again while connected is a no-op.
	s.StartSimulation(context.Background())
	if s.Status().Simulating {
		t.Errorf("simulation should not start while connected")
	}
}

func TestStreamSimulationDisabled(t *testing.T) {
	s := NewStream(Options{Simulate: false, SimulationInterval: time.Millisecond})
	defer s.Close()

	s.StartSimulation(context.Background())
	if s.Status().Simulating {
		t.Errorf("simulation should stay off when disabled")
	}
}

func TestStreamReconfigure(t *testing.T) {
	s := NewStream(Options{Simulate: false, SimulationInterval: time.Hour})
	defer s.Close()
	ctx := context.Background()

	s.StartSimulation(ctx)
	s.Reconfigure(ctx, true, 5*time.Millisecond)
	if !s.Status().Simulating {
		t.Fatalf("enabling simulation should start the simulator")
	}
	// The old hour-long interval would never tick.
	waitFor(t, func() bool { return s.Status().Samples >= 2 })

	s.Reconfigure(ctx, false, 5*time.Millisecond)
	if s.Status().Simulating {
		t.Fatalf("disabling simulation should stop the simulator")
	}
	s.Reconfigure(ctx, true, 0)
	if !s.Status().Simulating {
		t.Errorf("re-enabling simulation should restart the simulator")
	}
}

func TestDevicesFromObjects(t *testing.T) {
	device := func(addr, alias string, paired bool, uuids ...string) map[string]map[string]dbus.Variant {
		return map[string]map[string]dbus.Variant{
			"org.bluez.Device1": {
				"Address": dbus.MakeVariant(addr),
				"Alias":   dbus.MakeVariant(alias),
				"Paired":  dbus.MakeVariant(paired),
				"UUIDs":   dbus.MakeVariant(uuids),
			},
		}
	}

	objects := managedObjects{
		"/org/bluez/hci0": {
			"org.bluez.Adapter1": {"Address": dbus.MakeVariant("AA:AA:AA:AA:AA:AA")},
		},
		"/org/bluez/hci0/dev_11_11_11_11_11_11": device("11:11:11:11:11:11", "Headphones", true,
			"0000110b-0000-1000-8000-00805f9b34fb"),
		"/org/bluez/hci0/dev_22_22_22_22_22_22": device("22:22:22:22:22:22", "Glove", true,
			"00001101-0000-1000-8000-00805f9b34fb"),
	}

	got := devicesFromObjects(objects)
	if len(got) != 2 {
		t.Fatalf("expected 2 devices, got %d: %+v", len(got), got)
	}
	if got[0].Address != "22:22:22:22:22:22" || !got[0].SerialPort || got[0].Name != "Glove" {
		t.Errorf("serial port device should come first, got %+v", got[0])
	}
	if got[1].SerialPort {
		t.Errorf("headphones do not offer SPP: %+v", got[1])
	}
}

func TestStreamSetMaxDataPoints(t *testing.T) {
	s := NewStream(Options{MaxDataPoints: 5})
	for i := 0; i < 5; i++ {
		s.record(Sample{Sensor0: float64(i), Sensor1: float64(i)}, true)
	}

	s.SetMaxDataPoints(2)

	got := s.Samples()
	if len(got.Sensor0) != 2 || got.Sensor0[0].X != 3 {
		t.Fatalf("expected the two newest points, got %+v", got.Sensor0)
	}
	if st := s.Status(); st.MaxDataPoints != 2 {
		t.Errorf("status should report the new window, got %d", st.MaxDataPoints)
	}
}
