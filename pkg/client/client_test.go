package client

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hastakriti/handctl/pkg/calibration"
	"github.com/hastakriti/handctl/pkg/config"
	"github.com/hastakriti/handctl/pkg/daemon"
	"github.com/hastakriti/handctl/pkg/events"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	dir, err := os.MkdirTemp("", "handctl")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	sock := filepath.Join(dir, "d.sock")
	l, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatal(err)
	}

	conf := config.NewFileFromConfig(nil, filepath.Join(dir, "handctl.json"))
	srv := &http.Server{Handler: daemon.New(conf, daemon.Options{}).Router()}
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })

	return NewClient(sock)
}

func TestClientCalibration(t *testing.T) {
	c := newTestClient(t)

	st, err := c.StartCalibration()
	if err != nil {
		t.Fatal(err)
	}
	if st.Phase != calibration.PhaseInitial || st.Instruction != "Relax your hand completely" {
		t.Fatalf("unexpected status: %+v", st)
	}

	st, err = c.NextInstruction()
	if err != nil {
		t.Fatal(err)
	}
	if st.Index != 1 {
		t.Errorf("expected index 1, got %d", st.Index)
	}

	st, err = c.SubmitReport([]byte(`{"calibration_state":"FAILED","error_message":"Sensor 1 not detected"}`))
	if err != nil {
		t.Fatal(err)
	}
	if st.Phase != calibration.PhaseFailed {
		t.Errorf("expected Failed, got %s", st.Phase)
	}

	msg, err := c.GetErrorInstruction()
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Sensor 1 not detected" {
		t.Errorf("unexpected error instruction %q", msg)
	}
}

func TestClientLanguage(t *testing.T) {
	c := newTestClient(t)

	if _, err := c.SetLanguage("ta"); err != nil {
		t.Fatal(err)
	}
	code, err := c.GetLanguage()
	if err != nil {
		t.Fatal(err)
	}
	if code != "ta" {
		t.Errorf("expected ta, got %q", code)
	}

	langs, err := c.GetLanguages()
	if err != nil {
		t.Fatal(err)
	}
	if len(langs) != 5 {
		t.Errorf("expected 5 languages, got %d", len(langs))
	}

	if _, err := c.SetLanguage("xx"); err == nil {
		t.Error("expected error for unsupported language")
	}
}

func TestClientErrors(t *testing.T) {
	c := newTestClient(t)
	_, err := c.Get("/no-such-path")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err != nil && err.Error() != "GET /no-such-path: endpoint not found on handctl daemon" {
		t.Errorf("unexpected message: %v", err)
	}

	missing := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	_, err = missing.GetVersion()
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Errorf("expected ErrDaemonNotRunning, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "handctl daemon is not running") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestSubscribeEvents(t *testing.T) {
	c := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := c.SubscribeEvents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.StartCalibration(); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatal("event stream closed")
			}
			if ev.Name != events.CalibrationInstruction {
				continue
			}
			p, err := events.DecodeAs[events.CalibrationInstructionEvent](ev)
			if err != nil {
				t.Fatal(err)
			}
			if p.Phase != string(calibration.PhaseInitial) {
				t.Errorf("unexpected phase %q", p.Phase)
			}
			return
		case <-timeout:
			t.Fatal("timed out waiting for calibration event")
		}
	}
}

func TestReadEvents(t *testing.T) {
	stream := "event:sensor.state\ndata:{\"connected\":true}\n\n" +
		": comment\n\n" +
		"event: calibration.schedule\ndata: {\"message\":\"a\"}\n\n"

	var got []events.Event
	for ev := range readEvents(bufio.NewScanner(strings.NewReader(stream))) {
		got = append(got, ev)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Name != events.SensorState || string(got[0].Data) != `{"connected":true}` {
		t.Errorf("unexpected first event: %s %s", got[0].Name, got[0].Data)
	}
	if got[1].Name != events.CalibrationSchedule || string(got[1].Data) != `{"message":"a"}` {
		t.Errorf("unexpected second event: %s %s", got[1].Name, got[1].Data)
	}
}
