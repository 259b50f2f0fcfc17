package gui

import (
	"context"
	"fmt"
	"time"

	"github.com/getlantern/systray"
	"github.com/sirupsen/logrus"

	"github.com/hastakriti/handctl/pkg/calibration"
	"github.com/hastakriti/handctl/pkg/client"
	"github.com/hastakriti/handctl/pkg/events"
)

// maxTitleLen keeps the tray title readable on narrow panels.
const maxTitleLen = 32

type tray struct {
	api    *client.Client
	cancel context.CancelFunc

	instruction *systray.MenuItem
	progress    *systray.MenuItem
	sensor      *systray.MenuItem
	start       *systray.MenuItem
	next        *systray.MenuItem
	quit        *systray.MenuItem
}

func newTray(api *client.Client) *tray {
	return &tray{api: api}
}

func (t *tray) onReady() {
	systray.SetTitle("✋ Loading...")
	systray.SetTooltip(trayTooltip)

	t.instruction = systray.AddMenuItem("Connecting...", "Current calibration instruction")
	t.instruction.Disable()
	t.progress = systray.AddMenuItem("Step: -", "Position in the current instruction set")
	t.progress.Disable()
	t.sensor = systray.AddMenuItem("Sensor: -", "Sensor connection")
	t.sensor.Disable()

	systray.AddSeparator()

	t.start = systray.AddMenuItem("Start calibration", "Start a new calibration session")
	t.next = systray.AddMenuItem("Next step", nextTooltip)
	t.next.Disable()

	systray.AddSeparator()
	t.quit = systray.AddMenuItem("Quit", quitTooltip)

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	go t.handleClicks(ctx)
	go t.watch(ctx)

	t.refresh()
}

func (t *tray) onExit() {
	if t.cancel != nil {
		t.cancel()
	}
	logrus.Info("handctl gui exiting")
}

func (t *tray) handleClicks(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.start.ClickedCh:
			st, err := t.api.StartCalibration()
			if err != nil {
				logrus.WithError(err).Error("failed to start calibration")
				continue
			}
			t.render(st)
		case <-t.next.ClickedCh:
			st, err := t.api.NextInstruction()
			if err != nil {
				logrus.WithError(err).Error("failed to advance calibration")
				continue
			}
			t.render(st)
		case <-t.quit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

// watch keeps the tray in sync with the daemon, reconnecting to the event
// stream whenever it drops.
func (t *tray) watch(ctx context.Context) {
	for {
		evCh, err := t.api.SubscribeEvents(ctx)
		if err != nil {
			t.offline(err)
		} else {
			t.refresh()
			t.consume(evCh)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (t *tray) consume(evCh <-chan events.Event) {
	for ev := range evCh {
		logrus.WithFields(logrus.Fields{
			"event": ev.Name,
			"data":  string(ev.Data),
		}).Debug("new event")

		switch ev.Name {
		case events.CalibrationInstruction:
			// The event carries the view model, but a refetch also picks up
			// the error instruction and session fields.
			t.refresh()
		case events.SensorState:
			payload, err := events.DecodeAs[events.SensorStateEvent](ev)
			if err != nil {
				logrus.WithError(err).Error("failed to decode sensor.state event")
				continue
			}
			t.renderSensor(payload.Connected, payload.Address)
		case events.CalibrationSchedule:
			payload, err := events.DecodeAs[events.CalibrationScheduleEvent](ev)
			if err != nil {
				logrus.WithError(err).Error("failed to decode calibration.schedule event")
				continue
			}
			systray.SetTooltip(payload.Message)
		}
	}
}

func (t *tray) refresh() {
	st, err := t.api.GetCalibration()
	if err != nil {
		t.offline(err)
		return
	}
	t.render(st)

	ss, err := t.api.GetSensor()
	if err != nil {
		logrus.WithError(err).Warn("failed to get sensor status")
		return
	}
	t.renderSensor(ss.Connected, ss.Address)
}

func (t *tray) offline(err error) {
	logrus.WithError(err).Warn("cannot reach daemon")
	systray.SetTitle("🚫 Offline")
	t.instruction.SetTitle("Daemon not running")
	t.progress.SetTitle("Step: -")
	t.start.Disable()
	t.next.Disable()
}

func (t *tray) render(st *calibration.Status) {
	systray.SetTitle("✋ " + trayTitle(st))
	t.instruction.SetTitle(st.Instruction)
	t.progress.SetTitle(progressTitle(st))

	if st.Active {
		t.start.Disable()
		t.next.Enable()
	} else {
		t.start.Enable()
		t.next.Disable()
	}
	if st.Phase == calibration.PhaseFailed {
		systray.SetTooltip(st.ErrorInstruction)
	}
}

func (t *tray) renderSensor(connected bool, addr string) {
	if connected {
		t.sensor.SetTitle("Sensor: " + addr)
		return
	}
	t.sensor.SetTitle("Sensor: not connected")
}

func trayTitle(st *calibration.Status) string {
	if !st.Active {
		return "Idle"
	}
	r := []rune(st.Instruction)
	if len(r) > maxTitleLen {
		return string(r[:maxTitleLen-1]) + "…"
	}
	return st.Instruction
}

func progressTitle(st *calibration.Status) string {
	if st.Total == 0 {
		return "Step: -"
	}
	return fmt.Sprintf("Step: %d/%d (%s)", st.Index+1, st.Total, st.Phase)
}
