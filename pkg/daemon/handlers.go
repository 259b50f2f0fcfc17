package daemon

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hastakriti/handctl/pkg/config"
	"github.com/hastakriti/handctl/pkg/events"
	"github.com/hastakriti/handctl/pkg/locale"
	"github.com/hastakriti/handctl/pkg/sensor"
	"github.com/hastakriti/handctl/pkg/version"
)

// maxReportSize bounds phase report bodies.
const maxReportSize = 64 << 10

func (d *Daemon) getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(d.conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func (d *Daemon) getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

func (d *Daemon) getCalibration(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.calib.Status())
}

func (d *Daemon) startCalibration(c *gin.Context) {
	c.IndentedJSON(http.StatusCreated, d.calib.Start())
}

func (d *Daemon) nextInstruction(c *gin.Context) {
	st, err := d.calib.Next()
	if err != nil {
		abort(c, http.StatusConflict, err)
		return
	}
	c.IndentedJSON(http.StatusOK, st)
}

func (d *Daemon) submitReport(c *gin.Context) {
	b, err := io.ReadAll(io.LimitReader(c.Request.Body, maxReportSize))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	// Malformed reports are not rejected: the sequencer turns them into a
	// displayable instruction.
	c.IndentedJSON(http.StatusOK, d.calib.Submit(b))
}

func (d *Daemon) resetCalibration(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.calib.Reset())
}

func (d *Daemon) getErrorInstruction(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.calib.ErrorInstruction())
}

type scheduleResponse struct {
	Cron     string      `json:"cron"`
	NextRuns []time.Time `json:"nextRuns"`
}

func (d *Daemon) getSchedule(c *gin.Context) {
	next, expr, _ := d.scheduler.Status()
	resp := scheduleResponse{Cron: expr}
	if !next.IsZero() {
		resp.NextRuns = []time.Time{next}
	}
	c.IndentedJSON(http.StatusOK, resp)
}

func (d *Daemon) setSchedule(c *gin.Context) {
	var expr string
	if err := c.BindJSON(&expr); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	nextRuns, err := d.schedule(expr)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	c.IndentedJSON(http.StatusCreated, scheduleResponse{Cron: expr, NextRuns: nextRuns})
}

func (d *Daemon) skipSchedule(c *gin.Context) {
	if err := d.scheduler.Skip(); err != nil {
		abort(c, http.StatusConflict, err)
		return
	}
	c.IndentedJSON(http.StatusOK, "ok")
}

// schedule persists expr and returns the next three run times.
func (d *Daemon) schedule(expr string) ([]time.Time, error) {
	var nextRuns []time.Time
	if expr != "" {
		sched, err := NewParser().Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid cron expression: %w", err)
		}
		now := time.Now()
		for range 3 {
			next := sched.Next(now)
			nextRuns = append(nextRuns, next)
			now = next
		}
	}

	if err := d.scheduler.Schedule(expr); err != nil {
		return nil, err
	}
	d.conf.SetCalibrationCron(expr)
	if err := d.conf.Save(); err != nil {
		logrus.WithError(err).Error("failed to save config")
		return nil, fmt.Errorf("failed to save config: %w", err)
	}

	msg := "Calibration schedule disabled"
	if len(nextRuns) > 0 {
		msg = fmt.Sprintf("Calibration scheduled at %s", nextRuns[0].Format("Jan _2 15:04"))
	}
	logrus.WithField("cron", expr).Info(msg)
	d.hub.Publish(events.CalibrationSchedule, events.CalibrationScheduleEvent{
		Message: msg,
		Ts:      time.Now().Unix(),
	})

	return nextRuns, nil
}

func (d *Daemon) getSensor(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.stream.Status())
}

func (d *Daemon) getSamples(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.stream.Samples())
}

func (d *Daemon) getDevices(c *gin.Context) {
	devices, err := d.devices()
	if err != nil {
		abort(c, http.StatusBadGateway, err)
		return
	}
	if devices == nil {
		devices = []sensor.Device{}
	}
	c.IndentedJSON(http.StatusOK, devices)
}

type connectRequest struct {
	Address string `json:"address"`
	Channel uint8  `json:"channel"`
}

func (d *Daemon) connectSensor(c *gin.Context) {
	req := connectRequest{}
	if c.Request.ContentLength != 0 {
		if err := c.BindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}
	}
	if req.Address == "" {
		req.Address = d.conf.DeviceAddress()
	}
	if req.Channel == 0 {
		req.Channel = d.conf.RFCOMMChannel()
	}

	err := d.stream.Connect(req.Address, req.Channel)
	switch {
	case err == nil:
	case errors.Is(err, sensor.ErrNoAddress):
		abort(c, http.StatusBadRequest, err)
		return
	case errors.Is(err, sensor.ErrAlreadyConnected):
		abort(c, http.StatusConflict, err)
		return
	default:
		abort(c, http.StatusBadGateway, fmt.Errorf("connection error: %w", err))
		return
	}

	if req.Address != d.conf.DeviceAddress() {
		d.conf.SetDeviceAddress(req.Address)
		if err := d.conf.Save(); err != nil {
			logrus.WithError(err).Warn("failed to remember device address")
		}
	}

	c.IndentedJSON(http.StatusCreated, d.stream.Status())
}

func (d *Daemon) disconnectSensor(c *gin.Context) {
	if err := d.stream.Disconnect(); err != nil {
		if errors.Is(err, sensor.ErrNotConnected) {
			abort(c, http.StatusConflict, err)
			return
		}
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, d.stream.Status())
}

func (d *Daemon) getLanguage(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.conf.Language())
}

func (d *Daemon) getLanguages(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, locale.Supported)
}

func (d *Daemon) setLanguage(c *gin.Context) {
	var code string
	if err := c.BindJSON(&code); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	code, err := locale.Normalize(code)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	d.conf.SetLanguage(code)
	if err := d.conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		abort(c, http.StatusInternalServerError, err)
		return
	}

	logrus.Infof("set language to %s", code)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("language set to %s", locale.Name(code)))
}
