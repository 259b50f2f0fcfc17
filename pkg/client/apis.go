package client

import (
	"encoding/json"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"github.com/hastakriti/handctl/pkg/calibration"
	"github.com/hastakriti/handctl/pkg/config"
	"github.com/hastakriti/handctl/pkg/locale"
	"github.com/hastakriti/handctl/pkg/sensor"
)

func decode[T any](ret string, what string) (*T, error) {
	var v T
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal %s", what)
	}
	return &v, nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}
	return decode[config.RawFileConfig](ret, "config")
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	v, err := decode[string](ret, "version")
	if err != nil {
		return "", err
	}
	return *v, nil
}

// ===== Calibration APIs =====

func (c *Client) GetCalibration() (*calibration.Status, error) {
	ret, err := c.Get("/calibration")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get calibration status")
	}
	return decode[calibration.Status](ret, "calibration status")
}

func (c *Client) StartCalibration() (*calibration.Status, error) {
	return c.calibrationAction("/calibration/start", "", "failed to start calibration")
}

func (c *Client) NextInstruction() (*calibration.Status, error) {
	return c.calibrationAction("/calibration/next", "", "failed to advance calibration")
}

func (c *Client) ResetCalibration() (*calibration.Status, error) {
	return c.calibrationAction("/calibration/reset", "", "failed to reset calibration")
}

// SubmitReport forwards a raw phase report. The daemon never rejects a
// malformed report; the returned status shows how it was interpreted.
func (c *Client) SubmitReport(raw []byte) (*calibration.Status, error) {
	return c.calibrationAction("/calibration/report", string(raw), "failed to submit phase report")
}

func (c *Client) calibrationAction(path, data, msg string) (*calibration.Status, error) {
	ret, err := c.Post(path, data)
	if err != nil {
		return nil, pkgerrors.Wrap(err, msg)
	}
	return decode[calibration.Status](ret, "calibration status")
}

func (c *Client) GetErrorInstruction() (string, error) {
	ret, err := c.Get("/calibration/error")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get error instruction")
	}
	s, err := decode[string](ret, "error instruction")
	if err != nil {
		return "", err
	}
	return *s, nil
}

// Schedule is the calibration schedule as reported by the daemon.
type Schedule struct {
	Cron     string   `json:"cron"`
	NextRuns []string `json:"nextRuns"`
}

func (c *Client) GetSchedule() (*Schedule, error) {
	ret, err := c.Get("/calibration/schedule")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get calibration schedule")
	}
	return decode[Schedule](ret, "calibration schedule")
}

// SetSchedule sets the cron expression. An empty expression disables it.
func (c *Client) SetSchedule(expr string) (*Schedule, error) {
	ret, err := c.Put("/calibration/schedule", strconv.Quote(expr))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to set calibration schedule")
	}
	return decode[Schedule](ret, "calibration schedule")
}

func (c *Client) SkipSchedule() error {
	if _, err := c.Post("/calibration/schedule/skip", ""); err != nil {
		return pkgerrors.Wrapf(err, "failed to skip scheduled calibration")
	}
	return nil
}

// ===== Sensor APIs =====

func (c *Client) GetSensor() (*sensor.Status, error) {
	ret, err := c.Get("/sensor")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get sensor status")
	}
	return decode[sensor.Status](ret, "sensor status")
}

func (c *Client) GetSamples() (*sensor.Samples, error) {
	ret, err := c.Get("/sensor/samples")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get sensor samples")
	}
	return decode[sensor.Samples](ret, "sensor samples")
}

func (c *Client) GetDevices() ([]sensor.Device, error) {
	ret, err := c.Get("/sensor/devices")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to list bluetooth devices")
	}
	devices, err := decode[[]sensor.Device](ret, "devices")
	if err != nil {
		return nil, err
	}
	return *devices, nil
}

// ConnectSensor connects to addr on channel. Zero values fall back to the
// daemon's configured device.
func (c *Client) ConnectSensor(addr string, channel uint8) (*sensor.Status, error) {
	payload, err := json.Marshal(map[string]any{
		"address": addr,
		"channel": channel,
	})
	if err != nil {
		return nil, err
	}
	ret, err := c.Post("/sensor/connect", string(payload))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to connect sensor")
	}
	return decode[sensor.Status](ret, "sensor status")
}

func (c *Client) DisconnectSensor() (*sensor.Status, error) {
	ret, err := c.Post("/sensor/disconnect", "")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to disconnect sensor")
	}
	return decode[sensor.Status](ret, "sensor status")
}

// ===== Language APIs =====

func (c *Client) GetLanguage() (string, error) {
	ret, err := c.Get("/language")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get language")
	}
	s, err := decode[string](ret, "language")
	if err != nil {
		return "", err
	}
	return *s, nil
}

func (c *Client) GetLanguages() ([]locale.Language, error) {
	ret, err := c.Get("/languages")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get supported languages")
	}
	langs, err := decode[[]locale.Language](ret, "languages")
	if err != nil {
		return nil, err
	}
	return *langs, nil
}

func (c *Client) SetLanguage(code string) (string, error) {
	ret, err := c.Put("/language", strconv.Quote(code))
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to set language")
	}
	s, err := decode[string](ret, "language response")
	if err != nil {
		return "", err
	}
	return *s, nil
}
