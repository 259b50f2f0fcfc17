package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hastakriti/handctl/pkg/config"
	"github.com/hastakriti/handctl/pkg/events"
	"github.com/hastakriti/handctl/pkg/instruction"
	"github.com/hastakriti/handctl/pkg/sensor"
)

// Daemon wires the calibration controller, the sensor stream and the
// scheduler behind the HTTP API.
type Daemon struct {
	conf      config.Config
	hub       *events.EventHub
	calib     *Controller
	stream    *sensor.Stream
	scheduler *Scheduler
	devices   func() ([]sensor.Device, error)
}

// Options overrides collaborators, mainly for tests.
type Options struct {
	Backend Backend
	Dialer  sensor.Dialer
	Parser  sensor.Parser
	// Devices lists known Bluetooth devices. Defaults to asking BlueZ.
	Devices func() ([]sensor.Device, error)
}

func New(conf config.Config, opts Options) *Daemon {
	hub := events.NewEventHub(64)

	if opts.Devices == nil {
		opts.Devices = sensor.ListDevices
	}

	d := &Daemon{
		conf: conf,
		hub:  hub,
		calib: NewController(
			instruction.NewSequencer(),
			opts.Backend,
			hub,
			conf.ResetDelay(),
		),
		stream: sensor.NewStream(sensor.Options{
			MaxDataPoints:      conf.MaxDataPoints(),
			Simulate:           conf.SimulateSensor(),
			SimulationInterval: conf.SimulationInterval(),
			Parser:             opts.Parser,
			Dialer:             opts.Dialer,
			Publisher:          hub,
		}),
		devices: opts.Devices,
	}

	d.scheduler = NewScheduler(
		d.calib.StartIfIdle,
		func(data any) {
			runAt, _ := data.(time.Time)
			hub.Publish(events.CalibrationSchedule, events.CalibrationScheduleEvent{
				Message: "Calibration starts at " + runAt.Format("15:04"),
				Ts:      time.Now().Unix(),
			})
		},
		func(data any) {
			logrus.WithField("error", data).Warn("scheduled calibration")
		},
	)
	d.calib.scheduledAt = d.scheduler.NextRun

	return d
}

func (d *Daemon) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/config", d.getConfig)
	router.GET("/version", d.getVersion)

	calib := router.Group("/calibration")
	calib.GET("", d.getCalibration)
	calib.POST("/start", d.startCalibration)
	calib.POST("/next", d.nextInstruction)
	calib.POST("/report", d.submitReport)
	calib.POST("/reset", d.resetCalibration)
	calib.GET("/error", d.getErrorInstruction)
	calib.GET("/schedule", d.getSchedule)
	calib.PUT("/schedule", d.setSchedule)
	calib.POST("/schedule/skip", d.skipSchedule)

	sensorGroup := router.Group("/sensor")
	sensorGroup.GET("", d.getSensor)
	sensorGroup.GET("/samples", d.getSamples)
	sensorGroup.GET("/devices", d.getDevices)
	sensorGroup.POST("/connect", d.connectSensor)
	sensorGroup.POST("/disconnect", d.disconnectSensor)

	router.GET("/language", d.getLanguage)
	router.PUT("/language", d.setLanguage)
	router.GET("/languages", d.getLanguages)
	router.GET("/events", d.streamEvents)

	return router
}

// start launches the background work: simulator, scheduler and, if an
// address is configured, the first connection attempt.
func (d *Daemon) start(ctx context.Context) {
	d.stream.StartSimulation(ctx)

	if expr := d.conf.CalibrationCron(); expr != "" {
		if err := d.scheduler.Schedule(expr); err != nil {
			logrus.WithError(err).Error("ignoring calibration schedule")
		}
	}
	d.scheduler.Start()

	if addr := d.conf.DeviceAddress(); addr != "" {
		go func() {
			if err := d.stream.Connect(addr, d.conf.RFCOMMChannel()); err != nil {
				logrus.WithError(err).Warn("initial sensor connection failed, use `handctl sensor connect` to retry")
			}
		}()
	}
}

// reload re-reads the config and applies it to the running components.
// The device address and channel are used on the next connect.
func (d *Daemon) reload(ctx context.Context) error {
	if err := d.conf.Load(); err != nil {
		return err
	}

	if err := d.scheduler.Schedule(d.conf.CalibrationCron()); err != nil {
		logrus.WithError(err).Error("ignoring calibration schedule")
	}
	d.calib.SetResetDelay(d.conf.ResetDelay())
	d.stream.SetMaxDataPoints(d.conf.MaxDataPoints())
	d.stream.Reconfigure(ctx, d.conf.SimulateSensor(), d.conf.SimulationInterval())
	return nil
}

func (d *Daemon) stop() {
	d.scheduler.Stop()
	d.stream.Close()
	d.hub.Close()
}

func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	conf, err := config.NewFile(configPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	d := New(conf, Options{})
	router := d.Router()

	ctx, cancelBackground := context.WithCancel(context.Background())

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			if err := d.reload(ctx); err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
		}
	}()

	srv := &http.Server{
		Handler: router,
	}

	// A stale socket from an unclean shutdown would make Listen fail.
	if _, err := os.Stat(unixSocketPath); err == nil {
		_ = os.Remove(unixSocketPath)
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	if conf.AllowNonRootAccess() || allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	d.start(ctx)

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	logrus.Info("stopping background tasks")
	cancelBackground()
	d.stop()

	logrus.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	logrus.Info("exiting")
	return nil
}
