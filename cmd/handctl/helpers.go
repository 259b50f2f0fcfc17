package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hastakriti/handctl/pkg/calibration"
	"github.com/hastakriti/handctl/pkg/sensor"
	"github.com/hastakriti/handctl/pkg/version"
)

// annotationLocal marks commands that do not talk to a running daemon.
const annotationLocal = "handctl/local"

var localOnly = map[string]string{annotationLocal: "true"}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}

func getVersion() (clientVersion, daemonVersion string, err error) {
	daemonVersion, err = apiClient.GetVersion()
	if err != nil {
		return version.Version, "", err
	}
	return version.Version, daemonVersion, nil
}

func phaseColor(p calibration.Phase) *color.Color {
	switch p {
	case calibration.PhaseCompleted:
		return color.New(color.FgGreen, color.Bold)
	case calibration.PhaseFailed:
		return color.New(color.FgRed, color.Bold)
	case calibration.PhaseUnknown, calibration.PhaseNone:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan, color.Bold)
	}
}

func printInstruction(cmd *cobra.Command, st *calibration.Status) {
	step := "-"
	if st.Total > 0 {
		step = fmt.Sprintf("%d/%d", st.Index+1, st.Total)
	}
	cmd.Printf("[%s %s] %s\n", phaseColor(st.Phase).Sprint(st.Phase), step, bold("%s", st.Instruction))
}

func printCalibrationStatus(cmd *cobra.Command, st *calibration.Status) {
	state := color.New(color.FgYellow).Sprint("idle")
	if st.Active {
		state = color.New(color.FgGreen).Sprint("in progress")
	}
	cmd.Printf("  Session: %s\n", state)
	cmd.Printf("  Phase: %s\n", phaseColor(st.Phase).Sprint(st.Phase))
	cmd.Printf("  Instruction: %s\n", bold("%s", st.Instruction))
	if st.Total > 0 {
		cmd.Printf("  Step: %s\n", bold("%d of %d", st.Index+1, st.Total))
	}
	if st.Phase == calibration.PhaseFailed {
		cmd.Printf("  Error: %s\n", color.New(color.FgRed).Sprint(st.ErrorInstruction))
	}
	if !st.StartedAt.IsZero() {
		cmd.Printf("  Started: %s (%s ago)\n", st.StartedAt.Local().Format(time.DateTime), time.Since(st.StartedAt).Round(time.Second))
	}
	if !st.ScheduledAt.IsZero() {
		cmd.Printf("  Next scheduled: %s\n", st.ScheduledAt.Local().Format(time.DateTime))
	}
}

func printSensorStatus(cmd *cobra.Command, st *sensor.Status) {
	switch {
	case st.Connected:
		cmd.Printf("  Connection: %s (%s, channel %d)\n", color.New(color.FgGreen).Sprint("connected"), st.Address, st.Channel)
	case st.Simulating:
		cmd.Printf("  Connection: %s\n", color.New(color.FgYellow).Sprint("simulated"))
	default:
		cmd.Printf("  Connection: %s\n", color.New(color.FgRed).Sprint("disconnected"))
	}
	cmd.Printf("  Service: %s\n", st.Service)
	cmd.Printf("  Samples: %s (window %d)\n", bold("%d", st.Samples), st.MaxDataPoints)
	if st.LastError != "" {
		cmd.Printf("  Last error: %s\n", color.New(color.FgRed).Sprint(st.LastError))
	}
}
