package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hastakriti/handctl/pkg/sensor"
)

func NewSensorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sensor",
		Short:   "Manage the sensor connection",
		GroupID: gBasic,
		Long: `Manage the Bluetooth connection to the hand controller.

Until a device is connected the daemon feeds simulated samples so the chart
is never empty.`,
	}

	var channel uint8

	connectCmd := &cobra.Command{
		Use:   "connect [address]",
		Short: "Connect to the controller over RFCOMM",
		Long: `Connect to the controller over RFCOMM.

Without an address the configured device is used. A successful connection
becomes the configured device.`,
		Example: `  handctl sensor connect 00:11:22:33:44:55
  handctl sensor connect --channel 3`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := ""
			if len(args) == 1 {
				addr = args[0]
			}
			st, err := apiClient.ConnectSensor(addr, channel)
			if err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			cmd.Printf("Connected to %s\n", bold("%s", st.Address))
			return nil
		},
	}
	connectCmd.Flags().Uint8Var(&channel, "channel", 0, "RFCOMM channel (defaults to the configured channel)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show the sensor connection",
			RunE: func(cmd *cobra.Command, _ []string) error {
				st, err := apiClient.GetSensor()
				if err != nil {
					return fmt.Errorf("failed to get sensor status: %w", err)
				}
				printSensorStatus(cmd, st)
				return nil
			},
		},
		connectCmd,
		&cobra.Command{
			Use:   "devices",
			Short: "List Bluetooth devices known to BlueZ",
			RunE: func(cmd *cobra.Command, _ []string) error {
				devices, err := apiClient.GetDevices()
				if err != nil {
					return fmt.Errorf("failed to list devices: %w", err)
				}
				if len(devices) == 0 {
					cmd.Println("No devices found. Pair the controller first.")
					return nil
				}
				for _, d := range devices {
					spp := ""
					if d.SerialPort {
						spp = color.New(color.FgGreen).Sprint("serial port")
					}
					cmd.Printf("%s  %-24s paired=%-5v connected=%-5v %s\n", bold("%s", d.Address), d.Name, d.Paired, d.Connected, spp)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "disconnect",
			Short: "Close the sensor connection",
			RunE: func(cmd *cobra.Command, _ []string) error {
				if _, err := apiClient.DisconnectSensor(); err != nil {
					return fmt.Errorf("failed to disconnect: %w", err)
				}
				cmd.Println("Disconnected.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "samples",
			Short: "Print the samples currently in the chart window",
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := apiClient.GetSamples()
				if err != nil {
					return fmt.Errorf("failed to get samples: %w", err)
				}
				printSamples(cmd, s)
				return nil
			},
		},
	)

	return cmd
}

// barWidth is the width of a full-scale bar in the samples table.
const barWidth = 20

func printSamples(cmd *cobra.Command, s *sensor.Samples) {
	if len(s.Sensor0) == 0 {
		cmd.Println("No samples yet.")
		return
	}
	cmd.Printf("%6s  %-*s  %s\n", "x", barWidth+7, "sensor 0", "sensor 1")
	for i := range s.Sensor0 {
		p0 := s.Sensor0[i]
		var y1 float64
		if i < len(s.Sensor1) {
			y1 = s.Sensor1[i].Y
		}
		cmd.Printf("%6d  %s  %s\n", p0.X, bar(p0.Y, sensor.Sensor0Max), bar(y1, sensor.Sensor1Max))
	}
}

func bar(v, full float64) string {
	n := int(v / full * barWidth)
	n = min(max(n, 0), barWidth)
	return fmt.Sprintf("%5.2f %-*s", v, barWidth, strings.Repeat("█", n))
}
