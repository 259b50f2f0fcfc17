package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hastakriti/handctl/pkg/locale"
	"github.com/hastakriti/handctl/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version",
		Annotations: localOnly,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of handctl",
		Long:    `Show the calibration session, the sensor connection and the configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := apiClient.GetCalibration()
			if err != nil {
				return fmt.Errorf("failed to get calibration status: %w", err)
			}
			ss, err := apiClient.GetSensor()
			if err != nil {
				return fmt.Errorf("failed to get sensor status: %w", err)
			}
			conf, err := apiClient.GetConfig()
			if err != nil {
				return fmt.Errorf("failed to get config: %w", err)
			}

			cmd.Println(color.New(color.Bold).Sprint("Calibration:"))
			printCalibrationStatus(cmd, st)
			cmd.Println()
			cmd.Println(color.New(color.Bold).Sprint("Sensor:"))
			printSensorStatus(cmd, ss)
			cmd.Println()
			cmd.Println(color.New(color.Bold).Sprint("Configuration:"))
			if conf.Language != nil {
				cmd.Printf("  Language: %s\n", bold("%s", locale.Name(*conf.Language)))
			}
			if conf.CalibrationCron != nil && *conf.CalibrationCron != "" {
				cmd.Printf("  Calibration schedule: %s\n", bold("%s", *conf.CalibrationCron))
			}
			if conf.ResetDelayMs != nil {
				cmd.Printf("  Reset delay: %s\n", bold("%dms", *conf.ResetDelayMs))
			}
			return nil
		},
	}
}
