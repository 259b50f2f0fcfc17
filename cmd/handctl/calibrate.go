package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hastakriti/handctl/pkg/calibration"
)

func NewCalibrationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "calibration",
		Aliases: []string{"calibrate", "cali"},
		Short:   "Step through hand calibration",
		Long: `Step through hand calibration.

A session starts with the Initial instructions. Each "next" shows the following
instruction; at the last one the session finishes with the Completed
instructions and returns to idle shortly after.`,
		GroupID: gBasic,
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new calibration session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := apiClient.StartCalibration()
			if err != nil {
				return fmt.Errorf("failed to start calibration: %w", err)
			}
			printInstruction(cmd, st)
			return nil
		},
	}

	nextCmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next instruction, finishing the session at the end",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := apiClient.NextInstruction()
			if err != nil {
				return fmt.Errorf("failed to advance calibration: %w", err)
			}
			printInstruction(cmd, st)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current calibration status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := apiClient.GetCalibration()
			if err != nil {
				return fmt.Errorf("failed to fetch calibration status: %w", err)
			}
			printCalibrationStatus(cmd, st)
			return nil
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "End the current session immediately",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := apiClient.ResetCalibration(); err != nil {
				return fmt.Errorf("failed to reset calibration: %w", err)
			}
			cmd.Println("Calibration session ended.")
			return nil
		},
	}

	cmd.AddCommand(startCmd, nextCmd, statusCmd, resetCmd, newReportCommand(), newWalkCommand(), NewScheduleCommand())
	return cmd
}

func newReportCommand() *cobra.Command {
	var (
		phase        string
		instructions []string
		errorMessage string
	)

	cmd := &cobra.Command{
		Use:   "report [file|-]",
		Short: "Submit a phase report",
		Long: `Submit a phase report as the calibration back end would.

The report is read from a file, from stdin ("-"), or built from flags.`,
		Example: `  handctl calibration report --phase GRIP_CALIBRATION
  handctl calibration report --phase FAILED --error "Sensor 1 not detected"
  echo '{"calibration_state":"INITIAL","custom_instructions":["Extra step"]}' | handctl calibration report -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			var err error

			switch {
			case len(args) == 1 && args[0] == "-":
				raw, err = io.ReadAll(cmd.InOrStdin())
			case len(args) == 1:
				raw, err = os.ReadFile(args[0])
			case phase != "":
				r := calibration.NewReport(calibration.ParsePhase(phase))
				r.CustomInstructions = instructions
				if cmd.Flags().Changed("error") {
					r.ErrorMessage = &errorMessage
				}
				raw, err = json.Marshal(r)
			default:
				return fmt.Errorf("either a report file or --phase is required")
			}
			if err != nil {
				return fmt.Errorf("failed to read report: %w", err)
			}

			st, err := apiClient.SubmitReport(raw)
			if err != nil {
				return fmt.Errorf("failed to submit report: %w", err)
			}
			printInstruction(cmd, st)
			if st.Phase == calibration.PhaseFailed {
				cmd.Printf("Error: %s\n", color.New(color.FgRed).Sprint(st.ErrorInstruction))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&phase, "phase", "", "phase tag (INITIAL, GRIP_CALIBRATION, COMPLETED, FAILED)")
	f.StringArrayVar(&instructions, "instruction", nil, "extra instruction appended after the built-in ones (repeatable)")
	f.StringVar(&errorMessage, "error", "", "error message to show on failure")

	return cmd
}

func newWalkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "walk",
		Short: "Walk through a calibration session interactively",
		Long: `Start a session and show one instruction at a time.

Press Enter to continue, or type q to stop.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := apiClient.StartCalibration()
			if err != nil {
				return fmt.Errorf("failed to start calibration: %w", err)
			}

			in := bufio.NewScanner(cmd.InOrStdin())
			for {
				printInstruction(cmd, st)
				if finished(st) {
					_, _ = color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "Done.")
					return nil
				}
				cmd.Print(color.New(color.Faint).Sprint("  press Enter to continue "))

				if !in.Scan() {
					return in.Err()
				}
				if strings.EqualFold(strings.TrimSpace(in.Text()), "q") {
					if _, err := apiClient.ResetCalibration(); err != nil {
						return fmt.Errorf("failed to reset calibration: %w", err)
					}
					cmd.Println("Calibration stopped.")
					return nil
				}

				next, err := apiClient.NextInstruction()
				if err != nil {
					// A finished session goes idle after the reset delay.
					if cur, serr := apiClient.GetCalibration(); serr == nil && !cur.Active {
						_, _ = color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "Done.")
						return nil
					}
					return fmt.Errorf("failed to advance calibration: %w", err)
				}
				st = next
			}
		},
	}
}

// finished reports whether the last instruction of a terminal phase is shown.
func finished(st *calibration.Status) bool {
	terminal := st.Phase == calibration.PhaseCompleted || st.Phase == calibration.PhaseFailed
	return terminal && !st.HasMore
}
