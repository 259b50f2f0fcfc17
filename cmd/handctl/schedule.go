package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func NewScheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedule [cron-expression]",
		Aliases: []string{"sch", "sched"},
		Short:   "Manage automatic calibration schedule",
		Long: `Manage automatic calibration schedule.

The schedule command can be used in multiple ways:
  handctl calibration schedule 'minute hour day month weekday'  Set schedule with cron expression
  handctl calibration schedule disable                          Disable the schedule
  handctl calibration schedule skip                             Skip next run
  handctl calibration schedule show                             Show current schedule

A scheduled run starts a calibration session unless one is already in progress.`,
		Example: `  handctl calibration schedule '0 9 * * *'   (At 09:00 every day)
  handctl calibration schedule '30 18 * * 1-5' (At 18:30 on weekdays)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runScheduleShow(cmd)
			}
			return runScheduleSet(cmd, args[0])
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "disable",
			Short: "Disable the calibration schedule",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if _, err := apiClient.SetSchedule(""); err != nil {
					return err
				}
				cmd.Println("Calibration schedule disabled.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "skip",
			Short: "Skip the next scheduled calibration run",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := apiClient.SkipSchedule(); err != nil {
					return err
				}
				cmd.Println("Next scheduled run skipped.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show the current calibration schedule",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runScheduleShow(cmd)
			},
		},
	)

	return cmd
}

func runScheduleSet(cmd *cobra.Command, cronExpr string) error {
	if cronExpr == "" {
		return fmt.Errorf("cron expression cannot be empty")
	}
	sched, err := apiClient.SetSchedule(cronExpr)
	if err != nil {
		return err
	}
	cmd.Printf("Calibration scheduled. Next %d run(s):\n", len(sched.NextRuns))
	printRuns(cmd, sched.NextRuns)
	return nil
}

func runScheduleShow(cmd *cobra.Command) error {
	sched, err := apiClient.GetSchedule()
	if err != nil {
		return err
	}
	if sched.Cron == "" {
		cmd.Println("Calibration schedule is not set.")
		return nil
	}
	cmd.Printf("Schedule: %s\n", bold("%s", sched.Cron))
	printRuns(cmd, sched.NextRuns)
	return nil
}

func printRuns(cmd *cobra.Command, runs []string) {
	for _, run := range runs {
		t, err := time.Parse(time.RFC3339Nano, run)
		if err != nil {
			cmd.Printf("  - %s\n", run)
			continue
		}
		cmd.Printf("  - %s\n", t.Local().Format(time.DateTime))
	}
}
