package gui

import (
	"github.com/getlantern/systray"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hastakriti/handctl/pkg/client"
	"github.com/hastakriti/handctl/pkg/version"
)

func NewGUICommand(unixSocketPath func() string, groupID string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gui",
		Short:   "Start the handctl tray",
		GroupID: groupID,
		Long: `Start the handctl tray.

The tray shows the current calibration instruction and lets you step through it with a click. The daemon must be running.`,
		Run: func(_ *cobra.Command, _ []string) {
			Run(unixSocketPath())
		},
	}

	return cmd
}

// Run blocks until the tray is quit.
func Run(unixSocketPath string) {
	logrus.WithField("version", version.Version).WithField("gitCommit", version.GitCommit).Info("handctl gui")

	t := newTray(client.NewClient(unixSocketPath))
	systray.Run(t.onReady, t.onExit)
}
