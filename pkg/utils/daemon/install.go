package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hastakriti/handctl/hack"
)

var (
	unitName = "handctl.service"
	unitDir  = "/etc/systemd/system"
)

func unitPath() string {
	return filepath.Join(unitDir, unitName)
}

// RenderUnit fills the systemd unit template with the given paths.
func RenderUnit(exePath, configPath, socketPath string) string {
	return strings.NewReplacer(
		"/path/to/handctl", exePath,
		"/etc/handctl.json", configPath,
		"/var/run/handctl.sock", socketPath,
	).Replace(hack.SystemdUnitTemplate)
}

func Install(configPath, socketPath string) error {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	err = os.Chmod(exePath, 0755)
	if err != nil {
		return fmt.Errorf("failed to chmod the current executable to 0755: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	unit := RenderUnit(exePath, configPath, socketPath)
	path := unitPath()

	logrus.Infof("writing systemd unit to %s", unitDir)

	err = os.MkdirAll(unitDir, 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", unitDir, err)
	}

	// warn if the file already exists
	_, err = os.Stat(path)
	if err == nil {
		logrus.Warnf("%s already exists, overwriting", path)
	}

	err = os.WriteFile(path, []byte(unit), 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	logrus.Infof("starting handctl")

	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	return systemctl("enable", "--now", unitName)
}

func systemctl(args ...string) error {
	out, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
