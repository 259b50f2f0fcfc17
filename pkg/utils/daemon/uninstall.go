package daemon

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

func Uninstall() error {
	logrus.Infof("stopping handctl")

	path := unitPath()

	// if the file doesn't exist, there is nothing to stop either
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.Infof("%s does not exist, nothing to do", path)
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := systemctl("disable", "--now", unitName); err != nil {
		return fmt.Errorf("%w. Are you root?", err)
	}

	logrus.Infof("removing systemd unit")

	err = os.Remove(path)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w. Are you root?", path, err)
	}

	return systemctl("daemon-reload")
}
