//go:build linux

package sensor

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// DialRFCOMM opens an RFCOMM stream socket to address on channel.
func DialRFCOMM(address string, channel uint8) (io.ReadCloser, error) {
	bdaddr, err := parseBDAddr(address)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
	if err != nil {
		return nil, fmt.Errorf("failed to create rfcomm socket: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"address": address,
		"channel": channel,
		"service": SerialPortUUID.String(),
	}).Debug("connecting rfcomm socket")

	err = unix.Connect(fd, &unix.SockaddrRFCOMM{Addr: bdaddr, Channel: channel})
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("failed to connect to %s on rfcomm channel %d: %w", address, channel, err)
	}

	return newSocketFile(fd, "rfcomm:"+address)
}

// newSocketFile hands a connected socket to the runtime poller. A blocking
// fd would keep Read waiting after Close.
func newSocketFile(fd int, name string) (*os.File, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("failed to set %s non-blocking: %w", name, err)
	}
	return os.NewFile(uintptr(fd), name), nil
}
