package sensor

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"
)

// SerialPortUUID is the Bluetooth SPP service class the device registers.
var SerialPortUUID = uuid.MustParse("00001101-0000-1000-8000-00805F9B34FB")

// ErrUnsupportedPlatform is returned by DialRFCOMM where RFCOMM sockets are
// not available.
var ErrUnsupportedPlatform = errors.New("rfcomm sockets are not supported on this platform")

// Dialer opens a byte stream to the device.
type Dialer interface {
	Dial(address string, channel uint8) (io.ReadCloser, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(address string, channel uint8) (io.ReadCloser, error)

func (f DialerFunc) Dial(address string, channel uint8) (io.ReadCloser, error) {
	return f(address, channel)
}

// RFCOMMDialer connects with a raw RFCOMM socket.
var RFCOMMDialer Dialer = DialerFunc(DialRFCOMM)

// parseBDAddr parses "AA:BB:CC:DD:EE:FF" into the little-endian byte order
// used by the kernel.
func parseBDAddr(address string) ([6]byte, error) {
	var ret [6]byte
	hw, err := net.ParseMAC(address)
	if err != nil {
		return ret, fmt.Errorf("invalid bluetooth address %q: %w", address, err)
	}
	if len(hw) != 6 {
		return ret, fmt.Errorf("invalid bluetooth address %q: want 6 bytes, got %d", address, len(hw))
	}
	for i := range ret {
		ret[i] = hw[len(hw)-1-i]
	}
	return ret, nil
}
