//go:build !linux

package sensor

import "io"

// DialRFCOMM is only implemented on Linux.
func DialRFCOMM(address string, _ uint8) (io.ReadCloser, error) {
	if _, err := parseBDAddr(address); err != nil {
		return nil, err
	}
	return nil, ErrUnsupportedPlatform
}
