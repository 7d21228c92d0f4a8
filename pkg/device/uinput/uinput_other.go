//go:build !linux

package uinput

import (
	"tabletrelay/pkg/config"
	"tabletrelay/pkg/device"
)

// Open always fails outside Linux.
func Open(cfg config.DeviceConfig) (device.Device, error) {
	return nil, device.ErrUnsupported
}
