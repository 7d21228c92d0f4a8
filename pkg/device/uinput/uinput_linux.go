//go:build linux

package uinput

import (
	"fmt"
	"unsafe"

	"tabletrelay/pkg/config"
	"tabletrelay/pkg/device"

	"golang.org/x/sys/unix"
)

var timevalSize = int(unsafe.Sizeof(unix.Timeval{}))

// GraphicTablet is a virtual uinput device.
type GraphicTablet struct {
	fd int
	tr *translator
}

// Open creates a new uinput device as described by cfg.
func Open(cfg config.DeviceConfig) (device.Device, error) {
	fd, err := unix.Open(cfg.Path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("unix.Open(%s): %w", cfg.Path, err)
	}

	if err := setup(fd, cfg); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	return &GraphicTablet{fd: fd, tr: newTranslator(cfg.Kind)}, nil
}

func setup(fd int, cfg config.DeviceConfig) error {
	caps := capabilitiesFor(cfg.Kind)

	bits := []struct {
		req   uint
		codes []uint16
	}{
		{uiSetEvBit, caps.events},
		{uiSetKeyBit, caps.keys},
		{uiSetPropBit, caps.props},
	}
	for _, b := range bits {
		for _, code := range b.codes {
			if err := unix.IoctlSetInt(fd, b.req, int(code)); err != nil {
				return fmt.Errorf("ioctl(%#x, %#x): %w", b.req, code, err)
			}
		}
	}
	for _, axis := range caps.axes {
		if err := unix.IoctlSetInt(fd, uiSetAbsBit, int(axis.code)); err != nil {
			return fmt.Errorf("ioctl(UI_SET_ABSBIT, %#x): %w", axis.code, err)
		}
	}

	if _, err := unix.Write(fd, encodeUserDev(cfg.Name, caps)); err != nil {
		return fmt.Errorf("writing uinput_user_dev: %w", err)
	}

	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		return fmt.Errorf("ioctl(UI_DEV_CREATE): %w", err)
	}

	return nil
}

// Send writes ev as a batch of input events.
func (g *GraphicTablet) Send(ev device.Event) error {
	buf := encodeEvents(g.tr.translate(ev), timevalSize)
	if _, err := unix.Write(g.fd, buf); err != nil {
		return fmt.Errorf("writing input events: %w", err)
	}
	return nil
}

// Close destroys the device.
func (g *GraphicTablet) Close() error {
	destroyErr := unix.IoctlSetInt(g.fd, uiDevDestroy, 0)
	if err := unix.Close(g.fd); err != nil {
		return fmt.Errorf("closing uinput: %w", err)
	}
	if destroyErr != nil {
		return fmt.Errorf("ioctl(UI_DEV_DESTROY): %w", destroyErr)
	}
	return nil
}
