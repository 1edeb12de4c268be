package state

import (
	"errors"
	"sync"

	"github.com/jenselo/bladeRF/internal/device"
)

// ErrNoDevice reports a device operation attempted with no device open.
var ErrNoDevice = errors.New("no device is currently opened")

// ErrDeviceBusy reports an open or close attempted while sample
// transfer is active.
var ErrDeviceBusy = errors.New("device is currently busy")

// DeviceHandle owns the single opened device and the lock guarding all
// device-control calls. The driver is not re-entrant-safe for
// concurrent control calls, so WithDevice is the only sanctioned way to
// reach the device.
//
// The streaming flags are set by the streaming subsystem when a
// transfer starts or stops; the transfer itself runs without the lock
// held so interactive commands are never starved for its duration.
type DeviceHandle struct {
	mu         sync.Mutex
	dev        device.Device
	lastDevErr int // last driver error code, kept for diagnostics
	rxActive   bool
	txActive   bool
}

// IsOpen reports whether a device is currently opened.
func (h *DeviceHandle) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dev != nil
}

// IsStreaming reports whether either sample-transfer direction is
// active.
func (h *DeviceHandle) IsStreaming() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rxActive || h.txActive
}

// SetStreaming marks one transfer direction active or inactive. Called
// by the streaming subsystem on transfer start and stop.
func (h *DeviceHandle) SetStreaming(dir device.Direction, active bool) {
	h.mu.Lock()
	if dir == device.TX {
		h.txActive = active
	} else {
		h.rxActive = active
	}
	h.mu.Unlock()
}

// WithDevice acquires the device lock, passes the device to fn, and
// releases the lock on every exit path. It returns ErrNoDevice without
// invoking fn when no device is open. When fn fails with a driver
// error, the driver code is cached for later diagnostics before the
// error is returned.
func (h *DeviceHandle) WithDevice(fn func(device.Device) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dev == nil {
		return ErrNoDevice
	}

	err := fn(h.dev)
	var derr *device.Error
	if errors.As(err, &derr) {
		h.lastDevErr = derr.Code
	}
	return err
}

// LastDeviceError returns the most recent driver error code, or zero
// if no driver call has failed.
func (h *DeviceHandle) LastDeviceError() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastDevErr
}

// snapshot returns the current device reference, or nil. Callers use
// the snapshot for streaming transfers, which must not hold the device
// lock for the transfer's duration.
func (h *DeviceHandle) snapshot() device.Device {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dev
}

// noteError caches the driver code when err is a driver error.
func (h *DeviceHandle) noteError(err error) {
	var derr *device.Error
	if !errors.As(err, &derr) {
		return
	}
	h.mu.Lock()
	h.lastDevErr = derr.Code
	h.mu.Unlock()
}

// attach installs dev as the open device, returning the previously open
// device (if any) for the caller to close outside the lock.
func (h *DeviceHandle) attach(dev device.Device) device.Device {
	h.mu.Lock()
	prev := h.dev
	h.dev = dev
	h.mu.Unlock()
	return prev
}

// detach clears the device reference and returns it for closing.
func (h *DeviceHandle) detach() device.Device {
	return h.attach(nil)
}
