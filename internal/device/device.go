// Package device defines the driver contract for bladeRF-style radio
// hardware and the registry used to resolve an identifier to a driver.
// The CLI core never calls a driver directly; every control call goes
// through the state coordinator's device lock.
package device

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Direction selects one of the two sample-transfer modules.
type Direction int

const (
	RX Direction = iota
	TX
)

// String returns the conventional module name.
func (d Direction) String() string {
	if d == TX {
		return "tx"
	}
	return "rx"
}

// Device is an opened radio. Control calls (everything except Stream)
// are not safe for concurrent use; callers serialize them through the
// coordinator's device lock. Stream is a bounded blocking transfer and
// must be invoked without that lock held.
type Device interface {
	// Serial returns the device serial number.
	Serial() string

	// Version returns the firmware version string.
	Version() string

	SetFrequency(dir Direction, hz uint64) error
	GetFrequency(dir Direction) (uint64, error)

	SetSampleRate(dir Direction, hz uint) error
	GetSampleRate(dir Direction) (uint, error)

	SetGain(dir Direction, db int) error

	// EnableModule powers the RX or TX module on or off. A module must
	// be enabled before Stream is called for its direction.
	EnableModule(dir Direction, enable bool) error

	// Stream transfers one buffer of interleaved I/Q samples and
	// returns the number of samples moved. It blocks until the buffer
	// is exhausted, the context is cancelled, or the device fails.
	Stream(ctx context.Context, dir Direction, buf []int16) (int, error)

	// Close releases the device. The device must not be used after.
	Close() error
}

// openFunc constructs a driver from the identifier's argument portion.
type openFunc func(arg string) (Device, error)

var drivers = struct {
	sync.Mutex
	m map[string]openFunc
}{m: make(map[string]openFunc)}

// register installs a driver under a scheme name. Called from driver
// init functions.
func register(scheme string, open openFunc) {
	drivers.Lock()
	defer drivers.Unlock()
	drivers.m[scheme] = open
}

// Open resolves an identifier of the form "scheme:arg" (or bare
// "scheme") to a registered driver and opens it. An empty identifier
// opens the default loopback device.
func Open(identifier string) (Device, error) {
	scheme, arg := identifier, ""
	if i := strings.IndexByte(identifier, ':'); i >= 0 {
		scheme, arg = identifier[:i], identifier[i+1:]
	}
	if scheme == "" {
		scheme = "loopback"
	}

	drivers.Lock()
	open, ok := drivers.m[scheme]
	drivers.Unlock()
	if !ok {
		return nil, &Error{Op: "open", Code: ErrNoDev,
			detail: fmt.Sprintf("no driver for %q", scheme)}
	}
	return open(arg)
}
