// Package state holds the shared application state of the bladeRF CLI:
// the open device handle and its lock discipline, the last-error
// record, and the stack of nested script sources. One State is created
// at startup and passed explicitly to the command dispatcher and the
// streaming subsystem; there is no package-level instance.
package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jenselo/bladeRF/internal/device"
	"github.com/jenselo/bladeRF/internal/logging"
	"github.com/jenselo/bladeRF/internal/script"
	"github.com/jenselo/bladeRF/pkg/types"
)

// Options configures a new State.
type Options struct {
	// MaxScriptDepth bounds script nesting; zero selects the default.
	MaxScriptDepth int

	// Output receives formatted error lines. Defaults to os.Stderr.
	Output io.Writer

	// Logger receives structured diagnostics. Defaults to a no-op
	// logger.
	Logger *slog.Logger
}

// State is the application-state coordinator. It composes exactly one
// error record, one device handle, and one script stack; nothing else
// shares them except through its methods.
type State struct {
	errors  *ErrorRecord
	handle  *DeviceHandle
	scripts *script.Stack

	out io.Writer
	log *slog.Logger
}

// New creates and initializes a coordinator. The caller owns the
// returned value exclusively and must call Close when done.
func New(opts Options) *State {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}
	return &State{
		errors:  newErrorRecord(),
		handle:  &DeviceHandle{},
		scripts: script.NewStack(opts.MaxScriptDepth),
		out:     out,
		log:     log,
	}
}

// Close releases all script sources and closes the device if one is
// open. Single ownership is assumed; Close is not guarded against
// concurrent or repeated calls.
func (s *State) Close() error {
	s.scripts.Abort()

	if dev := s.handle.detach(); dev != nil {
		if err := dev.Close(); err != nil {
			return fmt.Errorf("close device: %w", err)
		}
	}
	return nil
}

// Scripts returns the script stack.
func (s *State) Scripts() *script.Stack { return s.scripts }

// IsOpen reports whether a device is currently opened.
func (s *State) IsOpen() bool { return s.handle.IsOpen() }

// IsStreaming reports whether RX or TX sample transfer is active.
func (s *State) IsStreaming() bool { return s.handle.IsStreaming() }

// SetStreaming marks one transfer direction active or inactive.
func (s *State) SetStreaming(dir device.Direction, active bool) {
	s.handle.SetStreaming(dir, active)
}

// OpenDevice opens the device named by identifier and installs it as
// the current device, closing any previously open device first. Fails
// with types.RetBusy (recorded) while streaming is active.
func (s *State) OpenDevice(identifier string) error {
	if s.handle.IsStreaming() {
		s.errors.Set(types.KindCli, types.RetBusy)
		return fmt.Errorf("open device: %w", ErrDeviceBusy)
	}

	dev, err := device.Open(identifier)
	if err != nil {
		s.recordErr(err)
		return err
	}

	if prev := s.handle.attach(dev); prev != nil {
		if cerr := prev.Close(); cerr != nil {
			s.log.Warn("closing previous device failed", "err", cerr)
		}
	}
	s.log.Info("device opened", "serial", dev.Serial())
	return nil
}

// CloseDevice closes the current device. Fails with types.RetNoDev if
// none is open and types.RetBusy while streaming is active; both are
// recorded.
func (s *State) CloseDevice() error {
	if s.handle.IsStreaming() {
		s.errors.Set(types.KindCli, types.RetBusy)
		return fmt.Errorf("close device: %w", ErrDeviceBusy)
	}

	dev := s.handle.detach()
	if dev == nil {
		s.errors.Set(types.KindCli, types.RetNoDev)
		return ErrNoDevice
	}

	if err := dev.Close(); err != nil {
		s.recordErr(err)
		return err
	}
	s.log.Info("device closed")
	return nil
}

// WithDevice runs fn with the device lock held. A call with no device
// open fails without invoking fn and records (KindCli, RetNoDev); a
// driver failure from fn records (KindDevice, driver code). The error
// is returned either way so the caller can decide whether to abort a
// running script.
func (s *State) WithDevice(fn func(device.Device) error) error {
	err := s.handle.WithDevice(fn)
	if err != nil {
		s.recordErr(err)
	}
	return err
}

// Stream transfers one buffer of samples in the given direction. The
// device reference is snapshotted under the lock, but the transfer
// itself runs without it so device-control calls are never starved
// behind an unbounded transfer. Fails with ErrNoDevice (recorded) when
// no device is open.
func (s *State) Stream(ctx context.Context, dir device.Direction, buf []int16) (int, error) {
	dev := s.handle.snapshot()
	if dev == nil {
		s.recordErr(ErrNoDevice)
		return 0, ErrNoDevice
	}

	n, err := dev.Stream(ctx, dir, buf)
	if err != nil {
		s.handle.noteError(err)
		s.recordErr(err)
	}
	return n, err
}

// recordErr classifies err and stores it in the error record.
func (s *State) recordErr(err error) {
	var derr *device.Error
	switch {
	case errors.Is(err, ErrNoDevice):
		s.errors.Set(types.KindCli, types.RetNoDev)
	case errors.As(err, &derr):
		s.errors.Set(types.KindDevice, derr.Code)
	default:
		s.errors.Set(types.KindCli, types.RetUnknown)
	}
}

// SetLastError records a classified error. Command handlers use this
// for failures they classify themselves.
func (s *State) SetLastError(kind types.ErrorKind, code int) {
	s.errors.Set(kind, code)
}

// LastError returns the last recorded (kind, code) pair.
func (s *State) LastError() (types.ErrorKind, int) {
	return s.errors.Get()
}

// Classify formats the given tagged code, resolving device codes
// against the cached driver error when asked for the generic
// device-error indirection.
func (s *State) Classify(kind types.ErrorKind, code int) string {
	if kind == types.KindCli && code == types.RetDevError {
		return Strerror(types.KindDevice, s.handle.LastDeviceError(), 0)
	}
	return Strerror(kind, code, s.handle.LastDeviceError())
}

// ReportError records (kind, code) and emits exactly one formatted
// line on the output writer. The prefix defaults to "Error"; when a
// script is executing, the line is annotated with the innermost script
// path and line number.
func (s *State) ReportError(pfx string, kind types.ErrorKind, code int, msg string) {
	s.errors.Set(kind, code)

	if pfx == "" {
		pfx = "Error"
	}
	if msg == "" {
		msg = s.Classify(kind, code)
	}

	if path, line, ok := s.scripts.Current(); ok {
		fmt.Fprintf(s.out, "%s (line %d): %s: %s\n", path, line, pfx, msg)
	} else {
		fmt.Fprintf(s.out, "%s: %s\n", pfx, msg)
	}
	s.log.Debug("error reported", "kind", kind.String(), "code", code, "msg", msg)
}
