package device

import (
	"context"
	"fmt"
	"sync"
)

// Tuning limits for the loopback device. Chosen to match the hardware
// the CLI normally drives so range errors are exercised realistically.
const (
	loopbackMinFrequency = 237_500_000   // Hz
	loopbackMaxFrequency = 3_800_000_000 // Hz

	loopbackMinSampleRate = 160_000    // Hz
	loopbackMaxSampleRate = 40_000_000 // Hz

	loopbackMinGain = -4 // dB
	loopbackMaxGain = 66 // dB
)

func init() {
	register("loopback", openLoopback)
}

// moduleState holds per-direction tuning parameters.
type moduleState struct {
	frequency  uint64
	sampleRate uint
	gain       int
	enabled    bool
}

// Loopback is an in-memory device: samples written by TX are read back
// by RX. It is the default device when no hardware identifier is given
// and the device used throughout the tests.
type Loopback struct {
	mu      sync.Mutex
	serial  string
	closed  bool
	modules [2]moduleState
	fifo    []int16
}

func openLoopback(arg string) (Device, error) {
	serial := arg
	if serial == "" {
		serial = "loopback0"
	}
	lb := &Loopback{serial: serial}
	for i := range lb.modules {
		lb.modules[i] = moduleState{
			frequency:  1_000_000_000,
			sampleRate: 1_000_000,
			gain:       0,
		}
	}
	return lb, nil
}

// Serial returns the device serial number.
func (l *Loopback) Serial() string { return l.serial }

// Version returns the simulated firmware version.
func (l *Loopback) Version() string { return "loopback 1.0.0" }

func (l *Loopback) module(dir Direction) *moduleState {
	return &l.modules[dir&1]
}

func (l *Loopback) guard(op string) error {
	if l.closed {
		return &Error{Op: op, Code: ErrNoDev, detail: "device closed"}
	}
	return nil
}

func (l *Loopback) SetFrequency(dir Direction, hz uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.guard("set frequency"); err != nil {
		return err
	}
	if hz < loopbackMinFrequency || hz > loopbackMaxFrequency {
		return &Error{Op: "set frequency", Code: ErrRange,
			detail: fmt.Sprintf("%d Hz", hz)}
	}
	l.module(dir).frequency = hz
	return nil
}

func (l *Loopback) GetFrequency(dir Direction) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.guard("get frequency"); err != nil {
		return 0, err
	}
	return l.module(dir).frequency, nil
}

func (l *Loopback) SetSampleRate(dir Direction, hz uint) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.guard("set sample rate"); err != nil {
		return err
	}
	if hz < loopbackMinSampleRate || hz > loopbackMaxSampleRate {
		return &Error{Op: "set sample rate", Code: ErrRange,
			detail: fmt.Sprintf("%d Hz", hz)}
	}
	l.module(dir).sampleRate = hz
	return nil
}

func (l *Loopback) GetSampleRate(dir Direction) (uint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.guard("get sample rate"); err != nil {
		return 0, err
	}
	return l.module(dir).sampleRate, nil
}

func (l *Loopback) SetGain(dir Direction, db int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.guard("set gain"); err != nil {
		return err
	}
	if db < loopbackMinGain || db > loopbackMaxGain {
		return &Error{Op: "set gain", Code: ErrRange,
			detail: fmt.Sprintf("%d dB", db)}
	}
	l.module(dir).gain = db
	return nil
}

func (l *Loopback) EnableModule(dir Direction, enable bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.guard("enable module"); err != nil {
		return err
	}
	l.module(dir).enabled = enable
	return nil
}

// Stream moves one buffer through the loopback FIFO. TX appends the
// buffer; RX drains previously transmitted samples and zero-fills the
// remainder. The module must be enabled first.
func (l *Loopback) Stream(ctx context.Context, dir Direction, buf []int16) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, &Error{Op: "stream", Code: ErrTimeout, detail: err.Error()}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.guard("stream"); err != nil {
		return 0, err
	}
	if !l.module(dir).enabled {
		return 0, &Error{Op: "stream", Code: ErrInval,
			detail: fmt.Sprintf("%s module not enabled", dir)}
	}

	if dir == TX {
		l.fifo = append(l.fifo, buf...)
		return len(buf), nil
	}

	n := copy(buf, l.fifo)
	l.fifo = l.fifo[n:]
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	return len(buf), nil
}

// Close releases the device. Further calls fail with ErrNoDev.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return &Error{Op: "close", Code: ErrNoDev, detail: "already closed"}
	}
	l.closed = true
	l.fifo = nil
	return nil
}
