// Package rxtx runs background sample-transfer tasks. Each direction
// has at most one task; a task flags the direction active on the
// coordinator while its transfer loop runs and reports any driver
// failure before exiting.
package rxtx

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jenselo/bladeRF/internal/device"
	"github.com/jenselo/bladeRF/internal/state"
	"github.com/jenselo/bladeRF/pkg/types"
)

// ErrAlreadyRunning reports a start on a direction that is already
// streaming.
var ErrAlreadyRunning = errors.New("stream task already running")

const (
	// bufferSamples is the number of interleaved samples moved per
	// transfer.
	bufferSamples = 4096

	// transferInterval paces the transfer loop so a fast device does
	// not spin the goroutine hot.
	transferInterval = 10 * time.Millisecond
)

// Task is one directional streaming worker. The zero value is not
// usable; create tasks with NewTask.
type Task struct {
	dir device.Direction
	st  *state.State
	log *slog.Logger

	mu     sync.Mutex
	id     uuid.UUID
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTask returns an idle task for the given direction.
func NewTask(dir device.Direction, st *state.State, log *slog.Logger) *Task {
	return &Task{dir: dir, st: st, log: log}
}

// Running reports whether the transfer loop is active.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done != nil
}

// Start enables the module and launches the transfer loop. It fails
// with ErrAlreadyRunning if the task is active, or with the driver's
// error (already recorded by the coordinator) if the module cannot be
// enabled.
func (t *Task) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done != nil {
		t.st.SetLastError(types.KindCli, types.RetState)
		return ErrAlreadyRunning
	}

	err := t.st.WithDevice(func(d device.Device) error {
		return d.EnableModule(t.dir, true)
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.id = uuid.New()
	t.cancel = cancel
	t.done = make(chan struct{})

	// Raise the streaming flag before Start returns so a close cannot
	// slip in between Start and the loop's first iteration; the loop
	// clears it on exit.
	t.st.SetStreaming(t.dir, true)

	t.log.Info("stream started", "dir", t.dir.String(), "task", t.id.String())
	go t.run(ctx, t.done)
	return nil
}

// Stop requests shutdown of the transfer loop and blocks until it has
// exited. Stopping an idle task is a no-op.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Wait blocks until the transfer loop exits on its own (driver failure
// or Stop from another goroutine). Waiting on an idle task returns
// immediately.
func (t *Task) Wait() {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (t *Task) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer t.reset()
	defer t.st.SetStreaming(t.dir, false)

	buf := make([]int16, bufferSamples)
	ticker := time.NewTicker(transferInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.disableModule()
			t.log.Info("stream stopped", "dir", t.dir.String(), "task", t.id.String())
			return
		case <-ticker.C:
		}

		if _, err := t.st.Stream(ctx, t.dir, buf); err != nil {
			// The coordinator has recorded the classified error; emit
			// the one user-visible line from the streaming side.
			kind, code := t.st.LastError()
			t.st.ReportError(t.dir.String(), kind, code, "")
			t.disableModule()
			return
		}
	}
}

// disableModule powers the module down, ignoring failures on a device
// that is already gone.
func (t *Task) disableModule() {
	err := t.st.WithDevice(func(d device.Device) error {
		return d.EnableModule(t.dir, false)
	})
	if err != nil {
		t.log.Debug("disable module failed", "dir", t.dir.String(), "err", err)
	}
}

func (t *Task) reset() {
	t.mu.Lock()
	t.cancel = nil
	t.done = nil
	t.mu.Unlock()
}
