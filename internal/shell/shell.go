// Package shell runs the interactive command loop: it reads lines from
// the innermost script source or the line editor, dispatches them
// through the command table, and reports failures through the state
// coordinator.
package shell

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jenselo/bladeRF/internal/config"
	"github.com/jenselo/bladeRF/internal/device"
	"github.com/jenselo/bladeRF/internal/logging"
	"github.com/jenselo/bladeRF/internal/rxtx"
	"github.com/jenselo/bladeRF/internal/state"
	"github.com/jenselo/bladeRF/pkg/types"
)

// Process exit codes.
const (
	exitSuccess = 0
	exitFailure = 1
)

// streamTask is the streaming-control surface the command handlers
// need; satisfied by *rxtx.Task.
type streamTask interface {
	Start() error
	Stop()
	Running() bool
}

// Options configures a Shell.
type Options struct {
	// State is the coordinator. Required.
	State *state.State

	Config config.Config
	Logger *slog.Logger

	// Input supplies interactive lines; defaults to os.Stdin. A
	// terminal gets the readline editor, anything else a plain
	// scanner.
	Input io.Reader

	// Output receives command output; defaults to os.Stdout.
	Output io.Writer

	// Version is the CLI version string shown by the version command.
	Version string
}

// Shell is the command loop. It owns the line editor and the two
// streaming tasks; the coordinator is owned by the caller.
type Shell struct {
	st      *state.State
	cfg     config.Config
	log     *slog.Logger
	out     io.Writer
	editor  lineEditor
	rx      streamTask
	tx      streamTask
	version string
}

// New builds a shell around the given coordinator.
func New(opts Options) (*Shell, error) {
	in := opts.Input
	if in == nil {
		in = os.Stdin
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}

	editor, err := newEditor(in, opts.Config.HistoryFile)
	if err != nil {
		return nil, err
	}

	return &Shell{
		st:      opts.State,
		cfg:     opts.Config,
		log:     log,
		out:     out,
		editor:  editor,
		rx:      rxtx.NewTask(device.RX, opts.State, log),
		tx:      rxtx.NewTask(device.TX, opts.State, log),
		version: opts.Version,
	}, nil
}

// Run processes input until quit, EOF, or a fatal error and returns the
// process exit code.
func (sh *Shell) Run() int { return sh.run(false) }

// RunScript executes the script at path, then returns. Streaming tasks
// started by the script are stopped before returning so the process can
// exit cleanly.
func (sh *Shell) RunScript(path string) int {
	if code := cmdRun(sh, []string{path}); code < types.RetOK {
		sh.report(code)
		return exitFailure
	}
	return sh.run(true)
}

// Exec executes a single command line and returns the process exit
// code.
func (sh *Shell) Exec(line string) int {
	code := sh.execute(line)
	if code < types.RetOK && code != types.RetQuit {
		sh.report(code)
		sh.shutdown()
		return exitFailure
	}
	sh.shutdown()
	return exitSuccess
}

// run is the command loop. With exitWhenIdle set it ends once the
// script stack drains instead of falling back to the editor; the
// script-runner entry point uses this.
func (sh *Shell) run(exitWhenIdle bool) int {
	defer sh.editor.Close()

	for {
		scripted := !sh.st.Scripts().Empty()
		if !scripted && exitWhenIdle {
			sh.shutdown()
			return exitSuccess
		}

		line, err := sh.nextLine(scripted)
		if err != nil {
			if errors.Is(err, io.EOF) {
				if scripted {
					sh.popScript()
					continue
				}
				// Editor EOF (Ctrl-D): leave like quit does.
				fmt.Fprintln(sh.out)
				sh.shutdown()
				return exitSuccess
			}
			sh.st.ReportError("", types.KindSystem, 0, err.Error())
			sh.shutdown()
			return exitFailure
		}

		code := sh.execute(line)
		switch {
		case code == types.RetQuit:
			sh.shutdown()
			return exitSuccess
		case code == types.RetClearTerm:
			fmt.Fprint(sh.out, "\033[2J\033[H")
		case code < types.RetOK:
			sh.report(code)
			if types.Fatal(code) {
				sh.shutdown()
				return exitFailure
			}
			// A recoverable error aborts all script levels; the next
			// iteration returns to the interactive prompt.
			if scripted {
				sh.st.Scripts().Abort()
			}
		}
	}
}

// nextLine reads from the innermost script when scripted, otherwise
// from the editor. Script lines advance the entry's line counter so
// error reports point at the consumed line.
func (sh *Shell) nextLine(scripted bool) (string, error) {
	if scripted {
		line, err := sh.st.Scripts().ReadLine()
		if err != nil {
			return "", err
		}
		if err := sh.st.Scripts().AdvanceLine(); err != nil {
			return "", err
		}
		return line, nil
	}
	return sh.editor.ReadLine(sh.cfg.Prompt)
}

// popScript ends the innermost exhausted script source. A failed pop
// here means the loop's bookkeeping is wrong.
func (sh *Shell) popScript() {
	if err := sh.st.Scripts().Pop(); err != nil {
		sh.st.ReportError("", types.KindBug, types.RetUnknown, err.Error())
	}
}

// report emits the one user-visible line for a failed command.
func (sh *Shell) report(code int) {
	sh.st.ReportError("", types.KindCli, code, "")
}

// shutdown stops any active streaming tasks.
func (sh *Shell) shutdown() {
	sh.rx.Stop()
	sh.tx.Stop()
}
