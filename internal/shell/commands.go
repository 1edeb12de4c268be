package shell

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jenselo/bladeRF/internal/device"
	"github.com/jenselo/bladeRF/internal/rxtx"
	"github.com/jenselo/bladeRF/internal/script"
	"github.com/jenselo/bladeRF/internal/state"
	"github.com/jenselo/bladeRF/pkg/types"
)

// maxArgs bounds the number of whitespace-separated arguments accepted
// on one command line.
const maxArgs = 16

// command is one entry in the dispatch table.
type command struct {
	handler func(sh *Shell, args []string) int
	minArgs int
	maxArgs int // -1: unbounded
	help    string
}

// commands is populated in init; cmdHelp walks it, so a literal
// initializer would be an initialization cycle.
var commands map[string]command

func init() {
	commands = map[string]command{
		"open":    {cmdOpen, 0, 1, "open [device]               Open a device, e.g. open loopback:serial"},
		"close":   {cmdClose, 0, 0, "close                       Close the currently opened device"},
		"version": {cmdVersion, 0, 0, "version                     Show CLI and device version information"},
		"print":   {cmdPrint, 1, 2, "print <param> [rx|tx]       Print frequency or samplerate"},
		"set":     {cmdSet, 2, 3, "set <param> <value> [rx|tx] Set frequency, samplerate, or gain"},
		"run":     {cmdRun, 1, 1, "run <script>                Execute a script of commands"},
		"rx":      {cmdRx, 1, 1, "rx <start|stop>             Control sample reception"},
		"tx":      {cmdTx, 1, 1, "tx <start|stop>             Control sample transmission"},
		"echo":    {cmdEcho, 0, -1, "echo [text...]              Print the provided text"},
		"help":    {cmdHelp, 0, 0, "help                        Show this command summary"},
		"clear":   {cmdClear, 0, 0, "clear                       Clear the terminal"},
		"quit":    {cmdQuit, 0, 0, "quit                        Exit the CLI"},
		"exit":    {cmdQuit, 0, 0, "exit                        Exit the CLI"},
	}
}

// execute parses and dispatches one command line, returning a CLI
// return code. Blank lines and comments are no-ops.
func (sh *Shell) execute(line string) int {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return types.RetOK
	}

	name, args := fields[0], fields[1:]
	if len(args) > maxArgs {
		return types.RetMaxArgs
	}

	cmd, ok := commands[name]
	if !ok {
		return types.RetNoCmd
	}
	if len(args) < cmd.minArgs || (cmd.maxArgs >= 0 && len(args) > cmd.maxArgs) {
		return types.RetNArgs
	}
	return cmd.handler(sh, args)
}

// retFromErr translates a failure from the coordinator or driver into
// the CLI return code the loop reports.
func retFromErr(err error) int {
	var derr *device.Error
	switch {
	case err == nil:
		return types.RetOK
	case errors.Is(err, state.ErrNoDevice):
		return types.RetNoDev
	case errors.Is(err, state.ErrDeviceBusy):
		return types.RetBusy
	case errors.As(err, &derr):
		return types.RetDevError
	default:
		return types.RetUnknown
	}
}

func cmdOpen(sh *Shell, args []string) int {
	identifier := sh.cfg.Device
	if len(args) == 1 {
		identifier = args[0]
	}

	if err := sh.st.OpenDevice(identifier); err != nil {
		return retFromErr(err)
	}

	return retFromErr(sh.st.WithDevice(func(d device.Device) error {
		fmt.Fprintf(sh.out, "Opened device %s\n", d.Serial())
		return nil
	}))
}

func cmdClose(sh *Shell, args []string) int {
	if err := sh.st.CloseDevice(); err != nil {
		return retFromErr(err)
	}
	fmt.Fprintln(sh.out, "Device closed")
	return types.RetOK
}

func cmdVersion(sh *Shell, args []string) int {
	fmt.Fprintf(sh.out, "bladerf-cli %s\n", sh.version)

	if !sh.st.IsOpen() {
		return types.RetOK
	}
	err := sh.st.WithDevice(func(d device.Device) error {
		fmt.Fprintf(sh.out, "Device firmware: %s\n", d.Version())
		return nil
	})
	return retFromErr(err)
}

// parseDirection maps an optional trailing rx/tx argument, defaulting
// to RX.
func parseDirection(args []string, n int) (device.Direction, bool) {
	if len(args) <= n {
		return device.RX, true
	}
	switch args[n] {
	case "rx":
		return device.RX, true
	case "tx":
		return device.TX, true
	default:
		return device.RX, false
	}
}

func cmdPrint(sh *Shell, args []string) int {
	dir, ok := parseDirection(args, 1)
	if !ok {
		return types.RetInvParam
	}

	var read func(d device.Device) error
	switch args[0] {
	case "frequency":
		read = func(d device.Device) error {
			hz, err := d.GetFrequency(dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(sh.out, "  %s frequency: %d Hz\n", dir, hz)
			return nil
		}
	case "samplerate":
		read = func(d device.Device) error {
			hz, err := d.GetSampleRate(dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(sh.out, "  %s samplerate: %d Hz\n", dir, hz)
			return nil
		}
	default:
		return types.RetInvParam
	}

	return retFromErr(sh.st.WithDevice(read))
}

func cmdSet(sh *Shell, args []string) int {
	dir, ok := parseDirection(args, 2)
	if !ok {
		return types.RetInvParam
	}

	var apply func(d device.Device) error
	switch args[0] {
	case "frequency":
		hz, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return types.RetInvParam
		}
		apply = func(d device.Device) error { return d.SetFrequency(dir, hz) }
	case "samplerate":
		hz, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return types.RetInvParam
		}
		apply = func(d device.Device) error { return d.SetSampleRate(dir, uint(hz)) }
	case "gain":
		db, err := strconv.Atoi(args[1])
		if err != nil {
			return types.RetInvParam
		}
		apply = func(d device.Device) error { return d.SetGain(dir, db) }
	default:
		return types.RetInvParam
	}

	return retFromErr(sh.st.WithDevice(apply))
}

// cmdRun pushes the script and signals the loop with RetRunScript; the
// next iteration starts consuming the new innermost source.
func cmdRun(sh *Shell, args []string) int {
	err := sh.st.Scripts().Push(args[0])
	switch {
	case err == nil:
		return types.RetRunScript
	case errors.Is(err, script.ErrDepthExceeded):
		return types.RetNesting
	default:
		return types.RetFileOp
	}
}

func cmdRx(sh *Shell, args []string) int { return streamControl(sh, sh.rx, args[0]) }
func cmdTx(sh *Shell, args []string) int { return streamControl(sh, sh.tx, args[0]) }

func streamControl(sh *Shell, task streamTask, verb string) int {
	switch verb {
	case "start":
		err := task.Start()
		if errors.Is(err, rxtx.ErrAlreadyRunning) {
			return types.RetState
		}
		return retFromErr(err)
	case "stop":
		if !task.Running() {
			return types.RetState
		}
		task.Stop()
		return types.RetOK
	default:
		return types.RetInvParam
	}
}

func cmdEcho(sh *Shell, args []string) int {
	fmt.Fprintln(sh.out, strings.Join(args, " "))
	return types.RetOK
}

func cmdHelp(sh *Shell, args []string) int {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(sh.out, "  %s\n", commands[name].help)
	}
	return types.RetOK
}

func cmdClear(sh *Shell, args []string) int { return types.RetClearTerm }

func cmdQuit(sh *Shell, args []string) int { return types.RetQuit }
