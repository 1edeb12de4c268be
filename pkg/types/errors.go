// Package types defines the error taxonomy shared by the bladeRF CLI:
// the ErrorKind tag, the CLI-level return codes, and the message table
// that turns a tagged code into human-readable text.
package types

// ErrorKind identifies which subsystem's numbering space an error code
// belongs to. CLI, driver, and OS codes overlap numerically, so a raw
// code is meaningless without its kind.
type ErrorKind int

const (
	// KindBug marks a value that should never occur; the condition has
	// no better classification and indicates a programming error.
	KindBug ErrorKind = iota - 1

	// KindCli marks a Ret* code from this package.
	KindCli

	// KindDevice marks an error code reported by the device driver.
	KindDevice

	// KindSystem marks an OS-level errno value.
	KindSystem
)

// String returns the subsystem name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindBug:
		return "bug"
	case KindCli:
		return "cli"
	case KindDevice:
		return "device"
	case KindSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Fatal errors. Codes at or below RetFatal are unrecoverable for the
// command loop; everything between RetFatal and zero is a command-level
// failure the loop may continue past.
const (
	RetFatal   = -1024        // fatal error threshold
	RetMem     = RetFatal     // memory allocation failure
	RetUnknown = RetFatal - 1 // unexpected failure
)

// Non-fatal errors.
const (
	RetQuit     = -1  // got request to quit
	RetNoCmd    = -2  // non-existent command
	RetMaxArgs  = -3  // maximum number of arguments reached
	RetInvParam = -4  // invalid parameter provided
	RetDevError = -5  // see the cached device error for details
	RetNoDev    = -6  // no device is currently opened
	RetNArgs    = -7  // invalid number of arguments provided
	RetNoFPGA   = -8  // FPGA not programmed
	RetState    = -9  // operation invalid for current state
	RetFileOp   = -10 // file operation failed
	RetBusy     = -11 // device is currently busy
	RetNesting  = -12 // script nesting depth exceeded
)

// RetOK indicates a successful command.
const RetOK = 0

// Other state changes requested by command handlers.
const (
	RetClearTerm = 1 // clear the terminal
	RetRunScript = 2 // run a script
)

// Fatal reports whether the provided CLI return code is fatal.
func Fatal(code int) bool { return code <= RetFatal }

// retMessages maps CLI return codes to their descriptions. Codes from
// other kinds must not be looked up here; see Strerror callers.
var retMessages = map[int]string{
	RetMem:      "A memory allocation failure occurred",
	RetUnknown:  "An unexpected error occurred",
	RetQuit:     "Received request to quit",
	RetNoCmd:    "No such command exists",
	RetMaxArgs:  "Number of arguments exceeds allowed maximum",
	RetInvParam: "Invalid parameter provided",
	RetDevError: "A device driver error occurred",
	RetNoDev:    "No device is currently opened",
	RetNArgs:    "Invalid number of arguments provided",
	RetNoFPGA:   "The device's FPGA is not programmed",
	RetState:    "Operation invalid in the current state",
	RetFileOp:   "File operation failed",
	RetBusy:     "Could not complete the operation, device is currently busy",
	RetNesting:  "Script nesting depth exceeded",
}

// RetString returns the description of a CLI return code. The caller
// must have already established that the code's kind is KindCli.
func RetString(code int) string {
	if msg, ok := retMessages[code]; ok {
		return msg
	}
	return "Unknown error code"
}
