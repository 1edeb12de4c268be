package device

import "fmt"

// Driver error codes. The numeric range deliberately mirrors the C
// library's and overlaps the CLI return codes; the two spaces are told
// apart by the error kind carried next to the code, never by value.
const (
	ErrUnexpected  = -1  // unexpected failure
	ErrRange       = -2  // provided parameter is out of range
	ErrInval       = -3  // invalid operation or parameter
	ErrMem         = -4  // memory allocation failure
	ErrIO          = -5  // file or device I/O failure
	ErrTimeout     = -6  // operation timed out
	ErrNoDev       = -7  // no devices available
	ErrUnsupported = -8  // operation not supported
	ErrMisaligned  = -9  // misaligned flash access
	ErrChecksum    = -10 // invalid checksum
)

var codeMessages = map[int]string{
	ErrUnexpected:  "An unexpected error occurred",
	ErrRange:       "Provided parameter was out of the allowed range",
	ErrInval:       "Invalid operation or parameter",
	ErrMem:         "A memory allocation error occurred",
	ErrIO:          "File or device I/O failure",
	ErrTimeout:     "Operation timed out",
	ErrNoDev:       "No devices available",
	ErrUnsupported: "Operation not supported",
	ErrMisaligned:  "Misaligned flash access",
	ErrChecksum:    "Invalid checksum",
}

// Strerror returns the description of a driver error code.
func Strerror(code int) string {
	if msg, ok := codeMessages[code]; ok {
		return msg
	}
	return "Unknown device error"
}

// Error is a failure reported by a device driver. Code is one of the
// Err* constants above.
type Error struct {
	Op   string // operation that failed, e.g. "set frequency"
	Code int

	detail string // optional driver-specific context
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, Strerror(e.Code), e.detail)
	}
	return fmt.Sprintf("%s: %s", e.Op, Strerror(e.Code))
}
