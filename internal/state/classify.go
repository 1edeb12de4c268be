package state

import (
	"fmt"
	"syscall"

	"github.com/jenselo/bladeRF/internal/device"
	"github.com/jenselo/bladeRF/pkg/types"
)

// Strerror formats a tagged error code. CLI, driver, and OS codes share
// overlapping numeric ranges, so the kind is mandatory; the code value
// alone never selects a message table. devCode resolves the generic
// "device driver error" CLI code to the concrete driver failure.
func Strerror(kind types.ErrorKind, code, devCode int) string {
	switch kind {
	case types.KindCli:
		if code == types.RetDevError {
			return device.Strerror(devCode)
		}
		return types.RetString(code)
	case types.KindDevice:
		return device.Strerror(code)
	case types.KindSystem:
		if code > 0 {
			return fmt.Sprintf("System error: %s", syscall.Errno(code).Error())
		}
		return "Unknown system error"
	default:
		return fmt.Sprintf("A bug was encountered (code %d); please report it", code)
	}
}
