package state

import (
	"sync"

	"github.com/jenselo/bladeRF/pkg/types"
)

// ErrorRecord holds the last error encountered by any command, as a
// (kind, code) pair. The pair is always read and written together under
// the record's own lock, independent of the device lock, so concurrent
// reporters never interleave a kind from one write with a code from
// another.
type ErrorRecord struct {
	mu   sync.Mutex
	kind types.ErrorKind
	code int
}

// newErrorRecord returns a record initialized to the no-error sentinel.
func newErrorRecord() *ErrorRecord {
	return &ErrorRecord{kind: types.KindCli, code: types.RetOK}
}

// Set atomically replaces both fields. Always use this rather than
// touching the fields; concurrent reporters are ordered by the lock,
// last writer wins.
func (r *ErrorRecord) Set(kind types.ErrorKind, code int) {
	r.mu.Lock()
	r.kind = kind
	r.code = code
	r.mu.Unlock()
}

// Get atomically reads both fields as a consistent pair.
func (r *ErrorRecord) Get() (types.ErrorKind, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.kind, r.code
}
