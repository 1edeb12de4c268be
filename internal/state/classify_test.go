package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jenselo/bladeRF/internal/device"
	"github.com/jenselo/bladeRF/pkg/types"
)

// The CLI, driver, and OS code spaces overlap numerically; the kind tag
// must select the message table, never the code value.
func TestStrerrorKindDisambiguates(t *testing.T) {
	overlapping := []int{-2, -5, -6}
	for _, code := range overlapping {
		cli := Strerror(types.KindCli, code, 0)
		dev := Strerror(types.KindDevice, code, 0)
		assert.NotEqual(t, cli, dev, "code %d must format differently per kind", code)
	}
}

func TestStrerror(t *testing.T) {
	tests := []struct {
		name    string
		kind    types.ErrorKind
		code    int
		devCode int
		want    string
	}{
		{
			name: "cli code",
			kind: types.KindCli,
			code: types.RetNoDev,
			want: "No device is currently opened",
		},
		{
			name:    "device indirection resolves cached driver code",
			kind:    types.KindCli,
			code:    types.RetDevError,
			devCode: device.ErrTimeout,
			want:    "Operation timed out",
		},
		{
			name: "device code",
			kind: types.KindDevice,
			code: device.ErrRange,
			want: "Provided parameter was out of the allowed range",
		},
		{
			name: "system code without errno",
			kind: types.KindSystem,
			code: 0,
			want: "Unknown system error",
		},
		{
			name: "bug kind",
			kind: types.KindBug,
			code: 7,
			want: "A bug was encountered (code 7); please report it",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Strerror(tt.kind, tt.code, tt.devCode))
		})
	}
}

func TestStrerrorSystemErrno(t *testing.T) {
	msg := Strerror(types.KindSystem, 2, 0) // ENOENT
	assert.Contains(t, msg, "System error:")
	assert.NotEqual(t, "Unknown system error", msg)
}
