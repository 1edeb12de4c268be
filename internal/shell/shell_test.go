package shell

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenselo/bladeRF/internal/config"
	"github.com/jenselo/bladeRF/internal/state"
	"github.com/jenselo/bladeRF/pkg/types"
)

// testShell builds a shell over piped input with separate buffers for
// command output and error reports.
func testShell(t *testing.T, input string) (*Shell, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	var out, errOut bytes.Buffer
	st := state.New(state.Options{Output: &errOut, MaxScriptDepth: 4})
	t.Cleanup(func() { st.Close() })

	sh, err := New(Options{
		State: st,
		Config: config.Config{
			Prompt:      "bladeRF> ",
			HistoryFile: filepath.Join(t.TempDir(), "history"),
		},
		Input:   strings.NewReader(input),
		Output:  &out,
		Version: "test",
	})
	require.NoError(t, err)
	return sh, &out, &errOut
}

func writeScript(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunQuit(t *testing.T) {
	sh, _, errOut := testShell(t, "quit\n")
	assert.Equal(t, exitSuccess, sh.Run())
	assert.Empty(t, errOut.String())
}

func TestRunEOFExits(t *testing.T) {
	sh, _, _ := testShell(t, "")
	assert.Equal(t, exitSuccess, sh.Run())
}

func TestUnknownCommandReported(t *testing.T) {
	sh, _, errOut := testShell(t, "frobnicate\nquit\n")
	assert.Equal(t, exitSuccess, sh.Run(), "recoverable errors keep the loop alive")
	assert.Contains(t, errOut.String(), "No such command exists")
}

func TestBlankAndCommentLines(t *testing.T) {
	sh, _, errOut := testShell(t, "\n   \n# a comment\nquit\n")
	assert.Equal(t, exitSuccess, sh.Run())
	assert.Empty(t, errOut.String())
}

func TestOpenSetPrint(t *testing.T) {
	input := strings.Join([]string{
		"open loopback:bench",
		"set frequency 915000000",
		"print frequency",
		"close",
		"quit",
	}, "\n") + "\n"

	sh, out, errOut := testShell(t, input)
	assert.Equal(t, exitSuccess, sh.Run())
	assert.Empty(t, errOut.String())
	assert.Contains(t, out.String(), "Opened device bench")
	assert.Contains(t, out.String(), "rx frequency: 915000000 Hz")
	assert.Contains(t, out.String(), "Device closed")
}

func TestCommandsWithoutDevice(t *testing.T) {
	sh, _, errOut := testShell(t, "print frequency\nquit\n")
	assert.Equal(t, exitSuccess, sh.Run())
	assert.Contains(t, errOut.String(), "No device is currently opened")

	kind, code := sh.st.LastError()
	assert.Equal(t, types.KindCli, kind)
	assert.Equal(t, types.RetNoDev, code)
}

func TestSetOutOfRangeReportsDeviceError(t *testing.T) {
	input := "open\nset frequency 1\nquit\n"
	sh, _, errOut := testShell(t, input)
	assert.Equal(t, exitSuccess, sh.Run())
	assert.Contains(t, errOut.String(), "out of the allowed range")
}

func TestExecuteArgValidation(t *testing.T) {
	sh, _, _ := testShell(t, "")

	tests := []struct {
		name string
		line string
		want int
	}{
		{name: "missing args", line: "set frequency", want: types.RetNArgs},
		{name: "surplus args", line: "close now please", want: types.RetNArgs},
		{name: "bad numeric value", line: "set frequency banana", want: types.RetInvParam},
		{name: "bad direction", line: "set gain 10 sideways", want: types.RetInvParam},
		{name: "unknown parameter", line: "set voltage 5", want: types.RetInvParam},
		{name: "unknown command", line: "nope", want: types.RetNoCmd},
		{name: "too many args", line: "echo " + strings.Repeat("x ", maxArgs+1), want: types.RetMaxArgs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sh.execute(tt.line))
		})
	}
}

func TestRunCommandSignalsScriptStart(t *testing.T) {
	script := writeScript(t, "noop.cfg", "echo hi\n")

	sh, _, _ := testShell(t, "")
	assert.Equal(t, types.RetRunScript, sh.execute("run "+script))
	assert.False(t, sh.st.Scripts().Empty(), "script pushed as the innermost source")
}

func TestRunScriptExecutesCommands(t *testing.T) {
	script := writeScript(t, "bench.cfg", strings.Join([]string{
		"open loopback:scripted",
		"set frequency 433000000",
		"print frequency",
		"close",
	}, "\n")+"\n")

	sh, out, errOut := testShell(t, "")
	assert.Equal(t, exitSuccess, sh.RunScript(script))
	assert.Empty(t, errOut.String())
	assert.Contains(t, out.String(), "rx frequency: 433000000 Hz")
	assert.True(t, sh.st.Scripts().Empty(), "script popped after exhaustion")
}

func TestNestedScriptErrorAnnotation(t *testing.T) {
	inner := writeScript(t, "b.cfg", "version\nfrobnicate\n")
	outer := writeScript(t, "a.cfg", "run "+inner+"\n")

	sh, _, errOut := testShell(t, "")
	assert.Equal(t, exitSuccess, sh.RunScript(outer))

	report := errOut.String()
	assert.Contains(t, report, "b.cfg")
	assert.Contains(t, report, "(line 2)")
	assert.NotContains(t, report, "a.cfg (line")
}

func TestScriptErrorAbortsAllLevels(t *testing.T) {
	inner := writeScript(t, "inner.cfg", "frobnicate\n")
	outer := writeScript(t, "outer.cfg", "run "+inner+"\necho should not run\n")

	sh, out, _ := testShell(t, "")
	assert.Equal(t, exitSuccess, sh.RunScript(outer))
	assert.NotContains(t, out.String(), "should not run",
		"a recoverable script error abandons the outer script too")
	assert.True(t, sh.st.Scripts().Empty())
}

func TestRunMissingScript(t *testing.T) {
	sh, _, errOut := testShell(t, "")
	assert.Equal(t, exitFailure, sh.RunScript(filepath.Join(t.TempDir(), "nope.cfg")))
	assert.Contains(t, errOut.String(), "File operation failed")

	_, code := sh.st.LastError()
	assert.Equal(t, types.RetFileOp, code)
}

func TestScriptNestingDepthBounded(t *testing.T) {
	// self.cfg re-runs itself; the depth bound turns the recursion into
	// a nesting error instead of resource exhaustion.
	dir := t.TempDir()
	self := filepath.Join(dir, "self.cfg")
	require.NoError(t, os.WriteFile(self, []byte("run "+self+"\n"), 0o644))

	sh, _, errOut := testShell(t, "")
	assert.Equal(t, exitSuccess, sh.RunScript(self))
	assert.Contains(t, errOut.String(), "Script nesting depth exceeded")
}

func TestStreamingLifecycle(t *testing.T) {
	sh, _, _ := testShell(t, "")
	t.Cleanup(sh.shutdown)

	require.Equal(t, types.RetOK, sh.execute("open"))
	require.Equal(t, types.RetOK, sh.execute("rx start"))
	assert.Eventually(t, sh.st.IsStreaming, time.Second, 5*time.Millisecond)

	assert.Equal(t, types.RetState, sh.execute("rx start"), "second start is a state error")
	assert.Equal(t, types.RetBusy, retFromErr(sh.st.CloseDevice()), "close refused while streaming")

	require.Equal(t, types.RetOK, sh.execute("rx stop"))
	assert.False(t, sh.st.IsStreaming())
	assert.Equal(t, types.RetState, sh.execute("rx stop"), "stop while idle is a state error")

	require.Equal(t, types.RetOK, sh.execute("close"))
}

func TestStreamingOutlivesScript(t *testing.T) {
	script := writeScript(t, "stream.cfg", "open\nrx start\n")

	sh, _, errOut := testShell(t, "")
	t.Cleanup(sh.shutdown)

	require.Equal(t, types.RetRunScript, cmdRun(sh, []string{script}))
	for !sh.st.Scripts().Empty() {
		line, err := sh.st.Scripts().ReadLine()
		if err != nil {
			require.NoError(t, sh.st.Scripts().Pop())
			continue
		}
		require.NoError(t, sh.st.Scripts().AdvanceLine())
		sh.execute(line)
	}

	assert.Eventually(t, sh.st.IsStreaming, time.Second, 5*time.Millisecond,
		"streaming continues after the script source is exhausted")
	assert.Empty(t, errOut.String())
}

// brokenTask stands in for a streaming backend whose start failure the
// command layer cannot classify.
type brokenTask struct{}

func (brokenTask) Start() error  { return errors.New("transfer backend unavailable") }
func (brokenTask) Stop()         {}
func (brokenTask) Running() bool { return false }

func TestFatalErrorTerminatesLoop(t *testing.T) {
	sh, out, errOut := testShell(t, "rx start\necho still alive\nquit\n")
	sh.rx = brokenTask{}

	assert.Equal(t, exitFailure, sh.Run())
	assert.Contains(t, errOut.String(), "An unexpected error occurred")
	assert.NotContains(t, out.String(), "still alive",
		"a fatal code ends the loop before the next line")
}

func TestExec(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		sh, out, errOut := testShell(t, "")
		assert.Equal(t, exitSuccess, sh.Exec("echo one shot"))
		assert.Contains(t, out.String(), "one shot")
		assert.Empty(t, errOut.String())
	})

	t.Run("failure", func(t *testing.T) {
		sh, _, errOut := testShell(t, "")
		assert.Equal(t, exitFailure, sh.Exec("frobnicate"))
		assert.Contains(t, errOut.String(), "No such command exists")
	})

	t.Run("quit", func(t *testing.T) {
		sh, _, _ := testShell(t, "")
		assert.Equal(t, exitSuccess, sh.Exec("quit"))
	})
}

func TestVersionCommand(t *testing.T) {
	sh, out, _ := testShell(t, "version\nquit\n")
	assert.Equal(t, exitSuccess, sh.Run())
	assert.Contains(t, out.String(), "bladerf-cli test")
}

func TestHelpListsCommands(t *testing.T) {
	sh, out, _ := testShell(t, "help\nquit\n")
	assert.Equal(t, exitSuccess, sh.Run())
	for _, name := range []string{"open", "close", "run", "rx", "tx", "quit"} {
		assert.Contains(t, out.String(), name)
	}
}
