// Package script manages the nested stack of script files the CLI is
// executing. Running a script suspends the current input source; the
// outer source resumes when the inner script is exhausted or aborted.
package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// DefaultMaxDepth bounds script nesting when no limit is configured.
const DefaultMaxDepth = 16

// Stack errors.
var (
	// ErrDepthExceeded reports that a push would exceed the nesting
	// limit. The stack is left unchanged.
	ErrDepthExceeded = errors.New("script nesting depth exceeded")

	// ErrEmptyStack reports a pop or advance on an empty stack. This is
	// a programming error in the caller, not a user-facing condition.
	ErrEmptyStack = errors.New("operation on empty script stack")
)

// Entry is one active script source. The entry owns its file handle;
// the handle is released when the entry is popped.
type Entry struct {
	Path string
	Line int // last line consumed, 1-based; 0 before the first read

	file    *os.File
	scanner *bufio.Scanner
}

// Stack is the ordered list of active script sources, innermost last.
// An empty stack means interactive mode.
//
// Only the command-dispatch goroutine mutates the stack today, but it
// is lock-guarded so streaming-side callers can safely read the current
// position for diagnostics.
type Stack struct {
	mu       sync.Mutex
	entries  []*Entry
	maxDepth int
}

// NewStack returns an empty stack bounded to maxDepth nested scripts.
// A non-positive maxDepth selects DefaultMaxDepth.
func NewStack(maxDepth int) *Stack {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Stack{maxDepth: maxDepth}
}

// Push opens path and makes it the innermost input source. On failure
// the stack is unchanged: ErrDepthExceeded when the nesting limit is
// reached, otherwise the wrapped file-open error.
func (s *Stack) Push(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.maxDepth {
		return fmt.Errorf("%w (limit %d)", ErrDepthExceeded, s.maxDepth)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open script: %w", err)
	}

	s.entries = append(s.entries, &Entry{
		Path:    path,
		file:    f,
		scanner: bufio.NewScanner(f),
	})
	return nil
}

// Pop removes the innermost entry and releases its file handle.
// Callers must check Empty first; popping an empty stack returns
// ErrEmptyStack.
func (s *Stack) Pop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return ErrEmptyStack
	}

	top := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return top.file.Close()
}

// Abort pops every entry, releasing all handles. Used when a fatal or
// script-aborting error occurs; the caller returns to interactive mode.
func (s *Stack) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		e.file.Close()
	}
	s.entries = nil
}

// Current returns the path and line number of the innermost entry, or
// ok=false in interactive mode.
func (s *Stack) Current() (path string, line int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return "", 0, false
	}
	top := s.entries[len(s.entries)-1]
	return top.Path, top.Line, true
}

// Depth returns the number of nested scripts.
func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Empty reports whether the CLI is in interactive mode.
func (s *Stack) Empty() bool { return s.Depth() == 0 }

// AdvanceLine increments the innermost entry's line counter. Purely
// diagnostic; error messages use it to point at the failing line.
func (s *Stack) AdvanceLine() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return ErrEmptyStack
	}
	s.entries[len(s.entries)-1].Line++
	return nil
}

// ReadLine reads the next line from the innermost entry. It returns
// io.EOF when the source is exhausted; the caller then pops the entry
// to resume the outer source. ReadLine does not advance the line
// counter; callers advance it once per consumed line.
func (s *Stack) ReadLine() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return "", ErrEmptyStack
	}

	top := s.entries[len(s.entries)-1]
	if !top.scanner.Scan() {
		if err := top.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return top.scanner.Text(), nil
}
