package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// MockResponse is a canned command result.
type MockResponse struct {
	Stdout string
	Err    error
}

// MockCall records one command executed by a mock runner.
type MockCall struct {
	WorkDir string
	Command string
	Args    []string
	Stdin   []byte
}

// MockRunner answers commands from a lookup table keyed by
// "name arg1 arg2...", falling back to the command name alone, then "*",
// then DefaultResponse.
type MockRunner struct {
	mu              sync.Mutex
	Responses       map[string]MockResponse
	DefaultResponse MockResponse
	Calls           []MockCall
}

// NewMockRunner creates an empty mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{Responses: make(map[string]MockResponse)}
}

// MockExpectation registers a response for a command key.
type MockExpectation struct {
	runner *MockRunner
	key    string
}

// OnCommand starts a response registration for an exact command line.
func (m *MockRunner) OnCommand(name string, args ...string) *MockExpectation {
	return &MockExpectation{runner: m, key: commandKey(name, args)}
}

// OnAnyCommand starts a response registration matching every command.
func (m *MockRunner) OnAnyCommand() *MockExpectation {
	return &MockExpectation{runner: m, key: "*"}
}

// Return sets the response for the expectation.
func (e *MockExpectation) Return(stdout string, err error) {
	e.runner.mu.Lock()
	defer e.runner.mu.Unlock()
	e.runner.Responses[e.key] = MockResponse{Stdout: stdout, Err: err}
}

// Run implements CommandRunner.
func (m *MockRunner) Run(_ context.Context, dir string, stdin []byte, name string, args ...string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{WorkDir: dir, Command: name, Args: args, Stdin: stdin})

	for _, key := range []string{commandKey(name, args), name, "*"} {
		if resp, ok := m.Responses[key]; ok {
			return resp.Stdout, resp.Err
		}
	}
	return m.DefaultResponse.Stdout, m.DefaultResponse.Err
}

// WasCalled reports whether a command starting with name and args ran.
func (m *MockRunner) WasCalled(name string, args ...string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.Calls {
		if c.Command == name && argsMatch(c.Args, args) {
			return true
		}
	}
	return false
}

// CallCount returns how many times name ran.
func (m *MockRunner) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.Calls {
		if c.Command == name {
			n++
		}
	}
	return n
}

// SequentialMockRunner returns queued outputs in order, one per command.
type SequentialMockRunner struct {
	mu      sync.Mutex
	outputs []MockResponse
	next    int
	Calls   []MockCall
}

// NewSequentialMockRunner creates an empty sequential mock.
func NewSequentialMockRunner() *SequentialMockRunner {
	return &SequentialMockRunner{}
}

// AddOutput queues the result of the next command.
func (m *SequentialMockRunner) AddOutput(stdout string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs = append(m.outputs, MockResponse{Stdout: stdout, Err: err})
}

// AddOutputError queues a failed command exiting with status 1 and the
// given stderr. err defaults to a generic exit error.
func (m *SequentialMockRunner) AddOutputError(stdout, stderr string, err error) {
	if err == nil {
		err = errors.New("exit status 1")
	}
	m.AddOutput(stdout, &CommandError{Command: "git", Output: stderr, ExitCode: 1, Err: err})
}

// Run implements CommandRunner.
func (m *SequentialMockRunner) Run(_ context.Context, dir string, stdin []byte, name string, args ...string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{WorkDir: dir, Command: name, Args: args, Stdin: stdin})

	if m.next >= len(m.outputs) {
		return "", fmt.Errorf("unexpected command: %s", commandKey(name, args))
	}
	resp := m.outputs[m.next]
	m.next++
	return resp.Stdout, resp.Err
}

func commandKey(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// argsMatch reports whether expected is a prefix of actual.
func argsMatch(actual, expected []string) bool {
	if len(expected) > len(actual) {
		return false
	}
	for i, a := range expected {
		if actual[i] != a {
			return false
		}
	}
	return true
}
