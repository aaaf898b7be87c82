// Package procexec runs local processes behind an interface so callers can be
// tested without spawning anything.
package procexec

import (
	"context"
	"io"
	"os/exec"
	"sync"
)

// CommandExecutor runs one built command.
type CommandExecutor interface {
	// Output runs the command and returns its stdout. Stderr is discarded.
	Output() ([]byte, error)

	// Run runs the command with stdout and stderr attached to the writers
	// set with SetOutput.
	Run() error

	// SetEnv sets the full environment of the command. A nil env inherits
	// the current process environment.
	SetEnv(env []string)

	// SetOutput attaches stdout and stderr for Run.
	SetOutput(stdout, stderr io.Writer)
}

// CommandBuilder builds commands.
type CommandBuilder interface {
	// BuildCommand creates a CommandExecutor that is killed when ctx is done.
	BuildCommand(ctx context.Context, name string, args ...string) CommandExecutor
}

// RealCommandExecutor wraps exec.Cmd to implement CommandExecutor.
type RealCommandExecutor struct {
	cmd *exec.Cmd
}

// Output runs the command and returns stdout.
func (r *RealCommandExecutor) Output() ([]byte, error) {
	return r.cmd.Output()
}

// Run runs the command to completion.
func (r *RealCommandExecutor) Run() error {
	return r.cmd.Run()
}

// SetEnv sets the command environment.
func (r *RealCommandExecutor) SetEnv(env []string) {
	r.cmd.Env = env
}

// SetOutput sets stdout and stderr.
func (r *RealCommandExecutor) SetOutput(stdout, stderr io.Writer) {
	r.cmd.Stdout = stdout
	r.cmd.Stderr = stderr
}

// RealCommandBuilder implements CommandBuilder using exec.CommandContext.
type RealCommandBuilder struct{}

// NewRealCommandBuilder creates a new RealCommandBuilder.
func NewRealCommandBuilder() *RealCommandBuilder {
	return &RealCommandBuilder{}
}

// BuildCommand creates a CommandExecutor for the given command and arguments.
func (b *RealCommandBuilder) BuildCommand(ctx context.Context, name string, args ...string) CommandExecutor {
	return &RealCommandExecutor{cmd: exec.CommandContext(ctx, name, args...)}
}

// MockCommandExecutor implements CommandExecutor for testing.
type MockCommandExecutor struct {
	// Stdout is returned from Output and written to the stdout writer by Run.
	Stdout []byte
	// Err is the error to return from Output and Run.
	Err error
	// Env holds the environment that was set.
	Env []string
	// RunCalled indicates whether Output or Run was called.
	RunCalled bool

	stdout io.Writer
}

// Output returns the configured stdout and error.
func (m *MockCommandExecutor) Output() ([]byte, error) {
	m.RunCalled = true
	return m.Stdout, m.Err
}

// Run writes the configured stdout and returns the configured error.
func (m *MockCommandExecutor) Run() error {
	m.RunCalled = true
	if m.stdout != nil && len(m.Stdout) > 0 {
		if _, err := m.stdout.Write(m.Stdout); err != nil {
			return err
		}
	}
	return m.Err
}

// SetEnv records the environment.
func (m *MockCommandExecutor) SetEnv(env []string) {
	m.Env = env
}

// SetOutput records the stdout writer.
func (m *MockCommandExecutor) SetOutput(stdout, _ io.Writer) {
	m.stdout = stdout
}

// MockCommandBuilder implements CommandBuilder for testing.
type MockCommandBuilder struct {
	mu sync.Mutex
	// Commands records all commands that were built.
	Commands []MockBuiltCommand
	// ExecutorFactory creates executors based on the command. If nil, each
	// command gets an empty MockCommandExecutor.
	ExecutorFactory func(name string, args []string) *MockCommandExecutor
}

// MockBuiltCommand records details of a built command.
type MockBuiltCommand struct {
	Name     string
	Args     []string
	Executor *MockCommandExecutor
}

// NewMockCommandBuilder creates a new MockCommandBuilder.
func NewMockCommandBuilder() *MockCommandBuilder {
	return &MockCommandBuilder{}
}

// BuildCommand creates a MockCommandExecutor and records the command details.
func (b *MockCommandBuilder) BuildCommand(_ context.Context, name string, args ...string) CommandExecutor {
	b.mu.Lock()
	defer b.mu.Unlock()
	var executor *MockCommandExecutor
	if b.ExecutorFactory != nil {
		executor = b.ExecutorFactory(name, args)
	}
	if executor == nil {
		executor = &MockCommandExecutor{}
	}
	b.Commands = append(b.Commands, MockBuiltCommand{Name: name, Args: args, Executor: executor})
	return executor
}

// Built returns a copy of the recorded commands.
func (b *MockCommandBuilder) Built() []MockBuiltCommand {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]MockBuiltCommand(nil), b.Commands...)
}

// LastCommand returns the most recently built command, or nil if none.
func (b *MockCommandBuilder) LastCommand() *MockBuiltCommand {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Commands) == 0 {
		return nil
	}
	return &b.Commands[len(b.Commands)-1]
}

// Reset clears all recorded commands.
func (b *MockCommandBuilder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Commands = nil
}
