package procexec

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRealCommandExecutor_Output(t *testing.T) {
	builder := NewRealCommandBuilder()

	cmd := builder.BuildCommand(context.Background(), "echo", "arg1", "arg2")
	output, err := cmd.Output()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if strings.TrimSpace(string(output)) != "arg1 arg2" {
		t.Errorf("Expected 'arg1 arg2', got: %s", output)
	}
}

func TestRealCommandExecutor_Run_Error(t *testing.T) {
	builder := NewRealCommandBuilder()

	cmd := builder.BuildCommand(context.Background(), "sh", "-c", "exit 3")
	err := cmd.Run()
	if err == nil {
		t.Fatal("Expected error for failing command")
	}
}

func TestRealCommandExecutor_EnvAndOutput(t *testing.T) {
	builder := NewRealCommandBuilder()

	var stdout, stderr bytes.Buffer
	cmd := builder.BuildCommand(context.Background(), "sh", "-c", "echo $DEVICE; echo oops >&2")
	cmd.SetEnv([]string{"DEVICE=3"})
	cmd.SetOutput(&stdout, &stderr)
	if err := cmd.Run(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := stdout.String(); got != "3\n" {
		t.Errorf("stdout = %q, want %q", got, "3\n")
	}
	if got := stderr.String(); got != "oops\n" {
		t.Errorf("stderr = %q, want %q", got, "oops\n")
	}
}

func TestRealCommandExecutor_ContextCancel(t *testing.T) {
	builder := NewRealCommandBuilder()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := builder.BuildCommand(ctx, "sleep", "5").Run()
	if err == nil {
		t.Fatal("Expected error for killed command")
	}
	if time.Since(start) > 3*time.Second {
		t.Errorf("command was not killed on cancel")
	}
}

func TestMockCommandBuilder(t *testing.T) {
	builder := NewMockCommandBuilder()
	failure := errors.New("exit status 1")
	builder.ExecutorFactory = func(name string, args []string) *MockCommandExecutor {
		if name == "git" {
			return &MockCommandExecutor{Stdout: []byte("true\n")}
		}
		return &MockCommandExecutor{Err: failure}
	}

	out, err := builder.BuildCommand(context.Background(), "git", "rev-parse").Output()
	if err != nil || string(out) != "true\n" {
		t.Errorf("Output() = %q, %v", out, err)
	}

	var buf bytes.Buffer
	cmd := builder.BuildCommand(context.Background(), "train", "7")
	cmd.SetEnv([]string{"A=B"})
	cmd.SetOutput(&buf, &buf)
	if err := cmd.Run(); !errors.Is(err, failure) {
		t.Errorf("Run() error = %v, want %v", err, failure)
	}

	built := builder.Built()
	if len(built) != 2 {
		t.Fatalf("Expected 2 commands, got %d", len(built))
	}
	last := builder.LastCommand()
	if last.Name != "train" || len(last.Args) != 1 || last.Args[0] != "7" {
		t.Errorf("unexpected last command %+v", last)
	}
	if !last.Executor.RunCalled || len(last.Executor.Env) != 1 {
		t.Errorf("executor not run with env: %+v", last.Executor)
	}

	builder.Reset()
	if builder.LastCommand() != nil {
		t.Error("Expected no commands after Reset")
	}
}

func TestMockCommandExecutor_RunWritesStdout(t *testing.T) {
	var buf bytes.Buffer
	m := &MockCommandExecutor{Stdout: []byte("hello")}
	m.SetOutput(&buf, nil)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "hello" {
		t.Errorf("got %q", buf.String())
	}
}
