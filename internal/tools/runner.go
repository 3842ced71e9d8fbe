package tools

import (
	"bytes"
	"errors"
	"io"
	"os/exec"
)

// CommandRunner abstracts command execution on the target host.
type CommandRunner interface {
	Run(name string, args ...string) ([]byte, []byte, int32, error)
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

// Run executes name via os/exec. A binary that cannot be started reports exit 127.
func (r ExecRunner) Run(name string, args ...string) ([]byte, []byte, int32, error) {
	cmd := exec.Command(name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), stderr.Bytes(), int32(exitErr.ExitCode()), err
	}

	exitCode := int32(1)
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		exitCode = 127
	}
	return stdout.Bytes(), stderr.Bytes(), exitCode, err
}

// SudoRunner prefixes every command with non-interactive sudo.
type SudoRunner struct {
	Inner CommandRunner
}

func (r SudoRunner) Run(name string, args ...string) ([]byte, []byte, int32, error) {
	full := make([]string, 0, len(args)+2)
	full = append(full, "-n", name)
	full = append(full, args...)
	return r.Inner.Run("sudo", full...)
}

// Close closes Inner when it holds a connection.
func (r SudoRunner) Close() error {
	if c, ok := r.Inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
