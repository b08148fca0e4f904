// Package cmdutil provides bounded external tool invocation.
//
// Every probe and collector that shells out goes through this package so
// the external tool contract is enforced in one place: the tool's
// presence is resolved before invoking, every invocation carries an
// explicit timeout, and unexpected exit codes surface as errors the
// caller can downgrade to "no data".
package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Exists reports whether the named tool is resolvable on PATH.
func Exists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Run executes the named tool with the given arguments under a hard
// timeout and returns its stdout. The tool must be resolvable on PATH.
//
// On a non-zero exit the captured stdout is still returned alongside the
// error: some tools (smartctl in particular) emit valid payloads with
// informational exit bits set, and the caller decides whether the code
// is acceptable via ExitCode.
func Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", name, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, path, args...)
	out, err := cmd.Output()
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return string(out), fmt.Errorf("%s timed out after %s: %w", name, timeout, runCtx.Err())
		}
		return string(out), fmt.Errorf("failed to execute %s: %w", name, err)
	}

	return string(out), nil
}

// ExitCode extracts the process exit code from a Run error. It returns
// -1 when the error does not carry one (lookup failure, timeout, signal).
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
