package provider

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// commandRunner runs a program and returns its combined output and exit code.
// exitCode is -1 when the program could not be started.
type commandRunner func(ctx context.Context, name string, args ...string) (output []byte, exitCode int, err error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return out.Bytes(), exitErr.ExitCode(), nil
		}
		return out.Bytes(), -1, runErr
	}
	return out.Bytes(), 0, nil
}

// elevatedKillCommand returns the privileged force-kill command for goos.
// sudo runs with -n so it fails instead of prompting inside the dashboard.
func elevatedKillCommand(goos string, pid int32) (string, []string) {
	id := strconv.Itoa(int(pid))
	if goos == "windows" {
		return "taskkill", []string{"/F", "/PID", id}
	}
	return "sudo", []string{"-n", "kill", "-9", id}
}

func killElevated(ctx context.Context, run commandRunner, pid int32) error {
	name, args := elevatedKillCommand(runtime.GOOS, pid)

	out, code, err := run(ctx, name, args...)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("run %s: %w", name, err)
	}
	if code == 0 {
		return nil
	}
	return classifyElevatedOutput(pid, name, strings.TrimSpace(string(out)), code)
}

// classifyElevatedOutput interprets a failed sudo/kill or taskkill run.
func classifyElevatedOutput(pid int32, name, output string, code int) error {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "no such process"),
		strings.Contains(lower, "not found"):
		return fmt.Errorf("pid %d: %s: %w", pid, output, ErrNoSuchProcess)
	case strings.Contains(lower, "password is required"),
		strings.Contains(lower, "not in the sudoers"),
		strings.Contains(lower, "not allowed"),
		strings.Contains(lower, "access is denied"),
		strings.Contains(lower, "operation not permitted"):
		return fmt.Errorf("pid %d: %s: %w", pid, output, ErrPermission)
	default:
		return fmt.Errorf("%s exited with code %d: %s", name, code, output)
	}
}
