package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

const maxOutputBytes = 2 << 20

type CommandExecError struct {
	ExitCode int
	Output   string
}

func (e *CommandExecError) Error() string {
	return fmt.Sprintf("command failed with exit code %d", e.ExitCode)
}

func (sb *sandbox) commandHandler(ctx context.Context, action ToolTask) (string, error) {
	return withParsed[CommandAction](action.Parameters, action.Key, func(ca CommandAction) (string, error) {
		return sb.runCommand(ctx, ca.Command)
	})
}

// runCommand executes one argv directly, never through a shell. Policy
// checks (allow-list, forbidden patterns) happen in the security
// validator before dispatch; the guards here are a hard floor.
func (sb *sandbox) runCommand(ctx context.Context, cmdline string) (string, error) {
	cmdline = strings.TrimSpace(cmdline)
	if cmdline == "" {
		return "", errors.New("command is required")
	}
	if err := forbidShellMeta(cmdline); err != nil {
		return "", err
	}

	tokens := strings.Fields(cmdline)
	exe := tokens[0]
	if _, err := exec.LookPath(exe); err != nil {
		return "", fmt.Errorf("%q not found in PATH", exe)
	}

	cmd := exec.CommandContext(ctx, exe, tokens[1:]...)
	if sb.root != "" {
		cmd.Dir = sb.root
	}

	cw := &cappedWriter{max: maxOutputBytes}
	cmd.Stdout = cw
	cmd.Stderr = cw

	if err := cmd.Start(); err != nil {
		return "", err
	}
	waitErr := cmd.Wait()

	out := cw.String()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return out, context.DeadlineExceeded
	}
	if waitErr != nil {
		var ee *exec.ExitError
		if errors.As(waitErr, &ee) {
			return out, &CommandExecError{ExitCode: ee.ExitCode(), Output: out + "\n" + waitErr.Error()}
		}
		return out, waitErr
	}

	log.Printf("✅ %s executed successfully.\n", exe)
	return out, nil
}

func forbidShellMeta(s string) error {
	if strings.ContainsAny(s, "\n\r`$()<>|;&") {
		return errors.New("shell metacharacters are not allowed")
	}
	return nil
}

type cappedWriter struct {
	buf bytes.Buffer
	max int64
	n   int64
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	remain := w.max - w.n
	if remain <= 0 {
		return len(p), nil
	}
	if int64(len(p)) > remain {
		p = p[:remain]
	}
	n, _ := w.buf.Write(p)
	w.n += int64(n)
	return len(p), nil
}

func (w *cappedWriter) String() string {
	return w.buf.String()
}
