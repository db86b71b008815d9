package cmake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/hashicorp/go-hclog"
)

// Runner runs an external program and returns its combined output.
type Runner interface {
	Run(ctx context.Context, dir string, program string, args ...string) ([]byte, error)
}

// ExecRunner spawns child processes and waits for them to complete.
type ExecRunner struct {
	Logger hclog.Logger
	// Stream, when set, receives the child's output as it is produced.
	Stream io.Writer
	Env    []string
}

// Run implements Runner. A non-zero exit is reported as *exec.ExitError
// together with everything the child printed.
func (r *ExecRunner) Run(ctx context.Context, dir string, program string, args ...string) ([]byte, error) {
	logger := r.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = dir
	cmd.Env = r.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}

	var out bytes.Buffer
	var sink io.Writer = &out
	if r.Stream != nil {
		sink = io.MultiWriter(&out, r.Stream)
	}
	cmd.Stdout = sink
	cmd.Stderr = sink

	logger.Info("🚀 Executing command", "path", program, "dir", dir)
	logger.Debug("🚀 Full command with args", "args", args)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start process: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			logger.Info("⏹️ Process exited", "code", exitErr.ExitCode())
		}
		return out.Bytes(), err
	}

	logger.Debug("✅ Process completed successfully")
	return out.Bytes(), nil
}
