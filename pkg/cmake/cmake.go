// Package cmake drives the CMake configure, build and install steps.
package cmake

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"mvdan.cc/sh/v3/shell"

	recipeerrors "github.com/provide-io/flavor/go/fmtpack/pkg/recipe/errors"
)

// DefaultCommand is used when neither --cmake nor FMTPACK_CMAKE is set.
const DefaultCommand = "cmake"

// Definitions are -D cache entries passed at configure time.
type Definitions map[string]any

// Args renders the definitions as sorted -DKEY=VALUE arguments.
// Booleans become ON/OFF.
func (d Definitions) Args() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, fmt.Sprintf("-D%s=%s", k, formatValue(d[k])))
	}
	return args
}

func formatValue(v any) string {
	switch val := v.(type) {
	case bool:
		if val {
			return "ON"
		}
		return "OFF"
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// ToolError carries the verbatim output of a failed CMake step.
// It unwraps to both ErrBuildToolFailed and the underlying process error.
type ToolError struct {
	Step     string
	Args     []string
	Output   string
	ExitCode int
	Err      error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cmake %s failed", e.Step)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		b.WriteString("\n")
		b.WriteString(out)
	}
	return b.String()
}

// Unwrap lets callers use errors.Is with either the sentinel or the process error.
func (e *ToolError) Unwrap() []error {
	return []error{recipeerrors.ErrBuildToolFailed, e.Err}
}

// Tool runs CMake for one source/build tree pair.
type Tool struct {
	Command     []string // program plus any fixed leading arguments
	SourceDir   string
	BuildDir    string
	BuildType   string
	Definitions Definitions
	Runner      Runner
	Logger      hclog.Logger
}

// ParseCommand splits a command string such as `cmake -G "Unix Makefiles"`
// with shell quoting rules. An empty string yields DefaultCommand.
func ParseCommand(command string) ([]string, error) {
	if strings.TrimSpace(command) == "" {
		return []string{DefaultCommand}, nil
	}
	fields, err := shell.Fields(command, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing cmake command %q: %w", command, err)
	}
	if len(fields) == 0 {
		return []string{DefaultCommand}, nil
	}
	return fields, nil
}

// Configure generates the build tree.
func (t *Tool) Configure(ctx context.Context) error {
	if err := os.MkdirAll(t.BuildDir, 0o755); err != nil {
		return err
	}
	args := []string{"-S", t.SourceDir, "-B", t.BuildDir}
	args = append(args, t.Definitions.Args()...)
	return t.run(ctx, "configure", args)
}

// Build compiles the configured tree.
func (t *Tool) Build(ctx context.Context) error {
	args := []string{"--build", t.BuildDir}
	if t.BuildType != "" {
		args = append(args, "--config", t.BuildType)
	}
	return t.run(ctx, "build", args)
}

// Install copies the install targets into prefix.
func (t *Tool) Install(ctx context.Context, prefix string) error {
	args := []string{"--install", t.BuildDir, "--prefix", prefix}
	if t.BuildType != "" {
		args = append(args, "--config", t.BuildType)
	}
	return t.run(ctx, "install", args)
}

func (t *Tool) run(ctx context.Context, step string, args []string) error {
	logger := t.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	command := t.Command
	if len(command) == 0 {
		command = []string{DefaultCommand}
	}

	full := append(append([]string{}, command[1:]...), args...)
	logger.Info("🔨 Running cmake", "step", step)

	out, err := t.Runner.Run(ctx, t.BuildDir, command[0], full...)
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		logger.Error("❌ cmake step failed", "step", step, "exit_code", exitCode)
		return &ToolError{Step: step, Args: full, Output: string(out), ExitCode: exitCode, Err: err}
	}
	logger.Debug("✅ cmake step complete", "step", step)
	return nil
}
