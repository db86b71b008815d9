package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Prefix marks every human-readable line emitted by fmtpack.
const Prefix = "🔧 "

// NewLogger creates a new hclog logger with standard settings.
// A level written as "json" or "json:<level>" switches to JSON output.
func NewLogger(name string, level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}

	jsonFormat := os.Getenv("FMTPACK_JSON_LOG") == "1"
	if strings.HasPrefix(level, "json") {
		jsonFormat = true
		if _, rest, ok := strings.Cut(level, ":"); ok && rest != "" {
			level = rest
		} else {
			level = "info"
		}
	}

	if !jsonFormat {
		output = NewPrefixWriter(Prefix, output)
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: jsonFormat,
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// ResolveLevel picks the log level from the CLI flag, then FMTPACK_LOG_LEVEL,
// then the default. The second return value names where the level came from.
func ResolveLevel(cliLevel string) (string, string) {
	if cliLevel != "" {
		return cliLevel, "CLI --log-level"
	}
	if envLevel := os.Getenv("FMTPACK_LOG_LEVEL"); envLevel != "" {
		return envLevel, "FMTPACK_LOG_LEVEL"
	}
	return "info", "default"
}

// Output returns the writer log lines should go to and a function that
// closes it. FMTPACK_LOG_PATH redirects them to a file opened for append.
func Output() (io.Writer, func() error) {
	return openOutput(os.Getenv("FMTPACK_LOG_PATH"), os.Stderr)
}

func openOutput(logPath string, stderr io.Writer) (io.Writer, func() error) {
	noop := func() error { return nil }
	if logPath == "" {
		return stderr, noop
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(stderr, "fmtpack: logging to stderr, cannot open FMTPACK_LOG_PATH: %v\n", err)
		return stderr, noop
	}
	return file, file.Close
}
