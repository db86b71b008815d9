package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recipeerrors "github.com/provide-io/flavor/go/fmtpack/pkg/recipe/errors"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	t.Setenv("FMTPACK_CACHE_DIR", t.TempDir())

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIDCommand(t *testing.T) {
	linux := []string{"id", "--os", "Linux", "--arch", "x86_64", "--compiler", "gcc", "--build-type", "Release"}

	first, err := run(t, linux...)
	require.NoError(t, err)
	second, err := run(t, append(linux, "-o", "with_fmt_alias=True")...)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, strings.TrimSpace(first), 40)

	shared, err := run(t, append(linux, "-o", "shared=True")...)
	require.NoError(t, err)
	assert.NotEqual(t, first, shared)

	headerLinux, err := run(t, append(linux, "-o", "header_only=True")...)
	require.NoError(t, err)
	headerWindows, err := run(t, "id", "--os", "Windows", "-o", "fmt:header_only=True")
	require.NoError(t, err)
	assert.Equal(t, headerLinux, headerWindows)
}

func TestOptionsCommand(t *testing.T) {
	out, err := run(t, "options", "--os", "Windows")
	require.NoError(t, err)
	assert.Contains(t, out, "removed: no fPIC on Windows")
	assert.Contains(t, out, "settings: os=Windows")

	out, err = run(t, "options", "-o", "header_only=True")
	require.NoError(t, err)
	assert.Contains(t, out, "removed: header-only")
	assert.Contains(t, out, "settings: (cleared)")
}

func TestOptionsCommandRejectsUnknownOption(t *testing.T) {
	_, err := run(t, "options", "-o", "with_unicode=True")
	assert.True(t, errors.Is(err, recipeerrors.ErrUnknownOption))

	_, err = run(t, "options", "-o", "shared")
	assert.True(t, errors.Is(err, recipeerrors.ErrInvalidOptionValue))
}

func TestProfileFeedsSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "win.yaml")
	require.NoError(t, os.WriteFile(path, []byte("settings:\n  os: Windows\noptions:\n  shared: true\n"), 0o644))

	out, err := run(t, "options", "--profile", path)
	require.NoError(t, err)
	assert.Contains(t, out, "settings: os=Windows")
	assert.Contains(t, out, "removed: no fPIC on Windows")

	// Flags win over the profile.
	out, err = run(t, "options", "--profile", path, "--os", "Linux")
	require.NoError(t, err)
	assert.Contains(t, out, "settings: os=Linux")
	assert.NotContains(t, out, "removed:")
}

func TestInfoBeforeCreate(t *testing.T) {
	_, err := run(t, "info", "--os", "Linux")
	assert.True(t, errors.Is(err, recipeerrors.ErrPackageMissing))
}

func TestOptionScopes(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "fmtpack.log")
	t.Setenv("FMTPACK_LOG_PATH", logPath)
	linux := []string{"id", "--os", "Linux", "--arch", "x86_64", "--compiler", "gcc", "--build-type", "Release"}

	plain, err := run(t, linux...)
	require.NoError(t, err)
	foreign, err := run(t, append(linux, "-o", "zlib:shared=True")...)
	require.NoError(t, err)
	assert.Equal(t, plain, foreign)

	path := filepath.Join(t.TempDir(), "deps.toml")
	require.NoError(t, os.WriteFile(path, []byte("[options]\n\"fmt:shared\" = true\n\"zlib:shared\" = false\n"), 0o644))
	scoped, err := run(t, append(linux, "--profile", path)...)
	require.NoError(t, err)
	shared, err := run(t, append(linux, "-o", "shared=True")...)
	require.NoError(t, err)
	assert.Equal(t, shared, scoped)

	logs, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logs), "zlib:shared")
}
