package recipe

import (
	"fmt"
	"runtime"
	"sort"

	recipeerrors "github.com/provide-io/flavor/go/fmtpack/pkg/recipe/errors"
)

// Setting names
const (
	SettingOS        = "os"
	SettingArch      = "arch"
	SettingCompiler  = "compiler"
	SettingBuildType = "build_type"
)

// WindowsOS is the platform with no position-independent-code concept.
const WindowsOS = "Windows"

// Settings are the platform values the runtime resolves before a build.
type Settings struct {
	OS        string `json:"os,omitempty" yaml:"os,omitempty"`
	Arch      string `json:"arch,omitempty" yaml:"arch,omitempty"`
	Compiler  string `json:"compiler,omitempty" yaml:"compiler,omitempty"`
	BuildType string `json:"build_type,omitempty" yaml:"build_type,omitempty"`
}

// HostSettings derives default settings from the running platform.
func HostSettings() Settings {
	s := Settings{BuildType: "Release"}

	switch runtime.GOOS {
	case "windows":
		s.OS, s.Compiler = WindowsOS, "Visual Studio"
	case "darwin":
		s.OS, s.Compiler = "Macos", "apple-clang"
	case "linux":
		s.OS, s.Compiler = "Linux", "gcc"
	case "freebsd":
		s.OS, s.Compiler = "FreeBSD", "clang"
	default:
		s.OS, s.Compiler = runtime.GOOS, "gcc"
	}

	switch runtime.GOARCH {
	case "amd64":
		s.Arch = "x86_64"
	case "386":
		s.Arch = "x86"
	case "arm64":
		s.Arch = "armv8"
	case "arm":
		s.Arch = "armv7"
	default:
		s.Arch = runtime.GOARCH
	}
	return s
}

// Set returns a copy with the named setting changed.
func (s Settings) Set(name, value string) (Settings, error) {
	switch name {
	case SettingOS:
		s.OS = value
	case SettingArch:
		s.Arch = value
	case SettingCompiler:
		s.Compiler = value
	case SettingBuildType:
		s.BuildType = value
	default:
		return s, fmt.Errorf("%w: %s", recipeerrors.ErrUnknownSetting, name)
	}
	return s, nil
}

// Merge applies every entry of values on top of s.
func (s Settings) Merge(values map[string]string) (Settings, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var err error
	for _, name := range names {
		if s, err = s.Set(name, values[name]); err != nil {
			return s, err
		}
	}
	return s, nil
}

// Map returns the non-empty settings keyed by name.
func (s Settings) Map() map[string]string {
	m := make(map[string]string, 4)
	for name, value := range map[string]string{
		SettingOS:        s.OS,
		SettingArch:      s.Arch,
		SettingCompiler:  s.Compiler,
		SettingBuildType: s.BuildType,
	} {
		if value != "" {
			m[name] = value
		}
	}
	return m
}

// IsZero reports whether every setting is empty.
func (s Settings) IsZero() bool {
	return s == Settings{}
}
