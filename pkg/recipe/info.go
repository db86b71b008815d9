package recipe

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/provide-io/flavor/go/fmtpack/pkg/layout"
)

// PackageInfo tells consumers how to use a built package.
type PackageInfo struct {
	Name        string            `json:"name" yaml:"name"`
	Version     string            `json:"version" yaml:"version"`
	PackageID   string            `json:"package_id" yaml:"package_id"`
	HeaderOnly  bool              `json:"header_only" yaml:"header_only"`
	IncludeDirs []string          `json:"include_dirs" yaml:"include_dirs"`
	LibDirs     []string          `json:"lib_dirs,omitempty" yaml:"lib_dirs,omitempty"`
	Libs        []string          `json:"libs,omitempty" yaml:"libs,omitempty"`
	Defines     []string          `json:"defines,omitempty" yaml:"defines,omitempty"`
	Settings    map[string]string `json:"settings,omitempty" yaml:"settings,omitempty"`
	Options     map[string]string `json:"options" yaml:"options"`
}

// Info derives the consumer description from bc. Library names are read
// from the package folder's lib directory.
func (r *Recipe) Info(bc *BuildContext) (*PackageInfo, error) {
	opts := bc.Options
	info := &PackageInfo{
		Name:        r.Identity.Name,
		Version:     r.Identity.Version,
		PackageID:   bc.PackageID,
		HeaderOnly:  r.HeaderOnly(opts),
		IncludeDirs: []string{"include"},
		Settings:    bc.Settings().Map(),
		Options:     opts.Values(),
	}

	if opts.Bool(OptFmtAlias) {
		info.Defines = append(info.Defines, defineAlias)
	}

	if info.HeaderOnly {
		info.Defines = append(info.Defines, defineHeader)
		return info, nil
	}

	libs, err := layout.CollectLibs(filepath.Join(bc.Folders.Package, "lib"))
	if err != nil {
		return nil, fmt.Errorf("collecting libraries: %w", err)
	}
	info.LibDirs = []string{"lib"}
	info.Libs = libs
	if opts.Bool(OptShared) {
		info.Defines = append(info.Defines, defineShared)
	}
	return info, nil
}

// Format is an output encoding for PackageInfo.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (want json or yaml)", s)
}

// Encode writes info to w in the given format.
func (p *PackageInfo) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
}
