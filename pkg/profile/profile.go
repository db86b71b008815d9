// Package profile loads build settings and option overrides from JSON, YAML
// or TOML files so a configuration can be reused across invocations.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/provide-io/flavor/go/fmtpack/pkg/recipe"
)

// Profile is one saved configuration.
type Profile struct {
	Settings map[string]string `json:"settings" yaml:"settings" toml:"settings"`
	// Options may hold native booleans and numbers; they are rendered to
	// strings before resolution.
	Options map[string]any `json:"options" yaml:"options" toml:"options"`
}

// Load reads a profile, choosing the decoder from the file extension.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	var p Profile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &p)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	case ".toml":
		err = toml.Unmarshal(data, &p)
	default:
		return nil, fmt.Errorf("unsupported profile format %q (want .json, .yaml, .yml or .toml)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", filepath.Base(path), err)
	}
	return &p, nil
}

// ApplySettings layers the profile's settings over base.
func (p *Profile) ApplySettings(base recipe.Settings) (recipe.Settings, error) {
	if p == nil {
		return base, nil
	}
	return base.Merge(p.Settings)
}

// Overrides renders the profile's options meant for recipeName as
// name=value overrides. Keys scoped to other packages are returned in
// ignored, sorted.
func (p *Profile) Overrides(recipeName string) (overrides map[string]string, ignored []string) {
	overrides = make(map[string]string)
	if p == nil {
		return overrides, nil
	}
	for key, value := range p.Options {
		name, ok := recipe.ScopedOption(key, recipeName)
		if !ok {
			ignored = append(ignored, key)
			continue
		}
		overrides[name] = render(value)
	}
	sort.Strings(ignored)
	return overrides, ignored
}

// MergeOverrides returns the profile's overrides with flags applied on top.
func (p *Profile) MergeOverrides(recipeName string, flags map[string]string) (map[string]string, []string) {
	merged, ignored := p.Overrides(recipeName)
	for name, value := range flags {
		merged[name] = value
	}
	return merged, ignored
}

func render(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(v)
	}
}
