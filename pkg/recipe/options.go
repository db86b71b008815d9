package recipe

import (
	"fmt"
	"strings"

	recipeerrors "github.com/provide-io/flavor/go/fmtpack/pkg/recipe/errors"
)

// Unset is the placeholder default of open-ended options.
const Unset = "_DUMMY_"

// Kind is the domain of an option's values.
type Kind int

const (
	// KindBool accepts true/false in the usual spellings.
	KindBool Kind = iota
	// KindAny accepts any string.
	KindAny
)

func (k Kind) String() string {
	if k == KindBool {
		return "[True, False]"
	}
	return "ANY"
}

// OptionSpec declares one option.
type OptionSpec struct {
	Name    string
	Kind    Kind
	Default string
	Help    string
	// DependsOn names options that must survive resolution for this one to
	// stay meaningful.
	DependsOn []string
	// ConsumerOnly options change how a package is consumed but not the
	// binaries inside it, so they stay out of the package id.
	ConsumerOnly bool
}

// Normalize validates value against the option's domain and returns its
// canonical form. Booleans canonicalize to "True" and "False".
func (o OptionSpec) Normalize(value string) (string, error) {
	if o.Kind == KindAny {
		return value, nil
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return "True", nil
	case "false", "0", "no", "off":
		return "False", nil
	}
	return "", fmt.Errorf("%w: %s=%q, want one of %s", recipeerrors.ErrInvalidOptionValue, o.Name, value, o.Kind)
}

// Schema is the ordered set of options a recipe declares.
type Schema []OptionSpec

// Lookup finds an option by name.
func (s Schema) Lookup(name string) (OptionSpec, bool) {
	for _, spec := range s {
		if spec.Name == name {
			return spec, true
		}
	}
	return OptionSpec{}, false
}

// Defaults returns the default value of every option, normalized.
func (s Schema) Defaults() Values {
	values := make(Values, len(s))
	for _, spec := range s {
		v, err := spec.Normalize(spec.Default)
		if err != nil {
			v = spec.Default
		}
		values[spec.Name] = v
	}
	return values
}

// Values maps option names to canonical values.
type Values map[string]string

// Bool reports whether the named option is present and true.
func (v Values) Bool(name string) bool {
	return v[name] == "True"
}

// Set reports whether the named option is present and not Unset.
func (v Values) Set(name string) bool {
	value, ok := v[name]
	return ok && value != Unset && value != ""
}

// Clone returns an independent copy.
func (v Values) Clone() Values {
	c := make(Values, len(v))
	for name, value := range v {
		c[name] = value
	}
	return c
}

// ScopedOption strips a Conan-style "pkg:" scope from an option key. Keys
// scoped to another package are not for recipeName and report false.
func ScopedOption(key, recipeName string) (string, bool) {
	scope, name, found := strings.Cut(key, ":")
	if !found {
		return key, true
	}
	if strings.TrimSpace(scope) != recipeName {
		return "", false
	}
	return strings.TrimSpace(name), true
}

// ParseOverrides reads "name=value" pairs meant for recipeName. Pairs
// scoped to another package are returned in ignored.
func ParseOverrides(recipeName string, pairs []string) (overrides map[string]string, ignored []string, err error) {
	overrides = make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, nil, fmt.Errorf("%w: %q is not name=value", recipeerrors.ErrInvalidOptionValue, pair)
		}
		name, mine := ScopedOption(key, recipeName)
		if !mine {
			ignored = append(ignored, key)
			continue
		}
		if name == "" {
			return nil, nil, fmt.Errorf("%w: %q has an empty option name", recipeerrors.ErrInvalidOptionValue, pair)
		}
		overrides[name] = strings.TrimSpace(value)
	}
	return overrides, ignored, nil
}
