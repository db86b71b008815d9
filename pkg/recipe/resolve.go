package recipe

import (
	"fmt"
	"sort"

	recipeerrors "github.com/provide-io/flavor/go/fmtpack/pkg/recipe/errors"
)

// Rule removes options, and optionally clears the settings, when its
// condition holds for the settings and option values being resolved.
type Rule struct {
	Name          string
	When          func(Settings, Values) bool
	Remove        []string
	ClearSettings bool
}

// Resolved is the option set that survives resolution together with the
// settings it was resolved against. It is never mutated after Resolve.
type Resolved struct {
	settings Settings
	schema   Schema
	values   Values
	removed  map[string]string // option name -> rule or dependency that removed it
}

// Resolve validates overrides against schema, then applies rules in order
// and drops any option whose dependencies were removed. Its inputs are
// left untouched.
func Resolve(schema Schema, rules []Rule, settings Settings, overrides map[string]string) (*Resolved, error) {
	values := schema.Defaults()

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec, ok := schema.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", recipeerrors.ErrUnknownOption, name)
		}
		v, err := spec.Normalize(overrides[name])
		if err != nil {
			return nil, err
		}
		values[name] = v
	}

	r := &Resolved{
		settings: settings,
		schema:   schema,
		values:   values,
		removed:  make(map[string]string),
	}

	for _, rule := range rules {
		if rule.When == nil || !rule.When(r.settings, r.values) {
			continue
		}
		if rule.ClearSettings {
			r.settings = Settings{}
		}
		for _, name := range rule.Remove {
			r.remove(name, rule.Name)
		}
	}

	// Cascade until no survivor depends on a removed option.
	for changed := true; changed; {
		changed = false
		for _, spec := range schema {
			if _, ok := r.values[spec.Name]; !ok {
				continue
			}
			for _, dep := range spec.DependsOn {
				if _, ok := r.values[dep]; !ok {
					r.remove(spec.Name, "depends on "+dep)
					changed = true
					break
				}
			}
		}
	}

	return r, nil
}

func (r *Resolved) remove(name, reason string) {
	if _, ok := r.values[name]; !ok {
		return
	}
	delete(r.values, name)
	r.removed[name] = reason
}

// Settings returns the settings after resolution.
func (r *Resolved) Settings() Settings {
	return r.settings
}

// Has reports whether the option survived resolution.
func (r *Resolved) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Value returns the canonical value of a surviving option.
func (r *Resolved) Value(name string) (string, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Bool reports whether the option survived and is true.
func (r *Resolved) Bool(name string) bool {
	return r.values.Bool(name)
}

// IsSet reports whether the option survived with a value other than Unset.
func (r *Resolved) IsSet(name string) bool {
	return r.values.Set(name)
}

// Values returns a copy of the surviving options.
func (r *Resolved) Values() Values {
	return r.values.Clone()
}

// Names lists the surviving options in schema order.
func (r *Resolved) Names() []string {
	var names []string
	for _, spec := range r.schema {
		if r.Has(spec.Name) {
			names = append(names, spec.Name)
		}
	}
	return names
}

// Removed lists the removed options in schema order.
func (r *Resolved) Removed() []string {
	var names []string
	for _, spec := range r.schema {
		if _, ok := r.removed[spec.Name]; ok {
			names = append(names, spec.Name)
		}
	}
	return names
}

// RemovalReason names the rule or dependency that removed an option.
func (r *Resolved) RemovalReason(name string) (string, bool) {
	reason, ok := r.removed[name]
	return reason, ok
}

// Schema returns the schema the options were resolved against.
func (r *Resolved) Schema() Schema {
	return r.schema
}
