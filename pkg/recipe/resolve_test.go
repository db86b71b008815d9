package recipe

import (
	"errors"
	"reflect"
	"testing"

	"github.com/hashicorp/go-hclog"

	recipeerrors "github.com/provide-io/flavor/go/fmtpack/pkg/recipe/errors"
)

var binaryOptions = []string{OptFPIC, OptShared, OptMicroarch, OptFixMarch, OptMarchID, OptGlibcxxABI}

// TestResolveWindowsDropsFPIC tests that no Windows configuration keeps fPIC
func TestResolveWindowsDropsFPIC(t *testing.T) {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "resolve_test",
		Level: hclog.Trace,
	})

	testCases := []struct {
		name      string
		overrides map[string]string
	}{
		{name: "defaults", overrides: nil},
		{name: "fPIC forced on", overrides: map[string]string{OptFPIC: "True"}},
		{name: "shared", overrides: map[string]string{OptShared: "True"}},
		{name: "header-only", overrides: map[string]string{OptHeaderOnly: "True"}},
		{name: "tuned", overrides: map[string]string{OptFixMarch: "True", OptMarchID: "haswell"}},
	}

	r := Fmt()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			settings := Settings{OS: WindowsOS, Arch: "x86_64", Compiler: "Visual Studio", BuildType: "Release"}
			resolved, err := r.Resolve(settings, tc.overrides)
			if err != nil {
				t.Fatalf("Resolve error: %v", err)
			}
			logger.Debug("🧪 Resolved", "options", resolved.Names(), "removed", resolved.Removed())

			if resolved.Has(OptFPIC) {
				t.Errorf("fPIC survived resolution on %s", WindowsOS)
			}
		})
	}
}

// TestResolveKeepsFPICElsewhere tests that fPIC survives on platforms that have it
func TestResolveKeepsFPICElsewhere(t *testing.T) {
	for _, osName := range []string{"Linux", "Macos", "FreeBSD"} {
		resolved, err := Fmt().Resolve(Settings{OS: osName}, nil)
		if err != nil {
			t.Fatalf("Resolve(%s) error: %v", osName, err)
		}
		if !resolved.Bool(OptFPIC) {
			t.Errorf("fPIC missing or false on %s", osName)
		}
	}
}

// TestResolveHeaderOnly tests that header-only drops binary options and settings
func TestResolveHeaderOnly(t *testing.T) {
	testCases := []struct {
		name      string
		settings  Settings
		overrides map[string]string
	}{
		{
			name:      "linux",
			settings:  Settings{OS: "Linux", Arch: "x86_64", Compiler: "gcc", BuildType: "Debug"},
			overrides: map[string]string{OptHeaderOnly: "True"},
		},
		{
			name:      "windows",
			settings:  Settings{OS: WindowsOS, Arch: "x86", Compiler: "Visual Studio", BuildType: "Release"},
			overrides: map[string]string{OptHeaderOnly: "true"},
		},
		{
			name:     "binary options requested anyway",
			settings: Settings{OS: "Macos", Arch: "armv8"},
			overrides: map[string]string{
				OptHeaderOnly: "1",
				OptShared:     "True",
				OptFixMarch:   "True",
				OptMarchID:    "znver2",
				OptGlibcxxABI: "True",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resolved, err := Fmt().Resolve(tc.settings, tc.overrides)
			if err != nil {
				t.Fatalf("Resolve error: %v", err)
			}

			for _, name := range binaryOptions {
				if resolved.Has(name) {
					t.Errorf("option %s survived header-only resolution", name)
				}
			}
			if !resolved.Settings().IsZero() {
				t.Errorf("settings = %+v, want cleared", resolved.Settings())
			}
			for _, name := range []string{OptHeaderOnly, OptFmtAlias, OptVerbose, OptCXXFlags, OptCFlags} {
				if !resolved.Has(name) {
					t.Errorf("option %s should survive header-only resolution", name)
				}
			}
		})
	}
}

// TestResolveDefaults tests the declared defaults
func TestResolveDefaults(t *testing.T) {
	resolved, err := Fmt().Resolve(Settings{OS: "Linux"}, nil)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	want := Values{
		OptShared:     "False",
		OptHeaderOnly: "False",
		OptFPIC:       "True",
		OptFmtAlias:   "False",
		OptVerbose:    "False",
		OptMicroarch:  Unset,
		OptFixMarch:   "False",
		OptMarchID:    Unset,
		OptCXXFlags:   Unset,
		OptCFlags:     Unset,
		OptGlibcxxABI: Unset,
	}
	if got := resolved.Values(); !reflect.DeepEqual(got, want) {
		t.Errorf("Values() = %v, want %v", got, want)
	}
	if len(resolved.Removed()) != 0 {
		t.Errorf("Removed() = %v, want none", resolved.Removed())
	}
}

// TestResolveRejectsBadOverrides tests override validation
func TestResolveRejectsBadOverrides(t *testing.T) {
	testCases := []struct {
		name      string
		overrides map[string]string
		want      error
	}{
		{name: "unknown option", overrides: map[string]string{"with_unicorns": "True"}, want: recipeerrors.ErrUnknownOption},
		{name: "bad bool", overrides: map[string]string{OptShared: "maybe"}, want: recipeerrors.ErrInvalidOptionValue},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Fmt().Resolve(Settings{OS: "Linux"}, tc.overrides)
			if !errors.Is(err, tc.want) {
				t.Errorf("Resolve error = %v, want %v", err, tc.want)
			}
		})
	}
}

// TestResolveIsPure tests that resolution leaves its inputs untouched
func TestResolveIsPure(t *testing.T) {
	r := Fmt()
	settings := Settings{OS: WindowsOS, Arch: "x86_64"}
	overrides := map[string]string{OptHeaderOnly: "True", OptShared: "True"}

	first, err := r.Resolve(settings, overrides)
	if err != nil {
		t.Fatal(err)
	}
	if settings.OS != WindowsOS || len(overrides) != 2 || overrides[OptShared] != "True" {
		t.Errorf("inputs mutated: settings=%+v overrides=%v", settings, overrides)
	}

	second, err := r.Resolve(settings, overrides)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Values(), second.Values()) {
		t.Errorf("repeated resolution differs: %v vs %v", first.Values(), second.Values())
	}

	// Later resolutions start from the full schema again.
	third, err := r.Resolve(Settings{OS: "Linux"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !third.Has(OptFPIC) || !third.Has(OptShared) {
		t.Errorf("schema was narrowed by an earlier resolution: %v", third.Names())
	}
}

// TestResolveCascadesDependencies tests that no survivor references a removed option
func TestResolveCascadesDependencies(t *testing.T) {
	schema := Schema{
		{Name: "a", Kind: KindBool, Default: "True"},
		{Name: "b", Kind: KindAny, Default: Unset, DependsOn: []string{"a"}},
		{Name: "c", Kind: KindAny, Default: Unset, DependsOn: []string{"b"}},
		{Name: "d", Kind: KindBool, Default: "False"},
	}
	rules := []Rule{{
		Name:   "drop a",
		When:   func(s Settings, _ Values) bool { return s.OS == "Plan9" },
		Remove: []string{"a"},
	}}

	resolved, err := Resolve(schema, rules, Settings{OS: "Plan9"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := resolved.Names(); !reflect.DeepEqual(got, []string{"d"}) {
		t.Errorf("Names() = %v, want [d]", got)
	}
	if got := resolved.Removed(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Removed() = %v, want [a b c]", got)
	}
	if reason, _ := resolved.RemovalReason("c"); reason != "depends on b" {
		t.Errorf("RemovalReason(c) = %q", reason)
	}

	// Every survivor's dependencies are present.
	for _, name := range resolved.Names() {
		spec, _ := schema.Lookup(name)
		for _, dep := range spec.DependsOn {
			if !resolved.Has(dep) {
				t.Errorf("%s survives but depends on removed %s", name, dep)
			}
		}
	}
}

func TestParseOverrides(t *testing.T) {
	got, ignored, err := ParseOverrides("fmt", []string{"shared=True", "fmt:header_only=False", "zlib:shared=False", "cxxflags=-O2 -g"})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"shared": "True", "header_only": "False", "cxxflags": "-O2 -g"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseOverrides = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(ignored, []string{"zlib:shared"}) {
		t.Errorf("ParseOverrides ignored = %v, want [zlib:shared]", ignored)
	}

	for _, pairs := range [][]string{{"shared"}, {"fmt:=True"}} {
		if _, _, err := ParseOverrides("fmt", pairs); !errors.Is(err, recipeerrors.ErrInvalidOptionValue) {
			t.Errorf("ParseOverrides(%v) error = %v", pairs, err)
		}
	}
}

func TestScopedOption(t *testing.T) {
	testCases := []struct {
		key  string
		name string
		ok   bool
	}{
		{key: "shared", name: "shared", ok: true},
		{key: "fmt:shared", name: "shared", ok: true},
		{key: "zlib:shared", ok: false},
		{key: "fmtlib:shared", ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.key, func(t *testing.T) {
			name, ok := ScopedOption(tc.key, "fmt")
			if name != tc.name || ok != tc.ok {
				t.Errorf("ScopedOption(%q) = %q, %v, want %q, %v", tc.key, name, ok, tc.name, tc.ok)
			}
		})
	}
}

func TestSettingsMerge(t *testing.T) {
	s, err := Settings{OS: "Linux"}.Merge(map[string]string{"arch": "armv8", "build_type": "Debug"})
	if err != nil {
		t.Fatal(err)
	}
	want := Settings{OS: "Linux", Arch: "armv8", BuildType: "Debug"}
	if s != want {
		t.Errorf("Merge = %+v, want %+v", s, want)
	}

	if _, err := s.Merge(map[string]string{"libc": "musl"}); !errors.Is(err, recipeerrors.ErrUnknownSetting) {
		t.Errorf("Merge(libc) error = %v", err)
	}
}

func TestIdentityValidate(t *testing.T) {
	if err := Fmt().Identity.Validate(); err != nil {
		t.Fatalf("fmt identity invalid: %v", err)
	}

	bad := Fmt().Identity
	bad.Version = "six"
	bad.Source.Checksum = "nope"
	err := bad.Validate()
	if !errors.Is(err, recipeerrors.ErrInvalidIdentity) {
		t.Errorf("Validate error = %v, want ErrInvalidIdentity", err)
	}
}
