// Package recipe describes how the fmt library is fetched, built with CMake
// and laid out as a package, and what consumers of that package must use.
package recipe

import (
	"github.com/provide-io/flavor/go/fmtpack/pkg/fetch"
)

// Option names
const (
	OptShared      = "shared"
	OptHeaderOnly  = "header_only"
	OptFPIC        = "fPIC"
	OptFmtAlias    = "with_fmt_alias"
	OptVerbose     = "verbose"
	OptMicroarch   = "microarchitecture"
	OptFixMarch    = "fix_march"
	OptMarchID     = "march_id"
	OptCXXFlags    = "cxxflags"
	OptCFlags      = "cflags"
	OptGlibcxxABI  = "glibcxx_supports_cxx11_abi"
	sourceSubdir   = "source_subfolder"
	defineAlias    = "FMT_STRING_ALIAS=1"
	defineHeader   = "FMT_HEADER_ONLY"
	defineShared   = "FMT_SHARED"
	licenseFile    = "LICENSE.rst"
	licensesFolder = "licenses"
)

// Recipe is the static description of one package: who it is, which
// options it takes and how those options are narrowed per build.
type Recipe struct {
	Identity        Identity
	Schema          Schema
	Rules           []Rule
	SourceSubfolder string
	// PruneDirs are install-time directories consumers never need.
	PruneDirs []string
}

// Fmt returns the recipe for fmt 6.2.0.
func Fmt() *Recipe {
	return &Recipe{
		Identity: Identity{
			Name:        "fmt",
			Version:     "6.2.0",
			License:     "MIT",
			Homepage:    "https://github.com/fmtlib/fmt",
			URL:         "https://github.com/k-nuth/conan-fmt",
			Description: "A safe and fast alternative to printf and IOStreams.",
			Topics:      []string{"conan", "fmt", "format", "iostream", "printf"},
			Source: fetch.Source{
				URL:          "https://github.com/fmtlib/fmt/archive/6.2.0.tar.gz",
				Checksum:     "sha256:fe6e4ff397e01c379fc4532519339c93da47404b9f6674184a458a9967a76575",
				ExtractedDir: "fmt-6.2.0",
			},
		},
		Schema: Schema{
			{Name: OptShared, Kind: KindBool, Default: "False", Help: "build a shared library"},
			{Name: OptHeaderOnly, Kind: KindBool, Default: "False", Help: "package headers and sources only"},
			{Name: OptFPIC, Kind: KindBool, Default: "True", Help: "position-independent code"},
			{Name: OptFmtAlias, Kind: KindBool, Default: "False", Help: "enable the fmt() string alias", ConsumerOnly: true},
			{Name: OptVerbose, Kind: KindBool, Default: "False", Help: "verbose build output"},
			{Name: OptMicroarch, Kind: KindAny, Default: Unset, Help: "target microarchitecture"},
			{Name: OptFixMarch, Kind: KindBool, Default: "False", Help: "pin -march to march_id"},
			{Name: OptMarchID, Kind: KindAny, Default: Unset, Help: "microarchitecture id for fix_march", DependsOn: []string{OptFixMarch}},
			{Name: OptCXXFlags, Kind: KindAny, Default: Unset, Help: "extra C++ compiler flags"},
			{Name: OptCFlags, Kind: KindAny, Default: Unset, Help: "extra C compiler flags"},
			{Name: OptGlibcxxABI, Kind: KindAny, Default: Unset, Help: "libstdc++ dual ABI selection"},
		},
		Rules: []Rule{
			{
				Name: "no fPIC on " + WindowsOS,
				When: func(s Settings, _ Values) bool {
					return s.OS == WindowsOS
				},
				Remove: []string{OptFPIC},
			},
			{
				Name: "header-only",
				When: func(_ Settings, v Values) bool {
					return v.Bool(OptHeaderOnly)
				},
				ClearSettings: true,
				Remove: []string{
					OptFPIC, OptShared, OptMicroarch, OptFixMarch, OptMarchID, OptGlibcxxABI,
				},
			},
		},
		SourceSubfolder: sourceSubdir,
		PruneDirs:       []string{"lib/cmake", "lib/pkgconfig", "share"},
	}
}

// Resolve narrows the recipe's options for one build.
func (r *Recipe) Resolve(settings Settings, overrides map[string]string) (*Resolved, error) {
	return Resolve(r.Schema, r.Rules, settings, overrides)
}

// HeaderOnly reports whether resolved selects header-only distribution.
func (r *Recipe) HeaderOnly(resolved *Resolved) bool {
	return resolved.Bool(OptHeaderOnly)
}
