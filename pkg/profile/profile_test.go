package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provide-io/flavor/go/fmtpack/pkg/recipe"
)

func writeProfile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFormats(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "linux.json",
			content: `{
  "settings": {"os": "Linux", "build_type": "Debug"},
  "options": {"shared": true, "cxxflags": "-O2 -g", "march_id": 7}
}`,
		},
		{
			name: "yaml",
			file: "linux.yml",
			content: `settings:
  os: Linux
  build_type: Debug
options:
  shared: true
  cxxflags: -O2 -g
  march_id: 7
`,
		},
		{
			name: "toml",
			file: "linux.toml",
			content: `[settings]
os = "Linux"
build_type = "Debug"

[options]
shared = true
cxxflags = "-O2 -g"
march_id = 7
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Load(writeProfile(t, tc.file, tc.content))
			require.NoError(t, err)

			settings, err := p.ApplySettings(recipe.Settings{OS: "Macos", Arch: "armv8", BuildType: "Release"})
			require.NoError(t, err)
			assert.Equal(t, recipe.Settings{OS: "Linux", Arch: "armv8", BuildType: "Debug"}, settings)

			overrides, ignored := p.Overrides("fmt")
			assert.Equal(t, map[string]string{
				"shared":   "True",
				"cxxflags": "-O2 -g",
				"march_id": "7",
			}, overrides)
			assert.Empty(t, ignored)
		})
	}
}

func TestMergeOverridesPrefersFlags(t *testing.T) {
	p := &Profile{Options: map[string]any{"shared": true, "verbose": false}}
	got, _ := p.MergeOverrides("fmt", map[string]string{"shared": "False", "fPIC": "True"})
	assert.Equal(t, map[string]string{"shared": "False", "verbose": "False", "fPIC": "True"}, got)
}

func TestOverridesScope(t *testing.T) {
	p, err := Load(writeProfile(t, "deps.yaml", `options:
  "fmt:shared": true
  "zlib:shared": false
  "openssl:no_asm": true
  header_only: false
`))
	require.NoError(t, err)

	overrides, ignored := p.Overrides("fmt")
	assert.Equal(t, map[string]string{"shared": "True", "header_only": "False"}, overrides)
	assert.Equal(t, []string{"openssl:no_asm", "zlib:shared"}, ignored)

	resolved, err := recipe.Fmt().Resolve(recipe.Settings{OS: "Linux", Arch: "x86_64", Compiler: "gcc", BuildType: "Release"}, overrides)
	require.NoError(t, err)
	shared, _ := resolved.Value(recipe.OptShared)
	assert.Equal(t, "True", shared)
}

func TestNilProfile(t *testing.T) {
	var p *Profile
	s, err := p.ApplySettings(recipe.Settings{OS: "Linux"})
	require.NoError(t, err)
	assert.Equal(t, "Linux", s.OS)
	overrides, ignored := p.Overrides("fmt")
	assert.Empty(t, overrides)
	assert.Empty(t, ignored)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeProfile(t, "profile.ini", "os=Linux"))
	assert.ErrorContains(t, err, "unsupported profile format")

	_, err = Load(writeProfile(t, "broken.yaml", "settings: [unterminated"))
	assert.ErrorContains(t, err, "parsing profile broken.yaml")

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "reading profile")

	p, err := Load(writeProfile(t, "bad.toml", "[settings]\nlibc = \"musl\"\n"))
	require.NoError(t, err)
	_, err = p.ApplySettings(recipe.Settings{})
	assert.Error(t, err)
}
