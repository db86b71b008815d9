package recipe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/flavor/go/fmtpack/pkg/cmake"
	"github.com/provide-io/flavor/go/fmtpack/pkg/fetch"
	"github.com/provide-io/flavor/go/fmtpack/pkg/layout"
	recipeerrors "github.com/provide-io/flavor/go/fmtpack/pkg/recipe/errors"
)

// SourceFetcher populates destDir/subfolder from a pinned source.
type SourceFetcher interface {
	Fetch(ctx context.Context, src fetch.Source, destDir, subfolder string) error
}

// Env holds the collaborators the stages drive. It carries no per-build
// state; that lives in the BuildContext.
type Env struct {
	Fetcher SourceFetcher
	Runner  cmake.Runner
	// CMake is the cmake program plus fixed leading arguments.
	CMake  []string
	Logger hclog.Logger
}

func (e Env) logger() hclog.Logger {
	if e.Logger == nil {
		return hclog.NewNullLogger()
	}
	return e.Logger
}

// Source fetches and unpacks the pinned source archive.
func (r *Recipe) Source(ctx context.Context, env Env, bc *BuildContext) error {
	if env.Fetcher == nil {
		return fmt.Errorf("%w: no fetcher configured", recipeerrors.ErrFetchFailed)
	}
	return env.Fetcher.Fetch(ctx, r.Identity.Source, bc.Folders.Source, r.SourceSubfolder)
}

// Build configures and compiles the source tree. Header-only builds have
// nothing to compile.
func (r *Recipe) Build(ctx context.Context, env Env, bc *BuildContext) error {
	logger := env.logger()
	if r.HeaderOnly(bc.Options) {
		logger.Info("📄 Header-only package, nothing to compile")
		return nil
	}

	tool := r.cmakeTool(env, bc)
	if err := tool.Configure(ctx); err != nil {
		return err
	}
	return tool.Build(ctx)
}

// Package lays out the package folder from a fresh, empty directory.
func (r *Recipe) Package(ctx context.Context, env Env, bc *BuildContext) error {
	logger := env.logger()
	pkgDir := bc.Folders.Package

	if err := os.RemoveAll(pkgDir); err != nil {
		return fmt.Errorf("%w: clearing %s: %w", recipeerrors.ErrPackageFailed, pkgDir, err)
	}
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", recipeerrors.ErrPackageFailed, err)
	}

	if r.HeaderOnly(bc.Options) {
		includeDir := filepath.Join(pkgDir, "include")
		headers, err := layout.Copy("*.h", filepath.Join(bc.SourceTree, "include"), includeDir)
		if err != nil {
			return fmt.Errorf("%w: copying headers: %w", recipeerrors.ErrPackageFailed, err)
		}
		sources, err := layout.Copy("*.cc", filepath.Join(bc.SourceTree, "src"), filepath.Join(includeDir, r.Identity.Name))
		if err != nil {
			return fmt.Errorf("%w: copying sources: %w", recipeerrors.ErrPackageFailed, err)
		}
		logger.Info("📄 Copied header-only tree", "headers", len(headers), "sources", len(sources))
	} else {
		if err := r.cmakeTool(env, bc).Install(ctx, pkgDir); err != nil {
			return fmt.Errorf("%w: %w", recipeerrors.ErrPackageFailed, err)
		}
	}

	if err := layout.Prune(pkgDir, r.PruneDirs...); err != nil {
		return fmt.Errorf("%w: %w", recipeerrors.ErrPackageFailed, err)
	}
	logger.Debug("🧹 Pruned install metadata", "dirs", r.PruneDirs)

	license := filepath.Join(bc.SourceTree, licenseFile)
	if _, err := os.Stat(license); err == nil {
		if err := layout.CopyFile(license, filepath.Join(pkgDir, licensesFolder, licenseFile)); err != nil {
			return fmt.Errorf("%w: copying license: %w", recipeerrors.ErrPackageFailed, err)
		}
	}
	return nil
}

// CMakeDefinitions derives the configure-time cache entries for bc.
func (r *Recipe) CMakeDefinitions(bc *BuildContext) cmake.Definitions {
	opts := bc.Options
	defs := cmake.Definitions{
		"FMT_DOC":              false,
		"FMT_TEST":             false,
		"FMT_INSTALL":          true,
		"FMT_LIB_DIR":          "lib",
		"BUILD_SHARED_LIBS":    opts.Bool(OptShared),
		"CMAKE_INSTALL_PREFIX": bc.Folders.Package,
	}

	if opts.Has(OptFPIC) {
		defs["CMAKE_POSITION_INDEPENDENT_CODE"] = opts.Bool(OptFPIC)
	}
	if bt := bc.Settings().BuildType; bt != "" {
		defs["CMAKE_BUILD_TYPE"] = bt
	}
	if opts.Bool(OptVerbose) {
		defs["CMAKE_VERBOSE_MAKEFILE"] = true
	}

	archFlag := ""
	switch {
	case opts.Bool(OptFixMarch) && opts.IsSet(OptMarchID):
		v, _ := opts.Value(OptMarchID)
		archFlag = "-march=" + v
	case opts.IsSet(OptMicroarch):
		v, _ := opts.Value(OptMicroarch)
		archFlag = "-march=" + v
	}

	var abiFlag string
	if opts.IsSet(OptGlibcxxABI) {
		v, _ := opts.Value(OptGlibcxxABI)
		if on, err := strconv.ParseBool(strings.ToLower(v)); err == nil {
			abiFlag = "-D_GLIBCXX_USE_CXX11_ABI=0"
			if on {
				abiFlag = "-D_GLIBCXX_USE_CXX11_ABI=1"
			}
		}
	}

	if flags := joinFlags(optionValue(opts, OptCXXFlags), archFlag, abiFlag); flags != "" {
		defs["CMAKE_CXX_FLAGS"] = flags
	}
	if flags := joinFlags(optionValue(opts, OptCFlags), archFlag); flags != "" {
		defs["CMAKE_C_FLAGS"] = flags
	}
	return defs
}

// cmakeTool builds a fresh tool from bc for every stage that needs one.
func (r *Recipe) cmakeTool(env Env, bc *BuildContext) *cmake.Tool {
	runner := env.Runner
	if runner == nil {
		runner = &cmake.ExecRunner{Logger: env.logger()}
	}
	return &cmake.Tool{
		Command:     env.CMake,
		SourceDir:   bc.SourceTree,
		BuildDir:    bc.Folders.Build,
		BuildType:   bc.Settings().BuildType,
		Definitions: r.CMakeDefinitions(bc),
		Runner:      runner,
		Logger:      env.logger(),
	}
}

func optionValue(opts *Resolved, name string) string {
	if !opts.IsSet(name) {
		return ""
	}
	v, _ := opts.Value(name)
	return v
}

func joinFlags(flags ...string) string {
	var parts []string
	for _, f := range flags {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}
