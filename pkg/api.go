// Package pkg drives the recipe against the local package cache: it owns
// the work folders, the package lock and the completion markers, and it
// runs the recipe stages in order.
package pkg

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/flavor/go/fmtpack/internal/workenv"
	"github.com/provide-io/flavor/go/fmtpack/pkg/archive"
	"github.com/provide-io/flavor/go/fmtpack/pkg/cmake"
	"github.com/provide-io/flavor/go/fmtpack/pkg/fetch"
	"github.com/provide-io/flavor/go/fmtpack/pkg/recipe"
	recipeerrors "github.com/provide-io/flavor/go/fmtpack/pkg/recipe/errors"
)

// Options configures one invocation.
type Options struct {
	Recipe    *recipe.Recipe
	Settings  recipe.Settings
	Overrides map[string]string
	// CacheRoot defaults to workenv.GetCacheRoot.
	CacheRoot string
	// SourceURL fetches the pinned archive from a mirror.
	SourceURL string
	// UserAgent is sent when downloading sources.
	UserAgent string
	CMake     []string
	Runner    cmake.Runner
	Fetcher   recipe.SourceFetcher
	// Force rebuilds even when a complete package exists.
	Force bool
	// Wait blocks on a package lock held by another process instead of
	// failing with ErrLocked.
	Wait bool
}

// Result describes a package in the cache.
type Result struct {
	PackageID string
	Folders   recipe.Folders
	Info      *recipe.PackageInfo
	// Cached is true when an existing package was reused.
	Cached bool
}

type session struct {
	recipe  *recipe.Recipe
	env     recipe.Env
	workenv *workenv.Workenv
	bc      *recipe.BuildContext
	logger  hclog.Logger
}

func newSession(opts Options, logger hclog.Logger) (*session, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	r := opts.Recipe
	if r == nil {
		r = recipe.Fmt()
	}
	if opts.SourceURL != "" {
		mirrored := *r
		mirrored.Identity = r.Identity.WithSourceURL(opts.SourceURL)
		r = &mirrored
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		var downloader *fetch.Downloader
		if opts.UserAgent != "" {
			downloader = fetch.NewDownloader(fetch.WithUserAgent(opts.UserAgent))
		}
		fetcher = fetch.NewFetcher(downloader, logger.Named("fetch"))
	}

	resolved, err := r.Resolve(opts.Settings, opts.Overrides)
	if err != nil {
		return nil, err
	}
	w := workenv.New(opts.CacheRoot, r.Identity.Name, r.Identity.Version)
	bc := r.NewBuildContext(resolved, w.Folders(r.PackageID(resolved)))

	return &session{
		recipe: r,
		env: recipe.Env{
			Fetcher: fetcher,
			Runner:  opts.Runner,
			CMake:   opts.CMake,
			Logger:  logger,
		},
		workenv: w,
		bc:      bc,
		logger:  logger,
	}, nil
}

func (s *session) name() string { return s.recipe.Identity.Name }
func (s *session) version() string { return s.recipe.Identity.Version }

func (s *session) packageRoot() string {
	return s.workenv.PackageRoot(s.bc.PackageID)
}

func (s *session) packageComplete() bool {
	return workenv.IsValid(s.packageRoot(), workenv.StagePackage, s.name(), s.version(), s.bc.PackageID)
}

func (s *session) sourceComplete() bool {
	return workenv.IsValid(s.workenv.SourceDir(), workenv.StageSource, s.name(), s.version(), s.recipe.Identity.Source.Checksum)
}

func (s *session) lock(ctx context.Context, wait bool) (*workenv.Lock, error) {
	return s.acquire(ctx, s.workenv.LockFile(s.bc.PackageID), wait)
}

// sourceLock is taken after the package lock whenever both are held.
func (s *session) sourceLock(ctx context.Context, wait bool) (*workenv.Lock, error) {
	return s.acquire(ctx, s.workenv.SourceLockFile(), wait)
}

func (s *session) acquire(ctx context.Context, path string, wait bool) (*workenv.Lock, error) {
	if wait {
		return workenv.AcquireLock(ctx, path, 250*time.Millisecond, s.logger)
	}
	return workenv.TryAcquireLock(path, s.logger)
}

// PackageID resolves opts and returns the id of the package they select.
func PackageID(opts Options) (string, error) {
	s, err := newSession(opts, nil)
	if err != nil {
		return "", err
	}
	return s.bc.PackageID, nil
}

// Create builds the package selected by opts unless a complete one is
// already cached, and returns its consumer info.
func Create(ctx context.Context, logger hclog.Logger, opts Options) (*Result, error) {
	s, err := newSession(opts, logger)
	if err != nil {
		return nil, err
	}
	logger = s.logger
	logger.Info("📦 Creating package", "ref", s.recipe.Identity.Reference(), "package_id", s.bc.PackageID)

	if err := s.workenv.Create(s.bc.PackageID); err != nil {
		return nil, err
	}
	lock, err := s.lock(ctx, opts.Wait)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	result := &Result{PackageID: s.bc.PackageID, Folders: s.bc.Folders}

	if !opts.Force && s.packageComplete() {
		if err := VerifyPackage(s.bc.Folders.Package, s.recipe.HeaderOnly(s.bc.Options), logger); err == nil {
			logger.Info("♻️ Package already built", "package_id", s.bc.PackageID)
			info, err := s.recipe.Info(s.bc)
			if err != nil {
				return nil, err
			}
			result.Info, result.Cached = info, true
			return result, nil
		}
		logger.Warn("⚠️ Cached package failed verification, rebuilding", "package_id", s.bc.PackageID)
	}

	lc := recipe.NewLifecycle(s.recipe, s.env)
	if _, err := lc.ResolveOptions(opts.Settings, opts.Overrides, s.bc.Folders); err != nil {
		return nil, err
	}

	// The shared source tree stays locked until packaging is done.
	srcLock, err := s.sourceLock(ctx, opts.Wait)
	if err != nil {
		return nil, err
	}
	defer srcLock.Release()

	if !opts.Force && s.sourceComplete() {
		err = lc.ReuseSource()
	} else {
		workenv.Clean(s.workenv.SourceDir())
		if err = lc.FetchSource(ctx); err == nil {
			err = workenv.MarkComplete(s.workenv.SourceDir(), workenv.StageSource, s.name(), s.version(), s.recipe.Identity.Source.Checksum)
		}
	}
	if err != nil {
		return nil, err
	}

	if err := s.buildAndPackage(ctx, lc); err != nil {
		if merr := workenv.MarkIncomplete(s.packageRoot(), workenv.StagePackage, err.Error()); merr != nil {
			logger.Debug("Failed to write incomplete marker", "error", merr)
		}
		return nil, err
	}

	info, err := lc.EmitInfo()
	if err != nil {
		return nil, err
	}
	logger.Info("✅ Package created", "package_id", s.bc.PackageID, "path", s.bc.Folders.Package)
	result.Info = info
	return result, nil
}

func (s *session) buildAndPackage(ctx context.Context, lc *recipe.Lifecycle) error {
	if err := lc.Build(ctx); err != nil {
		return err
	}
	if err := lc.Package(ctx); err != nil {
		return err
	}
	if err := VerifyPackage(s.bc.Folders.Package, s.recipe.HeaderOnly(s.bc.Options), s.logger); err != nil {
		return err
	}
	return workenv.MarkComplete(s.packageRoot(), workenv.StagePackage, s.name(), s.version(), s.bc.PackageID)
}

// Source fetches the pinned sources into the cache without building.
func Source(ctx context.Context, logger hclog.Logger, opts Options) (string, error) {
	s, err := newSession(opts, logger)
	if err != nil {
		return "", err
	}
	lock, err := s.sourceLock(ctx, opts.Wait)
	if err != nil {
		return "", err
	}
	defer lock.Release()

	if !opts.Force && s.sourceComplete() {
		s.logger.Info("♻️ Sources already fetched", "path", s.bc.SourceTree)
		return s.bc.SourceTree, nil
	}

	workenv.Clean(s.workenv.SourceDir())
	if err := s.recipe.Source(ctx, s.env, s.bc); err != nil {
		return "", err
	}
	if err := workenv.MarkComplete(s.workenv.SourceDir(), workenv.StageSource, s.name(), s.version(), s.recipe.Identity.Source.Checksum); err != nil {
		return "", err
	}
	return s.bc.SourceTree, nil
}

// Describe returns the info of a package that was already created.
func Describe(logger hclog.Logger, opts Options) (*Result, error) {
	s, err := newSession(opts, logger)
	if err != nil {
		return nil, err
	}
	if !s.packageComplete() {
		return nil, fmt.Errorf("%w: %s with package id %s", recipeerrors.ErrPackageMissing, s.recipe.Identity.Reference(), s.bc.PackageID)
	}
	info, err := s.recipe.Info(s.bc)
	if err != nil {
		return nil, err
	}
	return &Result{PackageID: s.bc.PackageID, Folders: s.bc.Folders, Info: info, Cached: true}, nil
}

// Verify checks the cached package selected by opts.
func Verify(logger hclog.Logger, opts Options) (*Result, error) {
	res, err := Describe(logger, opts)
	if err != nil {
		return nil, err
	}
	if err := VerifyPackage(res.Folders.Package, res.Info.HeaderOnly, logger); err != nil {
		return nil, err
	}
	return res, nil
}

// Export archives a created package to dest; the compression follows the
// file name (.tar, .tar.gz, .tar.bz2, .tar.xz).
func Export(logger hclog.Logger, opts Options, dest string) (*Result, error) {
	res, err := Verify(logger, opts)
	if err != nil {
		return nil, err
	}
	if err := archive.Create(res.Folders.Package, dest); err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("exporting package: %w", err)
	}
	return res, nil
}
