// Package workenv manages the cache directories one recipe version builds in
package workenv

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/provide-io/flavor/go/fmtpack/pkg/recipe"
)

// Workenv is the cache tree of one recipe version:
//
//	<root>/<name>-<version>/source
//	<root>/<name>-<version>/<package-id>/build
//	<root>/<name>-<version>/<package-id>/package
//
// Sources are shared by every configuration; build and package folders are
// per package id.
type Workenv struct {
	Root    string
	Name    string
	Version string
}

// New returns the workenv for name/version under root. An empty root means
// GetCacheRoot.
func New(root, name, version string) *Workenv {
	if root == "" {
		root = GetCacheRoot()
	}
	return &Workenv{Root: root, Name: name, Version: version}
}

// GetCacheRoot returns the root cache directory
func GetCacheRoot() string {
	// Check environment variable first
	if cacheDir := os.Getenv("FMTPACK_CACHE_DIR"); cacheDir != "" {
		return cacheDir
	}

	switch runtime.GOOS {
	case "darwin":
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, "Library", "Caches", "fmtpack")
		}
	case "linux", "freebsd":
		if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
			return filepath.Join(xdgCache, "fmtpack")
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".cache", "fmtpack")
		}
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "fmtpack", "cache")
		}
	}

	return filepath.Join(os.TempDir(), "fmtpack", "cache")
}

// Dir is the directory of this recipe version.
func (w *Workenv) Dir() string {
	return filepath.Join(w.Root, w.Name+"-"+w.Version)
}

// SourceDir is where sources are fetched, shared across package ids.
func (w *Workenv) SourceDir() string {
	return filepath.Join(w.Dir(), "source")
}

// PackageRoot holds the build and package folders of one package id.
func (w *Workenv) PackageRoot(packageID string) string {
	return filepath.Join(w.Dir(), packageID)
}

// LockFile guards the folders of one package id.
func (w *Workenv) LockFile(packageID string) string {
	return filepath.Join(w.PackageRoot(packageID), ".lock")
}

// SourceLockFile guards SourceDir, which every package id of this
// version builds from.
func (w *Workenv) SourceLockFile() string {
	return filepath.Join(w.Dir(), "source.lock")
}

// Folders returns the stage folders for packageID.
func (w *Workenv) Folders(packageID string) recipe.Folders {
	root := w.PackageRoot(packageID)
	return recipe.Folders{
		Source:  w.SourceDir(),
		Build:   filepath.Join(root, "build"),
		Package: filepath.Join(root, "package"),
	}
}

// Create makes the workenv directories for packageID.
func (w *Workenv) Create(packageID string) error {
	return CreateWorkenv(w.Dir(), []DirectorySpec{
		{Path: "source"},
		{Path: filepath.Join(packageID, "build")},
		{Path: filepath.Join(packageID, "package")},
	})
}

// CreateWorkenv creates a workenv directory with proper structure
func CreateWorkenv(path string, dirs []DirectorySpec) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create workenv: %w", err)
	}

	for _, dir := range dirs {
		dirPath := filepath.Join(path, dir.Path)
		mode := dir.Mode
		if mode == 0 {
			mode = 0755
		}

		if err := os.MkdirAll(dirPath, os.FileMode(mode)); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir.Path, err)
		}
	}

	return nil
}

// DirectorySpec specifies a directory to create
type DirectorySpec struct {
	Path string
	Mode uint32
}
