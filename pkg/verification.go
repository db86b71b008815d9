package pkg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/flavor/go/fmtpack/pkg/layout"
	recipeerrors "github.com/provide-io/flavor/go/fmtpack/pkg/recipe/errors"
)

// prunedDirs must never appear in a finished package.
var prunedDirs = []string{"lib/cmake", "lib/pkgconfig", "share"}

// VerifyPackage checks that a package folder has the layout its mode
// promises: headers under include/, libraries under lib/ for compiled
// packages, no lib/ for header-only ones and no pruned metadata.
func VerifyPackage(dir string, headerOnly bool, logger hclog.Logger) error {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger.Debug("Verifying package layout", "path", dir, "header_only", headerOnly)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", recipeerrors.ErrPackageMissing, dir)
	}

	problems := []string{}

	files, err := layout.List(filepath.Join(dir, "include"))
	if err != nil || len(files) == 0 {
		problems = append(problems, "include/ is missing or empty")
		logger.Error("include/ is missing or empty")
	} else {
		logger.Debug("✓ Headers present", "count", len(files))
	}

	for _, rel := range prunedDirs {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel))); err == nil {
			problems = append(problems, rel+" was not pruned")
			logger.Error("Install metadata left in package", "dir", rel)
		}
	}

	libDir := filepath.Join(dir, "lib")
	if headerOnly {
		if _, err := os.Stat(libDir); err == nil {
			problems = append(problems, "header-only package has a lib/ directory")
			logger.Error("Header-only package has a lib/ directory")
		}
	} else {
		libs, err := layout.CollectLibs(libDir)
		if err != nil || len(libs) == 0 {
			problems = append(problems, "lib/ holds no libraries")
			logger.Error("lib/ holds no libraries")
		} else {
			logger.Debug("✓ Libraries present", "libs", libs)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", recipeerrors.ErrPackageInvalid, strings.Join(problems, "; "))
	}
	logger.Debug("✓ Package layout valid")
	return nil
}
