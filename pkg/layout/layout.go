// Package layout copies, prunes and inspects package trees.
package layout

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Copy copies every regular file under srcDir whose base name matches
// pattern into dstDir, keeping its path relative to srcDir. It returns the
// copied paths, relative to dstDir, in walk order. A missing srcDir copies
// nothing.
func Copy(pattern, srcDir, dstDir string) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	if _, err := os.Stat(srcDir); os.IsNotExist(err) {
		return nil, nil
	}

	var copied []string
	err := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); !ok {
			return nil
		}

		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		if err := CopyFile(p, filepath.Join(dstDir, rel)); err != nil {
			return fmt.Errorf("copying %s: %w", rel, err)
		}
		copied = append(copied, rel)
		return nil
	})
	return copied, err
}

// CopyFile copies a single file from src to dst, creating parent directories
// and keeping the source permissions.
func CopyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	destFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, sourceInfo.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return err
	}
	return destFile.Close()
}

// Prune removes each directory under root. Missing directories are fine.
func Prune(root string, dirs ...string) error {
	for _, dir := range dirs {
		if err := os.RemoveAll(filepath.Join(root, filepath.FromSlash(dir))); err != nil {
			return fmt.Errorf("removing %s: %w", dir, err)
		}
	}
	return nil
}

// libraryExtensions are checked longest first so "libfmt.dll.a" is not read
// as a plain ".a".
var libraryExtensions = []string{".dll.a", ".dylib", ".lib", ".so", ".a"}

// CollectLibs lists the linkable library names found directly in libDir:
// "libfmt.a", "libfmt.so.6.2.0" and "fmt.lib" all yield "fmt", and
// "libfmtd.a" yields "fmtd". The result is sorted and free of duplicates.
func CollectLibs(libDir string) ([]string, error) {
	entries, err := os.ReadDir(libDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := libraryName(entry.Name()); ok {
			seen[name] = true
		}
	}

	libs := make([]string, 0, len(seen))
	for name := range seen {
		libs = append(libs, name)
	}
	sort.Strings(libs)
	return libs, nil
}

func libraryName(file string) (string, bool) {
	base := file
	// Versioned shared objects: libfmt.so.6 and libfmt.so.6.2.0
	if i := strings.Index(base, ".so."); i > 0 {
		base = base[:i+len(".so")]
	}

	for _, ext := range libraryExtensions {
		if !strings.HasSuffix(base, ext) {
			continue
		}
		name := strings.TrimSuffix(base, ext)
		// Versioned dylibs: libfmt.6.dylib
		if ext == ".dylib" {
			if i := strings.Index(name, "."); i > 0 {
				name = name[:i]
			}
		}
		if ext != ".lib" {
			name = strings.TrimPrefix(name, "lib")
		}
		return name, name != ""
	}
	return "", false
}

// List returns every regular file under root, relative and slash-separated,
// sorted.
func List(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
