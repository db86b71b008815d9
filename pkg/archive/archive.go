// Package archive unpacks source archives and packs package trees, choosing
// the compression chain from the archive's file name.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/provide-io/flavor/go/fmtpack/pkg/archive/operations"
	// Register GZIP, BZIP2 and XZ operations.
	_ "github.com/provide-io/flavor/go/fmtpack/pkg/archive/operations/compress"
	recipeerrors "github.com/provide-io/flavor/go/fmtpack/pkg/recipe/errors"
)

// Extract unpacks the archive at path into dest. name is used to pick the
// operation chain; pass the download URL when the local file name carries no
// extension.
func Extract(path, name, dest string) error {
	chain, err := operations.ChainForName(name)
	if err != nil {
		return fmt.Errorf("%w: %v", recipeerrors.ErrUnsupportedArchive, err)
	}
	if !chain.Bundle {
		return fmt.Errorf("%w: %s is not a tar archive", recipeerrors.ErrUnsupportedArchive, name)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, closeChain, err := chain.Decompress(f)
	if err != nil {
		return err
	}
	defer closeChain()

	return untar(r, dest)
}

// Create packs the contents of srcDir into a new archive at path, using the
// chain implied by path's extension. Entries are stored relative to srcDir.
func Create(srcDir, path string) (err error) {
	chain, err := operations.ChainForName(path)
	if err != nil {
		return fmt.Errorf("%w: %v", recipeerrors.ErrUnsupportedArchive, err)
	}
	if !chain.Bundle {
		return fmt.Errorf("%w: %s is not a tar archive", recipeerrors.ErrUnsupportedArchive, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	cw, err := chain.Compress(out)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(cw)

	walkErr := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil || rel == "." {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		link := ""
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(p); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("writing tar header for %s: %w", rel, err)
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("writing tar data for %s: %w", rel, err)
		}
		return nil
	})
	if walkErr != nil {
		return walkErr
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing tar writer: %w", err)
	}
	return cw.Close()
}

func untar(r io.Reader, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	tr := tar.NewReader(r)

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar header: %w", err)
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}
		if err := noSymlinkOnPath(dest, target); err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(tr, target, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(hdr.Linkname) {
				return fmt.Errorf("refusing absolute symlink %s -> %s", hdr.Name, hdr.Linkname)
			}
			if _, err := safeJoin(dest, filepath.Join(filepath.Dir(hdr.Name), hdr.Linkname)); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		case tar.TypeXGlobalHeader:
			// GitHub archives carry the commit id here.
		default:
			// Devices, fifos and hard links have no place in a source tree.
		}
	}
}

func writeEntry(r io.Reader, target string, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if mode == 0 {
		mode = 0o644
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("extracting %s: %w", target, err)
	}
	return f.Close()
}

// noSymlinkOnPath rejects targets reached through a symlink extracted
// earlier, since a link can point anywhere once resolved.
func noSymlinkOnPath(dest, target string) error {
	rel, err := filepath.Rel(dest, target)
	if err != nil {
		return err
	}
	p := dest
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == "." || part == "" {
			continue
		}
		p = filepath.Join(p, part)
		info, err := os.Lstat(p)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("archive entry %s passes through symlink %s", rel, p)
		}
	}
	return nil
}

// safeJoin joins name onto dest and rejects entries escaping dest.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}
