// Package fetch downloads source archives, pins them to a checksum and
// unpacks them into the recipe's source folder.
//
// Checksums use the prefixed format "algorithm:hexvalue"
// (e.g. "sha256:fe6e4ff3..."); a bare hex value is read by its length.
package fetch

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	recipeerrors "github.com/provide-io/flavor/go/fmtpack/pkg/recipe/errors"
)

// ChecksumAlgorithm represents supported checksum algorithms
type ChecksumAlgorithm int

const (
	ChecksumSHA256 ChecksumAlgorithm = iota
	ChecksumSHA512
)

func (c ChecksumAlgorithm) String() string {
	switch c {
	case ChecksumSHA256:
		return "sha256"
	case ChecksumSHA512:
		return "sha512"
	default:
		return "unknown"
	}
}

func (c ChecksumAlgorithm) newHash() hash.Hash {
	if c == ChecksumSHA512 {
		return sha512.New()
	}
	return sha256.New()
}

// Checksum is a parsed, normalized checksum.
type Checksum struct {
	Algorithm ChecksumAlgorithm
	Hex       string
}

// String returns the prefixed form.
func (c Checksum) String() string {
	return c.Algorithm.String() + ":" + c.Hex
}

// ChecksumError reports a checksum verification failure.
// It unwraps to ErrChecksumMismatch.
type ChecksumError struct {
	Source   string
	Expected Checksum
	Got      Checksum
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s\nExpected: %s\nGot:      %s", e.Source, e.Expected, e.Got)
}

// Unwrap lets callers match the failure with errors.Is.
func (e *ChecksumError) Unwrap() error { return recipeerrors.ErrChecksumMismatch }

// ParseChecksum parses a checksum string that may or may not have a prefix
func ParseChecksum(s string) (Checksum, error) {
	s = strings.TrimSpace(s)

	algo := ChecksumSHA256
	value := s
	if prefix, rest, ok := strings.Cut(s, ":"); ok {
		switch strings.ToLower(prefix) {
		case "sha256":
			algo = ChecksumSHA256
		case "sha512":
			algo = ChecksumSHA512
		default:
			return Checksum{}, fmt.Errorf("unknown checksum algorithm: %s", prefix)
		}
		value = rest
	} else if len(s) == 128 {
		algo = ChecksumSHA512
	}

	value = strings.ToLower(value)
	want := algo.newHash().Size() * 2
	if len(value) != want {
		return Checksum{}, fmt.Errorf("invalid %s checksum %q: want %d hex characters", algo, s, want)
	}
	if _, err := hex.DecodeString(value); err != nil {
		return Checksum{}, fmt.Errorf("invalid %s checksum %q: %w", algo, s, err)
	}

	return Checksum{Algorithm: algo, Hex: value}, nil
}

// ComputeChecksum streams r through the algorithm's hash.
func ComputeChecksum(r io.Reader, algo ChecksumAlgorithm) (Checksum, error) {
	h := algo.newHash()
	if _, err := io.Copy(h, r); err != nil {
		return Checksum{}, err
	}
	return Checksum{Algorithm: algo, Hex: hex.EncodeToString(h.Sum(nil))}, nil
}

// ComputeFileChecksum hashes the file at path.
func ComputeFileChecksum(path string, algo ChecksumAlgorithm) (Checksum, error) {
	f, err := os.Open(path)
	if err != nil {
		return Checksum{}, err
	}
	defer f.Close()

	sum, err := ComputeChecksum(f, algo)
	if err != nil {
		return Checksum{}, fmt.Errorf("hashing file %s: %w", path, err)
	}
	return sum, nil
}

// VerifyFile hashes the file at path and compares it with expected.
// It returns a *ChecksumError when the digests differ.
func VerifyFile(path string, expected Checksum, source string) error {
	got, err := ComputeFileChecksum(path, expected.Algorithm)
	if err != nil {
		return err
	}
	if got.Hex != expected.Hex {
		return &ChecksumError{Source: source, Expected: expected, Got: got}
	}
	return nil
}
