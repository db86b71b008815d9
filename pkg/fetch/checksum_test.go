package fetch

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	recipeerrors "github.com/provide-io/flavor/go/fmtpack/pkg/recipe/errors"
)

func TestParseChecksum(t *testing.T) {
	sha256Hex := "fe6e4ff397e01c379fc4532519339c93da47404b9f6674184a458a9967a76575"
	sha512Hex := strings.Repeat("ab", 64)

	testCases := []struct {
		name     string
		input    string
		wantAlgo ChecksumAlgorithm
		wantHex  string
		wantErr  bool
	}{
		{name: "bare sha256", input: sha256Hex, wantAlgo: ChecksumSHA256, wantHex: sha256Hex},
		{name: "prefixed sha256", input: "sha256:" + sha256Hex, wantAlgo: ChecksumSHA256, wantHex: sha256Hex},
		{name: "upper case normalized", input: "SHA256:" + strings.ToUpper(sha256Hex), wantAlgo: ChecksumSHA256, wantHex: sha256Hex},
		{name: "bare sha512", input: sha512Hex, wantAlgo: ChecksumSHA512, wantHex: sha512Hex},
		{name: "prefixed sha512", input: "sha512:" + sha512Hex, wantAlgo: ChecksumSHA512, wantHex: sha512Hex},
		{name: "unknown algorithm", input: "md5:d41d8cd98f00b204e9800998ecf8427e", wantErr: true},
		{name: "wrong length", input: "sha256:abcdef", wantErr: true},
		{name: "not hex", input: strings.Repeat("z", 64), wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sum, err := ParseChecksum(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseChecksum(%q) = %v, want error", tc.input, sum)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseChecksum(%q) error: %v", tc.input, err)
			}
			if sum.Algorithm != tc.wantAlgo || sum.Hex != tc.wantHex {
				t.Errorf("ParseChecksum(%q) = %v, want %s:%s", tc.input, sum, tc.wantAlgo, tc.wantHex)
			}
		})
	}
}

func TestVerifyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(path, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// sha256("hello\n")
	good, err := ParseChecksum("5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03")
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyFile(path, good, "data"); err != nil {
		t.Errorf("VerifyFile with matching checksum: %v", err)
	}

	bad := Checksum{Algorithm: ChecksumSHA256, Hex: strings.Repeat("0", 64)}
	err = VerifyFile(path, bad, "data")
	if !errors.Is(err, recipeerrors.ErrChecksumMismatch) {
		t.Fatalf("VerifyFile with wrong checksum = %v, want ErrChecksumMismatch", err)
	}
	var csErr *ChecksumError
	if !errors.As(err, &csErr) || csErr.Got.Hex != good.Hex {
		t.Errorf("ChecksumError.Got = %v, want %s", csErr, good.Hex)
	}
}
