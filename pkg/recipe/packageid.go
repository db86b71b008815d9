package recipe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// PackageID identifies the binary package a resolved configuration
// produces. Header-only packages share one id across every configuration;
// otherwise consumer-only options are left out.
func (r *Recipe) PackageID(resolved *Resolved) string {
	var lines []string
	lines = append(lines, "[ref]", r.Identity.Reference())

	if r.HeaderOnly(resolved) {
		lines = append(lines, "[header_only]")
	} else {
		lines = append(lines, "[settings]")
		lines = append(lines, sortedPairs(resolved.Settings().Map())...)

		lines = append(lines, "[options]")
		opts := make(map[string]string)
		for _, name := range resolved.Names() {
			if spec, ok := resolved.Schema().Lookup(name); ok && spec.ConsumerOnly {
				continue
			}
			opts[name], _ = resolved.Value(name)
		}
		lines = append(lines, sortedPairs(opts)...)
	}

	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:20])
}

func sortedPairs(m map[string]string) []string {
	pairs := make([]string, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(pairs)
	return pairs
}
