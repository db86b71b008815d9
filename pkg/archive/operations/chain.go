package operations

import (
	"fmt"
	"io"
	"strings"
)

// Chain describes how an archive file was produced: an optional TAR bundle
// followed by compression operations, in application order.
type Chain struct {
	Bundle      bool
	Compression []uint8
}

// String returns the canonical extension-style name of the chain.
func (c Chain) String() string {
	key := chainKey(c)
	if name, ok := commonChains[key]; ok {
		return name
	}
	if key == "" {
		return "raw"
	}

	var names []string
	if c.Bundle {
		names = append(names, "tar")
	}
	for _, op := range c.Compression {
		names = append(names, strings.ToLower(GetName(op)))
	}
	return strings.Join(names, "|")
}

// ChainForName infers the operation chain from an archive file name or URL.
func ChainForName(name string) (Chain, error) {
	lower := strings.ToLower(name)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}

	// Longest suffix wins so "x.tar.gz" is not read as plain gzip.
	best := ""
	for suffix := range namedChains {
		if strings.HasSuffix(lower, "."+suffix) && len(suffix) > len(best) {
			best = suffix
		}
	}
	if best == "" {
		return Chain{}, fmt.Errorf("unknown archive extension: %s", name)
	}
	return namedChains[best], nil
}

// StringToChain parses an operation string such as "tar.gz" or "tar|xz".
func StringToChain(opString string) (Chain, error) {
	opString = strings.ToLower(strings.TrimSpace(opString))
	if opString == "" || opString == "raw" {
		return Chain{}, nil
	}

	if c, ok := namedChains[opString]; ok {
		return c, nil
	}

	if !strings.Contains(opString, "|") {
		return Chain{}, fmt.Errorf("unknown operation string: %s", opString)
	}

	var c Chain
	for i, part := range strings.Split(opString, "|") {
		part = strings.TrimSpace(strings.ToUpper(part))
		if part == "" {
			continue
		}
		op, ok := namedOperations[part]
		if !ok {
			return Chain{}, fmt.Errorf("unsupported operation: %s", part)
		}
		if op == OP_TAR {
			if i != 0 {
				return Chain{}, fmt.Errorf("tar must be the first operation in %q", opString)
			}
			c.Bundle = true
			continue
		}
		c.Compression = append(c.Compression, op)
	}
	return c, nil
}

// Decompress wraps input with readers that undo the chain's compression,
// outermost layer first. The returned closer releases every reader.
func (c Chain) Decompress(input io.Reader) (io.Reader, func() error, error) {
	current := input
	var closers []io.Closer

	closeAll := func() error {
		var first error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	for i := len(c.Compression) - 1; i >= 0; i-- {
		op, err := Get(c.Compression[i])
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		r, err := op.NewReader(current)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("reversing %s: %w", op.Name(), err)
		}
		closers = append(closers, r)
		current = r
	}

	return current, closeAll, nil
}

// Compress wraps output with writers that apply the chain's compression.
// Closing the returned writer flushes every layer.
func (c Chain) Compress(output io.Writer) (io.WriteCloser, error) {
	current := output
	var writers []io.WriteCloser

	for _, id := range c.Compression {
		op, err := Get(id)
		if err != nil {
			return nil, err
		}
		w, err := op.NewWriter(current)
		if err != nil {
			return nil, fmt.Errorf("applying %s: %w", op.Name(), err)
		}
		writers = append(writers, w)
		current = w
	}

	return &chainWriter{top: current, writers: writers}, nil
}

type chainWriter struct {
	top     io.Writer
	writers []io.WriteCloser
}

func (w *chainWriter) Write(p []byte) (int, error) {
	return w.top.Write(p)
}

// Close closes the innermost writer first so each layer flushes into the next.
func (w *chainWriter) Close() error {
	for i := len(w.writers) - 1; i >= 0; i-- {
		if err := w.writers[i].Close(); err != nil {
			return err
		}
	}
	return nil
}

func chainKey(c Chain) string {
	var parts []string
	if c.Bundle {
		parts = append(parts, fmt.Sprintf("%02x", OP_TAR))
	}
	for _, op := range c.Compression {
		parts = append(parts, fmt.Sprintf("%02x", op))
	}
	return strings.Join(parts, "-")
}

// Common operation chains
var commonChains = map[string]string{
	"01-10": "tar.gz",  // TAR + GZIP
	"01-13": "tar.bz2", // TAR + BZIP2
	"01-16": "tar.xz",  // TAR + XZ
	"10":    "gzip",
	"13":    "bzip2",
	"16":    "xz",
	"01":    "tar",
}

// Named chains for parsing; keys double as file extensions
var namedChains = map[string]Chain{
	"gz":  {Compression: []uint8{OP_GZIP}},
	"bz2": {Compression: []uint8{OP_BZIP2}},
	"xz":  {Compression: []uint8{OP_XZ}},
	"tar": {Bundle: true},

	"gzip":  {Compression: []uint8{OP_GZIP}},
	"bzip2": {Compression: []uint8{OP_BZIP2}},

	"tar.gz":  {Bundle: true, Compression: []uint8{OP_GZIP}},
	"tar.bz2": {Bundle: true, Compression: []uint8{OP_BZIP2}},
	"tar.xz":  {Bundle: true, Compression: []uint8{OP_XZ}},

	// Alternative names
	"tgz":  {Bundle: true, Compression: []uint8{OP_GZIP}},
	"tbz2": {Bundle: true, Compression: []uint8{OP_BZIP2}},
	"txz":  {Bundle: true, Compression: []uint8{OP_XZ}},
}

// Named operations for parsing
var namedOperations = map[string]uint8{
	"TAR":   OP_TAR,
	"GZIP":  OP_GZIP,
	"BZIP2": OP_BZIP2,
	"XZ":    OP_XZ,
}
