// Package operations holds the registry of stream transformations applied to
// source and package archives.
package operations

import (
	"fmt"
	"io"
)

// Operation identifiers
const (
	// No operation - raw data
	OP_NONE = 0x00

	// Bundle operations (0x01-0x0F)
	OP_TAR = 0x01 // POSIX TAR archive

	// Compression operations (0x10-0x2F)
	OP_GZIP  = 0x10 // GZIP compression
	OP_BZIP2 = 0x13 // BZIP2 compression
	OP_XZ    = 0x16 // XZ/LZMA2 compression
)

// Operation is a reversible stream transformation.
type Operation interface {
	// ID returns the operation identifier (e.g., OP_GZIP)
	ID() uint8

	// Name returns the human-readable name
	Name() string

	// NewWriter wraps output so that bytes written to it are transformed
	NewWriter(output io.Writer) (io.WriteCloser, error)

	// NewReader wraps input so that reads undo the transformation
	NewReader(input io.Reader) (io.ReadCloser, error)
}

// BaseOperation provides common functionality for operations
type BaseOperation struct {
	OpID   uint8
	OpName string
}

func (o *BaseOperation) ID() uint8 {
	return o.OpID
}

func (o *BaseOperation) Name() string {
	return o.OpName
}

// Registry maps operation IDs to implementations
var Registry = make(map[uint8]Operation)

// Register registers an operation implementation
func Register(op Operation) {
	Registry[op.ID()] = op
}

// Get retrieves an operation by ID
func Get(id uint8) (Operation, error) {
	op, ok := Registry[id]
	if !ok {
		return nil, fmt.Errorf("unknown operation: 0x%02x", id)
	}
	return op, nil
}

// GetName returns the name of an operation by ID
func GetName(id uint8) string {
	switch id {
	case OP_NONE:
		return "NONE"
	case OP_TAR:
		return "TAR"
	case OP_GZIP:
		return "GZIP"
	case OP_BZIP2:
		return "BZIP2"
	case OP_XZ:
		return "XZ"
	default:
		return fmt.Sprintf("UNKNOWN_%02x", id)
	}
}

// ApplyStream copies input to output through op.
func ApplyStream(op Operation, input io.Reader, output io.Writer) error {
	w, err := op.NewWriter(output)
	if err != nil {
		return fmt.Errorf("creating %s writer: %w", op.Name(), err)
	}
	if _, err := io.Copy(w, input); err != nil {
		w.Close()
		return fmt.Errorf("applying %s: %w", op.Name(), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing %s writer: %w", op.Name(), err)
	}
	return nil
}

// ReverseStream copies input to output, undoing op.
func ReverseStream(op Operation, input io.Reader, output io.Writer) error {
	r, err := op.NewReader(input)
	if err != nil {
		return fmt.Errorf("creating %s reader: %w", op.Name(), err)
	}
	defer r.Close()

	if _, err := io.Copy(output, r); err != nil {
		return fmt.Errorf("reversing %s: %w", op.Name(), err)
	}
	return nil
}
