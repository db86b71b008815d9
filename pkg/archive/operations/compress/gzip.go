package compress

import (
	"compress/gzip"
	"io"

	"github.com/provide-io/flavor/go/fmtpack/pkg/archive/operations"
)

func init() {
	// Register GZIP operation on package init
	operations.Register(NewGzipOperation())
}

// GzipOperation implements GZIP compression
type GzipOperation struct {
	operations.BaseOperation
}

// NewGzipOperation creates a new GZIP operation
func NewGzipOperation() *GzipOperation {
	return &GzipOperation{
		BaseOperation: operations.BaseOperation{
			OpID:   operations.OP_GZIP,
			OpName: "GZIP",
		},
	}
}

// NewWriter compresses everything written to output
func (o *GzipOperation) NewWriter(output io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(output, gzip.BestCompression)
}

// NewReader decompresses a GZIP stream
func (o *GzipOperation) NewReader(input io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(input)
}
