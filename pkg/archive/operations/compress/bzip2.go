package compress

import (
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/provide-io/flavor/go/fmtpack/pkg/archive/operations"
)

func init() {
	operations.Register(NewBzip2Operation())
}

// Bzip2Operation implements BZIP2 compression
type Bzip2Operation struct {
	operations.BaseOperation
}

// NewBzip2Operation creates a new BZIP2 operation
func NewBzip2Operation() *Bzip2Operation {
	return &Bzip2Operation{
		BaseOperation: operations.BaseOperation{
			OpID:   operations.OP_BZIP2,
			OpName: "BZIP2",
		},
	}
}

// NewWriter compresses everything written to output at level 9
func (o *Bzip2Operation) NewWriter(output io.Writer) (io.WriteCloser, error) {
	return bzip2.NewWriter(output, &bzip2.WriterConfig{Level: 9})
}

// NewReader decompresses a BZIP2 stream
func (o *Bzip2Operation) NewReader(input io.Reader) (io.ReadCloser, error) {
	return bzip2.NewReader(input, &bzip2.ReaderConfig{})
}
