package compress

import (
	"io"

	"github.com/provide-io/flavor/go/fmtpack/pkg/archive/operations"
	"github.com/ulikunitz/xz"
)

func init() {
	operations.Register(NewXzOperation())
}

// XzOperation implements XZ/LZMA2 compression
type XzOperation struct {
	operations.BaseOperation
}

// NewXzOperation creates a new XZ operation
func NewXzOperation() *XzOperation {
	return &XzOperation{
		BaseOperation: operations.BaseOperation{
			OpID:   operations.OP_XZ,
			OpName: "XZ",
		},
	}
}

// NewWriter compresses everything written to output
func (o *XzOperation) NewWriter(output io.Writer) (io.WriteCloser, error) {
	return xz.NewWriter(output)
}

// NewReader decompresses an XZ stream. The xz reader holds no resources,
// so Close is a no-op.
func (o *XzOperation) NewReader(input io.Reader) (io.ReadCloser, error) {
	r, err := xz.NewReader(input)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(r), nil
}
