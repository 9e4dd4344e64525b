package imaging

import (
	"context"
	"fmt"

	"github.com/bryanwahyu/bone-ager/internal/domain/xray"
)

// DefaultMaxPixels bounds rows × cols × frames of a single upload.
const DefaultMaxPixels = 25_000_000

// Decoder dispatches on the declared format.
type Decoder struct {
	MaxPixels int
}

// NewDecoder uses DefaultMaxPixels when maxPixels is not positive.
func NewDecoder(maxPixels int) *Decoder {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Decoder{MaxPixels: maxPixels}
}

func (d *Decoder) Decode(ctx context.Context, format xray.Format, data []byte) (*xray.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", xray.ErrDecode)
	}

	switch format {
	case xray.FormatDICOM:
		return decodeDICOM(data, d.MaxPixels)
	case xray.FormatJPEG, xray.FormatJPG, xray.FormatPNG:
		return decodeRaster(format, data, d.MaxPixels)
	}
	return nil, &xray.FormatError{Ext: string(format)}
}

var _ xray.Decoder = (*Decoder)(nil)
