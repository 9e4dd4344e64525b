package xray

import "context"

// Decoder turns uploaded bytes into an Image. DICOM decoders must scrub
// patient identity before returning.
type Decoder interface {
	Decode(ctx context.Context, format Format, data []byte) (*Image, error)
}

// Previewer encodes a display buffer for presentation.
type Previewer interface {
	Encode(d *DisplayBuffer) ([]byte, error)
	ContentType() string
}
