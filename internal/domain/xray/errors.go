package xray

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat   = errors.New("unsupported image format")
	ErrDecode              = errors.New("image could not be decoded")
	ErrMissingPixelData    = errors.New("dicom has no pixel data")
	ErrUnsupportedEncoding = errors.New("unsupported pixel encoding")
	ErrEmptyPixelBuffer    = errors.New("pixel buffer is empty")
	ErrImageTooLarge       = errors.New("image dimensions exceed the pixel limit")
)

// FormatError carries the rejected extension.
type FormatError struct {
	Ext string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %q (allowed: jpeg, jpg, png, dcm)", ErrUnsupportedFormat, e.Ext)
}

func (e *FormatError) Unwrap() error { return ErrUnsupportedFormat }
