package xray

import "strings"

// Format is the declared upload format, taken from the file extension.
type Format string

const (
	FormatJPEG  Format = "jpeg"
	FormatJPG   Format = "jpg"
	FormatPNG   Format = "png"
	FormatDICOM Format = "dcm"
)

// ParseFormat maps a file extension (with or without the dot) to a Format.
func ParseFormat(ext string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")))
	switch f {
	case FormatJPEG, FormatJPG, FormatPNG, FormatDICOM:
		return f, nil
	}
	return "", &FormatError{Ext: ext}
}

func (f Format) IsDICOM() bool { return f == FormatDICOM }

// PixelBuffer holds decoded samples, frame-major then row-major, samples interleaved.
type PixelBuffer struct {
	Frames        int
	Rows          int
	Cols          int
	Samples       int
	BitsAllocated int
	Data          []float64
}

// NewPixelBuffer allocates a zeroed buffer for the given geometry.
func NewPixelBuffer(frames, rows, cols, samples, bits int) *PixelBuffer {
	return &PixelBuffer{
		Frames:        frames,
		Rows:          rows,
		Cols:          cols,
		Samples:       samples,
		BitsAllocated: bits,
		Data:          make([]float64, frames*rows*cols*samples),
	}
}

func (p *PixelBuffer) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Data)
}

// Shape follows the numpy convention: singleton frame and sample axes are dropped.
func (p *PixelBuffer) Shape() []int {
	return shape(p.Frames, p.Rows, p.Cols, p.Samples)
}

// DisplayBuffer is an 8-bit rendition of a PixelBuffer with the same geometry.
type DisplayBuffer struct {
	Frames  int
	Rows    int
	Cols    int
	Samples int
	Data    []uint8
}

func newDisplayBuffer(p *PixelBuffer) *DisplayBuffer {
	return &DisplayBuffer{
		Frames:  p.Frames,
		Rows:    p.Rows,
		Cols:    p.Cols,
		Samples: p.Samples,
		Data:    make([]uint8, len(p.Data)),
	}
}

func (d *DisplayBuffer) Shape() []int {
	return shape(d.Frames, d.Rows, d.Cols, d.Samples)
}

// Frame returns the samples of frame i.
func (d *DisplayBuffer) Frame(i int) []uint8 {
	n := d.Rows * d.Cols * d.Samples
	return d.Data[i*n : (i+1)*n]
}

func shape(frames, rows, cols, samples int) []int {
	out := make([]int, 0, 4)
	if frames > 1 {
		out = append(out, frames)
	}
	out = append(out, rows, cols)
	if samples > 1 {
		out = append(out, samples)
	}
	return out
}

const (
	CaptionDICOM  = "DICOM Image"
	CaptionRaster = "Uploaded Image"
)

// Image is a decoded upload, scrubbed when it came from DICOM.
type Image struct {
	Format   Format
	Pixels   *PixelBuffer
	Display  *DisplayBuffer
	Caption  string
	Scrubbed []string // DICOM fields cleared before extraction
}

// RequiresRescale reports whether the display rendition needs min-max rescaling.
// DICOM is always rescaled; raster only when deeper than 8 bits.
func (img *Image) RequiresRescale() bool {
	return img.Format.IsDICOM() || (img.Pixels != nil && img.Pixels.BitsAllocated > 8)
}
