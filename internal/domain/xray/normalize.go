package xray

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Normalize rescales p onto [0,255] using its global min and max.
// A flat buffer maps to all zeros.
func Normalize(p *PixelBuffer) (*DisplayBuffer, error) {
	if p.Len() == 0 {
		return nil, ErrEmptyPixelBuffer
	}

	out := newDisplayBuffer(p)
	lo, hi := floats.Min(p.Data), floats.Max(p.Data)
	if lo == hi {
		return out, nil
	}

	scale := 255 / (hi - lo)
	for i, v := range p.Data {
		out.Data[i] = uint8(math.Round((v - lo) * scale))
	}
	return out, nil
}

// Passthrough copies samples that already fit in 8 bits, clamping anything outside.
func Passthrough(p *PixelBuffer) (*DisplayBuffer, error) {
	if p.Len() == 0 {
		return nil, ErrEmptyPixelBuffer
	}

	out := newDisplayBuffer(p)
	for i, v := range p.Data {
		out.Data[i] = uint8(math.Max(0, math.Min(255, math.Round(v))))
	}
	return out, nil
}

// Render picks the display rendition for img and stores it on the image.
func Render(img *Image) (*DisplayBuffer, error) {
	var (
		d   *DisplayBuffer
		err error
	)
	if img.RequiresRescale() {
		d, err = Normalize(img.Pixels)
	} else {
		d, err = Passthrough(img.Pixels)
	}
	if err != nil {
		return nil, err
	}
	img.Display = d
	return d, nil
}
