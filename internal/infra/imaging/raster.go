package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // registers JPEG
	_ "image/png"  // registers PNG

	"github.com/bryanwahyu/bone-ager/internal/domain/xray"
)

func decodeRaster(format xray.Format, data []byte, maxPixels int) (*xray.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", xray.ErrDecode, format, err)
	}
	if err := checkPixels(cfg.Width, cfg.Height, 1, maxPixels); err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", xray.ErrDecode, format, err)
	}

	return &xray.Image{
		Format:  format,
		Pixels:  pixelsFromImage(src),
		Caption: xray.CaptionRaster,
	}, nil
}

// checkPixels rejects geometry over maxPixels before anything is allocated.
func checkPixels(cols, rows, frames, maxPixels int) error {
	if cols <= 0 || rows <= 0 || frames <= 0 {
		return nil
	}
	if maxPixels > 0 && cols > maxPixels/rows/frames {
		return fmt.Errorf("%w: %dx%d x %d frames, limit %d pixels", xray.ErrImageTooLarge, cols, rows, frames, maxPixels)
	}
	return nil
}

// pixelsFromImage flattens img into a single-frame buffer. Gray images keep one
// sample per pixel (16-bit gray keeps its depth); everything else becomes RGB.
// Alpha is dropped.
func pixelsFromImage(img image.Image) *xray.PixelBuffer {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch src := img.(type) {
	case *image.Gray:
		p := xray.NewPixelBuffer(1, h, w, 1, 8)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				p.Data[y*w+x] = float64(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return p

	case *image.Gray16:
		p := xray.NewPixelBuffer(1, h, w, 1, 16)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				p.Data[y*w+x] = float64(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return p
	}

	p := xray.NewPixelBuffer(1, h, w, 3, 8)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := (y*w + x) * 3
			p.Data[i] = float64(r >> 8)
			p.Data[i+1] = float64(g >> 8)
			p.Data[i+2] = float64(bl >> 8)
		}
	}
	return p
}
