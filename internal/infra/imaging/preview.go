package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"

	"github.com/bryanwahyu/bone-ager/internal/domain/xray"
)

// DefaultPreviewWidth matches the width the image is shown at next to the result.
const DefaultPreviewWidth = 200

// PNGPreviewer renders the first frame of a display buffer as PNG,
// downscaled to Width when wider.
type PNGPreviewer struct {
	Width int
}

func NewPNGPreviewer(width int) *PNGPreviewer {
	return &PNGPreviewer{Width: width}
}

func (p *PNGPreviewer) ContentType() string { return "image/png" }

func (p *PNGPreviewer) Encode(d *xray.DisplayBuffer) ([]byte, error) {
	if d == nil || len(d.Data) == 0 || d.Rows == 0 || d.Cols == 0 {
		return nil, xray.ErrEmptyPixelBuffer
	}

	var img image.Image = frameImage(d, 0)
	if p.Width > 0 && d.Cols > p.Width {
		img = scaleToWidth(img, p.Width)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func frameImage(d *xray.DisplayBuffer, i int) draw.Image {
	px := d.Frame(i)
	rect := image.Rect(0, 0, d.Cols, d.Rows)

	if d.Samples < 3 {
		g := image.NewGray(rect)
		for j := 0; j < d.Rows*d.Cols; j++ {
			g.Pix[j] = px[j*d.Samples]
		}
		return g
	}

	rgba := image.NewRGBA(rect)
	for y := 0; y < d.Rows; y++ {
		for x := 0; x < d.Cols; x++ {
			j := (y*d.Cols + x) * d.Samples
			rgba.SetRGBA(x, y, color.RGBA{R: px[j], G: px[j+1], B: px[j+2], A: 255})
		}
	}
	return rgba
}

func scaleToWidth(src image.Image, width int) image.Image {
	b := src.Bounds()
	height := (b.Dy()*width + b.Dx()/2) / b.Dx()
	if height < 1 {
		height = 1
	}

	rect := image.Rect(0, 0, width, height)
	var dst draw.Image
	if _, ok := src.(*image.Gray); ok {
		dst = image.NewGray(rect)
	} else {
		dst = image.NewRGBA(rect)
	}
	draw.CatmullRom.Scale(dst, rect, src, b, draw.Src, nil)
	return dst
}

var _ xray.Previewer = (*PNGPreviewer)(nil)
