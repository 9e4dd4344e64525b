package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/bone-ager/internal/domain/xray"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 10)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecoder_GrayPNG(t *testing.T) {
	img, err := NewDecoder(0).Decode(context.Background(), xray.FormatPNG, pngBytes(t, 3, 2))
	require.NoError(t, err)
	require.Equal(t, xray.CaptionRaster, img.Caption)
	require.Equal(t, []int{2, 3}, img.Pixels.Shape())
	require.Equal(t, 8, img.Pixels.BitsAllocated)
	require.Equal(t, []float64{0, 10, 20, 30, 40, 50}, img.Pixels.Data)
	require.Empty(t, img.Scrubbed)

	d, err := xray.Render(img)
	require.NoError(t, err)
	require.Equal(t, []uint8{0, 10, 20, 30, 40, 50}, d.Data)
}

func TestDecoder_Gray16PNGIsRescaled(t *testing.T) {
	src := image.NewGray16(image.Rect(0, 0, 2, 1))
	src.SetGray16(0, 0, color.Gray16{Y: 1000})
	src.SetGray16(1, 0, color.Gray16{Y: 3000})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := NewDecoder(0).Decode(context.Background(), xray.FormatPNG, buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 16, img.Pixels.BitsAllocated)
	require.True(t, img.RequiresRescale())

	d, err := xray.Render(img)
	require.NoError(t, err)
	require.Equal(t, []uint8{0, 255}, d.Data)
}

func TestDecoder_ColorJPEG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			src.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, src, &jpeg.Options{Quality: 95}))

	img, err := NewDecoder(0).Decode(context.Background(), xray.FormatJPG, buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, []int{4, 8, 3}, img.Pixels.Shape())
	require.InDelta(t, 200, img.Pixels.Data[0], 12)
}

func TestDecoder_GarbageRaster(t *testing.T) {
	_, err := NewDecoder(0).Decode(context.Background(), xray.FormatJPEG, []byte("definitely not an image"))
	require.ErrorIs(t, err, xray.ErrDecode)
}

func TestDecoder_UnknownFormat(t *testing.T) {
	_, err := NewDecoder(0).Decode(context.Background(), xray.Format("gif"), []byte{1})
	require.ErrorIs(t, err, xray.ErrUnsupportedFormat)
}

func TestDecoder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDecoder(0).Decode(ctx, xray.FormatPNG, pngBytes(t, 1, 1))
	require.ErrorIs(t, err, context.Canceled)
}

func TestDecoder_RasterOverPixelLimit(t *testing.T) {
	data := pngBytes(t, 20, 10)

	_, err := NewDecoder(199).Decode(context.Background(), xray.FormatPNG, data)
	require.ErrorIs(t, err, xray.ErrImageTooLarge)

	img, err := NewDecoder(200).Decode(context.Background(), xray.FormatPNG, data)
	require.NoError(t, err)
	require.Equal(t, []int{10, 20}, img.Pixels.Shape())
}

func TestCheckPixels(t *testing.T) {
	require.NoError(t, checkPixels(5000, 5000, 1, DefaultMaxPixels))
	require.ErrorIs(t, checkPixels(8000, 8000, 1, DefaultMaxPixels), xray.ErrImageTooLarge)
	require.ErrorIs(t, checkPixels(2000, 2000, 7, DefaultMaxPixels), xray.ErrImageTooLarge)
	require.NoError(t, checkPixels(0, 0, 1, 10), "unknown geometry is checked later")
}
