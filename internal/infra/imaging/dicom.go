package imaging

import (
	"bytes"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/bryanwahyu/bone-ager/internal/domain/xray"
)

const (
	dicomPreambleLen = 128
	dicomMagic       = "DICM"
)

// identityFields are cleared before any pixel data leaves the data set.
var identityFields = []struct {
	name string
	tag  tag.Tag
}{
	{"PatientName", tag.PatientName},
	{"PatientID", tag.PatientID},
	{"PatientBirthDate", tag.PatientBirthDate},
}

// IsDICOM sniffs the Part 10 preamble.
func IsDICOM(data []byte) bool {
	n := dicomPreambleLen + len(dicomMagic)
	return len(data) >= n && string(data[dicomPreambleLen:n]) == dicomMagic
}

// ParseDICOM reads a full Part 10 file, pixel data included.
func ParseDICOM(data []byte) (dicom.Dataset, error) {
	if !IsDICOM(data) {
		return dicom.Dataset{}, fmt.Errorf("%w: missing DICM preamble", xray.ErrDecode)
	}
	ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		return dicom.Dataset{}, fmt.Errorf("%w: %v", xray.ErrDecode, err)
	}
	return ds, nil
}

// Scrub blanks the patient identity fields in place and returns the names of
// the fields it cleared. Absent fields are left absent.
func Scrub(ds *dicom.Dataset) ([]string, error) {
	cleared := make([]string, 0, len(identityFields))
	for _, f := range identityFields {
		elem, err := ds.FindElementByTag(f.tag)
		if err != nil {
			// not present
			continue
		}
		v, err := dicom.NewValue([]string{""})
		if err != nil {
			return cleared, fmt.Errorf("scrub %s: %w", f.name, err)
		}
		elem.Value = v
		cleared = append(cleared, f.name)
	}
	return cleared, nil
}

// PixelsFromDataset extracts every frame of PixelData into one buffer.
// The header geometry is checked against maxPixels before the buffer exists.
func PixelsFromDataset(ds *dicom.Dataset, maxPixels int) (*xray.PixelBuffer, error) {
	elem, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, xray.ErrMissingPixelData
	}
	info, ok := elem.Value.GetValue().(dicom.PixelDataInfo)
	if !ok || len(info.Frames) == 0 {
		return nil, xray.ErrMissingPixelData
	}

	frames := max(len(info.Frames), intValue(ds, tag.NumberOfFrames))
	if err := checkPixels(intValue(ds, tag.Columns), intValue(ds, tag.Rows), frames, maxPixels); err != nil {
		return nil, err
	}

	var p *xray.PixelBuffer
	for i := range info.Frames {
		fr := info.Frames[i]
		if fr.Encapsulated {
			return pixelsFromEncapsulated(fr.EncapsulatedData.Data, i, len(info.Frames), p, maxPixels)
		}

		nf, err := fr.GetNativeFrame()
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %v", xray.ErrUnsupportedEncoding, i, err)
		}
		if p == nil {
			if err := checkPixels(nf.Cols, nf.Rows, len(info.Frames), maxPixels); err != nil {
				return nil, err
			}
			samples := 1
			if len(nf.Data) > 0 && len(nf.Data[0]) > 0 {
				samples = len(nf.Data[0])
			}
			p = xray.NewPixelBuffer(len(info.Frames), nf.Rows, nf.Cols, samples, nf.BitsPerSample)
		}
		if nf.Rows != p.Rows || nf.Cols != p.Cols || len(nf.Data) != p.Rows*p.Cols {
			return nil, fmt.Errorf("%w: frame %d geometry %dx%d (%d pixels) differs from %dx%d",
				xray.ErrDecode, i, nf.Rows, nf.Cols, len(nf.Data), p.Rows, p.Cols)
		}

		off := i * p.Rows * p.Cols * p.Samples
		for px, s := range nf.Data {
			for k := 0; k < p.Samples && k < len(s); k++ {
				p.Data[off+px*p.Samples+k] = float64(s[k])
			}
		}
	}

	if p.Len() == 0 {
		return nil, xray.ErrMissingPixelData
	}
	return p, nil
}

// pixelsFromEncapsulated handles single-frame compressed pixel data whose
// payload is something image.Decode understands (baseline JPEG).
func pixelsFromEncapsulated(data []byte, index, total int, prev *xray.PixelBuffer, maxPixels int) (*xray.PixelBuffer, error) {
	if total != 1 || prev != nil || index != 0 {
		return nil, fmt.Errorf("%w: multi-frame encapsulated pixel data", xray.ErrUnsupportedEncoding)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: encapsulated frame: %v", xray.ErrUnsupportedEncoding, err)
	}
	if err := checkPixels(cfg.Width, cfg.Height, 1, maxPixels); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: encapsulated frame: %v", xray.ErrUnsupportedEncoding, err)
	}
	return pixelsFromImage(img), nil
}

// intValue reads the first value of a US or IS element; absent or unparsable is 0.
func intValue(ds *dicom.Dataset, t tag.Tag) int {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return 0
	}
	switch v := elem.Value.GetValue().(type) {
	case []int:
		if len(v) > 0 {
			return v[0]
		}
	case []string:
		if len(v) > 0 {
			n, _ := strconv.Atoi(strings.TrimSpace(v[0]))
			return n
		}
	}
	return 0
}

func decodeDICOM(data []byte, maxPixels int) (*xray.Image, error) {
	ds, err := ParseDICOM(data)
	if err != nil {
		return nil, err
	}

	scrubbed, err := Scrub(&ds)
	if err != nil {
		return nil, err
	}

	pixels, err := PixelsFromDataset(&ds, maxPixels)
	if err != nil {
		return nil, err
	}

	return &xray.Image{
		Format:   xray.FormatDICOM,
		Pixels:   pixels,
		Caption:  xray.CaptionDICOM,
		Scrubbed: scrubbed,
	}, nil
}
