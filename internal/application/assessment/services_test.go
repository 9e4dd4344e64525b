package assessment

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/bone-ager/internal/application"
	domain "github.com/bryanwahyu/bone-ager/internal/domain/assessment"
	"github.com/bryanwahyu/bone-ager/internal/domain/patient"
	"github.com/bryanwahyu/bone-ager/internal/domain/xray"
	"github.com/bryanwahyu/bone-ager/internal/infra/estimator"
	"github.com/bryanwahyu/bone-ager/internal/infra/imaging"
	"github.com/bryanwahyu/bone-ager/internal/infra/imaging/dicomtest"
	"github.com/bryanwahyu/bone-ager/internal/infra/report"
)

type fakeDecoder struct {
	img *xray.Image
	err error
}

func (f *fakeDecoder) Decode(ctx context.Context, format xray.Format, data []byte) (*xray.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	img := *f.img
	img.Format = format
	return &img, nil
}

type fakePreviewer struct{}

func (fakePreviewer) Encode(d *xray.DisplayBuffer) ([]byte, error) { return []byte("png"), nil }
func (fakePreviewer) ContentType() string                         { return "image/png" }

type fakeComposer struct{ got *domain.Report }

func (f *fakeComposer) Compose(ctx context.Context, r *domain.Report) ([]byte, error) {
	f.got = r
	return []byte("%PDF-fake"), nil
}
func (f *fakeComposer) ContentType() string { return "application/pdf" }

type pickyComposer struct{ fakeComposer }

func (p *pickyComposer) CheckRecord(rec patient.Record) error {
	if rec.Name == "bad" {
		return domain.ErrUnrenderable
	}
	return nil
}

type recorder struct {
	mu       sync.Mutex
	stages   []string
	outcomes []string
}

func (r *recorder) ObserveStage(stage string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *recorder) CountAssessment(format, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, format+"/"+outcome)
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func flatImage() *xray.Image {
	p := xray.NewPixelBuffer(1, 4, 4, 1, 16)
	for i := range p.Data {
		p.Data[i] = 1000
	}
	return &xray.Image{Pixels: p, Caption: xray.CaptionDICOM, Scrubbed: []string{"PatientName"}}
}

func newFakeService(dec xray.Decoder) (*Service, *fakeComposer, *recorder) {
	comp := &fakeComposer{}
	rec := &recorder{}
	return &Service{
		Decoder:   dec,
		Previewer: fakePreviewer{},
		Estimator: estimator.NewConstant(estimator.DefaultMonths),
		Composer:  comp,
		Clock:     application.FixedClock{T: fixedNow},
		Metrics:   rec,
	}, comp, rec
}

func TestAssess_FlatDICOM(t *testing.T) {
	svc, comp, rec := newFakeService(&fakeDecoder{img: flatImage()})

	res, err := svc.Assess(context.Background(), AssessCommand{
		Filename:    "hand.DCM",
		Content:     []byte("x"),
		PatientName: "Test",
		Gender:      "female",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.ID)
	require.Equal(t, patient.Record{Name: "Test", Gender: patient.GenderFemale}, res.Patient)
	require.Equal(t, make([]uint8, 16), res.Image.Display.Data)
	require.Equal(t, 120.0, res.Estimate.Months)
	require.Equal(t, "Test_report.pdf", res.ReportFilename)
	require.Equal(t, "application/pdf", res.ReportContentType)
	require.Equal(t, "image/png", res.PreviewContentType)
	require.Equal(t, []byte("%PDF-fake"), res.ReportPDF)

	require.Same(t, res.Report, comp.got)
	require.Equal(t, fixedNow, comp.got.CreatedAt)
	require.Equal(t, res.ID, comp.got.AssessmentID)

	require.Equal(t, []string{StageDecode, StageNormalize, StagePreview, StageEstimate, StageCompose}, rec.stages)
	require.Equal(t, []string{"dcm/ok"}, rec.outcomes)
}

func TestAssess_RejectsBeforeDecoding(t *testing.T) {
	dec := &fakeDecoder{err: errors.New("must not be called")}

	tests := []struct {
		name    string
		cmd     AssessCommand
		wantErr error
	}{
		{"bad extension", AssessCommand{Filename: "hand.gif", Gender: "Male"}, xray.ErrUnsupportedFormat},
		{"no extension", AssessCommand{Filename: "hand", Gender: "Male"}, xray.ErrUnsupportedFormat},
		{"bad gender", AssessCommand{Filename: "hand.png", Gender: "other"}, patient.ErrInvalidGender},
		{"empty gender", AssessCommand{Filename: "hand.png"}, patient.ErrInvalidGender},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, comp, rec := newFakeService(dec)
			_, err := svc.Assess(context.Background(), tt.cmd)
			require.ErrorIs(t, err, tt.wantErr)
			require.Nil(t, comp.got)
			require.Empty(t, rec.stages)
			require.Len(t, rec.outcomes, 1)
			require.Contains(t, rec.outcomes[0], OutcomeRejected)
		})
	}
}

func TestAssess_DecodeFailureProducesNoReport(t *testing.T) {
	svc, comp, rec := newFakeService(&fakeDecoder{err: xray.ErrMissingPixelData})

	res, err := svc.Assess(context.Background(), AssessCommand{Filename: "a.dcm", Gender: "Unknown"})
	require.ErrorIs(t, err, xray.ErrMissingPixelData)
	require.Nil(t, res)
	require.Nil(t, comp.got)
	require.Equal(t, []string{StageDecode}, rec.stages)
	require.Equal(t, []string{"dcm/failed"}, rec.outcomes)
}

func TestAssess_EmptyPixelsFailAtNormalize(t *testing.T) {
	img := &xray.Image{Pixels: xray.NewPixelBuffer(1, 0, 0, 1, 8)}
	svc, _, _ := newFakeService(&fakeDecoder{img: img})

	_, err := svc.Assess(context.Background(), AssessCommand{Filename: "a.png", Gender: "Male"})
	require.ErrorIs(t, err, xray.ErrEmptyPixelBuffer)
	require.Contains(t, err.Error(), StageNormalize)
}

func TestAssess_EndToEndPNG(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 400, 100))
	for i := range src.Pix {
		src.Pix[i] = uint8(i % 256)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	svc := &Service{
		Decoder:   imaging.NewDecoder(0),
		Previewer: imaging.NewPNGPreviewer(imaging.DefaultPreviewWidth),
		Estimator: estimator.NewConstant(estimator.DefaultMonths),
		Composer:  report.NewPDFComposer("", ""),
		Clock:     application.FixedClock{T: fixedNow},
	}

	res, err := svc.Assess(context.Background(), AssessCommand{
		Filename:    "scan.png",
		Content:     buf.Bytes(),
		PatientName: "Jane Doe",
		Gender:      "Female",
	})
	require.NoError(t, err)
	require.Equal(t, xray.CaptionRaster, res.Image.Caption)
	require.Equal(t, []int{100, 400}, res.Image.Pixels.Shape())
	require.Equal(t, "Jane_Doe_report.pdf", res.ReportFilename)
	require.True(t, bytes.HasPrefix(res.ReportPDF, []byte("%PDF-")))

	prev, err := png.Decode(bytes.NewReader(res.Preview))
	require.NoError(t, err)
	require.Equal(t, 200, prev.Bounds().Dx())
	require.Equal(t, 50, prev.Bounds().Dy())

	low, high := res.Estimate.Interval()
	require.Equal(t, 118.5, low)
	require.Equal(t, 121.5, high)
}

func TestAssess_ConcurrentCallsShareNothing(t *testing.T) {
	svc, _, _ := newFakeService(&fakeDecoder{img: flatImage()})
	svc.Composer = report.NewPDFComposer("", "")

	var wg sync.WaitGroup
	ids := make([]domain.ID, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Assess(context.Background(), AssessCommand{Filename: "a.dcm", Gender: "Male", PatientName: "P"})
			if assert.NoError(t, err) {
				ids[i] = res.ID
			}
		}(i)
	}
	wg.Wait()

	seen := map[domain.ID]bool{}
	for _, id := range ids {
		require.NotEmpty(t, id)
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestAssess_ComposerRejectsNameBeforeDecoding(t *testing.T) {
	dec := &fakeDecoder{err: errors.New("must not be called")}
	svc, _, rec := newFakeService(dec)
	picky := &pickyComposer{}
	svc.Composer = picky

	_, err := svc.Assess(context.Background(), AssessCommand{Filename: "a.dcm", Gender: "Male", PatientName: "bad"})
	require.ErrorIs(t, err, domain.ErrUnrenderable)
	require.Nil(t, picky.got)
	require.Empty(t, rec.stages)
	require.Equal(t, []string{"dcm/rejected"}, rec.outcomes)
}

func TestAssess_EndToEndDICOM(t *testing.T) {
	composer := report.NewPDFComposer("", "")
	composer.Compress = false
	svc := &Service{
		Decoder:   imaging.NewDecoder(0),
		Previewer: imaging.NewPNGPreviewer(imaging.DefaultPreviewWidth),
		Estimator: estimator.NewConstant(estimator.DefaultMonths),
		Composer:  composer,
		Clock:     application.FixedClock{T: fixedNow},
	}

	res, err := svc.Assess(context.Background(), AssessCommand{
		Filename:    "hand.dcm",
		Content:     dicomtest.Build(4, 4, dicomtest.Flat(16, 500), dicomtest.Identity()...),
		PatientName: "Test",
		Gender:      "Male",
	})
	require.NoError(t, err)
	require.Equal(t, xray.CaptionDICOM, res.Image.Caption)
	require.Equal(t, []string{"PatientName", "PatientID", "PatientBirthDate"}, res.Image.Scrubbed)
	require.Equal(t, make([]uint8, 16), res.Image.Display.Data)
	require.Equal(t, "Test_report.pdf", res.ReportFilename)
	for _, want := range []string{"(Patient Name: Test)", "(Gender: Male)", "(Estimated Bone Age: 120.0 years)"} {
		require.Contains(t, string(res.ReportPDF), want)
	}
}
