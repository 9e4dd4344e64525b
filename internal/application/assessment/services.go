package assessment

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bryanwahyu/bone-ager/internal/application"
	domain "github.com/bryanwahyu/bone-ager/internal/domain/assessment"
	"github.com/bryanwahyu/bone-ager/internal/domain/patient"
	"github.com/bryanwahyu/bone-ager/internal/domain/xray"
	"github.com/bryanwahyu/bone-ager/internal/observability"
)

const (
	StageDecode    = "decode"
	StageNormalize = "normalize"
	StagePreview   = "preview"
	StageEstimate  = "estimate"
	StageCompose   = "compose"

	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Recorder receives pipeline measurements. *observability.Metrics implements it.
type Recorder interface {
	ObserveStage(stage string, d time.Duration)
	CountAssessment(format, outcome string)
}

// Service runs one upload through decode, scrub, normalize, estimate and compose.
// It keeps no state between calls and is safe for concurrent use.
type Service struct {
	Decoder   xray.Decoder
	Previewer xray.Previewer
	Estimator domain.Estimator
	Composer  domain.Composer
	Clock     application.Clock
	Logger    *observability.Logger
	Metrics   Recorder
}

// AssessCommand carries everything a single request supplies; nothing is kept in a session.
type AssessCommand struct {
	Filename    string
	Content     []byte
	PatientName string
	Gender      string
}

type AssessResult struct {
	ID                 domain.ID
	Patient            patient.Record
	Image              *xray.Image
	Preview            []byte
	PreviewContentType string
	Estimate           domain.AgeEstimate
	Report             *domain.Report
	ReportPDF          []byte
	ReportFilename     string
	ReportContentType  string
}

var tracer = otel.Tracer("github.com/bryanwahyu/bone-ager/internal/application/assessment")

// Assess validates the command and runs the pipeline. Any failure aborts
// before a report exists.
func (s *Service) Assess(ctx context.Context, cmd AssessCommand) (*AssessResult, error) {
	started := time.Now()
	id := domain.ID(uuid.New().String())

	format, err := xray.ParseFormat(filepath.Ext(cmd.Filename))
	if err != nil {
		s.count("unknown", OutcomeRejected)
		return nil, err
	}
	gender, err := patient.ParseGender(cmd.Gender)
	if err != nil {
		s.count(string(format), OutcomeRejected)
		return nil, err
	}
	rec := patient.Record{Name: cmd.PatientName, Gender: gender}
	if rc, ok := s.Composer.(domain.RecordChecker); ok {
		if err := rc.CheckRecord(rec); err != nil {
			s.count(string(format), OutcomeRejected)
			return nil, err
		}
	}

	ctx, span := tracer.Start(ctx, "assessment.Assess", trace.WithAttributes(
		attribute.String("assessment.id", string(id)),
		attribute.String("upload.format", string(format)),
		attribute.Int("upload.bytes", len(cmd.Content)),
	))
	defer span.End()

	res := &AssessResult{ID: id, Patient: rec}

	fail := func(stage string, err error) (*AssessResult, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, stage)
		s.logger().AssessmentFailed(string(id), string(format), stage, err)
		s.count(string(format), OutcomeFailed)
		return nil, fmt.Errorf("%s: %w", stage, err)
	}

	if err := s.stage(ctx, StageDecode, func(ctx context.Context) (err error) {
		res.Image, err = s.Decoder.Decode(ctx, format, cmd.Content)
		return err
	}); err != nil {
		return fail(StageDecode, err)
	}

	if err := s.stage(ctx, StageNormalize, func(ctx context.Context) error {
		_, err := xray.Render(res.Image)
		return err
	}); err != nil {
		return fail(StageNormalize, err)
	}

	if err := s.stage(ctx, StagePreview, func(ctx context.Context) (err error) {
		res.Preview, err = s.Previewer.Encode(res.Image.Display)
		res.PreviewContentType = s.Previewer.ContentType()
		return err
	}); err != nil {
		return fail(StagePreview, err)
	}

	if err := s.stage(ctx, StageEstimate, func(ctx context.Context) (err error) {
		res.Estimate, err = s.Estimator.Estimate(ctx, res.Image)
		return err
	}); err != nil {
		return fail(StageEstimate, err)
	}

	res.Report = &domain.Report{
		AssessmentID: id,
		Patient:      rec,
		Estimate:     res.Estimate,
		CreatedAt:    s.now(),
	}
	if err := s.stage(ctx, StageCompose, func(ctx context.Context) (err error) {
		res.ReportPDF, err = s.Composer.Compose(ctx, res.Report)
		return err
	}); err != nil {
		return fail(StageCompose, err)
	}
	res.ReportFilename = res.Report.Filename()
	res.ReportContentType = s.Composer.ContentType()

	s.count(string(format), OutcomeOK)
	s.logger().AssessmentCompleted(string(id), string(format), res.Image.Pixels.Shape(),
		res.Image.Scrubbed, res.Estimate.Months, len(res.ReportPDF), time.Since(started))
	return res, nil
}

func (s *Service) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "assessment."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	if s.Metrics != nil {
		s.Metrics.ObserveStage(name, time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Service) count(format, outcome string) {
	if s.Metrics != nil {
		s.Metrics.CountAssessment(format, outcome)
	}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

func (s *Service) logger() *observability.Logger {
	if s.Logger == nil {
		return observability.Nop()
	}
	return s.Logger
}
