package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appassessment "github.com/bryanwahyu/bone-ager/internal/application/assessment"
	domain "github.com/bryanwahyu/bone-ager/internal/domain/assessment"
	"github.com/bryanwahyu/bone-ager/internal/domain/patient"
	"github.com/bryanwahyu/bone-ager/internal/domain/xray"
	"github.com/bryanwahyu/bone-ager/internal/middleware"
	"github.com/bryanwahyu/bone-ager/internal/observability"
)

const (
	DefaultMaxUploadBytes = 32 << 20
	multipartMemory       = 8 << 20

	captionHeader = "X-Image-Caption"
)

type Options struct {
	MaxUploadBytes int64
	AllowedOrigins []string
	// RateLimiter is optional; nil disables limiting.
	RateLimiter *middleware.RateLimiter
	Health      map[string]middleware.HealthChecker
}

type Router struct {
	svc       *appassessment.Service
	logger    *observability.Logger
	metrics   *observability.Metrics
	maxUpload int64
}

func NewRouter(svc *appassessment.Service, logger *observability.Logger, metrics *observability.Metrics, opts Options) http.Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	r := &Router{svc: svc, logger: logger, metrics: metrics, maxUpload: opts.MaxUploadBytes}

	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware(logger))
	mux.Use(middleware.MetricsMiddleware(metrics))
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Content-Disposition", captionHeader, middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if opts.RateLimiter != nil {
		mux.Use(middleware.RateLimitMiddleware(opts.RateLimiter, metrics.RateLimitedTotal.Inc))
	}

	mux.Get("/health", middleware.HealthHandler(opts.Health))
	mux.Get("/ready", middleware.ReadinessHandler(opts.Health))
	mux.Get("/live", middleware.LivenessHandler)
	mux.Method(http.MethodGet, "/metrics", metrics.Handler())

	mux.Route("/v1/assessments", func(rt chi.Router) {
		rt.Use(middleware.LimitUploadBody(opts.MaxUploadBytes))
		rt.Post("/", r.wrap(r.handleAssess))
		rt.Post("/report", r.wrap(r.handleReport))
		rt.Post("/preview", r.wrap(r.handlePreview))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				r.logger.WithRequest(middleware.RequestID(req.Context())).Error(err, "request failed")
				http.Error(w, "internal error", status)
				return
			}
			http.Error(w, err.Error(), status)
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, middleware.ErrUploadTooLarge),
		errors.Is(err, xray.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, xray.ErrUnsupportedFormat),
		errors.Is(err, patient.ErrInvalidGender),
		errors.Is(err, domain.ErrUnrenderable),
		errors.Is(err, middleware.ErrMissingField),
		errors.Is(err, middleware.ErrInvalidField),
		errors.Is(err, middleware.ErrEmptyUpload):
		return http.StatusBadRequest
	case errors.Is(err, xray.ErrDecode),
		errors.Is(err, xray.ErrMissingPixelData),
		errors.Is(err, xray.ErrUnsupportedEncoding),
		errors.Is(err, xray.ErrEmptyPixelBuffer):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// parseUpload reads the multipart form: file, patient_name, gender.
func (r *Router) parseUpload(req *http.Request) (appassessment.AssessCommand, error) {
	var cmd appassessment.AssessCommand

	if err := req.ParseMultipartForm(multipartMemory); err != nil {
		return cmd, middleware.UploadError(err)
	}
	defer func() { _ = req.MultipartForm.RemoveAll() }()

	file, header, err := req.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return cmd, middleware.UploadError(errors.New("file"))
		}
		return cmd, middleware.UploadError(err)
	}
	defer file.Close()

	name, err := middleware.ValidateUploadName(header.Filename)
	if err != nil {
		return cmd, err
	}
	content, err := io.ReadAll(file)
	if err != nil {
		return cmd, middleware.UploadError(err)
	}
	if err := middleware.ValidateUploadSize(int64(len(content)), r.maxUpload); err != nil {
		return cmd, err
	}
	r.metrics.ObserveUpload(len(content))

	patientName, err := middleware.ValidatePatientName(req.FormValue("patient_name"))
	if err != nil {
		return cmd, err
	}

	cmd.Filename = name
	cmd.Content = content
	cmd.PatientName = patientName
	cmd.Gender = req.FormValue("gender")
	return cmd, nil
}

func (r *Router) assess(req *http.Request) (*appassessment.AssessResult, error) {
	cmd, err := r.parseUpload(req)
	if err != nil {
		return nil, err
	}
	return r.svc.Assess(req.Context(), cmd)
}

type estimateResponse struct {
	Months          float64 `json:"months"`
	CILow           float64 `json:"ci_low"`
	CIHigh          float64 `json:"ci_high"`
	Display         string  `json:"display"`
	IntervalDisplay string  `json:"interval_display"`
}

type previewResponse struct {
	Caption     string `json:"caption"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

type reportResponse struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

type assessmentResponse struct {
	ID             string           `json:"id"`
	Patient        patient.Record   `json:"patient"`
	Shape          []int            `json:"shape"`
	Estimate       estimateResponse `json:"estimate"`
	Preview        previewResponse  `json:"preview"`
	Report         reportResponse   `json:"report"`
	ScrubbedFields []string         `json:"scrubbed_fields"`
}

// POST /v1/assessments
func (r *Router) handleAssess(w http.ResponseWriter, req *http.Request) error {
	res, err := r.assess(req)
	if err != nil {
		return err
	}

	low, high := res.Estimate.Interval()
	scrubbed := res.Image.Scrubbed
	if scrubbed == nil {
		scrubbed = []string{}
	}
	out := assessmentResponse{
		ID:      string(res.ID),
		Patient: res.Patient,
		Shape:   res.Image.Pixels.Shape(),
		Estimate: estimateResponse{
			Months:          res.Estimate.Months,
			CILow:           low,
			CIHigh:          high,
			Display:         res.Estimate.DisplayMonths(),
			IntervalDisplay: res.Estimate.DisplayInterval(),
		},
		Preview: previewResponse{
			Caption:     res.Image.Caption,
			ContentType: res.PreviewContentType,
			Data:        res.Preview,
		},
		Report: reportResponse{
			Filename:    res.ReportFilename,
			ContentType: res.ReportContentType,
			Data:        res.ReportPDF,
		},
		ScrubbedFields: scrubbed,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(out); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, err = buf.WriteTo(w)
	return err
}

// POST /v1/assessments/report
func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) error {
	res, err := r.assess(req)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", res.ReportContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.ReportFilename}))
	_, err = w.Write(res.ReportPDF)
	return err
}

// POST /v1/assessments/preview
func (r *Router) handlePreview(w http.ResponseWriter, req *http.Request) error {
	res, err := r.assess(req)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", res.PreviewContentType)
	w.Header().Set(captionHeader, res.Image.Caption)
	_, err = w.Write(res.Preview)
	return err
}
