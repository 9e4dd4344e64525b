package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog for structured logging.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a JSON logger tagged with service and version.
// Unknown levels fall back to info.
func NewLogger(service, version, level string, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(output).Level(lvl).With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Str("host", getHostname()).
		Logger()

	return &Logger{logger: logger}
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// WithRequest adds request_id context to logger.
func (l *Logger) WithRequest(requestID string) *Logger {
	return &Logger{logger: l.logger.With().Str("request_id", requestID).Logger()}
}

func (l *Logger) Debug(msg string) { l.logger.Debug().Msg(msg) }

func (l *Logger) Info(msg string) { l.logger.Info().Msg(msg) }

func (l *Logger) Warn(msg string) { l.logger.Warn().Msg(msg) }

func (l *Logger) Error(err error, msg string) { l.logger.Error().Err(err).Msg(msg) }

func (l *Logger) Fatal(err error, msg string) { l.logger.Fatal().Err(err).Msg(msg) }

// AssessmentCompleted logs a finished pipeline. Patient names are never logged.
func (l *Logger) AssessmentCompleted(id, format string, shape []int, scrubbed []string, months float64, reportBytes int, elapsed time.Duration) {
	l.logger.Info().
		Str("assessment_id", id).
		Str("format", format).
		Ints("shape", shape).
		Strs("scrubbed_fields", scrubbed).
		Float64("estimate_months", months).
		Int("report_bytes", reportBytes).
		Float64("elapsed_seconds", elapsed.Seconds()).
		Msg("assessment completed")
}

// AssessmentFailed logs a pipeline abort at the given stage.
func (l *Logger) AssessmentFailed(id, format, stage string, err error) {
	l.logger.Warn().
		Str("assessment_id", id).
		Str("format", format).
		Str("stage", stage).
		Err(err).
		Msg("assessment failed")
}

// HTTPRequest is the access log line.
func (l *Logger) HTTPRequest(method, path string, status int, duration time.Duration, bytes int64, remote, userAgent string) {
	ev := l.logger.Info()
	if status >= 500 {
		ev = l.logger.Error()
	} else if status >= 400 {
		ev = l.logger.Warn()
	}
	ev.Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration", duration).
		Int64("bytes", bytes).
		Str("ip", remote).
		Str("user_agent", userAgent).
		Msg("http request")
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
