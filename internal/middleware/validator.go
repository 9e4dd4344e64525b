package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Upload validation helpers shared by the assessment handlers.

var (
	ErrMissingField   = errors.New("missing form field")
	ErrInvalidField   = errors.New("invalid form field")
	ErrUploadTooLarge = errors.New("upload too large")
	ErrEmptyUpload    = errors.New("uploaded file is empty")
)

const MaxPatientNameLength = 256

// LimitUploadBody caps the request body at max bytes.
func LimitUploadBody(max int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > max {
				http.Error(w, ErrUploadTooLarge.Error(), http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, max)
			next.ServeHTTP(w, r)
		})
	}
}

// UploadError normalizes errors from multipart parsing: body-limit hits
// become ErrUploadTooLarge, everything else a missing-field error.
func UploadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: limit is %d bytes", ErrUploadTooLarge, maxErr.Limit)
	}
	return fmt.Errorf("%w: %v", ErrMissingField, err)
}

// ValidateUploadName checks the client-supplied file name. Only the base
// name is kept; its extension decides the decoder.
func ValidateUploadName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || base == "." || base == "/" {
		return "", fmt.Errorf("%w: file", ErrMissingField)
	}
	if strings.ContainsRune(base, 0) {
		return "", fmt.Errorf("%w: invalid characters in file name", ErrInvalidField)
	}
	return base, nil
}

// ValidateUploadSize rejects empty uploads and anything over max.
func ValidateUploadSize(n, max int64) error {
	if n == 0 {
		return ErrEmptyUpload
	}
	if max > 0 && n > max {
		return fmt.Errorf("%w: %d > %d bytes", ErrUploadTooLarge, n, max)
	}
	return nil
}

// ValidatePatientName strips control characters; the name is otherwise free text.
func ValidatePatientName(name string) (string, error) {
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("%w: patient_name is not valid UTF-8", ErrInvalidField)
	}
	clean := SanitizeString(name)
	if utf8.RuneCountInString(clean) > MaxPatientNameLength {
		return "", fmt.Errorf("%w: patient_name longer than %d characters", ErrInvalidField, MaxPatientNameLength)
	}
	return clean, nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 && r != 127 {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}
