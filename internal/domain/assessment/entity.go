package assessment

import (
	"fmt"
	"math"
	"time"

	"github.com/bryanwahyu/bone-ager/internal/domain/patient"
)

const (
	// ConfidenceOffsetMonths is a fixed band, not a statistical interval.
	ConfidenceOffsetMonths = 1.5
	MaxAgeMonths           = 216.0
)

// ID identifies a single assessment request.
type ID string

// AgeEstimate is an estimated bone age in months.
type AgeEstimate struct {
	Months float64 `json:"months"`
}

// Interval returns the confidence band clamped to [0, MaxAgeMonths].
func (e AgeEstimate) Interval() (low, high float64) {
	low = math.Max(0, e.Months-ConfidenceOffsetMonths)
	high = math.Min(MaxAgeMonths, e.Months+ConfidenceOffsetMonths)
	return low, high
}

func (e AgeEstimate) DisplayMonths() string {
	return fmt.Sprintf("%.1f months", e.Months)
}

func (e AgeEstimate) DisplayInterval() string {
	low, high := e.Interval()
	return fmt.Sprintf("95%% CI: %.1f – %.1f months", low, high)
}

// Report is the write-once artifact composed from a patient record and an estimate.
type Report struct {
	AssessmentID ID
	Patient      patient.Record
	Estimate     AgeEstimate
	CreatedAt    time.Time
}

// Filename is the suggested download name.
func (r *Report) Filename() string {
	return ReportFilename(r.Patient.Name)
}
