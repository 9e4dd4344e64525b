package assessment

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/bone-ager/internal/domain/patient"
)

func TestAgeEstimate_Interval(t *testing.T) {
	tests := []struct {
		months    float64
		low, high float64
	}{
		{120, 118.5, 121.5},
		{1, 0, 2.5},
		{216, 214.5, 216},
		{0, 0, 1.5},
	}

	for _, tt := range tests {
		low, high := AgeEstimate{Months: tt.months}.Interval()
		require.InDelta(t, tt.low, low, 1e-9, "low for %v", tt.months)
		require.InDelta(t, tt.high, high, 1e-9, "high for %v", tt.months)
	}
}

func TestAgeEstimate_Display(t *testing.T) {
	e := AgeEstimate{Months: 120}
	require.Equal(t, "120.0 months", e.DisplayMonths())
	require.Equal(t, "95% CI: 118.5 – 121.5 months", e.DisplayInterval())
}

func TestReport_Filename(t *testing.T) {
	r := &Report{Patient: patient.Record{Name: "Jane Doe", Gender: patient.GenderFemale}}
	require.Equal(t, "Jane_Doe_report.pdf", r.Filename())
}
