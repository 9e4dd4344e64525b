package assessment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReportFilename(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Jane Doe", "Jane_Doe_report.pdf"},
		{"  Bob  ", "Bob_report.pdf"},
		{"Mary Ann  Smith", "Mary_Ann__Smith_report.pdf"},
		{"", "patient_report.pdf"},
		{"   ", "patient_report.pdf"},
		{"../../etc/passwd", ".._.._etc_passwd_report.pdf"},
		{`a\b:c`, "a_b_c_report.pdf"},
		{"line\nbreak", "line_break_report.pdf"},
		{"José", "José_report.pdf"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, ReportFilename(tt.name), "input %q", tt.name)
	}
}
