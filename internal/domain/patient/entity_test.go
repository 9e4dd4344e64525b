package patient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGender(t *testing.T) {
	for in, want := range map[string]Gender{
		"Female":    GenderFemale,
		"male":      GenderMale,
		" UNKNOWN ": GenderUnknown,
	} {
		got, err := ParseGender(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	for _, in := range []string{"", "other", "f"} {
		_, err := ParseGender(in)
		require.ErrorIs(t, err, ErrInvalidGender, in)
	}
}
