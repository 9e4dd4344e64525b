package patient

import (
	"errors"
	"fmt"
	"strings"
)

// Gender enum
type Gender string

const (
	GenderFemale  Gender = "Female"
	GenderMale    Gender = "Male"
	GenderUnknown Gender = "Unknown"
)

var ErrInvalidGender = errors.New("invalid gender")

// ParseGender accepts the three options case-insensitively.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "female":
		return GenderFemale, nil
	case "male":
		return GenderMale, nil
	case "unknown":
		return GenderUnknown, nil
	}
	return "", fmt.Errorf("%w: %q (allowed: Female, Male, Unknown)", ErrInvalidGender, s)
}

// Record is the minimal patient data that reaches a report.
// Birth date and ID are never kept.
type Record struct {
	Name   string `json:"name"`
	Gender Gender `json:"gender"`
}
