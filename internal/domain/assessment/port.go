package assessment

import (
	"context"
	"errors"

	"github.com/bryanwahyu/bone-ager/internal/domain/patient"
	"github.com/bryanwahyu/bone-ager/internal/domain/xray"
)

// ErrUnrenderable means the composer's character set cannot print the text.
var ErrUnrenderable = errors.New("text cannot be rendered in the report")

// Estimator is the bone age capability. Implementations receive the whole
// decoded image, raw pixels and display rendition, and return months.
type Estimator interface {
	Estimate(ctx context.Context, img *xray.Image) (AgeEstimate, error)
}

// Composer renders a report document.
type Composer interface {
	Compose(ctx context.Context, r *Report) ([]byte, error)
	ContentType() string
}

// RecordChecker is implemented by composers that cannot print every record.
// The service consults it before decoding anything.
type RecordChecker interface {
	CheckRecord(rec patient.Record) error
}
