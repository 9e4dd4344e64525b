package estimator

import (
	"context"

	"github.com/bryanwahyu/bone-ager/internal/domain/assessment"
	"github.com/bryanwahyu/bone-ager/internal/domain/xray"
)

// DefaultMonths is what the placeholder model reports for every image.
const DefaultMonths = 120

// Constant is a stand-in for a trained model: it ignores the image and
// returns a fixed age. Swap it for a real assessment.Estimator.
type Constant struct {
	Months float64
}

func NewConstant(months float64) *Constant {
	return &Constant{Months: months}
}

func (c *Constant) Estimate(ctx context.Context, img *xray.Image) (assessment.AgeEstimate, error) {
	if err := ctx.Err(); err != nil {
		return assessment.AgeEstimate{}, err
	}
	return assessment.AgeEstimate{Months: c.Months}, nil
}

// Check always passes; there is no model to load.
func (c *Constant) Check(ctx context.Context) error { return nil }

var _ assessment.Estimator = (*Constant)(nil)
