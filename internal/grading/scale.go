package grading

import (
	"math"

	"github.com/mind-engage/mindengage-p5/internal/qualitative"
)

const (
	// ItemMaxScale is the top of the Likert-style item scale (1..4).
	ItemMaxScale = 4.0
	ItemMinScale = 1.0

	// MaxScore is the top of the dimension score domain.
	MaxScore = 100.0

	DefaultDimensionID   = "default"
	DefaultDimensionName = "Umum"
)

// ItemPercent rescales a sum of n raw item scores to 0..100.
func ItemPercent(sum float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return round2(sum / (float64(n) * ItemMaxScale) * MaxScore)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// label classifies a dimension score. Scores outside 0..100 (raw answers
// beyond the item scale) are clamped before classification.
func label(score float64) qualitative.Result {
	clamped := math.Max(0, math.Min(MaxScore, score))
	r, err := qualitative.Convert(clamped)
	if err != nil {
		return qualitative.Result{Score: score, Code: qualitative.CodeInvalid, Label: qualitative.CodeInvalid.Label()}
	}
	r.Score = score
	return r
}
