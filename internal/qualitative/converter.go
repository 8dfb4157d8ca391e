// Package qualitative maps 0..100 scores onto the five P5 qualitative bands
// (SB, B, C, R, SR) using an ideal mean / ideal standard deviation model.
package qualitative

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultIdealMin = 1.0
	DefaultIdealMax = 4.0
)

var (
	ErrScoreOutOfRange = errors.New("score must be between 0 and 100")
	ErrEmptyScores     = errors.New("no scores to convert")
)

type Code string

const (
	CodeSB      Code = "SB"
	CodeB       Code = "B"
	CodeC       Code = "C"
	CodeR       Code = "R"
	CodeSR      Code = "SR"
	CodeInvalid Code = "TV"
)

var labels = map[Code]string{
	CodeSB:      "Sangat Baik (SB)",
	CodeB:       "Baik (B)",
	CodeC:       "Cukup (C)",
	CodeR:       "Kurang (R)",
	CodeSR:      "Sangat Rendah (SR)",
	CodeInvalid: "Tidak Valid",
}

// Codes lists the valid categories from best to worst.
var Codes = []Code{CodeSB, CodeB, CodeC, CodeR, CodeSR}

func (c Code) Label() string {
	if l, ok := labels[c]; ok {
		return l
	}
	return labels[CodeInvalid]
}

// Thresholds are expressed on the 0..100 domain.
type Thresholds struct {
	IdealMean   float64 `json:"ideal_mean"`
	IdealStdDev float64 `json:"ideal_std_dev"`
	SBThreshold float64 `json:"sb_threshold"`
	BMin        float64 `json:"b_min"`
	CMin        float64 `json:"c_min"`
	RMin        float64 `json:"r_min"`
}

type Result struct {
	Score      float64    `json:"score"`
	Code       Code       `json:"code"`
	Label      string     `json:"label"`
	Thresholds Thresholds `json:"thresholds"`
}

// Convert classifies a 0..100 score against the default 1..4 ideal scale.
func Convert(score float64) (Result, error) {
	return ConvertWithIdeal(score, DefaultIdealMin, DefaultIdealMax)
}

// ConvertWithIdeal classifies score with bands derived from the ideal
// minimum and maximum of the underlying item scale. Bands are half-open on
// (low, high]; 0 is its own band.
func ConvertWithIdeal(score, idealMin, idealMax float64) (Result, error) {
	if math.IsNaN(score) || score < 0 || score > 100 {
		return Result{}, fmt.Errorf("%w: got %v", ErrScoreOutOfRange, score)
	}
	if idealMax <= 0 || idealMax <= idealMin {
		return Result{}, fmt.Errorf("invalid ideal range [%v, %v]", idealMin, idealMax)
	}
	th := ComputeThresholds(idealMin, idealMax)

	var code Code
	switch {
	case score > th.BMin:
		code = CodeSB
	case score > th.CMin:
		code = CodeB
	case score > th.RMin:
		code = CodeC
	case score > 0:
		code = CodeR
	case score == 0:
		code = CodeSR
	default:
		code = CodeInvalid
	}
	return Result{Score: score, Code: code, Label: code.Label(), Thresholds: th}, nil
}

// ComputeThresholds rescales the ideal mean and deviation of the item scale
// to percentages of idealMax.
func ComputeThresholds(idealMin, idealMax float64) Thresholds {
	mean := (idealMin + idealMax) / 2 / idealMax * 100
	sd := (idealMax - idealMin) / 2 / idealMax * 100
	return Thresholds{
		IdealMean:   mean,
		IdealStdDev: sd,
		SBThreshold: math.Min(mean+1.5*sd, 100),
		BMin:        mean + 0.5*sd,
		CMin:        mean - 0.5*sd,
		RMin:        mean - 1.5*sd,
	}
}

// Average reduces raw item scores (1..4) to their mean and classifies it.
func Average(scores []float64) (Result, error) {
	if len(scores) == 0 {
		return Result{}, ErrEmptyScores
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return Convert(toPercent(sum / float64(len(scores))))
}

type Weighted struct {
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// WeightedAverage is Average with per-item weights.
func WeightedAverage(items []Weighted) (Result, error) {
	sum, weights := 0.0, 0.0
	for _, it := range items {
		sum += it.Score * it.Weight
		weights += it.Weight
	}
	if weights == 0 {
		return Result{}, ErrEmptyScores
	}
	return Convert(toPercent(sum / weights))
}

// ConvertBatch converts every score and fails on the first invalid one.
func ConvertBatch(scores []float64) ([]Result, error) {
	out := make([]Result, 0, len(scores))
	for i, s := range scores {
		r, err := Convert(s)
		if err != nil {
			return nil, fmt.Errorf("score[%d]: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func toPercent(itemScore float64) float64 {
	return itemScore / DefaultIdealMax * 100
}
