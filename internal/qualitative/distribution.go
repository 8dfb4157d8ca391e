package qualitative

import "math"

type Bucket struct {
	Code       Code    `json:"code"`
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type Distribution struct {
	Total   int      `json:"total"`
	Buckets []Bucket `json:"buckets"`
}

// CalculateDistribution buckets 0..100 scores into the five categories. Each
// percentage is rounded on its own, so the sum can drift from 100.
func CalculateDistribution(scores []float64) (Distribution, error) {
	if len(scores) == 0 {
		return Distribution{}, ErrEmptyScores
	}
	results, err := ConvertBatch(scores)
	if err != nil {
		return Distribution{}, err
	}
	counts := make(map[Code]int, len(Codes))
	for _, r := range results {
		counts[r.Code]++
	}
	d := Distribution{Total: len(scores), Buckets: make([]Bucket, 0, len(Codes))}
	for _, c := range Codes {
		n := counts[c]
		d.Buckets = append(d.Buckets, Bucket{
			Code:       c,
			Label:      c.Label(),
			Count:      n,
			Percentage: math.Round(float64(n) / float64(len(scores)) * 100),
		})
	}
	return d, nil
}

// Bucket returns the bucket for code, or a zero Bucket.
func (d Distribution) Bucket(code Code) Bucket {
	for _, b := range d.Buckets {
		if b.Code == code {
			return b
		}
	}
	return Bucket{Code: code, Label: code.Label()}
}
