package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mind-engage/mindengage-p5/internal/qualitative"
)

type convertReq struct {
	Score *float64 `json:"score" validate:"required"`
}

type convertResp struct {
	qualitative.Result
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

type distributionReq struct {
	Scores []float64 `json:"scores" validate:"required,min=1,max=10000"`
}

// POST /qualitative/convert  { "score": 72.5 }
func ConvertHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req convertReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, "score required", http.StatusBadRequest)
			return
		}
		res, err := qualitative.Convert(*req.Score)
		if err != nil {
			fail(w, r, log, "convert", err)
			return
		}
		writeJSON(w, http.StatusOK, convertResp{
			Result:         res,
			Description:    qualitative.Description(res.Code),
			Recommendation: qualitative.Recommendation(res.Code),
		})
	}
}

// POST /qualitative/distribution  { "scores": [90, 55.5, 0] }
func DistributionHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req distributionReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, "scores: 1..10000 values required", http.StatusBadRequest)
			return
		}
		d, err := qualitative.CalculateDistribution(req.Scores)
		if err != nil {
			fail(w, r, log, "distribution", err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}
