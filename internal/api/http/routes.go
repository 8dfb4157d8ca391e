package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-p5/internal/grading"
	"github.com/mind-engage/mindengage-p5/internal/rbac"
)

type Deps struct {
	Scorer     *grading.Scorer
	Calculator *grading.Calculator
	Log        *slog.Logger
}

// isStudentSelf matches requests about the caller's own scores.
func isStudentSelf(r *http.Request) bool {
	sub := rbac.SubjectFromContext(r.Context())
	return sub != "" && sub == chi.URLParam(r, "studentID")
}

// MountScoring registers the scoring routes. Callers put authentication in
// front; permissions are checked here.
func MountScoring(r chi.Router, d Deps) {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	r.Route("/submissions", func(sr chi.Router) {
		sr.With(rbac.Require(rbac.PermScoreCalculate)).Post("/score-pending", ScorePendingHandler(d.Calculator, log))
		sr.With(rbac.Require(rbac.PermScoreView)).Get("/{submissionID}/dimension-scores", SubmissionDimensionScoresHandler(d.Scorer, log))
		sr.With(rbac.Require(rbac.PermScoreCalculate)).Post("/{submissionID}/score", ScoreSubmissionHandler(d.Calculator, log))
	})

	r.Route("/projects/{projectID}", func(pr chi.Router) {
		pr.Route("/students/{studentID}", func(st chi.Router) {
			st.Use(rbac.Require(rbac.PermScoreView), rbac.RequireOwnerOr(rbac.PermScoreViewAny, isStudentSelf))
			st.Get("/dimension-scores", StudentDimensionScoresHandler(d.Scorer, log))
			st.Get("/peer-scores", PeerScoresHandler(d.Calculator, log))
			st.Get("/summary", StudentSummaryHandler(d.Calculator, log))
		})
		pr.With(rbac.Require(rbac.PermScoreViewClass)).
			Get("/classes/{classID}/dimension-scores", ClassDimensionScoresHandler(d.Scorer, log))
	})

	r.Route("/qualitative", func(qr chi.Router) {
		qr.Use(rbac.Require(rbac.PermScoreView))
		qr.Post("/convert", ConvertHandler(log))
		qr.Post("/distribution", DistributionHandler(log))
	})
}
