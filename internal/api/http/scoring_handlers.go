package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-p5/internal/assessment"
	"github.com/mind-engage/mindengage-p5/internal/grading"
	"github.com/mind-engage/mindengage-p5/internal/qualitative"
)

var validate = validator.New()

type scorePendingReq struct {
	ProjectID string `json:"project_id" validate:"omitempty,max=64,printascii"`
}

type scorePendingResp struct {
	RunID string `json:"run_id"`
	grading.BatchResult
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// pathID reads and checks a chi URL parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, name))
	if err := validate.Var(id, "required,max=64,printascii"); err != nil {
		http.Error(w, name+" required", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

// statusFor maps engine errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, assessment.ErrNotFound), errors.Is(err, grading.ErrNoStudents):
		return http.StatusNotFound
	case errors.Is(err, grading.ErrTemplateNotFound), errors.Is(err, grading.ErrNoValidAnswers):
		return http.StatusUnprocessableEntity
	case errors.Is(err, qualitative.ErrScoreOutOfRange), errors.Is(err, qualitative.ErrEmptyScores):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.ErrorContext(r.Context(), op, "err", err)
		http.Error(w, op+" failed", status)
		return
	}
	http.Error(w, op+": "+err.Error(), status)
}

// GET /submissions/{submissionID}/dimension-scores
func SubmissionDimensionScoresHandler(s *grading.Scorer, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "submissionID")
		if !ok {
			return
		}
		scores, err := s.CalculateDimensionScoresForSubmission(r.Context(), id)
		if err != nil {
			fail(w, r, log, "dimension scores", err)
			return
		}
		writeJSON(w, http.StatusOK, scores)
	}
}

// POST /submissions/{submissionID}/score
func ScoreSubmissionHandler(c *grading.Calculator, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "submissionID")
		if !ok {
			return
		}
		res, err := c.CalculateAndUpdateSubmissionScore(r.Context(), id)
		if err != nil {
			fail(w, r, log, "score submission", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /submissions/score-pending  { "project_id": "..." }
func ScorePendingHandler(c *grading.Calculator, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scorePendingReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, "invalid project_id", http.StatusBadRequest)
			return
		}
		runID := uuid.NewString()
		log.InfoContext(r.Context(), "score pending requested", "run_id", runID, "project_id", req.ProjectID)
		res, err := c.ProcessPendingSubmissions(r.Context(), req.ProjectID)
		if err != nil {
			fail(w, r, log, "score pending", err)
			return
		}
		writeJSON(w, http.StatusOK, scorePendingResp{RunID: runID, BatchResult: res})
	}
}

// GET /projects/{projectID}/students/{studentID}/dimension-scores
func StudentDimensionScoresHandler(s *grading.Scorer, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, ok := pathID(w, r, "projectID")
		if !ok {
			return
		}
		studentID, ok := pathID(w, r, "studentID")
		if !ok {
			return
		}
		res, err := s.CalculateStudentDimensionScores(r.Context(), studentID, projectID)
		if err != nil {
			fail(w, r, log, "student dimension scores", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /projects/{projectID}/classes/{classID}/dimension-scores
func ClassDimensionScoresHandler(s *grading.Scorer, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, ok := pathID(w, r, "projectID")
		if !ok {
			return
		}
		classID, ok := pathID(w, r, "classID")
		if !ok {
			return
		}
		res, err := s.CalculateClassDimensionScores(r.Context(), classID, projectID)
		if err != nil {
			fail(w, r, log, "class dimension scores", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /projects/{projectID}/students/{studentID}/peer-scores
func PeerScoresHandler(c *grading.Calculator, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, ok := pathID(w, r, "projectID")
		if !ok {
			return
		}
		studentID, ok := pathID(w, r, "studentID")
		if !ok {
			return
		}
		res, err := c.AggregatePeerScores(r.Context(), studentID, projectID)
		if err != nil {
			fail(w, r, log, "peer scores", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /projects/{projectID}/students/{studentID}/summary
func StudentSummaryHandler(c *grading.Calculator, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, ok := pathID(w, r, "projectID")
		if !ok {
			return
		}
		studentID, ok := pathID(w, r, "studentID")
		if !ok {
			return
		}
		res, err := c.CalculateStudentProjectScore(r.Context(), studentID, projectID)
		if err != nil {
			fail(w, r, log, "student summary", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
