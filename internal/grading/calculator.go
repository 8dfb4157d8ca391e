package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mind-engage/mindengage-p5/internal/assessment"
)

// EventRecorder is notified after a submission score has been persisted.
type EventRecorder interface {
	RecordScore(ctx context.Context, r ScoreCalculationResult) error
}

type ScoreCalculationResult struct {
	SubmissionID string `json:"submission_id"`
	// OverallScore stays on the 1..4 item scale.
	OverallScore     float64          `json:"overall_score"`
	ValidAnswerCount int              `json:"valid_answer_count"`
	DimensionScores  []DimensionScore `json:"dimension_scores"`
	CalculatedAt     time.Time        `json:"calculated_at"`
}

type BatchError struct {
	SubmissionID string `json:"submission_id"`
	Message      string `json:"message"`
}

type BatchResult struct {
	Processed int          `json:"processed"`
	Errors    []BatchError `json:"errors"`
}

// Calculator maintains the stored per-submission score.
type Calculator struct {
	store  assessment.Store
	scorer *Scorer
	events EventRecorder
	log    *slog.Logger
	now    func() time.Time
}

// NewCalculator builds a Calculator. A nil scorer is replaced by one over the
// same store and options.
func NewCalculator(store assessment.Store, scorer *Scorer, opts ...Option) *Calculator {
	cfg := newConfig(opts)
	if scorer == nil {
		scorer = NewScorer(store, opts...)
	}
	return &Calculator{store: store, scorer: scorer, events: cfg.events, log: cfg.logger, now: cfg.now}
}

func (c *Calculator) Scorer() *Scorer { return c.scorer }

// CalculateAndUpdateSubmissionScore averages the submission's in-range answers
// on the 1..4 scale, stores the result and returns it with the dimension
// breakdown.
func (c *Calculator) CalculateAndUpdateSubmissionScore(ctx context.Context, submissionID string) (ScoreCalculationResult, error) {
	sub, err := c.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return ScoreCalculationResult{}, fmt.Errorf("load submission: %w", err)
	}
	answers, err := assessment.ParseAnswers(sub.Content)
	if err != nil {
		return ScoreCalculationResult{}, fmt.Errorf("submission %q: %w", submissionID, err)
	}

	sum, n := 0.0, 0
	for _, a := range answers {
		if !a.Valid || a.Value < ItemMinScale || a.Value > ItemMaxScale {
			continue
		}
		sum += a.Value
		n++
	}
	if n == 0 {
		return ScoreCalculationResult{}, fmt.Errorf("submission %q: %w", submissionID, ErrNoValidAnswers)
	}
	overallScore := round2(sum / float64(n))

	dims, err := c.scorer.ScoreSubmission(ctx, sub)
	if err != nil {
		c.log.WarnContext(ctx, "dimension scores unavailable", "submission_id", submissionID, "err", err)
		dims = []DimensionScore{}
	}

	now := c.now()
	if err := c.store.UpdateSubmissionScore(ctx, submissionID, overallScore, now); err != nil {
		return ScoreCalculationResult{}, fmt.Errorf("update submission score: %w", err)
	}
	res := ScoreCalculationResult{
		SubmissionID:     submissionID,
		OverallScore:     overallScore,
		ValidAnswerCount: n,
		DimensionScores:  dims,
		CalculatedAt:     now,
	}
	if c.events != nil {
		if err := c.events.RecordScore(ctx, res); err != nil {
			c.log.WarnContext(ctx, "record score event", "submission_id", submissionID, "err", err)
		}
	}
	return res, nil
}

// ProcessPendingSubmissions scores every submission without a stored score,
// optionally limited to one project. Failures are collected, not returned.
func (c *Calculator) ProcessPendingSubmissions(ctx context.Context, projectID string) (BatchResult, error) {
	subs, err := c.store.ListSubmissions(ctx, assessment.SubmissionFilter{ProjectID: projectID, PendingOnly: true})
	if err != nil {
		return BatchResult{}, fmt.Errorf("list pending submissions: %w", err)
	}
	res := BatchResult{Errors: []BatchError{}}
	for _, sub := range subs {
		if _, err := c.CalculateAndUpdateSubmissionScore(ctx, sub.ID); err != nil {
			level := slog.LevelWarn
			// journals carry grades, not answers, and stay pending every run
			if errors.Is(err, ErrNoValidAnswers) {
				level = slog.LevelDebug
			}
			c.log.Log(ctx, level, "pending submission failed", "submission_id", sub.ID, "err", err)
			res.Errors = append(res.Errors, BatchError{SubmissionID: sub.ID, Message: err.Error()})
			continue
		}
		res.Processed++
	}
	c.log.InfoContext(ctx, "pending submissions processed",
		"project_id", projectID, "pending", len(subs), "processed", res.Processed, "errors", len(res.Errors))
	return res, nil
}
