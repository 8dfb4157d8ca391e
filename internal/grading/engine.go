// Package grading turns P5 submissions into per-dimension scores and keeps the
// simple per-submission overall score up to date.
package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mind-engage/mindengage-p5/internal/assessment"
	"github.com/mind-engage/mindengage-p5/internal/qualitative"
)

var (
	ErrTemplateNotFound = errors.New("project has no template")
	ErrNoStudents       = errors.New("no students in class")
	ErrNoValidAnswers   = errors.New("no valid answers")
)

// DimensionScore is the 0..100 score of one dimension.
type DimensionScore struct {
	DimensionID      string             `json:"dimension_id"`
	DimensionName    string             `json:"dimension_name"`
	AverageScore     float64            `json:"average_score"`
	TotalSubmissions int                `json:"total_submissions"` // items contributing
	MaxScore         float64            `json:"max_score"`
	QualitativeScore qualitative.Result `json:"qualitative_score"`
}

func newDimensionScore(d assessment.Dimension, avg float64, items int) DimensionScore {
	return DimensionScore{
		DimensionID:      d.ID,
		DimensionName:    d.Name,
		AverageScore:     avg,
		TotalSubmissions: items,
		MaxScore:         MaxScore,
		QualitativeScore: label(avg),
	}
}

// Input is what a Strategy sees for one submission.
type Input struct {
	Submission assessment.Submission
	Config     assessment.StageInstrumentConfig
}

// Strategy scores one submission of a given instrument type.
type Strategy interface {
	Score(ctx context.Context, in Input) ([]DimensionScore, error)
}

// Option configures a Scorer or Calculator.
type Option func(*config)

type config struct {
	logger *slog.Logger
	now    func() time.Time
	events EventRecorder
}

func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}
func WithEventRecorder(r EventRecorder) Option { return func(c *config) { c.events = r } }

func newConfig(opts []Option) *config {
	cfg := &config{logger: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return cfg
}

// Scorer computes dimension scores. It only reads from the store.
type Scorer struct {
	store      assessment.Store
	log        *slog.Logger
	strategies map[assessment.InstrumentType]Strategy
	fallback   Strategy
}

func NewScorer(store assessment.Store, opts ...Option) *Scorer {
	cfg := newConfig(opts)
	dims := &dimensionResolver{store: store, log: cfg.logger}
	items := itemStrategy{store: store, dims: dims, log: cfg.logger}
	return &Scorer{
		store: store,
		log:   cfg.logger,
		strategies: map[assessment.InstrumentType]Strategy{
			assessment.InstrumentJournal:        journalStrategy{store: store, dims: dims, log: cfg.logger},
			assessment.InstrumentSelfAssessment: items,
			assessment.InstrumentPeerAssessment: items,
			assessment.InstrumentObservation:    items,
		},
		fallback: fallbackStrategy{store: store, log: cfg.logger},
	}
}

// CalculateDimensionScoresForSubmission loads a submission and scores it per
// dimension.
func (s *Scorer) CalculateDimensionScoresForSubmission(ctx context.Context, submissionID string) ([]DimensionScore, error) {
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}
	return s.ScoreSubmission(ctx, sub)
}

// ScoreSubmission scores an already loaded submission.
func (s *Scorer) ScoreSubmission(ctx context.Context, sub assessment.Submission) ([]DimensionScore, error) {
	cfg, err := s.store.GetStageInstrumentConfig(ctx, sub.StageInstrumentConfigID)
	if err != nil {
		return nil, fmt.Errorf("resolve stage instrument config for submission %q: %w", sub.ID, err)
	}
	return s.scoreWithConfig(ctx, sub, cfg)
}

func (s *Scorer) scoreWithConfig(ctx context.Context, sub assessment.Submission, cfg assessment.StageInstrumentConfig) ([]DimensionScore, error) {
	st, ok := s.strategies[cfg.InstrumentType]
	if !ok {
		st = s.fallback
	}
	out, err := st.Score(ctx, Input{Submission: sub, Config: cfg})
	if err != nil {
		return nil, fmt.Errorf("score submission %q (%s): %w", sub.ID, cfg.InstrumentType, err)
	}
	return out, nil
}
