package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mind-engage/mindengage-p5/internal/assessment"
)

// dimensionResolver maps a question's dimension reference to a display
// dimension. Questions without a dimension fall into the general bucket.
type dimensionResolver struct {
	store assessment.Store
	log   *slog.Logger
}

func (r *dimensionResolver) resolve(ctx context.Context, id *string) (assessment.Dimension, error) {
	if id == nil || *id == "" || *id == DefaultDimensionID {
		return assessment.Dimension{ID: DefaultDimensionID, Name: DefaultDimensionName}, nil
	}
	d, err := r.store.GetDimension(ctx, *id)
	if err == nil {
		return d, nil
	}
	if errors.Is(err, assessment.ErrNotFound) {
		r.log.WarnContext(ctx, "dimension not found, using id as name", "dimension_id", *id)
		return assessment.Dimension{ID: *id, Name: *id}, nil
	}
	return assessment.Dimension{}, fmt.Errorf("load dimension %q: %w", *id, err)
}

// ---- JOURNAL ----

// journalStrategy pools every grade of a journal entry into one score for the
// dimension of the config's first question.
type journalStrategy struct {
	store assessment.Store
	dims  *dimensionResolver
	log   *slog.Logger
}

func (s journalStrategy) Score(ctx context.Context, in Input) ([]DimensionScore, error) {
	questions, err := s.store.ListQuestions(ctx, in.Config.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		s.log.WarnContext(ctx, "journal config has no questions",
			"submission_id", in.Submission.ID, "config_id", in.Config.ID)
		return []DimensionScore{}, nil
	}
	content, err := assessment.ParseContent(assessment.InstrumentJournal, in.Submission.Content)
	if err != nil {
		return nil, err
	}
	scores := content.Journal.GradeScores()
	if len(scores) == 0 {
		s.log.WarnContext(ctx, "journal submission has no grades", "submission_id", in.Submission.ID)
		return []DimensionScore{}, nil
	}
	sum := 0.0
	for _, v := range scores {
		sum += v
	}
	dim, err := s.dims.resolve(ctx, questions[0].DimensionID)
	if err != nil {
		return nil, err
	}
	return []DimensionScore{newDimensionScore(dim, ItemPercent(sum, len(scores)), len(scores))}, nil
}

// ---- SELF / PEER / OBSERVATION ----

// itemStrategy matches answers to questions by position and scores each
// dimension group separately.
type itemStrategy struct {
	store assessment.Store
	dims  *dimensionResolver
	log   *slog.Logger
}

type dimensionGroup struct {
	ref     *string
	indices []int
}

func (s itemStrategy) Score(ctx context.Context, in Input) ([]DimensionScore, error) {
	questions, err := s.store.ListQuestions(ctx, in.Config.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	content, err := assessment.ParseContent(in.Config.InstrumentType, in.Submission.Content)
	if err != nil {
		return nil, err
	}
	answers := content.Assessment.Answers
	if len(answers) != len(questions) {
		s.log.WarnContext(ctx, "answer count does not match question count",
			"submission_id", in.Submission.ID, "answers", len(answers), "questions", len(questions))
	}

	var order []string
	groups := map[string]*dimensionGroup{}
	for i, q := range questions {
		key := DefaultDimensionID
		if q.DimensionID != nil && *q.DimensionID != "" {
			key = *q.DimensionID
		}
		g, ok := groups[key]
		if !ok {
			g = &dimensionGroup{ref: q.DimensionID}
			groups[key] = g
			order = append(order, key)
		}
		g.indices = append(g.indices, i)
	}

	out := make([]DimensionScore, 0, len(order))
	for _, key := range order {
		g := groups[key]
		sum, n := 0.0, 0
		for _, i := range g.indices {
			if i >= len(answers) || !answers[i].Valid {
				s.log.WarnContext(ctx, "missing answer",
					"submission_id", in.Submission.ID, "index", i, "question_id", questions[i].ID)
				continue
			}
			sum += answers[i].Value
			n++
		}
		if n == 0 {
			continue
		}
		dim, err := s.dims.resolve(ctx, g.ref)
		if err != nil {
			return nil, err
		}
		out = append(out, newDimensionScore(dim, ItemPercent(sum, n), n))
	}
	return out, nil
}

// ---- other instrument types ----

// fallbackStrategy uses the stored 0..4 submission score and attributes it to
// the first dimension of the catalog.
type fallbackStrategy struct {
	store assessment.Store
	log   *slog.Logger
}

func (s fallbackStrategy) Score(ctx context.Context, in Input) ([]DimensionScore, error) {
	if in.Submission.Score == nil {
		return []DimensionScore{}, nil
	}
	dims, err := s.store.ListDimensions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list dimensions: %w", err)
	}
	if len(dims) == 0 {
		s.log.WarnContext(ctx, "dimension catalog is empty", "submission_id", in.Submission.ID)
		return []DimensionScore{}, nil
	}
	avg := round2(*in.Submission.Score / ItemMaxScale * MaxScore)
	return []DimensionScore{newDimensionScore(dims[0], avg, 1)}, nil
}
