package grading

import (
	"context"
	"fmt"

	"github.com/mind-engage/mindengage-p5/internal/assessment"
)

// DimensionAverage is a plain mean of submission-level dimension scores.
type DimensionAverage struct {
	DimensionID     string  `json:"dimension_id"`
	DimensionName   string  `json:"dimension_name"`
	AverageScore    float64 `json:"average_score"`
	SubmissionCount int     `json:"submission_count"`
}

type ScoreSummary struct {
	StudentID       string             `json:"student_id"`
	ProjectID       string             `json:"project_id"`
	Dimensions      []DimensionAverage `json:"dimensions"`
	OverallScore    float64            `json:"overall_score"`
	SubmissionCount int                `json:"submission_count"`
}

// AggregatePeerScores averages the peer assessments the student received.
// Unlike CalculateStudentDimensionScores every submission weighs the same.
func (c *Calculator) AggregatePeerScores(ctx context.Context, studentID, projectID string) (ScoreSummary, error) {
	return c.simpleRollup(ctx, studentID, projectID, func(t assessment.InstrumentType, sub assessment.Submission) bool {
		return t == assessment.InstrumentPeerAssessment && targets(sub, studentID)
	})
}

// CalculateStudentProjectScore averages the student's self assessments with
// the peer assessments and observations made about them.
func (c *Calculator) CalculateStudentProjectScore(ctx context.Context, studentID, projectID string) (ScoreSummary, error) {
	return c.simpleRollup(ctx, studentID, projectID, func(t assessment.InstrumentType, sub assessment.Submission) bool {
		switch t {
		case assessment.InstrumentSelfAssessment:
			return sub.SubmittedBy == studentID
		case assessment.InstrumentPeerAssessment, assessment.InstrumentObservation:
			return targets(sub, studentID)
		}
		return false
	})
}

func targets(sub assessment.Submission, studentID string) bool {
	return sub.TargetStudentID != nil && *sub.TargetStudentID == studentID
}

type rollupEntry struct {
	id, name string
	sum      float64
	count    int
}

func (c *Calculator) simpleRollup(ctx context.Context, studentID, projectID string,
	keep func(assessment.InstrumentType, assessment.Submission) bool) (ScoreSummary, error) {

	targeted, err := c.store.ListSubmissions(ctx, assessment.SubmissionFilter{ProjectID: projectID, TargetStudentID: studentID})
	if err != nil {
		return ScoreSummary{}, fmt.Errorf("list received submissions: %w", err)
	}
	own, err := c.store.ListSubmissions(ctx, assessment.SubmissionFilter{ProjectID: projectID, SubmittedBy: studentID})
	if err != nil {
		return ScoreSummary{}, fmt.Errorf("list own submissions: %w", err)
	}

	configs := map[string]assessment.StageInstrumentConfig{}
	seen := map[string]bool{}
	var order []string
	entries := map[string]*rollupEntry{}
	res := ScoreSummary{StudentID: studentID, ProjectID: projectID}

	for _, sub := range append(targeted, own...) {
		if seen[sub.ID] {
			continue
		}
		seen[sub.ID] = true

		cfg, ok := configs[sub.StageInstrumentConfigID]
		if !ok {
			cfg, err = c.store.GetStageInstrumentConfig(ctx, sub.StageInstrumentConfigID)
			if err != nil {
				c.log.WarnContext(ctx, "skipping submission without config", "submission_id", sub.ID, "err", err)
				continue
			}
			configs[cfg.ID] = cfg
		}
		if !keep(cfg.InstrumentType, sub) {
			continue
		}
		scores, err := c.scorer.scoreWithConfig(ctx, sub, cfg)
		if err != nil {
			c.log.WarnContext(ctx, "skipping submission", "submission_id", sub.ID, "err", err)
			continue
		}
		res.SubmissionCount++
		for _, ds := range scores {
			e, ok := entries[ds.DimensionID]
			if !ok {
				e = &rollupEntry{id: ds.DimensionID, name: ds.DimensionName}
				entries[ds.DimensionID] = e
				order = append(order, ds.DimensionID)
			}
			e.sum += ds.AverageScore
			e.count++
		}
	}

	res.Dimensions = make([]DimensionAverage, 0, len(order))
	total := 0.0
	for _, id := range order {
		e := entries[id]
		avg := round2(e.sum / float64(e.count))
		total += avg
		res.Dimensions = append(res.Dimensions, DimensionAverage{
			DimensionID: e.id, DimensionName: e.name, AverageScore: avg, SubmissionCount: e.count,
		})
	}
	if len(res.Dimensions) > 0 {
		res.OverallScore = round2(total / float64(len(res.Dimensions)))
	}
	return res, nil
}
