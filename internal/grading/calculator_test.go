package grading_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-p5/internal/assessment"
	"github.com/mind-engage/mindengage-p5/internal/grading"
)

type recorder struct {
	got []grading.ScoreCalculationResult
	err error
}

func (r *recorder) RecordScore(_ context.Context, res grading.ScoreCalculationResult) error {
	r.got = append(r.got, res)
	return r.err
}

var fixedNow = time.Date(2025, 3, 2, 10, 30, 0, 0, time.UTC)

func newCalculator(m *assessment.MemoryStore, opts ...grading.Option) *grading.Calculator {
	opts = append([]grading.Option{grading.WithClock(func() time.Time { return fixedNow })}, opts...)
	return grading.NewCalculator(m, nil, opts...)
}

func TestCalculateAndUpdate_IgnoresOutOfRangeAnswers(t *testing.T) {
	m := newCatalog(t)
	addSubmission(m, "sub-1", "cfg-self", "s1", answers(4, 3, 5, 2))
	rec := &recorder{}
	c := newCalculator(m, grading.WithEventRecorder(rec))

	res, err := c.CalculateAndUpdateSubmissionScore(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", res.SubmissionID)
	assert.Equal(t, 3.0, res.OverallScore)
	assert.Equal(t, 3, res.ValidAnswerCount)
	assert.Equal(t, fixedNow, res.CalculatedAt)
	assert.NotEmpty(t, res.DimensionScores)

	stored, err := m.GetSubmission(context.Background(), "sub-1")
	require.NoError(t, err)
	require.NotNil(t, stored.Score)
	assert.Equal(t, 3.0, *stored.Score)
	assert.Equal(t, fixedNow, stored.UpdatedAt)

	require.Len(t, rec.got, 1)
	assert.Equal(t, res, rec.got[0])
}

func TestCalculateAndUpdate_RoundsToTwoDecimals(t *testing.T) {
	m := newCatalog(t)
	addSubmission(m, "sub-1", "cfg-self", "s1", answers(4, 4, 3))

	res, err := newCalculator(m).CalculateAndUpdateSubmissionScore(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, 3.67, res.OverallScore)
}

func TestCalculateAndUpdate_Idempotent(t *testing.T) {
	m := newCatalog(t)
	addSubmission(m, "sub-1", "cfg-self", "s1", answers(1, 2, 4))
	c := newCalculator(m)

	first, err := c.CalculateAndUpdateSubmissionScore(context.Background(), "sub-1")
	require.NoError(t, err)
	second, err := c.CalculateAndUpdateSubmissionScore(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, _ := m.GetSubmission(context.Background(), "sub-1")
	assert.Equal(t, 2.33, *stored.Score)
}

func TestCalculateAndUpdate_NoValidAnswers(t *testing.T) {
	m := newCatalog(t)
	addSubmission(m, "sub-none", "cfg-self", "s1", answers(nil, 0, 9))
	addSubmission(m, "sub-empty", "cfg-self", "s1", `{}`)
	c := newCalculator(m)

	for _, id := range []string{"sub-none", "sub-empty"} {
		_, err := c.CalculateAndUpdateSubmissionScore(context.Background(), id)
		assert.ErrorIs(t, err, grading.ErrNoValidAnswers, id)

		stored, _ := m.GetSubmission(context.Background(), id)
		assert.Nil(t, stored.Score, id)
	}
}

func TestCalculateAndUpdate_Errors(t *testing.T) {
	m := newCatalog(t)
	addSubmission(m, "sub-bad", "cfg-self", "s1", `[1,2`)
	addSubmission(m, "sub-locked", "cfg-self", "s1", answers(4))
	m.FailUpdates["sub-locked"] = errors.New("database is locked")
	c := newCalculator(m)

	_, err := c.CalculateAndUpdateSubmissionScore(context.Background(), "missing")
	assert.ErrorIs(t, err, assessment.ErrNotFound)

	_, err = c.CalculateAndUpdateSubmissionScore(context.Background(), "sub-bad")
	assert.Error(t, err)

	_, err = c.CalculateAndUpdateSubmissionScore(context.Background(), "sub-locked")
	assert.ErrorContains(t, err, "database is locked")
}

func TestCalculateAndUpdate_DimensionFailureIsNotFatal(t *testing.T) {
	m := newCatalog(t)
	addSubmission(m, "sub-orphan", "cfg-gone", "s1", answers(2, 4))

	res, err := newCalculator(m).CalculateAndUpdateSubmissionScore(context.Background(), "sub-orphan")
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.OverallScore)
	assert.NotNil(t, res.DimensionScores)
	assert.Empty(t, res.DimensionScores)
}

func TestCalculateAndUpdate_EventFailureIsNotFatal(t *testing.T) {
	m := newCatalog(t)
	addSubmission(m, "sub-1", "cfg-self", "s1", answers(4, 4, 4))
	rec := &recorder{err: errors.New("event log unavailable")}

	res, err := newCalculator(m, grading.WithEventRecorder(rec)).CalculateAndUpdateSubmissionScore(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, 4.0, res.OverallScore)
	assert.Len(t, rec.got, 1)
}

func TestProcessPendingSubmissions(t *testing.T) {
	m := newCatalog(t)
	addSubmission(m, "p-1", "cfg-self", "s1", answers(4, 4, 4))
	addSubmission(m, "p-2", "cfg-self", "s2", answers(3, 3, 3))
	addSubmission(m, "p-3", "cfg-self", "s3", answers(2, 2, 2))
	addSubmission(m, "done", "cfg-self", "s1", answers(1, 1, 1), scored(1))
	addSubmission(m, "elsewhere", "cfg-self", "s1", answers(1, 1, 1), inProject("prj-2"))
	m.FailUpdates["p-2"] = errors.New("constraint violation")
	c := newCalculator(m)

	res, err := c.ProcessPendingSubmissions(context.Background(), "prj-1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "p-2", res.Errors[0].SubmissionID)
	assert.Contains(t, res.Errors[0].Message, "constraint violation")

	p3, _ := m.GetSubmission(context.Background(), "p-3")
	require.NotNil(t, p3.Score)
	assert.Equal(t, 2.0, *p3.Score)
	other, _ := m.GetSubmission(context.Background(), "elsewhere")
	assert.Nil(t, other.Score)

	// only the failed one is still pending
	m.FailUpdates = map[string]error{}
	res, err = c.ProcessPendingSubmissions(context.Background(), "prj-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Empty(t, res.Errors)
}

func TestProcessPendingSubmissions_AllProjects(t *testing.T) {
	m := newCatalog(t)
	addSubmission(m, "a", "cfg-self", "s1", answers(4))
	addSubmission(m, "b", "cfg-self", "s1", answers(4), inProject("prj-2"))

	res, err := newCalculator(m).ProcessPendingSubmissions(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.NotNil(t, res.Errors)
}

func TestProcessPendingSubmissions_NoValidAnswersLogsAtDebug(t *testing.T) {
	m := newCatalog(t)
	addSubmission(m, "journal", "cfg-journal", "s1", grades(4))
	addSubmission(m, "broken", "cfg-self", "s1", answers(3))
	m.FailUpdates["broken"] = errors.New("disk full")
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	res, err := newCalculator(m, grading.WithLogger(log)).ProcessPendingSubmissions(context.Background(), "prj-1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
	require.Len(t, res.Errors, 2)

	out := buf.String()
	assert.Contains(t, out, "submission_id=broken")
	assert.NotContains(t, out, "submission_id=journal")
}

/* ---------------- simple rollups ---------------- */

func seedRollup(t *testing.T) *assessment.MemoryStore {
	m := newCatalog(t)
	addSubmission(m, "self", "cfg-self", "s1", answers(3, 3, nil))                   // D1 75
	addSubmission(m, "peer-s2", "cfg-peer", "s2", answers(2, 2, 2), targeting("s1")) // D1 50
	addSubmission(m, "peer-s3", "cfg-peer", "s3", answers(4, 4, 4), targeting("s1")) // D1 100
	addSubmission(m, "obs", "cfg-obs", "t1", answers(3), targeting("s1"))            // D2 75
	addSubmission(m, "peer-by-s1", "cfg-peer", "s1", answers(1, 1, 1), targeting("s2"))
	addSubmission(m, "journal", "cfg-journal", "s1", grades(1))
	return m
}

func TestAggregatePeerScores(t *testing.T) {
	c := newCalculator(seedRollup(t))

	got, err := c.AggregatePeerScores(context.Background(), "s1", "prj-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.SubmissionCount)
	require.Len(t, got.Dimensions, 1)
	assert.Equal(t, "D1", got.Dimensions[0].DimensionID)
	assert.Equal(t, 75.0, got.Dimensions[0].AverageScore)
	assert.Equal(t, 2, got.Dimensions[0].SubmissionCount)
	assert.Equal(t, 75.0, got.OverallScore)
}

func TestCalculateStudentProjectScore(t *testing.T) {
	c := newCalculator(seedRollup(t))

	got, err := c.CalculateStudentProjectScore(context.Background(), "s1", "prj-1")
	require.NoError(t, err)
	// self, two peers and the observation; journals are not part of the rollup
	assert.Equal(t, 4, got.SubmissionCount)
	require.Len(t, got.Dimensions, 2)
	byID := map[string]grading.DimensionAverage{}
	for _, d := range got.Dimensions {
		byID[d.DimensionID] = d
	}
	assert.Equal(t, 75.0, byID["D1"].AverageScore)
	assert.Equal(t, 3, byID["D1"].SubmissionCount)
	assert.Equal(t, 75.0, byID["D2"].AverageScore)
	assert.Equal(t, 75.0, got.OverallScore)
}

func TestCalculateStudentProjectScore_Empty(t *testing.T) {
	got, err := newCalculator(newCatalog(t)).CalculateStudentProjectScore(context.Background(), "s3", "prj-1")
	require.NoError(t, err)
	assert.Empty(t, got.Dimensions)
	assert.Equal(t, 0.0, got.OverallScore)
}
