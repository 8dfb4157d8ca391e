package syncx_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-p5/internal/assessment"
	"github.com/mind-engage/mindengage-p5/internal/db"
	"github.com/mind-engage/mindengage-p5/internal/grading"
	syncx "github.com/mind-engage/mindengage-p5/internal/sync"
)

func TestEventRepo_AppendAndList(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { dbh.Close() })
	repo := syncx.NewEventRepo(dbh, "")

	require.NoError(t, repo.Append(ctx, syncx.Event{Type: "Other", Key: "k1", DataJSON: `{}`}))
	require.NoError(t, repo.Append(ctx, syncx.Event{Type: syncx.TypeSubmissionScored, Key: "k2", DataJSON: `{}`, SiteID: "school-b"}))

	all, err := repo.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "k2", all[0].Key) // newest first
	assert.Equal(t, "school-b", all[0].SiteID)
	assert.Equal(t, "local", all[1].SiteID)
	assert.Greater(t, all[0].Seq, all[1].Seq)
	assert.NotZero(t, all[1].CreatedAt)

	scored, err := repo.List(ctx, syncx.TypeSubmissionScored, 10)
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, "k2", scored[0].Key)
}

func TestEventRepo_RecordsCalculatorScores(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { dbh.Close() })

	store := assessment.NewSQLStore(dbh, string(db.DriverSQLite))
	dim := "dim-mandiri"
	require.NoError(t, store.PutDimension(ctx, assessment.Dimension{ID: dim, Name: "Mandiri"}))
	require.NoError(t, store.PutConfig(ctx, assessment.StageInstrumentConfig{ID: "cfg-self", TemplateID: "tpl-1", InstrumentType: assessment.InstrumentSelfAssessment}))
	require.NoError(t, store.PutQuestion(ctx, assessment.Question{ID: "q1", StageInstrumentConfigID: "cfg-self", DimensionID: &dim, CreatedAt: time.Now()}))
	require.NoError(t, store.PutProject(ctx, assessment.Project{ID: "prj-1", Name: "P5"}))
	require.NoError(t, store.PutUser(ctx, assessment.User{ID: "stu-1", Name: "Ani", Role: assessment.RoleStudent}))
	require.NoError(t, store.PutSubmission(ctx, assessment.Submission{
		ID: "sub-1", ProjectID: "prj-1", StageInstrumentConfigID: "cfg-self", SubmittedBy: "stu-1",
		Content: json.RawMessage(`{"answers":[3]}`), SubmittedAt: time.Now(),
	}))

	repo := syncx.NewEventRepo(dbh, "school-a")
	calc := grading.NewCalculator(store, nil, grading.WithEventRecorder(repo))
	_, err = calc.CalculateAndUpdateSubmissionScore(ctx, "sub-1")
	require.NoError(t, err)

	events, err := repo.List(ctx, syncx.TypeSubmissionScored, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "sub-1", events[0].Key)
	assert.Equal(t, "school-a", events[0].SiteID)

	var payload syncx.ScoredPayload
	require.NoError(t, json.Unmarshal([]byte(events[0].DataJSON), &payload))
	_, err = uuid.Parse(payload.EventID)
	assert.NoError(t, err)
	assert.Equal(t, 3.0, payload.OverallScore)
	require.Len(t, payload.Dimensions, 1)
	assert.Equal(t, "Mandiri", payload.Dimensions[0].DimensionName)
	assert.Equal(t, 75.0, payload.Dimensions[0].AverageScore)
}
