package assessment

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// SubmissionFilter narrows ListSubmissions. Empty fields do not filter.
type SubmissionFilter struct {
	ProjectID       string
	ConfigIDs       []string
	SubmittedBy     string
	TargetStudentID string
	PendingOnly     bool // score IS NULL
}

// Store is the read/write surface the scoring engine needs from the
// relational store. Implementations return errors wrapping ErrNotFound for
// missing rows.
type Store interface {
	GetSubmission(ctx context.Context, id string) (Submission, error)
	ListSubmissions(ctx context.Context, f SubmissionFilter) ([]Submission, error)
	UpdateSubmissionScore(ctx context.Context, id string, score float64, at time.Time) error

	GetStageInstrumentConfig(ctx context.Context, id string) (StageInstrumentConfig, error)
	ListStageInstrumentConfigs(ctx context.Context, templateID string) ([]StageInstrumentConfig, error)

	// ListQuestions returns the config's questions ordered by creation time.
	ListQuestions(ctx context.Context, configID string) ([]Question, error)

	GetDimension(ctx context.Context, id string) (Dimension, error)
	ListDimensions(ctx context.Context) ([]Dimension, error)

	GetProject(ctx context.Context, id string) (Project, error)

	// ListClassStudents returns the STUDENT-role members of a class.
	ListClassStudents(ctx context.Context, classID string) ([]User, error)
}
