// Package syncx keeps an append-only log of scoring events that downstream
// sites can replay.
package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-p5/internal/grading"
)

const TypeSubmissionScored = "SubmissionScored"

type Event struct {
	Seq       int64  `json:"seq"`
	SiteID    string `json:"site_id"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// ScoredPayload is the data of a SubmissionScored event.
type ScoredPayload struct {
	EventID      string                   `json:"event_id"`
	OverallScore float64                  `json:"overall_score"`
	Dimensions   []grading.DimensionScore `json:"dimensions"`
	CalculatedAt time.Time                `json:"calculated_at"`
}

type EventRepo struct {
	db     *sql.DB
	siteID string
	now    func() time.Time
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID, now: time.Now}
}

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.SiteID == "" {
		e.SiteID = r.siteID
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = r.now().Unix()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, e.CreatedAt)
	return err
}

// RecordScore appends a SubmissionScored event keyed by submission id.
func (r *EventRepo) RecordScore(ctx context.Context, res grading.ScoreCalculationResult) error {
	data, err := json.Marshal(ScoredPayload{
		EventID:      uuid.NewString(),
		OverallScore: res.OverallScore,
		Dimensions:   res.DimensionScores,
		CalculatedAt: res.CalculatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode score event: %w", err)
	}
	return r.Append(ctx, Event{Type: TypeSubmissionScored, Key: res.SubmissionID, DataJSON: string(data)})
}

// List returns the newest events first. An empty typ matches every type.
func (r *EventRepo) List(ctx context.Context, typ string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE ($1 = '' OR typ = $1)
		 ORDER BY seq DESC LIMIT $2`, typ, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ grading.EventRecorder = (*EventRepo)(nil)
