package assessment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) DB() *sql.DB { return s.db }

const submissionCols = `id,project_id,stage_instrument_config_id,submitted_by,target_student_id,content,score,submitted_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(r rowScanner) (Submission, error) {
	var (
		s                    Submission
		target               sql.NullString
		content              string
		score                sql.NullFloat64
		submitted, updatedAt int64
	)
	if err := r.Scan(&s.ID, &s.ProjectID, &s.StageInstrumentConfigID, &s.SubmittedBy,
		&target, &content, &score, &submitted, &updatedAt); err != nil {
		return Submission{}, err
	}
	if target.Valid {
		t := target.String
		s.TargetStudentID = &t
	}
	if score.Valid {
		v := score.Float64
		s.Score = &v
	}
	s.Content = []byte(content)
	s.SubmittedAt = time.UnixMilli(submitted)
	s.UpdatedAt = time.UnixMilli(updatedAt)
	return s, nil
}

func (s *SQLStore) GetSubmission(ctx context.Context, id string) (Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+submissionCols+` FROM submissions WHERE id=$1`, id)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, fmt.Errorf("submission %q: %w", id, ErrNotFound)
		}
		return Submission{}, err
	}
	return sub, nil
}

func (s *SQLStore) ListSubmissions(ctx context.Context, f SubmissionFilter) ([]Submission, error) {
	if f.ConfigIDs != nil && len(f.ConfigIDs) == 0 {
		return []Submission{}, nil
	}
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.ProjectID != "" {
		where = append(where, "project_id="+arg(f.ProjectID))
	}
	if len(f.ConfigIDs) > 0 {
		ph := make([]string, 0, len(f.ConfigIDs))
		for _, id := range f.ConfigIDs {
			ph = append(ph, arg(id))
		}
		where = append(where, "stage_instrument_config_id IN ("+strings.Join(ph, ",")+")")
	}
	if f.SubmittedBy != "" {
		where = append(where, "submitted_by="+arg(f.SubmittedBy))
	}
	if f.TargetStudentID != "" {
		where = append(where, "target_student_id="+arg(f.TargetStudentID))
	}
	if f.PendingOnly {
		where = append(where, "score IS NULL")
	}

	q := `SELECT ` + submissionCols + ` FROM submissions`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY submitted_at, id"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Submission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateSubmissionScore(ctx context.Context, id string, score float64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE submissions SET score=$1, updated_at=$2 WHERE id=$3`,
		score, at.UnixMilli(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("submission %q: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) GetStageInstrumentConfig(ctx context.Context, id string) (StageInstrumentConfig, error) {
	var c StageInstrumentConfig
	var typ string
	err := s.db.QueryRowContext(ctx,
		`SELECT id,template_id,instrument_type FROM stage_instrument_configs WHERE id=$1`, id).
		Scan(&c.ID, &c.TemplateID, &typ)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StageInstrumentConfig{}, fmt.Errorf("stage instrument config %q: %w", id, ErrNotFound)
		}
		return StageInstrumentConfig{}, err
	}
	c.InstrumentType = InstrumentType(typ)
	return c, nil
}

func (s *SQLStore) ListStageInstrumentConfigs(ctx context.Context, templateID string) ([]StageInstrumentConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,template_id,instrument_type FROM stage_instrument_configs WHERE template_id=$1 ORDER BY id`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]StageInstrumentConfig, 0)
	for rows.Next() {
		var c StageInstrumentConfig
		var typ string
		if err := rows.Scan(&c.ID, &c.TemplateID, &typ); err != nil {
			return nil, err
		}
		c.InstrumentType = InstrumentType(typ)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListQuestions(ctx context.Context, configID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,stage_instrument_config_id,text,type,dimension_id,created_at
		   FROM questions WHERE stage_instrument_config_id=$1
		  ORDER BY created_at, id`, configID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Question, 0)
	for rows.Next() {
		var (
			q       Question
			typ     string
			dim     sql.NullString
			created int64
		)
		if err := rows.Scan(&q.ID, &q.StageInstrumentConfigID, &q.Text, &typ, &dim, &created); err != nil {
			return nil, err
		}
		q.Type = QuestionType(typ)
		if dim.Valid && dim.String != "" {
			d := dim.String
			q.DimensionID = &d
		}
		q.CreatedAt = time.UnixMilli(created)
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetDimension(ctx context.Context, id string) (Dimension, error) {
	var d Dimension
	err := s.db.QueryRowContext(ctx, `SELECT id,name FROM dimensions WHERE id=$1`, id).Scan(&d.ID, &d.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Dimension{}, fmt.Errorf("dimension %q: %w", id, ErrNotFound)
		}
		return Dimension{}, err
	}
	return d, nil
}

func (s *SQLStore) ListDimensions(ctx context.Context) ([]Dimension, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,name FROM dimensions ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Dimension, 0)
	for rows.Next() {
		var d Dimension
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetProject(ctx context.Context, id string) (Project, error) {
	var (
		p   Project
		tpl sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT id,name,template_id FROM projects WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &tpl)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Project{}, fmt.Errorf("project %q: %w", id, ErrNotFound)
		}
		return Project{}, err
	}
	if tpl.Valid && tpl.String != "" {
		t := tpl.String
		p.TemplateID = &t
	}
	return p, nil
}

func (s *SQLStore) ListClassStudents(ctx context.Context, classID string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.name, u.role
		   FROM class_members cm JOIN users u ON u.id = cm.user_id
		  WHERE cm.class_id=$1 AND u.role=$2
		  ORDER BY u.name, u.id`, classID, string(RoleStudent))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]User, 0)
	for rows.Next() {
		var u User
		var role string
		if err := rows.Scan(&u.ID, &u.Name, &role); err != nil {
			return nil, err
		}
		u.Role = Role(role)
		out = append(out, u)
	}
	return out, rows.Err()
}

// ---- writes used by seeding and imports ----

func (s *SQLStore) PutDimension(ctx context.Context, d Dimension) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO dimensions (id,name,created_at) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name`, d.ID, d.Name, time.Now().UnixMilli())
	return err
}

func (s *SQLStore) PutConfig(ctx context.Context, c StageInstrumentConfig) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO stage_instrument_configs (id,template_id,instrument_type) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET template_id=EXCLUDED.template_id, instrument_type=EXCLUDED.instrument_type`,
		c.ID, c.TemplateID, string(c.InstrumentType))
	return err
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	created := q.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	typ := q.Type
	if typ == "" {
		typ = QuestionStatement
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO questions (id,stage_instrument_config_id,text,type,dimension_id,created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET text=EXCLUDED.text, type=EXCLUDED.type, dimension_id=EXCLUDED.dimension_id`,
		q.ID, q.StageInstrumentConfigID, q.Text, string(typ), nullString(q.DimensionID), created.UnixMilli())
	return err
}

func (s *SQLStore) PutProject(ctx context.Context, p Project) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO projects (id,name,template_id) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, template_id=EXCLUDED.template_id`,
		p.ID, p.Name, nullString(p.TemplateID))
	return err
}

func (s *SQLStore) PutUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id,username,name,role,created_at) VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, role=EXCLUDED.role`,
		u.ID, u.ID, u.Name, string(u.Role), time.Now().Unix())
	return err
}

func (s *SQLStore) AddClassMember(ctx context.Context, classID, userID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO class_members (class_id,user_id) VALUES ($1,$2)
		ON CONFLICT (class_id,user_id) DO NOTHING`, classID, userID)
	return err
}

func (s *SQLStore) PutSubmission(ctx context.Context, sub Submission) error {
	now := time.Now()
	submitted := sub.SubmittedAt
	if submitted.IsZero() {
		submitted = now
	}
	content := string(sub.Content)
	if content == "" {
		content = "{}"
	}
	var score any
	if sub.Score != nil {
		score = *sub.Score
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO submissions (`+submissionCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET content=EXCLUDED.content, score=EXCLUDED.score, updated_at=EXCLUDED.updated_at`,
		sub.ID, sub.ProjectID, sub.StageInstrumentConfigID, sub.SubmittedBy, nullString(sub.TargetStudentID),
		content, score, submitted.UnixMilli(), now.UnixMilli())
	return err
}

func nullString(p *string) any {
	if p == nil || *p == "" {
		return nil
	}
	return *p
}
