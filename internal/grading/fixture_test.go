package grading_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-p5/internal/assessment"
	"github.com/mind-engage/mindengage-p5/internal/grading"
)

/* ---------------- shared catalog ---------------- */

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func strp(s string) *string { return &s }

// newCatalog seeds two dimensions, one template with every instrument type and
// a small class. Submissions are added per test.
//
//	cfg-self:    q-s1 D1, q-s2 D1, q-s3 D2
//	cfg-journal: q-j1 D2
//	cfg-peer:    q-p1 D1, q-p2 D1, q-p3 D1
//	cfg-obs:     q-o1 D2
func newCatalog(t *testing.T) *assessment.MemoryStore {
	t.Helper()
	m := assessment.NewMemoryStore()
	m.PutDimension(assessment.Dimension{ID: "D1", Name: "Beriman"})
	m.PutDimension(assessment.Dimension{ID: "D2", Name: "Bernalar Kritis"})

	m.PutConfig(assessment.StageInstrumentConfig{ID: "cfg-self", TemplateID: "tpl-1", InstrumentType: assessment.InstrumentSelfAssessment})
	m.PutConfig(assessment.StageInstrumentConfig{ID: "cfg-journal", TemplateID: "tpl-1", InstrumentType: assessment.InstrumentJournal})
	m.PutConfig(assessment.StageInstrumentConfig{ID: "cfg-peer", TemplateID: "tpl-1", InstrumentType: assessment.InstrumentPeerAssessment})
	m.PutConfig(assessment.StageInstrumentConfig{ID: "cfg-obs", TemplateID: "tpl-1", InstrumentType: assessment.InstrumentObservation})

	question := func(id, cfg string, dim *string, n int) {
		m.PutQuestion(assessment.Question{
			ID: id, StageInstrumentConfigID: cfg, Type: assessment.QuestionStatement,
			Text: "pernyataan " + id, DimensionID: dim, CreatedAt: t0.Add(time.Duration(n) * time.Minute),
		})
	}
	// inserted out of order; ListQuestions sorts by creation time
	question("q-s3", "cfg-self", strp("D2"), 3)
	question("q-s1", "cfg-self", strp("D1"), 1)
	question("q-s2", "cfg-self", strp("D1"), 2)
	question("q-j1", "cfg-journal", strp("D2"), 1)
	question("q-p1", "cfg-peer", strp("D1"), 1)
	question("q-p2", "cfg-peer", strp("D1"), 2)
	question("q-p3", "cfg-peer", strp("D1"), 3)
	question("q-o1", "cfg-obs", strp("D2"), 1)

	m.PutProject(assessment.Project{ID: "prj-1", Name: "Gaya Hidup Berkelanjutan", TemplateID: strp("tpl-1")})
	m.PutProject(assessment.Project{ID: "prj-bare", Name: "Tanpa Template"})

	m.PutUser(assessment.User{ID: "s1", Name: "Ani", Role: assessment.RoleStudent})
	m.PutUser(assessment.User{ID: "s2", Name: "Budi", Role: assessment.RoleStudent})
	m.PutUser(assessment.User{ID: "s3", Name: "Citra", Role: assessment.RoleStudent})
	m.PutUser(assessment.User{ID: "t1", Name: "Bu Dewi", Role: assessment.RoleTeacher})
	m.AddClassMember("class-7a", "s1")
	m.AddClassMember("class-7a", "s2")
	m.AddClassMember("class-7a", "t1")
	m.AddClassMember("class-empty", "t1")
	return m
}

var subSeq int

type subOpt func(*assessment.Submission)

func targeting(studentID string) subOpt {
	return func(s *assessment.Submission) { s.TargetStudentID = strp(studentID) }
}

func inProject(projectID string) subOpt {
	return func(s *assessment.Submission) { s.ProjectID = projectID }
}

func scored(v float64) subOpt {
	return func(s *assessment.Submission) { s.Score = &v }
}

func addSubmission(m *assessment.MemoryStore, id, cfg, by, content string, opts ...subOpt) assessment.Submission {
	subSeq++
	s := assessment.Submission{
		ID:                      id,
		ProjectID:               "prj-1",
		StageInstrumentConfigID: cfg,
		SubmittedBy:             by,
		Content:                 json.RawMessage(content),
		SubmittedAt:             t0.Add(time.Duration(subSeq) * time.Second),
	}
	for _, o := range opts {
		o(&s)
	}
	m.PutSubmission(s)
	return s
}

// answers renders {"answers":[...]}; nil entries become null.
func answers(vals ...any) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		if v == nil {
			parts[i] = "null"
			continue
		}
		parts[i] = fmt.Sprint(v)
	}
	return `{"answers":[` + strings.Join(parts, ",") + `]}`
}

func grades(vals ...float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf(`{"score":%v,"feedback":"ok"}`, v)
	}
	return `{"grades":[` + strings.Join(parts, ",") + `]}`
}

func byDimension(ds []grading.DimensionScore) map[string]grading.DimensionScore {
	out := make(map[string]grading.DimensionScore, len(ds))
	for _, d := range ds {
		out[d.DimensionID] = d
	}
	return out
}
