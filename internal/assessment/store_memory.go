package assessment

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for offline demos and tests.
type MemoryStore struct {
	mu sync.RWMutex

	submissions   map[string]Submission
	submissionSeq []string
	configs       map[string]StageInstrumentConfig
	configSeq     []string
	questions     map[string][]Question // configID -> questions
	dimensions    map[string]Dimension
	dimensionSeq  []string
	projects      map[string]Project
	users         map[string]User
	classMembers  map[string][]string // classID -> user ids

	// FailUpdates makes UpdateSubmissionScore fail for the listed submission ids.
	FailUpdates map[string]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		submissions:  map[string]Submission{},
		configs:      map[string]StageInstrumentConfig{},
		questions:    map[string][]Question{},
		dimensions:   map[string]Dimension{},
		projects:     map[string]Project{},
		users:        map[string]User{},
		classMembers: map[string][]string{},
		FailUpdates:  map[string]error{},
	}
}

// ---- seeding ----

func (m *MemoryStore) PutSubmission(s Submission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.submissions[s.ID]; !ok {
		m.submissionSeq = append(m.submissionSeq, s.ID)
	}
	m.submissions[s.ID] = s
}

func (m *MemoryStore) PutConfig(c StageInstrumentConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.configs[c.ID]; !ok {
		m.configSeq = append(m.configSeq, c.ID)
	}
	m.configs[c.ID] = c
}

func (m *MemoryStore) PutQuestion(q Question) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.StageInstrumentConfigID] = append(m.questions[q.StageInstrumentConfigID], q)
}

func (m *MemoryStore) PutDimension(d Dimension) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dimensions[d.ID]; !ok {
		m.dimensionSeq = append(m.dimensionSeq, d.ID)
	}
	m.dimensions[d.ID] = d
}

func (m *MemoryStore) PutProject(p Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
}

func (m *MemoryStore) PutUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MemoryStore) AddClassMember(classID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classMembers[classID] = append(m.classMembers[classID], userID)
}

// ---- Store ----

func (m *MemoryStore) GetSubmission(_ context.Context, id string) (Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.submissions[id]
	if !ok {
		return Submission{}, fmt.Errorf("submission %q: %w", id, ErrNotFound)
	}
	return s, nil
}

func (m *MemoryStore) ListSubmissions(_ context.Context, f SubmissionFilter) ([]Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var cfg map[string]bool
	if f.ConfigIDs != nil {
		cfg = make(map[string]bool, len(f.ConfigIDs))
		for _, id := range f.ConfigIDs {
			cfg[id] = true
		}
	}
	out := make([]Submission, 0)
	for _, id := range m.submissionSeq {
		s := m.submissions[id]
		if f.ProjectID != "" && s.ProjectID != f.ProjectID {
			continue
		}
		if cfg != nil && !cfg[s.StageInstrumentConfigID] {
			continue
		}
		if f.SubmittedBy != "" && s.SubmittedBy != f.SubmittedBy {
			continue
		}
		if f.TargetStudentID != "" && (s.TargetStudentID == nil || *s.TargetStudentID != f.TargetStudentID) {
			continue
		}
		if f.PendingOnly && s.Score != nil {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *MemoryStore) UpdateSubmissionScore(_ context.Context, id string, score float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailUpdates[id]; err != nil {
		return err
	}
	s, ok := m.submissions[id]
	if !ok {
		return fmt.Errorf("submission %q: %w", id, ErrNotFound)
	}
	s.Score = &score
	s.UpdatedAt = at
	m.submissions[id] = s
	return nil
}

func (m *MemoryStore) GetStageInstrumentConfig(_ context.Context, id string) (StageInstrumentConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.configs[id]
	if !ok {
		return StageInstrumentConfig{}, fmt.Errorf("stage instrument config %q: %w", id, ErrNotFound)
	}
	return c, nil
}

func (m *MemoryStore) ListStageInstrumentConfigs(_ context.Context, templateID string) ([]StageInstrumentConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]StageInstrumentConfig, 0)
	for _, id := range m.configSeq {
		if c := m.configs[id]; c.TemplateID == templateID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListQuestions(_ context.Context, configID string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	qs := append([]Question(nil), m.questions[configID]...)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].CreatedAt.Before(qs[j].CreatedAt) })
	return qs, nil
}

func (m *MemoryStore) GetDimension(_ context.Context, id string) (Dimension, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.dimensions[id]
	if !ok {
		return Dimension{}, fmt.Errorf("dimension %q: %w", id, ErrNotFound)
	}
	return d, nil
}

func (m *MemoryStore) ListDimensions(_ context.Context) ([]Dimension, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Dimension, 0, len(m.dimensionSeq))
	for _, id := range m.dimensionSeq {
		out = append(out, m.dimensions[id])
	}
	return out, nil
}

func (m *MemoryStore) GetProject(_ context.Context, id string) (Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return Project{}, fmt.Errorf("project %q: %w", id, ErrNotFound)
	}
	return p, nil
}

func (m *MemoryStore) ListClassStudents(_ context.Context, classID string) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]User, 0)
	for _, uid := range m.classMembers[classID] {
		if u, ok := m.users[uid]; ok && u.Role == RoleStudent {
			out = append(out, u)
		}
	}
	return out, nil
}
