package assessment

import (
	"encoding/json"
	"time"
)

type InstrumentType string

const (
	InstrumentJournal        InstrumentType = "JOURNAL"
	InstrumentSelfAssessment InstrumentType = "SELF_ASSESSMENT"
	InstrumentPeerAssessment InstrumentType = "PEER_ASSESSMENT"
	InstrumentObservation    InstrumentType = "OBSERVATION"
)

// TargetsStudent reports whether submissions of this instrument are written
// about a target student rather than by them.
func (t InstrumentType) TargetsStudent() bool {
	return t == InstrumentPeerAssessment || t == InstrumentObservation
}

type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
	RoleAdmin   Role = "ADMIN"
)

type QuestionType string

const (
	QuestionStatement QuestionType = "STATEMENT"
	QuestionEssay     QuestionType = "ESSAY"
)

type Dimension struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Question struct {
	ID                      string       `json:"id"`
	StageInstrumentConfigID string       `json:"stage_instrument_config_id"`
	Text                    string       `json:"text"`
	Type                    QuestionType `json:"type"`
	DimensionID             *string      `json:"dimension_id,omitempty"` // nil -> general bucket
	CreatedAt               time.Time    `json:"created_at"`
}

type StageInstrumentConfig struct {
	ID             string         `json:"id"`
	TemplateID     string         `json:"template_id"`
	InstrumentType InstrumentType `json:"instrument_type"`
}

type Project struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	TemplateID *string `json:"template_id,omitempty"`
}

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type Submission struct {
	ID                      string          `json:"id"`
	ProjectID               string          `json:"project_id"`
	StageInstrumentConfigID string          `json:"stage_instrument_config_id"`
	SubmittedBy             string          `json:"submitted_by"`
	TargetStudentID         *string         `json:"target_student_id,omitempty"` // peer/observation only
	Content                 json.RawMessage `json:"content"`
	Score                   *float64        `json:"score,omitempty"`
	SubmittedAt             time.Time       `json:"submitted_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}
