package assessment

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Answer is one positional item value. Anything that is not a JSON number
// (null, strings, objects) is treated as unanswered.
type Answer struct {
	Value float64
	Valid bool
}

func (a *Answer) UnmarshalJSON(b []byte) error {
	*a = Answer{}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	a.Value, a.Valid = v, true
	return nil
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}

func Num(v float64) Answer { return Answer{Value: v, Valid: true} }

type JournalGrade struct {
	Score Answer `json:"score"`
}

// JournalPayload is the content shape of JOURNAL submissions.
type JournalPayload struct {
	Grades []JournalGrade `json:"grades"`
}

// AssessmentPayload is the content shape of self, peer and observation
// submissions; Answers align with the config's questions by position.
type AssessmentPayload struct {
	Answers []Answer `json:"answers"`
}

// Content is a submission payload decoded for one instrument type. Exactly one
// of Journal and Assessment is set.
type Content struct {
	Instrument InstrumentType
	Journal    *JournalPayload
	Assessment *AssessmentPayload
}

// ParseContent decodes raw submission content according to the instrument
// that produced it. Empty or null content yields an empty payload.
func ParseContent(kind InstrumentType, raw json.RawMessage) (Content, error) {
	c := Content{Instrument: kind}
	trimmed := bytes.TrimSpace(raw)
	empty := len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))

	if kind == InstrumentJournal {
		c.Journal = &JournalPayload{}
		if !empty {
			if err := json.Unmarshal(trimmed, c.Journal); err != nil {
				return Content{}, fmt.Errorf("journal content: %w", err)
			}
		}
		return c, nil
	}
	c.Assessment = &AssessmentPayload{}
	if !empty {
		if err := json.Unmarshal(trimmed, c.Assessment); err != nil {
			return Content{}, fmt.Errorf("assessment content: %w", err)
		}
	}
	return c, nil
}

// ParseAnswers reads content.answers regardless of instrument type.
func ParseAnswers(raw json.RawMessage) ([]Answer, error) {
	c, err := ParseContent("", raw)
	if err != nil {
		return nil, err
	}
	return c.Assessment.Answers, nil
}

// GradeScores returns the numeric journal grades, skipping blanks.
func (p *JournalPayload) GradeScores() []float64 {
	if p == nil {
		return nil
	}
	out := make([]float64, 0, len(p.Grades))
	for _, g := range p.Grades {
		if g.Score.Valid {
			out = append(out, g.Score.Value)
		}
	}
	return out
}
