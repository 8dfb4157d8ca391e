package grading

import (
	"context"
	"fmt"

	"github.com/mind-engage/mindengage-p5/internal/assessment"
	"github.com/mind-engage/mindengage-p5/internal/qualitative"
)

type StudentDimensionScores struct {
	StudentID          string              `json:"student_id"`
	ProjectID          string              `json:"project_id"`
	Dimensions         []DimensionScore    `json:"dimensions"`
	OverallScore       float64             `json:"overall_score"`
	OverallQualitative *qualitative.Result `json:"overall_qualitative,omitempty"` // nil without dimensions
	SubmissionCount    int                 `json:"submission_count"`
}

type StudentFailure struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Message     string `json:"message"`
}

type ClassDimensionScores struct {
	ClassID            string                   `json:"class_id"`
	ProjectID          string                   `json:"project_id"`
	Dimensions         []DimensionScore         `json:"dimensions"`
	OverallScore       float64                  `json:"overall_score"`
	OverallQualitative *qualitative.Result      `json:"overall_qualitative,omitempty"`
	StudentCount       int                      `json:"student_count"`
	Students           []StudentDimensionScores `json:"students"`
	Failures           []StudentFailure         `json:"failures,omitempty"`
}

// weightedDimensions accumulates dimension scores, weighting each one by the
// number of items behind it. Dimensions keep first-seen order.
type weightedDimensions struct {
	order []string
	byID  map[string]*weightedEntry
}

type weightedEntry struct {
	id, name string
	weighted float64
	items    int
}

func newWeightedDimensions() *weightedDimensions {
	return &weightedDimensions{byID: map[string]*weightedEntry{}}
}

func (w *weightedDimensions) add(ds DimensionScore) {
	e, ok := w.byID[ds.DimensionID]
	if !ok {
		e = &weightedEntry{id: ds.DimensionID, name: ds.DimensionName}
		w.byID[ds.DimensionID] = e
		w.order = append(w.order, ds.DimensionID)
	}
	e.weighted += ds.AverageScore * float64(ds.TotalSubmissions)
	e.items += ds.TotalSubmissions
}

func (w *weightedDimensions) scores() []DimensionScore {
	out := make([]DimensionScore, 0, len(w.order))
	for _, id := range w.order {
		e := w.byID[id]
		avg := 0.0
		if e.items > 0 {
			avg = round2(e.weighted / float64(e.items))
		}
		out = append(out, newDimensionScore(assessment.Dimension{ID: e.id, Name: e.name}, avg, e.items))
	}
	return out
}

// overall is the unweighted mean across dimensions.
func overall(dims []DimensionScore) (float64, *qualitative.Result) {
	if len(dims) == 0 {
		return 0, nil
	}
	sum := 0.0
	for _, d := range dims {
		sum += d.AverageScore
	}
	avg := round2(sum / float64(len(dims)))
	q := label(avg)
	return avg, &q
}

// CalculateStudentDimensionScores aggregates every submission by or about the
// student in the project. Self-assessments and unknown instruments count when
// the student submitted them; peer assessments and observations count when
// the student is their target.
func (s *Scorer) CalculateStudentDimensionScores(ctx context.Context, studentID, projectID string) (StudentDimensionScores, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return StudentDimensionScores{}, fmt.Errorf("load project: %w", err)
	}
	if project.TemplateID == nil {
		return StudentDimensionScores{}, fmt.Errorf("project %q: %w", projectID, ErrTemplateNotFound)
	}
	configs, err := s.store.ListStageInstrumentConfigs(ctx, *project.TemplateID)
	if err != nil {
		return StudentDimensionScores{}, fmt.Errorf("list stage instrument configs: %w", err)
	}

	byID := make(map[string]assessment.StageInstrumentConfig, len(configs))
	var types []assessment.InstrumentType
	idsByType := map[assessment.InstrumentType][]string{}
	for _, c := range configs {
		byID[c.ID] = c
		if _, ok := idsByType[c.InstrumentType]; !ok {
			types = append(types, c.InstrumentType)
		}
		idsByType[c.InstrumentType] = append(idsByType[c.InstrumentType], c.ID)
	}
	for _, t := range []assessment.InstrumentType{
		assessment.InstrumentJournal, assessment.InstrumentSelfAssessment,
		assessment.InstrumentPeerAssessment, assessment.InstrumentObservation,
	} {
		if _, ok := idsByType[t]; !ok {
			s.log.WarnContext(ctx, "template has no config for instrument type",
				"project_id", projectID, "template_id", *project.TemplateID, "instrument_type", t)
		}
	}

	acc := newWeightedDimensions()
	res := StudentDimensionScores{StudentID: studentID, ProjectID: projectID}
	for _, t := range types {
		f := assessment.SubmissionFilter{ProjectID: projectID, ConfigIDs: idsByType[t]}
		if t.TargetsStudent() {
			f.TargetStudentID = studentID
		} else {
			f.SubmittedBy = studentID
		}
		subs, err := s.store.ListSubmissions(ctx, f)
		if err != nil {
			return StudentDimensionScores{}, fmt.Errorf("list %s submissions: %w", t, err)
		}
		for _, sub := range subs {
			scores, err := s.scoreWithConfig(ctx, sub, byID[sub.StageInstrumentConfigID])
			if err != nil {
				s.log.WarnContext(ctx, "skipping submission", "submission_id", sub.ID, "student_id", studentID, "err", err)
				continue
			}
			res.SubmissionCount++
			for _, ds := range scores {
				acc.add(ds)
			}
		}
	}

	res.Dimensions = acc.scores()
	res.OverallScore, res.OverallQualitative = overall(res.Dimensions)
	return res, nil
}

// CalculateClassDimensionScores aggregates the dimension scores of every
// student in the class. A failing student is recorded and skipped.
func (s *Scorer) CalculateClassDimensionScores(ctx context.Context, classID, projectID string) (ClassDimensionScores, error) {
	students, err := s.store.ListClassStudents(ctx, classID)
	if err != nil {
		return ClassDimensionScores{}, fmt.Errorf("list class students: %w", err)
	}
	if len(students) == 0 {
		return ClassDimensionScores{}, fmt.Errorf("class %q: %w", classID, ErrNoStudents)
	}

	acc := newWeightedDimensions()
	res := ClassDimensionScores{
		ClassID:      classID,
		ProjectID:    projectID,
		StudentCount: len(students),
		Students:     make([]StudentDimensionScores, 0, len(students)),
	}
	for _, st := range students {
		sc, err := s.CalculateStudentDimensionScores(ctx, st.ID, projectID)
		if err != nil {
			s.log.WarnContext(ctx, "student dimension scores failed",
				"class_id", classID, "student_id", st.ID, "err", err)
			res.Failures = append(res.Failures, StudentFailure{StudentID: st.ID, StudentName: st.Name, Message: err.Error()})
			continue
		}
		res.Students = append(res.Students, sc)
		for _, ds := range sc.Dimensions {
			acc.add(ds)
		}
	}

	res.Dimensions = acc.scores()
	res.OverallScore, res.OverallQualitative = overall(res.Dimensions)
	return res, nil
}
