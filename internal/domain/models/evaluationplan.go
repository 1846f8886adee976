package models

import (
	"encoding/json"
	"errors"
)

// EvaluationPlan is the current wire shape of an evaluation plan record.
// Teacher and School are personal fields; templates exported for sharing
// strip them.
type EvaluationPlan struct {
	Subject     string       `json:"subject"`
	Grade       string       `json:"grade"`
	Semester    string       `json:"semester"`
	Teacher     string       `json:"teacher,omitempty"`
	School      string       `json:"school,omitempty"`
	Evaluations []Evaluation `json:"evaluations"`
}

// Evaluation is one evaluation item inside a plan.
type Evaluation struct {
	EvaluationName       string            `json:"evaluationName"`
	AchievementStandards []string          `json:"achievementStandards"`
	EvaluationCriteria   map[string]string `json:"evaluationCriteria"`
	EvaluationMethod     string            `json:"evaluationMethod"`
	EvaluationPeriod     string            `json:"evaluationPeriod"`
}

// legacyEvaluationPlan is the pre-array shape: a single evaluation flattened
// onto the plan itself. Still present in older trees and must stay readable.
type legacyEvaluationPlan struct {
	Subject              string            `json:"subject"`
	Grade                string            `json:"grade"`
	Semester             string            `json:"semester"`
	EvaluationName       string            `json:"evaluationName"`
	AchievementStandards []string          `json:"achievementStandards"`
	EvaluationCriteria   map[string]string `json:"evaluationCriteria"`
	EvaluationMethod     string            `json:"evaluationMethod"`
	EvaluationPeriod     string            `json:"evaluationPeriod"`
}

var ErrMissingPlanFields = errors.New("evaluation plan requires subject, grade, and semester")

// Validate reports whether the plan carries the fields every write requires.
func (p EvaluationPlan) Validate() error {
	if p.Subject == "" || p.Grade == "" || p.Semester == "" {
		return ErrMissingPlanFields
	}
	return nil
}

// LogicalKey identifies the plan independent of storage location.
func (p EvaluationPlan) LogicalKey() string {
	return p.Subject + "_" + p.Grade + "_" + p.Semester
}

// ParseEvaluationPlan decodes either the current or the legacy plan shape.
// A legacy flattened plan is normalized to a one-element Evaluations array.
func ParseEvaluationPlan(data []byte) (EvaluationPlan, error) {
	var p EvaluationPlan
	if err := json.Unmarshal(data, &p); err != nil {
		return EvaluationPlan{}, err
	}
	if len(p.Evaluations) > 0 {
		return p, nil
	}
	var old legacyEvaluationPlan
	if err := json.Unmarshal(data, &old); err != nil {
		return EvaluationPlan{}, err
	}
	if old.EvaluationName == "" {
		// Current shape with a genuinely empty evaluation list.
		return p, nil
	}
	return EvaluationPlan{
		Subject:  old.Subject,
		Grade:    old.Grade,
		Semester: old.Semester,
		Evaluations: []Evaluation{{
			EvaluationName:       old.EvaluationName,
			AchievementStandards: old.AchievementStandards,
			EvaluationCriteria:   old.EvaluationCriteria,
			EvaluationMethod:     old.EvaluationMethod,
			EvaluationPeriod:     old.EvaluationPeriod,
		}},
	}, nil
}

// Template returns a copy of the plan reduced to its shareable fields:
// the personal Teacher/School fields are stripped, everything else is kept.
func (p EvaluationPlan) Template() EvaluationPlan {
	cp := p
	cp.Teacher = ""
	cp.School = ""
	cp.Evaluations = append([]Evaluation(nil), p.Evaluations...)
	return cp
}
