package models

import (
	"encoding/json"
	"errors"
	"time"
)

// Roster is a class roster record.
type Roster struct {
	ClassName string    `json:"className"`
	Grade     string    `json:"grade"`
	Semester  string    `json:"semester"`
	Teacher   string    `json:"teacher"`
	Students  []Student `json:"students"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Student is one roster line.
type Student struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

var ErrMissingRosterFields = errors.New("roster requires className and grade")

func (r Roster) Validate() error {
	if r.ClassName == "" || r.Grade == "" {
		return ErrMissingRosterFields
	}
	return nil
}

// LogicalKey identifies the roster independent of storage location.
func (r Roster) LogicalKey() string {
	return r.ClassName + "_" + r.Grade
}

func ParseRoster(data []byte) (Roster, error) {
	var r Roster
	if err := json.Unmarshal(data, &r); err != nil {
		return Roster{}, err
	}
	return r, nil
}
