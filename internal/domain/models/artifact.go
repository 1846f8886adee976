package models

import (
	"encoding/json"
	"errors"
	"time"
)

// GeneratedDoc is the shared shape for generated-content records: artifacts
// produced by the external text-generation service, surveys, and result
// sets. The kind determines which folder it lives in; the schema is common.
type GeneratedDoc struct {
	Title     string    `json:"title"`
	Subject   string    `json:"subject,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

var ErrMissingDocTitle = errors.New("generated document requires a title")

func (d GeneratedDoc) Validate() error {
	if d.Title == "" {
		return ErrMissingDocTitle
	}
	return nil
}

func ParseGeneratedDoc(data []byte) (GeneratedDoc, error) {
	var d GeneratedDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return GeneratedDoc{}, err
	}
	return d, nil
}
