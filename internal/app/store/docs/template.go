package docs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dalemusser/evalhub/internal/app/store/paths"
	"github.com/dalemusser/evalhub/internal/domain/models"
)

// ExportTemplate projects the evaluation plan with the given id from one
// namespace into another as a fresh record, with personal fields stripped.
// This is how a plan moves from a user's tree into a group's shared tree
// (or back out).
func (s *Store) ExportTemplate(ctx context.Context, from, to paths.Namespace, id string) (RecordRef, error) {
	rec, err := s.Get(ctx, from, paths.KindPlans, id)
	if err != nil {
		return RecordRef{}, err
	}
	plan, err := models.ParseEvaluationPlan(rec.Payload)
	if err != nil {
		return RecordRef{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	payload, err := json.Marshal(plan.Template())
	if err != nil {
		return RecordRef{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return s.Save(ctx, to, paths.KindPlans, payload)
}

// ImportTemplate checks an incoming template's provenance (required fields
// present, at least one evaluation) and saves it into the namespace. The
// checks run before any write.
func (s *Store) ImportTemplate(ctx context.Context, ns paths.Namespace, payload []byte) (RecordRef, error) {
	plan, err := models.ParseEvaluationPlan(payload)
	if err != nil {
		return RecordRef{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := plan.Validate(); err != nil {
		return RecordRef{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(plan.Evaluations) == 0 {
		return RecordRef{}, fmt.Errorf("%w: template carries no evaluations", ErrInvalidPayload)
	}
	return s.Save(ctx, ns, paths.KindPlans, payload)
}
