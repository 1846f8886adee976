package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dalemusser/evalhub/internal/app/store/docs"
	"github.com/dalemusser/evalhub/internal/app/store/paths"
	"github.com/dalemusser/evalhub/internal/domain/models"
	"github.com/dalemusser/evalhub/internal/storage/memstore"
	"go.uber.org/zap"
)

// TestContext returns a context with the standard test deadline.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// Fixtures provides helper methods for creating test data over an in-memory
// storage backend.
type Fixtures struct {
	t       *testing.T
	Backend *memstore.Store
	Docs    *docs.Store
}

// NewFixtures creates a fresh in-memory tree and a document store over it.
func NewFixtures(t *testing.T) *Fixtures {
	t.Helper()
	backend := memstore.New()
	return &Fixtures{
		t:       t,
		Backend: backend,
		Docs:    docs.New(backend, zap.NewNop()),
	}
}

// SamplePlan returns a minimal valid evaluation plan.
func SamplePlan(subject, grade, semester string) models.EvaluationPlan {
	return models.EvaluationPlan{
		Subject:  subject,
		Grade:    grade,
		Semester: semester,
		Evaluations: []models.Evaluation{{
			EvaluationName:       "Quiz1",
			AchievementStandards: []string{"A1"},
			EvaluationCriteria:   map[string]string{},
			EvaluationMethod:     "written",
			EvaluationPeriod:     "March",
		}},
	}
}

// MustMarshal marshals v or fails the test.
func (f *Fixtures) MustMarshal(v any) []byte {
	f.t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		f.t.Fatalf("marshal fixture: %v", err)
	}
	return data
}

// SavePlan saves a plan into the namespace and returns its ref.
func (f *Fixtures) SavePlan(ctx context.Context, ns paths.Namespace, plan models.EvaluationPlan) docs.RecordRef {
	f.t.Helper()
	ref, err := f.Docs.Save(ctx, ns, paths.KindPlans, f.MustMarshal(plan))
	if err != nil {
		f.t.Fatalf("save plan fixture: %v", err)
	}
	return ref
}

// SeedLegacyPlan plants a plan file in the legacy flat-scheme location: a
// shared kind folder at the store root with the owner token in the filename.
func (f *Fixtures) SeedLegacyPlan(ctx context.Context, userID string, plan models.EvaluationPlan) {
	f.t.Helper()
	key := plan.Subject + "_" + plan.Grade + "_" + plan.Semester
	f.SeedLegacyPlanRaw(ctx, userID, key, f.MustMarshal(plan))
}

// SeedLegacyPlanRaw plants raw plan bytes in the legacy location, for
// payloads in the old flattened shape.
func (f *Fixtures) SeedLegacyPlanRaw(ctx context.Context, userID, logicalKey string, payload []byte) {
	f.t.Helper()
	folder, err := f.Backend.EnsureFolder(ctx, "", "evalhub_plans")
	if err != nil {
		f.t.Fatalf("seed legacy folder: %v", err)
	}
	name := "plan_" + userID + "_" + logicalKey + "_20200301.json"
	if _, err := f.Backend.WriteFile(ctx, folder.ID, name, payload); err != nil {
		f.t.Fatalf("seed legacy plan: %v", err)
	}
}
