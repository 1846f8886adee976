package resolve_test

import (
	"context"
	"testing"

	"github.com/dalemusser/evalhub/internal/app/store/paths"
	"github.com/dalemusser/evalhub/internal/app/store/resolve"
	"github.com/dalemusser/evalhub/internal/storage"
	"github.com/dalemusser/evalhub/internal/storage/memstore"
	"github.com/dalemusser/evalhub/internal/testutil"
	"go.uber.org/zap"
)

func seedCanonical(t *testing.T, ctx context.Context, s *memstore.Store, ns paths.Namespace, kind paths.Kind, name string) {
	t.Helper()
	folderID := storage.RootFolderID
	for _, seg := range paths.Candidates(ns, kind)[0].Segments {
		f, err := s.EnsureFolder(ctx, folderID, seg)
		if err != nil {
			t.Fatalf("seed folder %q: %v", seg, err)
		}
		folderID = f.ID
	}
	if _, err := s.WriteFile(ctx, folderID, name, []byte("{}")); err != nil {
		t.Fatalf("seed file %q: %v", name, err)
	}
}

func seedLegacy(t *testing.T, ctx context.Context, s *memstore.Store, kind paths.Kind, name string) {
	t.Helper()
	f, err := s.EnsureFolder(ctx, storage.RootFolderID, "evalhub_"+string(kind))
	if err != nil {
		t.Fatalf("seed legacy folder: %v", err)
	}
	if _, err := s.WriteFile(ctx, f.ID, name, []byte("{}")); err != nil {
		t.Fatalf("seed legacy file: %v", err)
	}
}

func TestLookup_CanonicalWins(t *testing.T) {
	s := memstore.New()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ns := paths.Personal("u1")

	seedCanonical(t, ctx, s, ns, paths.KindPlans, "plan_Math_5_1_20260829.json")
	seedLegacy(t, ctx, s, paths.KindPlans, "plan_u1_Science_4_2_20200301.json")

	items := resolve.New(s, zap.NewNop()).Lookup(ctx, ns, paths.KindPlans)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Source != resolve.SourceCanonical {
		t.Errorf("source: got %q, want %q", items[0].Source, resolve.SourceCanonical)
	}
	if items[0].File.Name != "plan_Math_5_1_20260829.json" {
		t.Errorf("canonical data must shadow legacy data, got %q", items[0].File.Name)
	}
}

func TestLookup_LegacyWhenCanonicalEmpty(t *testing.T) {
	s := memstore.New()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ns := paths.Personal("u1")

	seedLegacy(t, ctx, s, paths.KindPlans, "plan_u1_Math_5_1_20200301.json")
	// Another user's legacy file in the same shared folder must be
	// filtered out by the owner token.
	seedLegacy(t, ctx, s, paths.KindPlans, "plan_u2_Math_5_1_20200301.json")

	items := resolve.New(s, zap.NewNop()).Lookup(ctx, ns, paths.KindPlans)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Source != resolve.SourceLegacy {
		t.Errorf("source: got %q, want %q", items[0].Source, resolve.SourceLegacy)
	}
	if items[0].File.Name != "plan_u1_Math_5_1_20200301.json" {
		t.Errorf("got %q, want the owner's legacy file", items[0].File.Name)
	}
}

func TestLookup_SearchFallback(t *testing.T) {
	s := memstore.New()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ns := paths.Personal("u1")

	// A stray folder outside both declared tiers, e.g. after a manual
	// reorganization of the tree.
	stray, err := s.EnsureFolder(ctx, storage.RootFolderID, "old_backup")
	if err != nil {
		t.Fatalf("seed stray folder: %v", err)
	}
	if _, err := s.WriteFile(ctx, stray.ID, "plan_u1_Math_5_1_20190301.json", []byte("{}")); err != nil {
		t.Fatalf("seed stray file: %v", err)
	}

	items := resolve.New(s, zap.NewNop()).Lookup(ctx, ns, paths.KindPlans)
	if len(items) != 1 {
		t.Fatalf("expected 1 item via search, got %d", len(items))
	}
	if items[0].Source != resolve.SourceSearch {
		t.Errorf("source: got %q, want %q", items[0].Source, resolve.SourceSearch)
	}
}

func TestLookup_EmptyEverywhere(t *testing.T) {
	s := memstore.New()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	items := resolve.New(s, zap.NewNop()).Lookup(ctx, paths.Personal("u1"), paths.KindPlans)
	if len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
}

func TestLookup_BackendErrorDegradesToEmpty(t *testing.T) {
	s := memstore.New()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ns := paths.Personal("u1")

	seedCanonical(t, ctx, s, ns, paths.KindPlans, "plan_Math_5_1_20260829.json")
	s.Fail(context.DeadlineExceeded)

	items := resolve.New(s, zap.NewNop()).Lookup(ctx, ns, paths.KindPlans)
	if len(items) != 0 {
		t.Errorf("expected degrade to empty on backend failure, got %d items", len(items))
	}
}
