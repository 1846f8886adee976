// Package resolve implements the tiered read strategy shared by every
// listing and lookup operation.
//
// Namespace schemas changed over time (flat shared folders, then per-user
// isolated trees), and old data must stay reachable without a migration
// pass. The engine encodes a strict preference: freshly written,
// well-located data first, then declared legacy locations, and only then
// salvage by tree-wide name search.
package resolve

import (
	"context"
	"strings"

	"github.com/dalemusser/evalhub/internal/app/store/paths"
	"github.com/dalemusser/evalhub/internal/storage"
	"github.com/dalemusser/waffle/pantry/text"
	"go.uber.org/zap"
)

// Source tags which tier produced a result set.
type Source string

const (
	SourceCanonical Source = "canonical"
	SourceLegacy    Source = "legacy"
	SourceSearch    Source = "search"
)

// Item is one file found by a lookup, tagged with the tier that produced it.
type Item struct {
	File   storage.File
	Source Source
}

// Engine walks resolution tiers against a storage backend. Reads never
// propagate backend errors: a failing tier is treated as empty and logged,
// so callers can always render a consistent (possibly empty) view.
type Engine struct {
	backend storage.Backend
	log     *zap.Logger
}

func New(backend storage.Backend, logger *zap.Logger) *Engine {
	return &Engine{backend: backend, log: logger}
}

// Lookup returns the files for (namespace, kind) from the first non-empty
// tier. An empty slice means the record kind has no data anywhere reachable.
func (e *Engine) Lookup(ctx context.Context, ns paths.Namespace, kind paths.Kind) []Item {
	for _, cand := range paths.Candidates(ns, kind) {
		files := e.listCandidate(ctx, ns, kind, cand)
		if len(files) == 0 {
			continue
		}
		src := SourceCanonical
		if cand.Legacy {
			src = SourceLegacy
		}
		return tag(files, src)
	}
	if files := e.search(ctx, ns, kind); len(files) > 0 {
		return tag(files, SourceSearch)
	}
	return nil
}

// listCandidate lists one candidate container, filtered by the kind's
// naming convention. A missing folder or a backend failure yields nil.
func (e *Engine) listCandidate(ctx context.Context, ns paths.Namespace, kind paths.Kind, cand paths.Candidate) []storage.File {
	folderID := storage.RootFolderID
	for _, name := range cand.Segments {
		f, err := e.backend.FindFolder(ctx, folderID, name)
		if err != nil {
			if err != storage.ErrNotFound {
				e.log.Debug("resolve: candidate folder lookup failed",
					zap.String("folder", name), zap.Error(err))
			}
			return nil
		}
		folderID = f.ID
	}
	files, err := e.backend.ListFiles(ctx, folderID)
	if err != nil {
		e.log.Debug("resolve: candidate listing failed",
			zap.Strings("path", cand.Segments), zap.Error(err))
		return nil
	}
	var out []storage.File
	for _, f := range files {
		if !kind.Matches(f.Name) {
			continue
		}
		// Legacy containers are shared across owners; the owner token in
		// the filename is the only scoping.
		if cand.Legacy && !strings.HasPrefix(f.Name, paths.LegacyFileToken(ns, kind)) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// search is the last tier: a tree-wide name search by kind prefix, narrowed
// by the namespace scope token when the kind's legacy convention embeds one.
//
// The search is not scoped to the owner's subtree, so a record elsewhere in
// the tree whose name happens to contain both tokens is a false positive.
// That matches the long-standing fallback behavior; callers prefer a rare
// ambiguous salvage over losing reachable data.
func (e *Engine) search(ctx context.Context, ns paths.Namespace, kind paths.Kind) []storage.File {
	files, err := e.backend.SearchFiles(ctx, kind.FilePrefix()+"_")
	if err != nil {
		e.log.Debug("resolve: search tier failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil
	}
	token := text.Fold(ns.ScopeToken())
	var out []storage.File
	for _, f := range files {
		if !kind.Matches(f.Name) {
			continue
		}
		if token != "" && !strings.Contains(text.Fold(f.Name), token) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func tag(files []storage.File, src Source) []Item {
	items := make([]Item, 0, len(files))
	for _, f := range files {
		items = append(items, Item{File: f, Source: src})
	}
	return items
}
