// Package groups maintains shared-group state: the invitation code, the
// group's member roster, and each member's participation index.
//
// Roster and participation live in different namespaces, so join and leave
// are two independent writes with no transaction spanning them. Each
// operation is idempotent and ListUserGroups repairs index entries it finds
// orphaned, so consistency is recovered lazily rather than assumed.
package groups

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/evalhub/internal/app/store/docs"
	"github.com/dalemusser/evalhub/internal/app/store/paths"
	"github.com/dalemusser/evalhub/internal/app/system/codes"
	"github.com/dalemusser/evalhub/internal/domain/models"
	"github.com/dalemusser/evalhub/internal/storage"
	"go.uber.org/zap"
)

var (
	ErrGroupNotFound      = errors.New("groups: group not found")
	ErrAlreadyMember      = errors.New("groups: user is already a member")
	ErrNotMember          = errors.New("groups: user is not a member")
	ErrCreatorCannotLeave = errors.New("groups: the creator cannot leave the group")
	ErrNotAMember         = errors.New("groups: requester is not a member")

	// ErrCodeSpaceExhausted means ten consecutive draws collided with
	// live groups. With a 36^6 keyspace that indicates something is very
	// wrong with the backend or the generator, not a full keyspace.
	ErrCodeSpaceExhausted = errors.New("groups: could not draw an unused group code")
)

// maxCodeDraws bounds the create retry loop. A safety net, not a
// correctness requirement.
const maxCodeDraws = 10

// Store implements group lifecycle and membership over the document store.
type Store struct {
	backend storage.Backend
	docs    *docs.Store
	gen     *codes.Generator
	log     *zap.Logger
	now     func() time.Time
}

func New(backend storage.Backend, documents *docs.Store, gen *codes.Generator, logger *zap.Logger) *Store {
	return &Store{
		backend: backend,
		docs:    documents,
		gen:     gen,
		log:     logger,
		now:     time.Now,
	}
}

// SetClock overrides the time source. Tests use it to pin timestamps.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Create draws an unused code, creates the group namespace, and writes both
// the group metadata and the creator's participation entry.
//
// The uniqueness check and the namespace write are not atomic: two
// concurrent creates can draw the same code and both pass the check. The
// 6-character keyspace keeps that window practically irrelevant; there is
// deliberately no distributed lock here.
func (s *Store) Create(ctx context.Context, name, description, creatorID string) (models.GroupMeta, error) {
	code, err := s.drawUnusedCode(ctx)
	if err != nil {
		return models.GroupMeta{}, err
	}

	now := s.now().UTC()
	meta := models.GroupMeta{
		Code:        code,
		GroupName:   name,
		Description: description,
		Creator:     creatorID,
		CreatedAt:   now,
		ModifiedAt:  now,
		Members:     []string{creatorID},
		Permissions: models.Permissions{CanInvite: true, CanShare: true, CanEdit: true},
	}
	if err := s.writeMeta(ctx, meta); err != nil {
		return models.GroupMeta{}, err
	}
	if err := s.writeParticipation(ctx, creatorID, meta, true); err != nil {
		// The group exists but the creator's index entry does not; the
		// caller retries, and ListUserGroups tolerates the gap meanwhile.
		return models.GroupMeta{}, err
	}
	return meta, nil
}

func (s *Store) drawUnusedCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeDraws; attempt++ {
		code, err := s.gen.Draw()
		if err != nil {
			return "", fmt.Errorf("groups: code draw failed: %w", err)
		}
		ns := paths.Group(code)
		_, err = s.backend.FindFolder(ctx, storage.RootFolderID, ns.RootFolderName())
		if err == storage.ErrNotFound {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("groups: code uniqueness check failed: %w", err)
		}
		s.log.Debug("groups: code collision, redrawing",
			zap.String("code", code), zap.Int("attempt", attempt+1))
	}
	return "", ErrCodeSpaceExhausted
}

// Join adds userID to the group's roster and writes the matching
// participation entry. The roster write lands first; if the process dies
// before the index write, the invariant holds again after the next
// successful join/leave or a ListUserGroups pass.
func (s *Store) Join(ctx context.Context, code, userID string) error {
	meta, err := s.loadMeta(ctx, code)
	if err != nil {
		return err
	}
	if meta.HasMember(userID) {
		return ErrAlreadyMember
	}
	meta.Members = append(meta.Members, userID)
	meta.ModifiedAt = s.now().UTC()
	if err := s.writeMeta(ctx, meta); err != nil {
		return err
	}
	return s.writeParticipation(ctx, userID, meta, false)
}

// Leave removes userID from the roster and deletes the participation entry.
// The creator is never removable this way.
func (s *Store) Leave(ctx context.Context, code, userID string) error {
	meta, err := s.loadMeta(ctx, code)
	if err != nil {
		return err
	}
	if !meta.HasMember(userID) {
		return ErrNotMember
	}
	if userID == meta.Creator {
		return ErrCreatorCannotLeave
	}
	members := meta.Members[:0:0]
	for _, m := range meta.Members {
		if m != userID {
			members = append(members, m)
		}
	}
	meta.Members = members
	meta.ModifiedAt = s.now().UTC()
	if err := s.writeMeta(ctx, meta); err != nil {
		return err
	}
	return s.removeParticipation(ctx, userID, code)
}

// ListMembers returns the roster as seen by requesterID. All identifiers
// except the requester's own are masked to their first two characters so
// collaborators do not see each other's full identity tokens.
func (s *Store) ListMembers(ctx context.Context, code, requesterID string) ([]string, error) {
	meta, err := s.loadMeta(ctx, code)
	if err != nil {
		return nil, err
	}
	if !meta.HasMember(requesterID) {
		return nil, ErrNotAMember
	}
	out := make([]string, 0, len(meta.Members))
	for _, m := range meta.Members {
		if m == requesterID {
			out = append(out, m)
			continue
		}
		out = append(out, maskID(m))
	}
	return out, nil
}

func maskID(id string) string {
	if len(id) <= 2 {
		return id + "***"
	}
	return id[:2] + "***"
}

// ListUserGroups returns the groups the user participates in, from the
// user's participation index. Each entry is cross-checked against the
// group's roster; entries whose group is gone or no longer lists the user
// are trashed on the spot (self-heal) and omitted from the result.
func (s *Store) ListUserGroups(ctx context.Context, userID string) []models.ParticipationEntry {
	ns := paths.Personal(userID)
	var out []models.ParticipationEntry
	for _, rec := range s.docs.List(ctx, ns, paths.KindParticipation, docs.Filter{}) {
		entry, err := models.ParseParticipationEntry(rec.Payload)
		if err != nil {
			s.log.Debug("groups: skipping malformed participation entry",
				zap.String("name", rec.Name), zap.Error(err))
			continue
		}
		meta, err := s.loadMeta(ctx, entry.Code)
		if err != nil || !meta.HasMember(userID) {
			s.healOrphanedEntry(ctx, ns, rec.ID, entry.Code, userID)
			continue
		}
		out = append(out, entry)
	}
	return out
}

func (s *Store) healOrphanedEntry(ctx context.Context, ns paths.Namespace, recID, code, userID string) {
	if err := s.docs.SoftDelete(ctx, ns, paths.KindParticipation, recID); err != nil {
		s.log.Error("groups: failed to heal orphaned participation entry",
			zap.String("user", userID), zap.String("code", code), zap.Error(err))
		return
	}
	s.log.Info("groups: healed orphaned participation entry",
		zap.String("user", userID), zap.String("code", code))
}

func (s *Store) loadMeta(ctx context.Context, code string) (models.GroupMeta, error) {
	rec, err := s.docs.GetByKey(ctx, paths.Group(code), paths.KindMeta, code)
	if err != nil {
		return models.GroupMeta{}, ErrGroupNotFound
	}
	meta, err := models.ParseGroupMeta(rec.Payload)
	if err != nil {
		return models.GroupMeta{}, ErrGroupNotFound
	}
	return meta, nil
}

func (s *Store) writeMeta(ctx context.Context, meta models.GroupMeta) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = s.docs.Save(ctx, paths.Group(meta.Code), paths.KindMeta, payload)
	return err
}

func (s *Store) writeParticipation(ctx context.Context, userID string, meta models.GroupMeta, isCreator bool) error {
	entry := models.ParticipationEntry{
		Code:        meta.Code,
		GroupName:   meta.GroupName,
		Description: meta.Description,
		JoinedAt:    s.now().UTC(),
		IsCreator:   isCreator,
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = s.docs.Save(ctx, paths.Personal(userID), paths.KindParticipation, payload)
	return err
}

func (s *Store) removeParticipation(ctx context.Context, userID, code string) error {
	ns := paths.Personal(userID)
	rec, err := s.docs.GetByKey(ctx, ns, paths.KindParticipation, code)
	if err != nil {
		// The roster write already landed; a missing index entry is the
		// state Leave wants anyway.
		return nil
	}
	return s.docs.SoftDelete(ctx, ns, paths.KindParticipation, rec.ID)
}
