package models

import (
	"encoding/json"
	"time"
)

// GroupMeta is the metadata record stored in a group's namespace. Members is
// the authoritative roster; every member also carries a ParticipationEntry
// in their personal namespace, kept in agreement lazily (the backend offers
// no transaction spanning both writes).
type GroupMeta struct {
	Code        string      `json:"code"`
	GroupName   string      `json:"groupName"`
	Description string      `json:"description"`
	Creator     string      `json:"creator"`
	CreatedAt   time.Time   `json:"createdAt"`
	ModifiedAt  time.Time   `json:"modifiedAt"`
	Members     []string    `json:"members"`
	Permissions Permissions `json:"permissions"`
}

// Permissions is the group-wide permission set granted to members.
type Permissions struct {
	CanInvite bool `json:"canInvite"`
	CanShare  bool `json:"canShare"`
	CanEdit   bool `json:"canEdit"`
}

// HasMember reports whether userID is on the roster.
func (g GroupMeta) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

func ParseGroupMeta(data []byte) (GroupMeta, error) {
	var g GroupMeta
	if err := json.Unmarshal(data, &g); err != nil {
		return GroupMeta{}, err
	}
	return g, nil
}

// ParticipationEntry is the per-user reverse index record: one file per
// joined group in the user's personal namespace.
type ParticipationEntry struct {
	Code        string    `json:"code"`
	GroupName   string    `json:"groupName"`
	Description string    `json:"description"`
	JoinedAt    time.Time `json:"joinedAt"`
	IsCreator   bool      `json:"isCreator"`
}

func ParseParticipationEntry(data []byte) (ParticipationEntry, error) {
	var e ParticipationEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return ParticipationEntry{}, err
	}
	return e, nil
}
