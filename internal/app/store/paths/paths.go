// Package paths computes where records live.
//
// It is the single authority for folder and file naming: given a namespace
// and a record kind it returns the ordered candidate containers the
// resolution engine walks, canonical first. The package does no I/O and its
// output depends only on its inputs, so locations are stable across process
// restarts.
package paths

import "strings"

// Kind identifies one record family. Each kind has a canonical subfolder
// under its namespace root and a filename prefix that doubles as the naming
// convention used by the search fallback.
type Kind string

const (
	KindPlans         Kind = "plans"
	KindRosters       Kind = "rosters"
	KindArtifacts     Kind = "artifacts"
	KindSurveys       Kind = "surveys"
	KindResults       Kind = "results"
	KindParticipation Kind = "participation"
	KindMeta          Kind = "meta"
)

// filePrefixes maps each kind to the token its filenames start with.
var filePrefixes = map[Kind]string{
	KindPlans:         "plan",
	KindRosters:       "roster",
	KindArtifacts:     "artifact",
	KindSurveys:       "survey",
	KindResults:       "result",
	KindParticipation: "participation",
	KindMeta:          "groupmeta",
}

// Valid reports whether k is a known record kind.
func (k Kind) Valid() bool {
	_, ok := filePrefixes[k]
	return ok
}

// FolderName is the canonical subfolder for the kind under a namespace root.
func (k Kind) FolderName() string { return string(k) }

// FilePrefix is the leading token of every filename of this kind.
func (k Kind) FilePrefix() string { return filePrefixes[k] }

// FileName builds the canonical filename for a record of this kind.
func (k Kind) FileName(logicalKey, dateStamp string) string {
	return k.FilePrefix() + "_" + logicalKey + "_" + dateStamp + ".json"
}

// KeyPrefix is the filename prefix shared by every dated revision of the
// same logical record. Save matches on it to overwrite in place.
func (k Kind) KeyPrefix(logicalKey string) string {
	return k.FilePrefix() + "_" + logicalKey + "_"
}

// Matches reports whether a filename follows this kind's naming convention.
func (k Kind) Matches(name string) bool {
	return strings.HasPrefix(name, k.FilePrefix()+"_")
}

// Namespace is a logical ownership scope: one user's personal tree or one
// group's shared tree.
type Namespace struct {
	group bool
	id    string
}

// Personal returns the namespace owning a single user's records.
func Personal(userID string) Namespace { return Namespace{id: userID} }

// Group returns the namespace shared by the members of a group code.
func Group(code string) Namespace { return Namespace{group: true, id: code} }

// IsGroup reports whether the namespace is a group scope.
func (n Namespace) IsGroup() bool { return n.group }

// Owner returns the user id or group code the namespace belongs to.
func (n Namespace) Owner() string { return n.id }

// RootFolderName is the namespace's root container under the store root.
func (n Namespace) RootFolderName() string {
	if n.group {
		return "evalhub_group_" + n.id
	}
	return "evalhub_user_" + n.id
}

// ScopeToken is the owner token embedded in legacy filenames. The search
// fallback also matches on it for kinds whose conventions carry one.
func (n Namespace) ScopeToken() string { return n.id }

// Candidate is one container the resolution engine should try, expressed as
// a folder-name chain from the store root.
type Candidate struct {
	Segments []string
	Legacy   bool
}

// Candidates returns the ordered containers for (namespace, kind), most
// preferred first: the canonical per-namespace subtree, then any legacy
// location from a prior schema version.
//
// The legacy scheme predates per-user isolation: one flat kind folder at the
// store root, shared by all users, with the owner token carried in each
// filename instead. Group namespaces and the participation/meta kinds
// postdate that scheme, so they have no legacy tier.
func Candidates(ns Namespace, kind Kind) []Candidate {
	out := []Candidate{{
		Segments: []string{ns.RootFolderName(), kind.FolderName()},
	}}
	if ns.IsGroup() || kind == KindParticipation || kind == KindMeta {
		return out
	}
	return append(out, Candidate{
		Segments: []string{"evalhub_" + string(kind)},
		Legacy:   true,
	})
}

// LegacyFileToken is the filename fragment that ties a legacy (flat-scheme)
// file to its owner: the kind prefix followed by the scope token.
func LegacyFileToken(ns Namespace, kind Kind) string {
	return kind.FilePrefix() + "_" + ns.ScopeToken() + "_"
}
