// Package registry holds the crew identity registry: the immutable snapshot
// scored against during a run, and the builder that produces the next
// snapshot between runs.
package registry

import (
	"sort"

	"github.com/pkg/errors"
)

// Snapshot is the read-only view of the registry a run scores against. It is
// built once, validated, and never mutated; the builder swaps in a new
// snapshot between runs so readers never observe partial state.
type Snapshot struct {
	tokens      map[int64][]string
	tokenIndex  map[string][]int64
	emails      map[int64][]string
	phones      map[int64][]string
	departments map[int64]string
	names       map[int64]string
	gcmids      []int64
}

// SnapshotInput carries the four registry relations plus display names.
// Every map must be non-nil; a missing relation aborts snapshot construction
// because scoring against partial lookups silently produces wrong matches.
type SnapshotInput struct {
	Tokens      map[int64][]string
	Emails      map[int64][]string
	Phones      map[int64][]string
	Departments map[int64]string
	Names       map[int64]string
}

// NewSnapshot validates the input relations and builds an immutable
// snapshot. Identities are ordered by ascending GCMID so iteration, and
// therefore tie-breaking, is deterministic.
func NewSnapshot(input SnapshotInput) (*Snapshot, error) {
	if input.Tokens == nil {
		return nil, errors.New("registry snapshot is missing the name token relation")
	}
	if input.Emails == nil {
		return nil, errors.New("registry snapshot is missing the email relation")
	}
	if input.Phones == nil {
		return nil, errors.New("registry snapshot is missing the phone relation")
	}
	if input.Departments == nil {
		return nil, errors.New("registry snapshot is missing the department relation")
	}

	ids := map[int64]bool{}
	for gcmid := range input.Tokens {
		ids[gcmid] = true
	}
	for gcmid := range input.Emails {
		ids[gcmid] = true
	}
	for gcmid := range input.Phones {
		ids[gcmid] = true
	}
	for gcmid := range input.Departments {
		ids[gcmid] = true
	}

	gcmids := make([]int64, 0, len(ids))
	for gcmid := range ids {
		gcmids = append(gcmids, gcmid)
	}
	sort.Slice(gcmids, func(i, j int) bool { return gcmids[i] < gcmids[j] })

	tokenIndex := map[string][]int64{}
	for _, gcmid := range gcmids {
		for _, token := range input.Tokens[gcmid] {
			tokenIndex[token] = append(tokenIndex[token], gcmid)
		}
	}

	names := input.Names
	if names == nil {
		names = map[int64]string{}
	}

	return &Snapshot{
		tokens:      input.Tokens,
		tokenIndex:  tokenIndex,
		emails:      input.Emails,
		phones:      input.Phones,
		departments: input.Departments,
		names:       names,
		gcmids:      gcmids,
	}, nil
}

// GCMIDs returns every identity in the snapshot in ascending order.
func (s *Snapshot) GCMIDs() []int64 {
	return s.gcmids
}

// Size returns the number of identities in the snapshot.
func (s *Snapshot) Size() int {
	return len(s.gcmids)
}

// Tokens returns the normalized name tokens known for an identity.
func (s *Snapshot) Tokens(gcmid int64) []string {
	return s.tokens[gcmid]
}

// TokenHolders returns the identities indexed under a token.
func (s *Snapshot) TokenHolders(token string) []int64 {
	return s.tokenIndex[token]
}

// Emails returns the canonical emails known for an identity.
func (s *Snapshot) Emails(gcmid int64) []string {
	return s.emails[gcmid]
}

// Phones returns the canonical phones known for an identity.
func (s *Snapshot) Phones(gcmid int64) []string {
	return s.phones[gcmid]
}

// Department returns the recorded department for an identity, or "".
func (s *Snapshot) Department(gcmid int64) string {
	return s.departments[gcmid]
}

// Name returns the display name for an identity, or "".
func (s *Snapshot) Name(gcmid int64) string {
	return s.names[gcmid]
}
