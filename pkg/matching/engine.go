// Package matching implements the crew record scoring engine and its
// classification rules.
package matching

import (
	"sort"
	"strings"

	"github.com/pioneerpictures/clover/pkg/models"
	"github.com/pioneerpictures/clover/pkg/normalize"
	"github.com/pioneerpictures/clover/pkg/registry"
)

// nameWeight reflects that name is the primary signal but must be
// corroborated by a contact channel before a record is auto-confirmed.
const nameWeight = 1.5

// departmentBonus is added when a supplied department exactly equals the
// candidate's recorded department.
const departmentBonus = 0.5

// Config holds the classification thresholds.
type Config struct {
	ConfirmNameThreshold   float64
	ConfirmContactMinimum  float64
	PossibleScoreThreshold float64
	MaxPossibleMatches     int
	DepartmentBonusEnabled bool
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		ConfirmNameThreshold:   1.25,
		ConfirmContactMinimum:  1.0,
		PossibleScoreThreshold: 1.25,
		MaxPossibleMatches:     3,
		DepartmentBonusEnabled: true,
	}
}

// Query is a fully normalized incoming record ready for scoring.
type Query struct {
	Name       string
	Tokens     []string
	Email      string
	Phone      string
	Department string
}

// NewQuery canonicalizes the raw fields of an incoming record. A malformed
// field becomes an empty canonical value, which can never score, rather than
// an error. Values without an "@" are not treated as emails.
func NewQuery(name, email, phone, department string) Query {
	canonicalEmail := normalize.Email(email)
	if !strings.Contains(canonicalEmail, "@") {
		canonicalEmail = ""
	}

	return Query{
		Name:       name,
		Tokens:     normalize.QueryTokens(name),
		Email:      canonicalEmail,
		Phone:      normalize.Phone(phone),
		Department: normalize.Department(department),
	}
}

// Outcome is the one-shot classification of a single record.
type Outcome struct {
	Classification models.Classification
	GCMID          *int64
	Candidates     []models.MatchCandidate
}

// Engine scores incoming records against a registry snapshot and classifies
// the results. It holds no mutable state, so one engine may evaluate many
// records concurrently against the same snapshot.
type Engine struct {
	scorer *Scorer
	config Config
}

func NewEngine(config Config) *Engine {
	if config.MaxPossibleMatches <= 0 {
		config.MaxPossibleMatches = DefaultConfig().MaxPossibleMatches
	}
	return &Engine{
		scorer: NewScorer(),
		config: config,
	}
}

// ScoreCandidates computes a composite score for the query against every
// identity in the snapshot and returns the candidates with FinalScore > 0,
// ranked by FinalScore, then NameScore, then ascending GCMID so ties resolve
// reproducibly.
func (e *Engine) ScoreCandidates(snapshot *registry.Snapshot, query Query) []models.MatchCandidate {
	var candidates []models.MatchCandidate

	for _, gcmid := range snapshot.GCMIDs() {
		nameScore := e.scorer.NameScore(query.Tokens, snapshot.Tokens(gcmid))
		emailScore := e.scorer.BestContactScore(query.Email, snapshot.Emails(gcmid))
		phoneScore := e.scorer.BestContactScore(query.Phone, snapshot.Phones(gcmid))

		departmentScore := 0.0
		if e.config.DepartmentBonusEnabled && query.Department != "" {
			if recorded := snapshot.Department(gcmid); recorded != "" && recorded == query.Department {
				departmentScore = departmentBonus
			}
		}

		finalScore := nameWeight*nameScore + emailScore + phoneScore + departmentScore
		if finalScore <= 0 {
			continue
		}

		candidates = append(candidates, models.MatchCandidate{
			GCMID:           gcmid,
			Name:            snapshot.Name(gcmid),
			NameScore:       nameScore,
			EmailScore:      emailScore,
			PhoneScore:      phoneScore,
			DepartmentScore: departmentScore,
			FinalScore:      finalScore,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].FinalScore != candidates[j].FinalScore {
			return candidates[i].FinalScore > candidates[j].FinalScore
		}
		if candidates[i].NameScore != candidates[j].NameScore {
			return candidates[i].NameScore > candidates[j].NameScore
		}
		return candidates[i].GCMID < candidates[j].GCMID
	})

	return candidates
}

// Classify applies the threshold rules to the ranked candidates. A record is
// Confirmed only when the top candidate's name signal is corroborated by
// contact info; otherwise plausible candidates go to review and records that
// matched nothing become new-identity candidates. No transition happens
// afterwards; only a new run or a reviewer decision moves a record.
func (e *Engine) Classify(snapshot *registry.Snapshot, query Query) Outcome {
	candidates := e.ScoreCandidates(snapshot, query)

	if len(candidates) > 0 {
		top := candidates[0]
		if top.NameScore >= e.config.ConfirmNameThreshold &&
			top.EmailScore+top.PhoneScore >= e.config.ConfirmContactMinimum {
			gcmid := top.GCMID
			return Outcome{
				Classification: models.ClassificationConfirmed,
				GCMID:          &gcmid,
				Candidates:     []models.MatchCandidate{top},
			}
		}
	}

	var possible []models.MatchCandidate
	seen := map[int64]bool{}
	for _, candidate := range candidates {
		if candidate.FinalScore < e.config.PossibleScoreThreshold {
			break // candidates are ranked, nothing further qualifies
		}
		if seen[candidate.GCMID] {
			continue
		}
		seen[candidate.GCMID] = true
		possible = append(possible, candidate)
		if len(possible) == e.config.MaxPossibleMatches {
			break
		}
	}

	if len(possible) > 0 {
		return Outcome{
			Classification: models.ClassificationPossible,
			Candidates:     possible,
		}
	}

	return Outcome{Classification: models.ClassificationNewIdentity}
}
