package matching

// Per-token-pair scores. A candidate token that merely starts with the query
// token still counts, which handles truncated and partial names.
const (
	tokenExactScore  = 1.0
	tokenPrefixScore = 0.75
	tokenCloseScore  = 0.5
	tokenLooseScore  = 0.25
)

// Scorer provides the string comparison primitives used by the engine.
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// TokenScore compares one normalized query token against one candidate
// token: 1.0 exact, 0.75 prefix (query length >= 2), 0.5 at edit distance 1,
// 0.25 at edit distance 2.
func (s *Scorer) TokenScore(query, candidate string) float64 {
	if query == "" || candidate == "" {
		return 0.0
	}
	if query == candidate {
		return tokenExactScore
	}
	if len(query) >= 2 && len(candidate) > len(query) && candidate[:len(query)] == query {
		return tokenPrefixScore
	}
	switch s.LevenshteinDistance(query, candidate) {
	case 1:
		return tokenCloseScore
	case 2:
		return tokenLooseScore
	}
	return 0.0
}

// BestTokenScore returns the best score for a query token against every
// token known for a candidate identity.
func (s *Scorer) BestTokenScore(query string, candidateTokens []string) float64 {
	best := 0.0
	for _, candidate := range candidateTokens {
		if score := s.TokenScore(query, candidate); score > best {
			best = score
			if best == tokenExactScore {
				break
			}
		}
	}
	return best
}

// NameScore sums the best-per-query-token scores. Candidate tokens are not
// consumed: two query tokens may each best-match the same candidate token.
func (s *Scorer) NameScore(queryTokens, candidateTokens []string) float64 {
	total := 0.0
	for _, query := range queryTokens {
		total += s.BestTokenScore(query, candidateTokens)
	}
	return total
}

// ContactScore compares two canonicalized contact values: 1.0 identical,
// 0.5 at edit distance 1. Empty values never score.
func (s *Scorer) ContactScore(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}
	if s.LevenshteinDistance(a, b) == 1 {
		return 0.5
	}
	return 0.0
}

// BestContactScore returns the best ContactScore of a value against every
// contact known for a candidate identity.
func (s *Scorer) BestContactScore(value string, candidates []string) float64 {
	best := 0.0
	for _, candidate := range candidates {
		if score := s.ContactScore(value, candidate); score > best {
			best = score
			if best == 1.0 {
				break
			}
		}
	}
	return best
}

// LevenshteinDistance calculates the edit distance between two strings
func (s *Scorer) LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(min(row[j-1]+1, prevRow[j]+1), prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}
