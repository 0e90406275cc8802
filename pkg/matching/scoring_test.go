package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenScore(t *testing.T) {
	scorer := NewScorer()

	t.Run("Exact", func(t *testing.T) {
		assert.Equal(t, 1.0, scorer.TokenScore("kovacs", "kovacs"))
	})

	t.Run("Prefix", func(t *testing.T) {
		assert.Equal(t, 0.75, scorer.TokenScore("kov", "kovacs"))
		// single-rune queries are too ambiguous to count as prefixes
		assert.Equal(t, 0.0, scorer.TokenScore("k", "kovacs"))
		// the query being longer than the candidate is not a prefix match
		assert.NotEqual(t, 0.75, scorer.TokenScore("kovacs", "kov"))
	})

	t.Run("EditDistanceOne", func(t *testing.T) {
		assert.Equal(t, 0.5, scorer.TokenScore("kovacs", "kovats"))
	})

	t.Run("EditDistanceTwo", func(t *testing.T) {
		assert.Equal(t, 0.25, scorer.TokenScore("kovacs", "kovatch"))
	})

	t.Run("TooFar", func(t *testing.T) {
		assert.Equal(t, 0.0, scorer.TokenScore("kovacs", "szabo"))
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, 0.0, scorer.TokenScore("", "kovacs"))
		assert.Equal(t, 0.0, scorer.TokenScore("kovacs", ""))
	})
}

func TestNameScore(t *testing.T) {
	scorer := NewScorer()

	t.Run("SumOfBestPerQueryToken", func(t *testing.T) {
		score := scorer.NameScore([]string{"kovacs", "janos"}, []string{"kovacs", "janos"})
		assert.Equal(t, 2.0, score)
	})

	t.Run("WordOrderIrrelevant", func(t *testing.T) {
		score := scorer.NameScore([]string{"janos", "kovacs"}, []string{"kovacs", "janos"})
		assert.Equal(t, 2.0, score)
	})

	t.Run("CandidateTokensNotConsumed", func(t *testing.T) {
		// both query tokens may best-match the same candidate token
		score := scorer.NameScore([]string{"kovacs", "kovats"}, []string{"kovacs"})
		assert.Equal(t, 1.5, score)
	})

	t.Run("PartialMatch", func(t *testing.T) {
		score := scorer.NameScore([]string{"kovacs", "pal"}, []string{"kovacs", "janos"})
		assert.Equal(t, 1.0, score)
	})
}

func TestContactScore(t *testing.T) {
	scorer := NewScorer()

	assert.Equal(t, 1.0, scorer.ContactScore("a@b.com", "a@b.com"))
	assert.Equal(t, 0.5, scorer.ContactScore("36301234567", "36301234568"))
	assert.Equal(t, 0.0, scorer.ContactScore("36301234567", "36309999999"))
	assert.Equal(t, 0.0, scorer.ContactScore("", ""))
	assert.Equal(t, 0.0, scorer.ContactScore("a@b.com", ""))
}

func TestBestContactScore(t *testing.T) {
	scorer := NewScorer()

	best := scorer.BestContactScore("36301234567", []string{"36309999999", "36301234567"})
	assert.Equal(t, 1.0, best)

	assert.Equal(t, 0.0, scorer.BestContactScore("36301234567", nil))
}

func TestLevenshteinDistance(t *testing.T) {
	scorer := NewScorer()

	assert.Equal(t, 0, scorer.LevenshteinDistance("kovacs", "kovacs"))
	assert.Equal(t, 1, scorer.LevenshteinDistance("kovacs", "kovats"))
	assert.Equal(t, 2, scorer.LevenshteinDistance("kovacs", "kovatch"))
	assert.Equal(t, 6, scorer.LevenshteinDistance("kovacs", ""))
}
