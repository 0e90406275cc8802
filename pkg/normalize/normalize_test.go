package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripDiacritics(t *testing.T) {
	assert.Equal(t, "Gabor", StripDiacritics("Gábor"))
	assert.Equal(t, "Szollosi Gyorgy", StripDiacritics("Szőllősi György"))
	assert.Equal(t, "plain", StripDiacritics("plain"))
}

func TestQueryTokens(t *testing.T) {
	t.Run("AccentsAndCase", func(t *testing.T) {
		assert.Equal(t, []string{"kovacs", "janos"}, QueryTokens("Kovács János"))
	})

	t.Run("HyphenSplits", func(t *testing.T) {
		assert.Equal(t, []string{"nagy", "kovacs", "anna"}, QueryTokens("Nagy-Kovács Anna"))
	})

	t.Run("QuotesAndPeriodsDropped", func(t *testing.T) {
		assert.Equal(t, []string{"kovacs", "janos"}, QueryTokens(`Kovács "János"`))
		assert.Equal(t, []string{"ifj", "szabo", "peter"}, QueryTokens("ifj. Szabó Péter"))
	})

	t.Run("ShortTokensDropped", func(t *testing.T) {
		// "B" is too short to carry signal
		assert.Equal(t, []string{"kovacs"}, QueryTokens("Kovács B"))
	})

	t.Run("MarriedNameSuffixDropped", func(t *testing.T) {
		assert.Equal(t, []string{"szabo", "istvan"}, QueryTokens("Szabó István né"))
	})

	t.Run("NicknameCollapsesToCanonical", func(t *testing.T) {
		assert.Equal(t, []string{"toth", "gabriella"}, QueryTokens("Tóth Gabi"))
		assert.Equal(t, []string{"kiss", "zsuzsanna"}, QueryTokens("Kiss Zsuzsi"))
		// "jr" is below the length floor but still maps
		assert.Equal(t, []string{"horvath", "adam", "junior"}, QueryTokens("Horváth Ádám jr"))
	})

	t.Run("EmptyInput", func(t *testing.T) {
		assert.Empty(t, QueryTokens(""))
		assert.Empty(t, QueryTokens("  .  "))
	})
}

func TestIndexTokens(t *testing.T) {
	t.Run("KeepsBothNicknameForms", func(t *testing.T) {
		// The index must match queries using either spelling.
		assert.Equal(t, []string{"toth", "gabriella", "gabi"}, IndexTokens("Tóth Gabi"))
	})

	t.Run("ShortNicknameKeepsOnlyCanonical", func(t *testing.T) {
		assert.Equal(t, []string{"horvath", "junior"}, IndexTokens("Horváth jr"))
	})

	t.Run("Deduplicates", func(t *testing.T) {
		assert.Equal(t, []string{"kovacs", "janos"}, IndexTokens("Kovács Kovács János"))
	})

	t.Run("PlainName", func(t *testing.T) {
		assert.Equal(t, []string{"kovacs", "janos"}, IndexTokens("Kovács János"))
	})
}

func TestPhone(t *testing.T) {
	t.Run("EquivalentForms", func(t *testing.T) {
		expected := Phone("06301234567")
		assert.Equal(t, expected, Phone("+36301234567"))
		assert.Equal(t, expected, Phone("301234567"))
		assert.Equal(t, "36301234567", expected)
	})

	t.Run("FormattingStripped", func(t *testing.T) {
		assert.Equal(t, "36301112233", Phone("+36-30-111-2233"))
		assert.Equal(t, "36301112233", Phone("(06) 30 111 2233"))
	})

	t.Run("Idempotent", func(t *testing.T) {
		once := Phone("06301234567")
		assert.Equal(t, once, Phone(once))
	})

	t.Run("EmptyStaysEmpty", func(t *testing.T) {
		assert.Equal(t, "", Phone(""))
		assert.Equal(t, "", Phone("n/a"))
	})
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "janos.kovacs@example.com", Email("Janos.Kovacs@Example.com"))
	assert.Equal(t, "gabor@example.com", Email(" gábor@example.com "))
	assert.Equal(t, "kovacs@example.com", Email(`"kovacs"@example.com`))
}

func TestDepartment(t *testing.T) {
	assert.Equal(t, "camera", Department("Camera"))
	assert.Equal(t, "art department", Department("  Art   Department "))
	assert.Equal(t, "vilagitas", Department("Világítás"))
	assert.Equal(t, "", Department(""))
}

func TestDepartmentForTitle(t *testing.T) {
	assert.Equal(t, "camera", DepartmentForTitle("Focus Puller"))
	assert.Equal(t, "electric", DepartmentForTitle("  GAFFER "))
	assert.Equal(t, "production", DepartmentForTitle("First Assistant Director"))
	assert.Equal(t, "", DepartmentForTitle("Intergalactic Consultant"))
	assert.Equal(t, "", DepartmentForTitle(""))
}
