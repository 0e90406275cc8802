package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pioneerpictures/clover/pkg/models"
	"github.com/pioneerpictures/clover/pkg/registry"
)

func testSnapshot(t *testing.T) *registry.Snapshot {
	t.Helper()

	snapshot, err := registry.NewSnapshot(registry.SnapshotInput{
		Tokens: map[int64][]string{
			100: {"kovacs", "janos"},
			101: {"kovacs", "jano"},
			102: {"szabo", "anna"},
		},
		Emails: map[int64][]string{
			100: {"janos.kovacs@example.com"},
			101: {},
			102: {"anna.szabo@example.com"},
		},
		Phones: map[int64][]string{
			100: {"36301112233"},
			101: {},
			102: {"36305556677"},
		},
		Departments: map[int64]string{
			100: "camera",
			101: "",
			102: "art department",
		},
		Names: map[int64]string{
			100: "Kovács János",
			101: "Kovács Jánó",
			102: "Szabó Anna",
		},
	})
	require.NoError(t, err)
	return snapshot
}

func TestClassifyConfirmed(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	snapshot := testSnapshot(t)

	// Name and phone both corroborate identity 100.
	query := NewQuery("János Kovács", "", "+36-30-111-2233", "")
	outcome := engine.Classify(snapshot, query)

	assert.Equal(t, models.ClassificationConfirmed, outcome.Classification)
	require.NotNil(t, outcome.GCMID)
	assert.Equal(t, int64(100), *outcome.GCMID)
	require.Len(t, outcome.Candidates, 1)
	assert.Equal(t, 2.0, outcome.Candidates[0].NameScore)
	assert.Equal(t, 1.0, outcome.Candidates[0].PhoneScore)
}

func TestClassifyPossibleWithoutContactCorroboration(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	snapshot := testSnapshot(t)

	// A perfect name with no contact info cannot auto-confirm.
	query := NewQuery("Kovacs Janos", "", "", "")
	outcome := engine.Classify(snapshot, query)

	assert.Equal(t, models.ClassificationPossible, outcome.Classification)
	assert.Nil(t, outcome.GCMID)
	require.NotEmpty(t, outcome.Candidates)
	assert.Equal(t, int64(100), outcome.Candidates[0].GCMID)
	assert.Equal(t, 3.0, outcome.Candidates[0].FinalScore)
}

func TestClassifyNewIdentity(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	snapshot := testSnapshot(t)

	outcome := engine.Classify(snapshot, NewQuery("Completely Different", "", "", ""))

	assert.Equal(t, models.ClassificationNewIdentity, outcome.Classification)
	assert.Nil(t, outcome.GCMID)
	assert.Empty(t, outcome.Candidates)
}

func TestClassifyEmailCorroboration(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	snapshot := testSnapshot(t)

	query := NewQuery("Kovács János", "Janos.Kovacs@example.com", "", "")
	outcome := engine.Classify(snapshot, query)

	assert.Equal(t, models.ClassificationConfirmed, outcome.Classification)
	require.NotNil(t, outcome.GCMID)
	assert.Equal(t, int64(100), *outcome.GCMID)
}

func TestScoreCandidatesOrdering(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	// Two identities with identical scores: the lower GCMID must rank first.
	snapshot, err := registry.NewSnapshot(registry.SnapshotInput{
		Tokens: map[int64][]string{
			200: {"kovacs", "janos"},
			201: {"kovacs", "janos"},
		},
		Emails:      map[int64][]string{},
		Phones:      map[int64][]string{},
		Departments: map[int64]string{},
	})
	require.NoError(t, err)

	candidates := engine.ScoreCandidates(snapshot, NewQuery("Kovacs Janos", "", "", ""))
	require.Len(t, candidates, 2)
	assert.Equal(t, int64(200), candidates[0].GCMID)
	assert.Equal(t, int64(201), candidates[1].GCMID)
	assert.Equal(t, candidates[0].FinalScore, candidates[1].FinalScore)
}

func TestClassifyPossibleCapped(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	tokens := map[int64][]string{}
	for gcmid := int64(300); gcmid < 306; gcmid++ {
		tokens[gcmid] = []string{"kovacs", "janos"}
	}
	snapshot, err := registry.NewSnapshot(registry.SnapshotInput{
		Tokens:      tokens,
		Emails:      map[int64][]string{},
		Phones:      map[int64][]string{},
		Departments: map[int64]string{},
	})
	require.NoError(t, err)

	outcome := engine.Classify(snapshot, NewQuery("Kovacs Janos", "", "", ""))

	assert.Equal(t, models.ClassificationPossible, outcome.Classification)
	require.Len(t, outcome.Candidates, 3)

	seen := map[int64]bool{}
	for _, candidate := range outcome.Candidates {
		assert.False(t, seen[candidate.GCMID], "duplicate gcmid in possible matches")
		seen[candidate.GCMID] = true
	}
	// ties resolve toward lower GCMIDs
	assert.Equal(t, int64(300), outcome.Candidates[0].GCMID)
}

func TestDepartmentBonus(t *testing.T) {
	snapshot := testSnapshot(t)
	query := NewQuery("Kovacs Janos", "", "", "Camera")

	enabled := NewEngine(DefaultConfig())
	candidates := enabled.ScoreCandidates(snapshot, query)
	require.NotEmpty(t, candidates)
	assert.Equal(t, 0.5, candidates[0].DepartmentScore)
	assert.Equal(t, 3.5, candidates[0].FinalScore)

	config := DefaultConfig()
	config.DepartmentBonusEnabled = false
	disabled := NewEngine(config)
	candidates = disabled.ScoreCandidates(snapshot, query)
	require.NotEmpty(t, candidates)
	assert.Equal(t, 0.0, candidates[0].DepartmentScore)
	assert.Equal(t, 3.0, candidates[0].FinalScore)
}

func TestNewQueryRejectsMalformedEmail(t *testing.T) {
	query := NewQuery("Kovacs Janos", "not-an-email", "", "")
	assert.Equal(t, "", query.Email)

	query = NewQuery("Kovacs Janos", "janos@example.com", "", "")
	assert.Equal(t, "janos@example.com", query.Email)
}
