package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshotRejectsMissingRelations(t *testing.T) {
	base := func() SnapshotInput {
		return SnapshotInput{
			Tokens:      map[int64][]string{},
			Emails:      map[int64][]string{},
			Phones:      map[int64][]string{},
			Departments: map[int64]string{},
		}
	}

	t.Run("Valid", func(t *testing.T) {
		_, err := NewSnapshot(base())
		assert.NoError(t, err)
	})

	t.Run("MissingTokens", func(t *testing.T) {
		input := base()
		input.Tokens = nil
		_, err := NewSnapshot(input)
		assert.Error(t, err)
	})

	t.Run("MissingEmails", func(t *testing.T) {
		input := base()
		input.Emails = nil
		_, err := NewSnapshot(input)
		assert.Error(t, err)
	})

	t.Run("MissingPhones", func(t *testing.T) {
		input := base()
		input.Phones = nil
		_, err := NewSnapshot(input)
		assert.Error(t, err)
	})

	t.Run("MissingDepartments", func(t *testing.T) {
		input := base()
		input.Departments = nil
		_, err := NewSnapshot(input)
		assert.Error(t, err)
	})
}

func TestSnapshotOrdering(t *testing.T) {
	snapshot, err := NewSnapshot(SnapshotInput{
		Tokens: map[int64][]string{
			300: {"szabo"},
			100: {"kovacs"},
			200: {"nagy"},
		},
		Emails:      map[int64][]string{400: {"x@example.com"}},
		Phones:      map[int64][]string{},
		Departments: map[int64]string{},
	})
	require.NoError(t, err)

	// every identity seen in any relation, ascending
	assert.Equal(t, []int64{100, 200, 300, 400}, snapshot.GCMIDs())
	assert.Equal(t, 4, snapshot.Size())
}

func TestSnapshotLookups(t *testing.T) {
	snapshot, err := NewSnapshot(SnapshotInput{
		Tokens: map[int64][]string{
			100: {"kovacs", "janos"},
			101: {"kovacs"},
		},
		Emails:      map[int64][]string{100: {"janos@example.com"}},
		Phones:      map[int64][]string{100: {"36301112233"}},
		Departments: map[int64]string{100: "camera"},
		Names:       map[int64]string{100: "Kovács János"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"kovacs", "janos"}, snapshot.Tokens(100))
	assert.Equal(t, []int64{100, 101}, snapshot.TokenHolders("kovacs"))
	assert.Equal(t, []string{"janos@example.com"}, snapshot.Emails(100))
	assert.Equal(t, []string{"36301112233"}, snapshot.Phones(100))
	assert.Equal(t, "camera", snapshot.Department(100))
	assert.Equal(t, "Kovács János", snapshot.Name(100))

	assert.Empty(t, snapshot.Tokens(999))
	assert.Empty(t, snapshot.TokenHolders("missing"))
}
