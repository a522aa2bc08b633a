package capability

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loadDialect struct{}

func (loadDialect) Declare(e Entry) string {
	return `load("` + e.Name + `", "` + e.Name + `")`
}

type brokenDialect struct{}

func (brokenDialect) Declare(e Entry) string {
	return "first\nsecond"
}

func TestAllowList(t *testing.T) {
	t.Parallel()

	list := Default()
	require.NoError(t, list.Validate())
	assert.True(t, list.Allows("datasources"))
	assert.True(t, list.Allows("Shape"))
	assert.False(t, list.Allows("os"))
	assert.Equal(t, "1", list.Version)

	t.Run("with plugins", func(t *testing.T) {
		extended := list.With(Entry{Name: "lattice", Kind: KindPlugin})
		assert.True(t, extended.Allows("lattice"))
		assert.False(t, list.Allows("lattice"))
		assert.Equal(t, "1+lattice", extended.Version)
		assert.Len(t, extended.Entries, len(list.Entries)+1)
	})

	t.Run("duplicates rejected", func(t *testing.T) {
		dup := list.With(Entry{Name: "math", Kind: KindPlugin})
		require.ErrorIs(t, dup.Validate(), ErrDuplicateName)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		bad := AllowList{Entries: []Entry{{Kind: KindClass}}}
		require.ErrorIs(t, bad.Validate(), ErrEmptyName)
	})
}

func TestInjector(t *testing.T) {
	t.Parallel()

	inj, err := NewInjector(Default(), loadDialect{})
	require.NoError(t, err)

	script := "def main(args):\n    return None\n"

	t.Run("header count is stable", func(t *testing.T) {
		first, n1 := inj.Augment(script)
		second, n2 := inj.Augment(script)
		assert.Equal(t, n1, n2)
		assert.Equal(t, first, second)
		assert.Equal(t, len(Default().Entries), n1)
	})

	t.Run("user text follows the header", func(t *testing.T) {
		out, n := inj.Augment(script)
		lines := strings.Split(out, "\n")
		assert.Equal(t, `load("math", "math")`, lines[0])
		assert.Equal(t, "def main(args):", lines[n])
	})

	t.Run("separate injectors agree", func(t *testing.T) {
		other, err := NewInjector(Default(), loadDialect{})
		require.NoError(t, err)
		_, n1 := inj.Augment("")
		_, n2 := other.Augment("")
		assert.Equal(t, n1, n2)
	})

	t.Run("multiline declarations rejected", func(t *testing.T) {
		_, err := NewInjector(Default(), brokenDialect{})
		require.ErrorIs(t, err, ErrMultiline)
	})
}
