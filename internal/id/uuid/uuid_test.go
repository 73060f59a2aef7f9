package uuid

import (
	"testing"

	guuid "github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewIDProducesValidUUID7(t *testing.T) {
	t.Parallel()

	gen := New()
	id, err := gen.NewID()
	require.NoError(t, err)

	parsed, err := guuid.Parse(id)
	require.NoError(t, err)
	require.Equal(t, guuid.Version(7), parsed.Version())
}

func TestNewIDIsUnique(t *testing.T) {
	t.Parallel()

	gen := New()
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id, err := gen.NewID()
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
