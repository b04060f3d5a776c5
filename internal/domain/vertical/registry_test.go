package vertical

import (
	"testing"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Run("registers and resolves descriptors", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(Descriptor{Name: "bakery", DisplayName: "Bakery"}))

		d, ok := r.Get("bakery")
		assert.True(t, ok)
		assert.Equal(t, "Bakery", d.DisplayName)
		assert.Equal(t, 1, r.Count())
	})

	t.Run("duplicate names are rejected", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(Descriptor{Name: "bakery"}))

		err := r.Register(Descriptor{Name: "bakery"})

		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("empty names are rejected", func(t *testing.T) {
		r := NewRegistry()
		assert.ErrorIs(t, r.Register(Descriptor{}), shared.ErrInvalidInput)
	})

	t.Run("list is sorted", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(Descriptor{Name: "pharmacy"}))
		require.NoError(t, r.Register(Descriptor{Name: "bakery"}))

		assert.Equal(t, []string{"bakery", "pharmacy"}, r.List())
	})

	t.Run("unregister removes the descriptor", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(Descriptor{Name: "bakery"}))
		require.NoError(t, r.Unregister("bakery"))

		_, ok := r.Get("bakery")
		assert.False(t, ok)
		assert.ErrorIs(t, r.Unregister("bakery"), shared.ErrNotFound)
	})
}
