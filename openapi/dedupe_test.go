package openapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupeParameters(t *testing.T) {
	t.Run("path wins over earlier query", func(t *testing.T) {
		out := DedupeParameters([]*Parameter{
			{Name: "id", In: "query"},
			{Name: "id", In: "path", Required: true},
		})

		require.Len(t, out, 1)
		assert.Equal(t, "path", out[0].In)
	})

	t.Run("path kept over later query", func(t *testing.T) {
		out := DedupeParameters([]*Parameter{
			{Name: "id", In: "path", Required: true},
			{Name: "id", In: "query"},
		})

		require.Len(t, out, 1)
		assert.Equal(t, "path", out[0].In)
	})

	t.Run("first non-path entry wins", func(t *testing.T) {
		first := &Parameter{Name: "q", In: "query", Description: "first"}
		out := DedupeParameters([]*Parameter{first, {Name: "q", In: "query", Description: "second"}})

		require.Len(t, out, 1)
		assert.Same(t, first, out[0])
	})

	t.Run("first path entry wins", func(t *testing.T) {
		first := &Parameter{Name: "id", In: "path"}
		out := DedupeParameters([]*Parameter{first, {Name: "id", In: "path"}})

		require.Len(t, out, 1)
		assert.Same(t, first, out[0])
	})

	t.Run("order preserved", func(t *testing.T) {
		out := DedupeParameters([]*Parameter{
			{Name: "b", In: "query"},
			{Name: "a", In: "query"},
			{Name: "b", In: "path"},
			{Name: "c", In: "query"},
			nil,
		})

		names := make([]string, 0, len(out))
		for _, p := range out {
			names = append(names, p.Name+":"+p.In)
		}

		assert.Equal(t, []string{"b:path", "a:query", "c:query"}, names)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, DedupeParameters(nil))
	})
}
