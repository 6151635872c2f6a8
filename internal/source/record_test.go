package source

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowRecord(t *testing.T) {
	rec := NewRowRecord([]string{"ID", "NAME", "ZIP"}, []string{"1", "Alice", "02134"})

	t.Run("Value resolves header columns", func(t *testing.T) {
		v, ok := rec.Value("NAME")
		require.True(t, ok)
		assert.Equal(t, "Alice", v)
	})

	t.Run("Unknown columns are absent", func(t *testing.T) {
		_, ok := rec.Value("MISSING")
		assert.False(t, ok)
	})

	t.Run("Raw returns every column", func(t *testing.T) {
		raw := rec.Raw()
		assert.Equal(t, map[string]any{"ID": "1", "NAME": "Alice", "ZIP": "02134"}, raw)
	})

	t.Run("Short rows report truncated columns as absent", func(t *testing.T) {
		short := NewRowRecord([]string{"A", "B", "C"}, []string{"only"})
		v, ok := short.Value("A")
		require.True(t, ok)
		assert.Equal(t, "only", v)
		_, ok = short.Value("C")
		assert.False(t, ok)
		assert.Equal(t, map[string]any{"A": "only"}, short.Raw())
	})
}

func TestDocRecord(t *testing.T) {
	rec := NewDocRecord(map[string]any{
		"member_id": "M-9",
		"name": map[string]any{
			"first": "Dana",
			"last":  "Lopez",
		},
		"dob":   nil,
		"years": json.Number("12"),
	})

	t.Run("Top-level keys resolve directly", func(t *testing.T) {
		v, ok := rec.Value("member_id")
		require.True(t, ok)
		assert.Equal(t, "M-9", v)
	})

	t.Run("Dotted paths walk nested objects", func(t *testing.T) {
		v, ok := rec.Value("name.first")
		require.True(t, ok)
		assert.Equal(t, "Dana", v)
	})

	t.Run("Explicit null is present with a nil value", func(t *testing.T) {
		v, ok := rec.Value("dob")
		require.True(t, ok)
		assert.Nil(t, v)
	})

	t.Run("Missing leaf is absent", func(t *testing.T) {
		_, ok := rec.Value("name.middle")
		assert.False(t, ok)
	})

	t.Run("Path through a non-object is absent", func(t *testing.T) {
		_, ok := rec.Value("member_id.x")
		assert.False(t, ok)
	})

	t.Run("Raw exposes the whole document", func(t *testing.T) {
		raw := rec.Raw()
		assert.Contains(t, raw, "name")
		assert.Equal(t, json.Number("12"), raw["years"])
	})
}

func TestAsString(t *testing.T) {
	t.Run("Strings pass through verbatim", func(t *testing.T) {
		v := AsString("  padded  ")
		require.NotNil(t, v)
		assert.Equal(t, "  padded  ", *v)
	})

	t.Run("Numbers keep their source literal", func(t *testing.T) {
		v := AsString(json.Number("01.50"))
		require.NotNil(t, v)
		assert.Equal(t, "01.50", *v, "no numeric normalization of the literal")
	})

	t.Run("Booleans render in JSON form", func(t *testing.T) {
		v := AsString(true)
		require.NotNil(t, v)
		assert.Equal(t, "true", *v)
	})

	t.Run("Nil stays nil", func(t *testing.T) {
		assert.Nil(t, AsString(nil))
	})

	t.Run("Composites render as compact JSON", func(t *testing.T) {
		v := AsString(map[string]any{"a": "b"})
		require.NotNil(t, v)
		assert.JSONEq(t, `{"a":"b"}`, *v)

		v = AsString([]any{"x", json.Number("2")})
		require.NotNil(t, v)
		assert.Equal(t, `["x",2]`, *v)
	})
}
