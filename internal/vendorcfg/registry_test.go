package vendorcfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/eligibility/internal/source"
)

func specFor(vendor string) *Spec {
	return &Spec{SourceVendor: vendor, File: vendor + ".csv", Format: source.FormatCSV}
}

func TestRegistry(t *testing.T) {
	t.Run("Add and Get round-trip", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Add(specFor("vision_first")))

		spec, ok := r.Get("vision_first")
		require.True(t, ok)
		assert.Equal(t, "vision_first.csv", spec.File)

		_, ok = r.Get("unknown")
		assert.False(t, ok)
	})

	t.Run("Duplicate vendor is rejected", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Add(specFor("dental_plus")))
		err := r.Add(specFor("dental_plus"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
		assert.Equal(t, 1, r.Len())
	})

	t.Run("Empty vendor name is rejected", func(t *testing.T) {
		r := NewRegistry()
		require.Error(t, r.Add(&Spec{File: "x.csv", Format: source.FormatCSV}))
	})

	t.Run("Vendors and Specs are sorted by name", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Add(specFor("vision_first")))
		require.NoError(t, r.Add(specFor("dental_plus")))
		require.NoError(t, r.Add(specFor("medical_provider_a")))

		assert.Equal(t, []string{"dental_plus", "medical_provider_a", "vision_first"}, r.Vendors())

		specs := r.Specs()
		require.Len(t, specs, 3)
		assert.Equal(t, "dental_plus", specs[0].SourceVendor)
		assert.Equal(t, "vision_first", specs[2].SourceVendor)
	})
}

func TestLoadDir(t *testing.T) {
	t.Run("Loads every YAML spec in the directory", func(t *testing.T) {
		dir := t.TempDir()
		writeSpecFile(t, dir, "a.yaml", "source_vendor: vendor_a\nfile: a.csv\nformat: csv\n")
		writeSpecFile(t, dir, "b.yml", "source_vendor: vendor_b\nfile: b.jsonl\nformat: jsonl\n")
		writeSpecFile(t, dir, "notes.txt", "not a spec")

		registry, err := LoadDir(dir)
		require.NoError(t, err)
		assert.Equal(t, 2, registry.Len())
		assert.Equal(t, []string{"vendor_a", "vendor_b"}, registry.Vendors())
	})

	t.Run("Invalid spec fails the whole load", func(t *testing.T) {
		dir := t.TempDir()
		writeSpecFile(t, dir, "a.yaml", "source_vendor: vendor_a\nfile: a.csv\nformat: csv\n")
		writeSpecFile(t, dir, "bad.yaml", "source_vendor: vendor_bad\nfile: bad.csv\nformat: parquet\n")

		_, err := LoadDir(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parquet")
	})

	t.Run("Directory without specs is an error", func(t *testing.T) {
		_, err := LoadDir(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no vendor specs")
	})

	t.Run("Missing directory is an error", func(t *testing.T) {
		_, err := LoadDir("/definitely/not/a/dir")
		require.Error(t, err)
	})

	t.Run("Ships with the bundled vendor specs", func(t *testing.T) {
		registry, err := LoadDir("../../mappings/vendors")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, registry.Len(), 5)

		spec, ok := registry.Get("medical_provider_c")
		require.True(t, ok)
		assert.Equal(t, source.FormatJSONL, spec.Format)
	})
}
