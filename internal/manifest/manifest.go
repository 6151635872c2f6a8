// Package manifest records the input inventory of one staging run: which
// extract files were present, their checksums, sizes, and row counts. The
// manifest exists for reproducibility and debugging; ingestion itself never
// reads it back.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"example.com/eligibility/internal/source"
	"example.com/eligibility/internal/vendorcfg"
)

// Entry statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// FileEntry describes one vendor extract as seen at manifest time.
type FileEntry struct {
	SourceVendor string `json:"source_vendor"`
	SourceFile   string `json:"source_file"`
	RelativePath string `json:"relative_path"`
	SizeBytes    int64  `json:"size_bytes"`
	ModifiedAt   string `json:"modified_time_utc"`
	SHA256       string `json:"sha256"`
	RowCount     int    `json:"row_count_read"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

// Manifest is the input inventory for one staging run.
type Manifest struct {
	LoadRunID   string      `json:"load_run_id"`
	GeneratedAt string      `json:"generated_at_utc"`
	InputDir    string      `json:"input_dir"`
	Files       []FileEntry `json:"files"`
	Checksum    string      `json:"checksum"`
}

// Build inventories every configured vendor extract under inputDir. A file
// that is missing, unreadable, or empty produces a failed entry; the other
// entries are unaffected and the manifest is always returned.
func Build(runID, inputDir string, specs []*vendorcfg.Spec) *Manifest {
	m := &Manifest{
		LoadRunID:   runID,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		InputDir:    inputDir,
		Files:       make([]FileEntry, 0, len(specs)),
	}

	for _, spec := range specs {
		entry := FileEntry{
			SourceVendor: spec.SourceVendor,
			SourceFile:   spec.File,
			RelativePath: filepath.Join(inputDir, spec.File),
		}
		if err := fillEntry(&entry, inputDir, spec); err != nil {
			entry.Status = StatusFailed
			entry.Error = err.Error()
		} else {
			entry.Status = StatusSuccess
		}
		m.Files = append(m.Files, entry)
	}

	m.Checksum = m.computeChecksum()
	return m
}

func fillEntry(entry *FileEntry, inputDir string, spec *vendorcfg.Spec) error {
	path := filepath.Join(inputDir, spec.File)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("missing expected input file: %w", err)
	}
	entry.SizeBytes = info.Size()
	entry.ModifiedAt = info.ModTime().UTC().Format(time.RFC3339)

	checksum, err := fileSHA256(path)
	if err != nil {
		return err
	}
	entry.SHA256 = checksum

	rows, err := countRows(path, spec)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("file has zero data rows: %s", path)
	}
	entry.RowCount = rows
	return nil
}

// countRows counts data rows with the same reader ingestion will use, so
// the manifest count and the ingested count agree for a healthy file.
func countRows(path string, spec *vendorcfg.Spec) (int, error) {
	rd, err := source.Open(path, spec.ReaderOptions())
	if err != nil {
		return 0, err
	}
	defer rd.Close()

	count := 0
	for {
		_, _, err := rd.Next()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return 0, err
		}
		count++
	}
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FailedFiles returns the entries that could not be inventoried.
func (m *Manifest) FailedFiles() []FileEntry {
	var failed []FileEntry
	for _, f := range m.Files {
		if f.Status == StatusFailed {
			failed = append(failed, f)
		}
	}
	return failed
}

// TotalRows sums the row counts of the successful entries.
func (m *Manifest) TotalRows() int {
	total := 0
	for _, f := range m.Files {
		total += f.RowCount
	}
	return total
}

// computeChecksum calculates the SHA256 of the manifest content, excluding
// the checksum field itself.
func (m *Manifest) computeChecksum() string {
	hashContent := struct {
		LoadRunID   string      `json:"load_run_id"`
		GeneratedAt string      `json:"generated_at_utc"`
		InputDir    string      `json:"input_dir"`
		Files       []FileEntry `json:"files"`
	}{
		LoadRunID:   m.LoadRunID,
		GeneratedAt: m.GeneratedAt,
		InputDir:    m.InputDir,
		Files:       m.Files,
	}
	data, _ := json.Marshal(hashContent)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Write persists the manifest under outputDir as
// manifests/manifest_<run>.json and refreshes the staging_manifest_latest
// pointer. Both writes go through a temp file and rename so a crash never
// leaves a torn manifest behind. It returns the per-run manifest path.
func (m *Manifest) Write(outputDir string) (string, error) {
	manifestsDir := filepath.Join(outputDir, "manifests")
	if err := os.MkdirAll(manifestsDir, 0o755); err != nil {
		return "", fmt.Errorf("create manifests dir: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}

	runPath := filepath.Join(manifestsDir, fmt.Sprintf("manifest_%s.json", m.LoadRunID))
	latestPath := filepath.Join(outputDir, "staging_manifest_latest.json")
	for _, path := range []string{runPath, latestPath} {
		if err := writeAtomic(path, data); err != nil {
			return "", err
		}
	}

	log.Printf("Manifest written: %s (%d files, %d rows)", runPath, len(m.Files), m.TotalRows())
	return runPath, nil
}

func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename manifest: %w", err)
	}
	return nil
}

// Load reads a previously written manifest.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}
