// Package storage persists analysis history with pluggable backends.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/models"
)

// FileStore keeps one JSON file per analysis record under <base>/<portfolio>/.
// File names sort chronologically, so listing needs no index.
type FileStore struct {
	basePath string
	limit    int // records kept per portfolio, 0 = unlimited
	logger   *common.Logger
	mu       sync.Mutex
}

var _ interfaces.AnalysisStore = (*FileStore)(nil)

// NewFileStore creates a FileStore rooted at path, creating the directory.
func NewFileStore(logger *common.Logger, path string, limit int) (*FileStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	if limit < 0 {
		limit = 0
	}

	logger.Debug().Str("path", path).Int("limit", limit).Msg("FileStore opened")
	return &FileStore{basePath: path, limit: limit, logger: logger}, nil
}

// sanitizeKey makes a key safe for use as a filename.
// Replaces /, \, : with _ and collapses ".." to "_" to prevent path traversal.
func sanitizeKey(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key)
}

func (fs *FileStore) portfolioDir(portfolio string) string {
	return filepath.Join(fs.basePath, sanitizeKey(portfolio))
}

func recordFileName(r *models.AnalysisRecord) string {
	return fmt.Sprintf("%020d_%s.json", r.CreatedAt.UnixNano(), sanitizeKey(r.ID))
}

func (fs *FileStore) SaveAnalysis(ctx context.Context, record *models.AnalysisRecord) error {
	if record.PortfolioName == "" {
		return fmt.Errorf("analysis record has no portfolio name")
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := fs.portfolioDir(record.PortfolioName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := writeJSON(dir, recordFileName(record), record); err != nil {
		return err
	}

	fs.prune(dir)
	return nil
}

func (fs *FileStore) GetLatest(ctx context.Context, portfolio string) (*models.AnalysisRecord, error) {
	records, err := fs.ListAnalyses(ctx, portfolio, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("analysis for '%s': %w", portfolio, interfaces.ErrNotFound)
	}
	return records[0], nil
}

func (fs *FileStore) ListAnalyses(ctx context.Context, portfolio string, limit int) ([]*models.AnalysisRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := fs.portfolioDir(portfolio)
	names, err := listRecordFiles(dir)
	if err != nil {
		return nil, err
	}

	// Newest first
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	records := make([]*models.AnalysisRecord, 0, len(names))
	for _, name := range names {
		var r models.AnalysisRecord
		if err := readJSON(filepath.Join(dir, name), &r); err != nil {
			fs.logger.Warn().Err(err).Str("file", name).Msg("Skipping unreadable analysis record")
			continue
		}
		records = append(records, &r)
	}
	return records, nil
}

func (fs *FileStore) ListPortfolios(ctx context.Context) ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries, err := os.ReadDir(fs.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", fs.basePath, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		files, err := listRecordFiles(filepath.Join(fs.basePath, e.Name()))
		if err != nil || len(files) == 0 {
			continue
		}
		// Directory names are sanitized; the record carries the real name.
		var r models.AnalysisRecord
		if err := readJSON(filepath.Join(fs.basePath, e.Name(), files[0]), &r); err == nil && r.PortfolioName != "" {
			names = append(names, r.PortfolioName)
		} else {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (fs *FileStore) Close() error {
	return nil
}

// prune removes the oldest records beyond the configured limit. Caller holds mu.
func (fs *FileStore) prune(dir string) {
	if fs.limit == 0 {
		return
	}
	names, err := listRecordFiles(dir)
	if err != nil || len(names) <= fs.limit {
		return
	}
	sort.Strings(names)
	for _, name := range names[:len(names)-fs.limit] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			fs.logger.Warn().Err(err).Str("file", name).Msg("Failed to prune analysis record")
		}
	}
}

// listRecordFiles returns the .json file names in dir, excluding temp files.
func listRecordFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".tmp-") {
			names = append(names, name)
		}
	}
	return names, nil
}

func readJSON(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// writeJSON marshals data to indented JSON and writes it atomically
// (temp file in the same directory, then rename).
func writeJSON(dir, name string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(jsonData); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
