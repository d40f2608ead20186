// SPDX-License-Identifier: MIT
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	applog "vlabsound/internal/log"
)

var logger = applog.Scope("Results")

// JSONStore implements Store using a single JSON file.
type JSONStore struct {
	path     string
	mu       sync.RWMutex
	results  []Result
	progress map[string]*Progress
	now      func() time.Time
}

// storeData is the JSON structure for the store file.
type storeData struct {
	Version   int                  `json:"version"`
	UpdatedAt string               `json:"updated_at"`
	Results   []Result             `json:"results"`
	Progress  map[string]*Progress `json:"progress"`
}

const currentVersion = 1

var _ Store = (*JSONStore)(nil)

// NewJSONStore opens the store at path. The file is created on first save.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{
		path:     path,
		progress: make(map[string]*Progress),
		now:      time.Now,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("failed to load store: %w", err)
		}
	}

	logger.Debugf("Opened %s (%d results)", path, len(s.results))
	return s, nil
}

// Path returns the backing file.
func (s *JSONStore) Path() string { return s.path }

func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var stored storeData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	if stored.Version > currentVersion {
		return fmt.Errorf("unsupported store version %d", stored.Version)
	}

	s.results = stored.Results
	if stored.Progress != nil {
		s.progress = stored.Progress
	}
	return nil
}

// save writes the store to disk. Caller holds mu.
func (s *JSONStore) save() error {
	stored := storeData{
		Version:   currentVersion,
		UpdatedAt: s.now().Format(time.RFC3339),
		Results:   s.results,
		Progress:  s.progress,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	// Write to temp file first, then rename.
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// SaveExperimentResult appends a result and bumps the user's progress. On
// failure the in-memory state is left as it was.
func (s *JSONStore) SaveExperimentResult(ctx context.Context, userID string, experimentType ExperimentType, data any) (string, error) {
	fail := func(err error) (string, error) {
		return "", &SaveError{UserID: userID, ExperimentType: experimentType, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if !experimentType.Valid() {
		return fail(fmt.Errorf("%w: '%s'", ErrUnknownExperiment, experimentType))
	}
	if userID == "" {
		return fail(fmt.Errorf("user id is required"))
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fail(fmt.Errorf("failed to encode result data: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	res := Result{
		ID:             uuid.New().String(),
		UserID:         userID,
		ExperimentType: experimentType,
		Data:           raw,
		CreatedAt:      now,
	}

	prev, had := s.progress[userID]
	next := &Progress{Counts: make(map[ExperimentType]int, len(ExperimentTypes))}
	if had {
		for k, v := range prev.Counts {
			next.Counts[k] = v
		}
		next.Total = prev.Total
	}
	next.Counts[experimentType]++
	next.Total++
	next.LastUpdated = now

	s.results = append(s.results, res)
	s.progress[userID] = next

	if err := s.save(); err != nil {
		s.results = s.results[:len(s.results)-1]
		if had {
			s.progress[userID] = prev
		} else {
			delete(s.progress, userID)
		}
		logger.Errorf("Failed to save %s result: %v", experimentType, err)
		return fail(err)
	}

	logger.Infof("Saved %s result %s for %s", experimentType, res.ID, userID)
	return res.ID, nil
}

// UserResults returns copies of userID's results, newest first.
func (s *JSONStore) UserResults(ctx context.Context, userID string) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Result
	for _, r := range s.results {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Progress returns userID's counters.
func (s *JSONStore) Progress(ctx context.Context, userID string) (Progress, error) {
	if err := ctx.Err(); err != nil {
		return Progress{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Progress{Counts: make(map[ExperimentType]int, len(ExperimentTypes))}
	for _, t := range ExperimentTypes {
		out.Counts[t] = 0
	}
	if p, ok := s.progress[userID]; ok {
		for k, v := range p.Counts {
			out.Counts[k] = v
		}
		out.Total = p.Total
		out.LastUpdated = p.LastUpdated
	}
	return out, nil
}
