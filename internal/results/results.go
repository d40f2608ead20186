// SPDX-License-Identifier: MIT

// Package results persists finished experiment runs and per-user progress.
package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ExperimentType names the experiment a result belongs to.
type ExperimentType string

const (
	WaveGenerator ExperimentType = "waveGenerator"
	SoundAnalysis ExperimentType = "soundAnalysis"
	DopplerEffect ExperimentType = "dopplerEffect"
)

// ExperimentTypes lists every known experiment in display order.
var ExperimentTypes = []ExperimentType{WaveGenerator, SoundAnalysis, DopplerEffect}

// ErrUnknownExperiment is wrapped by SaveError for an unrecognised type.
var ErrUnknownExperiment = errors.New("unknown experiment type")

// ParseExperimentType accepts the canonical name or a short alias.
func ParseExperimentType(name string) (ExperimentType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "wavegenerator", "wave":
		return WaveGenerator, nil
	case "soundanalysis", "analysis", "analyze":
		return SoundAnalysis, nil
	case "dopplereffect", "doppler":
		return DopplerEffect, nil
	default:
		return "", fmt.Errorf("%w: '%s'", ErrUnknownExperiment, name)
	}
}

// Valid reports whether t is one of ExperimentTypes.
func (t ExperimentType) Valid() bool {
	for _, known := range ExperimentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Result is one saved experiment run.
type Result struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	ExperimentType ExperimentType  `json:"experiment_type"`
	Data           json.RawMessage `json:"data"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Progress counts saved runs per experiment type for one user.
type Progress struct {
	Counts      map[ExperimentType]int `json:"counts"`
	Total       int                    `json:"total_experiments"`
	LastUpdated time.Time              `json:"last_updated"`
}

// Count returns the number of saved runs of type t.
func (p Progress) Count(t ExperimentType) int { return p.Counts[t] }

// Store is the persistence collaborator used by experiment sessions.
type Store interface {
	// SaveExperimentResult stores data and returns the new result id. Any
	// failure is reported as *SaveError.
	SaveExperimentResult(ctx context.Context, userID string, experimentType ExperimentType, data any) (string, error)

	// UserResults returns a user's results, newest first.
	UserResults(ctx context.Context, userID string) ([]Result, error)

	// Progress returns a user's counters. Unknown users get zero counts.
	Progress(ctx context.Context, userID string) (Progress, error)
}

// SaveError reports a failed SaveExperimentResult.
type SaveError struct {
	UserID         string
	ExperimentType ExperimentType
	Err            error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %s result for user '%s': %v", e.ExperimentType, e.UserID, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Identity supplies the user id results are saved under.
type Identity interface {
	CurrentUserID() string
}

// StaticIdentity is a fixed user id, taken from config or the command line.
type StaticIdentity string

// CurrentUserID returns the id, or "anonymous" when empty.
func (s StaticIdentity) CurrentUserID() string {
	if strings.TrimSpace(string(s)) == "" {
		return "anonymous"
	}
	return string(s)
}
