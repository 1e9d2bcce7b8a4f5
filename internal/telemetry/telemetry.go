// Package telemetry records the coordinator's rolling diagnostics (spec
// §4.L "rolling window counters track passed/failed hash checks", §4.M
// field-level drift reports) to CSV, the same structured-output pattern
// used elsewhere in this codebase: one record per sample, streamed to a
// file as soon as it's observed.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"
)

// HashCheckRecord is one rolling-window sample of desync detection
// outcomes (spec §4.L).
type HashCheckRecord struct {
	Frame    int32   `csv:"frame"`
	Passed   int     `csv:"passed"`
	Total    int     `csv:"total"`
	PassRate float64 `csv:"pass_rate"`
}

// DriftRecord is one field-level drift sample against an authoritative
// snapshot (spec §4.M).
type DriftRecord struct {
	Frame          int32   `csv:"frame"`
	MatchingFields int     `csv:"matching_fields"`
	TotalFields    int     `csv:"total_fields"`
	DriftedCount   int     `csv:"drifted_count"`
	MatchRate      float64 `csv:"match_rate"`
}

// Recorder streams hash-check and drift samples to CSV files under dir.
// A nil Recorder (as returned when dir is empty) makes every method a
// no-op, so callers don't need to guard every call site.
type Recorder struct {
	dir            string
	hashFile       *os.File
	driftFile      *os.File
	hashHeaderDone bool
	driftHeaderDone bool
}

// NewRecorder creates a Recorder writing into dir. Returns nil, nil if
// dir is empty (telemetry disabled).
func NewRecorder(dir string) (*Recorder, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating telemetry output directory: %w", err)
	}

	r := &Recorder{dir: dir}

	hashFile, err := os.Create(filepath.Join(dir, "hash_checks.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating hash_checks.csv: %w", err)
	}
	r.hashFile = hashFile

	driftFile, err := os.Create(filepath.Join(dir, "drift.csv"))
	if err != nil {
		hashFile.Close()
		return nil, fmt.Errorf("creating drift.csv: %w", err)
	}
	r.driftFile = driftFile

	return r, nil
}

// RecordHashCheck appends one hash-check window sample.
func (r *Recorder) RecordHashCheck(frame int32, passed, total int) error {
	if r == nil {
		return nil
	}
	rate := 0.0
	if total > 0 {
		rate = float64(passed) / float64(total)
	}
	records := []HashCheckRecord{{Frame: frame, Passed: passed, Total: total, PassRate: rate}}
	if !r.hashHeaderDone {
		r.hashHeaderDone = true
		return gocsv.Marshal(records, r.hashFile)
	}
	return gocsv.MarshalWithoutHeaders(records, r.hashFile)
}

// RecordDrift appends one field-drift sample.
func (r *Recorder) RecordDrift(frame int32, matching, total, drifted int) error {
	if r == nil {
		return nil
	}
	rate := 0.0
	if total > 0 {
		rate = float64(matching) / float64(total)
	}
	records := []DriftRecord{{Frame: frame, MatchingFields: matching, TotalFields: total, DriftedCount: drifted, MatchRate: rate}}
	if !r.driftHeaderDone {
		r.driftHeaderDone = true
		return gocsv.Marshal(records, r.driftFile)
	}
	return gocsv.MarshalWithoutHeaders(records, r.driftFile)
}

// Close flushes and closes the underlying files.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	err1 := r.hashFile.Close()
	err2 := r.driftFile.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Percentiles computes p10/p50/p90 of samples using gonum's empirical
// quantile estimator, used by cmd/simrun to summarize a run's per-tick
// wall-clock durations. samples is sorted in place.
func Percentiles(samples []float64) (p10, p50, p90 float64) {
	if len(samples) == 0 {
		return 0, 0, 0
	}
	sort.Float64s(samples)
	p10 = stat.Quantile(0.10, stat.Empirical, samples, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, samples, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, samples, nil)
	return p10, p50, p90
}
