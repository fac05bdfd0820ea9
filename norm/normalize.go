// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package norm percentile-normalizes case/control abundance tables.
//
// Within each batch, features that are too sparse are dropped, zeros
// are replaced with small random values, and every control and case
// sample is converted to the percentile of its value in the batch's
// control distribution. The per-batch results are then merged.
package norm

import (
	"context"
	"errors"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

// Options control Normalize.
type Options struct {
	// Minimum number of controls required in every batch.
	NControlThresh int
	// A feature is kept in a batch only if it is nonzero in at
	// least this fraction of the batch's controls or of its
	// cases. 0 disables filtering.
	OTUThresh float64
	// Master random source used to seed per-batch sources. If
	// nil, a clock-seeded source is used.
	Rand rand.Source
	// Maximum number of batches to process concurrently.
	Threads int
	// Log and skip batches that cannot be normalized, instead
	// of failing the whole request.
	SkipInvalidBatches bool
}

// DefaultOptions returns the recommended parameters.
func DefaultOptions() Options {
	return Options{
		NControlThresh: 10,
		OTUThresh:      0.3,
		Threads:        1,
	}
}

func (opts Options) validate() error {
	if opts.NControlThresh <= 0 {
		return &InvalidParameterError{Param: "n_control_thresh", Value: opts.NControlThresh, Want: "a positive integer"}
	}
	if !(opts.OTUThresh >= 0 && opts.OTUThresh <= 1) {
		return &InvalidParameterError{Param: "otu_thresh", Value: opts.OTUThresh, Want: "between 0 and 1"}
	}
	return nil
}

// Normalize converts the control and case samples in table to
// percentiles of the control distribution, separately within each
// batch (or within a single batch if batches is nil), and merges the
// results.
func Normalize(ctx context.Context, table *FeatureTable, labels, batches LabelSource, opts Options) (*NormalizedTable, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	groups := resolveGroups(table.Samples, labels, batches)

	src := opts.Rand
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		log.WithField("seed", seed).Info("seeding random source from clock")
		src = rand.NewSource(seed)
	}
	// Each batch gets its own source, seeded in batch order, so
	// the output doesn't depend on Threads.
	seeds := make([]uint64, len(groups))
	for i := range seeds {
		seeds[i] = src.Uint64()
	}

	errs := make([]error, len(groups))
	for i, g := range groups {
		errs[i] = g.Validate(opts.NControlThresh)
		if errs[i] != nil && !opts.SkipInvalidBatches {
			return nil, errs[i]
		}
	}

	fragments := make([]*NormalizedTable, len(groups))
	th := throttle{Max: opts.Threads}
	for i, g := range groups {
		if errs[i] != nil {
			continue
		}
		if th.Err() != nil {
			break
		}
		i, g := i, g
		th.Acquire()
		go func() {
			defer th.Release()
			if err := ctx.Err(); err != nil {
				th.Report(err)
				return
			}
			fragments[i], errs[i] = normalizeBatch(ctx, table, g, opts.OTUThresh, rand.NewSource(seeds[i]))
		}()
	}
	if err := th.Wait(); err != nil {
		return nil, err
	}

	var keep []*NormalizedTable
	var firstErr error
	for i, g := range groups {
		if errs[i] == nil {
			keep = append(keep, fragments[i])
			continue
		}
		if firstErr == nil {
			firstErr = errs[i]
		}
		if !opts.SkipInvalidBatches || !isBatchError(errs[i]) {
			return nil, errs[i]
		}
		log.WithField("batch", g.Name()).Warnf("skipping batch: %s", errs[i])
	}
	if len(keep) == 0 {
		return nil, firstErr
	}
	return Merge(keep)
}

func isBatchError(err error) bool {
	var ice *InsufficientControlsError
	var ege *EmptyGroupError
	var dde *DegenerateDistributionError
	return errors.As(err, &ice) || errors.As(err, &ege) || errors.As(err, &dde)
}

func normalizeBatch(ctx context.Context, table *FeatureTable, g Group, otuThresh float64, src rand.Source) (*NormalizedTable, error) {
	samples := append(append([]string(nil), g.Controls...), g.Cases...)
	rows := make([]int, len(samples))
	for i, s := range samples {
		rows[i] = table.Row(s)
	}
	controlRows := make([]int, len(g.Controls))
	for i := range controlRows {
		controlRows[i] = i
	}
	caseRows := make([]int, len(g.Cases))
	for i := range caseRows {
		caseRows[i] = len(g.Controls) + i
	}
	scoredRows := make([]int, len(samples))
	for i := range scoredRows {
		scoredRows[i] = i
	}

	allCols := make([]int, len(table.Features))
	for j := range allCols {
		allCols[j] = j
	}
	keep := FilterPrevalence(table.subset(rows, allCols), controlRows, caseRows, otuThresh)
	log.WithFields(log.Fields{
		"batch":    g.Name(),
		"kept":     len(keep),
		"features": len(table.Features),
	}).Info("prevalence filter done")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := table.subset(rows, keep)
	minNonzero, ok := MinNonzero(m)
	if !ok {
		return nil, &DegenerateDistributionError{Batch: g.Name(), Features: len(keep)}
	}
	zeroVal := minNonzero / 10
	if !canImpute(zeroVal) && hasZero(m) {
		return nil, &DegenerateDistributionError{Batch: g.Name(), Features: len(keep), MinNonzero: minNonzero}
	}
	if err := ImputeZeros(m, zeroVal, src); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pct := ScorePercentiles(m, controlRows, scoredRows)
	features := make([]string, len(keep))
	for i, j := range keep {
		features[i] = table.Features[j]
	}
	return &NormalizedTable{
		Features: features,
		Samples:  samples,
		Data:     pct,
	}, nil
}

// IsUndefined reports whether v marks a feature that was filtered
// out of a sample's batch.
func IsUndefined(v float64) bool {
	return math.IsNaN(v)
}
