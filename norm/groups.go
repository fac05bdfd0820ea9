// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package norm

import (
	log "github.com/sirupsen/logrus"
)

// Group is the set of control and case samples belonging to one
// batch.
type Group struct {
	Batch    string // batch value, empty if unbatched
	Batched  bool
	Controls []string
	Cases    []string
}

// Name returns the batch value, or DefaultBatch for the implicit
// single batch.
func (g Group) Name() string {
	if !g.Batched {
		return DefaultBatch
	}
	return g.Batch
}

// Validate checks the group has at least nControlThresh controls and
// at least one case.
func (g Group) Validate(nControlThresh int) error {
	if len(g.Controls) < nControlThresh {
		return &InsufficientControlsError{Batch: g.Name(), Controls: len(g.Controls), Threshold: nControlThresh}
	}
	if len(g.Cases) == 0 {
		return &EmptyGroupError{Batch: g.Name(), Group: Case}
	}
	return nil
}

// ResolveGroups partitions the given samples into batches and splits
// each batch into controls and cases. Samples with a missing label,
// or a missing batch value when batches is not nil, are excluded.
// Batches are returned in the order they first appear in samples.
//
// An error is returned if any batch fails Validate.
func ResolveGroups(samples []string, labels, batches LabelSource, nControlThresh int) ([]Group, error) {
	if nControlThresh <= 0 {
		return nil, &InvalidParameterError{Param: "n_control_thresh", Value: nControlThresh, Want: "a positive integer"}
	}
	groups := resolveGroups(samples, labels, batches)
	for _, g := range groups {
		if err := g.Validate(nControlThresh); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func resolveGroups(samples []string, labels, batches LabelSource) []Group {
	labelOf := labels.RestrictTo(samples).DropMissing().AsMap()
	var batchOf map[string]string
	if batches != nil {
		batchOf = batches.RestrictTo(samples).DropMissing().AsMap()
	}

	var groups []Group
	groupIdx := map[string]int{}
	var missingLabel, missingBatch, unrecognized int
	for _, sample := range samples {
		label, ok := labelOf[sample]
		if !ok {
			missingLabel++
			continue
		}
		batch := ""
		if batches != nil {
			batch, ok = batchOf[sample]
			if !ok {
				missingBatch++
				continue
			}
		}
		gi, ok := groupIdx[batch]
		if !ok {
			gi = len(groups)
			groupIdx[batch] = gi
			groups = append(groups, Group{Batch: batch, Batched: batches != nil})
		}
		switch label {
		case Control:
			groups[gi].Controls = append(groups[gi].Controls, sample)
		case Case:
			groups[gi].Cases = append(groups[gi].Cases, sample)
		default:
			unrecognized++
		}
	}
	if len(groups) == 0 {
		// Nothing labeled at all: report it as an empty default
		// batch so Validate fails on the control count.
		groups = append(groups, Group{})
	}
	if unrecognized > 0 {
		log.WithField("samples", unrecognized).Warnf("ignoring samples whose label is neither %q nor %q", Case, Control)
	}
	if missingLabel > 0 || missingBatch > 0 {
		log.WithFields(log.Fields{
			"missingLabel": missingLabel,
			"missingBatch": missingBatch,
		}).Info("ignoring samples with missing metadata")
	}
	for _, g := range groups {
		log.WithFields(log.Fields{
			"batch":    g.Name(),
			"controls": len(g.Controls),
			"cases":    len(g.Cases),
		}).Debug("resolved batch")
	}
	return groups
}
