// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package norm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// FeatureTable is an abundance matrix with one row per sample and
// one column per feature.
type FeatureTable struct {
	Samples  []string
	Features []string
	Data     *mat.Dense

	sampleIndex map[string]int
}

// NewFeatureTable returns a FeatureTable after checking that ids are
// unique, the matrix shape matches the ids, and every value is a
// finite non-negative number.
func NewFeatureTable(samples, features []string, data *mat.Dense) (*FeatureTable, error) {
	if data == nil || len(samples) == 0 || len(features) == 0 {
		return nil, fmt.Errorf("empty table (%d samples, %d features)", len(samples), len(features))
	}
	rows, cols := data.Dims()
	if rows != len(samples) || cols != len(features) {
		return nil, fmt.Errorf("table shape %dx%d does not match %d samples x %d features", rows, cols, len(samples), len(features))
	}
	sampleIndex, err := indexIDs("sample", samples)
	if err != nil {
		return nil, err
	}
	if _, err := indexIDs("feature", features); err != nil {
		return nil, err
	}
	for i := 0; i < rows; i++ {
		for j, v := range data.RawRowView(i) {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("invalid value %v for sample %q feature %q: values must be finite and non-negative", v, samples[i], features[j])
			}
		}
	}
	return &FeatureTable{
		Samples:     samples,
		Features:    features,
		Data:        data,
		sampleIndex: sampleIndex,
	}, nil
}

func indexIDs(what string, ids []string) (map[string]int, error) {
	idx := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, dup := idx[id]; dup {
			return nil, fmt.Errorf("duplicate %s id %q", what, id)
		}
		idx[id] = i
	}
	return idx, nil
}

// Row returns the row index of the given sample, or -1.
func (t *FeatureTable) Row(sample string) int {
	if t.sampleIndex == nil {
		t.sampleIndex, _ = indexIDs("sample", t.Samples)
	}
	if i, ok := t.sampleIndex[sample]; ok {
		return i
	}
	return -1
}

// subset copies the given rows and columns into a new dense matrix.
func (t *FeatureTable) subset(rows, cols []int) *mat.Dense {
	if len(rows) == 0 || len(cols) == 0 {
		return nil
	}
	out := mat.NewDense(len(rows), len(cols), nil)
	for i, row := range rows {
		src := t.Data.RawRowView(row)
		dst := out.RawRowView(i)
		for j, col := range cols {
			dst[j] = src[col]
		}
	}
	return out
}

// NormalizedTable holds percentiles with one row per feature and one
// column per sample. Feature/sample combinations that were not
// normalized (because the feature was filtered out of the sample's
// batch) are NaN.
type NormalizedTable struct {
	Features []string
	Samples  []string
	Data     *mat.Dense
}

// Value returns the percentile for the given feature and sample. ok
// is false if either id is unknown or the value is undefined.
func (t *NormalizedTable) Value(feature, sample string) (v float64, ok bool) {
	i, j := indexOf(t.Features, feature), indexOf(t.Samples, sample)
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	v = t.Data.At(i, j)
	return v, !math.IsNaN(v)
}

func indexOf(ids []string, id string) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}
