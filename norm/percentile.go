// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package norm

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ScorePercentiles converts each column of m to percentiles of the
// distribution of that column in controlRows. The returned matrix
// has one row per column of m and one column per entry of
// scoredRows.
//
// Ties get the mean rank: a value equal to every control scores 50.
func ScorePercentiles(m mat.Matrix, controlRows, scoredRows []int) *mat.Dense {
	_, cols := m.Dims()
	out := mat.NewDense(cols, len(scoredRows), nil)
	ref := make([]float64, len(controlRows))
	for j := 0; j < cols; j++ {
		for k, i := range controlRows {
			ref[k] = m.At(i, j)
		}
		sort.Float64s(ref)
		dst := out.RawRowView(j)
		for k, i := range scoredRows {
			dst[k] = percentileOfScore(ref, m.At(i, j))
		}
	}
	return out
}

// percentileOfScore returns the mean-rank percentile of v in the
// sorted slice ref.
func percentileOfScore(ref []float64, v float64) float64 {
	less := sort.SearchFloat64s(ref, v)
	lessEqual := less + sort.Search(len(ref)-less, func(i int) bool { return ref[less+i] > v })
	return 100 * (float64(less) + 0.5*float64(lessEqual-less)) / float64(len(ref))
}
