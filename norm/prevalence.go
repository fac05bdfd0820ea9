// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package norm

import (
	"gonum.org/v1/gonum/mat"
)

// Prevalence returns, for each column of m, the fraction of the
// given rows where the value is nonzero. If rows is empty the
// results are NaN.
func Prevalence(m mat.Matrix, rows []int) []float64 {
	_, cols := m.Dims()
	prev := make([]float64, cols)
	for j := range prev {
		nonzero := 0
		for _, i := range rows {
			if m.At(i, j) != 0 {
				nonzero++
			}
		}
		prev[j] = float64(nonzero) / float64(len(rows))
	}
	return prev
}

// FilterPrevalence returns the (ascending) indices of the columns of
// m that are nonzero in at least otuThresh of the control rows or at
// least otuThresh of the case rows. If otuThresh is 0, all columns
// are kept.
func FilterPrevalence(m mat.Matrix, controlRows, caseRows []int, otuThresh float64) []int {
	_, cols := m.Dims()
	keep := make([]int, 0, cols)
	if otuThresh == 0 {
		for j := 0; j < cols; j++ {
			keep = append(keep, j)
		}
		return keep
	}
	ctrls := Prevalence(m, controlRows)
	cases := Prevalence(m, caseRows)
	for j := 0; j < cols; j++ {
		if cases[j] >= otuThresh || ctrls[j] >= otuThresh {
			keep = append(keep, j)
		}
	}
	return keep
}
