// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package percnorm

import (
	"gonum.org/v1/gonum/stat/distuv"
)

var chisquared = distuv.ChiSquared{K: 1}

// presencePvalue returns the p-value of a 2x2 chi-square test of
// independence between presence (feature nonzero) and case status.
// It returns 1 if either margin is empty.
func presencePvalue(present, isCase []bool) float64 {
	// table[p][c]: p = present?, c = case?
	var table [2][2]float64
	for i, c := range isCase {
		p, k := 0, 0
		if present[i] {
			p = 1
		}
		if c {
			k = 1
		}
		table[p][k]++
	}
	n := float64(len(isCase))
	rowsum := [2]float64{table[0][0] + table[0][1], table[1][0] + table[1][1]}
	colsum := [2]float64{table[0][0] + table[1][0], table[0][1] + table[1][1]}
	if rowsum[0] == 0 || rowsum[1] == 0 || colsum[0] == 0 || colsum[1] == 0 {
		return 1
	}
	var sum float64
	for p := 0; p < 2; p++ {
		for k := 0; k < 2; k++ {
			exp := rowsum[p] * colsum[k] / n
			d := table[p][k] - exp
			sum += d * d / exp
		}
	}
	return chisquared.Survival(sum)
}
