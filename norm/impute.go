// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package norm

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinNonzero returns the smallest nonzero value in m. ok is false if
// m is nil or has no nonzero values.
func MinNonzero(m *mat.Dense) (min float64, ok bool) {
	if m == nil {
		return 0, false
	}
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		for _, v := range m.RawRowView(i) {
			if v != 0 && (!ok || v < min) {
				min, ok = v, true
			}
		}
	}
	return
}

// hasZero reports whether m has any zero entries.
func hasZero(m *mat.Dense) bool {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		for _, v := range m.RawRowView(i) {
			if v == 0 {
				return true
			}
		}
	}
	return false
}

// canImpute reports whether the open interval (0, zeroVal) contains
// at least one float64.
func canImpute(zeroVal float64) bool {
	return math.Nextafter(0, 1) < zeroVal
}

// ImputeZeros replaces each zero in m with an independent draw from
// the open interval (0, zeroVal). Entries are visited in row-major
// order, so the result depends only on m and the state of src. It
// returns an error, without drawing anything, if m has zeros and the
// interval is empty.
func ImputeZeros(m *mat.Dense, zeroVal float64, src rand.Source) error {
	if !canImpute(zeroVal) {
		if hasZero(m) {
			return fmt.Errorf("cannot impute zeros: interval (0, %v) is empty", zeroVal)
		}
		return nil
	}
	u := distuv.Uniform{Min: 0, Max: zeroVal, Src: src}
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		row := m.RawRowView(i)
		for j, v := range row {
			if v != 0 {
				continue
			}
			x := u.Rand()
			for x <= 0 || x >= zeroVal {
				x = u.Rand()
			}
			row[j] = x
		}
	}
	return nil
}
