// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package norm

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Merge combines per-batch tables into one. Samples are concatenated
// in fragment order; features appear in the order they are first
// seen. Values for features that are missing from a sample's
// fragment are NaN.
func Merge(fragments []*NormalizedTable) (*NormalizedTable, error) {
	if len(fragments) == 0 {
		return nil, errors.New("nothing to merge")
	}
	var features, samples []string
	featureRow := map[string]int{}
	sampleCol := map[string]int{}
	for _, frag := range fragments {
		for _, f := range frag.Features {
			if _, ok := featureRow[f]; !ok {
				featureRow[f] = len(features)
				features = append(features, f)
			}
		}
		for _, s := range frag.Samples {
			if _, dup := sampleCol[s]; dup {
				return nil, fmt.Errorf("sample %q appears in more than one batch", s)
			}
			sampleCol[s] = len(samples)
			samples = append(samples, s)
		}
	}
	if len(features) == 0 || len(samples) == 0 {
		return nil, errors.New("nothing to merge: no features or no samples")
	}

	out := mat.NewDense(len(features), len(samples), nil)
	for i := range features {
		row := out.RawRowView(i)
		for j := range row {
			row[j] = math.NaN()
		}
	}
	for _, frag := range fragments {
		for fi, f := range frag.Features {
			dst := out.RawRowView(featureRow[f])
			for si, s := range frag.Samples {
				dst[sampleCol[s]] = frag.Data.At(fi, si)
			}
		}
	}
	return &NormalizedTable{
		Features: features,
		Samples:  samples,
		Data:     out,
	}, nil
}
