// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package percnorm

import (
	"io"
	"log"
	"math"

	"github.com/kshedden/statmodel/glm"
	"github.com/kshedden/statmodel/statmodel"
	"gonum.org/v1/gonum/stat"
)

var glmConfig = &glm.Config{
	Family:    glm.NewFamily(glm.BinomialFamily),
	FitMethod: "IRLS",
	Log:       log.New(io.Discard, "", 0),
}

func standardize(a []float64) bool {
	mean, std := stat.MeanStdDev(a, nil)
	if std == 0 || math.IsNaN(std) {
		return false
	}
	for i, x := range a {
		a[i] = (x - mean) / std
	}
	return true
}

// glmPvalue returns the likelihood-ratio p-value for adding x as a
// predictor to an intercept-only logistic regression of isCase. It
// returns NaN if x is constant or the fit fails.
func glmPvalue(isCase []bool, x []float64) (p float64) {
	defer func() {
		if recover() != nil {
			// typically "matrix singular or near-singular with condition number +Inf"
			p = math.NaN()
		}
	}()

	predictor := append([]statmodel.Dtype(nil), x...)
	if !standardize(predictor) {
		return math.NaN()
	}
	outcome := make([]statmodel.Dtype, len(isCase))
	constants := make([]statmodel.Dtype, len(isCase))
	for i, c := range isCase {
		if c {
			outcome[i] = 1
		}
		constants[i] = 1
	}

	logLike := func(data [][]statmodel.Dtype, names []string) (float64, bool) {
		model, err := glm.NewGLM(statmodel.NewDataset(data, names), "outcome", names[1:], glmConfig)
		if err != nil {
			return 0, false
		}
		return model.Fit().LogLike(), true
	}
	logNull, ok := logLike([][]statmodel.Dtype{outcome, constants}, []string{"outcome", "constants"})
	if !ok {
		return math.NaN()
	}
	logFull, ok := logLike([][]statmodel.Dtype{outcome, constants, predictor}, []string{"outcome", "constants", "percentile"})
	if !ok {
		return math.NaN()
	}
	return chisquared.Survival(-2 * (logNull - logFull))
}
