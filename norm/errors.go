// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package norm

import "fmt"

// DefaultBatch identifies the single implicit batch used when no
// batch column is given.
const DefaultBatch = "default"

// InsufficientControlsError means a batch has fewer controls than
// the n_control_thresh parameter.
type InsufficientControlsError struct {
	Batch     string
	Controls  int
	Threshold int
}

func (e *InsufficientControlsError) Error() string {
	return fmt.Sprintf("there aren't enough controls in batch %s: %d < n_control_thresh = %d", e.Batch, e.Controls, e.Threshold)
}

// InvalidParameterError means a normalization parameter is out of
// range.
type InvalidParameterError struct {
	Param string
	Value interface{}
	Want  string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s = %v: must be %s", e.Param, e.Value, e.Want)
}

// DegenerateDistributionError means a batch has no nonzero values
// left after filtering, or its smallest nonzero value is too small
// to leave room for imputed values below it.
type DegenerateDistributionError struct {
	Batch      string
	Features   int
	MinNonzero float64
}

func (e *DegenerateDistributionError) Error() string {
	if e.MinNonzero != 0 {
		return fmt.Sprintf("batch %s: smallest nonzero value %v is too small to impute zeros below it", e.Batch, e.MinNonzero)
	}
	if e.Features == 0 {
		return fmt.Sprintf("batch %s: no features passed the prevalence filter", e.Batch)
	}
	return fmt.Sprintf("batch %s: all %d remaining features are zero in every sample", e.Batch, e.Features)
}

// EmptyGroupError means a batch has labeled samples but none of them
// fall in one of the case/control groups.
type EmptyGroupError struct {
	Batch string
	Group string
}

func (e *EmptyGroupError) Error() string {
	return fmt.Sprintf("batch %s: no %s samples", e.Batch, e.Group)
}
