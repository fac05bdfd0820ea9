// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package norm

// Recognized label values.
const (
	Control = "control"
	Case    = "case"
)

// LabelSource is a per-sample metadata column. A missing value is
// represented as an empty string.
type LabelSource interface {
	// RestrictTo returns a copy containing only the given ids.
	RestrictTo(ids []string) LabelSource
	// DropMissing returns a copy without missing values.
	DropMissing() LabelSource
	// AsMap returns sample id => value.
	AsMap() map[string]string
}

// Column is a LabelSource backed by a map.
type Column map[string]string

func (col Column) RestrictTo(ids []string) LabelSource {
	out := make(Column, len(ids))
	for _, id := range ids {
		if v, ok := col[id]; ok {
			out[id] = v
		}
	}
	return out
}

func (col Column) DropMissing() LabelSource {
	out := make(Column, len(col))
	for id, v := range col {
		if v != "" {
			out[id] = v
		}
	}
	return out
}

func (col Column) AsMap() map[string]string {
	out := make(map[string]string, len(col))
	for id, v := range col {
		out[id] = v
	}
	return out
}
