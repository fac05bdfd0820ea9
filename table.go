// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package percnorm

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/arvados/percnorm/norm"
	"gonum.org/v1/gonum/mat"
)

var nan = math.NaN()

// matrixTSV is a tab-separated matrix with a header row of column
// ids and one row id at the start of each line.
type matrixTSV struct {
	rowIDs []string
	colIDs []string
	data   []float64 // row-major
}

// readMatrixTSV parses a tsv matrix. Leading lines that start with
// "# " (e.g., "# Constructed from biom file") are skipped. The first
// cell of the header row is ignored.
func readMatrixTSV(r io.Reader) (*matrixTSV, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m := &matrixTSV{}
	header := true
	lineNum := 0
	for _, line := range bytes.Split(buf, []byte{'\n'}) {
		lineNum++
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(line) == 0 {
			continue
		}
		if header && bytes.HasPrefix(line, []byte("# ")) {
			continue
		}
		split := strings.Split(string(line), "\t")
		if header {
			if len(split) < 2 {
				return nil, fmt.Errorf("line %d: header has no columns: %q", lineNum, line)
			}
			m.colIDs = split[1:]
			header = false
			continue
		}
		if len(split) != len(m.colIDs)+1 {
			return nil, fmt.Errorf("line %d: %d fields, expected %d", lineNum, len(split), len(m.colIDs)+1)
		}
		m.rowIDs = append(m.rowIDs, split[0])
		for _, s := range split[1:] {
			s = strings.TrimSpace(s)
			var v float64
			if s != "" {
				v, err = strconv.ParseFloat(s, 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNum, err)
				}
			} else {
				v = nan
			}
			m.data = append(m.data, v)
		}
	}
	if header {
		return nil, fmt.Errorf("no header row")
	}
	if len(m.rowIDs) == 0 {
		return nil, fmt.Errorf("no data rows")
	}
	return m, nil
}

func (m *matrixTSV) dense() *mat.Dense {
	return mat.NewDense(len(m.rowIDs), len(m.colIDs), m.data)
}

// readFeatureTable reads an abundance table. By default each line
// is a sample and each column a feature; if featuresInRows is true,
// each line is a feature (the usual OTU table layout).
func readFeatureTable(r io.Reader, featuresInRows bool) (*norm.FeatureTable, error) {
	m, err := readMatrixTSV(r)
	if err != nil {
		return nil, err
	}
	if !featuresInRows {
		return norm.NewFeatureTable(m.rowIDs, m.colIDs, m.dense())
	}
	data := mat.DenseCopyOf(m.dense().T())
	return norm.NewFeatureTable(m.colIDs, m.rowIDs, data)
}

// writeNormalizedTable writes one line per feature and one column
// per sample. Undefined values are written as NaN.
func writeNormalizedTable(w io.Writer, t *norm.NormalizedTable) error {
	bufw := bufio.NewWriter(w)
	fmt.Fprintf(bufw, "#OTU ID\t%s\n", strings.Join(t.Samples, "\t"))
	for i, feature := range t.Features {
		bufw.WriteString(feature)
		for _, v := range t.Data.RawRowView(i) {
			bufw.WriteByte('\t')
			bufw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		bufw.WriteByte('\n')
	}
	return bufw.Flush()
}

// readNormalizedTable reads the output of writeNormalizedTable.
func readNormalizedTable(r io.Reader) (*norm.NormalizedTable, error) {
	m, err := readMatrixTSV(r)
	if err != nil {
		return nil, err
	}
	for _, v := range m.data {
		if !norm.IsUndefined(v) && (v < 0 || v > 100) {
			return nil, fmt.Errorf("value %v out of range: not a normalized table?", v)
		}
	}
	return &norm.NormalizedTable{
		Features: m.rowIDs,
		Samples:  m.colIDs,
		Data:     m.dense(),
	}, nil
}

// csvQuote quotes s for use as a csv field, if needed.
func csvQuote(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
