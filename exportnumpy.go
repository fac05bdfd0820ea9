// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package percnorm

import (
	"bufio"
	"fmt"

	"github.com/kshedden/gonpy"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// writeNumpyFloat64 writes a rows x cols float64 array to fnm
// ("-" for stdout is not supported: numpy output is always a file).
func writeNumpyFloat64(fnm string, out []float64, rows, cols int) error {
	output, err := zcreate(fnm, nil)
	if err != nil {
		return err
	}
	defer output.Close()
	bufw := bufio.NewWriterSize(output, 1<<22)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"filename": fnm,
		"rows":     rows,
		"cols":     cols,
		"bytes":    rows * cols * 8,
	}).Infof("writing numpy: %s", fnm)
	npw.Shape = []int{rows, cols}
	err = npw.WriteFloat64(out)
	if err != nil {
		return err
	}
	err = bufw.Flush()
	if err != nil {
		return err
	}
	return output.Close()
}

// writeNumpyMatrix writes a gonum matrix in row-major order.
func writeNumpyMatrix(fnm string, m mat.Matrix) error {
	rows, cols := m.Dims()
	out := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return writeNumpyFloat64(fnm, out, rows, cols)
}

// writeLabels writes a csv file mapping numpy row/column indices to
// ids.
func writeLabels(fnm, header string, ids []string) error {
	f, err := zcreate(fnm, nil)
	if err != nil {
		return err
	}
	defer f.Close()
	bufw := bufio.NewWriter(f)
	fmt.Fprintf(bufw, "Index,%s\n", header)
	for i, id := range ids {
		fmt.Fprintf(bufw, "%d,%s\n", i, id)
	}
	err = bufw.Flush()
	if err != nil {
		return fmt.Errorf("write %s: %w", fnm, err)
	}
	return f.Close()
}
