// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package percnorm

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/arvados/percnorm/norm"
	log "github.com/sirupsen/logrus"
)

// pvaluecmd tests each feature of a normalized table for association
// with case status, using logistic regression on the pooled
// percentiles.
type pvaluecmd struct{}

func (cmd *pvaluecmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	err := cmd.run(prog, args, stdin, stdout, stderr)
	if err == errUsage {
		return 2
	} else if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	return 0
}

func (cmd *pvaluecmd) run(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "normalized table `file` (output of normalize)")
	metadataFilename := flags.String("metadata", "", "sample metadata tsv `file`")
	labelColumn := flags.String("label-column", "", "metadata `column` labeling samples as \"case\" or \"control\"")
	outputFilename := flags.String("o", "-", "output csv `file`")
	err := flags.Parse(args)
	if err == flag.ErrHelp {
		return nil
	} else if err != nil {
		return errUsage
	} else if flags.NArg() > 0 {
		return fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
	} else if *metadataFilename == "" || *labelColumn == "" {
		return fmt.Errorf("must provide -metadata and -label-column")
	}

	md, err := loadSampleMetadataFile(*metadataFilename)
	if err != nil {
		return err
	}
	labels, err := md.Column(*labelColumn)
	if err != nil {
		return err
	}
	normalized, err := readNormalizedTableFile(*inputFilename, stdin)
	if err != nil {
		return err
	}

	output, err := zcreate(*outputFilename, stdout)
	if err != nil {
		return err
	}
	defer output.Close()
	bufw := bufio.NewWriter(output)
	err = writePvalues(bufw, normalized, labels)
	if err != nil {
		return fmt.Errorf("write %s: %w", *outputFilename, err)
	}
	err = bufw.Flush()
	if err != nil {
		return fmt.Errorf("write %s: %w", *outputFilename, err)
	}
	return output.Close()
}

func writePvalues(w io.Writer, t *norm.NormalizedTable, labels norm.LabelSource) error {
	labelOf := labels.RestrictTo(t.Samples).DropMissing().AsMap()
	_, err := fmt.Fprint(w, "Feature,Controls,Cases,PValue\n")
	if err != nil {
		return err
	}
	for i, feature := range t.Features {
		var x []float64
		var isCase []bool
		ncases := 0
		for j, sample := range t.Samples {
			v := t.Data.At(i, j)
			if norm.IsUndefined(v) {
				continue
			}
			switch labelOf[sample] {
			case norm.Case:
				isCase = append(isCase, true)
				ncases++
			case norm.Control:
				isCase = append(isCase, false)
			default:
				continue
			}
			x = append(x, v)
		}
		p := nan
		if ncases > 0 && ncases < len(isCase) {
			p = glmPvalue(isCase, x)
		}
		log.WithFields(log.Fields{
			"feature": feature,
			"p":       p,
		}).Debug("pvalue")
		_, err = fmt.Fprintf(w, "%s,%d,%d,%s\n", csvQuote(feature), len(isCase)-ncases, ncases, strconv.FormatFloat(p, 'g', 6, 64))
		if err != nil {
			return err
		}
	}
	return nil
}

func readNormalizedTableFile(fnm string, stdin io.Reader) (*norm.NormalizedTable, error) {
	var input io.ReadCloser
	if fnm == "-" {
		input = io.NopCloser(stdin)
	} else {
		var err error
		input, err = zopen(fnm)
		if err != nil {
			return nil, err
		}
	}
	defer input.Close()
	t, err := readNormalizedTable(input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fnm, err)
	}
	return t, nil
}
