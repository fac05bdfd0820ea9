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

// prevalenceReport writes, for each batch and feature, the
// prevalence among controls and cases, whether the feature passes
// the prevalence filter, and a chi-square p-value for association
// between presence and case status.
type prevalenceReport struct {
	otuThresh      float64
	nControlThresh int
}

func (cmd *prevalenceReport) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	err := cmd.run(prog, args, stdin, stdout, stderr)
	if err == errUsage {
		return 2
	} else if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	return 0
}

func (cmd *prevalenceReport) run(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	defaults := norm.DefaultOptions()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input feature table `file` (tsv, optionally gzipped)")
	featuresInRows := flags.Bool("features-in-rows", false, "input table has one feature per line and one sample per column")
	metadataFilename := flags.String("metadata", "", "sample metadata tsv `file`")
	labelColumn := flags.String("label-column", "", "metadata `column` labeling samples as \"case\" or \"control\"")
	batchColumn := flags.String("batch-column", "", "metadata `column` identifying batches (default: one batch)")
	outputFilename := flags.String("o", "-", "output csv `file`")
	flags.Float64Var(&cmd.otuThresh, "otu-thresh", defaults.OTUThresh, "prevalence threshold used for the Kept column")
	flags.IntVar(&cmd.nControlThresh, "n-control-thresh", defaults.NControlThresh, "minimum number of controls in each batch")
	err := flags.Parse(args)
	if err == flag.ErrHelp {
		return nil
	} else if err != nil {
		return errUsage
	} else if flags.NArg() > 0 {
		return fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
	} else if *metadataFilename == "" || *labelColumn == "" {
		return fmt.Errorf("must provide -metadata and -label-column")
	} else if !(cmd.otuThresh >= 0 && cmd.otuThresh <= 1) {
		return &norm.InvalidParameterError{Param: "otu_thresh", Value: cmd.otuThresh, Want: "between 0 and 1"}
	}

	table, labels, batches, err := loadInputs(*inputFilename, stdin, *featuresInRows, *metadataFilename, *labelColumn, *batchColumn)
	if err != nil {
		return err
	}
	groups, err := norm.ResolveGroups(table.Samples, labels, batches, cmd.nControlThresh)
	if err != nil {
		return err
	}

	output, err := zcreate(*outputFilename, stdout)
	if err != nil {
		return err
	}
	defer output.Close()
	bufw := bufio.NewWriter(output)
	err = cmd.writeReport(bufw, table, groups)
	if err != nil {
		return err
	}
	err = bufw.Flush()
	if err != nil {
		return fmt.Errorf("write %s: %w", *outputFilename, err)
	}
	return output.Close()
}

func (cmd *prevalenceReport) writeReport(w io.Writer, table *norm.FeatureTable, groups []norm.Group) error {
	_, err := fmt.Fprint(w, "Batch,Feature,ControlPrevalence,CasePrevalence,Kept,ChiSquarePValue\n")
	if err != nil {
		return err
	}
	for _, g := range groups {
		var ctrlRows, caseRows []int
		for _, s := range g.Controls {
			ctrlRows = append(ctrlRows, table.Row(s))
		}
		for _, s := range g.Cases {
			caseRows = append(caseRows, table.Row(s))
		}
		ctrlPrev := norm.Prevalence(table.Data, ctrlRows)
		casePrev := norm.Prevalence(table.Data, caseRows)
		kept := map[int]bool{}
		for _, j := range norm.FilterPrevalence(table.Data, ctrlRows, caseRows, cmd.otuThresh) {
			kept[j] = true
		}
		isCase := make([]bool, 0, len(ctrlRows)+len(caseRows))
		for range ctrlRows {
			isCase = append(isCase, false)
		}
		for range caseRows {
			isCase = append(isCase, true)
		}
		rows := append(append([]int(nil), ctrlRows...), caseRows...)
		present := make([]bool, len(rows))
		for j, feature := range table.Features {
			for i, row := range rows {
				present[i] = table.Data.At(row, j) != 0
			}
			_, err = fmt.Fprintf(w, "%s,%s,%s,%s,%v,%s\n",
				csvQuote(g.Name()), csvQuote(feature),
				strconv.FormatFloat(ctrlPrev[j], 'f', -1, 64),
				strconv.FormatFloat(casePrev[j], 'f', -1, 64),
				kept[j],
				strconv.FormatFloat(presencePvalue(present, isCase), 'g', 6, 64))
			if err != nil {
				return err
			}
		}
		log.WithFields(log.Fields{
			"batch": g.Name(),
			"kept":  len(kept),
		}).Infof("%d of %d features pass prevalence filter", len(kept), len(table.Features))
	}
	return nil
}
