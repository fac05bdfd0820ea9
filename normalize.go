// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package percnorm

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"path"
	"strconv"

	"git.arvados.org/arvados.git/sdk/go/arvados"
	"github.com/arvados/percnorm/norm"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

type normalizecmd struct {
	opts norm.Options
}

func (cmd *normalizecmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	err := cmd.run(prog, args, stdin, stdout, stderr)
	if err == errUsage {
		return 2
	} else if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	return 0
}

var errUsage = errors.New("usage error")

func (cmd *normalizecmd) run(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd.opts = norm.DefaultOptions()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	runlocal := flags.Bool("local", false, "run on local host (default: run in an arvados container)")
	projectUUID := flags.String("project", "", "project `UUID` for output data")
	priority := flags.Int("priority", 500, "container request priority")
	preemptible := flags.Bool("preemptible", true, "request preemptible instance")
	inputFilename := flags.String("i", "-", "input feature table `file` (tsv, optionally gzipped)")
	featuresInRows := flags.Bool("features-in-rows", false, "input table has one feature per line and one sample per column")
	metadataFilename := flags.String("metadata", "", "sample metadata tsv `file`")
	labelColumn := flags.String("label-column", "", "metadata `column` labeling samples as \"case\" or \"control\"")
	batchColumn := flags.String("batch-column", "", "metadata `column` identifying batches to normalize separately (default: one batch)")
	outputFilename := flags.String("o", "-", "output `file` (tsv, one feature per line; gzipped if name ends in .gz)")
	numpyFilename := flags.String("output-numpy", "", "also write normalized matrix (features x samples) to .npy `file`")
	randSeed := flags.Uint64("random-seed", 0, "PRNG seed for zero imputation (0 = use clock)")
	flags.IntVar(&cmd.opts.NControlThresh, "n-control-thresh", cmd.opts.NControlThresh, "minimum number of controls in each batch")
	flags.Float64Var(&cmd.opts.OTUThresh, "otu-thresh", cmd.opts.OTUThresh, "drop features present in less than this fraction of both cases and controls (0 ≤ P ≤ 1)")
	flags.IntVar(&cmd.opts.Threads, "threads", 4, "number of batches to normalize concurrently")
	flags.BoolVar(&cmd.opts.SkipInvalidBatches, "skip-invalid-batches", false, "log and skip batches that cannot be normalized, instead of failing")
	err := flags.Parse(args)
	if err == flag.ErrHelp {
		return nil
	} else if err != nil {
		return errUsage
	} else if flags.NArg() > 0 {
		return fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
	} else if *metadataFilename == "" || *labelColumn == "" {
		return errors.New("must provide -metadata and -label-column")
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	if !*runlocal {
		if *outputFilename != "-" || *numpyFilename != "" {
			return errors.New("cannot specify output file in container mode: not implemented")
		}
		runner := arvadosContainerRunner{
			Name:        "percnorm normalize",
			Client:      arvados.NewClientFromEnv(),
			ProjectUUID: *projectUUID,
			RAM:         16000000000,
			VCPUs:       cmd.opts.Threads,
			Priority:    *priority,
			Preemptible: *preemptible,
		}
		err = runner.TranslatePaths(inputFilename, metadataFilename)
		if err != nil {
			return err
		}
		runner.Args = append([]string{"normalize", "-local=true",
			"-i=" + *inputFilename,
			"-features-in-rows=" + fmt.Sprintf("%v", *featuresInRows),
			"-metadata=" + *metadataFilename,
			"-label-column=" + *labelColumn,
			"-batch-column=" + *batchColumn,
			"-random-seed=" + fmt.Sprintf("%d", *randSeed),
		}, cmd.optionArgs()...)
		runner.Args = append(runner.Args,
			"-o=/mnt/output/normalized.tsv",
			"-output-numpy=/mnt/output/normalized.npy")
		output, err := runner.Run()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, output+"/normalized.tsv")
		return nil
	}

	if *randSeed != 0 {
		cmd.opts.Rand = rand.NewSource(*randSeed)
	}

	table, labels, batches, err := loadInputs(*inputFilename, stdin, *featuresInRows, *metadataFilename, *labelColumn, *batchColumn)
	if err != nil {
		return err
	}

	log.Info("normalizing")
	normalized, err := norm.Normalize(context.Background(), table, labels, batches, cmd.opts)
	if err != nil {
		return err
	}
	log.Infof("normalized table has %d features x %d samples", len(normalized.Features), len(normalized.Samples))

	output, err := zcreate(*outputFilename, stdout)
	if err != nil {
		return err
	}
	defer output.Close()
	err = writeNormalizedTable(output, normalized)
	if err != nil {
		return fmt.Errorf("write %s: %w", *outputFilename, err)
	}
	err = output.Close()
	if err != nil {
		return fmt.Errorf("close %s: %w", *outputFilename, err)
	}
	if *numpyFilename != "" {
		err = writeNumpyMatrix(*numpyFilename, normalized.Data)
		if err != nil {
			return err
		}
		err = writeLabels(path.Dir(*numpyFilename)+"/normalized.features.csv", "Feature", normalized.Features)
		if err != nil {
			return err
		}
		err = writeLabels(path.Dir(*numpyFilename)+"/normalized.samples.csv", "SampleID", normalized.Samples)
		if err != nil {
			return err
		}
	}
	return nil
}

// optionArgs returns command line flags that reproduce cmd.opts in
// a container.
func (cmd *normalizecmd) optionArgs() []string {
	return []string{
		"-n-control-thresh=" + fmt.Sprintf("%d", cmd.opts.NControlThresh),
		"-otu-thresh=" + strconv.FormatFloat(cmd.opts.OTUThresh, 'g', -1, 64),
		"-threads=" + fmt.Sprintf("%d", cmd.opts.Threads),
		"-skip-invalid-batches=" + fmt.Sprintf("%v", cmd.opts.SkipInvalidBatches),
	}
}

// loadInputs reads the feature table and the label (and, if
// batchColumn is not empty, batch) metadata columns.
func loadInputs(tableFilename string, stdin io.Reader, featuresInRows bool, metadataFilename, labelColumn, batchColumn string) (*norm.FeatureTable, norm.LabelSource, norm.LabelSource, error) {
	md, err := loadSampleMetadataFile(metadataFilename)
	if err != nil {
		return nil, nil, nil, err
	}
	labels, err := md.Column(labelColumn)
	if err != nil {
		return nil, nil, nil, err
	}
	var batches norm.LabelSource
	if batchColumn != "" {
		col, err := md.Column(batchColumn)
		if err != nil {
			return nil, nil, nil, err
		}
		batches = col
	}

	var input io.ReadCloser
	if tableFilename == "-" {
		input = io.NopCloser(stdin)
	} else {
		input, err = zopen(tableFilename)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	defer input.Close()
	log.Infof("reading %s", tableFilename)
	table, err := readFeatureTable(input, featuresInRows)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", tableFilename, err)
	}
	log.Infof("%s: %d samples x %d features", tableFilename, len(table.Samples), len(table.Features))
	return table, labels, batches, nil
}
