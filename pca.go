// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package percnorm

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"path"

	"git.arvados.org/arvados.git/sdk/go/arvados"
	"github.com/arvados/percnorm/norm"
	"github.com/james-bowman/nlp"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// goPCA projects the samples of a normalized table onto its first
// principal components.
type goPCA struct{}

func (cmd *goPCA) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	err := cmd.run(prog, args, stdin, stdout, stderr)
	if err == errUsage {
		return 2
	} else if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	return 0
}

func (cmd *goPCA) run(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	runlocal := flags.Bool("local", false, "run on local host (default: run in an arvados container)")
	projectUUID := flags.String("project", "", "project `UUID` for output data")
	priority := flags.Int("priority", 500, "container request priority")
	inputFilename := flags.String("i", "-", "normalized table `file` (output of normalize)")
	outputFilename := flags.String("o", "pca.npy", "output .npy `file` (samples x components)")
	components := flags.Int("components", 4, "number of components")
	err := flags.Parse(args)
	if err == flag.ErrHelp {
		return nil
	} else if err != nil {
		return errUsage
	} else if flags.NArg() > 0 {
		return fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
	} else if *components < 1 {
		return fmt.Errorf("invalid -components=%d", *components)
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	if !*runlocal {
		runner := arvadosContainerRunner{
			Name:        "percnorm pca",
			Client:      arvados.NewClientFromEnv(),
			ProjectUUID: *projectUUID,
			RAM:         16000000000,
			VCPUs:       2,
			Priority:    *priority,
		}
		err = runner.TranslatePaths(inputFilename)
		if err != nil {
			return err
		}
		runner.Args = []string{"pca", "-local=true",
			"-i=" + *inputFilename,
			"-components=" + fmt.Sprintf("%d", *components),
			"-o=/mnt/output/pca.npy",
		}
		output, err := runner.Run()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, output+"/pca.npy")
		return nil
	}

	normalized, err := readNormalizedTableFile(*inputFilename, stdin)
	if err != nil {
		return err
	}
	projected, err := projectSamples(normalized, *components)
	if err != nil {
		return err
	}
	err = writeNumpyMatrix(*outputFilename, projected)
	if err != nil {
		return err
	}
	return writeLabels(path.Dir(*outputFilename)+"/samples.csv", "SampleID", normalized.Samples)
}

// projectSamples returns a samples x components matrix. Undefined
// values are replaced with 50, the median percentile.
func projectSamples(t *norm.NormalizedTable, components int) (mat.Matrix, error) {
	rows, cols := t.Data.Dims()
	if components > rows || components > cols {
		return nil, fmt.Errorf("cannot compute %d components from %d features x %d samples", components, rows, cols)
	}
	mtx := mat.NewDense(rows, cols, nil)
	mtx.Apply(func(i, j int, v float64) float64 {
		if norm.IsUndefined(v) {
			return 50
		}
		return v
	}, t.Data)

	log.Printf("fitting PCA: %d features, %d samples, %d components", rows, cols, components)
	transformer := nlp.NewPCA(components)
	transformer.Fit(mtx)
	projected, err := transformer.Transform(mtx)
	if err != nil {
		return nil, err
	}
	return projected.T(), nil
}
