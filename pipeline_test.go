// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package percnorm

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/arvados/percnorm/norm"
	"github.com/klauspost/pgzip"
	"github.com/kshedden/gonpy"
	"gopkg.in/check.v1"
	"gonum.org/v1/gonum/mat"
)

type pipelineSuite struct{}

var _ = check.Suite(&pipelineSuite{})

func (s *pipelineSuite) runNormalize(c *check.C, tmpdir string, extra ...string) *norm.NormalizedTable {
	tableFilename, metadataFilename := writeTestInputs(c, tmpdir)
	args := append([]string{"-local=true",
		"-i=" + tableFilename,
		"-metadata=" + metadataFilename,
		"-label-column=label",
		"-random-seed=42",
		"-n-control-thresh=10",
	}, extra...)
	var stdout bytes.Buffer
	code := (&normalizecmd{}).RunCommand("percnorm normalize", args, &bytes.Buffer{}, &stdout, os.Stderr)
	c.Assert(code, check.Equals, 0)
	if stdout.Len() == 0 {
		return nil
	}
	t, err := readNormalizedTable(&stdout)
	c.Assert(err, check.IsNil)
	return t
}

func (s *pipelineSuite) checkNormalized(c *check.C, t *norm.NormalizedTable) {
	c.Check(t.Features, check.DeepEquals, []string{"f1", "f2", "f3"})
	c.Check(t.Samples, check.HasLen, 20)
	for i := 0; i < 10; i++ {
		v, ok := t.Value("f1", t.Samples[i])
		c.Check(ok, check.Equals, true)
		c.Check(v, check.Equals, float64(10*i+5))
		v, _ = t.Value("f1", t.Samples[10+i])
		c.Check(v, check.Equals, 100.0)
	}
	for _, sample := range t.Samples {
		v, _ := t.Value("f2", sample)
		c.Check(v, check.Equals, 50.0)
		v, ok := t.Value("f3", sample)
		c.Check(ok, check.Equals, true)
		c.Check(v >= 0 && v <= 100, check.Equals, true)
	}
	v, _ := t.Value("f3", "k0")
	c.Check(v, check.Equals, 100.0)
	_, ok := t.Value("f1", "u0")
	c.Check(ok, check.Equals, false)
}

func (s *pipelineSuite) TestNormalize(c *check.C) {
	tmpdir := c.MkDir()
	t := s.runNormalize(c, tmpdir)
	s.checkNormalized(c, t)

	again := s.runNormalize(c, tmpdir, "-threads=1")
	c.Check(again.Data.RawMatrix().Data, check.DeepEquals, t.Data.RawMatrix().Data)
}

func (s *pipelineSuite) TestNormalizeBatchColumn(c *check.C) {
	tmpdir := c.MkDir()
	t := s.runNormalize(c, tmpdir, "-batch-column=batch")
	s.checkNormalized(c, t)
}

func (s *pipelineSuite) TestNormalizeGzipNumpy(c *check.C) {
	tmpdir := c.MkDir()
	s.runNormalize(c, tmpdir, "-o="+tmpdir+"/normalized.tsv.gz", "-output-numpy="+tmpdir+"/normalized.npy")

	f, err := os.Open(tmpdir + "/normalized.tsv.gz")
	c.Assert(err, check.IsNil)
	defer f.Close()
	gz, err := pgzip.NewReader(f)
	c.Assert(err, check.IsNil)
	t, err := readNormalizedTable(gz)
	c.Assert(err, check.IsNil)
	s.checkNormalized(c, t)

	npyf, err := os.Open(tmpdir + "/normalized.npy")
	c.Assert(err, check.IsNil)
	defer npyf.Close()
	npy, err := gonpy.NewReader(npyf)
	c.Assert(err, check.IsNil)
	c.Check(npy.Shape, check.DeepEquals, []int{3, 20})
	data, err := npy.GetFloat64()
	c.Assert(err, check.IsNil)
	c.Check(data, check.DeepEquals, t.Data.RawMatrix().Data)

	buf, err := os.ReadFile(tmpdir + "/normalized.features.csv")
	c.Assert(err, check.IsNil)
	c.Check(string(buf), check.Equals, "Index,Feature\n0,f1\n1,f2\n2,f3\n")
	buf, err = os.ReadFile(tmpdir + "/normalized.samples.csv")
	c.Assert(err, check.IsNil)
	c.Check(string(buf), check.Matches, `Index,SampleID\n0,c0\n1,c1\n(?s:.*)\n19,k9\n`)
}

func (s *pipelineSuite) TestNormalizeErrors(c *check.C) {
	tmpdir := c.MkDir()
	tableFilename, metadataFilename := writeTestInputs(c, tmpdir)
	for _, trial := range []struct {
		args   []string
		code   int
		stderr string
	}{
		{[]string{"-n-control-thresh=11"}, 1, "there aren't enough controls in batch default: 10 < n_control_thresh = 11\n"},
		{[]string{"-n-control-thresh=0"}, 1, "invalid n_control_thresh = 0: .*\n"},
		{[]string{"-otu-thresh=1.5"}, 1, "invalid otu_thresh = 1.5: .*\n"},
		{[]string{"-label-column=nonexistent"}, 1, `no column named "nonexistent".*\n`},
		{[]string{"-bogus-flag"}, 2, "(?s).*flag provided but not defined.*"},
	} {
		args := append([]string{"-local=true", "-i=" + tableFilename, "-metadata=" + metadataFilename, "-label-column=label"}, trial.args...)
		var stderr bytes.Buffer
		code := (&normalizecmd{}).RunCommand("percnorm normalize", args, &bytes.Buffer{}, io.Discard, &stderr)
		c.Check(code, check.Equals, trial.code, check.Commentf("%v", trial.args))
		c.Check(stderr.String(), check.Matches, trial.stderr, check.Commentf("%v", trial.args))
	}
}

func (s *pipelineSuite) TestPrevalenceReport(c *check.C) {
	tmpdir := c.MkDir()
	tableFilename, metadataFilename := writeTestInputs(c, tmpdir)
	var stdout bytes.Buffer
	code := (&prevalenceReport{}).RunCommand("percnorm prevalence-report", []string{
		"-i=" + tableFilename,
		"-metadata=" + metadataFilename,
		"-label-column=label",
		"-batch-column=batch",
	}, &bytes.Buffer{}, &stdout, os.Stderr)
	c.Assert(code, check.Equals, 0)
	lines := strings.Split(stdout.String(), "\n")
	c.Assert(lines, check.HasLen, 6)
	c.Check(lines[0], check.Equals, "Batch,Feature,ControlPrevalence,CasePrevalence,Kept,ChiSquarePValue")
	c.Check(lines[1], check.Equals, "B1,f1,1,1,true,1")
	c.Check(lines[2], check.Equals, "B1,f2,1,1,true,1")
	c.Check(lines[3], check.Matches, `B1,f3,0,0\.5,true,0\.0[0-9]+`)
	c.Check(lines[4], check.Equals, "B1,f4,0.1,0.1,false,1")
	c.Check(lines[5], check.Equals, "")
}

func (s *pipelineSuite) TestPvalues(c *check.C) {
	tmpdir := c.MkDir()
	s.runNormalize(c, tmpdir, "-o="+tmpdir+"/normalized.tsv")
	_, metadataFilename := writeTestInputs(c, tmpdir)
	var stdout bytes.Buffer
	code := (&pvaluecmd{}).RunCommand("percnorm pvalues", []string{
		"-i=" + tmpdir + "/normalized.tsv",
		"-metadata=" + metadataFilename,
		"-label-column=label",
	}, &bytes.Buffer{}, &stdout, os.Stderr)
	c.Assert(code, check.Equals, 0)
	c.Logf("%s", stdout.String())
	lines := strings.Split(stdout.String(), "\n")
	c.Assert(lines, check.HasLen, 5)
	c.Check(lines[0], check.Equals, "Feature,Controls,Cases,PValue")
	c.Check(lines[1], check.Matches, `f1,10,10,.*`)
	c.Check(lines[2], check.Equals, "f2,10,10,NaN")
	c.Check(lines[3], check.Matches, `f3,10,10,.*`)
}

func (s *pipelineSuite) TestPCA(c *check.C) {
	tmpdir := c.MkDir()
	s.runNormalize(c, tmpdir, "-o="+tmpdir+"/normalized.tsv")
	code := (&goPCA{}).RunCommand("percnorm pca", []string{
		"-local=true",
		"-i=" + tmpdir + "/normalized.tsv",
		"-components=2",
		"-o=" + tmpdir + "/pca.npy",
	}, &bytes.Buffer{}, io.Discard, os.Stderr)
	c.Assert(code, check.Equals, 0)

	f, err := os.Open(tmpdir + "/pca.npy")
	c.Assert(err, check.IsNil)
	defer f.Close()
	npy, err := gonpy.NewReader(f)
	c.Assert(err, check.IsNil)
	c.Check(npy.Shape, check.DeepEquals, []int{20, 2})
	_, err = os.Stat(tmpdir + "/samples.csv")
	c.Check(err, check.IsNil)

	var stderr bytes.Buffer
	code = (&goPCA{}).RunCommand("percnorm pca", []string{
		"-local=true",
		"-i=" + tmpdir + "/normalized.tsv",
		"-components=4",
		"-o=" + tmpdir + "/pca4.npy",
	}, &bytes.Buffer{}, io.Discard, &stderr)
	c.Check(code, check.Equals, 1)
	c.Check(stderr.String(), check.Equals, "cannot compute 4 components from 3 features x 20 samples\n")
}

func (s *pipelineSuite) TestOptionArgs(c *check.C) {
	cmd := &normalizecmd{opts: norm.DefaultOptions()}
	cmd.opts.OTUThresh = 0.1234567891
	cmd.opts.NControlThresh = 12
	cmd.opts.SkipInvalidBatches = true
	args := cmd.optionArgs()
	c.Check(args, check.DeepEquals, []string{
		"-n-control-thresh=12",
		"-otu-thresh=0.1234567891",
		"-threads=1",
		"-skip-invalid-batches=true",
	})
	v, err := strconv.ParseFloat(strings.TrimPrefix(args[1], "-otu-thresh="), 64)
	c.Check(err, check.IsNil)
	c.Check(v, check.Equals, cmd.opts.OTUThresh)
}

type failingWriter struct{ n int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n <= 0 {
		return 0, errors.New("disk full")
	}
	w.n--
	return len(p), nil
}

func (s *pipelineSuite) TestPvaluesWriteError(c *check.C) {
	t := &norm.NormalizedTable{
		Features: []string{"f1", "f2"},
		Samples:  []string{"s1", "s2"},
		Data:     mat.NewDense(2, 2, []float64{50, 50, 50, math.NaN()}),
	}
	labels := norm.Column{"s1": norm.Control, "s2": norm.Case}
	for n := 0; n < 3; n++ {
		err := writePvalues(&failingWriter{n: n}, t, labels)
		c.Check(err, check.ErrorMatches, "disk full", check.Commentf("n=%d", n))
	}
	var buf bytes.Buffer
	c.Check(writePvalues(&buf, t, labels), check.IsNil)
	c.Check(buf.String(), check.Equals, "Feature,Controls,Cases,PValue\nf1,1,1,NaN\nf2,1,0,NaN\n")
}
