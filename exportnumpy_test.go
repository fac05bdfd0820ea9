// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package percnorm

import (
	"os"

	"github.com/kshedden/gonpy"
	"gopkg.in/check.v1"
	"gonum.org/v1/gonum/mat"
)

type exportNumpySuite struct{}

var _ = check.Suite(&exportNumpySuite{})

func (s *exportNumpySuite) TestWriteNumpyMatrix(c *check.C) {
	tmpdir := c.MkDir()
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	err := writeNumpyMatrix(tmpdir+"/m.npy", m.T())
	c.Assert(err, check.IsNil)

	f, err := os.Open(tmpdir + "/m.npy")
	c.Assert(err, check.IsNil)
	defer f.Close()
	npy, err := gonpy.NewReader(f)
	c.Assert(err, check.IsNil)
	c.Check(npy.Shape, check.DeepEquals, []int{3, 2})
	data, err := npy.GetFloat64()
	c.Assert(err, check.IsNil)
	c.Check(data, check.DeepEquals, []float64{1, 4, 2, 5, 3, 6})
}

func (s *exportNumpySuite) TestWriteLabels(c *check.C) {
	tmpdir := c.MkDir()
	err := writeLabels(tmpdir+"/samples.csv", "SampleID", []string{"s1", "s2"})
	c.Assert(err, check.IsNil)
	buf, err := os.ReadFile(tmpdir + "/samples.csv")
	c.Assert(err, check.IsNil)
	c.Check(string(buf), check.Equals, "Index,SampleID\n0,s1\n1,s2\n")
}

type arvadosSuite struct{}

var _ = check.Suite(&arvadosSuite{})

func (s *arvadosSuite) TestTranslatePaths(c *check.C) {
	runner := arvadosContainerRunner{}
	table := "/mnt/zzzzz-4zz18-aaaaabbbbbccccc/table.tsv.gz"
	metadata := "d41d8cd98f00b204e9800998ecf8427e+0/sub/metadata.tsv"
	stdin := "-"
	err := runner.TranslatePaths(&table, &metadata, &stdin)
	c.Assert(err, check.IsNil)
	c.Check(table, check.Equals, "/mnt/zzzzz-4zz18-aaaaabbbbbccccc/table.tsv.gz")
	c.Check(metadata, check.Equals, "/mnt/d41d8cd98f00b204e9800998ecf8427e+0/sub/metadata.tsv")
	c.Check(stdin, check.Equals, "-")
	c.Check(runner.Mounts["/mnt/zzzzz-4zz18-aaaaabbbbbccccc"]["uuid"], check.Equals, "zzzzz-4zz18-aaaaabbbbbccccc")
	c.Check(runner.Mounts["/mnt/d41d8cd98f00b204e9800998ecf8427e+0"]["portable_data_hash"], check.Equals, "d41d8cd98f00b204e9800998ecf8427e+0")

	local := "/tmp/table.tsv"
	c.Check(runner.TranslatePaths(&local), check.ErrorMatches, `cannot find uuid in path: "/tmp/table.tsv"`)
}
