// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package norm

import (
	"errors"

	"gopkg.in/check.v1"
)

type groupsSuite struct{}

var _ = check.Suite(&groupsSuite{})

func (s *groupsSuite) TestUnbatched(c *check.C) {
	samples := []string{"s1", "s2", "s3", "s4", "s5"}
	labels := Column{
		"s1": "control",
		"s2": "case",
		"s3": "",
		"s4": "contorl",
		"s5": "control",
		"s9": "case", // not in table
	}
	groups, err := ResolveGroups(samples, labels, nil, 2)
	c.Assert(err, check.IsNil)
	c.Check(groups, check.DeepEquals, []Group{{
		Controls: []string{"s1", "s5"},
		Cases:    []string{"s2"},
	}})
	c.Check(groups[0].Name(), check.Equals, DefaultBatch)
}

func (s *groupsSuite) TestBatched(c *check.C) {
	samples := []string{"b1", "a1", "a2", "b2", "x1", "a3", "b3"}
	labels := Column{"b1": "control", "a1": "control", "a2": "case", "b2": "case", "x1": "control", "a3": "control", "b3": "control"}
	batches := Column{"b1": "B", "a1": "A", "a2": "A", "b2": "B", "x1": "", "a3": "A", "b3": "B"}
	groups, err := ResolveGroups(samples, labels, batches, 2)
	c.Assert(err, check.IsNil)
	c.Check(groups, check.DeepEquals, []Group{
		{Batch: "B", Batched: true, Controls: []string{"b1", "b3"}, Cases: []string{"b2"}},
		{Batch: "A", Batched: true, Controls: []string{"a1", "a3"}, Cases: []string{"a2"}},
	})
}

func (s *groupsSuite) TestInsufficientControls(c *check.C) {
	samples := []string{"a1", "a2", "b1", "b2", "b3"}
	labels := Column{"a1": "control", "a2": "case", "b1": "control", "b2": "control", "b3": "case"}
	batches := Column{"a1": "A", "a2": "A", "b1": "B", "b2": "B", "b3": "B"}
	_, err := ResolveGroups(samples, labels, batches, 2)
	var ice *InsufficientControlsError
	c.Assert(errors.As(err, &ice), check.Equals, true)
	c.Check(ice.Batch, check.Equals, "A")
	c.Check(ice.Controls, check.Equals, 1)
	c.Check(ice.Threshold, check.Equals, 2)
	c.Check(err, check.ErrorMatches, `.*batch A: 1 < n_control_thresh = 2`)

	_, err = ResolveGroups(samples, Column{}, nil, 2)
	c.Assert(errors.As(err, &ice), check.Equals, true)
	c.Check(ice.Batch, check.Equals, DefaultBatch)
	c.Check(ice.Controls, check.Equals, 0)
}

func (s *groupsSuite) TestEmptyCases(c *check.C) {
	samples := []string{"s1", "s2", "s3"}
	labels := Column{"s1": "control", "s2": "control", "s3": "caes"}
	_, err := ResolveGroups(samples, labels, nil, 2)
	var ege *EmptyGroupError
	c.Assert(errors.As(err, &ege), check.Equals, true)
	c.Check(ege.Batch, check.Equals, DefaultBatch)
	c.Check(ege.Group, check.Equals, Case)
}

func (s *groupsSuite) TestInvalidThreshold(c *check.C) {
	_, err := ResolveGroups([]string{"s1"}, Column{"s1": "control"}, nil, 0)
	var ipe *InvalidParameterError
	c.Assert(errors.As(err, &ipe), check.Equals, true)
	c.Check(ipe.Param, check.Equals, "n_control_thresh")
}
