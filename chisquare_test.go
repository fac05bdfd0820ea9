// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package percnorm

import (
	"math"

	"gopkg.in/check.v1"
)

type pvalueSuite struct{}

var _ = check.Suite(&pvalueSuite{})

func (s *pvalueSuite) TestPresencePvalue(c *check.C) {
	present := make([]bool, 20)
	isCase := make([]bool, 20)
	for i := 0; i < 10; i++ {
		isCase[i] = true
		present[i] = true
	}
	p := presencePvalue(present, isCase)
	c.Check(p > 7e-6 && p < 1e-5, check.Equals, true, check.Commentf("p = %v", p))

	// symmetric in presence/absence
	for i := range present {
		present[i] = !present[i]
	}
	c.Check(presencePvalue(present, isCase), check.Equals, p)

	// independent
	for i := range present {
		present[i] = i%2 == 0
	}
	c.Check(math.Abs(presencePvalue(present, isCase)-1) < 1e-9, check.Equals, true)
}

func (s *pvalueSuite) TestEmptyMargin(c *check.C) {
	c.Check(presencePvalue([]bool{true, true, true}, []bool{true, false, true}), check.Equals, 1.0)
	c.Check(presencePvalue([]bool{true, false, true}, []bool{true, true, true}), check.Equals, 1.0)
}
