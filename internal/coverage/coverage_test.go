// Copyright 2024 The Move Fuzz Authors
// This file is part of movefuzz.
//
// movefuzz is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// movefuzz is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with movefuzz. If not, see <http://www.gnu.org/licenses/>.

package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEdgeMapSaturates(t *testing.T) {
	var m EdgeMap
	for i := 0; i < 300; i++ {
		m.Hit(5)
	}
	assert.EqualValues(t, 255, m[5])
}

func TestEdgeMapResetZeroesAllCounters(t *testing.T) {
	var m EdgeMap
	m.Hit(10)
	m.Hit(20)
	m.Reset()
	for _, b := range m {
		assert.Zero(t, b)
	}
}

func TestEdgeIndexIsPureFunction(t *testing.T) {
	a := EdgeIndex(7, 100, 3)
	b := EdgeIndex(7, 100, 3)
	assert.Equal(t, a, b)
	assert.Less(t, a, uint32(MapSize))
}

func TestTrackerResetClearsPrevLocAndMap(t *testing.T) {
	tr := NewTracker()
	tr.Observe(1, 0)
	tr.Observe(1, 4)
	assert.NotZero(t, tr.prevLoc)

	tr.Reset()
	assert.Zero(t, tr.prevLoc)
	for _, b := range tr.Map {
		assert.Zero(t, b)
	}
}

func TestTrackerReplayReconstructsEdgeMapExactly(t *testing.T) {
	trace := PcTrace{{FunctionID: 1, PC: 0}, {FunctionID: 1, PC: 4}, {FunctionID: 1, PC: 8}}

	first := NewTracker()
	for _, e := range trace {
		first.Observe(e.FunctionID, e.PC)
	}

	second := NewTracker()
	for _, e := range trace {
		second.Observe(e.FunctionID, e.PC)
	}

	assert.Equal(t, *first.Map, *second.Map)
}

func TestComputePathIdIsDeterministicAndOrderSensitive(t *testing.T) {
	a := PcTrace{{FunctionID: 1, PC: 0}, {FunctionID: 1, PC: 4}}
	b := PcTrace{{FunctionID: 1, PC: 4}, {FunctionID: 1, PC: 0}}

	assert.Equal(t, ComputePathId(a), ComputePathId(a))
	assert.NotEqual(t, ComputePathId(a), ComputePathId(b))
}

func TestCumulativeNoveltyIsBitwiseOr(t *testing.T) {
	cum := NewCumulative()

	var run1 EdgeMap
	run1.Hit(1)
	assert.True(t, cum.MergeAndCheckNovelty(&run1), "first observation of a bit must be novel")
	assert.False(t, cum.MergeAndCheckNovelty(&run1), "re-observing the same bit must not be novel")

	var run2 EdgeMap
	run2.Hit(1)
	run2.Hit(2)
	assert.True(t, cum.MergeAndCheckNovelty(&run2), "a run introducing one new bit among old ones is still novel")
}

func TestCumulativeFillRatio(t *testing.T) {
	cum := NewCumulative()
	assert.Zero(t, cum.FillRatio())

	var run EdgeMap
	run.Hit(0)
	cum.MergeAndCheckNovelty(&run)
	assert.Greater(t, cum.FillRatio(), 0.0)
}
