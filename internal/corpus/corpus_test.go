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

package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movefuzz/movefuzz/internal/coverage"
	"github.com/movefuzz/movefuzz/internal/executor"
	"github.com/movefuzz/movefuzz/internal/objective"
	"github.com/movefuzz/movefuzz/internal/payload"
)

func dummyPayload(tag string) payload.Payload {
	return &payload.EntryFunction{FunctionName: tag}
}

func outcomeWithEdge(bit uint32) executor.RunOutcome {
	m := &coverage.EdgeMap{}
	m.Hit(bit)
	return executor.RunOutcome{Edges: m}
}

func TestSeedPopulatesCorpusWithoutNoveltyCheck(t *testing.T) {
	s := New(1, coverage.NewCumulative())
	s.Seed([]payload.Payload{dummyPayload("a"), dummyPayload("b")})
	assert.Equal(t, 2, s.CorpusSize())
}

func TestNextRoundRobinsOverCorpus(t *testing.T) {
	s := New(1, coverage.NewCumulative())
	s.Seed([]payload.Payload{dummyPayload("a"), dummyPayload("b")})

	p1, ok := s.Next()
	require.True(t, ok)
	p2, ok := s.Next()
	require.True(t, ok)
	p3, ok := s.Next()
	require.True(t, ok)

	assert.Equal(t, p1, p3)
	assert.NotEqual(t, p1, p2)
}

func TestNextOnEmptyCorpusReportsNotOk(t *testing.T) {
	s := New(1, coverage.NewCumulative())
	_, ok := s.Next()
	assert.False(t, ok)
}

func TestConsiderCoverageAcceptsOnlyNovelEdges(t *testing.T) {
	s := New(1, coverage.NewCumulative())
	p := dummyPayload("a")

	accepted := s.ConsiderCoverage(p, outcomeWithEdge(10))
	assert.True(t, accepted, "first observation of a bit must be novel")
	assert.Equal(t, 1, s.CorpusSize())

	accepted = s.ConsiderCoverage(p, outcomeWithEdge(10))
	assert.False(t, accepted, "repeating the same edge set is not novel")
	assert.Equal(t, 1, s.CorpusSize())

	accepted = s.ConsiderCoverage(p, outcomeWithEdge(11))
	assert.True(t, accepted)
	assert.Equal(t, 2, s.CorpusSize())
}

func TestConsiderSolutionsRequiresAnObjectiveToTrigger(t *testing.T) {
	s := New(1, coverage.NewCumulative())
	p := dummyPayload("a")
	out := executor.RunOutcome{Exit: executor.ExitSuccess, PathId: 42}

	accepted := s.ConsiderSolutions(p, out, []objective.Objective{objective.NewShiftOverflowObjective()})
	assert.False(t, accepted)
	assert.Zero(t, s.SolutionsSize())
}

func TestConsiderSolutionsDedupsByPathId(t *testing.T) {
	s := New(1, coverage.NewCumulative())
	p := dummyPayload("a")
	out := executor.RunOutcome{Exit: executor.ExitCrash, PathId: 7}
	objs := []objective.Objective{objective.NewAbortCodeObjective(nil)}

	accepted := s.ConsiderSolutions(p, out, objs)
	assert.True(t, accepted)
	accepted = s.ConsiderSolutions(p, out, objs)
	assert.False(t, accepted, "same path-id must not be inserted twice")
	assert.Equal(t, 1, s.SolutionsSize())
}

func TestConsiderSolutionsEagerOREvaluatesEveryObjective(t *testing.T) {
	s := New(1, coverage.NewCumulative())
	p := dummyPayload("a")
	out := executor.RunOutcome{Exit: executor.ExitSuccess, ShiftOverflow: true, PathId: 9}

	objs := []objective.Objective{
		objective.NewAbortCodeObjective(nil), // does not trigger on this outcome
		objective.NewShiftOverflowObjective(), // triggers
	}
	accepted := s.ConsiderSolutions(p, out, objs)
	assert.True(t, accepted, "a single triggering objective among several must still admit the payload")
}

func TestExecutionCounterIsMonotonic(t *testing.T) {
	s := New(1, coverage.NewCumulative())
	assert.Zero(t, s.Executions())
	s.IncExecutions()
	s.IncExecutions()
	assert.EqualValues(t, 2, s.Executions())
}

func TestRandIsDeterministicGivenSameSeed(t *testing.T) {
	s1 := New(99, coverage.NewCumulative())
	s2 := New(99, coverage.NewCumulative())
	assert.Equal(t, s1.Rand().Int63(), s2.Rand().Int63())
}

func TestCumulativeFillRatioReflectsMerges(t *testing.T) {
	s := New(1, coverage.NewCumulative())
	assert.Zero(t, s.CumulativeFillRatio())
	s.ConsiderCoverage(dummyPayload("a"), outcomeWithEdge(5))
	assert.Greater(t, s.CumulativeFillRatio(), 0.0)
}
