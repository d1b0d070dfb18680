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

// Package corpus owns the fuzzing loop's mutable state: the corpus queue,
// the solutions list, the PRNG, cumulative coverage, the path-id dedup set,
// and the round-robin scheduler cursor.
//
// Corpus admission and solution admission intentionally use different
// acceptance rules — novel edge bits for Corpus, novel path hashes for
// Solutions — and this package keeps them separate on purpose rather than
// unifying them behind one "is interesting" check.
package corpus

import (
	"math/rand"

	mapset "github.com/deckarep/golang-set"

	"github.com/movefuzz/movefuzz/internal/coverage"
	"github.com/movefuzz/movefuzz/internal/executor"
	"github.com/movefuzz/movefuzz/internal/objective"
	"github.com/movefuzz/movefuzz/internal/payload"
)

// Entry pairs a payload with the path-id it produced when it was accepted.
type Entry struct {
	Payload payload.Payload
	PathId  coverage.PathId
}

// State is the fuzzing loop's owned state. The zero value is not usable;
// construct with New.
type State struct {
	corpus []Entry
	cursor int

	solutions []Entry
	seenPaths mapset.Set

	cumulative coverage.Cumulative
	rng        *rand.Rand
	executions uint64
}

// New creates an empty State. seed determines every PRNG-derived decision
// downstream (mutator seeding included), making a fuzzing run fully
// reproducible for a fixed seed, module, and ABI set.
func New(seed int64, cumulative coverage.Cumulative) *State {
	return &State{
		seenPaths:  mapset.NewSet(),
		cumulative: cumulative,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Seed appends payloads to the corpus unconditionally, bypassing the
// coverage-novelty check — this is how the seeder's ABI-synthesized
// payloads enter the corpus before any execution has happened.
func (s *State) Seed(payloads []payload.Payload) {
	for _, p := range payloads {
		s.corpus = append(s.corpus, Entry{Payload: p})
	}
}

// Rand returns the corpus state's owned PRNG, the single source of
// randomness every other deterministic component (notably the mutator)
// should be seeded from.
func (s *State) Rand() *rand.Rand { return s.rng }

// Next returns the next scheduled corpus entry under a plain round-robin
// policy: pick index cursor mod len(corpus), advance cursor. Entries
// appended mid-run are picked up on a later cycle. ok is false iff the
// corpus is empty.
func (s *State) Next() (p payload.Payload, ok bool) {
	if len(s.corpus) == 0 {
		return nil, false
	}
	i := s.cursor % len(s.corpus)
	s.cursor++
	return s.corpus[i].Payload, true
}

// ConsiderCoverage applies the CoverageFeedback rule: p is appended to the
// corpus iff out.Edges introduced at least one bit unset in the cumulative
// map at the moment of comparison.
func (s *State) ConsiderCoverage(p payload.Payload, out executor.RunOutcome) bool {
	if !s.cumulative.MergeAndCheckNovelty(out.Edges) {
		return false
	}
	s.corpus = append(s.corpus, Entry{Payload: p, PathId: out.PathId})
	return true
}

// ConsiderSolutions evaluates every objective against out (eager-OR: all
// are checked even after one has already triggered, so a single input can
// be credited to more than one objective), then admits p into Solutions at
// most once, guarded by the shared SeenPaths set.
func (s *State) ConsiderSolutions(p payload.Payload, out executor.RunOutcome, objectives []objective.Objective) bool {
	triggered := false
	for _, obj := range objectives {
		if obj.Check(out) {
			triggered = true
		}
	}
	if !triggered {
		return false
	}
	if s.seenPaths.Contains(out.PathId) {
		return false
	}
	s.solutions = append(s.solutions, Entry{Payload: p, PathId: out.PathId})
	s.seenPaths.Add(out.PathId)
	return true
}

// IncExecutions advances the monotonic execution counter.
func (s *State) IncExecutions() { s.executions++ }

// Executions returns the total number of executions recorded so far.
func (s *State) Executions() uint64 { return s.executions }

// CorpusSize returns the current number of corpus entries.
func (s *State) CorpusSize() int { return len(s.corpus) }

// SolutionsSize returns the current number of solutions.
func (s *State) SolutionsSize() int { return len(s.solutions) }

// Solutions returns a snapshot of the solutions list.
func (s *State) Solutions() []Entry {
	return append([]Entry(nil), s.solutions...)
}

// CumulativeFillRatio reports the cumulative coverage map's nonzero
// fraction, used for progress reporting.
func (s *State) CumulativeFillRatio() float64 { return s.cumulative.FillRatio() }
