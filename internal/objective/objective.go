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

// Package objective decides whether a run's observations are interesting
// enough to keep as a solution. Objectives are pure predicates over a
// RunOutcome — the path-id dedup guard they share lives in the corpus
// package, which is what actually owns Solutions and SeenPaths.
package objective

import (
	mapset "github.com/deckarep/golang-set"

	"github.com/movefuzz/movefuzz/internal/executor"
)

// Objective decides whether one run's outcome is interesting.
type Objective interface {
	Check(out executor.RunOutcome) bool
	Name() string
}

// AbortCodeObjective triggers on a promoted crash, or on an observed abort
// code that is either unfiltered or a member of a configured filter set.
type AbortCodeObjective struct {
	filter mapset.Set // of uint64; nil means "any abort code is interesting"
}

// NewAbortCodeObjective builds an objective. An empty or nil codes slice
// means every abort code is interesting; a non-empty slice restricts
// interest to those specific codes.
func NewAbortCodeObjective(codes []uint64) *AbortCodeObjective {
	if len(codes) == 0 {
		return &AbortCodeObjective{}
	}
	set := mapset.NewSet()
	for _, c := range codes {
		set.Add(c)
	}
	return &AbortCodeObjective{filter: set}
}

func (o *AbortCodeObjective) Name() string { return "abort_code" }

func (o *AbortCodeObjective) Check(out executor.RunOutcome) bool {
	if out.Exit == executor.ExitCrash {
		return true
	}
	if !out.HasAbortCode {
		return false
	}
	if o.filter == nil {
		return true
	}
	return o.filter.Contains(out.AbortCode)
}

// ShiftOverflowObjective triggers whenever the run's ShiftOverflowObserver
// flag was set.
type ShiftOverflowObjective struct{}

func NewShiftOverflowObjective() *ShiftOverflowObjective { return &ShiftOverflowObjective{} }

func (o *ShiftOverflowObjective) Name() string { return "shift_overflow" }

func (o *ShiftOverflowObjective) Check(out executor.RunOutcome) bool {
	return out.ShiftOverflow
}
