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

// Package observer holds the three per-run views the executor populates
// while stepping the VM: the edge hit-count map, the last abort code, and
// the shift-overflow flag. All three share one lifecycle rule — cleared at
// pre_exec, left populated at post_exec for feedbacks and objectives to
// read.
package observer

import "github.com/movefuzz/movefuzz/internal/coverage"

// Set bundles the PcHitCountObserver, AbortCodeObserver, and
// ShiftOverflowObserver behind the single reset/observe surface the
// executor drives.
type Set struct {
	Edges *coverage.Tracker
	Trace coverage.PcTrace

	abortCode    uint64
	hasAbortCode bool

	shiftOverflow bool
}

// New returns a freshly reset observer Set.
func New() *Set {
	s := &Set{Edges: coverage.NewTracker()}
	return s
}

// Reset clears every observer. Call at the top of every run (pre_exec).
func (s *Set) Reset() {
	s.Edges.Reset()
	s.Trace = s.Trace[:0]
	s.abortCode = 0
	s.hasAbortCode = false
	s.shiftOverflow = false
}

// OnStep is the PC instrumentation callback: it appends to the trace and
// feeds the edge tracker.
func (s *Set) OnStep(functionID uint32, pc uint32) {
	s.Trace = append(s.Trace, coverage.PcEntry{FunctionID: functionID, PC: pc})
	s.Edges.Observe(functionID, pc)
}

// OnShift is the shift instrumentation callback: it latches the
// shift-overflow flag on the first truncating left-shift and never clears
// it mid-run.
func (s *Set) OnShift(value uint64, shift uint64, truncated bool) {
	if truncated {
		s.shiftOverflow = true
	}
}

// SetAbortCode records the abort code observed in this run.
func (s *Set) SetAbortCode(code uint64) {
	s.abortCode = code
	s.hasAbortCode = true
}

// AbortCode returns the observed abort code and whether one was recorded.
func (s *Set) AbortCode() (code uint64, ok bool) {
	return s.abortCode, s.hasAbortCode
}

// ShiftOverflow reports whether any left-shift during the run truncated
// high bits.
func (s *Set) ShiftOverflow() bool { return s.shiftOverflow }
