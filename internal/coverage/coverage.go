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

// Package coverage implements the AFL-style edge map, the path-id hash used
// to deduplicate solutions, and the cumulative, novelty-tracking coverage
// map the corpus state consults when deciding whether a mutated payload is
// worth keeping.
package coverage

import "hash/fnv"

// MapSize is the fixed edge-map width, 2^16 hit counters.
const MapSize = 1 << 16

// EdgeMap is a fixed-size saturating hit-count array indexed by a hash of
// consecutive instruction locations.
type EdgeMap [MapSize]byte

// Hit saturating-increments the counter at idx.
func (m *EdgeMap) Hit(idx uint32) {
	if m[idx] < 255 {
		m[idx]++
	}
}

// Reset zeroes every counter.
func (m *EdgeMap) Reset() {
	for i := range m {
		m[i] = 0
	}
}

// Clone returns an independent copy.
func (m *EdgeMap) Clone() *EdgeMap {
	cp := *m
	return &cp
}

// FillRatio returns the fraction of nonzero counters, for progress stats.
func (m *EdgeMap) FillRatio() float64 {
	hit := 0
	for _, b := range m {
		if b != 0 {
			hit++
		}
	}
	return float64(hit) / float64(MapSize)
}

// hashFunctionID mixes a function_id into the edge-map's index space. A
// Fowler-Noll-Vo style multiplicative mix is enough here: the function is
// only ever XORed with pc and prev_loc downstream, so its job is to spread
// small, distinct function ids apart, not to be cryptographically sound.
func hashFunctionID(id uint32) uint32 {
	const prime = 16777619
	h := uint32(2166136261)
	h = (h ^ id) * prime
	h = (h ^ (id >> 8)) * prime
	return h
}

// EdgeIndex computes the classic AFL edge index:
// hash(function_id) XOR pc XOR prev_loc, masked into the map's range.
func EdgeIndex(functionID uint32, pc uint32, prevLoc uint32) uint32 {
	return (hashFunctionID(functionID) ^ pc ^ prevLoc) & (MapSize - 1)
}

// Tracker accumulates one run's EdgeMap, maintaining the running prev_loc
// state an executor needs to feed EdgeIndex correctly from one instruction
// to the next. prev_loc is reset to zero at the start of every run so edges
// are deterministic within a single execution regardless of history.
type Tracker struct {
	Map     *EdgeMap
	prevLoc uint32
}

// NewTracker returns a Tracker with a fresh, zeroed map.
func NewTracker() *Tracker {
	return &Tracker{Map: &EdgeMap{}}
}

// Reset clears the map and the running prev_loc, ready for a new run.
func (t *Tracker) Reset() {
	t.Map.Reset()
	t.prevLoc = 0
}

// Observe records one (function_id, pc) visitation.
func (t *Tracker) Observe(functionID uint32, pc uint32) {
	idx := EdgeIndex(functionID, pc, t.prevLoc)
	t.Map.Hit(idx)
	t.prevLoc = idx >> 1
}

// PcEntry is one (function_id, pc) pair in an execution trace.
type PcEntry struct {
	FunctionID uint32
	PC         uint32
}

// PcTrace is the ordered sequence of locations visited during one run.
type PcTrace []PcEntry

// PathId is an FNV-1a hash over a PcTrace, used to deduplicate solutions.
type PathId uint64

// ComputePathId hashes the ordered (function_id, pc) pairs of trace.
func ComputePathId(trace PcTrace) PathId {
	h := fnv.New64a()
	buf := make([]byte, 8)
	for _, e := range trace {
		putUint32(buf[0:4], e.FunctionID)
		putUint32(buf[4:8], e.PC)
		_, _ = h.Write(buf)
	}
	return PathId(h.Sum64())
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// Cumulative is the capability interface the corpus state exposes over its
// process-wide coverage map. It is an interface — rather than a bare
// singleton — specifically so tests can supply a fresh instance per run
// instead of sharing global state across test cases.
type Cumulative interface {
	// MergeAndCheckNovelty bitwise-ORs run into the cumulative map and
	// reports whether run contained at least one bit the cumulative map
	// did not already have set, i.e. whether run is "novel".
	MergeAndCheckNovelty(run *EdgeMap) bool
	// FillRatio reports the cumulative map's nonzero-counter fraction.
	FillRatio() float64
}

// cumulativeMap is the default in-process Cumulative implementation.
type cumulativeMap struct {
	bits [MapSize]bool
}

// NewCumulative returns a fresh, empty Cumulative instance.
func NewCumulative() Cumulative {
	return &cumulativeMap{}
}

func (c *cumulativeMap) MergeAndCheckNovelty(run *EdgeMap) bool {
	novel := false
	for i, v := range run {
		if v != 0 && !c.bits[i] {
			c.bits[i] = true
			novel = true
		}
	}
	return novel
}

func (c *cumulativeMap) FillRatio() float64 {
	hit := 0
	for _, b := range c.bits {
		if b {
			hit++
		}
	}
	return float64(hit) / float64(MapSize)
}
