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

// Package mutate perturbs the argument bytes of a scheduled payload in
// place, preserving the payload's structural envelope: variant,
// module/function identity, type arguments, arity, and (for Script) each
// argument's scalar tag never change, only the content does.
package mutate

import (
	"math/rand"

	gofuzz "github.com/google/gofuzz"

	"github.com/movefuzz/movefuzz/internal/bcs"
	"github.com/movefuzz/movefuzz/internal/payload"
)

// DefaultMaxArgBytes bounds how large a single EntryFunction argument blob
// or Script vector<u8> argument may grow under mutation.
const DefaultMaxArgBytes = 4096

// DefaultResizeProbability is the chance an EntryFunction mutation resizes
// its chosen argument rather than flipping a window of existing bytes.
const DefaultResizeProbability = 0.5

// Outcome reports whether a Mutate call rewrote an argument.
type Outcome uint8

const (
	Skipped Outcome = iota
	Mutated
)

// Mutator perturbs payload arguments. Both the structural random-walk
// decisions (which argument, resize-or-flip, window bounds) and the random
// byte content are deterministic given the same seed, which is what makes
// a fuzzing run reproducible end to end.
type Mutator struct {
	rng               *rand.Rand
	fuzzer            *gofuzz.Fuzzer
	maxArgBytes       int
	resizeProbability float64
}

// Config carries the mutator's tunables. The zero value selects the
// defaults (DefaultMaxArgBytes, DefaultResizeProbability), so callers that
// don't care can pass Config{}.
type Config struct {
	MaxArgBytes int
	// ResizeProbability is the chance (in [0, 1]) that mutating an
	// EntryFunction argument resizes it instead of flipping a window of its
	// existing bytes. Zero selects DefaultResizeProbability.
	ResizeProbability float64
}

// New creates a Mutator whose random decisions are fully determined by
// seed.
func New(seed int64, cfg Config) *Mutator {
	if cfg.MaxArgBytes <= 0 {
		cfg.MaxArgBytes = DefaultMaxArgBytes
	}
	if cfg.ResizeProbability <= 0 {
		cfg.ResizeProbability = DefaultResizeProbability
	}
	return &Mutator{
		rng:               rand.New(rand.NewSource(seed)),
		fuzzer:            gofuzz.NewWithSeed(seed),
		maxArgBytes:       cfg.MaxArgBytes,
		resizeProbability: cfg.ResizeProbability,
	}
}

// Mutate rewrites one argument of p in place. It returns Skipped when p has
// no arguments or when a window flip is picked for an empty EntryFunction
// blob, and Mutated otherwise. Mutated does not guarantee that the bytes
// differ from before: a zero resize delta, or random bytes equal to the old
// ones, leave the argument as it was.
func (m *Mutator) Mutate(p payload.Payload) Outcome {
	switch v := p.(type) {
	case *payload.EntryFunction:
		return m.mutateEntryFunction(v)
	case *payload.Script:
		return m.mutateScript(v)
	default:
		return Skipped
	}
}

func (m *Mutator) mutateEntryFunction(e *payload.EntryFunction) Outcome {
	if len(e.Args) == 0 {
		return Skipped
	}
	idx := m.rng.Intn(len(e.Args))
	blob := e.Arg(idx)

	if m.rng.Float64() < m.resizeProbability {
		e.SetArg(idx, m.resize(blob))
	} else {
		flipped := m.flipWindow(blob)
		if flipped == nil {
			return Skipped
		}
		e.SetArg(idx, flipped)
	}
	return Mutated
}

// resize grows or shrinks blob by a small delta clamped to
// [0, maxArgBytes], filling any new tail with random bytes.
func (m *Mutator) resize(blob []byte) []byte {
	delta := m.rng.Intn(9) - 4 // [-4, 4]
	newLen := len(blob) + delta
	if newLen < 0 {
		newLen = 0
	}
	if newLen > m.maxArgBytes {
		newLen = m.maxArgBytes
	}
	out := make([]byte, newLen)
	copy(out, blob)
	if newLen > len(blob) {
		m.fillRandom(out[len(blob):])
	}
	return out
}

// flipWindow replaces a random contiguous window of blob's existing bytes
// with random bytes, leaving its length unchanged. Returns nil if blob is
// empty (nothing to flip).
func (m *Mutator) flipWindow(blob []byte) []byte {
	if len(blob) == 0 {
		return nil
	}
	out := append([]byte(nil), blob...)
	start := m.rng.Intn(len(out))
	winLen := 1 + m.rng.Intn(len(out)-start)
	m.fillRandom(out[start : start+winLen])
	return out
}

func (m *Mutator) mutateScript(s *payload.Script) Outcome {
	if len(s.Args) == 0 {
		return Skipped
	}
	idx := m.rng.Intn(len(s.Args))
	tag := s.Args[idx].Tag

	var width int
	switch tag {
	case payload.TagU8:
		width = 1
	case payload.TagU16:
		width = 2
	case payload.TagU32:
		width = 4
	case payload.TagU64:
		width = 8
	case payload.TagU128:
		width = 16
	case payload.TagU256:
		width = 32
	case payload.TagBool:
		width = 1
	case payload.TagAddress:
		width = 32
	case payload.TagU8Vector:
		// Leave room for the uleb128 length prefix so the encoded value
		// stays within maxArgBytes.
		prefix := len(bcs.EncodeUleb128(uint64(m.maxArgBytes)))
		width = m.rng.Intn(m.maxArgBytes - prefix + 1)
	}

	newVal := make([]byte, width)
	if tag == payload.TagBool {
		if m.rng.Intn(2) == 1 {
			newVal[0] = 1
		}
	} else {
		m.fillRandom(newVal)
	}
	if tag == payload.TagU8Vector {
		newVal = bcs.EncodeBytes(newVal)
	}
	s.SetArgValue(idx, newVal)
	return Mutated
}

// fillRandom fills buf with random bytes, one gofuzz.Fuzz call per byte so
// the content generator (not just the structural decisions above) is
// driven by the deterministic seed.
func (m *Mutator) fillRandom(buf []byte) {
	for i := range buf {
		var b byte
		m.fuzzer.Fuzz(&b)
		buf[i] = b
	}
}
