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

package mutate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movefuzz/movefuzz/internal/payload"
)

func TestMutateEntryFunctionPreservesShape(t *testing.T) {
	m := New(1, Config{MaxArgBytes: 64})
	p := &payload.EntryFunction{
		ModuleName:   "coin",
		FunctionName: "transfer",
		TypeArgs:     []string{"0x1::aptos_coin::AptosCoin"},
		Args:         [][]byte{{1, 2, 3}, {4, 5, 6, 7}},
	}

	outcome := m.Mutate(p)
	assert.Equal(t, Mutated, outcome)
	assert.Equal(t, "coin", p.ModuleName)
	assert.Equal(t, "transfer", p.FunctionName)
	assert.Equal(t, []string{"0x1::aptos_coin::AptosCoin"}, p.TypeArgs)
	assert.Len(t, p.Args, 2, "argument count must be unchanged")
}

func TestMutateEntryFunctionSkipsWithNoArgs(t *testing.T) {
	m := New(1, Config{MaxArgBytes: 64})
	p := &payload.EntryFunction{FunctionName: "no_args"}
	assert.Equal(t, Skipped, m.Mutate(p))
}

func TestMutateScriptPreservesTags(t *testing.T) {
	m := New(2, Config{MaxArgBytes: 64})
	p := &payload.Script{
		Args: []payload.ScriptArg{
			{Tag: payload.TagU64, Value: make([]byte, 8)},
			{Tag: payload.TagAddress, Value: make([]byte, 32)},
		},
	}

	for i := 0; i < 20; i++ {
		outcome := m.Mutate(p)
		require.Equal(t, Mutated, outcome)
	}

	assert.Equal(t, payload.TagU64, p.Args[0].Tag)
	assert.Len(t, p.Args[0].Value, 8)
	assert.Equal(t, payload.TagAddress, p.Args[1].Tag)
	assert.Len(t, p.Args[1].Value, 32)
}

func TestMutateScriptVectorU8StaysWithinBound(t *testing.T) {
	m := New(3, Config{MaxArgBytes: 16})
	p := &payload.Script{
		Args: []payload.ScriptArg{{Tag: payload.TagU8Vector, Value: nil}},
	}

	for i := 0; i < 20; i++ {
		m.Mutate(p)
		assert.LessOrEqual(t, len(p.Args[0].Value), 16)
	}
}

func TestNonPositiveResizeProbabilityFallsBackToDefault(t *testing.T) {
	build := func() *payload.EntryFunction {
		return &payload.EntryFunction{Args: [][]byte{{1, 2, 3, 4, 5}}}
	}

	explicit := New(7, Config{MaxArgBytes: 64, ResizeProbability: DefaultResizeProbability})
	pExplicit := build()
	explicit.Mutate(pExplicit)

	negative := New(7, Config{MaxArgBytes: 64, ResizeProbability: -1})
	pNegative := build()
	negative.Mutate(pNegative)

	assert.Equal(t, pExplicit.Args, pNegative.Args, "ResizeProbability <= 0 must select DefaultResizeProbability")
}

func TestResizeProbabilityOneAlwaysResizes(t *testing.T) {
	m := New(7, Config{MaxArgBytes: 64, ResizeProbability: 1})
	p := &payload.EntryFunction{Args: [][]byte{{1, 2, 3, 4}}}

	changed := false
	for i := 0; i < 20; i++ {
		m.Mutate(p)
		if len(p.Args[0]) != 4 {
			changed = true
			break
		}
	}
	assert.True(t, changed, "ResizeProbability=1 should eventually change the argument's length")
}

func TestMutateIsDeterministicGivenSameSeed(t *testing.T) {
	seed := int64(42)
	build := func() *payload.EntryFunction {
		return &payload.EntryFunction{Args: [][]byte{{1, 2, 3, 4, 5}}}
	}

	m1 := New(seed, Config{MaxArgBytes: 64})
	p1 := build()
	m1.Mutate(p1)

	m2 := New(seed, Config{MaxArgBytes: 64})
	p2 := build()
	m2.Mutate(p2)

	assert.Equal(t, p1.Args, p2.Args)
}
