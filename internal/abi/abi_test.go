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

package abi

import (
	"testing"

	"github.com/movefuzz/movefuzz/internal/bcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestEntryFunction(t *testing.T, moduleName, fnName string, typeParams []string, params []bcs.ParamType) []byte {
	t.Helper()
	var out []byte
	out = append(out, 0) // KindEntryFunction
	out = append(out, make([]byte, 32)...)
	out = append(out, bcs.EncodeBytes([]byte(moduleName))...)
	out = append(out, bcs.EncodeBytes([]byte(fnName))...)
	out = append(out, bcs.EncodeUleb128(uint64(len(typeParams)))...)
	for _, tp := range typeParams {
		out = append(out, bcs.EncodeBytes([]byte(tp))...)
	}
	out = append(out, bcs.EncodeUleb128(uint64(len(params)))...)
	for _, p := range params {
		out = append(out, byte(p))
	}
	return out
}

func TestDecodeEntryFunction(t *testing.T) {
	data := encodeTestEntryFunction(t, "coin", "transfer", nil, []bcs.ParamType{bcs.Address, bcs.U64})
	fn, ok, err := Decode(data)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "coin", fn.ModuleName)
	assert.Equal(t, "transfer", fn.FunctionName)
	assert.Equal(t, []bcs.ParamType{bcs.Address, bcs.U64}, fn.Params)
}

func TestDecodeNonEntryFunctionIsSkipped(t *testing.T) {
	data := []byte{1} // kind != 0
	fn, ok, err := Decode(data)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, fn)
}

func TestDecodeTruncatedReturnsError(t *testing.T) {
	_, _, err := Decode([]byte{})
	assert.Error(t, err)
}
