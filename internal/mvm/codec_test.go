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

package mvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeModuleRoundTrip(t *testing.T) {
	m := &Module{
		Name:      "magic",
		Constants: []uint64{1, 2, 3},
		Functions: []Function{
			{Name: "main", Code: program(instr(OpHalt, 1, 0, 0)), ParamCount: 1, IsEntry: true},
			{Name: "helper", Code: program(instr(OpReturn, 1, 0, 0)), ParamCount: 0, IsEntry: false},
		},
	}
	m.Address[0] = 0xAB

	encoded := EncodeModule(m)
	decoded, err := DecodeModule(encoded)
	require.NoError(t, err)

	assert.Equal(t, m.Address, decoded.Address)
	assert.Equal(t, m.Name, decoded.Name)
	assert.Equal(t, m.Constants, decoded.Constants)
	require.Len(t, decoded.Functions, 2)
	assert.Equal(t, m.Functions[0], decoded.Functions[0])
	assert.Equal(t, m.Functions[1], decoded.Functions[1])
}

func TestDecodeModuleRejectsTruncatedInput(t *testing.T) {
	_, err := DecodeModule([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrMalformedModule)
}

func TestDecodeModuleRejectsNonMultipleOfFourCode(t *testing.T) {
	m := &Module{
		Name: "bad",
		Functions: []Function{
			{Name: "main", Code: []byte{1, 2, 3}, IsEntry: true},
		},
	}
	encoded := EncodeModule(m)
	_, err := DecodeModule(encoded)
	assert.ErrorIs(t, err, ErrMalformedModule)
}
