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
	"fmt"

	"github.com/movefuzz/movefuzz/internal/bcs"
)

// ErrMalformedModule is returned by DecodeModule when the input does not
// parse as a module, as opposed to panicking or returning partial garbage.
var ErrMalformedModule = fmt.Errorf("mvm: malformed module encoding")

// EncodeModule serializes m into the harness's compiled-module wire format:
//
//	address: 32 bytes
//	name: uleb128 length + utf8 bytes
//	constants_count: uleb128; each: 8 bytes little-endian
//	functions_count: uleb128; each function:
//	  name: uleb128 length + utf8 bytes
//	  param_count: uleb128
//	  is_entry: 1 byte (0/1)
//	  code_len: uleb128; code: code_len bytes
func EncodeModule(m *Module) []byte {
	var out []byte
	out = append(out, m.Address[:]...)
	out = append(out, bcs.EncodeBytes([]byte(m.Name))...)

	out = append(out, bcs.EncodeUleb128(uint64(len(m.Constants)))...)
	for _, c := range m.Constants {
		out = append(out, bcs.EncodeUint(c, 8)...)
	}

	out = append(out, bcs.EncodeUleb128(uint64(len(m.Functions)))...)
	for _, f := range m.Functions {
		out = append(out, bcs.EncodeBytes([]byte(f.Name))...)
		out = append(out, bcs.EncodeUleb128(uint64(f.ParamCount))...)
		if f.IsEntry {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
		out = append(out, bcs.EncodeUleb128(uint64(len(f.Code)))...)
		out = append(out, f.Code...)
	}
	return out
}

// DecodeModule parses the wire format EncodeModule produces. It is the only
// place a raw on-disk module's bytes are trusted; the harness never
// re-serializes a module after publish.
func DecodeModule(data []byte) (*Module, error) {
	r := bcs.NewReader(data)

	addr, err := r.ReadAddress()
	if err != nil {
		return nil, fmt.Errorf("%w: address: %v", ErrMalformedModule, err)
	}
	nameBytes, err := r.ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: name: %v", ErrMalformedModule, err)
	}

	constCount, err := r.ReadUleb128()
	if err != nil {
		return nil, fmt.Errorf("%w: constants count: %v", ErrMalformedModule, err)
	}
	consts := make([]uint64, 0, constCount)
	for i := uint64(0); i < constCount; i++ {
		v, err := r.ReadUint(8)
		if err != nil {
			return nil, fmt.Errorf("%w: constant %d: %v", ErrMalformedModule, i, err)
		}
		consts = append(consts, v)
	}

	fnCount, err := r.ReadUleb128()
	if err != nil {
		return nil, fmt.Errorf("%w: function count: %v", ErrMalformedModule, err)
	}
	funcs := make([]Function, 0, fnCount)
	for i := uint64(0); i < fnCount; i++ {
		nameBytes, err := r.ReadBytes()
		if err != nil {
			return nil, fmt.Errorf("%w: function %d name: %v", ErrMalformedModule, i, err)
		}
		paramCount, err := r.ReadUleb128()
		if err != nil {
			return nil, fmt.Errorf("%w: function %d param count: %v", ErrMalformedModule, i, err)
		}
		isEntryByte, err := r.ReadUint(1)
		if err != nil {
			return nil, fmt.Errorf("%w: function %d is_entry: %v", ErrMalformedModule, i, err)
		}
		codeLen, err := r.ReadUleb128()
		if err != nil {
			return nil, fmt.Errorf("%w: function %d code length: %v", ErrMalformedModule, i, err)
		}
		codeBytes, err := r.ReadRaw(int(codeLen))
		if err != nil {
			return nil, fmt.Errorf("%w: function %d code: %v", ErrMalformedModule, i, err)
		}
		if len(codeBytes)%4 != 0 {
			return nil, fmt.Errorf("%w: function %d code length %d not a multiple of 4", ErrMalformedModule, i, len(codeBytes))
		}
		funcs = append(funcs, Function{
			Name:       string(nameBytes),
			Code:       codeBytes,
			ParamCount: int(paramCount),
			IsEntry:    isEntryByte != 0,
		})
	}

	return &Module{
		Address:   addr,
		Name:      string(nameBytes),
		Functions: funcs,
		Constants: consts,
	}, nil
}
