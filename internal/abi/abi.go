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

// Package abi parses entry-function metadata: the module address, module
// name, function name, type parameter names, and formal parameter types the
// seeder uses to synthesize default-valued payloads and the executor uses
// to decode argument blobs. Only entry-function descriptions are kept —
// other ABI kinds (view functions, structs) are reported as skipped so the
// caller can log and continue per the harness's "never fail startup over
// one bad ABI file" policy.
package abi

import (
	"fmt"

	"github.com/movefuzz/movefuzz/internal/bcs"
)

// Kind distinguishes the ABI entries the on-disk format may describe. Only
// KindEntryFunction is consumed; everything else is skipped.
type Kind uint8

const (
	KindEntryFunction Kind = iota
	KindOther
)

// EntryFunction is the parsed metadata for one entry function.
type EntryFunction struct {
	ModuleAddress [32]byte
	ModuleName    string
	FunctionName  string
	TypeParams    []string
	Params        []bcs.ParamType
}

// wireTag values identify each ParamType in the on-disk ABI encoding. Kept
// distinct from bcs.ParamType's own int values so the file format doesn't
// silently break if the in-memory enum is ever reordered.
var wireTagToParamType = map[byte]bcs.ParamType{
	0: bcs.U8,
	1: bcs.U16,
	2: bcs.U32,
	3: bcs.U64,
	4: bcs.U128,
	5: bcs.U256,
	6: bcs.Bool,
	7: bcs.Address,
	8: bcs.VectorU8,
	9: bcs.Unsupported,
}

// Decode parses one ABI file's contents. The format is:
//
//	kind:1 (0 = entry function, nonzero = other/skip)
//	[if entry function]
//	module_address: 32 bytes
//	module_name: uleb128 length + utf8 bytes
//	function_name: uleb128 length + utf8 bytes
//	type_param_count: uleb128; each: uleb128 length + utf8 bytes
//	param_count: uleb128; each: 1 wire-tag byte
//
// Decode returns (nil, false, nil) when the file describes a non-entry-function
// ABI kind, letting the caller skip it with a warning rather than treat the
// file as malformed.
func Decode(data []byte) (*EntryFunction, bool, error) {
	r := bcs.NewReader(data)

	kindByte, err := r.ReadUint(1)
	if err != nil {
		return nil, false, fmt.Errorf("abi: reading kind: %w", err)
	}
	if Kind(kindByte) != KindEntryFunction {
		return nil, false, nil
	}

	addr, err := r.ReadAddress()
	if err != nil {
		return nil, false, fmt.Errorf("abi: reading module address: %w", err)
	}
	moduleName, err := readString(r)
	if err != nil {
		return nil, false, fmt.Errorf("abi: reading module name: %w", err)
	}
	functionName, err := readString(r)
	if err != nil {
		return nil, false, fmt.Errorf("abi: reading function name: %w", err)
	}

	typeParamCount, err := r.ReadUleb128()
	if err != nil {
		return nil, false, fmt.Errorf("abi: reading type param count: %w", err)
	}
	typeParams := make([]string, 0, typeParamCount)
	for i := uint64(0); i < typeParamCount; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, false, fmt.Errorf("abi: reading type param %d: %w", i, err)
		}
		typeParams = append(typeParams, name)
	}

	paramCount, err := r.ReadUleb128()
	if err != nil {
		return nil, false, fmt.Errorf("abi: reading param count: %w", err)
	}
	params := make([]bcs.ParamType, 0, paramCount)
	for i := uint64(0); i < paramCount; i++ {
		tagByte, err := r.ReadUint(1)
		if err != nil {
			return nil, false, fmt.Errorf("abi: reading param %d tag: %w", i, err)
		}
		pt, ok := wireTagToParamType[byte(tagByte)]
		if !ok {
			pt = bcs.Unsupported
		}
		params = append(params, pt)
	}

	return &EntryFunction{
		ModuleAddress: addr,
		ModuleName:    moduleName,
		FunctionName:  functionName,
		TypeParams:    typeParams,
		Params:        params,
	}, true, nil
}

func readString(r *bcs.Reader) (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
