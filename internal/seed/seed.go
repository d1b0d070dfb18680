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

// Package seed synthesizes minimal default-valued transaction payloads from
// entry-function ABIs: numeric scalars become zero, booleans false,
// addresses the zero address, and byte vectors empty. ABIs carrying an
// unsupported (struct or generic) parameter type are skipped rather than
// guessed at — the gap is counted so callers can log and report it instead
// of silently under-seeding.
package seed

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/movefuzz/movefuzz/internal/abi"
	"github.com/movefuzz/movefuzz/internal/bcs"
	"github.com/movefuzz/movefuzz/internal/payload"
)

// Result bundles the synthesized payloads with the count of ABIs skipped
// for carrying an unsupported parameter type, per the Design Notes'
// instruction to make the seeding type-coverage gap observable.
type Result struct {
	Payloads []payload.Payload
	Skipped  int
}

// FromABIs synthesizes one default-valued EntryFunction payload per entry
// in abis that contains only supported scalar parameter types.
func FromABIs(abis []abi.EntryFunction) Result {
	var res Result
	for _, a := range abis {
		p, ok := synthesize(a)
		if !ok {
			res.Skipped++
			log.Warn("skipping seed ABI with unsupported parameter type",
				"module", a.ModuleName, "function", a.FunctionName)
			continue
		}
		res.Payloads = append(res.Payloads, p)
	}
	return res
}

func synthesize(a abi.EntryFunction) (payload.Payload, bool) {
	args := make([][]byte, len(a.Params))
	for i, pt := range a.Params {
		blob, ok := bcs.EncodeDefault(pt)
		if !ok {
			return nil, false
		}
		args[i] = blob
	}
	return &payload.EntryFunction{
		ModuleAddress: a.ModuleAddress,
		ModuleName:    a.ModuleName,
		FunctionName:  a.FunctionName,
		TypeArgs:      append([]string(nil), a.TypeParams...),
		Args:          args,
	}, true
}
