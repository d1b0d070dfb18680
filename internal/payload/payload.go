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

// Package payload defines the transaction envelopes the fuzzer schedules,
// mutates, and executes. A Payload's structural shape — its variant,
// module/function identity, type arguments, and per-argument tags — is
// fixed for its lifetime; only argument contents may be replaced, which is
// exactly the surface the mutator is allowed to touch.
package payload

// Kind discriminates the two payload variants with a byte discriminator.
// Code that needs a variant's own fields (the executor, the mutator)
// type-switches on the concrete *EntryFunction / *Script type.
type Kind uint8

const (
	KindEntryFunction Kind = iota
	KindScript
)

func (k Kind) String() string {
	switch k {
	case KindEntryFunction:
		return "entry_function"
	case KindScript:
		return "script"
	default:
		return "unknown"
	}
}

// Payload is the common interface implemented by EntryFunction and Script.
// Clone must deep-copy everything, including argument byte slices, so the
// mutator can perturb a clone without aliasing the scheduled original.
type Payload interface {
	Kind() Kind
	Clone() Payload
	ArgCount() int
}

// ArgTag identifies the Move scalar type of one Script argument. The tag is
// part of a Script's immutable shape: the mutator may replace an argument's
// value but never its tag.
type ArgTag uint8

const (
	TagU8 ArgTag = iota
	TagU16
	TagU32
	TagU64
	TagU128
	TagU256
	TagBool
	TagAddress
	TagU8Vector
)

func (t ArgTag) String() string {
	switch t {
	case TagU8:
		return "u8"
	case TagU16:
		return "u16"
	case TagU32:
		return "u32"
	case TagU64:
		return "u64"
	case TagU128:
		return "u128"
	case TagU256:
		return "u256"
	case TagBool:
		return "bool"
	case TagAddress:
		return "address"
	case TagU8Vector:
		return "vector<u8>"
	default:
		return "unknown"
	}
}

// EntryFunction names a published module's entry function and carries one
// opaque, BCS-encoded byte blob per formal parameter. The harness's
// deserializer — not the mutator — is responsible for rejecting a blob that
// no longer decodes against its parameter type.
type EntryFunction struct {
	ModuleAddress [32]byte
	ModuleName    string
	FunctionName  string
	TypeArgs      []string
	Args          [][]byte
}

func (e *EntryFunction) Kind() Kind    { return KindEntryFunction }
func (e *EntryFunction) ArgCount() int { return len(e.Args) }

// Arg returns the raw byte blob for argument i.
func (e *EntryFunction) Arg(i int) []byte { return e.Args[i] }

// SetArg replaces the byte blob for argument i in place.
func (e *EntryFunction) SetArg(i int, b []byte) { e.Args[i] = b }

// Clone deep-copies the EntryFunction, including every argument blob.
func (e *EntryFunction) Clone() Payload {
	cp := &EntryFunction{
		ModuleAddress: e.ModuleAddress,
		ModuleName:    e.ModuleName,
		FunctionName:  e.FunctionName,
		TypeArgs:      append([]string(nil), e.TypeArgs...),
		Args:          make([][]byte, len(e.Args)),
	}
	for i, a := range e.Args {
		cp.Args[i] = append([]byte(nil), a...)
	}
	return cp
}

// ScriptArg is one tagged scalar argument of a Script payload. Value holds
// the scalar's raw bytes in the same encoding bcs would produce for that
// tag (little-endian fixed-width for integers, 32 bytes for addresses, a
// length-prefixed byte run for vector<u8>).
type ScriptArg struct {
	Tag   ArgTag
	Value []byte
}

// Script is a standalone transaction script plus its tagged arguments.
// Unlike EntryFunction, each argument carries its own scalar tag so the
// mutator can generate a same-tag replacement instead of arbitrary bytes.
type Script struct {
	Code     []byte
	TypeArgs []string
	Args     []ScriptArg
}

func (s *Script) Kind() Kind    { return KindScript }
func (s *Script) ArgCount() int { return len(s.Args) }

// SetArgValue replaces the value bytes of argument i, preserving its tag.
func (s *Script) SetArgValue(i int, v []byte) { s.Args[i].Value = v }

// Clone deep-copies the Script, including its bytecode and every argument.
func (s *Script) Clone() Payload {
	cp := &Script{
		Code:     append([]byte(nil), s.Code...),
		TypeArgs: append([]string(nil), s.TypeArgs...),
		Args:     make([]ScriptArg, len(s.Args)),
	}
	for i, a := range s.Args {
		cp.Args[i] = ScriptArg{Tag: a.Tag, Value: append([]byte(nil), a.Value...)}
	}
	return cp
}
