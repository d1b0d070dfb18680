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

// Package bcs implements the small slice of the Binary Canonical
// Serialization format the harness needs to encode default-valued seed
// arguments and decode entry-function argument blobs against their formal
// parameter types: little-endian fixed-width integers, a single byte for
// bool, a 32-byte fixed array for address, and a uleb128-length-prefixed
// byte run for vector<u8>.
package bcs

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncated is returned when a decode reads past the end of the input.
var ErrTruncated = errors.New("bcs: truncated input")

// ErrMalformedUleb128 is returned when a uleb128 length prefix is malformed
// (more than 9 continuation bytes, i.e. it cannot fit in a uint64).
var ErrMalformedUleb128 = errors.New("bcs: malformed uleb128")

// ParamType enumerates the Move value types the harness understands. Types
// outside this set (structs, generics, signer) are reported as Unsupported
// so the seeder can skip them with a countable, logged gap.
type ParamType uint8

const (
	U8 ParamType = iota
	U16
	U32
	U64
	U128
	U256
	Bool
	Address
	VectorU8
	Unsupported
)

func (t ParamType) String() string {
	switch t {
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case U128:
		return "u128"
	case U256:
		return "u256"
	case Bool:
		return "bool"
	case Address:
		return "address"
	case VectorU8:
		return "vector<u8>"
	default:
		return "unsupported"
	}
}

// FixedWidth returns the encoded byte width of fixed-size scalar types, or
// 0 for VectorU8 (which is variable-length) and Unsupported.
func (t ParamType) FixedWidth() int {
	switch t {
	case U8:
		return 1
	case U16:
		return 2
	case U32:
		return 4
	case U64:
		return 8
	case U128:
		return 16
	case U256:
		return 32
	case Bool:
		return 1
	case Address:
		return 32
	default:
		return 0
	}
}

// ---- Encoding ---------------------------------------------------------------

// EncodeUint encodes v into a little-endian blob of the given byte width.
func EncodeUint(v uint64, width int) []byte {
	buf := make([]byte, width)
	for i := 0; i < width && i < 8; i++ {
		buf[i] = byte(v >> (8 * uint(i)))
	}
	return buf
}

// EncodeBool encodes a bool as a single byte, 0 or 1.
func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// EncodeAddress returns the 32-byte address unchanged (BCS encodes a fixed
// array with no length prefix).
func EncodeAddress(addr [32]byte) []byte {
	out := make([]byte, 32)
	copy(out, addr[:])
	return out
}

// EncodeBytes encodes a byte vector as a uleb128 length prefix followed by
// the raw bytes, matching BCS's vector<u8> encoding.
func EncodeBytes(data []byte) []byte {
	out := EncodeUleb128(uint64(len(data)))
	return append(out, data...)
}

// EncodeUleb128 returns the unsigned LEB128 encoding of v.
func EncodeUleb128(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

// ---- Decoding -----------------------------------------------------------

// Reader decodes a sequence of BCS-encoded values from a byte slice,
// tracking its own read offset.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data for sequential decoding.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, r.Remaining())
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadUint reads a little-endian unsigned integer of the given byte width
// and returns its low 64 bits. Widths above 8 are valid (u128/u256) but
// only the low 8 bytes are retained, since the VM's registers are 64-bit —
// values beyond that range are still consumed from the stream so the
// cursor stays correctly positioned for subsequent arguments.
func (r *Reader) ReadUint(width int) (uint64, error) {
	b, err := r.take(width)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < width && i < 8; i++ {
		v |= uint64(b[i]) << (8 * uint(i))
	}
	return v, nil
}

// ReadBool reads a single-byte boolean. Any byte other than 0 or 1 is
// malformed per strict BCS, and the harness treats it as a truncation-style
// decode error
// so the executor's "malformed blob -> swallow" policy covers it uniformly.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.take(1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: invalid bool byte 0x%02x", ErrTruncated, b[0])
	}
}

// ReadAddress reads a fixed 32-byte address.
func (r *Reader) ReadAddress() ([32]byte, error) {
	var addr [32]byte
	b, err := r.take(32)
	if err != nil {
		return addr, err
	}
	copy(addr[:], b)
	return addr, nil
}

// ReadUleb128 reads an unsigned LEB128 varint.
func (r *Reader) ReadUleb128() (uint64, error) {
	var v uint64
	for shift := uint(0); shift < 64; shift += 7 {
		b, err := r.take(1)
		if err != nil {
			return 0, err
		}
		v |= uint64(b[0]&0x7F) << shift
		if b[0]&0x80 == 0 {
			return v, nil
		}
	}
	return 0, ErrMalformedUleb128
}

// ReadBytes reads a uleb128-length-prefixed byte vector.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadUleb128()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}

// ReadRaw reads exactly n unprefixed bytes, with no length decoding. Used
// for fields whose length was already read separately (e.g. a module's
// bytecode, prefixed by its own length field rather than a generic BCS
// vector).
func (r *Reader) ReadRaw(n int) ([]byte, error) {
	return r.take(n)
}

// DecodeScalar decodes a single formal argument blob against its declared
// parameter type, returning the value reduced to a uint64 (VM registers
// hold one 64-bit word, so wide scalars and composite values are projected
// down to their low-order bits / a representative word for instrumentation
// purposes; see ReadUint for the width>8 policy).
func DecodeScalar(t ParamType, blob []byte) (uint64, error) {
	r := NewReader(blob)
	var v uint64
	var err error
	switch t {
	case U8, U16, U32, U64, U128, U256:
		v, err = r.ReadUint(t.FixedWidth())
	case Bool:
		var b bool
		b, err = r.ReadBool()
		if b {
			v = 1
		}
	case Address:
		var addr [32]byte
		addr, err = r.ReadAddress()
		v = binary.LittleEndian.Uint64(addr[:8])
	case VectorU8:
		var data []byte
		data, err = r.ReadBytes()
		v = uint64(len(data))
	default:
		return 0, fmt.Errorf("bcs: cannot decode unsupported parameter type")
	}
	if err != nil {
		return 0, err
	}
	if r.Remaining() != 0 {
		return 0, fmt.Errorf("%w: %d trailing bytes after decoding %s", ErrTruncated, r.Remaining(), t)
	}
	return v, nil
}

// EncodeDefault returns the canonical default-valued encoding for t: zero
// for numerics, false for bool, the zero address, and an empty vector.
// Unsupported types return (nil, false).
func EncodeDefault(t ParamType) ([]byte, bool) {
	switch t {
	case U8, U16, U32, U64, U128, U256:
		return EncodeUint(0, t.FixedWidth()), true
	case Bool:
		return EncodeBool(false), true
	case Address:
		return EncodeAddress([32]byte{}), true
	case VectorU8:
		return EncodeBytes(nil), true
	default:
		return nil, false
	}
}
