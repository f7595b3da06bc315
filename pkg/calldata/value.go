// Copyright © 2022 Vulcanize, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package calldata converts between the flat felt lists clients send and
// receive and the structured values contract functions take and return.
package calldata

import (
	"github.com/holiman/uint256"
)

// Kind tags the shape of a Value
type Kind uint8

const (
	Felt Kind = iota
	Array
	Tuple
)

func (k Kind) String() string {
	switch k {
	case Felt:
		return "felt"
	case Array:
		return "array"
	case Tuple:
		return "tuple"
	default:
		return "unknown"
	}
}

// Value is a felt, an array of values or a tuple of values.
// Arrays are length-prefixed when flattened; tuples and structs are not.
type Value struct {
	Kind  Kind
	Felt  uint256.Int
	Elems []Value
}

// FeltValue wraps a single felt
func FeltValue(v uint256.Int) Value {
	return Value{Kind: Felt, Felt: v}
}

// Uint64Value wraps a small integer as a felt
func Uint64Value(v uint64) Value {
	return FeltValue(*uint256.NewInt(v))
}

// ArrayValue builds a dynamically sized array
func ArrayValue(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{Kind: Array, Elems: elems}
}

// TupleValue builds a struct or tuple
func TupleValue(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{Kind: Tuple, Elems: elems}
}

// Flatten emits values left to right as a flat felt list.
// The top level list is treated as a tuple, so it carries no length prefix.
func Flatten(values []Value) []uint256.Int {
	out := make([]uint256.Int, 0, len(values))
	for _, v := range values {
		out = v.flatten(out)
	}
	return out
}

func (v Value) flatten(out []uint256.Int) []uint256.Int {
	switch v.Kind {
	case Felt:
		return append(out, v.Felt)
	case Array:
		out = append(out, *uint256.NewInt(uint64(len(v.Elems))))
	}
	for _, elem := range v.Elems {
		out = elem.flatten(out)
	}
	return out
}

// FlattenHex is Flatten rendered as 0x-prefixed hex strings
func FlattenHex(values []Value) []string {
	flat := Flatten(values)
	out := make([]string, len(flat))
	for i := range flat {
		out[i] = flat[i].Hex()
	}
	return out
}
