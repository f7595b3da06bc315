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

package calldata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

const (
	feltType     = "felt"
	arraySuffix  = "*"
	lengthSuffix = "_len"
)

var (
	ErrCodec               = errors.New("calldata error")
	ErrTooFewArguments     = fmt.Errorf("%w: too few function arguments", ErrCodec)
	ErrArrayLengthPosition = fmt.Errorf("%w: array length out of position", ErrCodec)
	ErrUnsupportedType     = fmt.Errorf("%w: unsupported type", ErrCodec)
)

func tooFewArguments(provided int) error {
	return fmt.Errorf("%w provided: %d", ErrTooFewArguments, provided)
}

// Adapt converts flat calldata into the structured values expected by inputs.
//
// Every array input must directly follow an input named "<array>_len"; the
// length placeholder already emitted for it is replaced by the array itself.
// Structs are looked up in types, tuples are written as "(t1, t2, ...)".
func Adapt(calldata []uint256.Int, inputs []Member, types TypeTable) ([]Value, error) {
	var (
		lastName  string
		lastValue uint256.Int
		pos       int
	)
	adapted := make([]Value, 0, len(inputs))
	for _, input := range inputs {
		if pos >= len(calldata) {
			if isArray(input.Type) && lastName == input.Name+lengthSuffix && lastValue.IsZero() {
				// zero length array, nothing left to consume
				adapted[len(adapted)-1] = ArrayValue()
				continue
			}
			return nil, tooFewArguments(len(calldata))
		}
		inputValue := calldata[pos]

		switch {
		case isArray(input.Type):
			if lastName != input.Name+lengthSuffix {
				return nil, fmt.Errorf("%w: array size argument %q must appear right before %q",
					ErrArrayLengthPosition, lastName, input.Name)
			}
			arr, next, err := adaptArray(calldata, pos, strings.TrimSuffix(input.Type, arraySuffix), lastValue, types)
			if err != nil {
				return nil, err
			}
			adapted[len(adapted)-1] = arr
			pos = next
		case input.Type == feltType:
			adapted = append(adapted, FeltValue(inputValue))
			pos++
		default:
			complexValue, next, err := adaptComplex(calldata, pos, input.Type, types)
			if err != nil {
				return nil, err
			}
			adapted = append(adapted, complexValue)
			pos = next
		}

		lastName = input.Name
		lastValue = inputValue
	}
	return adapted, nil
}

func adaptArray(calldata []uint256.Int, pos int, elemType string, length uint256.Int, types TypeTable) (Value, int, error) {
	if !length.IsUint64() || length.Uint64() > uint64(len(calldata)-pos) {
		return Value{}, pos, tooFewArguments(len(calldata))
	}
	n := int(length.Uint64())
	arr := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		elem, next, err := adaptComplex(calldata, pos, elemType, types)
		if err != nil {
			return Value{}, pos, err
		}
		arr = append(arr, elem)
		pos = next
	}
	return ArrayValue(arr...), pos, nil
}

// adaptComplex consumes a felt, a struct or a tuple starting at pos and
// returns it together with the advanced position
func adaptComplex(calldata []uint256.Int, pos int, typ string, types TypeTable) (Value, int, error) {
	if typ == feltType {
		if pos >= len(calldata) {
			return Value{}, pos, tooFewArguments(len(calldata))
		}
		return FeltValue(calldata[pos]), pos + 1, nil
	}

	var memberTypes []string
	if isTuple(typ) {
		memberTypes = splitTuple(typ)
	} else {
		members, ok := types[typ]
		if !ok {
			return Value{}, pos, fmt.Errorf("%w: %s", ErrUnsupportedType, typ)
		}
		memberTypes = make([]string, len(members))
		for i, m := range members {
			memberTypes[i] = m.Type
		}
	}

	elems := make([]Value, 0, len(memberTypes))
	for _, memberType := range memberTypes {
		elem, next, err := adaptComplex(calldata, pos, memberType, types)
		if err != nil {
			return Value{}, pos, err
		}
		elems = append(elems, elem)
		pos = next
	}
	return TupleValue(elems...), pos, nil
}

func isArray(typ string) bool {
	return strings.HasSuffix(typ, arraySuffix)
}

func isTuple(typ string) bool {
	return strings.HasPrefix(typ, "(") && strings.HasSuffix(typ, ")")
}

// splitTuple splits "(a, (b, c), d)" into its top level member types
func splitTuple(typ string) []string {
	inner := typ[1 : len(typ)-1]
	var (
		members []string
		depth   int
		start   int
	)
	for i, r := range inner {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				members = append(members, strings.TrimSpace(inner[start:i]))
				start = i + 1
			}
		}
	}
	if last := strings.TrimSpace(inner[start:]); last != "" {
		members = append(members, last)
	}
	return members
}
