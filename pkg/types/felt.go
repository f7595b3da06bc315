package types

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ParseFelt parses a felt given in hex (0x prefixed) or decimal notation
func ParseFelt(s string) (uint256.Int, error) {
	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	}
	b, ok := new(big.Int).SetString(digits, base)
	if !ok || b.Sign() < 0 {
		return uint256.Int{}, fmt.Errorf("invalid felt %q", s)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return uint256.Int{}, fmt.Errorf("felt %q overflows 256 bits", s)
	}
	return *v, nil
}

// ParseFelts parses every element of ss with ParseFelt
func ParseFelts(ss []string) ([]uint256.Int, error) {
	felts := make([]uint256.Int, len(ss))
	for i, s := range ss {
		f, err := ParseFelt(s)
		if err != nil {
			return nil, err
		}
		felts[i] = f
	}
	return felts, nil
}

// FeltHex renders a felt as minimal 0x-prefixed hex
func FeltHex(v uint256.Int) string {
	return v.Hex()
}

// FeltsHex renders every felt with FeltHex
func FeltsHex(vs []uint256.Int) []string {
	out := make([]string, len(vs))
	for i := range vs {
		out[i] = FeltHex(vs[i])
	}
	return out
}

// FeltsDecimal renders every felt in base 10
func FeltsDecimal(vs []uint256.Int) []string {
	out := make([]string, len(vs))
	for i := range vs {
		out[i] = vs[i].ToBig().String()
	}
	return out
}

// FeltToHash widens a felt into a fixed-length hash
func FeltToHash(v uint256.Int) common.Hash {
	return common.Hash(v.Bytes32())
}

// HashToFelt narrows a hash into a felt
func HashToFelt(h common.Hash) uint256.Int {
	var v uint256.Int
	v.SetBytes32(h[:])
	return v
}
