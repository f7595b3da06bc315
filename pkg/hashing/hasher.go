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

// Package hashing holds the identity functions of transactions, blocks and
// entry points. The ledger only ever calls them over fully assembled inputs.
package hashing

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/cerc-io/devnet-ledger/pkg/types"
)

const (
	deployPrefix = "deploy"
	invokePrefix = "invoke"
	blockPrefix  = "block"
	classPrefix  = "class"
)

// BlockHeader holds everything a block hash commits to
type BlockHeader struct {
	ParentHash   common.Hash
	Number       uint64
	StateRoot    common.Hash
	Timestamp    uint64
	TxHashes     []common.Hash
	TxSignatures [][]common.Hash
}

// Hasher computes the deterministic identities used by the ledger
type Hasher interface {
	DeployTransactionHash(contractAddress common.Hash, constructorCalldata []uint256.Int, chainID string) common.Hash
	InvokeTransactionHash(contractAddress, selector common.Hash, calldata []uint256.Int, maxFee uint256.Int, chainID string) common.Hash
	BlockHash(header BlockHeader) common.Hash
	Selector(name string) common.Hash
	ClassHash(definition *types.ContractDefinition) common.Hash
}

// Keccak hashes the rlp encoding of the canonical fields with keccak256,
// truncated to 250 bits so every result fits in a felt
type Keccak struct{}

// NewKeccak returns the default hasher
func NewKeccak() Hasher {
	return Keccak{}
}

func (Keccak) DeployTransactionHash(contractAddress common.Hash, constructorCalldata []uint256.Int, chainID string) common.Hash {
	return rlpHash([]interface{}{deployPrefix, contractAddress, feltHashes(constructorCalldata), chainID})
}

func (Keccak) InvokeTransactionHash(contractAddress, selector common.Hash, calldata []uint256.Int, maxFee uint256.Int, chainID string) common.Hash {
	return rlpHash([]interface{}{invokePrefix, contractAddress, selector, feltHashes(calldata), types.FeltToHash(maxFee), chainID})
}

func (Keccak) BlockHash(header BlockHeader) common.Hash {
	return rlpHash([]interface{}{blockPrefix, header.ParentHash, header.Number, header.StateRoot, header.Timestamp, header.TxHashes, header.TxSignatures})
}

// Selector is the keccak of the entry point name, truncated to 250 bits
func (Keccak) Selector(name string) common.Hash {
	return truncate(crypto.Keccak256Hash([]byte(name)))
}

func (Keccak) ClassHash(definition *types.ContractDefinition) common.Hash {
	return rlpHash([]interface{}{classPrefix, []byte(definition.Abi), []byte(definition.EntryPointsByType), []byte(definition.Program)})
}

// rlpHash hashes the rlp encoding of x. Every preimage built here is encodable,
// so an encoding error is a programming error.
func rlpHash(x interface{}) common.Hash {
	enc, err := rlp.EncodeToBytes(x)
	if err != nil {
		panic(fmt.Sprintf("rlp encode hash preimage: %v", err))
	}
	return truncate(crypto.Keccak256Hash(enc))
}

func truncate(h common.Hash) common.Hash {
	h[0] &= 0x03
	return h
}

func feltHashes(felts []uint256.Int) []common.Hash {
	hashes := make([]common.Hash, len(felts))
	for i := range felts {
		hashes[i] = types.FeltToHash(felts[i])
	}
	return hashes
}
