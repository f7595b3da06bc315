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

package devnet

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"

	"github.com/cerc-io/devnet-ledger/pkg/engine"
	"github.com/cerc-io/devnet-ledger/pkg/origin"
	"github.com/cerc-io/devnet-ledger/pkg/types"
)

const dumpVersion = 1

var dumpMagic = []byte("DVNL")

// ledgerDump is the rlp image of a ledger. Maps become slices ordered by key.
type ledgerDump struct {
	Root           common.Hash
	States         []contractStateDump
	Contracts      []contractDump
	Transactions   []*txRecord
	Blocks         []*blockRecord
	StateUpdates   []types.StateUpdate
	OriginBlocks   uint64
	OriginHead     common.Hash
	L2ToL1Log      []types.L2ToL1Message
	ConsumedL2ToL1 uint64
}

type contractStateDump struct {
	Address  common.Hash
	CodeHash common.Hash
	Storage  []types.StorageEntry
}

type contractDump struct {
	Address           common.Hash
	Abi               []byte
	EntryPointsByType []byte
	Program           []byte
}

// MarshalBinary encodes the whole ledger: rlp, snappy compressed, behind a magic and version header
func (l *Ledger) MarshalBinary() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	d := ledgerDump{
		Root:           l.current.Root,
		OriginBlocks:   l.originBlocks,
		OriginHead:     l.originHead,
		L2ToL1Log:      l.l2ToL1Log,
		ConsumedL2ToL1: l.consumedL2ToL1,
		Blocks:         l.blocks,
	}
	for _, address := range l.current.SortedAddresses() {
		state := l.current.Contracts[address]
		keys := make([]common.Hash, 0, len(state.Storage))
		for key := range state.Storage {
			keys = append(keys, key)
		}
		types.SortHashes(keys)
		entries := make([]types.StorageEntry, len(keys))
		for i, key := range keys {
			entries[i] = types.StorageEntry{Key: key, Value: state.Storage[key]}
		}
		d.States = append(d.States, contractStateDump{Address: address, CodeHash: state.CodeHash, Storage: entries})
	}
	addresses := make([]common.Hash, 0, len(l.contracts))
	for address := range l.contracts {
		addresses = append(addresses, address)
	}
	types.SortHashes(addresses)
	for _, address := range addresses {
		def := l.contracts[address].Definition
		d.Contracts = append(d.Contracts, contractDump{
			Address:           address,
			Abi:               def.Abi,
			EntryPointsByType: def.EntryPointsByType,
			Program:           def.Program,
		})
	}
	hashes := make([]common.Hash, 0, len(l.transactions))
	for hash := range l.transactions {
		hashes = append(hashes, hash)
	}
	types.SortHashes(hashes)
	for _, hash := range hashes {
		d.Transactions = append(d.Transactions, l.transactions[hash])
	}
	for _, block := range l.blocks {
		d.StateUpdates = append(d.StateUpdates, *l.stateUpdates[block.Hash])
	}

	raw, err := rlp.EncodeToBytes(&d)
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	out := append([]byte{}, dumpMagic...)
	out = append(out, dumpVersion)
	return append(out, snappy.Encode(nil, raw)...), nil
}

// LoadLedger restores a ledger encoded by MarshalBinary. Reads it cannot
// answer fall back to org, which may be nil.
func LoadLedger(blob []byte, config *Config, eng engine.Engine, org origin.Origin) (*Ledger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	header := len(dumpMagic) + 1
	if len(blob) < header || !bytes.Equal(blob[:len(dumpMagic)], dumpMagic) {
		return nil, fmt.Errorf("%w: missing header", ErrCorruptDump)
	}
	if version := blob[len(dumpMagic)]; version != dumpVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptDump, version)
	}
	raw, err := snappy.Decode(nil, blob[header:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDump, err)
	}
	var d ledgerDump
	if err := rlp.DecodeBytes(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDump, err)
	}

	l := newLedger(config, eng, org)
	l.current = types.NewSnapshot(d.Root)
	for _, state := range d.States {
		storage := make(map[common.Hash]common.Hash, len(state.Storage))
		for _, entry := range state.Storage {
			storage[entry.Key] = entry.Value
		}
		l.current.Contracts[state.Address] = &types.ContractState{CodeHash: state.CodeHash, Storage: storage}
	}
	for _, c := range d.Contracts {
		contract, err := newContractRecord(c.Address, types.ContractDefinition{
			Abi:               c.Abi,
			EntryPointsByType: c.EntryPointsByType,
			Program:           c.Program,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptDump, err)
		}
		l.contracts[c.Address] = contract
	}
	for _, rec := range d.Transactions {
		rec.normalize()
		l.transactions[rec.Hash] = rec
	}
	if len(d.StateUpdates) != len(d.Blocks) {
		return nil, fmt.Errorf("%w: %d state updates for %d blocks", ErrCorruptDump, len(d.StateUpdates), len(d.Blocks))
	}
	for i, block := range d.Blocks {
		if _, ok := l.transactions[block.Tx.Hash]; !ok {
			return nil, fmt.Errorf("%w: block %d references unknown transaction %s", ErrCorruptDump, block.Number, block.Tx.Hash.Hex())
		}
		block.Tx.normalize()
		update := d.StateUpdates[i]
		normalizeStateUpdate(&update)
		l.blocks = append(l.blocks, block)
		l.blocksByHash[block.Hash] = block
		l.stateUpdates[block.Hash] = &update
	}
	l.originBlocks, l.originHead = d.OriginBlocks, d.OriginHead
	l.l2ToL1Log, l.consumedL2ToL1 = d.L2ToL1Log, d.ConsumedL2ToL1
	if l.consumedL2ToL1 > uint64(len(l.l2ToL1Log)) {
		return nil, fmt.Errorf("%w: %d consumed of %d messages", ErrCorruptDump, l.consumedL2ToL1, len(l.l2ToL1Log))
	}
	return l, nil
}

// Stats summarises the contents of a ledger
type Stats struct {
	Blocks       uint64
	Transactions int
	Rejected     int
	Contracts    int
	StateRoot    common.Hash
}

// Stats counts the local blocks, transactions and contracts
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	stats := Stats{
		Blocks:       uint64(len(l.blocks)),
		Transactions: len(l.transactions),
		Contracts:    len(l.contracts),
		StateRoot:    l.current.Root,
	}
	for _, rec := range l.transactions {
		if rec.Status == types.Rejected {
			stats.Rejected++
		}
	}
	return stats
}
