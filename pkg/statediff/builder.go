// Copyright 2019 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Contains the builder used to compute what changed in contract storage
// between two consecutive snapshots.

package statediff

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/cerc-io/devnet-ledger/pkg/types"
)

// Builder interface exposes the method for building a state update between two snapshots
type Builder interface {
	BuildStateUpdate(previous, current *types.Snapshot) types.StateUpdate
}

type builder struct{}

// NewBuilder is used to create a statediff builder
func NewBuilder() Builder {
	return &builder{}
}

// BuildStateUpdate builds the state update leading from previous to current.
// The block hash is left empty; it is only known once the block is formed.
func (sdb *builder) BuildStateUpdate(previous, current *types.Snapshot) types.StateUpdate {
	var diff types.StateDiff
	for _, addr := range current.SortedAddresses() {
		currentContract := current.Contracts[addr]
		previousContract, ok := previous.Contracts[addr]
		if !ok {
			diff.DeployedContracts = append(diff.DeployedContracts, types.DeployedContract{
				Address:      addr,
				ContractHash: currentContract.CodeHash,
			})
			continue
		}
		entries := buildStorageDiff(previousContract.Storage, currentContract.Storage)
		if len(entries) > 0 {
			diff.StorageDiffs = append(diff.StorageDiffs, types.ContractStorageDiff{
				Address: addr,
				Entries: entries,
			})
		}
	}
	return types.StateUpdate{
		NewRoot:   current.Root,
		OldRoot:   previous.Root,
		StateDiff: diff,
	}
}

// buildStorageDiff returns the keys of current that are new or changed with respect to previous.
// A contract that had no storage written before is not compared at all.
// TODO: revisit whether a contract's first ever writes should show up in the diff
func buildStorageDiff(previous, current map[common.Hash]common.Hash) []types.StorageEntry {
	if len(previous) == 0 {
		return nil
	}
	keys := make([]common.Hash, 0, len(current))
	for key := range current {
		keys = append(keys, key)
	}
	types.SortHashes(keys)

	var entries []types.StorageEntry
	for _, key := range keys {
		value := current[key]
		if previousValue, ok := previous[key]; !ok || previousValue != value {
			entries = append(entries, types.StorageEntry{Key: key, Value: value})
		}
	}
	return entries
}
