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

package types

// Wrapper types for contract storage and the diffs between two versions of it

import (
	"encoding/json"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// ContractState holds the code identity and the written storage of a single contract
type ContractState struct {
	CodeHash common.Hash
	// Storage holds every key written so far; it stays nil until the first write
	Storage map[common.Hash]common.Hash
}

// Snapshot is a comparable copy of the global contract storage
type Snapshot struct {
	Root      common.Hash
	Contracts map[common.Hash]*ContractState
}

// NewSnapshot returns an empty snapshot with the given root
func NewSnapshot(root common.Hash) *Snapshot {
	return &Snapshot{
		Root:      root,
		Contracts: make(map[common.Hash]*ContractState),
	}
}

// Copy returns a deep copy that shares no maps with s
func (s *Snapshot) Copy() *Snapshot {
	cpy := NewSnapshot(s.Root)
	for addr, contract := range s.Contracts {
		cs := &ContractState{CodeHash: contract.CodeHash}
		if contract.Storage != nil {
			cs.Storage = make(map[common.Hash]common.Hash, len(contract.Storage))
			for k, v := range contract.Storage {
				cs.Storage[k] = v
			}
		}
		cpy.Contracts[addr] = cs
	}
	return cpy
}

// StorageAt returns the value written at key of the contract at addr, if any
func (s *Snapshot) StorageAt(addr, key common.Hash) (common.Hash, bool) {
	contract, ok := s.Contracts[addr]
	if !ok || contract.Storage == nil {
		return common.Hash{}, false
	}
	val, ok := contract.Storage[key]
	return val, ok
}

// SortedAddresses returns the contract addresses of s in ascending order
func (s *Snapshot) SortedAddresses() []common.Hash {
	addrs := make([]common.Hash, 0, len(s.Contracts))
	for addr := range s.Contracts {
		addrs = append(addrs, addr)
	}
	SortHashes(addrs)
	return addrs
}

// SortHashes sorts hashes in ascending byte order
func SortHashes(hashes []common.Hash) {
	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i].Big().Cmp(hashes[j].Big()) < 0
	})
}

// DeployedContract is a contract that did not exist in the previous snapshot
type DeployedContract struct {
	Address      common.Hash `json:"address"`
	ContractHash common.Hash `json:"contract_hash"`
}

// StorageEntry is a single changed storage key
type StorageEntry struct {
	Key   common.Hash `json:"key"`
	Value common.Hash `json:"value"`
}

// ContractStorageDiff holds the changed keys of one contract
type ContractStorageDiff struct {
	Address common.Hash
	Entries []StorageEntry
}

// StateDiff holds the deployed contracts and storage changes between two roots
type StateDiff struct {
	DeployedContracts []DeployedContract
	StorageDiffs      []ContractStorageDiff
}

type stateDiffJSON struct {
	DeployedContracts []DeployedContract             `json:"deployed_contracts"`
	StorageDiffs      map[common.Hash][]StorageEntry `json:"storage_diffs"`
}

// MarshalJSON renders the storage diffs as a mapping of contract address to entries
func (d StateDiff) MarshalJSON() ([]byte, error) {
	enc := stateDiffJSON{
		DeployedContracts: d.DeployedContracts,
		StorageDiffs:      make(map[common.Hash][]StorageEntry, len(d.StorageDiffs)),
	}
	if enc.DeployedContracts == nil {
		enc.DeployedContracts = []DeployedContract{}
	}
	for _, diff := range d.StorageDiffs {
		enc.StorageDiffs[diff.Address] = diff.Entries
	}
	return json.Marshal(enc)
}

// UnmarshalJSON is the inverse of MarshalJSON; storage diffs come out ordered by address
func (d *StateDiff) UnmarshalJSON(input []byte) error {
	var dec stateDiffJSON
	if err := json.Unmarshal(input, &dec); err != nil {
		return err
	}
	d.DeployedContracts = dec.DeployedContracts
	d.StorageDiffs = nil
	addrs := make([]common.Hash, 0, len(dec.StorageDiffs))
	for addr := range dec.StorageDiffs {
		addrs = append(addrs, addr)
	}
	SortHashes(addrs)
	for _, addr := range addrs {
		d.StorageDiffs = append(d.StorageDiffs, ContractStorageDiff{Address: addr, Entries: dec.StorageDiffs[addr]})
	}
	return nil
}

// StateUpdate is the diff produced by one accepted transaction, keyed by its block hash
type StateUpdate struct {
	BlockHash common.Hash `json:"block_hash"`
	NewRoot   common.Hash `json:"new_root"`
	OldRoot   common.Hash `json:"old_root"`
	StateDiff StateDiff   `json:"state_diff"`
}
