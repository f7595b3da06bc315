package statediff

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/cerc-io/devnet-ledger/pkg/types"
)

var (
	contractA = common.HexToHash("0xa")
	contractB = common.HexToHash("0xb")
	codeHash  = common.HexToHash("0xc0de")
	key1      = common.HexToHash("0x1")
	key2      = common.HexToHash("0x2")
	value0    = common.HexToHash("0x100")
	value1    = common.HexToHash("0x101")
	root0     = common.HexToHash("0xaa")
	root1     = common.HexToHash("0xbb")
)

func snapshot(root common.Hash, contracts map[common.Hash]*types.ContractState) *types.Snapshot {
	snap := types.NewSnapshot(root)
	for addr, c := range contracts {
		snap.Contracts[addr] = c
	}
	return snap
}

func TestBuildStateUpdate(t *testing.T) {
	cases := []struct {
		name     string
		previous *types.Snapshot
		current  *types.Snapshot
		expected types.StateDiff
	}{
		{
			name:     "no changes",
			previous: snapshot(root0, map[common.Hash]*types.ContractState{contractA: {CodeHash: codeHash, Storage: map[common.Hash]common.Hash{key1: value0}}}),
			current:  snapshot(root0, map[common.Hash]*types.ContractState{contractA: {CodeHash: codeHash, Storage: map[common.Hash]common.Hash{key1: value0}}}),
			expected: types.StateDiff{},
		},
		{
			name:     "single key changed",
			previous: snapshot(root0, map[common.Hash]*types.ContractState{contractA: {CodeHash: codeHash, Storage: map[common.Hash]common.Hash{key1: value0, key2: value0}}}),
			current:  snapshot(root1, map[common.Hash]*types.ContractState{contractA: {CodeHash: codeHash, Storage: map[common.Hash]common.Hash{key1: value1, key2: value0}}}),
			expected: types.StateDiff{
				StorageDiffs: []types.ContractStorageDiff{{Address: contractA, Entries: []types.StorageEntry{{Key: key1, Value: value1}}}},
			},
		},
		{
			name:     "new key",
			previous: snapshot(root0, map[common.Hash]*types.ContractState{contractA: {CodeHash: codeHash, Storage: map[common.Hash]common.Hash{key1: value0}}}),
			current:  snapshot(root1, map[common.Hash]*types.ContractState{contractA: {CodeHash: codeHash, Storage: map[common.Hash]common.Hash{key1: value0, key2: value1}}}),
			expected: types.StateDiff{
				StorageDiffs: []types.ContractStorageDiff{{Address: contractA, Entries: []types.StorageEntry{{Key: key2, Value: value1}}}},
			},
		},
		{
			name:     "deployed contract",
			previous: snapshot(root0, nil),
			current:  snapshot(root1, map[common.Hash]*types.ContractState{contractB: {CodeHash: codeHash, Storage: map[common.Hash]common.Hash{key1: value1}}}),
			expected: types.StateDiff{
				DeployedContracts: []types.DeployedContract{{Address: contractB, ContractHash: codeHash}},
			},
		},
		{
			name:     "first writes of a contract are not compared",
			previous: snapshot(root0, map[common.Hash]*types.ContractState{contractA: {CodeHash: codeHash}}),
			current:  snapshot(root1, map[common.Hash]*types.ContractState{contractA: {CodeHash: codeHash, Storage: map[common.Hash]common.Hash{key1: value1}}}),
			expected: types.StateDiff{},
		},
		{
			name: "ordered output",
			previous: snapshot(root0, map[common.Hash]*types.ContractState{
				contractB: {CodeHash: codeHash, Storage: map[common.Hash]common.Hash{key1: value0}},
				contractA: {CodeHash: codeHash, Storage: map[common.Hash]common.Hash{key1: value0}},
			}),
			current: snapshot(root1, map[common.Hash]*types.ContractState{
				contractB: {CodeHash: codeHash, Storage: map[common.Hash]common.Hash{key2: value1, key1: value1}},
				contractA: {CodeHash: codeHash, Storage: map[common.Hash]common.Hash{key1: value1}},
			}),
			expected: types.StateDiff{
				StorageDiffs: []types.ContractStorageDiff{
					{Address: contractA, Entries: []types.StorageEntry{{Key: key1, Value: value1}}},
					{Address: contractB, Entries: []types.StorageEntry{{Key: key1, Value: value1}, {Key: key2, Value: value1}}},
				},
			},
		},
	}

	builder := NewBuilder()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			update := builder.BuildStateUpdate(tc.previous, tc.current)
			require.Equal(t, tc.expected, update.StateDiff)
			require.Equal(t, tc.previous.Root, update.OldRoot)
			require.Equal(t, tc.current.Root, update.NewRoot)
			require.Equal(t, common.Hash{}, update.BlockHash)
		})
	}
}
