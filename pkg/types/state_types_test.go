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

package types_test

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/cerc-io/devnet-ledger/pkg/types"
)

func TestStateDiffJSON(t *testing.T) {
	diff := types.StateDiff{
		DeployedContracts: []types.DeployedContract{{Address: common.HexToHash("0x3"), ContractHash: common.HexToHash("0xc")}},
		StorageDiffs: []types.ContractStorageDiff{
			{Address: common.HexToHash("0x1"), Entries: []types.StorageEntry{{Key: common.HexToHash("0x5"), Value: common.HexToHash("0x6")}}},
			{Address: common.HexToHash("0x2"), Entries: []types.StorageEntry{{Key: common.HexToHash("0x7"), Value: common.HexToHash("0x8")}}},
		},
	}
	out, err := json.Marshal(diff)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &raw))
	var storage map[string][]types.StorageEntry
	require.NoError(t, json.Unmarshal(raw["storage_diffs"], &storage))
	require.Len(t, storage, 2)
	require.Equal(t, diff.StorageDiffs[1].Entries, storage[common.HexToHash("0x2").Hex()])

	var decoded types.StateDiff
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Equal(t, diff, decoded)

	empty, err := json.Marshal(types.StateDiff{})
	require.NoError(t, err)
	require.JSONEq(t, `{"deployed_contracts":[],"storage_diffs":{}}`, string(empty))
}

func TestSnapshotCopy(t *testing.T) {
	s := types.NewSnapshot(common.HexToHash("0xaa"))
	s.Contracts[common.HexToHash("0x2")] = &types.ContractState{Storage: map[common.Hash]common.Hash{{}: common.HexToHash("0x1")}}
	s.Contracts[common.HexToHash("0x1")] = &types.ContractState{}

	cpy := s.Copy()
	cpy.Contracts[common.HexToHash("0x2")].Storage[common.Hash{}] = common.HexToHash("0x2")
	value, ok := s.StorageAt(common.HexToHash("0x2"), common.Hash{})
	require.True(t, ok)
	require.Equal(t, common.HexToHash("0x1"), value)

	_, ok = s.StorageAt(common.HexToHash("0x1"), common.Hash{})
	require.False(t, ok)
	require.Equal(t, []common.Hash{common.HexToHash("0x1"), common.HexToHash("0x2")}, s.SortedAddresses())
}

func TestParseFelt(t *testing.T) {
	cases := []struct {
		in       string
		expected uint64
		fails    bool
	}{
		{"0", 0, false},
		{"291", 291, false},
		{"0x123", 291, false},
		{"0X00ff", 255, false},
		{"", 0, true},
		{"-1", 0, true},
		{"0xzz", 0, true},
	}
	for _, tc := range cases {
		felt, err := types.ParseFelt(tc.in)
		if tc.fails {
			require.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.expected, felt.Uint64())
		require.Equal(t, felt, types.HashToFelt(types.FeltToHash(felt)))
	}
	require.Equal(t, []string{"0x0", "0x123"}, types.FeltsHex([]uint256.Int{*uint256.NewInt(0), *uint256.NewInt(291)}))
	require.Equal(t, []string{"291"}, types.FeltsDecimal([]uint256.Int{*uint256.NewInt(291)}))
}
