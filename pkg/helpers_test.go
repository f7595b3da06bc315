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

package devnet_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	devnet "github.com/cerc-io/devnet-ledger/pkg"
	"github.com/cerc-io/devnet-ledger/pkg/calldata"
	"github.com/cerc-io/devnet-ledger/pkg/engine"
	"github.com/cerc-io/devnet-ledger/pkg/hashing"
	"github.com/cerc-io/devnet-ledger/pkg/origin"
	"github.com/cerc-io/devnet-ledger/pkg/testhelpers/mocks"
	"github.com/cerc-io/devnet-ledger/pkg/types"
)

const testABI = `[{"type":"struct","name":"Point","members":[{"name":"x","type":"felt"},{"name":"y","type":"felt"}]},` +
	`{"type":"function","name":"increase_balance","inputs":[{"name":"amount","type":"felt"}],"outputs":[]},` +
	`{"type":"function","name":"get_balance","inputs":[],"outputs":[{"name":"res","type":"felt"}]},` +
	`{"type":"function","name":"fail","inputs":[],"outputs":[]},` +
	`{"type":"function","name":"send_message","inputs":[],"outputs":[]},` +
	`{"type":"function","name":"sum_points","inputs":[{"name":"points_len","type":"felt"},{"name":"points","type":"Point*"}],"outputs":[{"name":"res","type":"Point"}]}]`

var (
	ctx        = context.Background()
	hasher     = hashing.NewKeccak()
	balanceKey = common.HexToHash("0x1")
	messageTo  = common.HexToHash("0xc0")
)

func testDefinition() *types.ContractDefinition {
	return &types.ContractDefinition{
		Abi:               json.RawMessage(testABI),
		EntryPointsByType: json.RawMessage(`{}`),
		Program:           json.RawMessage(`{"data":["0x40780017fff7fff","0x1"]}`),
	}
}

func testConfig() *devnet.Config {
	config := devnet.DefaultConfig()
	config.GasPrice = 1
	config.FeeWeights = devnet.FeeWeights{NSteps: 1}
	return config
}

func felts(vs ...uint64) []uint256.Int {
	out := make([]uint256.Int, len(vs))
	for i, v := range vs {
		out[i] = *uint256.NewInt(v)
	}
	return out
}

func balance(storage map[common.Hash]common.Hash) uint256.Int {
	return types.HashToFelt(storage[balanceKey])
}

// newTestEngine returns an engine running the functions of testABI
func newTestEngine() *mocks.Engine {
	eng := mocks.NewEngine()
	eng.Handle("increase_balance", func(storage map[common.Hash]common.Hash, args []calldata.Value) (*engine.ExecutionInfo, error) {
		b := balance(storage)
		b.Add(&b, &args[0].Felt)
		storage[balanceKey] = types.FeltToHash(b)
		return &engine.ExecutionInfo{
			Resources: types.ExecutionResources{NSteps: 10},
			Events: []types.Event{{
				FromAddress: messageTo,
				Keys:        []string{"0x1"},
				Data:        []string{types.FeltHex(args[0].Felt)},
			}},
			CallInfo: json.RawMessage(`{"entry_point":"increase_balance"}`),
		}, nil
	})
	eng.Handle("get_balance", func(storage map[common.Hash]common.Hash, _ []calldata.Value) (*engine.ExecutionInfo, error) {
		return &engine.ExecutionInfo{
			Result:    []calldata.Value{calldata.FeltValue(balance(storage))},
			Resources: types.ExecutionResources{NSteps: 3},
		}, nil
	})
	eng.Handle("fail", func(storage map[common.Hash]common.Hash, _ []calldata.Value) (*engine.ExecutionInfo, error) {
		storage[balanceKey] = types.FeltToHash(*uint256.NewInt(999))
		return nil, &engine.ExecutionError{Message: "assert_not_zero failed"}
	})
	eng.Handle("send_message", func(_ map[common.Hash]common.Hash, _ []calldata.Value) (*engine.ExecutionInfo, error) {
		return &engine.ExecutionInfo{
			L2ToL1Messages: []types.L2ToL1Message{{FromAddress: messageTo, ToAddress: "291", Payload: []string{"1", "0x2"}}},
		}, nil
	})
	eng.Handle("sum_points", func(_ map[common.Hash]common.Hash, args []calldata.Value) (*engine.ExecutionInfo, error) {
		var x, y uint256.Int
		for _, p := range args[0].Elems {
			x.Add(&x, &p.Elems[0].Felt)
			y.Add(&y, &p.Elems[1].Felt)
		}
		return &engine.ExecutionInfo{Result: []calldata.Value{calldata.TupleValue(calldata.FeltValue(x), calldata.FeltValue(y))}}, nil
	})
	return eng
}

func newTestLedger(t *testing.T, org origin.Origin) (*devnet.Ledger, *mocks.Engine) {
	eng := newTestEngine()
	l, err := devnet.NewLedger(ctx, testConfig(), eng, org)
	require.NoError(t, err)
	return l, eng
}

// deploy deploys the test contract and returns its address
func deploy(t *testing.T, l *devnet.Ledger) common.Hash {
	res, err := l.Deploy(ctx, devnet.DeployRequest{Definition: testDefinition()})
	require.NoError(t, err)
	require.Equal(t, types.AcceptedOnL2, res.Status)
	return res.ContractAddress
}

func invokeRequest(address common.Hash, function string, data ...uint64) devnet.InvokeRequest {
	return devnet.InvokeRequest{
		ContractAddress: address,
		Selector:        hasher.Selector(function),
		Calldata:        felts(data...),
	}
}

func toJSON(t *testing.T, v interface{}) string {
	out, err := json.Marshal(v)
	require.NoError(t, err)
	return string(out)
}
