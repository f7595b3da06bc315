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
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	devnet "github.com/cerc-io/devnet-ledger/pkg"
	"github.com/cerc-io/devnet-ledger/pkg/calldata"
	"github.com/cerc-io/devnet-ledger/pkg/engine"
	"github.com/cerc-io/devnet-ledger/pkg/testhelpers/mocks"
	"github.com/cerc-io/devnet-ledger/pkg/types"
)

func TestDeploy(t *testing.T) {
	l, eng := newTestLedger(t, nil)
	var constructed int
	eng.SetConstructor(func(storage map[common.Hash]common.Hash, args []calldata.Value) (*engine.ExecutionInfo, error) {
		constructed++
		storage[balanceKey] = types.FeltToHash(args[0].Felt)
		return nil, nil
	})
	req := devnet.DeployRequest{Definition: testDefinition(), ConstructorCalldata: felts(7), Salt: *uint256.NewInt(3)}

	first, err := l.Deploy(ctx, req)
	require.NoError(t, err)
	require.Equal(t, types.AcceptedOnL2, first.Status)
	require.Equal(t, eng.ContractAddress(common.Hash{}, req.Salt, req.ConstructorCalldata, req.Definition), first.ContractAddress)

	value, err := l.GetStorageAt(ctx, first.ContractAddress, balanceKey)
	require.NoError(t, err)
	require.Equal(t, types.FeltToHash(*uint256.NewInt(7)), value)

	code, err := l.GetCode(ctx, first.ContractAddress)
	require.NoError(t, err)
	require.Equal(t, []string{"0x40780017fff7fff", "0x1"}, code.Bytecode)

	def, err := l.GetFullContract(ctx, first.ContractAddress)
	require.NoError(t, err)
	require.JSONEq(t, testABI, string(def.Abi))

	tx, err := l.GetTransaction(ctx, first.TransactionHash)
	require.NoError(t, err)
	require.Equal(t, types.Deploy, tx.Transaction.Type)
	require.Equal(t, []string{"0x7"}, tx.Transaction.ConstructorCalldata)
	require.Equal(t, "0x3", tx.Transaction.ContractAddressSalt)

	update, err := l.GetStateUpdate(ctx, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []types.DeployedContract{{Address: first.ContractAddress, ContractHash: hasher.ClassHash(req.Definition)}}, update.StateDiff.DeployedContracts)

	// redeploying the same contract is a no-op
	snapshot := l.Snapshot()
	second, err := l.Deploy(ctx, req)
	require.NoError(t, err)
	require.Equal(t, first.ContractAddress, second.ContractAddress)
	require.Equal(t, first.TransactionHash, second.TransactionHash)
	require.Equal(t, 1, constructed)
	require.Same(t, snapshot, l.Snapshot())
	count, err := l.GetNumberOfBlocks(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
}

func TestDeployRejected(t *testing.T) {
	l, eng := newTestLedger(t, nil)
	eng.SetConstructor(func(map[common.Hash]common.Hash, []calldata.Value) (*engine.ExecutionInfo, error) {
		return nil, &engine.ExecutionError{Message: "constructor failed"}
	})

	res, err := l.Deploy(ctx, devnet.DeployRequest{Definition: testDefinition()})
	require.ErrorIs(t, err, devnet.ErrExecutionRejected)
	require.Equal(t, types.Rejected, res.Status)

	status, err := l.GetTransactionStatus(ctx, res.TransactionHash)
	require.NoError(t, err)
	require.Equal(t, types.Rejected, status.TxStatus)
	require.Equal(t, "constructor failed", status.TxFailureReason.ErrorMessage)

	_, err = l.Deploy(ctx, devnet.DeployRequest{Definition: &types.ContractDefinition{Abi: []byte("not json")}})
	require.ErrorIs(t, err, devnet.ErrValidation)
}

func TestInvokeFormsBlocks(t *testing.T) {
	l, _ := newTestLedger(t, nil)
	address := deploy(t, l)

	var hashes []common.Hash
	for i := uint64(1); i <= 3; i++ {
		res, err := l.Invoke(ctx, invokeRequest(address, "increase_balance", i))
		require.NoError(t, err)
		require.Equal(t, types.AcceptedOnL2, res.Status)
		require.Empty(t, res.Result)
		hashes = append(hashes, res.TransactionHash)
	}

	count, err := l.GetNumberOfBlocks(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(4), count)

	var previous *types.Block
	for n := int64(0); n < 4; n++ {
		block, err := l.GetBlockByNumber(ctx, &n)
		require.NoError(t, err)
		require.Equal(t, uint64(n), block.BlockNumber)
		require.Len(t, block.Transactions, 1)
		require.Len(t, block.TransactionReceipts, 1)
		require.Empty(t, block.TransactionReceipts[0].Status)
		if previous == nil {
			require.Equal(t, common.Hash{}, block.ParentBlockHash)
		} else {
			require.Equal(t, previous.BlockHash, block.ParentBlockHash)
		}
		byHash, err := l.GetBlockByHash(ctx, block.BlockHash)
		require.NoError(t, err)
		require.Equal(t, block, byHash)
		previous = block
	}

	latest, err := l.GetBlockByNumber(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, previous, latest)
	require.Equal(t, l.Snapshot().Root, latest.StateRoot)

	value, err := l.GetStorageAt(ctx, address, balanceKey)
	require.NoError(t, err)
	require.Equal(t, types.FeltToHash(*uint256.NewInt(6)), value)

	last := hashes[len(hashes)-1]
	receipt, err := l.GetTransactionReceipt(ctx, last)
	require.NoError(t, err)
	require.Equal(t, types.AcceptedOnL2, receipt.Status)
	require.Equal(t, latest.BlockHash, *receipt.BlockHash)
	require.Equal(t, uint64(3), *receipt.BlockNumber)
	require.Equal(t, uint64(10), receipt.ExecutionResources.NSteps)
	require.Equal(t, []string{"0x3"}, receipt.Events[0].Data)

	trace, err := l.GetTransactionTrace(ctx, last)
	require.NoError(t, err)
	require.JSONEq(t, `{"entry_point":"increase_balance"}`, string(trace.FunctionInvocation))

	tx, err := l.GetTransaction(ctx, last)
	require.NoError(t, err)
	require.Equal(t, types.InvokeFunction, tx.Transaction.Type)
	require.Equal(t, hasher.Selector("increase_balance").Hex(), tx.Transaction.EntryPointSelector)
	require.Equal(t, []string{"0x3"}, tx.Transaction.Calldata)
}

func TestStateUpdates(t *testing.T) {
	l, _ := newTestLedger(t, nil)
	address := deploy(t, l)

	// the first write to a contract has nothing to be compared against
	first, err := l.Invoke(ctx, invokeRequest(address, "increase_balance", 5))
	require.NoError(t, err)
	status, err := l.GetTransactionStatus(ctx, first.TransactionHash)
	require.NoError(t, err)
	update, err := l.GetStateUpdate(ctx, status.BlockHash, nil)
	require.NoError(t, err)
	require.Empty(t, update.StateDiff.StorageDiffs)
	require.Empty(t, update.StateDiff.DeployedContracts)

	before := l.Snapshot()
	_, err = l.Invoke(ctx, invokeRequest(address, "increase_balance", 2))
	require.NoError(t, err)
	update, err = l.GetStateUpdate(ctx, nil, nil)
	require.NoError(t, err)
	require.Equal(t, before.Root, update.OldRoot)
	require.Equal(t, l.Snapshot().Root, update.NewRoot)
	require.Equal(t, []types.ContractStorageDiff{{
		Address: address,
		Entries: []types.StorageEntry{{Key: balanceKey, Value: types.FeltToHash(*uint256.NewInt(7))}},
	}}, update.StateDiff.StorageDiffs)

	latest, err := l.GetBlockByNumber(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, latest.BlockHash, update.BlockHash)
	number := int64(latest.BlockNumber)
	byNumber, err := l.GetStateUpdate(ctx, nil, &number)
	require.NoError(t, err)
	require.Equal(t, update, byNumber)

	_, err = l.GetStateUpdate(ctx, &latest.BlockHash, &number)
	require.ErrorIs(t, err, devnet.ErrValidation)
	unknown := common.HexToHash("0xdead")
	_, err = l.GetStateUpdate(ctx, &unknown, nil)
	require.ErrorIs(t, err, devnet.ErrNotFound)
}

func TestRejectionIsolatesState(t *testing.T) {
	l, _ := newTestLedger(t, nil)
	address := deploy(t, l)
	_, err := l.Invoke(ctx, invokeRequest(address, "increase_balance", 5))
	require.NoError(t, err)
	before := l.Snapshot()

	res, err := l.Invoke(ctx, invokeRequest(address, "fail"))
	require.ErrorIs(t, err, devnet.ErrExecutionRejected)
	var rejected *devnet.RejectedError
	require.True(t, errors.As(err, &rejected))
	require.Equal(t, res.TransactionHash, rejected.TxHash)
	var execErr *engine.ExecutionError
	require.True(t, errors.As(err, &execErr))

	require.Same(t, before, l.Snapshot())
	value, err := l.GetStorageAt(ctx, address, balanceKey)
	require.NoError(t, err)
	require.Equal(t, types.FeltToHash(*uint256.NewInt(5)), value)
	count, err := l.GetNumberOfBlocks(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)

	tx, err := l.GetTransaction(ctx, res.TransactionHash)
	require.NoError(t, err)
	require.Equal(t, types.Rejected, tx.Status)
	require.Nil(t, tx.BlockHash)
	require.Equal(t, types.TransactionFailed, tx.TransactionFailureReason.Code)
	require.Equal(t, "assert_not_zero failed", tx.TransactionFailureReason.ErrorMessage)
	require.Equal(t, res.TransactionHash, tx.TransactionFailureReason.TxID)

	receipt, err := l.GetTransactionReceipt(ctx, res.TransactionHash)
	require.NoError(t, err)
	require.Equal(t, types.Rejected, receipt.Status)
	require.NotNil(t, receipt.TransactionFailureReason)

	_, err = l.GetTransactionTrace(ctx, res.TransactionHash)
	require.ErrorIs(t, err, devnet.ErrNotFound)
}

func TestResubmittedInvoke(t *testing.T) {
	capped := func(storage map[common.Hash]common.Hash, args []calldata.Value) (*engine.ExecutionInfo, error) {
		return nil, &engine.ExecutionError{Message: "cap reached"}
	}
	tests := []struct {
		name string
		// replaces increase_balance before the second submission, if set
		handler     mocks.Handler
		status      types.TxStatus
		blocks      uint64
		txBlock     uint64
		wantBalance uint64
	}{
		{"accepted twice", nil, types.AcceptedOnL2, 3, 2, 10},
		{"accepted then rejected", capped, types.Rejected, 2, 1, 5},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			l, eng := newTestLedger(t, nil)
			address := deploy(t, l)
			req := invokeRequest(address, "increase_balance", 5)
			first, err := l.Invoke(ctx, req)
			require.NoError(t, err)

			one := int64(1)
			block, err := l.GetBlockByNumber(ctx, &one)
			require.NoError(t, err)
			before := toJSON(t, block)

			if test.handler != nil {
				eng.Handle("increase_balance", test.handler)
			}
			second, err := l.Invoke(ctx, req)
			require.Equal(t, first.TransactionHash, second.TransactionHash)
			require.Equal(t, test.status, second.Status)
			if test.status == types.Rejected {
				require.ErrorIs(t, err, devnet.ErrExecutionRejected)
			} else {
				require.NoError(t, err)
			}

			block, err = l.GetBlockByNumber(ctx, &one)
			require.NoError(t, err)
			require.JSONEq(t, before, toJSON(t, block))
			require.Equal(t, types.AcceptedOnL2, block.Status)
			require.Equal(t, uint64(1), *block.TransactionReceipts[0].BlockNumber)
			byHash, err := l.GetBlockByHash(ctx, block.BlockHash)
			require.NoError(t, err)
			require.Equal(t, block, byHash)

			count, err := l.GetNumberOfBlocks(ctx)
			require.NoError(t, err)
			require.Equal(t, test.blocks, count)

			tx, err := l.GetTransaction(ctx, first.TransactionHash)
			require.NoError(t, err)
			require.Equal(t, types.AcceptedOnL2, tx.Status)
			require.Equal(t, test.txBlock, *tx.BlockNumber)
			require.Nil(t, tx.TransactionFailureReason)

			value, err := l.GetStorageAt(ctx, address, balanceKey)
			require.NoError(t, err)
			require.Equal(t, types.FeltToHash(*uint256.NewInt(test.wantBalance)), value)
		})
	}
}

func TestInvokeRejections(t *testing.T) {
	l, _ := newTestLedger(t, nil)
	address := deploy(t, l)
	unknown := common.HexToHash("0xbad")
	illegal := invokeRequest(address, "increase_balance", 1)
	illegal.Selector = hasher.Selector("no_such_function")

	cases := []struct {
		name     string
		req      devnet.InvokeRequest
		expected error
	}{
		{"unknown contract", invokeRequest(unknown, "increase_balance", 1), devnet.ErrContractNotFound},
		{"illegal selector", illegal, devnet.ErrValidation},
		{"too few arguments", invokeRequest(address, "increase_balance"), calldata.ErrTooFewArguments},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := l.Snapshot()
			res, err := l.Invoke(ctx, tc.req)
			require.ErrorIs(t, err, tc.expected)
			require.ErrorIs(t, err, devnet.ErrExecutionRejected)
			require.Equal(t, types.Rejected, res.Status)
			require.Same(t, before, l.Snapshot())

			status, err := l.GetTransactionStatus(ctx, res.TransactionHash)
			require.NoError(t, err)
			require.Equal(t, types.Rejected, status.TxStatus)
			require.NotEmpty(t, status.TxFailureReason.ErrorMessage)
		})
	}
}

func TestFeeCheck(t *testing.T) {
	l, _ := newTestLedger(t, nil)
	address := deploy(t, l)

	// gas price 1 and one gas per step: increase_balance costs 10
	req := invokeRequest(address, "increase_balance", 4)
	req.MaxFee = *uint256.NewInt(5)
	before := l.Snapshot()
	res, err := l.Invoke(ctx, req)
	require.ErrorIs(t, err, devnet.ErrFeeExceeded)
	require.ErrorIs(t, err, devnet.ErrExecutionRejected)
	require.Equal(t, types.Rejected, res.Status)
	require.Same(t, before, l.Snapshot())
	count, err := l.GetNumberOfBlocks(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)

	tx, err := l.GetTransaction(ctx, res.TransactionHash)
	require.NoError(t, err)
	require.Equal(t, types.Rejected, tx.Status)
	require.Contains(t, tx.TransactionFailureReason.ErrorMessage, "10 > 5")

	req.MaxFee = *uint256.NewInt(10)
	res, err = l.Invoke(ctx, req)
	require.NoError(t, err)
	require.Equal(t, types.AcceptedOnL2, res.Status)
	value, err := l.GetStorageAt(ctx, address, balanceKey)
	require.NoError(t, err)
	require.Equal(t, types.FeltToHash(*uint256.NewInt(4)), value)

	fee, err := l.EstimateFee(ctx, invokeRequest(address, "increase_balance", 1))
	require.NoError(t, err)
	require.Equal(t, uint64(10), fee.Uint64())
}

func TestCall(t *testing.T) {
	l, eng := newTestLedger(t, nil)
	address := deploy(t, l)
	_, err := l.Invoke(ctx, invokeRequest(address, "increase_balance", 42))
	require.NoError(t, err)
	before := l.Snapshot()

	result, err := l.Call(ctx, invokeRequest(address, "get_balance"))
	require.NoError(t, err)
	require.Equal(t, felts(42), result)

	result, err = l.Call(ctx, invokeRequest(address, "sum_points", 2, 1, 2, 3, 4))
	require.NoError(t, err)
	require.Equal(t, felts(4, 6), result)

	// a call that writes leaves no trace
	invocations := eng.Invocations()
	result, err = l.Call(ctx, invokeRequest(address, "increase_balance", 1))
	require.NoError(t, err)
	require.Empty(t, result)
	require.Equal(t, invocations+1, eng.Invocations())
	require.Same(t, before, l.Snapshot())
	value, err := l.GetStorageAt(ctx, address, balanceKey)
	require.NoError(t, err)
	require.Equal(t, types.FeltToHash(*uint256.NewInt(42)), value)

	_, err = l.Call(ctx, invokeRequest(address, "fail"))
	require.ErrorIs(t, err, devnet.ErrExecutionRejected)
	_, err = l.Call(ctx, invokeRequest(common.HexToHash("0xbad"), "get_balance"))
	require.ErrorIs(t, err, devnet.ErrContractNotFound)

	count, err := l.GetNumberOfBlocks(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)
}

func TestEngineFailurePropagates(t *testing.T) {
	l, eng := newTestLedger(t, nil)
	address := deploy(t, l)
	eng.SetStateError(engine.ErrNoEngine)

	res, err := l.Invoke(ctx, invokeRequest(address, "increase_balance", 1))
	require.ErrorIs(t, err, engine.ErrNoEngine)
	require.Nil(t, res)
	stats := l.Stats()
	require.Equal(t, 1, stats.Transactions)
}

func TestBlockNumberValidation(t *testing.T) {
	l, _ := newTestLedger(t, nil)

	_, err := l.GetBlockByNumber(ctx, nil)
	require.ErrorIs(t, err, devnet.ErrNotFound)

	deploy(t, l)
	negative := int64(-1)
	_, err = l.GetBlockByNumber(ctx, &negative)
	require.ErrorIs(t, err, devnet.ErrValidation)

	tooHigh := int64(1)
	_, err = l.GetBlockByNumber(ctx, &tooHigh)
	require.ErrorIs(t, err, devnet.ErrValidation)
	require.ErrorIs(t, err, devnet.ErrNotFound)

	_, err = l.GetStateUpdate(ctx, nil, &negative)
	require.ErrorIs(t, err, devnet.ErrValidation)

	_, err = l.GetBlockByHash(ctx, common.HexToHash("0xdead"))
	require.ErrorIs(t, err, devnet.ErrNotFound)
}

func TestOriginFallback(t *testing.T) {
	upstream := mocks.NewOrigin(
		&types.Block{BlockHash: common.HexToHash("0xb0"), BlockNumber: 0, Status: types.AcceptedOnL2},
		&types.Block{BlockHash: common.HexToHash("0xb1"), BlockNumber: 1, ParentBlockHash: common.HexToHash("0xb0"), Status: types.AcceptedOnL2},
	)
	forkedContract := common.HexToHash("0xf0")
	upstream.Storage[forkedContract] = map[common.Hash]common.Hash{balanceKey: common.HexToHash("0x2a")}
	upstreamTx := common.HexToHash("0x7a")
	upstream.Statuses[upstreamTx] = &types.TransactionStatus{TxStatus: types.AcceptedOnL1}

	l, _ := newTestLedger(t, upstream)
	count, err := l.GetNumberOfBlocks(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)

	latest, err := l.GetBlockByNumber(ctx, nil)
	require.NoError(t, err)
	require.Same(t, upstream.Blocks[1], latest)

	address := deploy(t, l)
	local, err := l.GetBlockByNumber(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(2), local.BlockNumber)
	require.Equal(t, common.HexToHash("0xb1"), local.ParentBlockHash)

	zero := int64(0)
	block, err := l.GetBlockByNumber(ctx, &zero)
	require.NoError(t, err)
	require.Same(t, upstream.Blocks[0], block)
	block, err = l.GetBlockByHash(ctx, common.HexToHash("0xb1"))
	require.NoError(t, err)
	require.Same(t, upstream.Blocks[1], block)

	value, err := l.GetStorageAt(ctx, forkedContract, balanceKey)
	require.NoError(t, err)
	require.Equal(t, common.HexToHash("0x2a"), value)
	value, err = l.GetStorageAt(ctx, address, balanceKey)
	require.NoError(t, err)
	require.Equal(t, common.Hash{}, value)

	status, err := l.GetTransactionStatus(ctx, upstreamTx)
	require.NoError(t, err)
	require.Equal(t, types.AcceptedOnL1, status.TxStatus)
	status, err = l.GetTransactionStatus(ctx, common.HexToHash("0x7b"))
	require.NoError(t, err)
	require.Equal(t, types.NotReceived, status.TxStatus)

	three := int64(3)
	calls := upstream.Calls("GetBlockByNumber")
	_, err = l.GetBlockByNumber(ctx, &three)
	require.ErrorIs(t, err, devnet.ErrValidation)
	require.Equal(t, calls, upstream.Calls("GetBlockByNumber"), "out of range numbers never reach the origin")
}

func TestConcurrentInvokes(t *testing.T) {
	l, _ := newTestLedger(t, nil)
	address := deploy(t, l)

	var wg sync.WaitGroup
	for i := uint64(1); i <= 10; i++ {
		wg.Add(2)
		go func(amount uint64) {
			defer wg.Done()
			_, err := l.Invoke(ctx, invokeRequest(address, "increase_balance", amount))
			require.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			_, err := l.Call(ctx, invokeRequest(address, "get_balance"))
			require.NoError(t, err)
			_, err = l.GetBlockByNumber(ctx, nil)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	result, err := l.Call(ctx, invokeRequest(address, "get_balance"))
	require.NoError(t, err)
	require.Equal(t, felts(55), result)

	count, err := l.GetNumberOfBlocks(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(11), count)
	for n := int64(1); n < int64(count); n++ {
		previous := n - 1
		parent, err := l.GetBlockByNumber(ctx, &previous)
		require.NoError(t, err)
		block, err := l.GetBlockByNumber(ctx, &n)
		require.NoError(t, err)
		require.Equal(t, parent.BlockHash, block.ParentBlockHash)
	}
}

func TestPostmanFlush(t *testing.T) {
	l, _ := newTestLedger(t, nil)
	address := deploy(t, l)

	result, err := l.PostmanFlush(ctx)
	require.NoError(t, err)
	require.Empty(t, result.L1Provider)
	require.Empty(t, result.ConsumedMessages.FromL1)
	require.Empty(t, result.ConsumedMessages.FromL2)

	postman := &mocks.Postman{
		Provider: "http://localhost:8545",
		FromL1: []types.L1ToL2Message{{
			FromAddress: "0x5fbdb2315678afecb367f032d93f642f64180aa3",
			ToAddress:   address,
			Selector:    "100",
			Payload:     []string{"1"},
			Nonce:       "0",
		}},
	}
	l.SetPostman(postman)
	_, err = l.Invoke(ctx, invokeRequest(address, "send_message"))
	require.NoError(t, err)

	result, err = l.PostmanFlush(ctx)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8545", result.L1Provider)
	require.Equal(t, []types.L2ToL1Message{{FromAddress: messageTo, ToAddress: "0x123", Payload: []string{"0x1", "0x2"}}}, result.ConsumedMessages.FromL2)
	require.Equal(t, []types.L1ToL2Message{{
		FromAddress: "0x5fbdb2315678afecb367f032d93f642f64180aa3",
		ToAddress:   address,
		Selector:    "0x64",
		Payload:     []string{"0x1"},
		Nonce:       "0x0",
	}}, result.ConsumedMessages.FromL1)

	// consumed messages are not handed out twice
	result, err = l.PostmanFlush(ctx)
	require.NoError(t, err)
	require.Empty(t, result.ConsumedMessages.FromL2)
	require.Len(t, postman.Flushed(), 2)
	require.Empty(t, postman.Flushed()[1])

	postman.SetError(errors.New("l1 unreachable"))
	_, err = l.Invoke(ctx, invokeRequest(address, "send_message"))
	require.NoError(t, err)
	_, err = l.PostmanFlush(ctx)
	require.Error(t, err)
	postman.SetError(nil)
	result, err = l.PostmanFlush(ctx)
	require.NoError(t, err)
	require.Len(t, result.ConsumedMessages.FromL2, 1, "a failed flush consumes nothing")
}

func TestActualFee(t *testing.T) {
	weights := devnet.FeeWeights{NSteps: 0.05, Pedersen: 0.4, RangeCheck: 0.4, Ecdsa: 25.6}
	cases := []struct {
		name      string
		resources types.ExecutionResources
		expected  uint64
	}{
		{"nothing", types.ExecutionResources{}, 0},
		{"steps round up", types.ExecutionResources{NSteps: 21}, 2 * 100},
		{"builtin dominates", types.ExecutionResources{NSteps: 20, BuiltinInstanceCounter: types.BuiltinCounter{Ecdsa: 1}}, 26 * 100},
		{"range checks", types.ExecutionResources{NSteps: 20, BuiltinInstanceCounter: types.BuiltinCounter{RangeCheck: 10}}, 4 * 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fee := devnet.ActualFee(100, weights, tc.resources)
			require.Equal(t, tc.expected, fee.Uint64())
		})
	}
}

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err      error
		expected int
	}{
		{nil, 200},
		{devnet.ErrValidation, 400},
		{calldata.ErrTooFewArguments, 400},
		{devnet.ErrNotFound, 404},
		{devnet.ErrContractNotFound, 404},
		{&devnet.RejectedError{Cause: devnet.ErrFeeExceeded}, 500},
		{devnet.ErrCorruptDump, 500},
	}
	for _, tc := range cases {
		require.Equal(t, tc.expected, devnet.ErrorCode(tc.err), "%v", tc.err)
	}
}
