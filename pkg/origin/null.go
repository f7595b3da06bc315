package origin

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cerc-io/devnet-ledger/pkg/types"
)

var _ Origin = Null{}

// Null is the origin of a chain that was not forked from anything
type Null struct{}

func (Null) GetTransactionStatus(_ context.Context, _ common.Hash) (*types.TransactionStatus, error) {
	return &types.TransactionStatus{TxStatus: types.NotReceived}, nil
}

func (Null) GetTransaction(_ context.Context, _ common.Hash) (*types.Transaction, error) {
	return &types.Transaction{Status: types.NotReceived}, nil
}

func (Null) GetTransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	return &types.Receipt{
		Status:          types.NotReceived,
		TransactionHash: txHash,
		L2ToL1Messages:  []types.L2ToL1Message{},
		Events:          []types.Event{},
	}, nil
}

func (Null) GetTransactionTrace(_ context.Context, txHash common.Hash) (*types.Trace, error) {
	return nil, fmt.Errorf("%w: transaction corresponding to hash %s", ErrNotFound, txHash.Hex())
}

func (Null) GetBlockByHash(_ context.Context, blockHash common.Hash) (*types.Block, error) {
	return nil, fmt.Errorf("%w: block hash %s", ErrNotFound, blockHash.Hex())
}

func (Null) GetBlockByNumber(_ context.Context, number *uint64) (*types.Block, error) {
	if number == nil {
		return nil, fmt.Errorf("%w: requested the latest block, but there are no blocks so far", ErrNotFound)
	}
	return nil, fmt.Errorf("%w: block number %d", ErrNotFound, *number)
}

func (Null) GetCode(_ context.Context, _ common.Hash) (*types.Code, error) {
	return types.EmptyCode(), nil
}

func (Null) GetFullContract(_ context.Context, _ common.Hash) (*types.ContractDefinition, error) {
	return types.EmptyContractDefinition(), nil
}

func (Null) GetStorageAt(_ context.Context, _, _ common.Hash) (common.Hash, error) {
	return common.Hash{}, nil
}

func (Null) GetNumberOfBlocks(_ context.Context) (uint64, error) {
	return 0, nil
}

func (Null) GetStateUpdate(_ context.Context, blockHash *common.Hash, blockNumber *uint64) (*types.StateUpdate, error) {
	switch {
	case blockHash != nil:
		return nil, fmt.Errorf("%w: no state updates saved for block hash %s", ErrNotFound, blockHash.Hex())
	case blockNumber != nil:
		return nil, fmt.Errorf("%w: no state updates saved for block number %d", ErrNotFound, *blockNumber)
	default:
		return nil, fmt.Errorf("%w: no state updates saved so far", ErrNotFound)
	}
}
