package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cerc-io/devnet-ledger/pkg/origin"
	"github.com/cerc-io/devnet-ledger/pkg/types"
)

var _ origin.Origin = (*Origin)(nil)

// Origin is a fixed upstream chain. Anything it is not seeded with is
// answered the way the null origin answers it.
type Origin struct {
	origin.Null

	Blocks       []*types.Block
	Statuses     map[common.Hash]*types.TransactionStatus
	Storage      map[common.Hash]map[common.Hash]common.Hash
	StateUpdates map[common.Hash]*types.StateUpdate

	mu    sync.Mutex
	calls map[string]int
}

// NewOrigin returns an origin holding blocks, numbered by their position
func NewOrigin(blocks ...*types.Block) *Origin {
	return &Origin{
		Blocks:       blocks,
		Statuses:     make(map[common.Hash]*types.TransactionStatus),
		Storage:      make(map[common.Hash]map[common.Hash]common.Hash),
		StateUpdates: make(map[common.Hash]*types.StateUpdate),
		calls:        make(map[string]int),
	}
}

// Calls returns how many times method was called
func (o *Origin) Calls(method string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[method]
}

func (o *Origin) hit(method string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls[method]++
}

func (o *Origin) GetTransactionStatus(ctx context.Context, txHash common.Hash) (*types.TransactionStatus, error) {
	o.hit("GetTransactionStatus")
	if status, ok := o.Statuses[txHash]; ok {
		return status, nil
	}
	return o.Null.GetTransactionStatus(ctx, txHash)
}

func (o *Origin) GetBlockByHash(ctx context.Context, blockHash common.Hash) (*types.Block, error) {
	o.hit("GetBlockByHash")
	for _, block := range o.Blocks {
		if block.BlockHash == blockHash {
			return block, nil
		}
	}
	return o.Null.GetBlockByHash(ctx, blockHash)
}

func (o *Origin) GetBlockByNumber(ctx context.Context, number *uint64) (*types.Block, error) {
	o.hit("GetBlockByNumber")
	if number == nil {
		if len(o.Blocks) == 0 {
			return o.Null.GetBlockByNumber(ctx, nil)
		}
		return o.Blocks[len(o.Blocks)-1], nil
	}
	if *number >= uint64(len(o.Blocks)) {
		return nil, fmt.Errorf("%w: block number %d", origin.ErrNotFound, *number)
	}
	return o.Blocks[*number], nil
}

func (o *Origin) GetStorageAt(ctx context.Context, address, key common.Hash) (common.Hash, error) {
	o.hit("GetStorageAt")
	if value, ok := o.Storage[address][key]; ok {
		return value, nil
	}
	return o.Null.GetStorageAt(ctx, address, key)
}

func (o *Origin) GetNumberOfBlocks(context.Context) (uint64, error) {
	o.hit("GetNumberOfBlocks")
	return uint64(len(o.Blocks)), nil
}

func (o *Origin) GetStateUpdate(ctx context.Context, blockHash *common.Hash, blockNumber *uint64) (*types.StateUpdate, error) {
	o.hit("GetStateUpdate")
	if blockHash != nil {
		if update, ok := o.StateUpdates[*blockHash]; ok {
			return update, nil
		}
	}
	if blockNumber != nil && *blockNumber < uint64(len(o.Blocks)) {
		if update, ok := o.StateUpdates[o.Blocks[*blockNumber].BlockHash]; ok {
			return update, nil
		}
	}
	return o.Null.GetStateUpdate(ctx, blockHash, blockNumber)
}
