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

package origin

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	lru "github.com/hashicorp/golang-lru"
	log "github.com/sirupsen/logrus"

	"github.com/cerc-io/devnet-ledger/pkg/types"
)

// Namespace is the RPC namespace the upstream node serves the ledger API under
const Namespace = "devnet"

// DefaultCacheSize is the number of upstream responses kept by the forwarding origin
const DefaultCacheSize = 1024

var _ Origin = (*Forwarding)(nil)

// Forwarding proxies every query to an upstream node
type Forwarding struct {
	client *rpc.Client
	cache  *lru.Cache
	// upstream block count at the moment of forking
	blockCount uint64
}

// NewForwarding dials the upstream node and records its block count
func NewForwarding(ctx context.Context, url string, cacheSize int) (*Forwarding, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial fork origin %s: %w", url, err)
	}
	f, err := NewForwardingWithClient(ctx, client, cacheSize)
	if err != nil {
		client.Close()
		return nil, err
	}
	log.Infof("forked from %s at block count %d", url, f.blockCount)
	return f, nil
}

// NewForwardingWithClient builds a forwarding origin over an existing RPC client
func NewForwardingWithClient(ctx context.Context, client *rpc.Client, cacheSize int) (*Forwarding, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	f := &Forwarding{client: client, cache: cache}
	if err := f.call(ctx, &f.blockCount, "getNumberOfBlocks"); err != nil {
		return nil, fmt.Errorf("fetch fork block count: %w", err)
	}
	return f, nil
}

// Close releases the upstream connection
func (f *Forwarding) Close() {
	f.client.Close()
}

func (f *Forwarding) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	err := f.client.CallContext(ctx, result, Namespace+"_"+method, args...)
	if err == nil {
		return nil
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, rpcErr.Error())
	}
	return fmt.Errorf("fork origin %s: %w", method, err)
}

func (f *Forwarding) cached(key string, load func() (interface{}, error)) (interface{}, error) {
	if v, ok := f.cache.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return nil, err
	}
	f.cache.Add(key, v)
	return v, nil
}

func (f *Forwarding) GetTransactionStatus(ctx context.Context, txHash common.Hash) (*types.TransactionStatus, error) {
	status := new(types.TransactionStatus)
	if err := f.call(ctx, status, "getTransactionStatus", txHash); err != nil {
		return nil, err
	}
	return status, nil
}

func (f *Forwarding) GetTransaction(ctx context.Context, txHash common.Hash) (*types.Transaction, error) {
	tx := new(types.Transaction)
	if err := f.call(ctx, tx, "getTransaction", txHash); err != nil {
		return nil, err
	}
	return tx, nil
}

func (f *Forwarding) GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	receipt := new(types.Receipt)
	if err := f.call(ctx, receipt, "getTransactionReceipt", txHash); err != nil {
		return nil, err
	}
	return receipt, nil
}

func (f *Forwarding) GetTransactionTrace(ctx context.Context, txHash common.Hash) (*types.Trace, error) {
	v, err := f.cached("trace:"+txHash.Hex(), func() (interface{}, error) {
		trace := new(types.Trace)
		if err := f.call(ctx, trace, "getTransactionTrace", txHash); err != nil {
			return nil, err
		}
		return trace, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Trace), nil
}

func (f *Forwarding) GetBlockByHash(ctx context.Context, blockHash common.Hash) (*types.Block, error) {
	v, err := f.cached("block:"+blockHash.Hex(), func() (interface{}, error) {
		block := new(types.Block)
		if err := f.call(ctx, block, "getBlockByHash", blockHash); err != nil {
			return nil, err
		}
		return block, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Block), nil
}

// GetBlockByNumber only serves blocks that existed upstream when the fork was made.
// The latest block is the last one of the fork point, not the upstream head.
func (f *Forwarding) GetBlockByNumber(ctx context.Context, number *uint64) (*types.Block, error) {
	if number == nil {
		if f.blockCount == 0 {
			return nil, fmt.Errorf("%w: requested the latest block, but there are no blocks so far", ErrNotFound)
		}
		last := f.blockCount - 1
		number = &last
	}
	if *number >= f.blockCount {
		return nil, fmt.Errorf("%w: block number %d", ErrNotFound, *number)
	}
	n := *number
	v, err := f.cached(fmt.Sprintf("number:%d", n), func() (interface{}, error) {
		block := new(types.Block)
		if err := f.call(ctx, block, "getBlockByNumber", n); err != nil {
			return nil, err
		}
		return block, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Block), nil
}

func (f *Forwarding) GetCode(ctx context.Context, address common.Hash) (*types.Code, error) {
	code := new(types.Code)
	if err := f.call(ctx, code, "getCode", address); err != nil {
		return nil, err
	}
	return code, nil
}

func (f *Forwarding) GetFullContract(ctx context.Context, address common.Hash) (*types.ContractDefinition, error) {
	def := new(types.ContractDefinition)
	if err := f.call(ctx, def, "getFullContract", address); err != nil {
		return nil, err
	}
	return def, nil
}

func (f *Forwarding) GetStorageAt(ctx context.Context, address, key common.Hash) (common.Hash, error) {
	var value hexutil.Big
	if err := f.call(ctx, &value, "getStorageAt", address, key); err != nil {
		return common.Hash{}, err
	}
	return common.BigToHash(value.ToInt()), nil
}

func (f *Forwarding) GetNumberOfBlocks(_ context.Context) (uint64, error) {
	return f.blockCount, nil
}

// GetStateUpdate defaults to the state update of the last block of the fork
// point, like GetBlockByNumber, not to the upstream head.
func (f *Forwarding) GetStateUpdate(ctx context.Context, blockHash *common.Hash, blockNumber *uint64) (*types.StateUpdate, error) {
	if blockHash != nil {
		v, err := f.cached("update:"+blockHash.Hex(), func() (interface{}, error) {
			update := new(types.StateUpdate)
			if err := f.call(ctx, update, "getStateUpdate", blockHash, nil); err != nil {
				return nil, err
			}
			return update, nil
		})
		if err != nil {
			return nil, err
		}
		return v.(*types.StateUpdate), nil
	}
	if blockNumber == nil {
		if f.blockCount == 0 {
			return nil, fmt.Errorf("%w: requested the latest state update, but there are no blocks so far", ErrNotFound)
		}
		last := f.blockCount - 1
		blockNumber = &last
	}
	if *blockNumber >= f.blockCount {
		return nil, fmt.Errorf("%w: block number %d", ErrNotFound, *blockNumber)
	}
	update := new(types.StateUpdate)
	if err := f.call(ctx, update, "getStateUpdate", nil, *blockNumber); err != nil {
		return nil, err
	}
	return update, nil
}
