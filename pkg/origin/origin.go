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

// Package origin provides the upstream chains consulted when the local
// ledger does not hold the requested data.
package origin

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cerc-io/devnet-ledger/pkg/types"
)

// ErrNotFound is returned when neither the ledger nor its origin knows the requested item
var ErrNotFound = errors.New("not found")

// Origin is the read side of a chain
type Origin interface {
	GetTransactionStatus(ctx context.Context, txHash common.Hash) (*types.TransactionStatus, error)
	GetTransaction(ctx context.Context, txHash common.Hash) (*types.Transaction, error)
	GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	GetTransactionTrace(ctx context.Context, txHash common.Hash) (*types.Trace, error)
	GetBlockByHash(ctx context.Context, blockHash common.Hash) (*types.Block, error)
	// GetBlockByNumber returns the latest block when number is nil
	GetBlockByNumber(ctx context.Context, number *uint64) (*types.Block, error)
	GetCode(ctx context.Context, address common.Hash) (*types.Code, error)
	GetFullContract(ctx context.Context, address common.Hash) (*types.ContractDefinition, error)
	GetStorageAt(ctx context.Context, address, key common.Hash) (common.Hash, error)
	GetNumberOfBlocks(ctx context.Context) (uint64, error)
	// GetStateUpdate returns the latest state update when neither selector is given
	GetStateUpdate(ctx context.Context, blockHash *common.Hash, blockNumber *uint64) (*types.StateUpdate, error)
}
