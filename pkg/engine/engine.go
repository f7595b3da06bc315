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

// Package engine describes the contract execution engine the ledger drives.
package engine

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/cerc-io/devnet-ledger/pkg/calldata"
	"github.com/cerc-io/devnet-ledger/pkg/types"
)

// Config is handed to the engine when the initial state is created
type Config struct {
	ChainID  string
	GasPrice uint64
}

// ExecutionInfo is everything the engine reports about one execution
type ExecutionInfo struct {
	Result         []calldata.Value
	Resources      types.ExecutionResources
	Events         []types.Event
	L2ToL1Messages []types.L2ToL1Message
	// CallInfo is the engine's dump of the function invocation, kept as the trace
	CallInfo json.RawMessage
}

// ExecutionError is returned when the engine rejects a call
type ExecutionError struct {
	Message string
}

func (e *ExecutionError) Error() string {
	return e.Message
}

// Engine creates execution states
type Engine interface {
	EmptyState(ctx context.Context, config Config) (State, error)
	// StateFromSnapshot returns a state that shares nothing with snapshot
	StateFromSnapshot(snapshot *types.Snapshot) (State, error)
	ContractAddress(caller common.Hash, salt uint256.Int, constructorCalldata []uint256.Int, definition *types.ContractDefinition) common.Hash
}

// State is a mutable handle on the global contract storage
type State interface {
	Deploy(ctx context.Context, definition *types.ContractDefinition, constructorCalldata []uint256.Int, salt uint256.Int) (common.Hash, *ExecutionInfo, error)
	Invoke(ctx context.Context, contract, selector common.Hash, args []calldata.Value, signature []uint256.Int) (*ExecutionInfo, error)
	Snapshot() (*types.Snapshot, error)
}
