package engine

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/cerc-io/devnet-ledger/pkg/calldata"
	"github.com/cerc-io/devnet-ledger/pkg/types"
)

// ErrNoEngine is returned by every mutation when no engine is linked in
var ErrNoEngine = errors.New("no execution engine configured")

var _ Engine = Unavailable{}

// Unavailable serves a ledger read-only: states can be created and
// snapshotted, but nothing can be executed against them
type Unavailable struct{}

func (Unavailable) EmptyState(context.Context, Config) (State, error) {
	return &unavailableState{snapshot: types.NewSnapshot(common.Hash{})}, nil
}

func (Unavailable) StateFromSnapshot(snapshot *types.Snapshot) (State, error) {
	return &unavailableState{snapshot: snapshot.Copy()}, nil
}

func (Unavailable) ContractAddress(common.Hash, uint256.Int, []uint256.Int, *types.ContractDefinition) common.Hash {
	return common.Hash{}
}

type unavailableState struct {
	snapshot *types.Snapshot
}

func (s *unavailableState) Deploy(context.Context, *types.ContractDefinition, []uint256.Int, uint256.Int) (common.Hash, *ExecutionInfo, error) {
	return common.Hash{}, nil, ErrNoEngine
}

func (s *unavailableState) Invoke(context.Context, common.Hash, common.Hash, []calldata.Value, []uint256.Int) (*ExecutionInfo, error) {
	return nil, ErrNoEngine
}

func (s *unavailableState) Snapshot() (*types.Snapshot, error) {
	return s.snapshot.Copy(), nil
}
