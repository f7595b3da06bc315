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

package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/cerc-io/devnet-ledger/pkg/calldata"
	"github.com/cerc-io/devnet-ledger/pkg/engine"
	"github.com/cerc-io/devnet-ledger/pkg/hashing"
	"github.com/cerc-io/devnet-ledger/pkg/types"
)

// Handler is the body of a mocked contract function. It may read and write
// the storage of the called contract; writes are discarded when it fails.
type Handler func(storage map[common.Hash]common.Hash, args []calldata.Value) (*engine.ExecutionInfo, error)

var _ engine.Engine = (*Engine)(nil)

// Engine is an in-memory execution engine driven by registered handlers
type Engine struct {
	hasher hashing.Hasher

	mu          sync.RWMutex
	handlers    map[common.Hash]Handler
	constructor Handler
	stateErr    error
	invocations int
}

// NewEngine returns a mock engine with no functions registered
func NewEngine() *Engine {
	return &Engine{
		hasher:   hashing.NewKeccak(),
		handlers: make(map[common.Hash]Handler),
	}
}

// Handle registers the handler run when the function called name is invoked on any contract
func (e *Engine) Handle(name string, handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[e.hasher.Selector(name)] = handler
}

// SetConstructor registers the handler run on every deploy
func (e *Engine) SetConstructor(handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.constructor = handler
}

// SetStateError makes every subsequent state creation fail with err
func (e *Engine) SetStateError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stateErr = err
}

// Invocations returns the number of handler runs so far
func (e *Engine) Invocations() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.invocations
}

func (e *Engine) EmptyState(_ context.Context, _ engine.Config) (engine.State, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.stateErr != nil {
		return nil, e.stateErr
	}
	snapshot := types.NewSnapshot(common.Hash{})
	snapshot.Root = StateRoot(snapshot)
	return &state{engine: e, snapshot: snapshot}, nil
}

func (e *Engine) StateFromSnapshot(snapshot *types.Snapshot) (engine.State, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.stateErr != nil {
		return nil, e.stateErr
	}
	return &state{engine: e, snapshot: snapshot.Copy()}, nil
}

func (e *Engine) ContractAddress(caller common.Hash, salt uint256.Int, constructorCalldata []uint256.Int, definition *types.ContractDefinition) common.Hash {
	classHash := e.hasher.ClassHash(definition)
	salt32 := salt.Bytes32()
	data := [][]byte{caller.Bytes(), salt32[:], classHash.Bytes()}
	for _, felt := range constructorCalldata {
		b := felt.Bytes32()
		data = append(data, b[:])
	}
	h := crypto.Keccak256Hash(data...)
	h[0] &= 0x03
	return h
}

func (e *Engine) run(handler Handler, storage map[common.Hash]common.Hash, args []calldata.Value) (*engine.ExecutionInfo, error) {
	e.mu.Lock()
	e.invocations++
	e.mu.Unlock()
	info, err := handler(storage, args)
	if err != nil {
		return nil, err
	}
	if info == nil {
		info = &engine.ExecutionInfo{}
	}
	return info, nil
}

type state struct {
	engine   *Engine
	snapshot *types.Snapshot
}

func (s *state) Deploy(_ context.Context, definition *types.ContractDefinition, constructorCalldata []uint256.Int, salt uint256.Int) (common.Hash, *engine.ExecutionInfo, error) {
	address := s.engine.ContractAddress(common.Hash{}, salt, constructorCalldata, definition)
	if _, ok := s.snapshot.Contracts[address]; ok {
		return common.Hash{}, nil, &engine.ExecutionError{Message: fmt.Sprintf("contract address %s is unavailable for deployment", address.Hex())}
	}
	storage := make(map[common.Hash]common.Hash)
	info := &engine.ExecutionInfo{}
	s.engine.mu.RLock()
	constructor := s.engine.constructor
	s.engine.mu.RUnlock()
	if constructor != nil {
		args := make([]calldata.Value, len(constructorCalldata))
		for i, felt := range constructorCalldata {
			args[i] = calldata.FeltValue(felt)
		}
		var err error
		if info, err = s.engine.run(constructor, storage, args); err != nil {
			return common.Hash{}, nil, err
		}
	}
	s.snapshot.Contracts[address] = &types.ContractState{
		CodeHash: s.engine.hasher.ClassHash(definition),
		Storage:  storage,
	}
	return address, info, nil
}

func (s *state) Invoke(_ context.Context, contract, selector common.Hash, args []calldata.Value, _ []uint256.Int) (*engine.ExecutionInfo, error) {
	target, ok := s.snapshot.Contracts[contract]
	if !ok {
		return nil, &engine.ExecutionError{Message: fmt.Sprintf("requested contract address %s is not deployed", contract.Hex())}
	}
	s.engine.mu.RLock()
	handler, ok := s.engine.handlers[selector]
	s.engine.mu.RUnlock()
	if !ok {
		return nil, &engine.ExecutionError{Message: fmt.Sprintf("entry point %s not found in contract", selector.Hex())}
	}
	storage := make(map[common.Hash]common.Hash, len(target.Storage))
	for k, v := range target.Storage {
		storage[k] = v
	}
	info, err := s.engine.run(handler, storage, args)
	if err != nil {
		return nil, err
	}
	target.Storage = storage
	return info, nil
}

func (s *state) Snapshot() (*types.Snapshot, error) {
	snapshot := s.snapshot.Copy()
	snapshot.Root = StateRoot(snapshot)
	return snapshot, nil
}

// StateRoot commits to every contract and storage slot of the snapshot
func StateRoot(snapshot *types.Snapshot) common.Hash {
	var data [][]byte
	for _, address := range snapshot.SortedAddresses() {
		contract := snapshot.Contracts[address]
		data = append(data, address.Bytes(), contract.CodeHash.Bytes())
		keys := make([]common.Hash, 0, len(contract.Storage))
		for key := range contract.Storage {
			keys = append(keys, key)
		}
		types.SortHashes(keys)
		for _, key := range keys {
			value := contract.Storage[key]
			data = append(data, key.Bytes(), value.Bytes())
		}
	}
	root := crypto.Keccak256Hash(data...)
	root[0] &= 0x03
	return root
}
