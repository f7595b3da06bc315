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

package devnet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/cerc-io/devnet-ledger/pkg/calldata"
	"github.com/cerc-io/devnet-ledger/pkg/engine"
	"github.com/cerc-io/devnet-ledger/pkg/hashing"
	"github.com/cerc-io/devnet-ledger/pkg/origin"
	"github.com/cerc-io/devnet-ledger/pkg/prom"
	"github.com/cerc-io/devnet-ledger/pkg/statediff"
	"github.com/cerc-io/devnet-ledger/pkg/types"
)

// Ledger is the local chain: the current contract storage snapshot and the
// indices of every contract, transaction, block and state update formed on it
type Ledger struct {
	config  *Config
	engine  engine.Engine
	hasher  hashing.Hasher
	differ  statediff.Builder
	origin  origin.Origin
	postman Postman
	now     func() time.Time

	// serialises deploys and invokes
	writeMu sync.Mutex

	// guards everything below
	mu           sync.RWMutex
	current      *types.Snapshot
	contracts    map[common.Hash]*contractRecord
	transactions map[common.Hash]*txRecord
	blocks       []*blockRecord
	blocksByHash map[common.Hash]*blockRecord
	stateUpdates map[common.Hash]*types.StateUpdate
	// upstream chain height and head at the moment of forking
	originBlocks uint64
	originHead   common.Hash
	// L2 to L1 messages of accepted transactions, and how many the postman has consumed
	l2ToL1Log      []types.L2ToL1Message
	consumedL2ToL1 uint64
}

func newLedger(config *Config, eng engine.Engine, org origin.Origin) *Ledger {
	if org == nil {
		org = origin.Null{}
	}
	return &Ledger{
		config:       config,
		engine:       eng,
		hasher:       hashing.NewKeccak(),
		differ:       statediff.NewBuilder(),
		origin:       org,
		now:          time.Now,
		contracts:    make(map[common.Hash]*contractRecord),
		transactions: make(map[common.Hash]*txRecord),
		blocksByHash: make(map[common.Hash]*blockRecord),
		stateUpdates: make(map[common.Hash]*types.StateUpdate),
	}
}

// NewLedger creates an empty ledger on top of org. A nil origin means the ledger is not forked.
func NewLedger(ctx context.Context, config *Config, eng engine.Engine, org origin.Origin) (*Ledger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	l := newLedger(config, eng, org)
	state, err := eng.EmptyState(ctx, config.engineConfig())
	if err != nil {
		return nil, fmt.Errorf("create empty state: %w", err)
	}
	if l.current, err = state.Snapshot(); err != nil {
		return nil, fmt.Errorf("snapshot empty state: %w", err)
	}
	if err := l.recordForkPoint(ctx); err != nil {
		return nil, err
	}
	logrus.Infof("ledger created: %s", config)
	return l, nil
}

func (l *Ledger) recordForkPoint(ctx context.Context) error {
	count, err := l.origin.GetNumberOfBlocks(ctx)
	if err != nil {
		return fmt.Errorf("fetch origin block count: %w", err)
	}
	l.originBlocks = count
	if count == 0 {
		return nil
	}
	head, err := l.origin.GetBlockByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("fetch origin head: %w", err)
	}
	l.originHead = head.BlockHash
	return nil
}

// SetPostman installs the L1 messaging bridge used by PostmanFlush
func (l *Ledger) SetPostman(postman Postman) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	l.postman = postman
}

// Config returns the config the ledger was created with
func (l *Ledger) Config() *Config {
	return l.config
}

// Snapshot returns the current contract storage snapshot. It must not be modified.
func (l *Ledger) Snapshot() *types.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Deploy deploys a contract. Deploying to an address that already holds a
// contract returns the existing address and hash without executing anything.
func (l *Ledger) Deploy(ctx context.Context, req DeployRequest) (*TxResult, error) {
	if req.Definition == nil {
		return nil, validationError("deploy without a contract definition")
	}
	address := l.engine.ContractAddress(common.Hash{}, req.Salt, req.ConstructorCalldata, req.Definition)
	hash := l.hasher.DeployTransactionHash(address, req.ConstructorCalldata, l.config.ChainID)
	contract, err := newContractRecord(address, *req.Definition)
	if err != nil {
		return nil, err
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.RLock()
	_, deployed := l.contracts[address]
	current := l.current
	l.mu.RUnlock()
	if deployed {
		logrus.Debugf("contract %s already deployed, skipping transaction %s", address.Hex(), hash.Hex())
		return &TxResult{TransactionHash: hash, ContractAddress: address, Status: l.localStatus(hash)}, nil
	}

	details := deployDetails(hash, address, req)
	state, err := l.engine.StateFromSnapshot(current)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	deployedAt, info, err := state.Deploy(ctx, req.Definition, req.ConstructorCalldata, req.Salt)
	prom.SetTimeMetric(prom.T_EXECUTION, time.Since(start))
	if err != nil {
		var execErr *engine.ExecutionError
		if errors.As(err, &execErr) {
			return l.reject(hash, address, details, err)
		}
		return nil, err
	}
	if deployedAt != address {
		return nil, fmt.Errorf("engine deployed to %s, expected %s", deployedAt.Hex(), address.Hex())
	}
	if err := l.accept(current, state, acceptedRecord(hash, details, info), nil, contract); err != nil {
		return nil, err
	}
	return &TxResult{TransactionHash: hash, ContractAddress: address, Status: types.AcceptedOnL2}, nil
}

// Invoke executes an external function of a deployed contract and commits its effects in a new block
func (l *Ledger) Invoke(ctx context.Context, req InvokeRequest) (*TxResult, error) {
	hash := l.hasher.InvokeTransactionHash(req.ContractAddress, req.Selector, req.Calldata, req.MaxFee, l.config.ChainID)
	details := invokeDetails(hash, req)

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.RLock()
	contract, ok := l.contracts[req.ContractAddress]
	current := l.current
	l.mu.RUnlock()
	if !ok {
		return l.reject(hash, req.ContractAddress, details, contractNotFound(req.ContractAddress))
	}
	fn, err := contract.function(l.hasher.Selector, req.Selector)
	if err != nil {
		return l.reject(hash, req.ContractAddress, details, err)
	}
	args, err := calldata.Adapt(req.Calldata, fn.Inputs, contract.abi.Types())
	if err != nil {
		return l.reject(hash, req.ContractAddress, details, err)
	}

	if !req.MaxFee.IsZero() {
		fee, err := l.estimate(ctx, current, req, args)
		if err != nil {
			return l.rejectExecution(hash, req.ContractAddress, details, err)
		}
		if fee.Gt(&req.MaxFee) {
			return l.reject(hash, req.ContractAddress, details,
				fmt.Errorf("%w: %s > %s", ErrFeeExceeded, fee.ToBig(), req.MaxFee.ToBig()))
		}
	}

	state, err := l.engine.StateFromSnapshot(current)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	info, err := state.Invoke(ctx, req.ContractAddress, req.Selector, args, req.Signature)
	prom.SetTimeMetric(prom.T_EXECUTION, time.Since(start))
	if err != nil {
		return l.rejectExecution(hash, req.ContractAddress, details, err)
	}
	if err := l.accept(current, state, acceptedRecord(hash, details, info), req.Signature, nil); err != nil {
		return nil, err
	}
	return &TxResult{
		TransactionHash: hash,
		ContractAddress: req.ContractAddress,
		Status:          types.AcceptedOnL2,
		Result:          calldata.Flatten(info.Result),
	}, nil
}

// Call executes an external function against a throwaway copy of the current
// state and returns its flattened result. Nothing is recorded.
func (l *Ledger) Call(ctx context.Context, req InvokeRequest) ([]uint256.Int, error) {
	info, err := l.dryRun(ctx, req)
	if err != nil {
		return nil, err
	}
	return calldata.Flatten(info.Result), nil
}

// EstimateFee returns the fee the invoke would be charged if submitted now
func (l *Ledger) EstimateFee(ctx context.Context, req InvokeRequest) (uint256.Int, error) {
	info, err := l.dryRun(ctx, req)
	if err != nil {
		return uint256.Int{}, err
	}
	return ActualFee(l.config.GasPrice, l.config.FeeWeights, info.Resources), nil
}

func (l *Ledger) dryRun(ctx context.Context, req InvokeRequest) (*engine.ExecutionInfo, error) {
	l.mu.RLock()
	contract, ok := l.contracts[req.ContractAddress]
	current := l.current
	l.mu.RUnlock()
	if !ok {
		return nil, contractNotFound(req.ContractAddress)
	}
	fn, err := contract.function(l.hasher.Selector, req.Selector)
	if err != nil {
		return nil, err
	}
	args, err := calldata.Adapt(req.Calldata, fn.Inputs, contract.abi.Types())
	if err != nil {
		return nil, err
	}
	state, err := l.engine.StateFromSnapshot(current)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	info, err := state.Invoke(ctx, req.ContractAddress, req.Selector, args, req.Signature)
	prom.SetTimeMetric(prom.T_EXECUTION, time.Since(start))
	if err != nil {
		var execErr *engine.ExecutionError
		if errors.As(err, &execErr) {
			return nil, fmt.Errorf("%w: %w", ErrExecutionRejected, err)
		}
		return nil, err
	}
	return info, nil
}

// estimate runs the invoke against a state restored from current and prices it.
// The state is dropped whatever the outcome.
func (l *Ledger) estimate(ctx context.Context, current *types.Snapshot, req InvokeRequest, args []calldata.Value) (uint256.Int, error) {
	start := time.Now()
	defer func() { prom.SetTimeMetric(prom.T_FEE_ESTIMATION, time.Since(start)) }()
	state, err := l.engine.StateFromSnapshot(current)
	if err != nil {
		return uint256.Int{}, err
	}
	info, err := state.Invoke(ctx, req.ContractAddress, req.Selector, args, req.Signature)
	if err != nil {
		return uint256.Int{}, err
	}
	return ActualFee(l.config.GasPrice, l.config.FeeWeights, info.Resources), nil
}

// rejectExecution records engine execution errors as rejections and passes anything else through
func (l *Ledger) rejectExecution(hash, address common.Hash, details types.TransactionDetails, err error) (*TxResult, error) {
	var execErr *engine.ExecutionError
	if !errors.As(err, &execErr) {
		return nil, err
	}
	return l.reject(hash, address, details, err)
}

// reject records a rejected transaction. An accepted transaction with the
// same hash keeps its record.
func (l *Ledger) reject(hash, address common.Hash, details types.TransactionDetails, cause error) (*TxResult, error) {
	rec := rejectedRecord(hash, details, cause)
	l.mu.Lock()
	if prev, ok := l.transactions[hash]; !ok || !prev.accepted() {
		l.transactions[hash] = rec
	}
	l.mu.Unlock()

	prom.IncRejected(string(details.Type))
	logrus.WithField("hash", hash.Hex()).Infof("%s transaction rejected: %v", details.Type, cause)
	return &TxResult{TransactionHash: hash, ContractAddress: address, Status: types.Rejected},
		&RejectedError{TxHash: hash, Cause: cause}
}

// accept snapshots the executed state and commits it together with the
// transaction, its block and its state update
func (l *Ledger) accept(previous *types.Snapshot, state engine.State, rec *txRecord, signature []uint256.Int, contract *contractRecord) error {
	snapshot, err := state.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot state: %w", err)
	}
	start := time.Now()
	update := l.differ.BuildStateUpdate(previous, snapshot)
	prom.SetTimeMetric(prom.T_STATE_DIFF, time.Since(start))
	normalizeStateUpdate(&update)

	l.mu.Lock()
	defer l.mu.Unlock()
	block := &blockRecord{
		Number:     l.blockCount(),
		ParentHash: l.headHash(),
		StateRoot:  snapshot.Root,
		Timestamp:  uint64(l.now().Unix()),
	}
	block.Hash = l.hasher.BlockHash(hashing.BlockHeader{
		ParentHash:   block.ParentHash,
		Number:       block.Number,
		StateRoot:    block.StateRoot,
		Timestamp:    block.Timestamp,
		TxHashes:     []common.Hash{rec.Hash},
		TxSignatures: [][]common.Hash{feltHashes(signature)},
	})
	rec.BlockHash, rec.BlockNumber = block.Hash, block.Number
	block.Tx = *rec
	update.BlockHash = block.Hash

	l.current = snapshot
	if contract != nil {
		l.contracts[contract.Address] = contract
	}
	l.transactions[rec.Hash] = rec
	l.blocks = append(l.blocks, block)
	l.blocksByHash[block.Hash] = block
	l.stateUpdates[block.Hash] = &update
	l.l2ToL1Log = append(l.l2ToL1Log, rec.L2ToL1Messages...)

	prom.IncAccepted(string(rec.Details.Type))
	prom.SetBlockHeight(block.Number)
	logrus.WithFields(logrus.Fields{
		"hash":   rec.Hash.Hex(),
		"block":  block.Number,
		"root":   block.StateRoot.Hex(),
		"txType": rec.Details.Type,
	}).Info("transaction accepted")
	return nil
}

// blockCount is the number of blocks on the chain, upstream ones included. Callers hold mu.
func (l *Ledger) blockCount() uint64 {
	return l.originBlocks + uint64(len(l.blocks))
}

// headHash is the hash of the latest block, or zero before the first one. Callers hold mu.
func (l *Ledger) headHash() common.Hash {
	if len(l.blocks) > 0 {
		return l.blocks[len(l.blocks)-1].Hash
	}
	return l.originHead
}

func (l *Ledger) localStatus(hash common.Hash) types.TxStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if rec, ok := l.transactions[hash]; ok {
		return rec.Status
	}
	return types.AcceptedOnL2
}

// GetTransactionStatus returns the status of a transaction
func (l *Ledger) GetTransactionStatus(ctx context.Context, hash common.Hash) (*types.TransactionStatus, error) {
	if rec, ok := l.transaction(hash); ok {
		return rec.status(), nil
	}
	return l.origin.GetTransactionStatus(ctx, hash)
}

// GetTransaction returns a transaction with its block data
func (l *Ledger) GetTransaction(ctx context.Context, hash common.Hash) (*types.Transaction, error) {
	if rec, ok := l.transaction(hash); ok {
		return rec.transaction(), nil
	}
	return l.origin.GetTransaction(ctx, hash)
}

// GetTransactionReceipt returns the receipt of a transaction
func (l *Ledger) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if rec, ok := l.transaction(hash); ok {
		return rec.receipt(), nil
	}
	return l.origin.GetTransactionReceipt(ctx, hash)
}

// GetTransactionTrace returns the function invocation of an accepted transaction
func (l *Ledger) GetTransactionTrace(ctx context.Context, hash common.Hash) (*types.Trace, error) {
	if rec, ok := l.transaction(hash); ok {
		if !rec.accepted() {
			return nil, fmt.Errorf("%w: transaction corresponding to hash %s has no trace; status: %s", ErrNotFound, hash.Hex(), rec.Status)
		}
		return rec.trace(), nil
	}
	return l.origin.GetTransactionTrace(ctx, hash)
}

func (l *Ledger) transaction(hash common.Hash) (*txRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.transactions[hash]
	return rec, ok
}

// GetBlockByHash returns a block by its hash
func (l *Ledger) GetBlockByHash(ctx context.Context, hash common.Hash) (*types.Block, error) {
	l.mu.RLock()
	block, ok := l.blocksByHash[hash]
	if ok {
		defer l.mu.RUnlock()
		return l.blockView(block), nil
	}
	l.mu.RUnlock()
	return l.origin.GetBlockByHash(ctx, hash)
}

// GetBlockByNumber returns a block by its number, or the latest block when number is nil
func (l *Ledger) GetBlockByNumber(ctx context.Context, number *int64) (*types.Block, error) {
	l.mu.RLock()
	if number == nil {
		if len(l.blocks) > 0 {
			defer l.mu.RUnlock()
			return l.blockView(l.blocks[len(l.blocks)-1]), nil
		}
		l.mu.RUnlock()
		return l.origin.GetBlockByNumber(ctx, nil)
	}
	n, err := l.checkBlockNumber(*number)
	if err != nil {
		l.mu.RUnlock()
		return nil, err
	}
	if n >= l.originBlocks {
		defer l.mu.RUnlock()
		return l.blockView(l.blocks[n-l.originBlocks]), nil
	}
	l.mu.RUnlock()
	return l.origin.GetBlockByNumber(ctx, &n)
}

// checkBlockNumber rejects numbers no block can have. Callers hold mu.
func (l *Ledger) checkBlockNumber(number int64) (uint64, error) {
	if number < 0 {
		return 0, validationError("block number must be a non-negative integer; got: %d", number)
	}
	if count := l.blockCount(); uint64(number) >= count {
		return 0, fmt.Errorf("%w: %w: block number too high, there are currently %d blocks; got: %d",
			ErrValidation, ErrNotFound, count, number)
	}
	return uint64(number), nil
}

// blockView renders a local block from the transaction it was formed with
func (l *Ledger) blockView(block *blockRecord) *types.Block {
	rec := &block.Tx
	return &types.Block{
		BlockHash:           block.Hash,
		BlockNumber:         block.Number,
		ParentBlockHash:     block.ParentHash,
		StateRoot:           block.StateRoot,
		Status:              rec.Status,
		Timestamp:           block.Timestamp,
		TransactionReceipts: []types.Receipt{rec.blockReceipt()},
		Transactions:        []types.TransactionDetails{rec.Details},
	}
}

// GetCode returns the ABI and bytecode of a contract
func (l *Ledger) GetCode(ctx context.Context, address common.Hash) (*types.Code, error) {
	if contract, ok := l.contract(address); ok {
		return contract.code(), nil
	}
	return l.origin.GetCode(ctx, address)
}

// GetFullContract returns the definition a contract was deployed with
func (l *Ledger) GetFullContract(ctx context.Context, address common.Hash) (*types.ContractDefinition, error) {
	if contract, ok := l.contract(address); ok {
		definition := contract.Definition
		return &definition, nil
	}
	return l.origin.GetFullContract(ctx, address)
}

func (l *Ledger) contract(address common.Hash) (*contractRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	contract, ok := l.contracts[address]
	return contract, ok
}

// GetStorageAt returns the value at key of a contract's storage
func (l *Ledger) GetStorageAt(ctx context.Context, address, key common.Hash) (common.Hash, error) {
	l.mu.RLock()
	value, ok := l.current.StorageAt(address, key)
	l.mu.RUnlock()
	if ok {
		return value, nil
	}
	return l.origin.GetStorageAt(ctx, address, key)
}

// GetNumberOfBlocks returns the number of blocks, upstream ones included
func (l *Ledger) GetNumberOfBlocks(_ context.Context) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.blockCount(), nil
}

// GetStateUpdate returns the state update of the block selected by hash or
// number, or of the latest block when neither is given
func (l *Ledger) GetStateUpdate(ctx context.Context, blockHash *common.Hash, blockNumber *int64) (*types.StateUpdate, error) {
	if blockHash != nil && blockNumber != nil {
		return nil, validationError("ambiguous criteria: only one of (block number, block hash) can be provided")
	}
	l.mu.RLock()
	switch {
	case blockHash != nil:
		if update, ok := l.stateUpdates[*blockHash]; ok {
			defer l.mu.RUnlock()
			return update, nil
		}
		l.mu.RUnlock()
		return l.origin.GetStateUpdate(ctx, blockHash, nil)
	case blockNumber != nil:
		n, err := l.checkBlockNumber(*blockNumber)
		if err != nil {
			l.mu.RUnlock()
			return nil, err
		}
		if n >= l.originBlocks {
			defer l.mu.RUnlock()
			return l.stateUpdates[l.blocks[n-l.originBlocks].Hash], nil
		}
		l.mu.RUnlock()
		return l.origin.GetStateUpdate(ctx, nil, &n)
	default:
		if len(l.blocks) > 0 {
			defer l.mu.RUnlock()
			return l.stateUpdates[l.blocks[len(l.blocks)-1].Hash], nil
		}
		l.mu.RUnlock()
		return l.origin.GetStateUpdate(ctx, nil, nil)
	}
}

func contractNotFound(address common.Hash) error {
	return fmt.Errorf("%w: no contract at the provided address (%s)", ErrContractNotFound, address.Hex())
}

func normalizeStateUpdate(update *types.StateUpdate) {
	if update.StateDiff.DeployedContracts == nil {
		update.StateDiff.DeployedContracts = []types.DeployedContract{}
	}
	if update.StateDiff.StorageDiffs == nil {
		update.StateDiff.StorageDiffs = []types.ContractStorageDiff{}
	}
}

func feltHashes(felts []uint256.Int) []common.Hash {
	hashes := make([]common.Hash, len(felts))
	for i := range felts {
		hashes[i] = types.FeltToHash(felts[i])
	}
	return hashes
}
