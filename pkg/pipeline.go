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
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/cerc-io/devnet-ledger/pkg/calldata"
	"github.com/cerc-io/devnet-ledger/pkg/engine"
	"github.com/cerc-io/devnet-ledger/pkg/types"
)

// Request is a transaction submitted to the ledger, either a DeployRequest or an InvokeRequest
type Request interface {
	TxType() types.TxType
}

// DeployRequest deploys a contract definition
type DeployRequest struct {
	Definition          *types.ContractDefinition
	ConstructorCalldata []uint256.Int
	Salt                uint256.Int
}

func (DeployRequest) TxType() types.TxType { return types.Deploy }

// InvokeRequest calls an external function of a deployed contract.
// A zero MaxFee skips the fee check.
type InvokeRequest struct {
	ContractAddress common.Hash
	Selector        common.Hash
	Calldata        []uint256.Int
	Signature       []uint256.Int
	MaxFee          uint256.Int
}

func (InvokeRequest) TxType() types.TxType { return types.InvokeFunction }

// TxResult is what the submitter of a transaction gets back
type TxResult struct {
	TransactionHash common.Hash
	ContractAddress common.Hash
	Status          types.TxStatus
	// Result holds the flattened return values of an accepted invoke
	Result []uint256.Int
}

// txRecord is everything kept about one transaction. It is complete when
// stored and never changes afterwards; resubmitting the same transaction
// stores a new record.
type txRecord struct {
	Hash           common.Hash
	Status         types.TxStatus
	Details        types.TransactionDetails
	Resources      types.ExecutionResources
	Events         []types.Event
	L2ToL1Messages []types.L2ToL1Message
	CallInfo       json.RawMessage
	FailureMessage string
	BlockHash      common.Hash
	BlockNumber    uint64
}

func (r *txRecord) accepted() bool {
	return r.Status == types.AcceptedOnL2 || r.Status == types.AcceptedOnL1
}

func (r *txRecord) failureReason() *types.FailureReason {
	if r.Status != types.Rejected {
		return nil
	}
	return &types.FailureReason{
		Code:         types.TransactionFailed,
		ErrorMessage: r.FailureMessage,
		TxID:         r.Hash,
	}
}

func (r *txRecord) status() *types.TransactionStatus {
	status := &types.TransactionStatus{
		TxStatus:        r.Status,
		TxFailureReason: r.failureReason(),
	}
	if r.accepted() {
		blockHash := r.BlockHash
		status.BlockHash = &blockHash
	}
	return status
}

func (r *txRecord) transaction() *types.Transaction {
	var index uint64
	details := r.Details
	tx := &types.Transaction{
		Status:                   r.Status,
		Transaction:              &details,
		TransactionIndex:         &index,
		TransactionFailureReason: r.failureReason(),
	}
	if r.accepted() {
		blockHash, blockNumber := r.BlockHash, r.BlockNumber
		tx.BlockHash, tx.BlockNumber = &blockHash, &blockNumber
	}
	return tx
}

func (r *txRecord) receipt() *types.Receipt {
	var index uint64
	resources := r.Resources
	receipt := &types.Receipt{
		Status:                   r.Status,
		TransactionHash:          r.Hash,
		TransactionIndex:         &index,
		ExecutionResources:       &resources,
		L2ToL1Messages:           r.L2ToL1Messages,
		Events:                   r.Events,
		TransactionFailureReason: r.failureReason(),
	}
	if r.accepted() {
		blockHash, blockNumber := r.BlockHash, r.BlockNumber
		receipt.BlockHash, receipt.BlockNumber = &blockHash, &blockNumber
	}
	return receipt
}

// blockReceipt is the receipt embedded in a block, which carries no status
func (r *txRecord) blockReceipt() types.Receipt {
	receipt := r.receipt()
	receipt.Status = ""
	return *receipt
}

func (r *txRecord) trace() *types.Trace {
	signature := r.Details.Signature
	if signature == nil {
		signature = []string{}
	}
	return &types.Trace{FunctionInvocation: r.CallInfo, Signature: signature}
}

// contractRecord is a locally deployed contract
type contractRecord struct {
	Address    common.Hash
	Definition types.ContractDefinition
	abi        *calldata.ABI
}

func newContractRecord(address common.Hash, definition types.ContractDefinition) (*contractRecord, error) {
	abi, err := calldata.ParseABI(definition.Abi)
	if err != nil {
		return nil, validationError("contract at %s: %v", address.Hex(), err)
	}
	return &contractRecord{Address: address, Definition: definition, abi: abi}, nil
}

func (c *contractRecord) code() *types.Code {
	bytecode, err := c.Definition.Bytecode()
	if err != nil {
		bytecode = []string{}
	}
	return &types.Code{Abi: c.Definition.Abi, Bytecode: bytecode}
}

// function resolves an entry point selector to the ABI function it names
func (c *contractRecord) function(selectorOf func(string) common.Hash, selector common.Hash) (calldata.Function, error) {
	for _, fn := range c.abi.Functions() {
		if selectorOf(fn.Name) == selector {
			return fn, nil
		}
	}
	return calldata.Function{}, validationError("illegal method selector %s", selector.Hex())
}

// blockRecord is a locally formed block. It holds its own copy of the
// transaction as committed, so a later transaction with the same hash
// leaves the block as it was.
type blockRecord struct {
	Hash       common.Hash
	Number     uint64
	ParentHash common.Hash
	StateRoot  common.Hash
	Timestamp  uint64
	Tx         txRecord
}

func deployDetails(hash, address common.Hash, req DeployRequest) types.TransactionDetails {
	return types.TransactionDetails{
		Type:                types.Deploy,
		ContractAddress:     address,
		TransactionHash:     hash,
		ConstructorCalldata: types.FeltsHex(req.ConstructorCalldata),
		ContractAddressSalt: types.FeltHex(req.Salt),
	}
}

func invokeDetails(hash common.Hash, req InvokeRequest) types.TransactionDetails {
	return types.TransactionDetails{
		Type:               types.InvokeFunction,
		ContractAddress:    req.ContractAddress,
		TransactionHash:    hash,
		Calldata:           types.FeltsHex(req.Calldata),
		Signature:          types.FeltsDecimal(req.Signature),
		EntryPointSelector: req.Selector.Hex(),
		EntryPointType:     types.EntryPointExternal,
		MaxFee:             types.FeltHex(req.MaxFee),
	}
}

// acceptedRecord fills a record from the engine's report of a successful execution
func acceptedRecord(hash common.Hash, details types.TransactionDetails, info *engine.ExecutionInfo) *txRecord {
	rec := &txRecord{
		Hash:           hash,
		Status:         types.AcceptedOnL2,
		Details:        details,
		Resources:      info.Resources,
		Events:         info.Events,
		L2ToL1Messages: info.L2ToL1Messages,
		CallInfo:       info.CallInfo,
	}
	rec.normalize()
	return rec
}

func rejectedRecord(hash common.Hash, details types.TransactionDetails, cause error) *txRecord {
	rec := &txRecord{
		Hash:           hash,
		Status:         types.Rejected,
		Details:        details,
		FailureMessage: cause.Error(),
	}
	rec.normalize()
	return rec
}

// normalize replaces absent lists with empty ones so records read the same before and after a dump
func (r *txRecord) normalize() {
	if r.Events == nil {
		r.Events = []types.Event{}
	}
	if r.L2ToL1Messages == nil {
		r.L2ToL1Messages = []types.L2ToL1Message{}
	}
	if len(r.CallInfo) == 0 {
		r.CallInfo = json.RawMessage("{}")
	}
}
