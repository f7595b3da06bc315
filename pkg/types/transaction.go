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

package types

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

// TxStatus is the lifecycle status of a transaction
type TxStatus string

// Transaction statuses
const (
	NotReceived  TxStatus = "NOT_RECEIVED"
	Received     TxStatus = "RECEIVED"
	Pending      TxStatus = "PENDING"
	Rejected     TxStatus = "REJECTED"
	AcceptedOnL2 TxStatus = "ACCEPTED_ON_L2"
	AcceptedOnL1 TxStatus = "ACCEPTED_ON_L1"
)

// TxType identifies the kind of a transaction
type TxType string

// Transaction types
const (
	Deploy         TxType = "DEPLOY"
	InvokeFunction TxType = "INVOKE_FUNCTION"
)

// Entry point type and failure codes reported in transaction views
const (
	EntryPointExternal  = "EXTERNAL"
	TransactionFailed   = "TRANSACTION_FAILED"
	TransactionReceived = "TRANSACTION_RECEIVED"
)

// TransactionDetails is the client-facing description of a submitted transaction.
// Deploy transactions fill the constructor fields, invoke transactions the entry point fields.
type TransactionDetails struct {
	Type                TxType      `json:"type"`
	ContractAddress     common.Hash `json:"contract_address"`
	TransactionHash     common.Hash `json:"transaction_hash"`
	ConstructorCalldata []string    `json:"constructor_calldata,omitempty"`
	ContractAddressSalt string      `json:"contract_address_salt,omitempty"`
	Calldata            []string    `json:"calldata,omitempty"`
	Signature           []string    `json:"signature,omitempty"`
	EntryPointSelector  string      `json:"entry_point_selector,omitempty"`
	EntryPointType      string      `json:"entry_point_type,omitempty"`
	MaxFee              string      `json:"max_fee,omitempty"`
}

// FailureReason explains why a transaction was rejected
type FailureReason struct {
	Code         string      `json:"code"`
	ErrorMessage string      `json:"error_message"`
	TxID         common.Hash `json:"tx_id"`
}

// Event is an event emitted during execution
type Event struct {
	FromAddress common.Hash `json:"from_address"`
	Keys        []string    `json:"keys"`
	Data        []string    `json:"data"`
}

// L2ToL1Message is a message sent by a contract to the L1 network
type L2ToL1Message struct {
	FromAddress common.Hash `json:"from_address"`
	ToAddress   string      `json:"to_address"`
	Payload     []string    `json:"payload"`
}

// L1ToL2Message is a message consumed from the L1 network
type L1ToL2Message struct {
	FromAddress string      `json:"from_address"`
	ToAddress   common.Hash `json:"to_address"`
	Selector    string      `json:"selector"`
	Payload     []string    `json:"payload"`
	Nonce       string      `json:"nonce"`
}

// BuiltinCounter counts builtin invocations of an execution
type BuiltinCounter struct {
	Pedersen   uint64 `json:"pedersen_builtin"`
	RangeCheck uint64 `json:"range_check_builtin"`
	Ecdsa      uint64 `json:"ecdsa_builtin"`
	Bitwise    uint64 `json:"bitwise_builtin"`
	Output     uint64 `json:"output_builtin"`
	EcOp       uint64 `json:"ec_op_builtin"`
}

// ExecutionResources is the resource usage report of an execution
type ExecutionResources struct {
	NSteps                 uint64         `json:"n_steps"`
	NMemoryHoles           uint64         `json:"n_memory_holes"`
	BuiltinInstanceCounter BuiltinCounter `json:"builtin_instance_counter"`
}

// TransactionStatus is the short status view of a transaction
type TransactionStatus struct {
	TxStatus        TxStatus       `json:"tx_status"`
	BlockHash       *common.Hash   `json:"block_hash,omitempty"`
	TxFailureReason *FailureReason `json:"tx_failure_reason,omitempty"`
}

// Transaction is the full view of a transaction
type Transaction struct {
	Status                   TxStatus            `json:"status"`
	Transaction              *TransactionDetails `json:"transaction,omitempty"`
	TransactionIndex         *uint64             `json:"transaction_index,omitempty"`
	BlockHash                *common.Hash        `json:"block_hash,omitempty"`
	BlockNumber              *uint64             `json:"block_number,omitempty"`
	TransactionFailureReason *FailureReason      `json:"transaction_failure_reason,omitempty"`
}

// Receipt is the execution receipt of a transaction.
// The variant embedded in blocks leaves Status empty.
type Receipt struct {
	Status                   TxStatus            `json:"status,omitempty"`
	TransactionHash          common.Hash         `json:"transaction_hash"`
	TransactionIndex         *uint64             `json:"transaction_index,omitempty"`
	BlockHash                *common.Hash        `json:"block_hash,omitempty"`
	BlockNumber              *uint64             `json:"block_number,omitempty"`
	ExecutionResources       *ExecutionResources `json:"execution_resources,omitempty"`
	L2ToL1Messages           []L2ToL1Message     `json:"l2_to_l1_messages"`
	Events                   []Event             `json:"events"`
	TransactionFailureReason *FailureReason      `json:"transaction_failure_reason,omitempty"`
}

// Trace is the function invocation trace of an accepted transaction
type Trace struct {
	FunctionInvocation json.RawMessage `json:"function_invocation"`
	Signature          []string        `json:"signature"`
}

// Block is the client-facing view of a block
type Block struct {
	BlockHash           common.Hash          `json:"block_hash"`
	BlockNumber         uint64               `json:"block_number"`
	ParentBlockHash     common.Hash          `json:"parent_block_hash"`
	StateRoot           common.Hash          `json:"state_root"`
	Status              TxStatus             `json:"status"`
	Timestamp           uint64               `json:"timestamp"`
	TransactionReceipts []Receipt            `json:"transaction_receipts"`
	Transactions        []TransactionDetails `json:"transactions"`
}
