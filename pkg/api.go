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

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"

	"github.com/cerc-io/devnet-ledger/pkg/types"
)

// APIName is the namespace used for the ledger API
const APIName = "devnet"

// APIVersion is the version of the ledger API
const APIVersion = "0.0.1"

// APIs returns the RPC descriptors the ledger offers
func APIs(l *Ledger, d *Dumper) []rpc.API {
	return []rpc.API{
		{
			Namespace: APIName,
			Version:   APIVersion,
			Service:   NewPublicLedgerAPI(l, d),
		},
	}
}

// TransactionArgs is a deploy or invoke transaction as submitted over RPC.
// Felts may be given in hex or decimal.
type TransactionArgs struct {
	Type                types.TxType              `json:"type"`
	ContractDefinition  *types.ContractDefinition `json:"contract_definition,omitempty"`
	ConstructorCalldata []string                  `json:"constructor_calldata,omitempty"`
	ContractAddressSalt string                    `json:"contract_address_salt,omitempty"`
	ContractAddress     string                    `json:"contract_address,omitempty"`
	EntryPointSelector  string                    `json:"entry_point_selector,omitempty"`
	Calldata            []string                  `json:"calldata,omitempty"`
	Signature           []string                  `json:"signature,omitempty"`
	MaxFee              string                    `json:"max_fee,omitempty"`
}

// AddTransactionResult acknowledges a submitted transaction; a rejected
// transaction is acknowledged too and its status is available by hash
type AddTransactionResult struct {
	Code            string      `json:"code"`
	TransactionHash string      `json:"transaction_hash"`
	Address         common.Hash `json:"address"`
	Result          []string    `json:"result,omitempty"`
}

// CallResult holds the flattened return values of a call
type CallResult struct {
	Result []string `json:"result"`
}

// FeeEstimate is the fee an invoke would be charged
type FeeEstimate struct {
	Amount *hexutil.Big `json:"amount"`
	Unit   string       `json:"unit"`
}

// PublicLedgerAPI provides an RPC interface to the ledger
type PublicLedgerAPI struct {
	ledger *Ledger
	dumper *Dumper
}

// NewPublicLedgerAPI creates an rpc interface for the ledger. The dumper may be nil.
func NewPublicLedgerAPI(l *Ledger, d *Dumper) *PublicLedgerAPI {
	return &PublicLedgerAPI{
		ledger: l,
		dumper: d,
	}
}

// AddTransaction deploys or invokes
func (api *PublicLedgerAPI) AddTransaction(ctx context.Context, args TransactionArgs) (*AddTransactionResult, error) {
	var (
		result *TxResult
		err    error
	)
	switch args.Type {
	case types.Deploy:
		var req DeployRequest
		if req, err = args.deployRequest(); err != nil {
			return nil, wrapError(err)
		}
		result, err = api.ledger.Deploy(ctx, req)
	case types.InvokeFunction:
		var req InvokeRequest
		if req, err = args.invokeRequest(); err != nil {
			return nil, wrapError(err)
		}
		result, err = api.ledger.Invoke(ctx, req)
	default:
		return nil, wrapError(validationError("invalid tx_type: %q", args.Type))
	}
	var rejected *RejectedError
	if err != nil && !errors.As(err, &rejected) {
		return nil, wrapError(err)
	}
	if api.dumper != nil {
		api.dumper.AfterTransaction()
	}

	out := &AddTransactionResult{
		Code:            types.TransactionReceived,
		TransactionHash: hexutil.EncodeBig(result.TransactionHash.Big()),
		Address:         result.ContractAddress,
	}
	if args.Type == types.InvokeFunction {
		out.Result = types.FeltsHex(result.Result)
	}
	return out, nil
}

// CallContract runs an external function without recording a transaction
func (api *PublicLedgerAPI) CallContract(ctx context.Context, args TransactionArgs) (*CallResult, error) {
	req, err := args.invokeRequest()
	if err != nil {
		return nil, wrapError(err)
	}
	result, err := api.ledger.Call(ctx, req)
	if err != nil {
		return nil, wrapError(err)
	}
	return &CallResult{Result: types.FeltsHex(result)}, nil
}

// EstimateFee prices an invoke without recording it
func (api *PublicLedgerAPI) EstimateFee(ctx context.Context, args TransactionArgs) (*FeeEstimate, error) {
	req, err := args.invokeRequest()
	if err != nil {
		return nil, wrapError(err)
	}
	fee, err := api.ledger.EstimateFee(ctx, req)
	if err != nil {
		return nil, wrapError(err)
	}
	return &FeeEstimate{Amount: (*hexutil.Big)(fee.ToBig()), Unit: "wei"}, nil
}

// GetTransactionStatus returns the status of a transaction
func (api *PublicLedgerAPI) GetTransactionStatus(ctx context.Context, txHash string) (*types.TransactionStatus, error) {
	hash, err := parseHash("transaction hash", txHash)
	if err != nil {
		return nil, wrapError(err)
	}
	status, err := api.ledger.GetTransactionStatus(ctx, hash)
	return status, wrapError(err)
}

// GetTransaction returns a transaction
func (api *PublicLedgerAPI) GetTransaction(ctx context.Context, txHash string) (*types.Transaction, error) {
	hash, err := parseHash("transaction hash", txHash)
	if err != nil {
		return nil, wrapError(err)
	}
	tx, err := api.ledger.GetTransaction(ctx, hash)
	return tx, wrapError(err)
}

// GetTransactionReceipt returns the receipt of a transaction
func (api *PublicLedgerAPI) GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	hash, err := parseHash("transaction hash", txHash)
	if err != nil {
		return nil, wrapError(err)
	}
	receipt, err := api.ledger.GetTransactionReceipt(ctx, hash)
	return receipt, wrapError(err)
}

// GetTransactionTrace returns the trace of an accepted transaction
func (api *PublicLedgerAPI) GetTransactionTrace(ctx context.Context, txHash string) (*types.Trace, error) {
	hash, err := parseHash("transaction hash", txHash)
	if err != nil {
		return nil, wrapError(err)
	}
	trace, err := api.ledger.GetTransactionTrace(ctx, hash)
	return trace, wrapError(err)
}

// GetBlockByHash returns a block by hash
func (api *PublicLedgerAPI) GetBlockByHash(ctx context.Context, blockHash string) (*types.Block, error) {
	hash, err := parseHash("block hash", blockHash)
	if err != nil {
		return nil, wrapError(err)
	}
	block, err := api.ledger.GetBlockByHash(ctx, hash)
	return block, wrapError(err)
}

// GetBlockByNumber returns a block by number, or the latest block when number is omitted
func (api *PublicLedgerAPI) GetBlockByNumber(ctx context.Context, number *int64) (*types.Block, error) {
	block, err := api.ledger.GetBlockByNumber(ctx, number)
	return block, wrapError(err)
}

// GetCode returns the ABI and bytecode of a contract
func (api *PublicLedgerAPI) GetCode(ctx context.Context, contractAddress string) (*types.Code, error) {
	address, err := parseHash("contract address", contractAddress)
	if err != nil {
		return nil, wrapError(err)
	}
	code, err := api.ledger.GetCode(ctx, address)
	return code, wrapError(err)
}

// GetFullContract returns the definition of a contract
func (api *PublicLedgerAPI) GetFullContract(ctx context.Context, contractAddress string) (*types.ContractDefinition, error) {
	address, err := parseHash("contract address", contractAddress)
	if err != nil {
		return nil, wrapError(err)
	}
	def, err := api.ledger.GetFullContract(ctx, address)
	return def, wrapError(err)
}

// GetStorageAt returns a storage value as minimal hex
func (api *PublicLedgerAPI) GetStorageAt(ctx context.Context, contractAddress, key string) (*hexutil.Big, error) {
	address, err := parseHash("contract address", contractAddress)
	if err != nil {
		return nil, wrapError(err)
	}
	slot, err := parseHash("storage key", key)
	if err != nil {
		return nil, wrapError(err)
	}
	value, err := api.ledger.GetStorageAt(ctx, address, slot)
	if err != nil {
		return nil, wrapError(err)
	}
	return (*hexutil.Big)(value.Big()), nil
}

// GetNumberOfBlocks returns the number of blocks
func (api *PublicLedgerAPI) GetNumberOfBlocks(ctx context.Context) (uint64, error) {
	count, err := api.ledger.GetNumberOfBlocks(ctx)
	return count, wrapError(err)
}

// GetStateUpdate returns the state update of a block, or of the latest block when none is selected
func (api *PublicLedgerAPI) GetStateUpdate(ctx context.Context, blockHash *string, blockNumber *int64) (*types.StateUpdate, error) {
	var hash *common.Hash
	if blockHash != nil {
		h, err := parseHash("block hash", *blockHash)
		if err != nil {
			return nil, wrapError(err)
		}
		hash = &h
	}
	update, err := api.ledger.GetStateUpdate(ctx, hash, blockNumber)
	return update, wrapError(err)
}

// PostmanFlush exchanges pending messages with L1
func (api *PublicLedgerAPI) PostmanFlush(ctx context.Context) (*types.FlushResult, error) {
	result, err := api.ledger.PostmanFlush(ctx)
	return result, wrapError(err)
}

// Dump writes the ledger to path, or to the configured dump path when path is omitted
func (api *PublicLedgerAPI) Dump(_ context.Context, path *string) error {
	if api.dumper == nil {
		return wrapError(validationError("dumping is not enabled"))
	}
	var p string
	if path != nil {
		p = *path
	}
	return wrapError(api.dumper.Dump(p))
}

func (args *TransactionArgs) deployRequest() (DeployRequest, error) {
	if args.ContractDefinition == nil {
		return DeployRequest{}, validationError("deploy without contract_definition")
	}
	ctorCalldata, err := parseFelts("constructor_calldata", args.ConstructorCalldata)
	if err != nil {
		return DeployRequest{}, err
	}
	salt, err := parseOptionalFelt("contract_address_salt", args.ContractAddressSalt)
	if err != nil {
		return DeployRequest{}, err
	}
	return DeployRequest{
		Definition:          args.ContractDefinition,
		ConstructorCalldata: ctorCalldata,
		Salt:                salt,
	}, nil
}

func (args *TransactionArgs) invokeRequest() (InvokeRequest, error) {
	address, err := parseHash("contract_address", args.ContractAddress)
	if err != nil {
		return InvokeRequest{}, err
	}
	selector, err := parseHash("entry_point_selector", args.EntryPointSelector)
	if err != nil {
		return InvokeRequest{}, err
	}
	data, err := parseFelts("calldata", args.Calldata)
	if err != nil {
		return InvokeRequest{}, err
	}
	signature, err := parseFelts("signature", args.Signature)
	if err != nil {
		return InvokeRequest{}, err
	}
	maxFee, err := parseOptionalFelt("max_fee", args.MaxFee)
	if err != nil {
		return InvokeRequest{}, err
	}
	return InvokeRequest{
		ContractAddress: address,
		Selector:        selector,
		Calldata:        data,
		Signature:       signature,
		MaxFee:          maxFee,
	}, nil
}

func parseHash(field, s string) (common.Hash, error) {
	if s == "" {
		return common.Hash{}, validationError("%s is required", field)
	}
	felt, err := types.ParseFelt(s)
	if err != nil {
		return common.Hash{}, validationError("%s: %v", field, err)
	}
	return types.FeltToHash(felt), nil
}

func parseOptionalFelt(field, s string) (uint256.Int, error) {
	if s == "" {
		return uint256.Int{}, nil
	}
	felt, err := types.ParseFelt(s)
	if err != nil {
		return uint256.Int{}, validationError("%s: %v", field, err)
	}
	return felt, nil
}

func parseFelts(field string, ss []string) ([]uint256.Int, error) {
	felts, err := types.ParseFelts(ss)
	if err != nil {
		return nil, validationError("%s: %v", field, err)
	}
	return felts, nil
}

// apiError carries the transport status of an error to the RPC layer
type apiError struct {
	err error
}

func (e apiError) Error() string  { return e.err.Error() }
func (e apiError) ErrorCode() int { return ErrorCode(e.err) }
func (e apiError) Unwrap() error  { return e.err }

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	return apiError{err: err}
}
