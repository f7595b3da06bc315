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
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cerc-io/devnet-ledger/pkg/calldata"
	"github.com/cerc-io/devnet-ledger/pkg/origin"
)

var (
	// ErrValidation is returned for malformed requests
	ErrValidation = errors.New("invalid request")
	// ErrNotFound is returned when neither the ledger nor its origin holds the item
	ErrNotFound = origin.ErrNotFound
	// ErrContractNotFound is returned for calls and invokes of unknown addresses
	ErrContractNotFound = errors.New("contract not found")
	// ErrExecutionRejected marks a transaction recorded as REJECTED
	ErrExecutionRejected = errors.New("execution rejected")
	// ErrFeeExceeded is an ExecutionRejected raised before the real execution
	ErrFeeExceeded = fmt.Errorf("%w: actual fee exceeded max fee", ErrExecutionRejected)
	// ErrCorruptDump is returned when a ledger dump cannot be decoded
	ErrCorruptDump = errors.New("corrupt ledger dump")
)

// RejectedError is returned by Deploy and Invoke when the transaction was
// recorded with status REJECTED. It matches ErrExecutionRejected and its cause.
type RejectedError struct {
	TxHash common.Hash
	Cause  error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("transaction %s rejected: %v", e.TxHash.Hex(), e.Cause)
}

func (e *RejectedError) Unwrap() []error {
	return []error{ErrExecutionRejected, e.Cause}
}

// ErrorCode maps an error kind to the status the transport layer reports
func ErrorCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, calldata.ErrCodec):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrContractNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
