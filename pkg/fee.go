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
	"math"

	"github.com/holiman/uint256"

	"github.com/cerc-io/devnet-ledger/pkg/types"
)

// ActualFee prices the resources of an execution: the gas price times the
// most expensive resource, rounded up
func ActualFee(gasPrice uint64, weights FeeWeights, resources types.ExecutionResources) uint256.Int {
	builtins := resources.BuiltinInstanceCounter
	usage := []struct {
		weight float64
		amount uint64
	}{
		{weights.NSteps, resources.NSteps},
		{weights.Pedersen, builtins.Pedersen},
		{weights.RangeCheck, builtins.RangeCheck},
		{weights.Ecdsa, builtins.Ecdsa},
		{weights.Bitwise, builtins.Bitwise},
		{weights.Output, builtins.Output},
		{weights.EcOp, builtins.EcOp},
	}
	var gas float64
	for _, u := range usage {
		gas = math.Max(gas, u.weight*float64(u.amount))
	}
	var fee uint256.Int
	fee.Mul(uint256.NewInt(gasPrice), uint256.NewInt(uint64(math.Ceil(gas))))
	return fee
}
