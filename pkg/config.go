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
	"fmt"

	"github.com/cerc-io/devnet-ledger/pkg/engine"
)

const (
	// DefaultChainID is the chain the ledger signs its transaction hashes for
	DefaultChainID = "SN_GOERLI"
	// DefaultGasPrice is the price of one unit of gas in wei
	DefaultGasPrice = 100000000000
)

// DumpOn selects when the ledger is written to its dump path
type DumpOn string

const (
	DumpNever         DumpOn = ""
	DumpOnExit        DumpOn = "exit"
	DumpOnTransaction DumpOn = "transaction"
)

// ParseDumpOn parses the dump trigger name
func ParseDumpOn(s string) (DumpOn, error) {
	switch on := DumpOn(s); on {
	case DumpNever, DumpOnExit, DumpOnTransaction:
		return on, nil
	}
	return DumpNever, validationError("invalid dump trigger %q, expected %q or %q", s, DumpOnExit, DumpOnTransaction)
}

// FeeWeights are the gas cost of one unit of each execution resource
type FeeWeights struct {
	NSteps     float64
	Pedersen   float64
	RangeCheck float64
	Ecdsa      float64
	Bitwise    float64
	Output     float64
	EcOp       float64
}

// DefaultFeeWeights returns the weights of the public testnet
func DefaultFeeWeights() FeeWeights {
	return FeeWeights{
		NSteps:     0.05,
		Pedersen:   0.4,
		RangeCheck: 0.4,
		Ecdsa:      25.6,
		Bitwise:    12.8,
	}
}

// Config holds config params for the ledger
type Config struct {
	ChainID    string
	GasPrice   uint64
	FeeWeights FeeWeights

	// ForkURL is the upstream node to fork from; no fork when empty
	ForkURL       string
	ForkCacheSize int

	DumpPath string
	DumpOn   DumpOn
}

// DefaultConfig returns a config for a fresh, unforked ledger
func DefaultConfig() *Config {
	return &Config{
		ChainID:    DefaultChainID,
		GasPrice:   DefaultGasPrice,
		FeeWeights: DefaultFeeWeights(),
	}
}

// Validate checks the config for inconsistent settings
func (c *Config) Validate() error {
	if c.ChainID == "" {
		return validationError("chain id is required")
	}
	if c.DumpOn != DumpNever && c.DumpPath == "" {
		return validationError("dump trigger %q requires a dump path", c.DumpOn)
	}
	return nil
}

func (c *Config) engineConfig() engine.Config {
	return engine.Config{ChainID: c.ChainID, GasPrice: c.GasPrice}
}

func (c *Config) String() string {
	return fmt.Sprintf("chain=%s gasPrice=%d fork=%q dump=%q on=%q", c.ChainID, c.GasPrice, c.ForkURL, c.DumpPath, c.DumpOn)
}
