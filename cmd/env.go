// VulcanizeDB
// Copyright © 2019 Vulcanize

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"github.com/spf13/viper"
)

const (
	DEVNET_CHAIN_ID  = "DEVNET_CHAIN_ID"
	DEVNET_GAS_PRICE = "DEVNET_GAS_PRICE"

	FORK_URL        = "FORK_URL"
	FORK_CACHE_SIZE = "FORK_CACHE_SIZE"

	LOAD_PATH = "LOAD_PATH"
	DUMP_PATH = "DUMP_PATH"
	DUMP_ON   = "DUMP_ON"

	SERVER_HTTP_PATH = "SERVER_HTTP_PATH"
	SERVER_IPC_PATH  = "SERVER_IPC_PATH"

	WRITE_SERVER       = "WRITE_SERVER"
	WRITE_TRANSACTIONS = "WRITE_TRANSACTIONS"
)

// Bind env vars for ledger, fork and dump configuration
func init() {
	viper.BindEnv("devnet.chainID", DEVNET_CHAIN_ID)
	viper.BindEnv("devnet.gasPrice", DEVNET_GAS_PRICE)

	viper.BindEnv("fork.url", FORK_URL)
	viper.BindEnv("fork.cacheSize", FORK_CACHE_SIZE)

	viper.BindEnv("load.path", LOAD_PATH)
	viper.BindEnv("dump.path", DUMP_PATH)
	viper.BindEnv("dump.on", DUMP_ON)

	viper.BindEnv("server.httpPath", SERVER_HTTP_PATH)
	viper.BindEnv("server.ipcPath", SERVER_IPC_PATH)

	viper.BindEnv("write.serve", WRITE_SERVER)
	viper.BindEnv("write.transactions", WRITE_TRANSACTIONS)
}
