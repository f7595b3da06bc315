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

package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	devnet "github.com/cerc-io/devnet-ledger/pkg"
	"github.com/cerc-io/devnet-ledger/pkg/engine"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report stats for a ledger dump",
	Long: `Usage

./devnet-ledger stats --load-path={path to ledger dump}`,
	Run: func(cmd *cobra.Command, args []string) {
		subCommand = cmd.CalledAs()
		logWithCommand = *logrus.WithField("SubCommand", subCommand)
		stats()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func stats() {
	logWithCommand.Info("Running devnet-ledger stats command")

	path := viper.GetString("load.path")
	if path == "" {
		path = viper.GetString("dump.path")
	}
	if path == "" {
		logWithCommand.Fatal("require a ledger dump path (--load-path or --dump-path)")
	}
	config, err := GetLedgerConfig()
	if err != nil {
		logWithCommand.Fatal(err)
	}
	ledger, err := devnet.LoadLedgerFile(path, config, engine.Unavailable{}, nil)
	if err != nil {
		logWithCommand.Fatal(err)
	}
	reportStats(ledger)
}
