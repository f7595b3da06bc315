// Copyright © 2019 Vulcanize, Inc
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
	"context"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	devnet "github.com/cerc-io/devnet-ledger/pkg"
	"github.com/cerc-io/devnet-ledger/pkg/types"
)

// clientCmd represents the client command
var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Ask a running ledger node to dump itself or flush its postman",
	Long: `Usage

./devnet-ledger client --client-url={node url} [--client-dump-path={path}] [--client-flush]`,
	Run: func(cmd *cobra.Command, args []string) {
		subCommand = cmd.CalledAs()
		logWithCommand = *logrus.WithField("SubCommand", subCommand)
		client()
	},
}

func init() {
	rootCmd.AddCommand(clientCmd)
	clientCmd.PersistentFlags().String("client-url", "", "url of the running ledger node")
	clientCmd.PersistentFlags().String("client-dump-path", "", "path the node dumps to; its own dump path when empty")
	clientCmd.PersistentFlags().Bool("client-flush", false, "flush the postman instead of dumping")
	viper.BindPFlag("client.url", clientCmd.PersistentFlags().Lookup("client-url"))
	viper.BindPFlag("client.dumpPath", clientCmd.PersistentFlags().Lookup("client-dump-path"))
	viper.BindPFlag("client.flush", clientCmd.PersistentFlags().Lookup("client-flush"))
}

func client() {
	logWithCommand.Info("Running devnet-ledger client command")
	ctx := context.Background()

	url := viper.GetString("client.url")
	if url == "" {
		logWithCommand.Fatal("require the url of a running ledger node")
	}
	lc, err := dialLedger(ctx, url)
	if err != nil {
		logWithCommand.Fatal(err)
	}
	defer lc.Close()

	if viper.GetBool("client.flush") {
		result, err := lc.PostmanFlush(ctx)
		if err != nil {
			logWithCommand.Fatal(err)
		}
		logWithCommand.Infof("postman flushed: %d messages from L1, %d from L2",
			len(result.ConsumedMessages.FromL1), len(result.ConsumedMessages.FromL2))
		return
	}
	if err := lc.Dump(ctx, viper.GetString("client.dumpPath")); err != nil {
		logWithCommand.Fatal(err)
	}
	logWithCommand.Info("dump requested")
}

// ledgerClient talks to a running ledger node over JSON-RPC
type ledgerClient struct {
	rpc *rpc.Client
}

func dialLedger(ctx context.Context, url string) (*ledgerClient, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return &ledgerClient{rpc: c}, nil
}

func (c *ledgerClient) AddTransaction(ctx context.Context, args devnet.TransactionArgs) (*devnet.AddTransactionResult, error) {
	result := new(devnet.AddTransactionResult)
	if err := c.rpc.CallContext(ctx, result, devnet.APIName+"_addTransaction", args); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *ledgerClient) GetTransactionStatus(ctx context.Context, txHash string) (*types.TransactionStatus, error) {
	status := new(types.TransactionStatus)
	if err := c.rpc.CallContext(ctx, status, devnet.APIName+"_getTransactionStatus", txHash); err != nil {
		return nil, err
	}
	return status, nil
}

// Dump asks the node to dump itself to path, or to its own dump path when path is empty
func (c *ledgerClient) Dump(ctx context.Context, path string) error {
	var p *string
	if path != "" {
		p = &path
	}
	return c.rpc.CallContext(ctx, nil, devnet.APIName+"_dump", p)
}

func (c *ledgerClient) PostmanFlush(ctx context.Context) (*types.FlushResult, error) {
	result := new(types.FlushResult)
	if err := c.rpc.CallContext(ctx, result, devnet.APIName+"_postmanFlush"); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *ledgerClient) Close() {
	c.rpc.Close()
}
