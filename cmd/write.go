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
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	devnet "github.com/cerc-io/devnet-ledger/pkg"
	"github.com/cerc-io/devnet-ledger/pkg/types"
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Submit preconfigured transactions to a running ledger node",
	Long: `Usage

./devnet-ledger write --config={path to toml config file}`,
	Run: func(cmd *cobra.Command, args []string) {
		subCommand = cmd.CalledAs()
		logWithCommand = *logrus.WithField("SubCommand", subCommand)
		write()
	},
}

func init() {
	rootCmd.AddCommand(writeCmd)
	writeCmd.PersistentFlags().String("write-api", "", "starts a server which accepts transactions through an endpoint")
	writeCmd.PersistentFlags().String("write-transactions", "", "path of a JSON file holding the transactions to submit")
	writeCmd.PersistentFlags().String("write-url", "", "url of the ledger node to submit to")
	viper.BindPFlag("write.serve", writeCmd.PersistentFlags().Lookup("write-api"))
	viper.BindPFlag("write.transactions", writeCmd.PersistentFlags().Lookup("write-transactions"))
	viper.BindPFlag("write.url", writeCmd.PersistentFlags().Lookup("write-url"))
}

func write() {
	logWithCommand.Info("Starting ledger writer")
	ctx := context.Background()
	addr := viper.GetString("write.serve")
	url := viper.GetString("write.url")
	if url == "" {
		logWithCommand.Fatal("require the url of a running ledger node")
	}
	txs, err := readTransactions(viper.GetString("write.transactions"))
	if err != nil {
		logWithCommand.Fatal(err)
	}

	lc, err := dialLedger(ctx, url)
	if err != nil {
		logWithCommand.Fatal(err)
	}
	defer lc.Close()

	txCh := make(chan devnet.TransactionArgs, 100)
	go func() {
		for _, tx := range txs {
			txCh <- tx
		}
		if addr == "" {
			close(txCh)
			return
		}
		startServer(addr, txCh)
	}()

	accepted := processTransactions(ctx, lc, txCh)
	logWithCommand.Infof("%d transactions accepted", accepted)
}

// readTransactions reads a JSON array of transactions; an empty path holds none
func readTransactions(path string) ([]devnet.TransactionArgs, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var txs []devnet.TransactionArgs
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, fmt.Errorf("failed to parse transactions in %s: %w", path, err)
	}
	return txs, nil
}

func writeHandler(txCh chan<- devnet.TransactionArgs) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "transactions must be POSTed", http.StatusMethodNotAllowed)
			return
		}
		var tx devnet.TransactionArgs
		if err := json.NewDecoder(req.Body).Decode(&tx); err != nil {
			http.Error(w, fmt.Sprintf("failed to parse transaction: %v", err), http.StatusBadRequest)
			return
		}

		select {
		case txCh <- tx:
		case <-time.After(time.Millisecond * 200):
			http.Error(w, "server is busy", http.StatusInternalServerError)
			return
		}

		fmt.Fprintf(w, "added transaction to the queue\n")
	}
}

func startServer(addr string, txCh chan<- devnet.TransactionArgs) {
	mux := http.NewServeMux()
	mux.HandleFunc("/addTransaction", writeHandler(txCh))
	logrus.Fatal(http.ListenAndServe(addr, mux))
}

type txSubmitter interface {
	AddTransaction(ctx context.Context, args devnet.TransactionArgs) (*devnet.AddTransactionResult, error)
	GetTransactionStatus(ctx context.Context, txHash string) (*types.TransactionStatus, error)
}

// processTransactions submits every queued transaction in order and returns how many were accepted
func processTransactions(ctx context.Context, sub txSubmitter, txCh <-chan devnet.TransactionArgs) int {
	var (
		wg       sync.WaitGroup
		accepted int
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for tx := range txCh {
			res, err := sub.AddTransaction(ctx, tx)
			if err != nil {
				logrus.Errorf("failed to submit %s transaction: %v", tx.Type, err)
				continue
			}
			status, err := sub.GetTransactionStatus(ctx, res.TransactionHash)
			if err != nil {
				logrus.Errorf("failed to fetch status of transaction %s: %v", res.TransactionHash, err)
				continue
			}
			if status.TxStatus == types.Rejected {
				logrus.Warnf("transaction %s rejected: %s", res.TransactionHash, status.TxFailureReason.ErrorMessage)
				continue
			}
			logrus.Infof("transaction %s %s", res.TransactionHash, status.TxStatus)
			accepted++
		}
	}()

	wg.Wait()
	return accepted
}
