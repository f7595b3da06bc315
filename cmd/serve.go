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
	"context"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	devnet "github.com/cerc-io/devnet-ledger/pkg"
	"github.com/cerc-io/devnet-ledger/pkg/engine"
	srpc "github.com/cerc-io/devnet-ledger/pkg/rpc"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a ledger over JSON-RPC, optionally forked from another node",
	Long: `Usage

./devnet-ledger serve --config={path to toml config file}`,
	Run: func(cmd *cobra.Command, args []string) {
		subCommand = cmd.CalledAs()
		logWithCommand = *logrus.WithField("SubCommand", subCommand)
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() {
	logWithCommand.Debug("Running devnet-ledger serve command")
	ctx := context.Background()

	config, err := GetLedgerConfig()
	if err != nil {
		logWithCommand.Fatal(err)
	}
	org, closeOrigin, err := createOrigin(ctx, config)
	if err != nil {
		logWithCommand.Fatal(err)
	}
	defer closeOrigin()
	// no execution engine is linked into this binary; mutations fail with engine.ErrNoEngine
	ledger, err := createLedger(ctx, config, engine.Unavailable{}, org)
	if err != nil {
		logWithCommand.Fatal(err)
	}
	reportStats(ledger)
	dumper := devnet.NewDumper(ledger, config.DumpPath, config.DumpOn)

	// Enable the pprof agent if configured
	if viper.GetBool("debug.pprof") {
		// See: https://www.farsightsecurity.com/blog/txt-record/go-remote-profiling-20161028/
		// For security reasons: do not use the default http multiplexor elsewhere in this process.
		go func() {
			logWithCommand.Info("Starting pprof listener on port 6060")
			logWithCommand.Fatal(http.ListenAndServe("localhost:6060", nil))
		}()
	}

	stop, err := startServers(devnet.APIs(ledger, dumper))
	if err != nil {
		logWithCommand.Fatal(err)
	}
	logWithCommand.Debug("RPC servers successfully spun up; awaiting requests")

	// clean shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	<-shutdown
	logWithCommand.Info("Received interrupt signal, shutting down")
	stop()
	if config.DumpOn == devnet.DumpOnExit {
		if err := dumper.Dump(""); err != nil {
			logWithCommand.Errorf("unable to dump ledger: %v", err)
		}
	}
	dumper.Wait()
}

// startServers opens the configured endpoints and returns a func closing them
func startServers(apis []rpc.API) (func(), error) {
	ipcPath := viper.GetString("server.ipcPath")
	httpPath := viper.GetString("server.httpPath")
	if ipcPath == "" && httpPath == "" {
		logWithCommand.Fatal("Need an IPC path and/or an HTTP path")
	}
	var closers []func()
	stop := func() {
		for _, closer := range closers {
			closer()
		}
	}
	if ipcPath != "" {
		listener, srv, err := srpc.StartIPCEndpoint(ipcPath, apis)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() {
			listener.Close()
			srv.Stop()
		})
	}
	if httpPath != "" {
		srv, httpSrv, err := srpc.StartHTTPEndpoint(httpPath, apis, []string{devnet.APIName}, nil, []string{"*"}, rpc.DefaultHTTPTimeouts)
		if err != nil {
			stop()
			return nil, err
		}
		closers = append(closers, func() {
			httpSrv.Close()
			srv.Stop()
		})
	} else {
		logWithCommand.Info("HTTP server is disabled")
	}

	return stop, nil
}
