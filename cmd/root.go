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
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	devnet "github.com/cerc-io/devnet-ledger/pkg"
	"github.com/cerc-io/devnet-ledger/pkg/origin"
	"github.com/cerc-io/devnet-ledger/pkg/prom"
)

var (
	cfgFile        string
	subCommand     string
	logWithCommand log.Entry
)

var rootCmd = &cobra.Command{
	Use:              "devnet-ledger",
	PersistentPreRun: initFuncs,
}

func Execute() {
	log.Info("----- Starting devnet ledger -----")
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func initFuncs(cmd *cobra.Command, args []string) {
	logfile := viper.GetString("log.file")
	if logfile != "" {
		file, err := os.OpenFile(logfile,
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			log.Infof("Directing output to %s", logfile)
			log.SetOutput(file)
		} else {
			log.SetOutput(os.Stdout)
			log.Info("Failed to log to file, using default stdout")
		}
	} else {
		log.SetOutput(os.Stdout)
	}
	if err := logLevel(); err != nil {
		log.Fatal("Could not set log level: ", err)
	}

	if viper.GetBool("prom.metrics") {
		log.Info("initializing prometheus metrics")
		prom.Init()
	}

	if viper.GetBool("prom.http") {
		addr := fmt.Sprintf(
			"%s:%s",
			viper.GetString("prom.httpAddr"),
			viper.GetString("prom.httpPort"),
		)
		log.Info("starting prometheus server")
		prom.Listen(addr)
	}
}

func logLevel() error {
	viper.BindEnv("log.level", "LOGRUS_LEVEL")
	lvl, err := log.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	if lvl > log.InfoLevel {
		log.SetReportCaller(true)
	}
	log.Info("Log level set to ", lvl.String())
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	defaults := devnet.DefaultConfig()
	weights := defaults.FeeWeights

	rootCmd.PersistentFlags().String("http-path", "", "ledger server http path")
	rootCmd.PersistentFlags().String("ipc-path", "", "ledger server ipc path")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file location")
	rootCmd.PersistentFlags().String("log-file", "", "file path for logging")
	rootCmd.PersistentFlags().String("log-level", log.InfoLevel.String(),
		"log level (trace, debug, info, warn, error, fatal, panic")

	rootCmd.PersistentFlags().String("chain-id", defaults.ChainID, "chain id transaction hashes are signed for")
	rootCmd.PersistentFlags().Uint64("gas-price", defaults.GasPrice, "price of one unit of gas in wei")
	rootCmd.PersistentFlags().Float64("fee-weight-steps", weights.NSteps, "gas per cairo step")
	rootCmd.PersistentFlags().Float64("fee-weight-pedersen", weights.Pedersen, "gas per pedersen builtin invocation")
	rootCmd.PersistentFlags().Float64("fee-weight-range-check", weights.RangeCheck, "gas per range check builtin invocation")
	rootCmd.PersistentFlags().Float64("fee-weight-ecdsa", weights.Ecdsa, "gas per ecdsa builtin invocation")
	rootCmd.PersistentFlags().Float64("fee-weight-bitwise", weights.Bitwise, "gas per bitwise builtin invocation")
	rootCmd.PersistentFlags().Float64("fee-weight-output", weights.Output, "gas per output builtin invocation")
	rootCmd.PersistentFlags().Float64("fee-weight-ec-op", weights.EcOp, "gas per ec op builtin invocation")

	rootCmd.PersistentFlags().String("fork-url", "", "url of the ledger node to fork from")
	rootCmd.PersistentFlags().Int("fork-cache-size", origin.DefaultCacheSize, "number of upstream responses to cache when forking")

	rootCmd.PersistentFlags().String("load-path", "", "path of a ledger dump to load on startup")
	rootCmd.PersistentFlags().String("dump-path", "", "path to dump the ledger to")
	rootCmd.PersistentFlags().String("dump-on", "", "when to dump the ledger (exit, transaction)")

	rootCmd.PersistentFlags().Bool("prom-http", false, "enable prometheus http service")
	rootCmd.PersistentFlags().String("prom-http-addr", "127.0.0.1", "prometheus http host")
	rootCmd.PersistentFlags().String("prom-http-port", "8080", "prometheus http port")

	rootCmd.PersistentFlags().Bool("metrics", false, "enable metrics")

	viper.BindPFlag("server.httpPath", rootCmd.PersistentFlags().Lookup("http-path"))
	viper.BindPFlag("server.ipcPath", rootCmd.PersistentFlags().Lookup("ipc-path"))
	viper.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("devnet.chainID", rootCmd.PersistentFlags().Lookup("chain-id"))
	viper.BindPFlag("devnet.gasPrice", rootCmd.PersistentFlags().Lookup("gas-price"))
	viper.BindPFlag("devnet.feeWeights.nSteps", rootCmd.PersistentFlags().Lookup("fee-weight-steps"))
	viper.BindPFlag("devnet.feeWeights.pedersen", rootCmd.PersistentFlags().Lookup("fee-weight-pedersen"))
	viper.BindPFlag("devnet.feeWeights.rangeCheck", rootCmd.PersistentFlags().Lookup("fee-weight-range-check"))
	viper.BindPFlag("devnet.feeWeights.ecdsa", rootCmd.PersistentFlags().Lookup("fee-weight-ecdsa"))
	viper.BindPFlag("devnet.feeWeights.bitwise", rootCmd.PersistentFlags().Lookup("fee-weight-bitwise"))
	viper.BindPFlag("devnet.feeWeights.output", rootCmd.PersistentFlags().Lookup("fee-weight-output"))
	viper.BindPFlag("devnet.feeWeights.ecOp", rootCmd.PersistentFlags().Lookup("fee-weight-ec-op"))
	viper.BindPFlag("fork.url", rootCmd.PersistentFlags().Lookup("fork-url"))
	viper.BindPFlag("fork.cacheSize", rootCmd.PersistentFlags().Lookup("fork-cache-size"))
	viper.BindPFlag("load.path", rootCmd.PersistentFlags().Lookup("load-path"))
	viper.BindPFlag("dump.path", rootCmd.PersistentFlags().Lookup("dump-path"))
	viper.BindPFlag("dump.on", rootCmd.PersistentFlags().Lookup("dump-on"))
	viper.BindPFlag("prom.http", rootCmd.PersistentFlags().Lookup("prom-http"))
	viper.BindPFlag("prom.httpAddr", rootCmd.PersistentFlags().Lookup("prom-http-addr"))
	viper.BindPFlag("prom.httpPort", rootCmd.PersistentFlags().Lookup("prom-http-port"))
	viper.BindPFlag("prom.metrics", rootCmd.PersistentFlags().Lookup("metrics"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err == nil {
			log.Printf("Using config file: %s", viper.ConfigFileUsed())
		} else {
			log.Fatal(fmt.Sprintf("Couldn't read config file: %s", err.Error()))
		}
	} else {
		log.Warn("No config file passed with --config flag")
	}
}

// GetLedgerConfig assembles the ledger config from flags, env vars and the config file
func GetLedgerConfig() (*devnet.Config, error) {
	dumpOn, err := devnet.ParseDumpOn(viper.GetString("dump.on"))
	if err != nil {
		return nil, err
	}
	config := &devnet.Config{
		ChainID:  viper.GetString("devnet.chainID"),
		GasPrice: viper.GetUint64("devnet.gasPrice"),
		FeeWeights: devnet.FeeWeights{
			NSteps:     viper.GetFloat64("devnet.feeWeights.nSteps"),
			Pedersen:   viper.GetFloat64("devnet.feeWeights.pedersen"),
			RangeCheck: viper.GetFloat64("devnet.feeWeights.rangeCheck"),
			Ecdsa:      viper.GetFloat64("devnet.feeWeights.ecdsa"),
			Bitwise:    viper.GetFloat64("devnet.feeWeights.bitwise"),
			Output:     viper.GetFloat64("devnet.feeWeights.output"),
			EcOp:       viper.GetFloat64("devnet.feeWeights.ecOp"),
		},
		ForkURL:       viper.GetString("fork.url"),
		ForkCacheSize: viper.GetInt("fork.cacheSize"),
		DumpPath:      viper.GetString("dump.path"),
		DumpOn:        dumpOn,
	}
	return config, config.Validate()
}
