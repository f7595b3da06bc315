package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	devnet "github.com/cerc-io/devnet-ledger/pkg"
	"github.com/cerc-io/devnet-ledger/pkg/engine"
	"github.com/cerc-io/devnet-ledger/pkg/origin"
)

// createOrigin connects to the node to fork from, if one is configured.
// The returned func releases the connection.
func createOrigin(ctx context.Context, config *devnet.Config) (origin.Origin, func(), error) {
	if config.ForkURL == "" {
		return origin.Null{}, func() {}, nil
	}
	logrus.Infof("Forking from %s", config.ForkURL)
	fwd, err := origin.NewForwarding(ctx, config.ForkURL, config.ForkCacheSize)
	if err != nil {
		return nil, nil, err
	}
	return fwd, fwd.Close, nil
}

// createLedger restores the dump at load.path, or creates an empty ledger when none is configured
func createLedger(ctx context.Context, config *devnet.Config, eng engine.Engine, org origin.Origin) (*devnet.Ledger, error) {
	if path := viper.GetString("load.path"); path != "" {
		logrus.Infof("Loading ledger from %s", path)
		return devnet.LoadLedgerFile(path, config, eng, org)
	}
	return devnet.NewLedger(ctx, config, eng, org)
}

func reportStats(l *devnet.Ledger) {
	stats := l.Stats()
	logrus.WithFields(logrus.Fields{
		"blocks":       stats.Blocks,
		"transactions": stats.Transactions,
		"rejected":     stats.Rejected,
		"contracts":    stats.Contracts,
		"root":         stats.StateRoot.Hex(),
	}).Info("ledger stats")
}
