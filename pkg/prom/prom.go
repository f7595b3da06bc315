// VulcanizeDB
// Copyright © 2021 Vulcanize

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

package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace      = "devnet_ledger"
	statsSubsystem = "stats"
	subsystemHTTP  = "http"
	subsystemIPC   = "ipc"
)

var (
	metrics bool

	txAccepted   *prometheus.CounterVec
	txRejected   *prometheus.CounterVec
	blockHeight  prometheus.Gauge
	dumpFailures prometheus.Counter

	tExecution     prometheus.Histogram
	tFeeEstimation prometheus.Histogram
	tStateDiff     prometheus.Histogram
	tDump          prometheus.Histogram

	httpCount    prometheus.Counter
	httpDuration prometheus.Histogram
	ipcCount     prometheus.Gauge
)

const (
	TX_ACCEPTED      = "tx_accepted"
	TX_REJECTED      = "tx_rejected"
	BLOCK_HEIGHT     = "block_height"
	DUMP_FAILURES    = "dump_failures"
	T_EXECUTION      = "t_execution"
	T_FEE_ESTIMATION = "t_fee_estimation"
	T_STATE_DIFF     = "t_state_diff"
	T_DUMP           = "t_dump"
)

// Init module initialization
func Init() {
	metrics = true

	txAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      TX_ACCEPTED,
		Help:      "Number of transactions accepted on L2, by transaction type",
	}, []string{"type"})
	txRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      TX_REJECTED,
		Help:      "Number of rejected transactions, by transaction type",
	}, []string{"type"})
	blockHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      BLOCK_HEIGHT,
		Help:      "Number of the last locally formed block",
	})
	dumpFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      DUMP_FAILURES,
		Help:      "Number of ledger dumps that could not be written",
	})

	tExecution = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: statsSubsystem,
		Name:      T_EXECUTION,
		Help:      "Engine execution time of deploys, invokes and calls",
	})
	tFeeEstimation = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: statsSubsystem,
		Name:      T_FEE_ESTIMATION,
		Help:      "Fee estimation time of invokes carrying a max fee",
	})
	tStateDiff = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: statsSubsystem,
		Name:      T_STATE_DIFF,
		Help:      "State update computation time",
	})
	tDump = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: statsSubsystem,
		Name:      T_DUMP,
		Help:      "Ledger dump encoding and write time",
	})

	httpCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystemHTTP,
		Name:      "count",
		Help:      "http request count",
	})
	httpDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystemHTTP,
		Name:      "duration",
		Help:      "http request duration",
	})
	ipcCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystemIPC,
		Name:      "count",
		Help:      "unix socket connection count",
	})
}

// IncAccepted counts a transaction accepted on L2
func IncAccepted(txType string) {
	if metrics {
		txAccepted.WithLabelValues(txType).Inc()
	}
}

// IncRejected counts a rejected transaction
func IncRejected(txType string) {
	if metrics {
		txRejected.WithLabelValues(txType).Inc()
	}
}

// SetBlockHeight sets the number of the last local block
func SetBlockHeight(height uint64) {
	if metrics {
		blockHeight.Set(float64(height))
	}
}

// IncDumpFailures counts a failed dump
func IncDumpFailures() {
	if metrics {
		dumpFailures.Inc()
	}
}

// SetTimeMetric time metric observation
func SetTimeMetric(name string, t time.Duration) {
	if !metrics {
		return
	}
	tAsF64 := t.Seconds()
	switch name {
	case T_EXECUTION:
		tExecution.Observe(tAsF64)
	case T_FEE_ESTIMATION:
		tFeeEstimation.Observe(tAsF64)
	case T_STATE_DIFF:
		tStateDiff.Observe(tAsF64)
	case T_DUMP:
		tDump.Observe(tAsF64)
	}
}
