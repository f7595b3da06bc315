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
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cerc-io/devnet-ledger/pkg/engine"
	"github.com/cerc-io/devnet-ledger/pkg/origin"
	"github.com/cerc-io/devnet-ledger/pkg/prom"
)

// Dumper writes a ledger to disk in the background
type Dumper struct {
	ledger *Ledger
	path   string
	on     DumpOn

	wg sync.WaitGroup
	// serialises writes; a dump older than the last one written is dropped
	mu      sync.Mutex
	seq     uint64
	written map[string]uint64
}

// NewDumper returns a dumper writing l to path on the given trigger
func NewDumper(l *Ledger, path string, on DumpOn) *Dumper {
	return &Dumper{
		ledger:  l,
		path:    path,
		on:      on,
		written: make(map[string]uint64),
	}
}

// Path returns the default dump path
func (d *Dumper) Path() string {
	return d.path
}

// DumpOn returns the dump trigger
func (d *Dumper) DumpOn() DumpOn {
	return d.on
}

// Dump encodes the ledger as it is now and writes it to path, or to the
// default path when path is empty. The write happens in the background.
func (d *Dumper) Dump(path string) error {
	if path == "" {
		path = d.path
	}
	if path == "" {
		return validationError("no dump path provided")
	}
	start := time.Now()
	blob, err := d.ledger.MarshalBinary()
	if err != nil {
		prom.IncDumpFailures()
		return err
	}

	d.mu.Lock()
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.written[path] > seq {
			logrus.Debugf("dump %d to %s superseded", seq, path)
			return
		}
		if err := WriteDump(path, blob); err != nil {
			prom.IncDumpFailures()
			logrus.WithError(err).Errorf("failed to dump ledger to %s", path)
			return
		}
		d.written[path] = seq
		prom.SetTimeMetric(prom.T_DUMP, time.Since(start))
		logrus.Infof("ledger dumped to %s (%d bytes)", path, len(blob))
	}()
	return nil
}

// AfterTransaction dumps the ledger if the dumper is triggered by transactions
func (d *Dumper) AfterTransaction() {
	if d.on != DumpOnTransaction {
		return
	}
	if err := d.Dump(""); err != nil {
		logrus.WithError(err).Error("failed to dump ledger after transaction")
	}
}

// Wait blocks until every dump in flight has been written
func (d *Dumper) Wait() {
	d.wg.Wait()
}

// WriteDump writes blob next to path and renames it into place, so a failed
// write leaves the previous dump intact
func WriteDump(path string, blob []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(blob); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// LoadLedgerFile restores a ledger from a dump file
func LoadLedgerFile(path string, config *Config, eng engine.Engine, org origin.Origin) (*Ledger, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot load from %s: %w", path, err)
	}
	l, err := LoadLedger(blob, config, eng, org)
	if err != nil {
		return nil, fmt.Errorf("cannot load from %s: %w", path, err)
	}
	logrus.Infof("ledger loaded from %s", path)
	return l, nil
}
