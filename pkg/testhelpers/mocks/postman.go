package mocks

import (
	"context"
	"sync"

	"github.com/cerc-io/devnet-ledger/pkg/types"
)

// Postman records every flush and answers with preset L1 messages
type Postman struct {
	Provider string
	// FromL1 is handed out, and cleared, by the next successful flush
	FromL1 []types.L1ToL2Message

	mu      sync.Mutex
	flushed [][]types.L2ToL1Message
	err     error
}

// SetError makes the next flushes fail with err
func (p *Postman) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Flushed returns the L2 to L1 messages passed to each flush
func (p *Postman) Flushed() [][]types.L2ToL1Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushed
}

func (p *Postman) L1Provider() string {
	return p.Provider
}

func (p *Postman) Flush(_ context.Context, l2ToL1 []types.L2ToL1Message) ([]types.L1ToL2Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.flushed = append(p.flushed, l2ToL1)
	fromL1 := p.FromL1
	p.FromL1 = nil
	return fromL1, nil
}
