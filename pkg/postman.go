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
	"context"
	"fmt"

	"github.com/cerc-io/devnet-ledger/pkg/types"
)

// Postman relays messages between the ledger and an L1 messaging contract
type Postman interface {
	// L1Provider names the L1 node the postman talks to
	L1Provider() string
	// Flush delivers the pending L2 to L1 messages and collects the L1 to L2 messages sent since the last flush
	Flush(ctx context.Context, l2ToL1 []types.L2ToL1Message) ([]types.L1ToL2Message, error)
}

// PostmanFlush hands every L2 to L1 message not yet consumed to the postman
// and reports the messages exchanged. Without a postman the report is empty.
func (l *Ledger) PostmanFlush(ctx context.Context) (*types.FlushResult, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	result := &types.FlushResult{
		ConsumedMessages: types.ConsumedMessages{
			FromL1: []types.L1ToL2Message{},
			FromL2: []types.L2ToL1Message{},
		},
	}
	if l.postman == nil {
		return result, nil
	}

	l.mu.RLock()
	pending := make([]types.L2ToL1Message, len(l.l2ToL1Log)-int(l.consumedL2ToL1))
	copy(pending, l.l2ToL1Log[l.consumedL2ToL1:])
	l.mu.RUnlock()

	fromL1, err := l.postman.Flush(ctx, pending)
	if err != nil {
		return nil, fmt.Errorf("postman flush: %w", err)
	}

	l.mu.Lock()
	l.consumedL2ToL1 += uint64(len(pending))
	l.mu.Unlock()

	result.L1Provider = l.postman.L1Provider()
	for _, msg := range pending {
		result.ConsumedMessages.FromL2 = append(result.ConsumedMessages.FromL2, types.L2ToL1Message{
			FromAddress: msg.FromAddress,
			ToAddress:   normalizeHex(msg.ToAddress),
			Payload:     normalizeHexes(msg.Payload),
		})
	}
	for _, msg := range fromL1 {
		result.ConsumedMessages.FromL1 = append(result.ConsumedMessages.FromL1, types.L1ToL2Message{
			FromAddress: msg.FromAddress,
			ToAddress:   msg.ToAddress,
			Selector:    normalizeHex(msg.Selector),
			Payload:     normalizeHexes(msg.Payload),
			Nonce:       normalizeHex(msg.Nonce),
		})
	}
	return result, nil
}

// normalizeHex renders a decimal or hex felt as minimal hex, leaving anything unparsable untouched
func normalizeHex(s string) string {
	felt, err := types.ParseFelt(s)
	if err != nil {
		return s
	}
	return types.FeltHex(felt)
}

func normalizeHexes(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = normalizeHex(s)
	}
	return out
}
