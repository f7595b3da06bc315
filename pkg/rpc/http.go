// VulcanizeDB
// Copyright © 2020 Vulcanize

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

package rpc

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/node"
	"github.com/ethereum/go-ethereum/rpc"
	log "github.com/sirupsen/logrus"

	"github.com/cerc-io/devnet-ledger/pkg/prom"
)

// StartHTTPEndpoint starts the HTTP RPC endpoint, configured with cors/vhosts/modules.
func StartHTTPEndpoint(endpoint string, apis []rpc.API, modules []string, cors []string, vhosts []string, timeouts rpc.HTTPTimeouts) (*rpc.Server, *http.Server, error) {
	srv := rpc.NewServer()
	if err := node.RegisterApis(apis, modules, srv); err != nil {
		return nil, nil, fmt.Errorf("could not register HTTP API: %w", err)
	}
	handler := node.NewHTTPHandlerStack(srv, cors, vhosts, nil)

	// start http server
	httpSrv, addr, err := node.StartHTTPEndpoint(endpoint, timeouts, prom.HTTPMiddleware(handler))
	if err != nil {
		srv.Stop()
		return nil, nil, fmt.Errorf("could not start RPC api: %w", err)
	}
	log.Infof("HTTP endpoint opened http://%v/", addr)

	return srv, httpSrv, nil
}
