package api

import (
	"net"

	"github.com/tendermint/tendermint/libs/log"
	tmserver "github.com/tendermint/tendermint/rpc/lib/server"

	"github.com/bnb-chain/abcikit/app/config"
	"github.com/bnb-chain/abcikit/plugins/api/handlers"
)

const maxOpenConnections = 1000

// StartServer serves the read-only gateway over node on cfg.ListenAddress. Closing the
// returned listener stops it.
func StartServer(cfg *config.APIConfig, node handlers.Node, logger log.Logger) (net.Listener, error) {
	logger = logger.With("module", "apiserv")
	server := newServer(node, cfg.MaxRequestsPerSecond, logger).bindRoutes()

	tmCfg := tmserver.DefaultConfig()
	tmCfg.MaxOpenConnections = maxOpenConnections
	listener, err := tmserver.Listen(cfg.ListenAddress, tmCfg)
	if err != nil {
		return nil, err
	}
	go func() {
		// returns once the listener is closed
		if err := tmserver.StartHTTPServer(listener, server.router, logger, tmCfg); err != nil {
			logger.Info("API server stopped", "err", err)
		}
	}()
	logger.Info("API server started", "addr", cfg.ListenAddress)
	return listener, nil
}
