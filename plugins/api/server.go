package api

import (
	"github.com/gorilla/mux"
	"github.com/tendermint/tendermint/libs/log"
	"go.uber.org/ratelimit"

	"github.com/bnb-chain/abcikit/plugins/api/handlers"
)

type server struct {
	router *mux.Router

	// settings
	limiter ratelimit.Limiter

	// handler dependencies
	node   handlers.Node
	logger log.Logger
}

// newServer provides a new server structure. maxRequestsPerSecond <= 0 disables rate limiting.
func newServer(node handlers.Node, maxRequestsPerSecond int, logger log.Logger) *server {
	limiter := ratelimit.NewUnlimited()
	if maxRequestsPerSecond > 0 {
		limiter = ratelimit.New(maxRequestsPerSecond)
	}
	return &server{
		router:  mux.NewRouter(),
		limiter: limiter,
		node:    node,
		logger:  logger,
	}
}
