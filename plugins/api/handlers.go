package api

import (
	"net/http"

	hnd "github.com/bnb-chain/abcikit/plugins/api/handlers"
)

// middleware (limits, logging)

func (s *server) limitRate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.limiter.Take()
		next(w, r)
	}
}

func (s *server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("api request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		next(w, r)
	}
}

func (s *server) wrap(h http.HandlerFunc) http.HandlerFunc {
	return s.withLogging(s.limitRate(h))
}

// -----

func (s *server) handleVersionReq() http.HandlerFunc {
	return hnd.VersionReqHandler
}

func (s *server) handleNodeVersionReq() http.HandlerFunc {
	return s.wrap(hnd.NodeVersionReqHandler(s.node))
}

func (s *server) handleStatusReq() http.HandlerFunc {
	return s.wrap(hnd.StatusReqHandler(s.node))
}

func (s *server) handleRootsReq() http.HandlerFunc {
	return s.wrap(hnd.RootsReqHandler(s.node))
}

func (s *server) handleStoreKeyReq() http.HandlerFunc {
	return s.wrap(hnd.StoreKeyReqHandler(s.node))
}

func (s *server) handleCustomReq() http.HandlerFunc {
	return s.wrap(hnd.CustomReqHandler(s.node))
}

func (s *server) handleBalanceReq() http.HandlerFunc {
	return s.wrap(hnd.BalanceReqHandler(s.node))
}

func (s *server) handleAccountsReq() http.HandlerFunc {
	return s.wrap(hnd.AccountsReqHandler(s.node))
}

func (s *server) handleCounterReq() http.HandlerFunc {
	return s.wrap(hnd.CounterReqHandler(s.node))
}
