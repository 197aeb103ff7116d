package api

const apiVersion = "v1"
const prefix = "/api/" + apiVersion

func (s *server) bindRoutes() *server {
	r := s.router

	// version routes
	r.HandleFunc("/version", s.handleVersionReq()).
		Methods("GET")
	r.HandleFunc("/node_version", s.handleNodeVersionReq()).
		Methods("GET")

	// engine routes
	r.HandleFunc(prefix+"/status", s.handleStatusReq()).
		Methods("GET")
	r.HandleFunc(prefix+"/roots", s.handleRootsReq()).
		Methods("GET")
	r.HandleFunc(prefix+"/store/{namespace}/{key}", s.handleStoreKeyReq()).
		Methods("GET")
	r.HandleFunc(prefix+"/custom/{route}/{path:.+}", s.handleCustomReq()).
		Methods("GET")

	// service routes
	r.HandleFunc(prefix+"/balances/{address}", s.handleBalanceReq()).
		Methods("GET")
	r.HandleFunc(prefix+"/accounts", s.handleAccountsReq()).
		Methods("GET")
	r.HandleFunc(prefix+"/counters/{address}", s.handleCounterReq()).
		Methods("GET")

	return s
}
