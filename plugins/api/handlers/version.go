package handlers

import (
	"fmt"
	"net/http"

	abci "github.com/tendermint/tendermint/abci/types"

	"github.com/bnb-chain/abcikit/version"
)

// VersionReqHandler handles requests for the gateway's own version
func VersionReqHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(version.Version))
}

// NodeVersionReqHandler handles requests for the version of the engine behind the gateway
func NodeVersionReqHandler(node Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := query(node, abci.RequestQuery{Path: "/app/version"})
		if err != nil {
			throw(w, http.StatusInternalServerError, fmt.Sprintf("couldn't query version. Error: %s", err.Error()))
			return
		}
		w.Write(res.Value)
	}
}
