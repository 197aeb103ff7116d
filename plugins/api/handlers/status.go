package handlers

import (
	"fmt"
	"net/http"

	abci "github.com/tendermint/tendermint/abci/types"

	"github.com/bnb-chain/abcikit/common/store"
	"github.com/bnb-chain/abcikit/wire"
)

type statusResponse struct {
	Version    string `json:"version"`
	AppVersion uint64 `json:"app_version"`
	Height     int64  `json:"height"`
	AppHash    string `json:"app_hash"`
}

// StatusReqHandler reports the last committed height and app hash.
func StatusReqHandler(node Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := node.Info(abci.RequestInfo{})
		writeJSON(w, statusResponse{
			Version:    info.Version,
			AppVersion: info.AppVersion,
			Height:     info.LastBlockHeight,
			AppHash:    fmt.Sprintf("%X", info.LastBlockAppHash),
		})
	}
}

type rootResponse struct {
	Name string `json:"name"`
	Hash string `json:"hash"`
}

type rootsResponse struct {
	Height int64          `json:"height"`
	Roots  []rootResponse `json:"roots"`
}

// RootsReqHandler lists the namespace roots of a committed version.
func RootsReqHandler(node Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		height, err := queryHeight(r)
		if err != nil {
			throw(w, http.StatusBadRequest, err.Error())
			return
		}
		res, err := query(node, abci.RequestQuery{Path: "/app/roots", Height: height})
		if err != nil {
			throwQueryError(w, err)
			return
		}
		var roots []store.NamespaceRoot
		if err := wire.Decode(wire.Cdc, res.Value, &roots); err != nil {
			throw(w, http.StatusInternalServerError, err.Error())
			return
		}
		out := rootsResponse{Height: res.Height, Roots: make([]rootResponse, 0, len(roots))}
		for _, root := range roots {
			out.Roots = append(out.Roots, rootResponse{Name: root.Name, Hash: fmt.Sprintf("%X", root.Hash)})
		}
		writeJSON(w, out)
	}
}
