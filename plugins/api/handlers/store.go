package handlers

import (
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/crypto/merkle"
)

type storeResponse struct {
	Namespace string        `json:"namespace"`
	Key       string        `json:"key"`
	Exists    bool          `json:"exists"`
	Value     string        `json:"value,omitempty"`
	Height    int64         `json:"height"`
	Proof     *merkle.Proof `json:"proof,omitempty"`
}

// StoreKeyReqHandler reads one hex encoded key of a namespace, with a merkle proof
// when ?prove=true.
func StoreKeyReqHandler(node Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		ns := vars["namespace"]
		key, err := hex.DecodeString(vars["key"])
		if err != nil || len(key) == 0 {
			throw(w, http.StatusBadRequest, fmt.Sprintf("invalid key %q", vars["key"]))
			return
		}
		height, err := queryHeight(r)
		if err != nil {
			throw(w, http.StatusBadRequest, err.Error())
			return
		}
		prove := r.FormValue("prove") == "true"

		res, err := query(node, abci.RequestQuery{
			Path:   fmt.Sprintf("/store/%s/key", ns),
			Data:   key,
			Height: height,
			Prove:  prove,
		})
		if err != nil {
			throwQueryError(w, err)
			return
		}
		out := storeResponse{
			Namespace: ns,
			Key:       vars["key"],
			Exists:    res.Value != nil,
			Height:    res.Height,
			Proof:     res.Proof,
		}
		if res.Value != nil {
			out.Value = hex.EncodeToString(res.Value)
		}
		writeJSON(w, out)
	}
}
