package handlers

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	abci "github.com/tendermint/tendermint/abci/types"

	"github.com/bnb-chain/abcikit/common/types"
	"github.com/bnb-chain/abcikit/plugins/bank"
	"github.com/bnb-chain/abcikit/plugins/counter"
	"github.com/bnb-chain/abcikit/wire"
)

type customResponse struct {
	Height int64  `json:"height"`
	Value  string `json:"value"`
}

// CustomReqHandler forwards /{route}/{path} to the route's querier. ?data= is hex.
// The raw result is returned hex encoded since only the route knows its format.
func CustomReqHandler(node Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		data, err := hex.DecodeString(r.FormValue("data"))
		if err != nil {
			throw(w, http.StatusBadRequest, "invalid data, expected hex")
			return
		}
		height, err := queryHeight(r)
		if err != nil {
			throw(w, http.StatusBadRequest, err.Error())
			return
		}
		res, err := query(node, abci.RequestQuery{
			Path:   fmt.Sprintf("/custom/%s/%s", vars["route"], vars["path"]),
			Data:   data,
			Height: height,
		})
		if err != nil {
			throwQueryError(w, err)
			return
		}
		writeJSON(w, customResponse{Height: res.Height, Value: hex.EncodeToString(res.Value)})
	}
}

type balanceResponse struct {
	Height  int64        `json:"height"`
	Account bank.Account `json:"account"`
}

// BalanceReqHandler returns the bank account of a hex address.
func BalanceReqHandler(node Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr, err := types.AccountIDFromHex(mux.Vars(r)["address"])
		if err != nil {
			throw(w, http.StatusBadRequest, err.Error())
			return
		}
		height, err := queryHeight(r)
		if err != nil {
			throw(w, http.StatusBadRequest, err.Error())
			return
		}
		res, err := query(node, abci.RequestQuery{Path: "/custom/bank/balance", Data: addr, Height: height})
		if err != nil {
			if qErr, ok := err.(QueryError); ok && qErr.Code == bank.CodeUnknownAccount {
				throw(w, http.StatusNotFound, qErr.Error())
				return
			}
			throwQueryError(w, err)
			return
		}
		acc, err := bank.DecodeAccount(res.Value)
		if err != nil {
			throw(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, balanceResponse{Height: res.Height, Account: acc})
	}
}

// AccountsReqHandler lists every bank account.
func AccountsReqHandler(node Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		height, err := queryHeight(r)
		if err != nil {
			throw(w, http.StatusBadRequest, err.Error())
			return
		}
		res, err := query(node, abci.RequestQuery{Path: "/custom/bank/accounts", Height: height})
		if err != nil {
			throwQueryError(w, err)
			return
		}
		// already JSON
		if !json.Valid(res.Value) {
			throw(w, http.StatusInternalServerError, "malformed accounts response")
			return
		}
		w.Header().Set("Content-Type", responseType)
		w.Write(res.Value)
	}
}

type counterResponse struct {
	Height  int64           `json:"height"`
	Address types.AccountID `json:"address"`
	Count   uint64          `json:"count"`
}

// CounterReqHandler returns the counter value owned by a hex address.
func CounterReqHandler(node Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr, err := types.AccountIDFromHex(mux.Vars(r)["address"])
		if err != nil {
			throw(w, http.StatusBadRequest, err.Error())
			return
		}
		height, err := queryHeight(r)
		if err != nil {
			throw(w, http.StatusBadRequest, err.Error())
			return
		}
		res, err := query(node, abci.RequestQuery{Path: "/custom/counter/count", Data: addr, Height: height})
		if err != nil {
			if qErr, ok := err.(QueryError); ok && qErr.Code == counter.CodeNotFound {
				throw(w, http.StatusNotFound, qErr.Error())
				return
			}
			throwQueryError(w, err)
			return
		}
		count, err := wire.ParseUint64Key(res.Value)
		if err != nil {
			throw(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, counterResponse{Height: res.Height, Address: addr, Count: count})
	}
}
