package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	abci "github.com/tendermint/tendermint/abci/types"

	"github.com/bnb-chain/abcikit/common/types"
)

const responseType = "application/json"

// Node is the part of the engine the gateway reads from.
type Node interface {
	Info(req abci.RequestInfo) abci.ResponseInfo
	Query(req abci.RequestQuery) abci.ResponseQuery
}

// QueryError carries a non-zero query code back to the handler.
type QueryError struct {
	Code uint32
	Log  string
}

func (e QueryError) Error() string {
	return fmt.Sprintf("query failed with code %d: %s", e.Code, e.Log)
}

func throw(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	w.Write([]byte(message))
}

func throwQueryError(w http.ResponseWriter, err error) {
	qErr, ok := err.(QueryError)
	if !ok {
		throw(w, http.StatusInternalServerError, err.Error())
		return
	}
	switch qErr.Code {
	case types.CodeInternal:
		throw(w, http.StatusInternalServerError, qErr.Error())
	case types.CodeUnknownRequest:
		throw(w, http.StatusNotFound, qErr.Error())
	default:
		throw(w, http.StatusBadRequest, qErr.Error())
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	output, err := json.Marshal(v)
	if err != nil {
		throw(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", responseType)
	w.Write(output)
}

// queryHeight reads the optional ?height= parameter. 0 means latest.
func queryHeight(r *http.Request) (int64, error) {
	raw := r.FormValue("height")
	if raw == "" {
		return 0, nil
	}
	height, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || height < 0 {
		return 0, fmt.Errorf("invalid height %q", raw)
	}
	return height, nil
}

func query(node Node, req abci.RequestQuery) (abci.ResponseQuery, error) {
	res := node.Query(req)
	if res.Code != types.CodeOK {
		return res, QueryError{Code: res.Code, Log: res.Log}
	}
	return res, nil
}
