package app

import (
	"strconv"
	"strings"

	abci "github.com/tendermint/tendermint/abci/types"

	"github.com/bnb-chain/abcikit/common/store"
	"github.com/bnb-chain/abcikit/common/types"
	"github.com/bnb-chain/abcikit/version"
	"github.com/bnb-chain/abcikit/wire"
)

// Query paths:
//
//	/app/version
//	/app/height
//	/app/roots                  amino encoded []store.NamespaceRoot
//	/store/<namespace>/key      data is the key, prove attaches a merkle proof
//	/custom/<route>/<path...>   served by the route's Querier
//
// Everything but the first two reads a committed version: req.Height, or the latest
// when it is 0. Query is answered in every lifecycle state; inside a block it never sees
// the block's pending writes.
func (app *AbciKitApp) Query(req abci.RequestQuery) abci.ResponseQuery {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	path := splitPath(req.Path)
	if len(path) == 0 {
		return queryError(types.NewValidationError(types.CodeUnknownRequest, "no query path provided"))
	}

	switch path[0] {
	case "app":
		return app.handleQueryApp(path, req)
	case "store":
		return app.handleQueryStore(path, req)
	case "custom":
		return app.handleQueryCustom(path, req)
	default:
		return queryError(types.NewValidationError(types.CodeUnknownRequest, "unknown query path %s", req.Path))
	}
}

func splitPath(requestPath string) []string {
	requestPath = strings.Trim(requestPath, "/")
	if requestPath == "" {
		return nil
	}
	return strings.Split(requestPath, "/")
}

func queryError(err error) abci.ResponseQuery {
	code, msg := types.ABCIInfo(err)
	return abci.ResponseQuery{Code: code, Log: msg}
}

func (app *AbciKitApp) view(height int64) (*store.View, error) {
	view, err := app.store.View(height)
	if err != nil {
		return nil, types.NewValidationError(types.CodeUnknownRequest, "%s", err)
	}
	return view, nil
}

func (app *AbciKitApp) handleQueryApp(path []string, req abci.RequestQuery) abci.ResponseQuery {
	if len(path) != 2 {
		return queryError(types.NewValidationError(types.CodeUnknownRequest, "unknown query path %s", req.Path))
	}
	switch path[1] {
	case "version":
		return abci.ResponseQuery{Value: []byte(version.Version)}
	case "height":
		height := app.store.LastHeight()
		return abci.ResponseQuery{Value: []byte(strconv.FormatInt(height, 10)), Height: height}
	case "roots":
		view, err := app.view(req.Height)
		if err != nil {
			return queryError(err)
		}
		bz, err := wire.Encode(wire.Cdc, view.Roots())
		if err != nil {
			return queryError(err)
		}
		return abci.ResponseQuery{Value: bz, Height: view.Height()}
	default:
		return queryError(types.NewValidationError(types.CodeUnknownRequest, "unknown query path %s", req.Path))
	}
}

func (app *AbciKitApp) handleQueryStore(path []string, req abci.RequestQuery) abci.ResponseQuery {
	if len(path) != 3 || path[2] != "key" {
		return queryError(types.NewValidationError(types.CodeUnknownRequest, "unknown query path %s, expected /store/<namespace>/key", req.Path))
	}
	if len(req.Data) == 0 {
		return queryError(types.NewValidationError(types.CodeUnknownRequest, "query key is empty"))
	}
	ns := store.Namespace(path[1])
	view, err := app.view(req.Height)
	if err != nil {
		return queryError(err)
	}

	res := abci.ResponseQuery{Key: req.Data, Height: view.Height()}
	if req.Prove {
		res.Value, res.Proof, err = view.GetWithProof(ns, req.Data)
	} else {
		res.Value, err = view.Get(ns, req.Data)
	}
	if err != nil {
		return queryError(types.NewValidationError(types.CodeUnknownRequest, "%s", err))
	}
	return res
}

func (app *AbciKitApp) handleQueryCustom(path []string, req abci.RequestQuery) abci.ResponseQuery {
	if len(path) < 2 {
		return queryError(types.NewValidationError(types.CodeUnknownRequest, "no route for custom query specified"))
	}
	view, err := app.view(req.Height)
	if err != nil {
		return queryError(err)
	}
	value, err := app.router.Query(view.Height(), path[1], path[2:], req.Data)
	if err != nil {
		return queryError(err)
	}
	return abci.ResponseQuery{Value: value, Height: view.Height()}
}
