package router

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/bnb-chain/abcikit/common/store"
	"github.com/bnb-chain/abcikit/common/tx"
	"github.com/bnb-chain/abcikit/common/types"
)

var (
	ErrDuplicateRoute = errors.New("route already registered")
	ErrInvalidRoute   = errors.New("invalid route")
	ErrRouterSealed   = errors.New("router is sealed")
)

// EventTypeTx is the event attached to every successfully delivered transaction.
const EventTypeTx = "tx"

// Router dispatches transactions to the service registered under their route. Each
// service owns the store namespace named after its route.
type Router struct {
	routes map[string]Handler
	names  []string

	sealed bool
	store  *store.Store
	auth   *tx.Authenticator
	logger log.Logger
}

// NewRouter creates a new router
func NewRouter(auth *tx.Authenticator, logger log.Logger) *Router {
	return &Router{
		routes: make(map[string]Handler),
		auth:   auth,
		logger: logger,
	}
}

// Register adds a service. Routes are first come, first served.
func (rtr *Router) Register(route string, h Handler) error {
	if rtr.sealed {
		return ErrRouterSealed
	}
	if err := types.ValidateRoute(route); err != nil {
		return errors.Wrap(ErrInvalidRoute, err.Error())
	}
	if h == nil {
		return errors.Wrapf(ErrInvalidRoute, "nil handler for %s", route)
	}
	if _, ok := rtr.routes[route]; ok {
		return errors.Wrap(ErrDuplicateRoute, route)
	}
	rtr.routes[route] = h
	rtr.names = append(rtr.names, route)
	sort.Strings(rtr.names)
	return nil
}

// Seal freezes the registry and opens the namespace of every route in s.
func (rtr *Router) Seal(s *store.Store) error {
	if rtr.sealed {
		return ErrRouterSealed
	}
	for _, name := range append([]string{string(tx.NonceNamespace)}, rtr.names...) {
		if _, err := s.OpenNamespace(name); err != nil {
			return errors.Wrapf(err, "failed to open namespace for %s", name)
		}
	}
	rtr.store = s
	rtr.sealed = true
	return nil
}

// Routes lists registered routes in name order.
func (rtr *Router) Routes() []string {
	return append([]string(nil), rtr.names...)
}

// Route returns the handler registered under route.
func (rtr *Router) Route(route string) (Handler, bool) {
	h, ok := rtr.routes[route]
	return h, ok
}

func (rtr *Router) mustBeSealed() {
	if !rtr.sealed {
		panic("router is not sealed")
	}
}

func (rtr *Router) lookup(route string) (Handler, error) {
	h, ok := rtr.routes[route]
	if !ok {
		return nil, types.NewValidationError(types.CodeUnknownRoute, "unknown route %s", route)
	}
	return h, nil
}

// Check validates t against committed state for mempool admission. It never writes.
func (rtr *Router) Check(t tx.Transaction) error {
	rtr.mustBeSealed()
	sender, err := rtr.auth.Authenticate(t)
	if err != nil {
		return err
	}
	h, err := rtr.lookup(t.Route)
	if err != nil {
		return err
	}

	nonces, err := rtr.store.Latest(tx.NonceNamespace)
	if err != nil {
		return err
	}
	if err := tx.CheckNonce(nonces, sender, t); err != nil {
		return err
	}

	checker, ok := h.(Checker)
	if !ok {
		return nil
	}
	kv, err := rtr.store.Latest(store.Namespace(t.Route))
	if err != nil {
		return err
	}
	return runGuarded(t.Route, func() error {
		return checker.Check(sender, t.Payload, kv)
	})
}

// Deliver executes t against the block overlay. Writes and events are kept only when
// every step succeeds; otherwise the overlay is left exactly as it was.
func (rtr *Router) Deliver(ctx Context, t tx.Transaction) ([]abci.Event, error) {
	rtr.mustBeSealed()
	overlay := rtr.store.Overlay()
	if overlay == nil {
		return nil, store.ErrNoActiveBlock
	}

	sender, err := rtr.auth.Authenticate(t)
	if err != nil {
		return nil, err
	}
	h, err := rtr.lookup(t.Route)
	if err != nil {
		return nil, err
	}

	branch := overlay.Branch()
	nonces := branch.KVStore(tx.NonceNamespace)
	if err := tx.ProcessNonce(nonces, sender, t); err != nil {
		return nil, err
	}

	ctx = ctx.WithTxHash(t.Hash())
	kv := branch.KVStore(store.Namespace(t.Route))
	if err := runGuarded(t.Route, func() error {
		return h.Execute(ctx, sender, t.Payload, kv)
	}); err != nil {
		return nil, err
	}

	tx.IncrementNonce(nonces, sender, t)
	branch.Write()

	txEvent := abci.Event{Type: EventTypeTx}
	txEvent.Attributes = append(txEvent.Attributes, Attr("route", t.Route), Attr("sender", sender.String()))
	if t.HasNonce {
		txEvent.Attributes = append(txEvent.Attributes, Attr("nonce", strconv.FormatUint(t.Nonce, 10)))
	}
	return append([]abci.Event{txEvent}, ctx.Events()...), nil
}

// runGuarded turns handler panics and uncoded errors into execution errors.
func runGuarded(route string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = types.NewExecutionError(types.CodeExecution, "panic in %s handler: %v", route, r)
		}
	}()
	err = fn()
	if err == nil {
		return nil
	}
	if _, ok := errors.Cause(err).(types.ABCIError); ok {
		return err
	}
	return types.NewExecutionError(types.CodeExecution, "%s: %v", route, err)
}

// InitGenesis hands every Genesis service its section of the app state. The sections
// are written to the staging overlay.
func (rtr *Router) InitGenesis(ctx Context, section func(route string) json.RawMessage) error {
	rtr.mustBeSealed()
	overlay := rtr.store.Overlay()
	if overlay == nil {
		return store.ErrNoActiveBlock
	}
	for _, name := range rtr.names {
		g, ok := rtr.routes[name].(Genesis)
		if !ok {
			continue
		}
		if err := g.InitGenesis(ctx, overlay.KVStore(store.Namespace(name)), section(name)); err != nil {
			return errors.Wrapf(err, "genesis of %s", name)
		}
	}
	return nil
}

// EndBlock runs EndBlocker services in route order and concatenates their validator
// updates.
func (rtr *Router) EndBlock(ctx Context) []abci.ValidatorUpdate {
	rtr.mustBeSealed()
	overlay := rtr.store.Overlay()
	if overlay == nil {
		panic(store.ErrNoActiveBlock)
	}
	var updates []abci.ValidatorUpdate
	for _, name := range rtr.names {
		eb, ok := rtr.routes[name].(EndBlocker)
		if !ok {
			continue
		}
		updates = append(updates, eb.EndBlock(ctx, overlay.KVStore(store.Namespace(name)))...)
	}
	return updates
}

// Query delegates to the Querier registered under route, reading the version at
// height (0 is the latest).
func (rtr *Router) Query(height int64, route string, path []string, data []byte) ([]byte, error) {
	rtr.mustBeSealed()
	h, ok := rtr.routes[route]
	if !ok {
		return nil, types.NewValidationError(types.CodeUnknownRoute, "unknown route %s", route)
	}
	q, ok := h.(Querier)
	if !ok {
		return nil, types.NewValidationError(types.CodeUnknownRequest, "%s does not serve queries", route)
	}
	view, err := rtr.store.View(height)
	if err != nil {
		return nil, types.NewValidationError(types.CodeUnknownRequest, "%s", err)
	}
	kv, err := view.KVReader(store.Namespace(route))
	if err != nil {
		return nil, types.NewValidationError(types.CodeUnknownRequest, "%s", err)
	}
	var res []byte
	err = runGuarded(route, func() error {
		var qerr error
		res, qerr = q.Query(kv, path, data)
		return qerr
	})
	return res, err
}

func (rtr *Router) String() string {
	return fmt.Sprintf("Router%v", rtr.names)
}
