package router

import (
	"encoding/json"
	"time"

	abci "github.com/tendermint/tendermint/abci/types"
	cmn "github.com/tendermint/tendermint/libs/common"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/bnb-chain/abcikit/common/store"
	"github.com/bnb-chain/abcikit/common/types"
)

// Handler defines the core of the state transition function of a service. kv is the
// service's own namespace, staged for the transaction; a returned error discards every
// write made through it.
type Handler interface {
	Execute(ctx Context, sender types.AccountID, payload []byte, kv store.KVStore) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx Context, sender types.AccountID, payload []byte, kv store.KVStore) error

func (f HandlerFunc) Execute(ctx Context, sender types.AccountID, payload []byte, kv store.KVStore) error {
	return f(ctx, sender, payload, kv)
}

// Genesis is implemented by services that seed state at InitChain. state is the
// service's section of the genesis app_state and is nil when absent.
type Genesis interface {
	InitGenesis(ctx Context, kv store.KVStore, state json.RawMessage) error
}

// EndBlocker is implemented by services with per-block bookkeeping.
type EndBlocker interface {
	EndBlock(ctx Context, kv store.KVStore) []abci.ValidatorUpdate
}

// Querier serves custom read-only queries against committed state.
type Querier interface {
	Query(kv store.KVReader, path []string, data []byte) ([]byte, error)
}

// Checker lets a service reject transactions at CheckTx using committed state.
type Checker interface {
	Check(sender types.AccountID, payload []byte, kv store.KVReader) error
}

// Context is the block context handed to services.
type Context struct {
	Height   int64
	Time     time.Time
	Proposer []byte
	TxHash   cmn.HexBytes
	Logger   log.Logger

	events *[]abci.Event
}

func NewContext(height int64, blockTime time.Time, proposer []byte, logger log.Logger) Context {
	return Context{
		Height:   height,
		Time:     blockTime,
		Proposer: proposer,
		Logger:   logger,
		events:   new([]abci.Event),
	}
}

// WithTxHash returns a context for one transaction with its own event buffer.
func (ctx Context) WithTxHash(hash cmn.HexBytes) Context {
	ctx.TxHash = hash
	ctx.events = new([]abci.Event)
	return ctx
}

// EmitEvent records an event that is returned with the transaction result if it
// succeeds.
func (ctx Context) EmitEvent(typ string, attrs ...cmn.KVPair) {
	if ctx.events == nil {
		return
	}
	*ctx.events = append(*ctx.events, abci.Event{Type: typ, Attributes: attrs})
}

func (ctx Context) Events() []abci.Event {
	if ctx.events == nil {
		return nil
	}
	return *ctx.events
}

// Attr builds an event attribute.
func Attr(key, value string) cmn.KVPair {
	return cmn.KVPair{Key: []byte(key), Value: []byte(value)}
}
