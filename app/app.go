package app

import (
	"fmt"
	"sync"
	"time"

	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/crypto/tmhash"
	cmn "github.com/tendermint/tendermint/libs/common"
	dbm "github.com/tendermint/tendermint/libs/db"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/bnb-chain/abcikit/app/pub"
	"github.com/bnb-chain/abcikit/app/router"
	"github.com/bnb-chain/abcikit/common/store"
	"github.com/bnb-chain/abcikit/common/tx"
	"github.com/bnb-chain/abcikit/common/types"
	"github.com/bnb-chain/abcikit/plugins/bank"
	"github.com/bnb-chain/abcikit/plugins/counter"
	"github.com/bnb-chain/abcikit/version"
)

const appName = "abcikit"

type Lifecycle int8

const (
	Uninitialized Lifecycle = iota
	Ready
	BlockInProgress
)

func (l Lifecycle) String() string {
	switch l {
	case Uninitialized:
		return "Uninitialized"
	case Ready:
		return "Ready"
	case BlockInProgress:
		return "BlockInProgress"
	default:
		return "Unknown"
	}
}

// Service binds a handler to the route, and namespace, it serves.
type Service struct {
	Route   string
	Handler router.Handler
}

// DefaultServices are the services abcikitd runs.
func DefaultServices() []Service {
	return []Service{
		{Route: bank.Route, Handler: bank.NewService()},
		{Route: counter.Route, Handler: counter.NewService()},
	}
}

type Option func(*AbciKitApp)

func WithMetrics(metrics *Metrics) Option {
	return func(app *AbciKitApp) {
		app.metrics = metrics
	}
}

func WithIAVLCacheSize(size int) Option {
	return func(app *AbciKitApp) {
		app.iavlCacheSize = size
	}
}

func WithSigCacheSize(size int) Option {
	return func(app *AbciKitApp) {
		app.sigCacheSize = size
	}
}

// WithPublication hands every committed block to publisher on a queue of queueSize.
func WithPublication(publisher pub.BlockPublisher, metrics *pub.Metrics, queueSize int) Option {
	return func(app *AbciKitApp) {
		app.publisher = publisher
		app.pubMetrics = metrics
		app.publicationQueueSize = queueSize
	}
}

// AbciKitApp drives registered services through the ABCI block lifecycle.
type AbciKitApp struct {
	abci.BaseApplication

	Logger  log.Logger
	store   *store.Store
	router  *router.Router
	metrics *Metrics

	iavlCacheSize int
	sigCacheSize  int

	// guards everything below; every ABCI call holds it
	mtx      sync.Mutex
	state    Lifecycle
	blockCtx router.Context
	blockTxs []pub.TxResult
	failed   int

	publisher            pub.BlockPublisher
	pubMetrics           *pub.Metrics
	publicationQueueSize int
	toPublishCh          chan pub.BlockInfoToPublish
	publisherDone        chan struct{}
}

// NewAbciKitApp opens the store in db, registers services and resumes from the last
// committed version.
func NewAbciKitApp(logger log.Logger, db dbm.DB, services []Service, opts ...Option) (*AbciKitApp, error) {
	app := &AbciKitApp{
		Logger:        logger,
		metrics:       NopMetrics(),
		iavlCacheSize: 10000,
		sigCacheSize:  tx.DefaultSigCacheSize,
	}
	for _, opt := range opts {
		opt(app)
	}

	s, err := store.Open(db, logger.With("module", "store"), store.WithCacheSize(app.iavlCacheSize))
	if err != nil {
		return nil, err
	}
	app.store = s

	auth := tx.NewAuthenticator(app.sigCacheSize, logger.With("module", "auth"))
	app.router = router.NewRouter(auth, logger.With("module", "router"))
	for _, svc := range services {
		if err := app.router.Register(svc.Route, svc.Handler); err != nil {
			return nil, err
		}
	}
	if err := app.router.Seal(s); err != nil {
		return nil, err
	}

	if s.LastHeight() > 0 {
		app.state = Ready
	}
	app.metrics.Height.Set(float64(s.LastHeight()))

	if app.publisher != nil {
		if app.pubMetrics == nil {
			app.pubMetrics = pub.NopMetrics()
		}
		app.toPublishCh = make(chan pub.BlockInfoToPublish, app.publicationQueueSize)
		app.publisherDone = make(chan struct{})
		go func() {
			pub.Publish(app.publisher, app.pubMetrics, logger.With("module", "pub"), app.toPublishCh)
			close(app.publisherDone)
		}()
	}

	logger.Info("app loaded", "height", s.LastHeight(), "routes", app.router.Routes(), "state", app.state)
	return app, nil
}

// publisherDrainTimeout bounds how long Stop waits for queued blocks to be published.
var publisherDrainTimeout = 30 * time.Second

// Stop closes the publication queue and waits, up to publisherDrainTimeout, for it to
// drain. The engine lock is not held while waiting. Blocks committed afterwards are not
// published.
func (app *AbciKitApp) Stop() {
	app.mtx.Lock()
	ch, done := app.toPublishCh, app.publisherDone
	app.toPublishCh = nil
	if ch != nil {
		close(ch)
	}
	app.mtx.Unlock()
	if ch == nil {
		return
	}

	select {
	case <-done:
	case <-time.After(publisherDrainTimeout):
		app.Logger.Error("publisher did not drain in time", "timeout", publisherDrainTimeout)
	}
}

func (app *AbciKitApp) State() Lifecycle {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	return app.state
}

func (app *AbciKitApp) LastCommitID() store.CommitID {
	return app.store.LastCommitID()
}

// expect panics unless the app is in one of the allowed states.
func (app *AbciKitApp) expect(call string, allowed ...Lifecycle) {
	for _, s := range allowed {
		if app.state == s {
			return
		}
	}
	expected := make([]string, len(allowed))
	for i, s := range allowed {
		expected[i] = s.String()
	}
	err := types.ProtocolSequencingError{Call: call, State: app.state.String(), Expected: expected}
	app.Logger.Error("abci call out of sequence", "err", err)
	panic(err)
}

func (app *AbciKitApp) Info(req abci.RequestInfo) abci.ResponseInfo {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	id := app.store.LastCommitID()
	app.Logger.Info("Info", "tendermint", req.Version, "height", id.Height, "hash", cmn.HexBytes(id.Hash))
	return abci.ResponseInfo{
		Data:             appName,
		Version:          version.NodeVersion,
		AppVersion:       version.AppVersion,
		LastBlockHeight:  id.Height,
		LastBlockAppHash: id.Hash,
	}
}

func (app *AbciKitApp) SetOption(req abci.RequestSetOption) abci.ResponseSetOption {
	app.Logger.Debug("ignored option", "key", req.Key, "value", req.Value)
	return abci.ResponseSetOption{}
}

// InitChain stages the genesis state of every service. It is committed with block 1.
func (app *AbciKitApp) InitChain(req abci.RequestInitChain) abci.ResponseInitChain {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	app.expect("InitChain", Uninitialized)

	sections, err := genesisSections(req.AppStateBytes)
	if err != nil {
		app.Logger.Error("invalid genesis app state", "err", err)
		panic(err)
	}
	if err := app.store.BeginGenesis(); err != nil {
		panic(err)
	}
	ctx := router.NewContext(0, req.Time, nil, app.Logger.With("module", "genesis"))
	if err := app.router.InitGenesis(ctx, sections); err != nil {
		app.store.Abort()
		app.Logger.Error("failed to init genesis", "err", err)
		panic(err)
	}

	hash, err := app.store.WorkingHash()
	if err != nil {
		panic(types.NewStoreIOError("genesis hash", err))
	}
	app.Logger.Info("genesis state staged", "chainID", req.ChainId, "hash", cmn.HexBytes(hash))
	app.state = Ready
	return abci.ResponseInitChain{}
}

// CheckTx validates a transaction against committed state without changing anything.
func (app *AbciKitApp) CheckTx(req abci.RequestCheckTx) abci.ResponseCheckTx {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	app.expect("CheckTx", Ready, BlockInProgress)

	t, err := tx.Decode(req.Tx)
	if err == nil {
		err = app.router.Check(t)
	}
	if err != nil {
		app.metrics.CheckTxRejected.Add(1)
		code, msg := types.ABCIInfo(err)
		return abci.ResponseCheckTx{Code: code, Log: msg}
	}
	return abci.ResponseCheckTx{Code: types.CodeOK}
}

func (app *AbciKitApp) BeginBlock(req abci.RequestBeginBlock) abci.ResponseBeginBlock {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	app.expect("BeginBlock", Ready)

	height := req.Header.Height
	if err := app.store.BeginBlock(height); err != nil {
		app.Logger.Error("failed to begin block", "height", height, "err", err)
		panic(err)
	}
	app.blockCtx = router.NewContext(height, req.Header.Time, req.Header.ProposerAddress, app.Logger.With("height", height))
	app.blockTxs = app.blockTxs[:0]
	app.failed = 0
	app.state = BlockInProgress
	return abci.ResponseBeginBlock{}
}

// DeliverTx executes one transaction. A failure is reported in the response and never
// aborts the block.
func (app *AbciKitApp) DeliverTx(req abci.RequestDeliverTx) abci.ResponseDeliverTx {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	app.expect("DeliverTx", BlockInProgress)

	result := pub.TxResult{Hash: cmn.HexBytes(tmhash.Sum(req.Tx)).String()}
	var events []abci.Event
	t, err := tx.Decode(req.Tx)
	if err == nil {
		result.Route = t.Route
		if sender, serr := t.Sender(); serr == nil {
			result.Sender = sender.String()
		}
		events, err = app.router.Deliver(app.blockCtx, t)
	}

	code, msg := types.ABCIInfo(err)
	result.Code, result.Log = code, msg
	app.blockTxs = append(app.blockTxs, result)
	if err != nil {
		app.failed++
		app.Logger.Debug("tx failed", "tx", result.Hash, "code", code, "log", msg)
		return abci.ResponseDeliverTx{Code: code, Log: msg}
	}
	return abci.ResponseDeliverTx{Code: types.CodeOK, Events: events}
}

func (app *AbciKitApp) EndBlock(req abci.RequestEndBlock) abci.ResponseEndBlock {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	app.expect("EndBlock", BlockInProgress)

	if req.Height != app.blockCtx.Height {
		app.Logger.Error("EndBlock height mismatch", "expected", app.blockCtx.Height, "got", req.Height)
	}
	return abci.ResponseEndBlock{ValidatorUpdates: app.router.EndBlock(app.blockCtx)}
}

// Commit makes the block a new version and returns its root hash. A store failure is
// fatal: the process must restart from the last committed version.
func (app *AbciKitApp) Commit() abci.ResponseCommit {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	app.expect("Commit", BlockInProgress)

	start := time.Now()
	id, err := app.store.Commit()
	app.state = Ready
	if err != nil {
		app.Logger.Error("failed to commit block", "height", app.blockCtx.Height, "err", err)
		panic(err)
	}
	elapsed := time.Since(start)

	app.metrics.Height.Set(float64(id.Height))
	app.metrics.NumTxs.Set(float64(len(app.blockTxs) - app.failed))
	app.metrics.NumFailedTxs.Set(float64(app.failed))
	app.metrics.CommitTimeMs.Set(float64(elapsed.Nanoseconds() / int64(time.Millisecond)))
	app.Logger.Info("committed", "height", id.Height, "hash", cmn.HexBytes(id.Hash),
		"txs", len(app.blockTxs), "failed", app.failed)

	app.publish(id)
	return abci.ResponseCommit{Data: id.Hash}
}

// publish never blocks consensus: when the queue is full the block is skipped.
func (app *AbciKitApp) publish(id store.CommitID) {
	if app.toPublishCh == nil {
		return
	}
	var roots []store.NamespaceRoot
	if view, err := app.store.View(id.Height); err == nil {
		roots = view.Roots()
	}
	txs := make([]pub.TxResult, len(app.blockTxs))
	copy(txs, app.blockTxs)
	info := pub.NewBlockInfoToPublish(id.Height, app.blockCtx.Time.UnixNano()/int64(time.Millisecond), id.Hash, txs, roots)
	select {
	case app.toPublishCh <- info:
	default:
		app.pubMetrics.DroppedBlocks.Add(1)
		app.Logger.Error("publication queue is full, block skipped", "height", id.Height)
	}
}

func (app *AbciKitApp) String() string {
	return fmt.Sprintf("%s{%s, %v}", appName, app.state, app.router)
}
