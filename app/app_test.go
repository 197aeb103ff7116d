package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/crypto/ed25519"
	dbm "github.com/tendermint/tendermint/libs/db"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/bnb-chain/abcikit/app/pub"
	"github.com/bnb-chain/abcikit/app/router"
	"github.com/bnb-chain/abcikit/common/store"
	"github.com/bnb-chain/abcikit/common/tx"
	"github.com/bnb-chain/abcikit/common/types"
	"github.com/bnb-chain/abcikit/plugins/bank"
	"github.com/bnb-chain/abcikit/plugins/counter"
	"github.com/bnb-chain/abcikit/wire"
)

type testAccount struct {
	priv ed25519.PrivKeyEd25519
	addr types.AccountID
}

func newTestAccount() testAccount {
	priv := ed25519.GenPrivKey()
	return testAccount{priv: priv, addr: types.AccountID(priv.PubKey().Address())}
}

func (acc testAccount) signTx(t *testing.T, route string, payload []byte, nonce *uint64) []byte {
	unsigned := tx.NewTransaction(route, payload)
	if nonce != nil {
		unsigned = unsigned.WithNonce(*nonce)
	}
	signed, err := tx.Sign(acc.priv, unsigned)
	require.NoError(t, err)
	bz, err := signed.Bytes()
	require.NoError(t, err)
	return bz
}

func (acc testAccount) bankTx(t *testing.T, msg bank.Msg, nonce *uint64) []byte {
	payload, err := bank.EncodeMsg(msg)
	require.NoError(t, err)
	return acc.signTx(t, bank.Route, payload, nonce)
}

func (acc testAccount) counterTx(t *testing.T, msg counter.Msg) []byte {
	payload, err := counter.EncodeMsg(msg)
	require.NoError(t, err)
	return acc.signTx(t, counter.Route, payload, nil)
}

func nonce(n uint64) *uint64 { return &n }

func newTestApp(t *testing.T, db dbm.DB, opts ...Option) *AbciKitApp {
	app, err := NewAbciKitApp(log.NewNopLogger(), db, DefaultServices(), opts...)
	require.NoError(t, err)
	return app
}

func initChain(t *testing.T, app *AbciKitApp, state GenesisState) {
	appState, err := state.AppStateJSON()
	require.NoError(t, err)
	app.InitChain(abci.RequestInitChain{ChainId: "test-chain", AppStateBytes: appState})
}

func runBlock(app *AbciKitApp, height int64, txs ...[]byte) ([]abci.ResponseDeliverTx, abci.ResponseCommit) {
	app.BeginBlock(abci.RequestBeginBlock{Header: abci.Header{Height: height, Time: time.Unix(1600000000+height, 0)}})
	results := make([]abci.ResponseDeliverTx, len(txs))
	for i, bz := range txs {
		results[i] = app.DeliverTx(abci.RequestDeliverTx{Tx: bz})
	}
	app.EndBlock(abci.RequestEndBlock{Height: height})
	return results, app.Commit()
}

func queryBalance(t *testing.T, app *AbciKitApp, height int64, addr types.AccountID) uint64 {
	res := app.Query(abci.RequestQuery{Path: "/custom/bank/balance", Data: addr, Height: height})
	require.Equal(t, types.CodeOK, res.Code, res.Log)
	acc, err := bank.DecodeAccount(res.Value)
	require.NoError(t, err)
	return acc.Balance
}

func sequencingPanic(fn func()) (err types.ProtocolSequencingError, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			err, ok = r.(types.ProtocolSequencingError)
		}
	}()
	fn()
	return
}

func requireSequencingPanic(t *testing.T, call string, state Lifecycle, fn func()) {
	err, ok := sequencingPanic(fn)
	require.True(t, ok, "%s did not panic with a sequencing error", call)
	require.Equal(t, call, err.Call)
	require.Equal(t, state.String(), err.State)
}

func TestLifecycleSequencing(t *testing.T) {
	app := newTestApp(t, dbm.NewMemDB())
	require.Equal(t, Uninitialized, app.State())

	requireSequencingPanic(t, "CheckTx", Uninitialized, func() { app.CheckTx(abci.RequestCheckTx{}) })
	requireSequencingPanic(t, "BeginBlock", Uninitialized, func() {
		app.BeginBlock(abci.RequestBeginBlock{Header: abci.Header{Height: 1}})
	})
	requireSequencingPanic(t, "Commit", Uninitialized, func() { app.Commit() })

	initChain(t, app, NewGenesisState(0))
	require.Equal(t, Ready, app.State())
	requireSequencingPanic(t, "InitChain", Ready, func() { app.InitChain(abci.RequestInitChain{}) })
	requireSequencingPanic(t, "DeliverTx", Ready, func() { app.DeliverTx(abci.RequestDeliverTx{}) })
	requireSequencingPanic(t, "EndBlock", Ready, func() { app.EndBlock(abci.RequestEndBlock{}) })
	requireSequencingPanic(t, "Commit", Ready, func() { app.Commit() })

	app.BeginBlock(abci.RequestBeginBlock{Header: abci.Header{Height: 1}})
	require.Equal(t, BlockInProgress, app.State())
	requireSequencingPanic(t, "BeginBlock", BlockInProgress, func() {
		app.BeginBlock(abci.RequestBeginBlock{Header: abci.Header{Height: 2}})
	})
	require.Equal(t, types.CodeTxDecode, app.CheckTx(abci.RequestCheckTx{Tx: []byte{1}}).Code)

	app.EndBlock(abci.RequestEndBlock{Height: 1})
	app.EndBlock(abci.RequestEndBlock{Height: 1})
	require.Equal(t, BlockInProgress, app.State())

	res := app.Commit()
	require.NotEmpty(t, res.Data)
	require.Equal(t, Ready, app.State())
	require.Equal(t, int64(1), app.Info(abci.RequestInfo{}).LastBlockHeight)
}

func TestBeginBlockRejectsHeightGap(t *testing.T) {
	app := newTestApp(t, dbm.NewMemDB())
	initChain(t, app, NewGenesisState(0))
	require.Panics(t, func() {
		app.BeginBlock(abci.RequestBeginBlock{Header: abci.Header{Height: 2}})
	})
}

func TestInvalidGenesisPanics(t *testing.T) {
	app := newTestApp(t, dbm.NewMemDB())
	require.Panics(t, func() {
		app.InitChain(abci.RequestInitChain{AppStateBytes: []byte(`{"bank":{"accounts":[{"address":"00"}]}}`)})
	})
	require.Equal(t, Uninitialized, app.State())
}

func TestBlockExecution(t *testing.T) {
	app := newTestApp(t, dbm.NewMemDB())
	alice, bob, carol := newTestAccount(), newTestAccount(), newTestAccount()
	initChain(t, app, NewGenesisState(100, alice.addr))

	results, commit := runBlock(app, 1,
		bob.bankTx(t, bank.CreateAccountMsg{}, nil),
		alice.bankTx(t, bank.NewTransferMsg(bob.addr, 30), nonce(0)),
		alice.bankTx(t, bank.NewTransferMsg(bob.addr, 1000), nonce(1)),
		[]byte{0x01},
		alice.bankTx(t, bank.NewTransferMsg(bob.addr, 5), nonce(1)),
		alice.counterTx(t, counter.IncrementMsg{By: 3}),
		alice.bankTx(t, bank.NewTransferMsg(bob.addr, 5), nonce(1)),
	)
	expectedCodes := []types.CodeType{
		types.CodeOK,
		types.CodeOK,
		bank.CodeInsufficientFunds,
		types.CodeTxDecode,
		types.CodeOK,
		types.CodeOK,
		types.CodeInvalidNonce,
	}
	for i, code := range expectedCodes {
		require.Equal(t, code, results[i].Code, "tx %d: %s", i, results[i].Log)
	}
	require.Len(t, results[1].Events, 2)
	require.Equal(t, router.EventTypeTx, results[1].Events[0].Type)
	require.Equal(t, bank.EventTypeTransfer, results[1].Events[1].Type)
	require.Empty(t, results[2].Events)
	require.NotEmpty(t, commit.Data)

	require.Equal(t, uint64(65), queryBalance(t, app, 0, alice.addr))
	require.Equal(t, uint64(35), queryBalance(t, app, 0, bob.addr))

	// CheckTx reads the committed nonces; account existence is left to DeliverTx
	require.Equal(t, types.CodeInvalidNonce, app.CheckTx(abci.RequestCheckTx{Tx: alice.bankTx(t, bank.NewTransferMsg(bob.addr, 1), nonce(1))}).Code)
	require.Equal(t, types.CodeOK, app.CheckTx(abci.RequestCheckTx{Tx: alice.bankTx(t, bank.NewTransferMsg(bob.addr, 1), nonce(2))}).Code)
	require.Equal(t, types.CodeOK, app.CheckTx(abci.RequestCheckTx{Tx: carol.bankTx(t, bank.NewTransferMsg(bob.addr, 1), nil)}).Code)

	_, commit2 := runBlock(app, 2, alice.bankTx(t, bank.NewTransferMsg(bob.addr, 10), nonce(2)))
	require.NotEqual(t, commit.Data, commit2.Data)
	require.Equal(t, uint64(55), queryBalance(t, app, 0, alice.addr))
	require.Equal(t, uint64(65), queryBalance(t, app, 1, alice.addr))
}

func TestQueries(t *testing.T) {
	app := newTestApp(t, dbm.NewMemDB())
	alice, carol := newTestAccount(), newTestAccount()

	// nothing is committed yet
	res := app.Query(abci.RequestQuery{Path: "/custom/bank/balance", Data: alice.addr})
	require.Equal(t, types.CodeUnknownRequest, res.Code)
	res = app.Query(abci.RequestQuery{Path: "/app/height"})
	require.Equal(t, types.CodeOK, res.Code)
	require.Equal(t, []byte("0"), res.Value)

	initChain(t, app, NewGenesisState(100, alice.addr))
	_, commit := runBlock(app, 1, alice.counterTx(t, counter.IncrementMsg{By: 2}))

	res = app.Query(abci.RequestQuery{Path: "/app/height"})
	require.Equal(t, []byte("1"), res.Value)
	res = app.Query(abci.RequestQuery{Path: "/app/version"})
	require.Equal(t, types.CodeOK, res.Code)
	require.NotEmpty(t, res.Value)

	res = app.Query(abci.RequestQuery{Path: "/app/roots"})
	require.Equal(t, types.CodeOK, res.Code, res.Log)
	var roots []store.NamespaceRoot
	require.NoError(t, wire.Cdc.UnmarshalBinaryBare(res.Value, &roots))
	require.Len(t, roots, 3)
	require.Equal(t, []string{string(tx.NonceNamespace), bank.Route, counter.Route},
		[]string{roots[0].Name, roots[1].Name, roots[2].Name})

	// inclusion proof
	res = app.Query(abci.RequestQuery{Path: "/store/bank/key", Data: alice.addr, Prove: true})
	require.Equal(t, types.CodeOK, res.Code, res.Log)
	require.Equal(t, int64(1), res.Height)
	require.NotNil(t, res.Proof)
	require.NoError(t, store.VerifyValue(res.Proof, commit.Data, bank.Route, alice.addr, res.Value))

	// absence proof
	res = app.Query(abci.RequestQuery{Path: "/store/bank/key", Data: carol.addr, Prove: true})
	require.Equal(t, types.CodeOK, res.Code, res.Log)
	require.Nil(t, res.Value)
	require.NoError(t, store.VerifyAbsence(res.Proof, commit.Data, bank.Route, carol.addr))

	res = app.Query(abci.RequestQuery{Path: "/custom/counter/count", Data: alice.addr})
	require.Equal(t, types.CodeOK, res.Code, res.Log)
	require.Equal(t, wire.Uint64Key(2), res.Value)

	for _, path := range []string{"", "/nope", "/app/nope", "/store/bank", "/store/missing/key", "/custom"} {
		res = app.Query(abci.RequestQuery{Path: path, Data: alice.addr})
		require.Equal(t, types.CodeUnknownRequest, res.Code, path)
	}
	res = app.Query(abci.RequestQuery{Path: "/custom/missing/x"})
	require.Equal(t, types.CodeUnknownRoute, res.Code)
	res = app.Query(abci.RequestQuery{Path: "/app/roots", Height: 7})
	require.Equal(t, types.CodeUnknownRequest, res.Code)
}

func TestDeterministicAcrossInstances(t *testing.T) {
	alice, bob := newTestAccount(), newTestAccount()
	blocks := [][][]byte{
		{bob.bankTx(t, bank.CreateAccountMsg{}, nil), alice.bankTx(t, bank.NewTransferMsg(bob.addr, 7), nonce(0))},
		{},
		{alice.counterTx(t, counter.IncrementMsg{By: 1}), bob.counterTx(t, counter.DecrementMsg{By: 1})},
	}

	run := func() [][]byte {
		app := newTestApp(t, dbm.NewMemDB())
		initChain(t, app, NewGenesisState(50, alice.addr))
		var hashes [][]byte
		for i, txs := range blocks {
			_, commit := runBlock(app, int64(i+1), txs...)
			hashes = append(hashes, commit.Data)
		}
		return hashes
	}
	require.Equal(t, run(), run())
}

func TestRestart(t *testing.T) {
	db := dbm.NewMemDB()
	alice := newTestAccount()
	app := newTestApp(t, db)
	initChain(t, app, NewGenesisState(10, alice.addr))
	_, commit := runBlock(app, 1)

	restarted := newTestApp(t, db)
	require.Equal(t, Ready, restarted.State())
	info := restarted.Info(abci.RequestInfo{})
	require.Equal(t, int64(1), info.LastBlockHeight)
	require.Equal(t, commit.Data, info.LastBlockAppHash)
	require.Equal(t, uint64(10), queryBalance(t, restarted, 0, alice.addr))

	requireSequencingPanic(t, "InitChain", Ready, func() { restarted.InitChain(abci.RequestInitChain{}) })
	_, commit2 := runBlock(restarted, 2, alice.bankTx(t, bank.NewDepositMsg(5), nonce(0)))
	require.NotEqual(t, commit.Data, commit2.Data)
	require.Equal(t, uint64(15), queryBalance(t, restarted, 0, alice.addr))
}

func TestPublication(t *testing.T) {
	publisher := pub.NewMockBlockPublisher()
	app := newTestApp(t, dbm.NewMemDB(), WithPublication(publisher, nil, 10))
	alice := newTestAccount()
	initChain(t, app, NewGenesisState(10, alice.addr))

	_, commit := runBlock(app, 1, alice.bankTx(t, bank.NewDepositMsg(1), nil), []byte{0x02})
	runBlock(app, 2)
	app.Stop()

	select {
	case <-publisher.Stopped():
	case <-time.After(5 * time.Second):
		t.Fatal("publisher was not stopped")
	}
	blocks := publisher.Published()
	require.Len(t, blocks, 2)
	require.Equal(t, int64(1), blocks[0].Height)
	require.Equal(t, 2, blocks[0].NumOfTxs)
	require.Equal(t, bank.Route, blocks[0].Txs[0].Route)
	require.Equal(t, alice.addr.String(), blocks[0].Txs[0].Sender)
	require.Equal(t, int(types.CodeTxDecode), blocks[0].Txs[1].Code)
	require.Len(t, blocks[0].Roots, 3)
	require.Equal(t, int64(2), blocks[1].Height)
	require.Equal(t, 0, blocks[1].NumOfTxs)
	require.NotEmpty(t, commit.Data)
}

func TestTamperedSignatureRejected(t *testing.T) {
	app := newTestApp(t, dbm.NewMemDB())
	alice, bob := newTestAccount(), newTestAccount()
	initChain(t, app, NewGenesisState(100, alice.addr, bob.addr))
	runBlock(app, 1)

	payload, err := bank.EncodeMsg(bank.NewTransferMsg(bob.addr, 40))
	require.NoError(t, err)
	signed, err := tx.Sign(alice.priv, tx.NewTransaction(bank.Route, payload))
	require.NoError(t, err)
	signed.Signature[0] ^= 0xff
	badSig, err := signed.Bytes()
	require.NoError(t, err)

	other, err := bank.EncodeMsg(bank.NewTransferMsg(bob.addr, 90))
	require.NoError(t, err)
	swapped, err := tx.Sign(alice.priv, tx.NewTransaction(bank.Route, payload))
	require.NoError(t, err)
	swapped.Payload = other
	badPayload, err := swapped.Bytes()
	require.NoError(t, err)

	for _, bz := range [][]byte{badSig, badPayload} {
		res := app.CheckTx(abci.RequestCheckTx{Tx: bz})
		require.Equal(t, types.CodeInvalidSignature, res.Code, res.Log)
	}

	// a proposer that includes them anyway changes nothing
	results, _ := runBlock(app, 2, badSig, badPayload)
	for _, res := range results {
		require.Equal(t, types.CodeInvalidSignature, res.Code, res.Log)
	}
	require.Equal(t, uint64(100), queryBalance(t, app, 0, alice.addr))
	require.Equal(t, uint64(100), queryBalance(t, app, 0, bob.addr))
}

func TestTransferFromAccountCreatedInSameBlock(t *testing.T) {
	app := newTestApp(t, dbm.NewMemDB())
	alice, carol := newTestAccount(), newTestAccount()
	initChain(t, app, NewGenesisState(100, alice.addr))
	runBlock(app, 1)

	create := carol.bankTx(t, bank.CreateAccountMsg{}, nil)
	deposit := carol.bankTx(t, bank.NewDepositMsg(20), nil)
	transfer := carol.bankTx(t, bank.NewTransferMsg(alice.addr, 15), nil)
	for _, bz := range [][]byte{create, deposit, transfer} {
		res := app.CheckTx(abci.RequestCheckTx{Tx: bz})
		require.Equal(t, types.CodeOK, res.Code, res.Log)
	}

	results, _ := runBlock(app, 2, create, deposit, transfer)
	for i, res := range results {
		require.Equal(t, types.CodeOK, res.Code, "tx %d: %s", i, res.Log)
	}
	require.Equal(t, uint64(5), queryBalance(t, app, 0, carol.addr))
	require.Equal(t, uint64(115), queryBalance(t, app, 0, alice.addr))
}

func TestStopReleasesEngineWhilePublisherIsStuck(t *testing.T) {
	defer func(d time.Duration) { publisherDrainTimeout = d }(publisherDrainTimeout)
	publisherDrainTimeout = 2 * time.Second

	publisher := pub.NewMockBlockPublisher()
	app := newTestApp(t, dbm.NewMemDB(), WithPublication(publisher, nil, 10))
	initChain(t, app, NewGenesisState(0))

	// holding the mock's lock keeps the queued block from being published
	publisher.Lock.Lock()
	runBlock(app, 1)

	stopped := make(chan struct{})
	go func() {
		app.Stop()
		close(stopped)
	}()
	time.Sleep(50 * time.Millisecond)

	info := make(chan int64)
	go func() { info <- app.Info(abci.RequestInfo{}).LastBlockHeight }()
	select {
	case height := <-info:
		require.Equal(t, int64(1), height)
	case <-time.After(time.Second):
		t.Fatal("Info blocked while Stop was waiting for the publisher")
	}

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not give up on a stuck publisher")
	}

	// a later commit is not queued on the closed channel
	runBlock(app, 2)

	publisher.Lock.Unlock()
	select {
	case <-publisher.Stopped():
	case <-time.After(5 * time.Second):
		t.Fatal("publisher was not stopped")
	}
	require.Len(t, publisher.Published(), 1)
	app.Stop()
}

func TestQueryInsideBlockReadsCommittedState(t *testing.T) {
	app := newTestApp(t, dbm.NewMemDB())
	alice, bob := newTestAccount(), newTestAccount()
	initChain(t, app, NewGenesisState(100, alice.addr, bob.addr))
	_, commit := runBlock(app, 1)

	app.BeginBlock(abci.RequestBeginBlock{Header: abci.Header{Height: 2, Time: time.Unix(1600000002, 0)}})
	require.Equal(t, BlockInProgress, app.State())
	res := app.DeliverTx(abci.RequestDeliverTx{Tx: alice.bankTx(t, bank.NewTransferMsg(bob.addr, 40), nonce(0))})
	require.Equal(t, types.CodeOK, res.Code, res.Log)

	require.Equal(t, uint64(100), queryBalance(t, app, 0, alice.addr))
	require.Equal(t, uint64(100), queryBalance(t, app, 0, bob.addr))
	q := app.Query(abci.RequestQuery{Path: "/store/bank/key", Data: alice.addr, Prove: true})
	require.Equal(t, types.CodeOK, q.Code, q.Log)
	require.Equal(t, int64(1), q.Height)
	require.NoError(t, store.VerifyValue(q.Proof, commit.Data, bank.Route, alice.addr, q.Value))

	app.EndBlock(abci.RequestEndBlock{Height: 2})
	require.Equal(t, uint64(100), queryBalance(t, app, 0, alice.addr))
	app.Commit()
	require.Equal(t, uint64(60), queryBalance(t, app, 0, alice.addr))
	require.Equal(t, uint64(140), queryBalance(t, app, 0, bob.addr))
}
