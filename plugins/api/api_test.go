package api

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/crypto/ed25519"
	dbm "github.com/tendermint/tendermint/libs/db"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/bnb-chain/abcikit/app"
	"github.com/bnb-chain/abcikit/common/store"
	"github.com/bnb-chain/abcikit/common/tx"
	"github.com/bnb-chain/abcikit/common/types"
	"github.com/bnb-chain/abcikit/plugins/bank"
	"github.com/bnb-chain/abcikit/plugins/counter"
	"github.com/bnb-chain/abcikit/version"
)

type fixture struct {
	node   *app.AbciKitApp
	srv    *httptest.Server
	alice  types.AccountID
	bob    types.AccountID
	hash   []byte
	client *http.Client
}

func signedTx(t *testing.T, priv ed25519.PrivKeyEd25519, route string, payload []byte) []byte {
	signed, err := tx.Sign(priv, tx.NewTransaction(route, payload))
	require.NoError(t, err)
	bz, err := signed.Bytes()
	require.NoError(t, err)
	return bz
}

// newFixture commits one block in which alice sends 30 to bob and bumps her counter by 2.
func newFixture(t *testing.T) *fixture {
	node, err := app.NewAbciKitApp(log.NewNopLogger(), dbm.NewMemDB(), app.DefaultServices())
	require.NoError(t, err)

	alicePriv, bobPriv := ed25519.GenPrivKey(), ed25519.GenPrivKey()
	alice := types.AccountID(alicePriv.PubKey().Address())
	bob := types.AccountID(bobPriv.PubKey().Address())

	appState, err := app.NewGenesisState(100, alice, bob).AppStateJSON()
	require.NoError(t, err)
	node.InitChain(abci.RequestInitChain{ChainId: "api-test", AppStateBytes: appState})

	transfer, err := bank.EncodeMsg(bank.NewTransferMsg(bob, 30))
	require.NoError(t, err)
	increment, err := counter.EncodeMsg(counter.IncrementMsg{By: 2})
	require.NoError(t, err)

	node.BeginBlock(abci.RequestBeginBlock{Header: abci.Header{Height: 1, Time: time.Unix(1600000000, 0)}})
	for _, bz := range [][]byte{
		signedTx(t, alicePriv, bank.Route, transfer),
		signedTx(t, alicePriv, counter.Route, increment),
	} {
		res := node.DeliverTx(abci.RequestDeliverTx{Tx: bz})
		require.Equal(t, types.CodeOK, res.Code, res.Log)
	}
	node.EndBlock(abci.RequestEndBlock{Height: 1})
	commit := node.Commit()

	s := newServer(node, 0, log.NewNopLogger()).bindRoutes()
	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)
	return &fixture{node: node, srv: srv, alice: alice, bob: bob, hash: commit.Data, client: srv.Client()}
}

func (f *fixture) get(t *testing.T, path string) (int, []byte) {
	resp, err := f.client.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func (f *fixture) getJSON(t *testing.T, path string, v interface{}) {
	status, body := f.get(t, path)
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, v))
}

func TestVersionRoutes(t *testing.T) {
	require.Equal(t, "/api/v1", prefix)
	f := newFixture(t)

	status, body := f.get(t, "/version")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, version.Version, string(body))

	status, body = f.get(t, "/node_version")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, version.Version, string(body))
}

func TestStatusAndRoots(t *testing.T) {
	f := newFixture(t)

	var st statusView
	f.getJSON(t, prefix+"/status", &st)
	require.Equal(t, int64(1), st.Height)
	require.Equal(t, fmt.Sprintf("%X", f.hash), st.AppHash)

	var roots struct {
		Height int64 `json:"height"`
		Roots  []struct {
			Name string `json:"name"`
			Hash string `json:"hash"`
		} `json:"roots"`
	}
	f.getJSON(t, prefix+"/roots", &roots)
	require.Equal(t, int64(1), roots.Height)
	require.Len(t, roots.Roots, 3)
	require.Equal(t, string(tx.NonceNamespace), roots.Roots[0].Name)
	require.Equal(t, bank.Route, roots.Roots[1].Name)
	require.Equal(t, counter.Route, roots.Roots[2].Name)

	status, _ := f.get(t, prefix+"/roots?height=7")
	require.Equal(t, http.StatusNotFound, status)
	status, _ = f.get(t, prefix+"/roots?height=x")
	require.Equal(t, http.StatusBadRequest, status)
}

type statusView struct {
	Height  int64  `json:"height"`
	AppHash string `json:"app_hash"`
}

func TestStoreKeyWithProof(t *testing.T) {
	f := newFixture(t)

	var res struct {
		Exists bool   `json:"exists"`
		Value  string `json:"value"`
		Height int64  `json:"height"`
		Proof  *struct {
			Ops []json.RawMessage `json:"ops"`
		} `json:"proof"`
	}
	f.getJSON(t, fmt.Sprintf("%s/store/bank/%x?prove=true", prefix, []byte(f.alice)), &res)
	require.True(t, res.Exists)
	require.Equal(t, int64(1), res.Height)
	require.NotNil(t, res.Proof)
	require.Len(t, res.Proof.Ops, 2)

	value, err := hex.DecodeString(res.Value)
	require.NoError(t, err)
	acc, err := bank.DecodeAccount(value)
	require.NoError(t, err)
	require.Equal(t, uint64(70), acc.Balance)

	// the same proof served by the engine verifies against the committed hash
	q := f.node.Query(abci.RequestQuery{Path: "/store/bank/key", Data: f.alice, Prove: true})
	require.NoError(t, store.VerifyValue(q.Proof, f.hash, bank.Route, f.alice, value))

	var absent struct {
		Exists bool `json:"exists"`
	}
	f.getJSON(t, fmt.Sprintf("%s/store/bank/%x", prefix, make([]byte, types.AccountIDLen)), &absent)
	require.False(t, absent.Exists)

	status, _ := f.get(t, prefix+"/store/bank/zz")
	require.Equal(t, http.StatusBadRequest, status)
	status, _ = f.get(t, prefix+"/store/nope/00")
	require.Equal(t, http.StatusNotFound, status)
}

func TestServiceRoutes(t *testing.T) {
	f := newFixture(t)

	var balance struct {
		Height  int64        `json:"height"`
		Account bank.Account `json:"account"`
	}
	f.getJSON(t, fmt.Sprintf("%s/balances/%x", prefix, []byte(f.bob)), &balance)
	require.Equal(t, uint64(130), balance.Account.Balance)
	require.Equal(t, f.bob, balance.Account.Address)

	status, _ := f.get(t, fmt.Sprintf("%s/balances/%x", prefix, make([]byte, types.AccountIDLen)))
	require.Equal(t, http.StatusNotFound, status)
	status, _ = f.get(t, prefix+"/balances/abc")
	require.Equal(t, http.StatusBadRequest, status)

	var accounts []json.RawMessage
	f.getJSON(t, prefix+"/accounts", &accounts)
	require.Len(t, accounts, 2)

	var count struct {
		Count uint64 `json:"count"`
	}
	f.getJSON(t, fmt.Sprintf("%s/counters/%x", prefix, []byte(f.alice)), &count)
	require.Equal(t, uint64(2), count.Count)
	status, _ = f.get(t, fmt.Sprintf("%s/counters/%x", prefix, []byte(f.bob)))
	require.Equal(t, http.StatusNotFound, status)

	var custom struct {
		Height int64  `json:"height"`
		Value  string `json:"value"`
	}
	f.getJSON(t, prefix+"/custom/counter/lastblock", &custom)
	require.Equal(t, int64(1), custom.Height)
	require.Equal(t, "0000000000000001", custom.Value)

	status, _ = f.get(t, prefix+"/custom/nope/anything")
	require.NotEqual(t, http.StatusOK, status)
	status, _ = f.get(t, prefix+"/custom/counter/lastblock?data=zz")
	require.Equal(t, http.StatusBadRequest, status)
}

func TestRateLimitedServer(t *testing.T) {
	f := newFixture(t)
	s := newServer(f.node, 1000, log.NewNopLogger()).bindRoutes()
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	for i := 0; i < 3; i++ {
		resp, err := srv.Client().Get(srv.URL + prefix + "/status")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
}
