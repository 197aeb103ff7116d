package bank

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/crypto/ed25519"
	dbm "github.com/tendermint/tendermint/libs/db"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/bnb-chain/abcikit/app/router"
	"github.com/bnb-chain/abcikit/common/store"
	"github.com/bnb-chain/abcikit/common/types"
)

func setup(t *testing.T) (*store.Store, store.KVStore, router.Context) {
	s, err := store.Open(dbm.NewMemDB(), log.NewNopLogger())
	require.NoError(t, err)
	_, err = s.OpenNamespace(Route)
	require.NoError(t, err)
	require.NoError(t, s.BeginBlock(1))
	ctx := router.NewContext(1, time.Unix(1600000000, 0), nil, log.NewNopLogger())
	return s, s.Overlay().KVStore(Route), ctx
}

func newAddr() types.AccountID {
	return types.AccountID(ed25519.GenPrivKey().PubKey().Address())
}

func mustEncode(t *testing.T, msg Msg) []byte {
	bz, err := EncodeMsg(msg)
	require.NoError(t, err)
	return bz
}

func requireCode(t *testing.T, code types.CodeType, err error) {
	require.Error(t, err)
	actual, _ := types.ABCIInfo(err)
	require.Equal(t, code, actual, err.Error())
}

func TestMsgRoundTrip(t *testing.T) {
	to := newAddr()
	for _, msg := range []Msg{CreateAccountMsg{}, NewDepositMsg(5), NewTransferMsg(to, 7)} {
		decoded, err := DecodeMsg(mustEncode(t, msg))
		require.NoError(t, err)
		require.Equal(t, msg, decoded)
	}

	_, err := DecodeMsg([]byte{1, 2, 3})
	requireCode(t, CodeInvalidMsg, err)
	_, err = DecodeMsg(mustEncode(t, NewDepositMsg(0)))
	requireCode(t, CodeInvalidMsg, err)
	_, err = DecodeMsg(mustEncode(t, NewTransferMsg(types.AccountID{1}, 1)))
	requireCode(t, CodeInvalidMsg, err)
}

func TestCreateDepositTransfer(t *testing.T) {
	_, kv, ctx := setup(t)
	svc := NewService()
	alice, bob := newAddr(), newAddr()

	require.NoError(t, svc.Execute(ctx, alice, mustEncode(t, CreateAccountMsg{}), kv))
	requireCode(t, CodeAccountExists, svc.Execute(ctx, alice, mustEncode(t, CreateAccountMsg{}), kv))

	requireCode(t, CodeUnknownAccount, svc.Execute(ctx, bob, mustEncode(t, NewDepositMsg(10)), kv))
	require.NoError(t, svc.Execute(ctx, alice, mustEncode(t, NewDepositMsg(10)), kv))

	requireCode(t, CodeUnknownAccount, svc.Execute(ctx, alice, mustEncode(t, NewTransferMsg(bob, 3)), kv))
	require.NoError(t, svc.Execute(ctx, bob, mustEncode(t, CreateAccountMsg{}), kv))
	requireCode(t, CodeInsufficientFunds, svc.Execute(ctx, alice, mustEncode(t, NewTransferMsg(bob, 11)), kv))
	require.NoError(t, svc.Execute(ctx, alice, mustEncode(t, NewTransferMsg(bob, 3)), kv))
	require.NoError(t, svc.Execute(ctx, alice, mustEncode(t, NewTransferMsg(alice, 7)), kv))

	acc, ok := GetAccount(kv, alice)
	require.True(t, ok)
	require.Equal(t, uint64(7), acc.Balance)
	acc, ok = GetAccount(kv, bob)
	require.True(t, ok)
	require.Equal(t, uint64(3), acc.Balance)
	require.Len(t, GetAccounts(kv), 2)

	events := ctx.Events()
	require.Len(t, events, 3)
	require.Equal(t, EventTypeDeposit, events[0].Type)
	require.Equal(t, EventTypeTransfer, events[1].Type)
}

func TestOverflow(t *testing.T) {
	_, kv, ctx := setup(t)
	svc := NewService()
	alice, bob := newAddr(), newAddr()
	SetAccount(kv, Account{Address: alice, Balance: ^uint64(0)})
	SetAccount(kv, Account{Address: bob, Balance: 1})

	requireCode(t, CodeBalanceOverflow, svc.Execute(ctx, alice, mustEncode(t, NewDepositMsg(1)), kv))
	requireCode(t, CodeBalanceOverflow, svc.Execute(ctx, bob, mustEncode(t, NewTransferMsg(alice, 1)), kv))
}

func TestGenesisCheckAndQuery(t *testing.T) {
	s, kv, ctx := setup(t)
	svc := NewService()
	alice, bob := newAddr(), newAddr()

	state, err := json.Marshal(GenesisState{Accounts: []GenesisAccount{{Address: alice, Balance: 100}}})
	require.NoError(t, err)
	require.NoError(t, svc.InitGenesis(ctx, kv, state))
	require.NoError(t, svc.InitGenesis(ctx, kv, nil))
	require.Error(t, svc.InitGenesis(ctx, kv, state))
	require.Error(t, svc.InitGenesis(ctx, kv, json.RawMessage(`{"accounts":[{"address":"00","balance":1}]}`)))
	_, err = s.Commit()
	require.NoError(t, err)

	committed, err := s.Latest(Route)
	require.NoError(t, err)
	require.NoError(t, svc.Check(alice, mustEncode(t, NewTransferMsg(bob, 1)), committed))
	// bob may create his account earlier in the same block, so only DeliverTx decides
	require.NoError(t, svc.Check(bob, mustEncode(t, NewTransferMsg(alice, 1)), committed))
	require.NoError(t, svc.Check(bob, mustEncode(t, CreateAccountMsg{}), committed))
	requireCode(t, CodeInvalidMsg, svc.Check(alice, mustEncode(t, NewDepositMsg(0)), committed))
	requireCode(t, CodeInvalidMsg, svc.Check(alice, []byte{0xff, 0x01}, committed))

	bz, err := svc.Query(committed, []string{"balance", alice.String()}, nil)
	require.NoError(t, err)
	acc, err := DecodeAccount(bz)
	require.NoError(t, err)
	require.Equal(t, Account{Address: alice, Balance: 100}, acc)

	bz, err = svc.Query(committed, []string{"balance"}, alice)
	require.NoError(t, err)
	acc, err = DecodeAccount(bz)
	require.NoError(t, err)
	require.Equal(t, uint64(100), acc.Balance)

	_, err = svc.Query(committed, []string{"balance"}, bob)
	requireCode(t, CodeUnknownAccount, err)
	_, err = svc.Query(committed, []string{"nope"}, nil)
	requireCode(t, types.CodeUnknownRequest, err)
}
