package counter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/crypto/ed25519"
	dbm "github.com/tendermint/tendermint/libs/db"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/bnb-chain/abcikit/app/router"
	"github.com/bnb-chain/abcikit/common/store"
	"github.com/bnb-chain/abcikit/common/types"
	"github.com/bnb-chain/abcikit/wire"
)

func encode(t *testing.T, msg Msg) []byte {
	bz, err := EncodeMsg(msg)
	require.NoError(t, err)
	return bz
}

func TestCounter(t *testing.T) {
	s, err := store.Open(dbm.NewMemDB(), log.NewNopLogger())
	require.NoError(t, err)
	_, err = s.OpenNamespace(Route)
	require.NoError(t, err)
	require.NoError(t, s.BeginBlock(1))
	kv := s.Overlay().KVStore(Route)
	ctx := router.NewContext(1, time.Unix(0, 0), nil, log.NewNopLogger())
	svc := NewService()
	alice := types.AccountID(ed25519.GenPrivKey().PubKey().Address())

	require.NoError(t, svc.Execute(ctx, alice, encode(t, IncrementMsg{By: 5}), kv))
	require.NoError(t, svc.Execute(ctx, alice, encode(t, DecrementMsg{By: 2}), kv))
	err = svc.Execute(ctx, alice, encode(t, DecrementMsg{By: 4}), kv)
	code, _ := types.ABCIInfo(err)
	require.Equal(t, CodeUnderflow, code)

	_, err = DecodeMsg(encode(t, IncrementMsg{}))
	code, _ = types.ABCIInfo(err)
	require.Equal(t, CodeInvalidMsg, code)

	require.Empty(t, svc.EndBlock(ctx, kv))
	_, err = s.Commit()
	require.NoError(t, err)

	committed, err := s.Latest(Route)
	require.NoError(t, err)
	bz, err := svc.Query(committed, []string{"count"}, alice)
	require.NoError(t, err)
	require.Equal(t, wire.Uint64Key(3), bz)
	bz, err = svc.Query(committed, []string{"lastblock"}, nil)
	require.NoError(t, err)
	require.Equal(t, wire.Uint64Key(2), bz)
	require.False(t, committed.Has(blockUpdatesKey))

	_, err = svc.Query(committed, []string{"count"}, []byte("nobody"))
	code, _ = types.ABCIInfo(err)
	require.Equal(t, CodeNotFound, code)
}
