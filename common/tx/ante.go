package tx

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/bnb-chain/abcikit/common/store"
	"github.com/bnb-chain/abcikit/common/types"
	"github.com/bnb-chain/abcikit/wire"
)

const (
	// NonceNamespace holds the next expected nonce of every account that has used one.
	// Routes are alphabetic, so no service can claim it.
	NonceNamespace store.Namespace = "_nonce"

	DefaultSigCacheSize = 30000
)

type sigLRUCache struct {
	*lru.Cache
}

func newSigLRUCache(cap int) *sigLRUCache {
	cache, err := lru.New(cap)
	if err != nil {
		panic(err)
	}

	return &sigLRUCache{
		cache,
	}
}

func (cache *sigLRUCache) getSig(txHash string) (ok bool) {
	_, ok = cache.Get(txHash)
	return ok
}

func (cache *sigLRUCache) addSig(txHash string) {
	if txHash != "" {
		cache.Add(txHash, true)
	}
}

// Authenticator checks signatures and nonces. Signatures of transactions already
// verified (usually during CheckTx) are remembered by tx hash, which covers the
// signature itself.
type Authenticator struct {
	sigCache *sigLRUCache
	logger   log.Logger
}

func NewAuthenticator(sigCacheSize int, logger log.Logger) *Authenticator {
	if sigCacheSize <= 0 {
		sigCacheSize = DefaultSigCacheSize
	}
	return &Authenticator{
		sigCache: newSigLRUCache(sigCacheSize),
		logger:   logger,
	}
}

// Authenticate runs the stateless checks and verifies the signature of tx, returning
// the sender.
func (a *Authenticator) Authenticate(tx Transaction) (types.AccountID, error) {
	if err := tx.ValidateBasic(); err != nil {
		return nil, err
	}
	sender, err := tx.Sender()
	if err != nil {
		return nil, types.NewValidationError(types.CodeInvalidTx, "%s", err)
	}

	txHash := tx.Hash().String()
	if a.sigCache.getSig(txHash) {
		a.logger.Debug("Tx hits sig cache", "txHash", txHash)
		return sender, nil
	}
	if !Verify(tx.PubKey, tx.SignBytes(), tx.Signature) {
		return nil, types.NewValidationError(types.CodeInvalidSignature, "signature verification failed")
	}
	a.sigCache.addSig(txHash)
	return sender, nil
}

// NextNonce is the nonce the next transaction of account must carry.
func NextNonce(kv store.KVReader, account types.AccountID) uint64 {
	bz := kv.Get(account)
	if bz == nil {
		return 0
	}
	n, err := wire.ParseUint64Key(bz)
	if err != nil {
		panic(err)
	}
	return n
}

// CheckNonce rejects nonces that committed state has already consumed. It is the
// mempool check; a nonce ahead of state may still become valid.
func CheckNonce(kv store.KVReader, sender types.AccountID, tx Transaction) error {
	if !tx.HasNonce {
		return nil
	}
	if next := NextNonce(kv, sender); tx.Nonce < next {
		return types.NewValidationError(types.CodeInvalidNonce,
			"stale nonce %d, account %s expects %d", tx.Nonce, sender, next)
	}
	return nil
}

// ProcessNonce requires the exact next nonce.
func ProcessNonce(kv store.KVReader, sender types.AccountID, tx Transaction) error {
	if !tx.HasNonce {
		return nil
	}
	if next := NextNonce(kv, sender); tx.Nonce != next {
		return types.NewValidationError(types.CodeInvalidNonce,
			"invalid nonce %d, account %s expects %d", tx.Nonce, sender, next)
	}
	return nil
}

// IncrementNonce consumes the nonce of an executed transaction.
func IncrementNonce(kv store.KVStore, sender types.AccountID, tx Transaction) {
	if !tx.HasNonce {
		return
	}
	kv.Set(sender, wire.Uint64Key(tx.Nonce+1))
}
