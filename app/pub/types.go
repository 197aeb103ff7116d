package pub

import (
	"github.com/bnb-chain/abcikit/common/store"
)

// TxResult is the outcome of one delivered transaction.
type TxResult struct {
	Hash   string
	Route  string
	Sender string
	Code   uint32
	Log    string
}

// intermediate data structures to deal with concurrent publication between main thread and publisher thread
type BlockInfoToPublish struct {
	height    int64
	timestamp int64 // milliseconds since epoch
	appHash   []byte
	txs       []TxResult
	roots     []store.NamespaceRoot
}

func NewBlockInfoToPublish(
	height int64,
	timestamp int64,
	appHash []byte,
	txs []TxResult,
	roots []store.NamespaceRoot) BlockInfoToPublish {
	return BlockInfoToPublish{
		height,
		timestamp,
		appHash,
		txs,
		roots}
}

func (info BlockInfoToPublish) Height() int64 { return info.height }
