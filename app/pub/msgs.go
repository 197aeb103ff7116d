package pub

import (
	"fmt"
	"strings"
)

type msgType int8

const (
	blockTpe msgType = iota
)

// the strings should be keep consistence with top level record name in schemas.go
func (this msgType) String() string {
	switch this {
	case blockTpe:
		return "Block"
	default:
		return "Unknown"
	}
}

type AvroOrJsonMsg interface {
	ToNativeMap() map[string]interface{}
	String() string
}

type Tx struct {
	Hash   string `json:"hash"`
	Route  string `json:"route"`
	Sender string `json:"sender"`
	Code   int    `json:"code"`
	Log    string `json:"log"`
}

func (msg Tx) ToNativeMap() map[string]interface{} {
	var native = make(map[string]interface{})
	native["hash"] = msg.Hash
	native["route"] = msg.Route
	native["sender"] = msg.Sender
	native["code"] = msg.Code
	native["log"] = msg.Log
	return native
}

type Root struct {
	Namespace string `json:"namespace"`
	Hash      string `json:"hash"`
}

func (msg Root) ToNativeMap() map[string]interface{} {
	var native = make(map[string]interface{})
	native["namespace"] = msg.Namespace
	native["hash"] = msg.Hash
	return native
}

// Block is published once per committed height.
type Block struct {
	Height    int64  `json:"height"`
	Timestamp int64  `json:"timestamp"`
	AppHash   string `json:"appHash"`
	NumOfTxs  int    `json:"numOfTxs"`
	Txs       []Tx   `json:"txs"`
	Roots     []Root `json:"roots"`
}

func (msg *Block) String() string {
	return fmt.Sprintf("Block at height: %d, appHash: %s, numOfTxs: %d", msg.Height, msg.AppHash, msg.NumOfTxs)
}

func (msg *Block) ToNativeMap() map[string]interface{} {
	var native = make(map[string]interface{})
	native["height"] = msg.Height
	native["timestamp"] = msg.Timestamp
	native["appHash"] = msg.AppHash
	native["numOfTxs"] = msg.NumOfTxs
	txs := make([]interface{}, len(msg.Txs))
	for idx, tx := range msg.Txs {
		txs[idx] = tx.ToNativeMap()
	}
	native["txs"] = txs
	roots := make([]interface{}, len(msg.Roots))
	for idx, root := range msg.Roots {
		roots[idx] = root.ToNativeMap()
	}
	native["roots"] = roots
	return native
}

func blockFromInfo(info BlockInfoToPublish) *Block {
	txs := make([]Tx, len(info.txs))
	for i, tx := range info.txs {
		txs[i] = Tx{tx.Hash, tx.Route, tx.Sender, int(tx.Code), tx.Log}
	}
	roots := make([]Root, len(info.roots))
	for i, root := range info.roots {
		roots[i] = Root{root.Name, strings.ToUpper(fmt.Sprintf("%x", root.Hash))}
	}
	return &Block{
		Height:    info.height,
		Timestamp: info.timestamp,
		AppHash:   strings.ToUpper(fmt.Sprintf("%x", info.appHash)),
		NumOfTxs:  len(txs),
		Txs:       txs,
		Roots:     roots,
	}
}
