package store

import (
	"fmt"
	"sort"

	"github.com/tendermint/tendermint/crypto/merkle"
	dbm "github.com/tendermint/tendermint/libs/db"

	"github.com/bnb-chain/abcikit/wire"
)

const (
	latestHeightKey  = "s/latest"
	commitInfoKeyFmt = "s/%d"
)

var cdc = wire.NewCodec()

// namespaceInfo records the tree version and sub-root a namespace had when a store
// version was published.
type namespaceInfo struct {
	Name    string
	Version int64
	Hash    []byte
}

// commitInfo is the published description of one store version. It lives outside
// every namespace tree, so it never contributes to the root it describes.
type commitInfo struct {
	Height     int64
	Namespaces []namespaceInfo
}

func (ci commitInfo) hashMap() map[string][]byte {
	m := make(map[string][]byte, len(ci.Namespaces))
	for _, ns := range ci.Namespaces {
		m[ns.Name] = ns.Hash
	}
	return m
}

// Hash is the aggregate root: a simple Merkle tree over the sub-roots ordered by
// namespace name.
func (ci commitInfo) Hash() []byte {
	return merkle.SimpleHashFromMap(ci.hashMap())
}

func (ci commitInfo) CommitID() CommitID {
	return CommitID{Height: ci.Height, Hash: ci.Hash()}
}

func (ci commitInfo) namespace(name string) (namespaceInfo, bool) {
	i := sort.Search(len(ci.Namespaces), func(i int) bool { return ci.Namespaces[i].Name >= name })
	if i < len(ci.Namespaces) && ci.Namespaces[i].Name == name {
		return ci.Namespaces[i], true
	}
	return namespaceInfo{}, false
}

func (ci commitInfo) roots() []NamespaceRoot {
	res := make([]NamespaceRoot, 0, len(ci.Namespaces))
	for _, ns := range ci.Namespaces {
		res = append(res, NamespaceRoot{Name: ns.Name, Hash: ns.Hash})
	}
	return res
}

func commitInfoKey(height int64) []byte {
	return []byte(fmt.Sprintf(commitInfoKeyFmt, height))
}

func getLatestHeight(db dbm.DB) (int64, error) {
	bz := db.Get([]byte(latestHeightKey))
	if bz == nil {
		return 0, nil
	}
	var height int64
	if err := wire.Decode(cdc, bz, &height); err != nil {
		return 0, err
	}
	return height, nil
}

func getCommitInfo(db dbm.DB, height int64) (commitInfo, error) {
	bz := db.Get(commitInfoKey(height))
	if bz == nil {
		return commitInfo{}, fmt.Errorf("%v: height %d", ErrVersionNotFound, height)
	}
	var info commitInfo
	if err := wire.Decode(cdc, bz, &info); err != nil {
		return commitInfo{}, err
	}
	return info, nil
}

// setCommitInfo publishes info and moves the latest pointer in one synced batch.
func setCommitInfo(db dbm.DB, info commitInfo) error {
	infoBz, err := wire.Encode(cdc, info)
	if err != nil {
		return err
	}
	heightBz, err := wire.Encode(cdc, info.Height)
	if err != nil {
		return err
	}
	batch := db.NewBatch()
	batch.Set(commitInfoKey(info.Height), infoBz)
	batch.Set([]byte(latestHeightKey), heightBz)
	batch.WriteSync()
	return nil
}
