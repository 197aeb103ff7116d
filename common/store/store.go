package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/btree"
	"github.com/pkg/errors"
	"github.com/tendermint/iavl"
	dbm "github.com/tendermint/tendermint/libs/db"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/bnb-chain/abcikit/common/types"
)

const (
	defaultIAVLCacheSize = 10000

	namespacePrefixFmt = "k:%s/"
)

type namespace struct {
	name string
	db   dbm.DB
	tree *iavl.MutableTree
}

// Store is a set of named IAVL trees that are versioned together. Writes are staged
// in an Overlay for the block in progress and become a new version only on Commit.
//
// The staging methods (BeginGenesis, BeginBlock, Get, Set, Delete, Commit, Abort)
// belong to the single block-processing goroutine. View may be used concurrently.
type Store struct {
	db        dbm.DB
	logger    log.Logger
	cacheSize int

	// guards namespaces, names and last; held for writing only while a version is
	// being made durable
	mtx        sync.RWMutex
	namespaces map[string]*namespace
	names      []string
	last       commitInfo

	pending        *Overlay
	genesisPending bool
}

type Option func(*Store)

func WithCacheSize(size int) Option {
	return func(s *Store) {
		s.cacheSize = size
	}
}

// Open loads the last published version from db.
func Open(db dbm.DB, logger log.Logger, opts ...Option) (*Store, error) {
	s := &Store{
		db:         db,
		logger:     logger,
		cacheSize:  defaultIAVLCacheSize,
		namespaces: make(map[string]*namespace),
	}
	for _, opt := range opts {
		opt(s)
	}

	height, err := getLatestHeight(db)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load latest height")
	}
	if height > 0 {
		info, err := getCommitInfo(db, height)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load commit info for height %d", height)
		}
		s.last = info
	}
	s.logger.Info("store loaded", "height", s.last.Height, "hash", fmt.Sprintf("%X", s.lastHash()))
	return s, nil
}

// OpenNamespace makes name available, creating an empty namespace if no published
// version knows it. Calling it again for the same name is a no-op.
func (s *Store) OpenNamespace(name string) (Namespace, error) {
	if err := ValidateNamespace(name); err != nil {
		return "", err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	if _, ok := s.namespaces[name]; ok {
		return Namespace(name), nil
	}
	ns, err := s.loadNamespace(name)
	if err != nil {
		return "", err
	}
	s.namespaces[name] = ns
	s.names = append(s.names, name)
	sort.Strings(s.names)
	return Namespace(name), nil
}

// loadNamespace builds a tree at the published version of name. Bytes under the
// prefix of a namespace no published version knows about are leftovers of a failed
// commit and are wiped.
func (s *Store) loadNamespace(name string) (*namespace, error) {
	pdb := dbm.NewPrefixDB(s.db, []byte(fmt.Sprintf(namespacePrefixFmt, name)))
	tree := iavl.NewMutableTree(pdb, s.cacheSize)
	if info, ok := s.last.namespace(name); ok {
		if _, err := tree.LoadVersionForOverwriting(info.Version); err != nil {
			return nil, errors.Wrapf(err, "failed to load namespace %s at version %d", name, info.Version)
		}
	} else {
		wipe(pdb)
	}
	return &namespace{name: name, db: pdb, tree: tree}, nil
}

func wipe(db dbm.DB) {
	var keys [][]byte
	itr := db.Iterator(nil, nil)
	for ; itr.Valid(); itr.Next() {
		keys = append(keys, cp(itr.Key()))
	}
	itr.Close()
	if len(keys) == 0 {
		return
	}
	batch := db.NewBatch()
	for _, key := range keys {
		batch.Delete(key)
	}
	batch.WriteSync()
}

// Namespaces lists the open namespaces in name order.
func (s *Store) Namespaces() []string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return append([]string(nil), s.names...)
}

func (s *Store) LastHeight() int64 {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.last.Height
}

func (s *Store) LastCommitID() CommitID {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.last.Height == 0 {
		return CommitID{}
	}
	return s.last.CommitID()
}

func (s *Store) lastHash() []byte {
	if s.last.Height == 0 {
		return nil
	}
	return s.last.Hash()
}

// BeginGenesis opens the staging overlay that genesis state is written into. The
// overlay is carried into block 1 and committed with it.
func (s *Store) BeginGenesis() error {
	if s.LastHeight() != 0 {
		return ErrGenesisUnavailable
	}
	if s.pending != nil {
		return ErrBlockInProgress
	}
	s.pending = newOverlay(committedLayer{s}, 1)
	s.genesisPending = true
	return nil
}

// BeginBlock allocates the staging overlay for height, which must directly follow
// the last committed height.
func (s *Store) BeginBlock(height int64) error {
	last := s.LastHeight()
	if height != last+1 {
		return fmt.Errorf("cannot begin block %d: last committed height is %d", height, last)
	}
	if s.pending != nil {
		if s.genesisPending {
			s.genesisPending = false
			return nil
		}
		return ErrBlockInProgress
	}
	s.pending = newOverlay(committedLayer{s}, height)
	return nil
}

// Overlay returns the active staging overlay, or nil.
func (s *Store) Overlay() *Overlay {
	return s.pending
}

// Abort discards the staging overlay without touching committed state.
func (s *Store) Abort() {
	s.pending = nil
	s.genesisPending = false
}

// Get reads key from the active overlay, falling back to the last committed version.
func (s *Store) Get(ns Namespace, key []byte) []byte {
	if s.pending != nil {
		return s.pending.get(string(ns), key)
	}
	return committedLayer{s}.get(string(ns), key)
}

func (s *Store) Set(ns Namespace, key, value []byte) error {
	if s.pending == nil {
		return ErrNoActiveBlock
	}
	if !s.pending.hasNamespace(string(ns)) {
		return errors.Wrap(ErrUnknownNamespace, string(ns))
	}
	s.pending.set(string(ns), key, value)
	return nil
}

func (s *Store) Delete(ns Namespace, key []byte) error {
	if s.pending == nil {
		return ErrNoActiveBlock
	}
	if !s.pending.hasNamespace(string(ns)) {
		return errors.Wrap(ErrUnknownNamespace, string(ns))
	}
	s.pending.delete(string(ns), key)
	return nil
}

// Commit folds the overlay into a new version of every namespace and publishes it.
// Nothing is visible to readers until the commit info batch is written; any failure
// before that rolls every tree back to the previous version.
func (s *Store) Commit() (id CommitID, err error) {
	pending := s.pending
	if pending == nil || s.genesisPending {
		return id, ErrNoActiveBlock
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = types.NewStoreIOError("commit", fmt.Errorf("%v", r))
		}
		if err != nil {
			s.logger.Error("commit failed, restoring last version", "height", pending.height, "err", err)
			if rerr := s.rollback(); rerr != nil {
				err = types.NewStoreIOError("rollback", errors.Wrap(rerr, err.Error()))
			}
		}
		s.pending = nil
	}()

	info := commitInfo{Height: pending.height}
	for _, name := range s.names {
		ns := s.namespaces[name]
		pending.each(name, func(it *item) {
			if it.deleted {
				ns.tree.Remove(it.key)
			} else {
				ns.tree.Set(it.key, it.value)
			}
		})
		hash, version, err := ns.tree.SaveVersion()
		if err != nil {
			return id, types.NewStoreIOError("save "+name, err)
		}
		info.Namespaces = append(info.Namespaces, namespaceInfo{Name: name, Version: version, Hash: hash})
	}

	if err := setCommitInfo(s.db, info); err != nil {
		return id, types.NewStoreIOError("publish", err)
	}
	s.last = info
	id = info.CommitID()
	s.logger.Debug("committed", "height", id.Height, "hash", fmt.Sprintf("%X", id.Hash))
	return id, nil
}

// rollback reloads every tree from disk at the last published version.
func (s *Store) rollback() error {
	for _, name := range s.names {
		ns, err := s.loadNamespace(name)
		if err != nil {
			return err
		}
		s.namespaces[name] = ns
	}
	return nil
}

// WorkingHash is the aggregate root Commit would produce if the overlay were
// committed now. Committed trees are not touched.
func (s *Store) WorkingHash() ([]byte, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.pending == nil {
		return s.lastHash(), nil
	}

	info := commitInfo{Height: s.pending.height}
	for _, name := range s.names {
		tree := iavl.NewMutableTree(s.namespaces[name].db, 0)
		if nsInfo, ok := s.last.namespace(name); ok {
			if _, err := tree.LoadVersion(nsInfo.Version); err != nil {
				return nil, err
			}
		}
		s.pending.each(name, func(it *item) {
			if it.deleted {
				tree.Remove(it.key)
			} else {
				tree.Set(it.key, it.value)
			}
		})
		info.Namespaces = append(info.Namespaces, namespaceInfo{Name: name, Hash: tree.WorkingHash()})
	}
	return info.Hash(), nil
}

// RootHash returns the aggregate root of a retained version.
func (s *Store) RootHash(height int64) ([]byte, error) {
	if height <= 0 {
		return nil, fmt.Errorf("%v: height %d", ErrVersionNotFound, height)
	}
	view, err := s.View(height)
	if err != nil {
		return nil, err
	}
	return view.RootHash(), nil
}

// committedLayer reads the working trees, which equal the last committed version
// outside of Commit.
type committedLayer struct {
	s *Store
}

func (c committedLayer) namespace(ns string) *namespace {
	c.s.mtx.RLock()
	defer c.s.mtx.RUnlock()
	return c.s.namespaces[ns]
}

func (c committedLayer) get(ns string, key []byte) []byte {
	n := c.namespace(ns)
	if n == nil {
		return nil
	}
	_, value := n.tree.Get(key)
	return value
}

func (c committedLayer) iterate(ns string, start, end []byte, fn func(key, value []byte) bool) bool {
	n := c.namespace(ns)
	if n == nil {
		return false
	}
	return n.tree.IterateRange(start, end, true, fn)
}

func (c committedLayer) hasNamespace(ns string) bool {
	return c.namespace(ns) != nil
}

func sortedNames(m map[string]*btree.BTree) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
