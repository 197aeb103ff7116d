package store

import (
	"bytes"
	"fmt"

	"github.com/google/btree"
)

const btreeDegree = 32

// layer is anything an overlay can read through to: the committed store or a
// parent overlay.
type layer interface {
	get(ns string, key []byte) []byte
	iterate(ns string, start, end []byte, fn func(key, value []byte) bool) (stopped bool)
	hasNamespace(ns string) bool
}

type item struct {
	key     []byte
	value   []byte
	deleted bool
}

func (i *item) Less(than btree.Item) bool {
	return bytes.Compare(i.key, than.(*item).key) < 0
}

// PendingWrite is a staged mutation as it will be applied at commit.
type PendingWrite struct {
	Namespace string
	Key       []byte
	Value     []byte
	Deleted   bool
}

// Overlay holds uncommitted writes keyed by namespace. Entries are kept in B-trees so
// that iteration and commit order depend only on key bytes.
type Overlay struct {
	parent layer
	height int64
	writes map[string]*btree.BTree
}

func newOverlay(parent layer, height int64) *Overlay {
	return &Overlay{
		parent: parent,
		height: height,
		writes: make(map[string]*btree.BTree),
	}
}

// Height is the block height the overlay is staging.
func (o *Overlay) Height() int64 { return o.height }

// Branch opens a nested write scope. Its writes reach o only through Write; dropping
// the branch discards them.
func (o *Overlay) Branch() *Overlay {
	return newOverlay(o, o.height)
}

// Write collapses a branch into its parent overlay.
func (o *Overlay) Write() {
	parent, ok := o.parent.(*Overlay)
	if !ok {
		panic("block overlay can only be promoted by Store.Commit")
	}
	for ns, tree := range o.writes {
		tree.Ascend(func(i btree.Item) bool {
			it := i.(*item)
			parent.tree(ns).ReplaceOrInsert(it)
			return true
		})
	}
	o.writes = make(map[string]*btree.BTree)
}

// KVStore returns a writable view of ns layered over everything below o.
func (o *Overlay) KVStore(ns Namespace) KVStore {
	if !o.hasNamespace(string(ns)) {
		panic(fmt.Sprintf("%v: %s", ErrUnknownNamespace, ns))
	}
	return &overlayKV{o: o, ns: string(ns)}
}

// Pending lists the writes held directly by o, ordered by namespace then key.
func (o *Overlay) Pending() []PendingWrite {
	var res []PendingWrite
	for _, ns := range sortedNames(o.writes) {
		o.each(ns, func(it *item) {
			res = append(res, PendingWrite{Namespace: ns, Key: it.key, Value: it.value, Deleted: it.deleted})
		})
	}
	return res
}

// Empty reports whether o holds no writes.
func (o *Overlay) Empty() bool {
	for _, tree := range o.writes {
		if tree.Len() > 0 {
			return false
		}
	}
	return true
}

func (o *Overlay) tree(ns string) *btree.BTree {
	tree, ok := o.writes[ns]
	if !ok {
		tree = btree.New(btreeDegree)
		o.writes[ns] = tree
	}
	return tree
}

func (o *Overlay) lookup(ns string, key []byte) (*item, bool) {
	tree, ok := o.writes[ns]
	if !ok {
		return nil, false
	}
	found := tree.Get(&item{key: key})
	if found == nil {
		return nil, false
	}
	return found.(*item), true
}

func (o *Overlay) each(ns string, fn func(it *item)) {
	tree, ok := o.writes[ns]
	if !ok {
		return
	}
	tree.Ascend(func(i btree.Item) bool {
		fn(i.(*item))
		return true
	})
}

func (o *Overlay) get(ns string, key []byte) []byte {
	if it, ok := o.lookup(ns, key); ok {
		if it.deleted {
			return nil
		}
		return it.value
	}
	return o.parent.get(ns, key)
}

func (o *Overlay) set(ns string, key, value []byte) {
	assertValidKey(key)
	assertValidValue(value)
	o.tree(ns).ReplaceOrInsert(&item{key: cp(key), value: cp(value)})
}

func (o *Overlay) delete(ns string, key []byte) {
	assertValidKey(key)
	o.tree(ns).ReplaceOrInsert(&item{key: cp(key), deleted: true})
}

func (o *Overlay) hasNamespace(ns string) bool {
	return o.parent.hasNamespace(ns)
}

func (o *Overlay) rangeItems(ns string, start, end []byte) []*item {
	tree, ok := o.writes[ns]
	if !ok {
		return nil
	}
	var res []*item
	visit := func(i btree.Item) bool {
		it := i.(*item)
		if end != nil && bytes.Compare(it.key, end) >= 0 {
			return false
		}
		res = append(res, it)
		return true
	}
	if start == nil {
		tree.Ascend(visit)
	} else {
		tree.AscendGreaterOrEqual(&item{key: start}, visit)
	}
	return res
}

// iterate merges o's entries over the parent's stream; o wins on equal keys and its
// deletions hide parent entries.
func (o *Overlay) iterate(ns string, start, end []byte, fn func(key, value []byte) bool) bool {
	own := o.rangeItems(ns, start, end)
	i := 0
	stopped := o.parent.iterate(ns, start, end, func(key, value []byte) bool {
		for i < len(own) && bytes.Compare(own[i].key, key) < 0 {
			it := own[i]
			i++
			if !it.deleted && fn(it.key, it.value) {
				return true
			}
		}
		if i < len(own) && bytes.Equal(own[i].key, key) {
			it := own[i]
			i++
			if it.deleted {
				return false
			}
			return fn(it.key, it.value)
		}
		return fn(key, value)
	})
	if stopped {
		return true
	}
	for ; i < len(own); i++ {
		if !own[i].deleted && fn(own[i].key, own[i].value) {
			return true
		}
	}
	return false
}

type overlayKV struct {
	o  *Overlay
	ns string
}

var _ KVStore = (*overlayKV)(nil)

func (kv *overlayKV) Get(key []byte) []byte {
	return kv.o.get(kv.ns, key)
}

func (kv *overlayKV) Has(key []byte) bool {
	return kv.o.get(kv.ns, key) != nil
}

func (kv *overlayKV) Iterate(start, end []byte, fn func(key, value []byte) bool) {
	kv.o.iterate(kv.ns, start, end, fn)
}

func (kv *overlayKV) Set(key, value []byte) {
	kv.o.set(kv.ns, key, value)
}

func (kv *overlayKV) Delete(key []byte) {
	kv.o.delete(kv.ns, key)
}

func cp(bz []byte) []byte {
	if bz == nil {
		return nil
	}
	res := make([]byte, len(bz))
	copy(res, bz)
	return res
}
