package store

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/tendermint/iavl"
	"github.com/tendermint/tendermint/crypto/merkle"
)

// View is a read-only snapshot of one committed version. Views are safe to use
// while the next block is being staged or committed.
type View struct {
	s    *Store
	info commitInfo
}

// View opens the committed version at height; 0 selects the latest.
func (s *Store) View(height int64) (*View, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if s.last.Height == 0 {
		return nil, errors.Wrap(ErrVersionNotFound, "nothing committed yet")
	}
	if height == 0 || height == s.last.Height {
		return &View{s: s, info: s.last}, nil
	}
	if height < 0 || height > s.last.Height {
		return nil, fmt.Errorf("%v: height %d (latest %d)", ErrVersionNotFound, height, s.last.Height)
	}
	info, err := getCommitInfo(s.db, height)
	if err != nil {
		return nil, err
	}
	return &View{s: s, info: info}, nil
}

func (v *View) Height() int64 { return v.info.Height }

func (v *View) RootHash() []byte { return v.info.Hash() }

// Roots lists the sub-root of every namespace in this version, ordered by name.
func (v *View) Roots() []NamespaceRoot { return v.info.roots() }

func (v *View) tree(ns Namespace) (*iavl.ImmutableTree, error) {
	nsInfo, ok := v.info.namespace(string(ns))
	if !ok {
		return nil, errors.Wrapf(ErrUnknownNamespace, "%s at height %d", ns, v.info.Height)
	}

	v.s.mtx.RLock()
	defer v.s.mtx.RUnlock()
	n, ok := v.s.namespaces[string(ns)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownNamespace, "%s is not open", ns)
	}
	return n.tree.GetImmutable(nsInfo.Version)
}

// KVReader returns a read-only view of ns at this version.
func (v *View) KVReader(ns Namespace) (KVReader, error) {
	if _, ok := v.info.namespace(string(ns)); !ok && (committedLayer{v.s}).hasNamespace(string(ns)) {
		// opened after this version was committed
		return emptyKV{}, nil
	}
	tree, err := v.tree(ns)
	if err != nil {
		return nil, err
	}
	return &immutableKV{tree: tree}, nil
}

func (v *View) Get(ns Namespace, key []byte) ([]byte, error) {
	tree, err := v.tree(ns)
	if err != nil {
		return nil, err
	}
	_, value := tree.Get(key)
	return value, nil
}

// GetWithProof returns the value of key and a proof chaining it (or its absence) to
// RootHash. The proof is nil for a namespace that is empty at this version.
func (v *View) GetWithProof(ns Namespace, key []byte) ([]byte, *merkle.Proof, error) {
	tree, err := v.tree(ns)
	if err != nil {
		return nil, nil, err
	}
	value, rangeProof, err := tree.GetWithProof(key)
	if err != nil {
		return nil, nil, err
	}
	if rangeProof == nil {
		return value, nil, nil
	}

	var op merkle.ProofOp
	if value != nil {
		op = iavl.NewIAVLValueOp(key, rangeProof).ProofOp()
	} else {
		op = iavl.NewIAVLAbsenceOp(key, rangeProof).ProofOp()
	}
	_, proofs, _ := merkle.SimpleProofsFromMap(v.info.hashMap())
	nsOp := merkle.NewSimpleValueOp([]byte(ns), proofs[string(ns)]).ProofOp()
	return value, &merkle.Proof{Ops: []merkle.ProofOp{op, nsOp}}, nil
}

type immutableKV struct {
	tree *iavl.ImmutableTree
}

var _ KVReader = (*immutableKV)(nil)

func (kv *immutableKV) Get(key []byte) []byte {
	_, value := kv.tree.Get(key)
	return value
}

func (kv *immutableKV) Has(key []byte) bool {
	return kv.tree.Has(key)
}

func (kv *immutableKV) Iterate(start, end []byte, fn func(key, value []byte) bool) {
	kv.tree.IterateRange(start, end, true, fn)
}

// KeyPath is the proof key path of key inside ns.
func KeyPath(ns Namespace, key []byte) string {
	return merkle.KeyPath{}.
		AppendKey([]byte(ns), merkle.KeyEncodingURL).
		AppendKey(key, merkle.KeyEncodingHex).
		String()
}

// DefaultProofRuntime decodes the proof operators GetWithProof produces.
func DefaultProofRuntime() *merkle.ProofRuntime {
	prt := merkle.NewProofRuntime()
	prt.RegisterOpDecoder(merkle.ProofOpSimpleValue, merkle.SimpleValueOpDecoder)
	prt.RegisterOpDecoder(iavl.ProofOpIAVLValue, iavl.IAVLValueOpDecoder)
	prt.RegisterOpDecoder(iavl.ProofOpIAVLAbsence, iavl.IAVLAbsenceOpDecoder)
	return prt
}

// VerifyValue checks that proof commits value under ns/key to root.
func VerifyValue(proof *merkle.Proof, root []byte, ns Namespace, key, value []byte) error {
	return DefaultProofRuntime().VerifyValue(proof, root, KeyPath(ns, key), value)
}

// VerifyAbsence checks that proof shows ns/key unset under root.
func VerifyAbsence(proof *merkle.Proof, root []byte, ns Namespace, key []byte) error {
	return DefaultProofRuntime().VerifyAbsence(proof, root, KeyPath(ns, key))
}

// Latest returns a reader of ns at the last committed version. Before the first commit
// every namespace reads as empty.
func (s *Store) Latest(ns Namespace) (KVReader, error) {
	if s.LastHeight() == 0 {
		if !(committedLayer{s}).hasNamespace(string(ns)) {
			return nil, errors.Wrap(ErrUnknownNamespace, string(ns))
		}
		return emptyKV{}, nil
	}
	view, err := s.View(0)
	if err != nil {
		return nil, err
	}
	return view.KVReader(ns)
}

type emptyKV struct{}

func (emptyKV) Get([]byte) []byte { return nil }

func (emptyKV) Has([]byte) bool { return false }

func (emptyKV) Iterate(_, _ []byte, _ func(key, value []byte) bool) {}
