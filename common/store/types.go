package store

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// KVReader is a read-only view of one namespace.
type KVReader interface {
	Get(key []byte) []byte
	Has(key []byte) bool
	// Iterate visits keys in [start, end) in ascending order; nil bounds are open.
	Iterate(start, end []byte, fn func(key, value []byte) (stop bool))
}

// KVStore is a writable view of one namespace. Writes only ever reach a staging
// overlay.
type KVStore interface {
	KVReader
	Set(key, value []byte)
	Delete(key []byte)
}

// Namespace identifies a named sub-store.
type Namespace string

func (ns Namespace) String() string { return string(ns) }

// CommitID identifies a committed version.
type CommitID struct {
	Height int64
	Hash   []byte
}

func (id CommitID) IsZero() bool {
	return id.Height == 0 && len(id.Hash) == 0
}

func (id CommitID) String() string {
	return fmt.Sprintf("CommitID{%X:%d}", id.Hash, id.Height)
}

// NamespaceRoot is the Merkle sub-root of one namespace at some height.
type NamespaceRoot struct {
	Name string `json:"name"`
	Hash []byte `json:"hash"`
}

var (
	ErrNoActiveBlock      = errors.New("no block in progress")
	ErrBlockInProgress    = errors.New("block already in progress")
	ErrVersionNotFound    = errors.New("version not found")
	ErrUnknownNamespace   = errors.New("unknown namespace")
	ErrGenesisUnavailable = errors.New("genesis is only allowed before the first commit")
)

// ValidateNamespace rejects names that could alias another namespace's key prefix.
func ValidateNamespace(name string) error {
	if name == "" {
		return errors.New("empty namespace name")
	}
	if strings.ContainsAny(name, "/:") {
		return fmt.Errorf("namespace name %q must not contain '/' or ':'", name)
	}
	return nil
}

func assertValidKey(key []byte) {
	if len(key) == 0 {
		panic("key is nil or empty")
	}
}

func assertValidValue(value []byte) {
	if value == nil {
		panic("value is nil")
	}
}
