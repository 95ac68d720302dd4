package index

import (
	"github.com/iDC-NEU/tinydb/btree"
	"github.com/iDC-NEU/tinydb/common"
	"github.com/iDC-NEU/tinydb/disk/structures"
	"github.com/iDC-NEU/tinydb/transaction"
)

// Index is the type erased surface every index implementation provides. Keys
// arrive as tuples in the key schema; values are rids and stay opaque.
type Index interface {
	InsertEntry(key *structures.Tuple, rid structures.Rid, ctx *transaction.Context) (bool, error)
	DeleteEntry(key *structures.Tuple, rid structures.Rid, ctx *transaction.Context) (bool, error)
	ScanKey(key *structures.Tuple, ctx *transaction.Context) ([]structures.Rid, error)

	GetMetadata() *Metadata
}

// BPlusTreeIndex projects key tuples into fixed width key buffers and
// forwards to a BPlusTree.
type BPlusTreeIndex struct {
	metadata *Metadata
	tree     *btree.BPlusTree
}

var _ Index = &BPlusTreeIndex{}

func (i *BPlusTreeIndex) GetMetadata() *Metadata {
	return i.metadata
}

// GetTree exposes the underlying tree, mainly so the root page id can be
// persisted.
func (i *BPlusTreeIndex) GetTree() *btree.BPlusTree {
	return i.tree
}

func (i *BPlusTreeIndex) InsertEntry(key *structures.Tuple, rid structures.Rid, ctx *transaction.Context) (bool, error) {
	buf, err := i.projectKey(key)
	if err != nil {
		return false, err
	}
	return i.tree.InsertEntry(buf, rid, ctx)
}

func (i *BPlusTreeIndex) DeleteEntry(key *structures.Tuple, rid structures.Rid, ctx *transaction.Context) (bool, error) {
	buf, err := i.projectKey(key)
	if err != nil {
		return false, err
	}
	return i.tree.DeleteEntry(buf, rid, ctx)
}

func (i *BPlusTreeIndex) ScanKey(key *structures.Tuple, ctx *transaction.Context) ([]structures.Rid, error) {
	buf, err := i.projectKey(key)
	if err != nil {
		return nil, err
	}
	return i.tree.ScanKey(buf, ctx)
}

// projectKey validates and serializes a key tuple into the tree's fixed key
// width. Indexes reject NULL key columns outright.
func (i *BPlusTreeIndex) projectKey(key *structures.Tuple) ([]byte, error) {
	schema := i.metadata.GetKeySchema()
	for c := 0; c < schema.GetColumnCount(); c++ {
		if key.IsNull(schema, c) {
			return nil, common.NewErrorf(common.LogicError, "NULL in key column %s", schema.GetColumn(c).Name)
		}
	}
	return btree.SerializeKey(key, i.tree.KeySize())
}
