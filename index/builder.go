package index

import (
	"github.com/iDC-NEU/tinydb/btree"
	"github.com/iDC-NEU/tinydb/buffer"
	"github.com/iDC-NEU/tinydb/common"
	"github.com/iDC-NEU/tinydb/disk/wal"
)

// Build constructs the index described by metadata on top of the given
// buffer pool. The b+tree specialization is picked by the key schema's byte
// width; widths beyond 64 bytes are NotImplemented.
//
// rootPageId carries the persisted root of an existing index, or
// common.InvalidPageID for a fresh one.
func Build(metadata *Metadata, pool *buffer.PoolManager, logManager wal.LogManager, rootPageId uint32, opts btree.Options) (Index, error) {
	switch metadata.GetIndexType() {
	case BPlusTreeType:
		keySize, err := btree.KeySizeFor(metadata.GetKeySchema())
		if err != nil {
			return nil, err
		}

		opts.Unique = metadata.IsUnique()
		tree, err := btree.LoadBPlusTree(rootPageId, keySize, btree.NewComparator(metadata.GetKeySchema()), pool, logManager, opts)
		if err != nil {
			return nil, err
		}
		return &BPlusTreeIndex{metadata: metadata, tree: tree}, nil
	default:
		return nil, common.NewErrorf(common.NotImplemented, "index type %d is not implemented", metadata.GetIndexType())
	}
}
