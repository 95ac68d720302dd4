package btree

import (
	"github.com/iDC-NEU/tinydb/common"
	"github.com/iDC-NEU/tinydb/disk/pages"
	"github.com/iDC-NEU/tinydb/disk/structures"
)

// Iterator walks the leaf chain in ascending key order, holding a read latch
// on the current leaf only. Close releases it; forgetting to leaves a leaf
// latched forever.
type Iterator struct {
	tree *BPlusTree
	cur  *pages.RawPage
	idx  int
	err  error
}

// NewIterator positions at the smallest key. On an empty tree the iterator
// is immediately exhausted.
func (t *BPlusTree) NewIterator() (*Iterator, error) {
	return t.newIterator(nil)
}

// NewIteratorAt positions at the first slot whose key is not less than the
// given start key; the run may begin in a later leaf than the descent picks.
func (t *BPlusTree) NewIteratorAt(start []byte) (*Iterator, error) {
	return t.newIterator(start)
}

// newIterator read latches down to the leftmost leaf that can contain start,
// or to the leftmost leaf of the tree when start is nil.
func (t *BPlusTree) newIterator(start []byte) (*Iterator, error) {
	t.rootEntryLock.RLock()
	if t.rootPageId == common.InvalidPageID {
		t.rootEntryLock.RUnlock()
		return &Iterator{tree: t}, nil
	}

	cur, err := t.fetchPage(t.rootPageId)
	if err != nil {
		t.rootEntryLock.RUnlock()
		return nil, err
	}
	cur.RLatch()
	t.rootEntryLock.RUnlock()

	for !pages.HeaderOf(cur).IsLeafPage() {
		iv := asInternal(cur, t.keySize)
		idx := 0
		if start != nil {
			idx = iv.lookupFirst(start, t.cmp)
		}
		child, err := t.fetchPage(iv.childAt(idx))
		if err != nil {
			cur.RUnLatch()
			t.pool.UnpinPage(cur.GetPageId(), false)
			return nil, err
		}
		child.RLatch()
		cur.RUnLatch()
		t.pool.UnpinPage(cur.GetPageId(), false)
		cur = child
	}

	it := &Iterator{tree: t, cur: cur}
	if start != nil {
		lv := asLeaf(cur, t.keySize)
		it.idx, _ = lv.findKey(start, t.cmp)
		// everything in this leaf may still be below start; Next rolls over
		// into the chain from here
	}
	return it, nil
}

// Next returns the next key and rid. The key bytes are a copy and stay valid
// after the iterator moves on.
func (it *Iterator) Next() ([]byte, structures.Rid, bool) {
	for it.cur != nil {
		lv := asLeaf(it.cur, it.tree.keySize)
		if it.idx < lv.h.GetSize() {
			key := make([]byte, it.tree.keySize)
			copy(key, lv.keyAt(it.idx))
			rid := lv.ridAt(it.idx)
			it.idx++
			return key, rid, true
		}

		next := lv.next()
		it.release()
		it.idx = 0
		if next == common.InvalidPageID {
			break
		}

		np, err := it.tree.fetchPage(next)
		if err != nil {
			it.err = err
			break
		}
		np.RLatch()
		it.cur = np
	}
	return nil, structures.Rid{}, false
}

// Err reports a fetch failure that ended the iteration early.
func (it *Iterator) Err() error {
	return it.err
}

func (it *Iterator) Close() {
	it.release()
}

func (it *Iterator) release() {
	if it.cur != nil {
		it.cur.RUnLatch()
		it.tree.pool.UnpinPage(it.cur.GetPageId(), false)
		it.cur = nil
	}
}
