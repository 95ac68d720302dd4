package btree

import (
	"sync"

	"github.com/iDC-NEU/tinydb/buffer"
	"github.com/iDC-NEU/tinydb/common"
	"github.com/iDC-NEU/tinydb/disk/pages"
	"github.com/iDC-NEU/tinydb/disk/structures"
	"github.com/iDC-NEU/tinydb/disk/wal"
	"github.com/iDC-NEU/tinydb/transaction"
	"go.uber.org/zap"
)

type TraverseMode int

const (
	Read TraverseMode = iota
	Insert
	Delete
)

// Options tune a tree. Zero max sizes mean "as many slots as fit in a page";
// tests shrink them to force splits early.
type Options struct {
	LeafMaxSize     int
	InternalMaxSize int

	// Unique rejects a second insert of an existing key.
	Unique bool

	Logger *zap.Logger
}

// BPlusTree is an ordered map from fixed width keys to rids, stored in pages
// obtained from the buffer pool. Concurrent operations follow the crabbing
// discipline: a descent holds the latch of a child before giving up the
// parent's, and write descents give up ancestors as soon as the current node
// cannot split or merge anymore.
type BPlusTree struct {
	pool       *buffer.PoolManager
	logManager wal.LogManager
	cmp        Comparator
	keySize    int

	leafMaxSize     int
	internalMaxSize int
	unique          bool

	rootPageId uint32

	// rootEntryLock guards rootPageId itself. It sits above every page latch
	// and plays the parent's role for the root page during a crab. Reads can
	// share it because a read descent never moves the root.
	rootEntryLock sync.RWMutex

	logger *zap.Logger
}

// NewBPlusTree creates an empty tree.
func NewBPlusTree(keySize int, cmp Comparator, pool *buffer.PoolManager, logManager wal.LogManager, opts Options) (*BPlusTree, error) {
	return LoadBPlusTree(common.InvalidPageID, keySize, cmp, pool, logManager, opts)
}

// LoadBPlusTree constructs a tree over an existing root page, typically after
// reopening the database file.
func LoadBPlusTree(rootPageId uint32, keySize int, cmp Comparator, pool *buffer.PoolManager, logManager wal.LogManager, opts Options) (*BPlusTree, error) {
	supported := false
	for _, w := range KeySizes {
		if keySize == w {
			supported = true
		}
	}
	if !supported {
		return nil, common.NewErrorf(common.NotImplemented, "key size %d is not supported", keySize)
	}

	if opts.LeafMaxSize == 0 {
		opts.LeafMaxSize = LeafSlotCapacity(keySize)
	}
	if opts.InternalMaxSize == 0 {
		opts.InternalMaxSize = InternalSlotCapacity(keySize)
	}
	if opts.LeafMaxSize < 2 || opts.LeafMaxSize > LeafSlotCapacity(keySize) {
		return nil, common.NewErrorf(common.OutOfRange, "leaf max size %d does not fit a page", opts.LeafMaxSize)
	}
	if opts.InternalMaxSize < 3 || opts.InternalMaxSize > InternalSlotCapacity(keySize) {
		return nil, common.NewErrorf(common.OutOfRange, "internal max size %d does not fit a page", opts.InternalMaxSize)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if logManager == nil {
		logManager = wal.NoopLM
	}

	return &BPlusTree{
		pool:            pool,
		logManager:      logManager,
		cmp:             cmp,
		keySize:         keySize,
		leafMaxSize:     opts.LeafMaxSize,
		internalMaxSize: opts.InternalMaxSize,
		unique:          opts.Unique,
		rootPageId:      rootPageId,
		logger:          opts.Logger,
	}, nil
}

// GetRootPageId returns the current root, InvalidPageID when the tree is
// empty. Persist it to reopen the tree later.
func (t *BPlusTree) GetRootPageId() uint32 {
	t.rootEntryLock.RLock()
	defer t.rootEntryLock.RUnlock()
	return t.rootPageId
}

func (t *BPlusTree) KeySize() int {
	return t.keySize
}

// opState is the per-operation bookkeeping next to the caller's execution
// context: which latched pages were modified, which fresh pages are not yet
// linked into the structure, and whether the root entry lock is still held.
type opState struct {
	ctx        *transaction.Context
	dirty      map[uint32]bool
	unlinked   []uint32
	rootLocked bool
}

func newOpState(ctx *transaction.Context) *opState {
	return &opState{ctx: ctx, dirty: map[uint32]bool{}}
}

func (o *opState) linked(pageId uint32) {
	for i, pid := range o.unlinked {
		if pid == pageId {
			o.unlinked = append(o.unlinked[:i], o.unlinked[i+1:]...)
			return
		}
	}
}

func (o *opState) findLatched(pageId uint32) *pages.RawPage {
	latched := o.ctx.Latched()
	for i := len(latched) - 1; i >= 0; i-- {
		if latched[i].GetPageId() == pageId {
			return latched[i]
		}
	}
	panic("crab invariant broken: needed ancestor is not latched")
}

// InsertEntry inserts (key, rid). In a unique tree inserting an existing key
// returns false without touching the structure.
func (t *BPlusTree) InsertEntry(key []byte, rid structures.Rid, ctx *transaction.Context) (bool, error) {
	o := newOpState(ctx)
	t.rootEntryLock.Lock()
	o.rootLocked = true

	if t.rootPageId == common.InvalidPageID {
		page, err := t.newPage()
		if err != nil {
			return false, t.abort(o, err)
		}
		page.WLatch()
		o.ctx.AddLatched(page)

		leaf := initLeaf(page, t.keySize, t.leafMaxSize)
		leaf.insertAt(0, key, rid)
		t.stamp(o, page)
		t.rootPageId = page.GetPageId()
		t.finish(o)
		return true, nil
	}

	leaf, err := t.descendWrite(key, Insert, false, o)
	if err != nil {
		return false, t.abort(o, err)
	}

	if t.unique {
		if _, found := leaf.findKey(key, t.cmp); found {
			t.finish(o)
			return false, nil
		}
	}

	leaf.insertAt(leaf.upperBound(key, t.cmp), key, rid)
	t.stamp(o, leaf.page)

	if leaf.h.GetSize() > leaf.h.GetMaxSize() {
		if err := t.splitLeaf(leaf, o); err != nil {
			return false, t.abort(o, err)
		}
	}

	t.finish(o)
	return true, nil
}

// DeleteEntry removes the slot matching both key and rid, so duplicates can
// be deleted selectively. Returns false when no such slot exists.
func (t *BPlusTree) DeleteEntry(key []byte, rid structures.Rid, ctx *transaction.Context) (bool, error) {
	return t.deleteEntry(key, rid, ctx, false)
}

func (t *BPlusTree) deleteEntry(key []byte, rid structures.Rid, ctx *transaction.Context, biasRight bool) (bool, error) {
	o := newOpState(ctx)
	t.rootEntryLock.Lock()
	o.rootLocked = true

	if t.rootPageId == common.InvalidPageID {
		t.finish(o)
		return false, nil
	}

	leaf, err := t.descendWrite(key, Delete, biasRight, o)
	if err != nil {
		return false, t.abort(o, err)
	}

	i, _ := leaf.findKey(key, t.cmp)
	idx := -1
	for ; i < leaf.h.GetSize(); i++ {
		if t.cmp.Compare(leaf.keyAt(i), key) != 0 {
			break
		}
		if leaf.ridAt(i) == rid {
			idx = i
			break
		}
	}

	if idx < 0 {
		// a duplicate run can continue past the leaf the descent picked; one
		// more descent biased to the run's tail covers runs spanning a leaf
		// boundary
		retry := !biasRight && i == leaf.h.GetSize() && leaf.next() != common.InvalidPageID
		t.finish(o)
		if retry {
			return t.deleteEntry(key, rid, ctx, true)
		}
		return false, nil
	}

	leaf.removeAt(idx)
	t.stamp(o, leaf.page)

	if leaf.h.IsRootPage() {
		if leaf.h.GetSize() == 0 {
			o.ctx.AddDeleted(leaf.pid())
			t.rootPageId = common.InvalidPageID
		}
		t.finish(o)
		return true, nil
	}

	if leaf.h.GetSize() < leaf.h.GetMinSize() {
		if err := t.coalesceOrRedistribute(leaf.nodeView, o); err != nil {
			return false, t.abort(o, err)
		}
	}

	t.finish(o)
	return true, nil
}

// ScanKey returns every rid stored under key, in insertion order for
// duplicates. The scan read latches its way down and then right through the
// leaf chain.
func (t *BPlusTree) ScanKey(key []byte, ctx *transaction.Context) ([]structures.Rid, error) {
	t.rootEntryLock.RLock()
	if t.rootPageId == common.InvalidPageID {
		t.rootEntryLock.RUnlock()
		return nil, nil
	}

	cur, err := t.fetchPage(t.rootPageId)
	if err != nil {
		t.rootEntryLock.RUnlock()
		return nil, err
	}
	cur.RLatch()
	t.rootEntryLock.RUnlock()

	release := func(p *pages.RawPage) {
		p.RUnLatch()
		t.pool.UnpinPage(p.GetPageId(), false)
	}

	for !pages.HeaderOf(cur).IsLeafPage() {
		iv := asInternal(cur, t.keySize)
		child, err := t.fetchPage(iv.childAt(iv.lookupFirst(key, t.cmp)))
		if err != nil {
			release(cur)
			return nil, err
		}
		child.RLatch()
		release(cur)
		cur = child
	}

	var res []structures.Rid
	lv := asLeaf(cur, t.keySize)
	i, _ := lv.findKey(key, t.cmp)
	for {
		size := lv.h.GetSize()
		for ; i < size; i++ {
			c := t.cmp.Compare(lv.keyAt(i), key)
			if c > 0 {
				release(cur)
				return res, nil
			}
			if c == 0 {
				res = append(res, lv.ridAt(i))
			}
		}

		next := lv.next()
		if next == common.InvalidPageID {
			release(cur)
			return res, nil
		}
		np, err := t.fetchPage(next)
		if err != nil {
			release(cur)
			return res, err
		}
		np.RLatch()
		release(cur)
		cur = np
		lv = asLeaf(cur, t.keySize)
		i = 0
	}
}

// descendWrite write latches from the root down to the target leaf,
// releasing ancestors as soon as the freshly latched child is safe for the
// operation. On return the execution context holds the chain of unsafe
// ancestors ending at the leaf.
func (t *BPlusTree) descendWrite(key []byte, mode TraverseMode, biasRight bool, o *opState) (leafView, error) {
	cur, err := t.fetchPage(t.rootPageId)
	if err != nil {
		return leafView{}, err
	}
	cur.WLatch()
	o.ctx.AddLatched(cur)

	for {
		h := pages.HeaderOf(cur)
		if h.IsLeafPage() {
			return asLeaf(cur, t.keySize), nil
		}

		iv := asInternal(cur, t.keySize)
		var idx int
		if biasRight || mode == Insert {
			idx = iv.lookup(key, t.cmp)
		} else {
			idx = iv.lookupFirst(key, t.cmp)
		}

		child, err := t.fetchPage(iv.childAt(idx))
		if err != nil {
			return leafView{}, err
		}
		child.WLatch()
		o.ctx.AddLatched(child)

		ch := pages.HeaderOf(child)
		var safe bool
		if mode == Insert {
			safe = ch.GetSize() < ch.GetMaxSize()
		} else {
			safe = ch.GetSize() > ch.GetMinSize()
		}
		if safe {
			o.ctx.ReleaseAncestors(1, func(p *pages.RawPage) {
				t.pool.UnpinPage(p.GetPageId(), o.dirty[p.GetPageId()])
			})
			if o.rootLocked {
				t.rootEntryLock.Unlock()
				o.rootLocked = false
			}
		}

		cur = child
	}
}

// splitLeaf moves the upper half of an overflowing leaf into a fresh right
// sibling, links it into the chain and pushes the separator up.
func (t *BPlusTree) splitLeaf(leaf leafView, o *opState) error {
	page, err := t.newPage()
	if err != nil {
		return err
	}
	page.WLatch()
	o.ctx.AddLatched(page)
	o.unlinked = append(o.unlinked, page.GetPageId())

	right := initLeaf(page, t.keySize, t.leafMaxSize)

	size := leaf.h.GetSize()
	mid := size / 2
	moved := size - mid
	copy(page.GetData()[right.slotOffset(0):right.slotOffset(moved)],
		leaf.page.GetData()[leaf.slotOffset(mid):leaf.slotOffset(size)])
	right.h.SetSize(moved)
	leaf.h.SetSize(mid)

	right.setNext(leaf.next())
	leaf.setNext(right.pid())
	right.h.SetParentPageId(leaf.h.GetParentPageId())

	t.stamp(o, leaf.page)
	t.stamp(o, page)

	sep := make([]byte, t.keySize)
	copy(sep, right.keyAt(0))

	t.logger.Debug("leaf split",
		zap.Uint32("left", leaf.pid()), zap.Uint32("right", right.pid()))
	return t.insertIntoParent(leaf.nodeView, sep, right.nodeView, o)
}

// insertIntoParent records a freshly split off right node under the parent of
// left, growing the tree by a level when left was the root.
func (t *BPlusTree) insertIntoParent(left nodeView, sep []byte, right nodeView, o *opState) error {
	if left.h.IsRootPage() {
		page, err := t.newPage()
		if err != nil {
			return err
		}
		page.WLatch()
		o.ctx.AddLatched(page)

		root := initInternal(page, t.keySize, t.internalMaxSize, left.pid())
		root.insertAt(1, sep, right.pid())
		left.h.SetParentPageId(root.pid())
		right.h.SetParentPageId(root.pid())

		t.stamp(o, left.page)
		t.stamp(o, right.page)
		t.stamp(o, page)

		t.rootPageId = root.pid()
		o.linked(right.pid())

		t.logger.Debug("new root", zap.Uint32("root", root.pid()))
		return nil
	}

	parent := asInternal(o.findLatched(left.h.GetParentPageId()), t.keySize)
	idx := parent.childIndex(left.pid())
	parent.insertAt(idx+1, sep, right.pid())
	right.h.SetParentPageId(parent.pid())
	t.stamp(o, right.page)
	t.stamp(o, parent.page)
	o.linked(right.pid())

	if parent.h.GetSize() > parent.h.GetMaxSize() {
		return t.splitInternal(parent, o)
	}
	return nil
}

// splitInternal lifts the middle key into the parent; it ends up in neither
// half.
func (t *BPlusTree) splitInternal(n internalView, o *opState) error {
	page, err := t.newPage()
	if err != nil {
		return err
	}
	page.WLatch()
	o.ctx.AddLatched(page)
	o.unlinked = append(o.unlinked, page.GetPageId())

	size := n.h.GetSize()
	mid := size / 2

	lifted := make([]byte, t.keySize)
	copy(lifted, n.keyAt(mid))

	right := initInternal(page, t.keySize, t.internalMaxSize, n.childAt(mid))
	moved := size - mid
	copy(page.GetData()[right.slotOffset(1):right.slotOffset(moved)],
		n.page.GetData()[n.slotOffset(mid+1):n.slotOffset(size)])
	right.h.SetSize(moved)
	n.h.SetSize(mid)
	right.h.SetParentPageId(n.h.GetParentPageId())

	if err := t.reparentChildren(right, 0, moved, o); err != nil {
		return err
	}

	t.stamp(o, n.page)
	t.stamp(o, page)

	t.logger.Debug("internal split",
		zap.Uint32("left", n.pid()), zap.Uint32("right", right.pid()))
	return t.insertIntoParent(n.nodeView, lifted, right.nodeView, o)
}

// reparentChildren rewrites the parent pointer of children [from, to) of n.
// The children are pinned one by one; they are not latched, their parent
// pointer belongs to the latched parent.
func (t *BPlusTree) reparentChildren(n internalView, from, to int, o *opState) error {
	for i := from; i < to; i++ {
		child, err := t.fetchPage(n.childAt(i))
		if err != nil {
			return err
		}
		pages.HeaderOf(child).SetParentPageId(n.pid())
		t.pool.UnpinPage(child.GetPageId(), true)
	}
	return nil
}

// coalesceOrRedistribute fixes an underflowing non root node by borrowing
// from a sibling with spare slots, or merging when both neighbors sit at
// their minimum.
func (t *BPlusTree) coalesceOrRedistribute(cur nodeView, o *opState) error {
	parent := asInternal(o.findLatched(cur.h.GetParentPageId()), t.keySize)
	idx := parent.childIndex(cur.pid())

	var left, right *pages.RawPage
	var err error
	if idx > 0 {
		if left, err = t.fetchPage(parent.childAt(idx - 1)); err != nil {
			return err
		}
		left.WLatch()
	}
	if idx+1 < parent.h.GetSize() {
		if right, err = t.fetchPage(parent.childAt(idx + 1)); err != nil {
			if left != nil {
				left.WUnlatch()
				t.pool.UnpinPage(left.GetPageId(), false)
			}
			return err
		}
		right.WLatch()
	}

	releaseSibling := func(p *pages.RawPage, dirty bool) {
		if p != nil {
			p.WUnlatch()
			t.pool.UnpinPage(p.GetPageId(), dirty)
		}
	}

	if right != nil {
		rh := pages.HeaderOf(right)
		if rh.GetSize() > rh.GetMinSize() {
			err := t.redistribute(cur, viewOf(right, t.keySize), parent, idx, true, o)
			releaseSibling(left, false)
			releaseSibling(right, true)
			return err
		}
	}
	if left != nil {
		lh := pages.HeaderOf(left)
		if lh.GetSize() > lh.GetMinSize() {
			err := t.redistribute(cur, viewOf(left, t.keySize), parent, idx, false, o)
			releaseSibling(left, true)
			releaseSibling(right, false)
			return err
		}
	}

	// merge; the left node of the pair survives
	var survivor nodeView
	if left != nil {
		lv := viewOf(left, t.keySize)
		if err := t.merge(lv, cur, parent, idx, o); err != nil {
			releaseSibling(left, true)
			releaseSibling(right, false)
			return err
		}
		survivor = lv
		o.ctx.AddDeleted(cur.pid())
	} else {
		rv := viewOf(right, t.keySize)
		if err := t.merge(cur, rv, parent, idx+1, o); err != nil {
			releaseSibling(right, true)
			return err
		}
		survivor = cur
		o.ctx.AddDeleted(rv.pid())
	}

	if parent.h.IsRootPage() && parent.h.GetSize() == 1 {
		// the root drained down to a single child; promote it
		survivor.h.SetParentPageId(common.InvalidPageID)
		t.stamp(o, survivor.page)
		o.ctx.AddDeleted(parent.pid())
		t.rootPageId = survivor.pid()
		t.logger.Debug("root demoted", zap.Uint32("newRoot", survivor.pid()))
	}

	releaseSibling(left, true)
	releaseSibling(right, false)

	if !parent.h.IsRootPage() && parent.h.GetSize() < parent.h.GetMinSize() {
		return t.coalesceOrRedistribute(parent.nodeView, o)
	}
	return nil
}

// redistribute moves one slot from a sibling with spare capacity into cur
// and rewrites the separator between them.
func (t *BPlusTree) redistribute(cur nodeView, sibling nodeView, parent internalView, idx int, fromRight bool, o *opState) error {
	if cur.isLeaf() {
		cl := leafView{cur}
		sl := leafView{sibling}
		if fromRight {
			cl.insertAt(cl.h.GetSize(), sl.keyAt(0), sl.ridAt(0))
			sl.removeAt(0)
			parent.setKeyAt(idx+1, sl.keyAt(0))
		} else {
			last := sl.h.GetSize() - 1
			cl.insertAt(0, sl.keyAt(last), sl.ridAt(last))
			sl.h.IncreaseSize(-1)
			parent.setKeyAt(idx, cl.keyAt(0))
		}
	} else {
		ci := internalView{cur}
		si := internalView{sibling}
		if fromRight {
			// the separator comes down, the sibling's first key goes up
			moved := si.childAt(0)
			ci.insertAt(ci.h.GetSize(), parent.keyAt(idx+1), moved)
			parent.setKeyAt(idx+1, si.keyAt(1))
			si.removeAt(0)
			if err := t.reparentChildren(ci, ci.h.GetSize()-1, ci.h.GetSize(), o); err != nil {
				return err
			}
		} else {
			last := si.h.GetSize() - 1
			moved := si.childAt(last)
			ci.insertAt(0, nil, moved)
			ci.setKeyAt(1, parent.keyAt(idx))
			parent.setKeyAt(idx, si.keyAt(last))
			si.h.IncreaseSize(-1)
			if err := t.reparentChildren(ci, 0, 1, o); err != nil {
				return err
			}
		}
	}

	t.stamp(o, cur.page)
	t.stamp(o, sibling.page)
	t.stamp(o, parent.page)
	return nil
}

// merge empties right into left and drops right's separator from the parent.
// The caller deallocates right and rebalances the parent.
func (t *BPlusTree) merge(left nodeView, right nodeView, parent internalView, sepIdx int, o *opState) error {
	if left.isLeaf() {
		ll := leafView{left}
		rl := leafView{right}
		lsize, rsize := ll.h.GetSize(), rl.h.GetSize()
		copy(ll.page.GetData()[ll.slotOffset(lsize):ll.slotOffset(lsize+rsize)],
			rl.page.GetData()[rl.slotOffset(0):rl.slotOffset(rsize)])
		ll.h.SetSize(lsize + rsize)
		ll.setNext(rl.next())
	} else {
		li := internalView{left}
		ri := internalView{right}
		lsize, rsize := li.h.GetSize(), ri.h.GetSize()
		copy(li.page.GetData()[li.slotOffset(lsize):li.slotOffset(lsize+rsize)],
			ri.page.GetData()[ri.slotOffset(0):ri.slotOffset(rsize)])
		// the separator comes down as the glue key
		li.setKeyAt(lsize, parent.keyAt(sepIdx))
		li.h.SetSize(lsize + rsize)
		if err := t.reparentChildren(li, lsize, lsize+rsize, o); err != nil {
			return err
		}
	}

	parent.removeAt(sepIdx)
	t.stamp(o, left.page)
	t.stamp(o, parent.page)

	t.logger.Debug("merge",
		zap.Uint32("survivor", left.pid()), zap.Uint32("victim", right.pid()))
	return nil
}

// fetchPage pins a tree page, mapping pool exhaustion onto OutOfMemory.
func (t *BPlusTree) fetchPage(pageId uint32) (*pages.RawPage, error) {
	page, err := t.pool.FetchPage(pageId, true)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, common.NewError(common.OutOfMemory, "buffer pool is exhausted")
	}
	return page, nil
}

func (t *BPlusTree) newPage() (*pages.RawPage, error) {
	page, err := t.pool.NewPage()
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, common.NewError(common.OutOfMemory, "buffer pool is exhausted")
	}
	return page, nil
}

// stamp appends a page update record to the log and writes the fresh lsn
// into the page header, so a later flush of the page forces the log first.
func (t *BPlusTree) stamp(o *opState, page *pages.RawPage) {
	lsn := t.logManager.AppendLog(wal.NewPageUpdateLogRecord(o.ctx.GetID(), page.GetPageId()))
	pages.HeaderOf(page).SetLSN(lsn)
	o.dirty[page.GetPageId()] = true
}

// finish releases every latch and pin and hands unlinked page ids back to
// the disk manager.
func (t *BPlusTree) finish(o *opState) {
	o.ctx.ReleaseAll(func(p *pages.RawPage) {
		t.pool.UnpinPage(p.GetPageId(), o.dirty[p.GetPageId()])
	})
	if o.rootLocked {
		t.rootEntryLock.Unlock()
		o.rootLocked = false
	}
	for _, pid := range o.ctx.Deleted() {
		t.pool.DeletePage(pid)
	}
	o.ctx.ClearDeleted()
}

// abort is finish plus the return of pages that were allocated but never
// linked into the tree.
func (t *BPlusTree) abort(o *opState, err error) error {
	t.finish(o)
	for _, pid := range o.unlinked {
		t.pool.DeletePage(pid)
	}
	o.unlinked = nil
	return err
}
