package btree

import (
	"encoding/binary"
	"sort"

	"github.com/iDC-NEU/tinydb/common"
	"github.com/iDC-NEU/tinydb/disk/pages"
	"github.com/iDC-NEU/tinydb/disk/structures"
)

// The two b+tree page kinds are tagged views over the raw page bytes. A view
// never owns memory: every accessor reads or writes in place, under the
// page's latch which the tree holds while the view is alive.
//
// Leaf payload after the 24 byte header:
//
//	| NextPageId(4) | key(W) rid(8) | key(W) rid(8) | ...
//
// Internal payload after the header:
//
//	| key(W) child(4) | key(W) child(4) | ...
//
// where slot 0's key bytes are unused. Keys in slots 1..size-1 partition the
// children: every key under child i-1 is less than slot i's key, which is
// less than or equal to every key under child i.

const leafNextOffset = pages.HeaderSize
const leafSlotsOffset = pages.HeaderSize + 4
const internalSlotsOffset = pages.HeaderSize

// LeafSlotCapacity returns how many key-rid slots fit in a leaf page holding
// keys of the given width. One slot is held back so a full leaf can accept
// the overflowing insert before it splits.
func LeafSlotCapacity(keySize int) int {
	return (common.PageSize-leafSlotsOffset)/(keySize+structures.RidSize) - 1
}

// InternalSlotCapacity is the child capacity of an internal page, with the
// same one slot reserve.
func InternalSlotCapacity(keySize int) int {
	return (common.PageSize-internalSlotsOffset)/(keySize+4) - 1
}

type nodeView struct {
	page    *pages.RawPage
	h       pages.Header
	keySize int
}

func viewOf(page *pages.RawPage, keySize int) nodeView {
	return nodeView{page: page, h: pages.HeaderOf(page), keySize: keySize}
}

func (n nodeView) pid() uint32 {
	return n.page.GetPageId()
}

func (n nodeView) isLeaf() bool {
	return n.h.IsLeafPage()
}

type leafView struct {
	nodeView
}

type internalView struct {
	nodeView
}

func asLeaf(page *pages.RawPage, keySize int) leafView {
	return leafView{viewOf(page, keySize)}
}

func asInternal(page *pages.RawPage, keySize int) internalView {
	return internalView{viewOf(page, keySize)}
}

// initLeaf stamps a fresh page as an empty leaf.
func initLeaf(page *pages.RawPage, keySize, maxSize int) leafView {
	h := pages.HeaderOf(page)
	h.SetPageId(page.GetPageId())
	h.SetLSN(pages.ZeroLSN)
	h.SetSize(0)
	h.SetMaxSize(maxSize)
	h.SetParentPageId(common.InvalidPageID)
	h.SetPageType(pages.TypeLeaf)

	l := asLeaf(page, keySize)
	l.setNext(common.InvalidPageID)
	return l
}

// initInternal stamps a fresh page as an internal node with a single child.
func initInternal(page *pages.RawPage, keySize, maxSize int, firstChild uint32) internalView {
	h := pages.HeaderOf(page)
	h.SetPageId(page.GetPageId())
	h.SetLSN(pages.ZeroLSN)
	h.SetSize(1)
	h.SetMaxSize(maxSize)
	h.SetParentPageId(common.InvalidPageID)
	h.SetPageType(pages.TypeInternal)

	n := asInternal(page, keySize)
	n.setChildAt(0, firstChild)
	return n
}

// leaf accessors

func (l leafView) slotSize() int {
	return l.keySize + structures.RidSize
}

func (l leafView) slotOffset(i int) int {
	return leafSlotsOffset + i*l.slotSize()
}

func (l leafView) next() uint32 {
	return binary.LittleEndian.Uint32(l.page.GetData()[leafNextOffset:])
}

func (l leafView) setNext(pid uint32) {
	binary.LittleEndian.PutUint32(l.page.GetData()[leafNextOffset:], pid)
}

func (l leafView) keyAt(i int) []byte {
	off := l.slotOffset(i)
	return l.page.GetData()[off : off+l.keySize]
}

func (l leafView) ridAt(i int) structures.Rid {
	return structures.ReadRid(l.page.GetData()[l.slotOffset(i)+l.keySize:])
}

func (l leafView) setAt(i int, key []byte, rid structures.Rid) {
	off := l.slotOffset(i)
	copy(l.page.GetData()[off:off+l.keySize], key)
	rid.Serialize(l.page.GetData()[off+l.keySize:])
}

// insertAt shifts slots i.. one to the right and writes the new pair.
func (l leafView) insertAt(i int, key []byte, rid structures.Rid) {
	size := l.h.GetSize()
	data := l.page.GetData()
	copy(data[l.slotOffset(i+1):l.slotOffset(size+1)], data[l.slotOffset(i):l.slotOffset(size)])
	l.setAt(i, key, rid)
	l.h.IncreaseSize(1)
}

// removeAt shifts slots i+1.. one to the left.
func (l leafView) removeAt(i int) {
	size := l.h.GetSize()
	data := l.page.GetData()
	copy(data[l.slotOffset(i):l.slotOffset(size-1)], data[l.slotOffset(i+1):l.slotOffset(size)])
	l.h.IncreaseSize(-1)
}

// findKey returns the first slot holding a key not less than the given one,
// and whether that slot's key is equal.
func (l leafView) findKey(key []byte, cmp Comparator) (int, bool) {
	size := l.h.GetSize()
	i := sort.Search(size, func(i int) bool {
		return cmp.Compare(l.keyAt(i), key) >= 0
	})
	if i < size && cmp.Compare(l.keyAt(i), key) == 0 {
		return i, true
	}
	return i, false
}

// upperBound returns the first slot holding a key greater than the given one.
// Inserting there keeps equal keys in arrival order.
func (l leafView) upperBound(key []byte, cmp Comparator) int {
	size := l.h.GetSize()
	return sort.Search(size, func(i int) bool {
		return cmp.Compare(l.keyAt(i), key) > 0
	})
}

// internal accessors

func (n internalView) slotSize() int {
	return n.keySize + 4
}

func (n internalView) slotOffset(i int) int {
	return internalSlotsOffset + i*n.slotSize()
}

func (n internalView) keyAt(i int) []byte {
	off := n.slotOffset(i)
	return n.page.GetData()[off : off+n.keySize]
}

func (n internalView) setKeyAt(i int, key []byte) {
	off := n.slotOffset(i)
	copy(n.page.GetData()[off:off+n.keySize], key)
}

func (n internalView) childAt(i int) uint32 {
	return binary.LittleEndian.Uint32(n.page.GetData()[n.slotOffset(i)+n.keySize:])
}

func (n internalView) setChildAt(i int, pid uint32) {
	binary.LittleEndian.PutUint32(n.page.GetData()[n.slotOffset(i)+n.keySize:], pid)
}

func (n internalView) setAt(i int, key []byte, child uint32) {
	n.setKeyAt(i, key)
	n.setChildAt(i, child)
}

func (n internalView) insertAt(i int, key []byte, child uint32) {
	size := n.h.GetSize()
	data := n.page.GetData()
	copy(data[n.slotOffset(i+1):n.slotOffset(size+1)], data[n.slotOffset(i):n.slotOffset(size)])
	n.setAt(i, key, child)
	n.h.IncreaseSize(1)
}

func (n internalView) removeAt(i int) {
	size := n.h.GetSize()
	data := n.page.GetData()
	copy(data[n.slotOffset(i):n.slotOffset(size-1)], data[n.slotOffset(i+1):n.slotOffset(size)])
	n.h.IncreaseSize(-1)
}

// childIndex locates the slot pointing at the given child page.
func (n internalView) childIndex(pid uint32) int {
	size := n.h.GetSize()
	for i := 0; i < size; i++ {
		if n.childAt(i) == pid {
			return i
		}
	}
	panic("child is not listed in its parent")
}

// lookup returns the child to descend into for the given key. Equal
// separators send the search right, which is where inserts of duplicates
// belong.
func (n internalView) lookup(key []byte, cmp Comparator) int {
	size := n.h.GetSize()
	return sort.Search(size-1, func(i int) bool {
		return cmp.Compare(n.keyAt(i+1), key) > 0
	})
}

// lookupFirst returns the leftmost child that can contain the key. Scans over
// duplicate runs start here.
func (n internalView) lookupFirst(key []byte, cmp Comparator) int {
	size := n.h.GetSize()
	return sort.Search(size-1, func(i int) bool {
		return cmp.Compare(n.keyAt(i+1), key) >= 0
	})
}
