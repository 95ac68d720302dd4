package pages

import (
	"encoding/binary"

	"github.com/iDC-NEU/tinydb/common"
)

// PageType tags the content of a page.
type PageType uint32

const (
	TypeInvalid  PageType = 0
	TypeLeaf     PageType = 1
	TypeInternal PageType = 2
)

// HeaderSize is the length of the fixed page prefix.
//
// Header format, all fields little endian:
// ----------------------------------------------------
// | PageId(4) | LSN(4) | CurrentSize(4) | MaxSize(4) |
// ----------------------------------------------------
// | ParentPageId(4) | PageType(4) |
// ---------------------------------
//
// Payload begins at offset HeaderSize.
const HeaderSize = 24

const (
	offPageID   = 0
	offLSN      = 4
	offSize     = 8
	offMaxSize  = 12
	offParentID = 16
	offPageType = 20
)

// Header is a typed view over the fixed prefix of a page's bytes. It never
// copies; every accessor encodes or decodes in place.
type Header struct {
	data []byte
}

func HeaderOf(page IPage) Header {
	return Header{data: page.GetData()}
}

func HeaderOfData(data []byte) Header {
	return Header{data: data}
}

func (h Header) GetPageId() uint32 {
	return binary.LittleEndian.Uint32(h.data[offPageID:])
}

func (h Header) SetPageId(pid uint32) {
	binary.LittleEndian.PutUint32(h.data[offPageID:], pid)
}

func (h Header) GetLSN() LSN {
	return ReadLSN(h.data[offLSN:])
}

func (h Header) SetLSN(l LSN) {
	PutLSN(h.data[offLSN:], l)
}

// GetSize returns the number of slots stored in the page. For an internal
// b+tree page this counts children, for a leaf it counts key-rid pairs.
func (h Header) GetSize() int {
	return int(binary.LittleEndian.Uint32(h.data[offSize:]))
}

func (h Header) SetSize(size int) {
	binary.LittleEndian.PutUint32(h.data[offSize:], uint32(size))
}

func (h Header) IncreaseSize(amount int) {
	h.SetSize(h.GetSize() + amount)
}

func (h Header) GetMaxSize() int {
	return int(binary.LittleEndian.Uint32(h.data[offMaxSize:]))
}

func (h Header) SetMaxSize(size int) {
	binary.LittleEndian.PutUint32(h.data[offMaxSize:], uint32(size))
}

// GetMinSize is the occupancy floor for non root pages. A page whose size
// drops below this triggers redistribution or a merge. Rounding up keeps both
// halves of a split legal and makes a three slot leaf rebalance after losing
// its second entry.
func (h Header) GetMinSize() int {
	return (h.GetMaxSize() + 1) / 2
}

func (h Header) GetParentPageId() uint32 {
	return binary.LittleEndian.Uint32(h.data[offParentID:])
}

func (h Header) SetParentPageId(pid uint32) {
	binary.LittleEndian.PutUint32(h.data[offParentID:], pid)
}

func (h Header) GetPageType() PageType {
	return PageType(binary.LittleEndian.Uint32(h.data[offPageType:]))
}

func (h Header) SetPageType(t PageType) {
	binary.LittleEndian.PutUint32(h.data[offPageType:], uint32(t))
}

func (h Header) IsLeafPage() bool {
	return h.GetPageType() == TypeLeaf
}

func (h Header) IsRootPage() bool {
	return h.GetParentPageId() == common.InvalidPageID
}
