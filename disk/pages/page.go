package pages

import (
	"sync"

	"github.com/iDC-NEU/tinydb/common"
)

// IPage is a wrapper for actual physical pages in the database file. It
// provides the content of the physical page as a byte array and keeps the
// bookkeeping the buffer pool needs: pin count, dirty flag and the page latch.
//
// The page latch is never taken by the buffer pool itself. Fetching a page
// does not latch it; index code latches explicitly after the fetch.
type IPage interface {
	GetData() []byte

	// GetPageId returns the page_id of the physical page.
	GetPageId() uint32
	GetPinCount() int
	IsDirty() bool
	SetDirty()
	SetClean()
	WLatch()
	WUnlatch()
	RLatch()
	RUnLatch()
	TryRLatch() bool
	IncrPinCount()
	DecrPinCount()
}

type RawPage struct {
	pageId   uint32
	isDirty  bool
	rwLatch  sync.RWMutex
	pinCount int
	data     []byte
}

var _ IPage = &RawPage{}

func NewRawPage(pageId uint32) *RawPage {
	return &RawPage{
		pageId: pageId,
		data:   make([]byte, common.PageSize),
	}
}

func (p *RawPage) IncrPinCount() {
	p.pinCount++
}

func (p *RawPage) DecrPinCount() {
	p.pinCount--
}

func (p *RawPage) GetData() []byte {
	return p.data
}

func (p *RawPage) GetPageId() uint32 {
	return p.pageId
}

// SetPageId rebinds the in-memory page to another physical page. Only the
// buffer pool calls this, while holding the pool latch.
func (p *RawPage) SetPageId(pageId uint32) {
	p.pageId = pageId
}

func (p *RawPage) GetPinCount() int {
	return p.pinCount
}

// SetPinCount overwrites the pin count. Used by the buffer pool when a frame
// is populated with a freshly read page.
func (p *RawPage) SetPinCount(count int) {
	p.pinCount = count
}

func (p *RawPage) IsDirty() bool {
	return p.isDirty
}

func (p *RawPage) SetDirty() {
	p.isDirty = true
}

func (p *RawPage) SetClean() {
	p.isDirty = false
}

// Clear zero fills the page content.
func (p *RawPage) Clear() {
	for i := range p.data {
		p.data[i] = 0
	}
}

func (p *RawPage) WLatch() {
	p.rwLatch.Lock()
}

func (p *RawPage) WUnlatch() {
	p.rwLatch.Unlock()
}

func (p *RawPage) RLatch() {
	p.rwLatch.RLock()
}

func (p *RawPage) RUnLatch() {
	p.rwLatch.RUnlock()
}

func (p *RawPage) TryRLatch() bool {
	return p.rwLatch.TryRLock()
}
