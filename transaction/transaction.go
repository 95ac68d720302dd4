package transaction

import (
	"sync/atomic"

	"github.com/iDC-NEU/tinydb/disk/pages"
)

// Context carries the state of one in-flight index operation: the pages it
// holds write latched along the crab path, and the page ids it unlinked from
// the structure. The core never interprets the transaction id.
type Context struct {
	id uint64

	latched []*pages.RawPage
	deleted map[uint32]struct{}
}

var txnCounter uint64

// NewContext creates a context with a fresh transaction id.
func NewContext() *Context {
	return &Context{
		id:      atomic.AddUint64(&txnCounter, 1),
		deleted: map[uint32]struct{}{},
	}
}

func (c *Context) GetID() uint64 {
	return c.id
}

// AddLatched records a page the operation write latched.
func (c *Context) AddLatched(p *pages.RawPage) {
	c.latched = append(c.latched, p)
}

// Latched returns the latched set, oldest (topmost) first.
func (c *Context) Latched() []*pages.RawPage {
	return c.latched
}

// PopLatched removes and returns the most recently latched page, or nil.
func (c *Context) PopLatched() *pages.RawPage {
	if len(c.latched) == 0 {
		return nil
	}
	p := c.latched[len(c.latched)-1]
	c.latched = c.latched[:len(c.latched)-1]
	return p
}

// ReleaseAll unlatches every held page, topmost first, and hands each one to
// release, typically an unpin on the buffer pool. Pages in the deleted set
// are released like every other one; handing their ids back is left to the
// caller.
func (c *Context) ReleaseAll(release func(p *pages.RawPage)) {
	for _, p := range c.latched {
		p.WUnlatch()
		release(p)
	}
	c.latched = c.latched[:0]
}

// ReleaseAncestors unlatches every held page except the last keep ones,
// topmost first. The crab calls this once the current node is known safe.
func (c *Context) ReleaseAncestors(keep int, release func(p *pages.RawPage)) {
	if len(c.latched) <= keep {
		return
	}
	cut := len(c.latched) - keep
	for _, p := range c.latched[:cut] {
		p.WUnlatch()
		release(p)
	}
	c.latched = append(c.latched[:0], c.latched[cut:]...)
}

// AddDeleted records a page id the operation unlinked from the structure.
func (c *Context) AddDeleted(pageId uint32) {
	c.deleted[pageId] = struct{}{}
}

func (c *Context) WasDeleted(pageId uint32) bool {
	_, ok := c.deleted[pageId]
	return ok
}

// Deleted returns the unlinked page ids.
func (c *Context) Deleted() []uint32 {
	ids := make([]uint32, 0, len(c.deleted))
	for id := range c.deleted {
		ids = append(ids, id)
	}
	return ids
}

// ClearDeleted empties the deleted set after the ids were handed back to the
// disk manager.
func (c *Context) ClearDeleted() {
	c.deleted = map[uint32]struct{}{}
}
