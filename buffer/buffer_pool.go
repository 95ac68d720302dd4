package buffer

import (
	"sync"
	"time"

	"github.com/iDC-NEU/tinydb/common"
	"github.com/iDC-NEU/tinydb/disk"
	"github.com/iDC-NEU/tinydb/disk/pages"
	"github.com/iDC-NEU/tinydb/disk/wal"
	"go.uber.org/zap"
)

// PoolManager caches disk pages in a fixed set of frames. A single latch
// serializes every state transition: the page table, the free list, the
// replacer and per-frame metadata all belong to it. Page latches are a
// separate mechanism owned by the callers; fetching never latches.
//
// Expected outcomes such as pool exhaustion or unpinning an unpinned page are
// reported through nil results and false returns. Errors are reserved for
// genuine faults, disk io above all.
type PoolManager struct {
	poolSize    int
	frames      []*pages.RawPage
	pageTable   map[uint32]int // page_id => frame index which keeps that page
	freeList    []int
	replacer    IReplacer
	diskManager disk.IDiskManager
	logManager  wal.LogManager
	stats       *common.Stats
	logger      *zap.Logger
	lock        sync.Mutex
}

func NewPoolManager(poolSize int, dm disk.IDiskManager, logManager wal.LogManager, logger *zap.Logger) *PoolManager {
	if logManager == nil {
		logManager = wal.NoopLM
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	frames := make([]*pages.RawPage, poolSize)
	freeList := make([]int, poolSize)
	for i := 0; i < poolSize; i++ {
		frames[i] = pages.NewRawPage(common.InvalidPageID)
		freeList[i] = i
	}

	return &PoolManager{
		poolSize:    poolSize,
		frames:      frames,
		pageTable:   map[uint32]int{},
		freeList:    freeList,
		replacer:    NewLruReplacer(),
		diskManager: dm,
		logManager:  logManager,
		stats:       common.NewStats(nil),
		logger:      logger,
	}
}

// FetchPage pins the page with the given id, reading it from disk if it is
// not resident. It returns (nil, nil) when the free list is empty and no
// frame can be evicted.
func (b *PoolManager) FetchPage(pageId uint32, outboundIsError bool) (*pages.RawPage, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.stats.FetchTotal.Inc()

	if frameId, ok := b.pageTable[pageId]; ok {
		b.replacer.Pin(frameId)
		b.frames[frameId].IncrPinCount()
		return b.frames[frameId], nil
	}

	b.stats.MissTotal.Inc()

	frameId, err := b.obtainFrame()
	if err != nil {
		return nil, err
	}
	if frameId < 0 {
		return nil, nil
	}

	page := b.frames[frameId]
	if err := b.diskManager.ReadPage(pageId, page.GetData(), outboundIsError); err != nil {
		// the frame was never mapped, just hand it back
		b.freeList = append(b.freeList, frameId)
		return nil, err
	}

	page.SetPageId(pageId)
	page.SetPinCount(1)
	page.SetClean()
	b.pageTable[pageId] = frameId

	return page, nil
}

// UnpinPage drops one pin from the page. It returns false when the page is
// not resident or its pin count is already zero.
func (b *PoolManager) UnpinPage(pageId uint32, isDirty bool) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	frameId, ok := b.pageTable[pageId]
	if !ok {
		return false
	}

	page := b.frames[frameId]
	if isDirty {
		page.SetDirty()
	}

	if page.GetPinCount() == 0 {
		return false
	}

	page.DecrPinCount()
	if page.GetPinCount() == 0 {
		b.replacer.Unpin(frameId)
	}
	return true
}

// NewPage allocates a fresh page id from the disk manager and pins a zero
// filled frame for it. It returns (nil, nil) only when no frame is
// obtainable.
func (b *PoolManager) NewPage() (*pages.RawPage, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if len(b.freeList) == 0 && b.replacer.Size() == 0 {
		return nil, nil
	}

	frameId, err := b.obtainFrame()
	if err != nil {
		return nil, err
	}
	if frameId < 0 {
		return nil, nil
	}

	pageId := b.diskManager.AllocatePage()

	page := b.frames[frameId]
	page.Clear()
	page.SetPageId(pageId)
	page.SetPinCount(1)
	page.SetClean()
	b.pageTable[pageId] = frameId

	b.logger.Debug("new page", zap.Uint32("pageId", pageId), zap.Int("frameId", frameId))
	return page, nil
}

// FlushPage writes the page to disk if it is resident. The write ahead rule
// is enforced first.
func (b *PoolManager) FlushPage(pageId uint32) (bool, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	frameId, ok := b.pageTable[pageId]
	if !ok {
		return false, nil
	}
	if err := b.flushHelper(frameId); err != nil {
		return false, err
	}
	return true, nil
}

// DeletePage returns the page id to the disk manager. A resident page can
// only be deleted while nobody holds a pin on it; in that case the frame goes
// back to the free list.
func (b *PoolManager) DeletePage(pageId uint32) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.diskManager.DeallocatePage(pageId)

	frameId, ok := b.pageTable[pageId]
	if !ok {
		return true
	}

	page := b.frames[frameId]
	if page.GetPinCount() > 0 {
		return false
	}

	page.SetPageId(common.InvalidPageID)
	page.SetClean()
	delete(b.pageTable, pageId)
	b.freeList = append(b.freeList, frameId)
	b.replacer.Pin(frameId)

	b.logger.Debug("delete page", zap.Uint32("pageId", pageId))
	return true
}

// FlushAllPages flushes every resident page. It iterates the page table, not
// the frame array, so holes in the pool cost nothing.
func (b *PoolManager) FlushAllPages() error {
	b.lock.Lock()
	defer b.lock.Unlock()

	for _, frameId := range b.pageTable {
		if err := b.flushHelper(frameId); err != nil {
			return err
		}
	}
	return nil
}

// CheckPinCount reports whether every resident page has pin count zero. A
// quiescence check for tests and shutdown paths.
func (b *PoolManager) CheckPinCount() bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	ok := true
	for pid, frameId := range b.pageTable {
		if pc := b.frames[frameId].GetPinCount(); pc != 0 {
			b.logger.Error("page still pinned", zap.Uint32("pageId", pid), zap.Int("pinCount", pc))
			ok = false
		}
	}
	return ok
}

// FreeFrameCount returns the number of frames not holding any page.
func (b *PoolManager) FreeFrameCount() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.freeList)
}

// ResidentCount returns the number of mapped pages.
func (b *PoolManager) ResidentCount() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.pageTable)
}

func (b *PoolManager) Stats() *common.Stats {
	return b.stats
}

// obtainFrame pops a frame from the free list, or evicts a victim. A dirty
// victim is flushed under the write ahead rule before its mapping is erased.
// Returns -1 when neither source can supply a frame. Caller holds the latch.
func (b *PoolManager) obtainFrame() (int, error) {
	if n := len(b.freeList); n > 0 {
		frameId := b.freeList[n-1]
		b.freeList = b.freeList[:n-1]
		return frameId, nil
	}

	frameId, err := b.replacer.ChooseVictim()
	if err != nil {
		return -1, nil
	}

	victim := b.frames[frameId]
	if victim.GetPinCount() != 0 {
		panic("a page is chosen as victim while its pin count is not zero")
	}

	if victim.IsDirty() {
		if err := b.flushHelper(frameId); err != nil {
			b.replacer.Unpin(frameId)
			return -1, err
		}
	}

	b.stats.EvictTotal.Inc()
	b.logger.Debug("evict", zap.Uint32("pageId", victim.GetPageId()), zap.Int("frameId", frameId))
	delete(b.pageTable, victim.GetPageId())
	return frameId, nil
}

// flushHelper enforces the write ahead rule: all log records up to the page's
// header lsn become durable before the page bytes hit disk. The wait on the
// log manager is recorded as a diagnostic counter. Caller holds the latch.
func (b *PoolManager) flushHelper(frameId int) error {
	page := b.frames[frameId]

	lsn := pages.HeaderOfData(page.GetData()).GetLSN()
	t := time.Now()
	if err := b.logManager.Flush(lsn, true); err != nil {
		return err
	}
	b.stats.ObserveFlushWait(time.Since(t))

	if err := b.diskManager.WritePage(page.GetPageId(), page.GetData()); err != nil {
		return err
	}
	page.SetClean()
	return nil
}
