package disk

import (
	"io"
	"os"
	"sync"

	"github.com/iDC-NEU/tinydb/common"
)

type IDiskManager interface {
	// ReadPage reads the page with the given id into buf. Reading a page that
	// was allocated but never written is not an error unless outboundIsError
	// is set; the buffer is zero filled instead.
	ReadPage(pageId uint32, buf []byte, outboundIsError bool) error
	WritePage(pageId uint32, buf []byte) error

	// AllocatePage hands out a page id. Freed ids are reused before the file
	// is grown.
	AllocatePage() uint32
	DeallocatePage(pageId uint32)

	Sync() error
	Close() error
}

// FlushInstantly should normally be set to true. If it is false then data might
// be lost even after a successful write operation when power loss occurs before
// the os flushes its io buffers. Tests run a lot faster with it off and no test
// simulates power loss at the os level.
const FlushInstantly bool = false

type Manager struct {
	file     *os.File
	filename string
	mu       sync.Mutex

	serializer metaSerializer
	meta       *meta
}

var _ IDiskManager = &Manager{}

// NewDiskManager opens or creates the database file. The second return value
// reports whether the file was created by this call.
func NewDiskManager(file string) (*Manager, bool, error) {
	d := Manager{filename: file, serializer: jsonMetaSerializer{}}

	_, statErr := os.Stat(file)
	init := os.IsNotExist(statErr)

	f, err := os.OpenFile(file, os.O_CREATE|os.O_RDWR, os.ModePerm)
	if err != nil {
		return nil, false, common.WrapError(common.IO, "cannot open db file", err)
	}
	d.file = f

	stats, err := f.Stat()
	if err != nil {
		return nil, false, common.WrapError(common.IO, "cannot stat db file", err)
	}

	m, err := d.serializer.read(d.metaFilename())
	if err != nil {
		return nil, false, err
	}
	if m == nil {
		// no meta file yet, derive next page id from the file size
		m = &meta{NextPageID: uint32(stats.Size() / int64(common.PageSize))}
	}
	d.meta = m

	return &d, init, nil
}

func (d *Manager) ReadPage(pageId uint32, buf []byte, outboundIsError bool) error {
	if len(buf) != common.PageSize {
		return common.NewErrorf(common.LogicError, "read buffer is not page sized: %d", len(buf))
	}

	n, err := d.file.ReadAt(buf, int64(pageId)*int64(common.PageSize))
	if err == io.EOF || (err == nil && n < common.PageSize) || err == io.ErrUnexpectedEOF {
		if outboundIsError {
			return common.NewErrorf(common.IO, "page %d was never written", pageId)
		}
		for i := n; i < common.PageSize; i++ {
			buf[i] = 0
		}
		return nil
	}
	if err != nil {
		return common.WrapError(common.IO, "ReadPage failed", err)
	}
	return nil
}

func (d *Manager) WritePage(pageId uint32, buf []byte) error {
	if len(buf) != common.PageSize {
		return common.NewErrorf(common.LogicError, "write buffer is not page sized: %d", len(buf))
	}

	n, err := d.file.WriteAt(buf, int64(pageId)*int64(common.PageSize))
	if err != nil {
		return common.WrapError(common.IO, "WritePage failed", err)
	}
	if n != common.PageSize {
		panic("written bytes are not equal to page size")
	}

	if FlushInstantly {
		if err := d.file.Sync(); err != nil {
			panic(err)
		}
	}

	return nil
}

func (d *Manager) AllocatePage() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n := len(d.meta.FreePages); n > 0 {
		pid := d.meta.FreePages[n-1]
		d.meta.FreePages = d.meta.FreePages[:n-1]
		d.persistMeta()
		return pid
	}

	pid := d.meta.NextPageID
	d.meta.NextPageID++
	d.persistMeta()
	return pid
}

func (d *Manager) DeallocatePage(pageId uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range d.meta.FreePages {
		if p == pageId {
			// already in the free list
			return
		}
	}
	d.meta.FreePages = append(d.meta.FreePages, pageId)
	d.persistMeta()
}

func (d *Manager) Sync() error {
	if err := d.file.Sync(); err != nil {
		return common.WrapError(common.IO, "Sync failed", err)
	}
	return nil
}

func (d *Manager) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.persistMeta()
	if err := d.file.Close(); err != nil {
		return common.WrapError(common.IO, "Close failed", err)
	}
	return nil
}

func (d *Manager) metaFilename() string {
	return d.filename + ".meta"
}

func (d *Manager) persistMeta() {
	if err := d.serializer.write(d.metaFilename(), d.meta); err != nil {
		panic(err)
	}
}
