package wal

import (
	"io"
	"sync"

	"github.com/iDC-NEU/tinydb/common"
	"github.com/iDC-NEU/tinydb/disk/pages"
)

// LogManager is the contract the buffer pool depends on. Flush blocks until
// every record with lsn less than or equal to upTo is durable. When force is
// false and the watermark already covers upTo it returns without touching the
// log device.
type LogManager interface {
	AppendLog(lr *LogRecord) pages.LSN
	Flush(upTo pages.LSN, force bool) error
	GetFlushedLSN() pages.LSN
}

type Manager struct {
	mu sync.Mutex

	currLsn    pages.LSN
	flushedLsn pages.LSN

	buf []byte
	w   io.Writer
}

var _ LogManager = &Manager{}

func NewLogManager(w io.Writer) *Manager {
	return &Manager{
		buf: make([]byte, 0, 64*1024),
		w:   w,
	}
}

// AppendLog appends a log record to the in-memory log buffer, assigns its lsn
// and returns it. It does not flush.
func (l *Manager) AppendLog(lr *LogRecord) pages.LSN {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currLsn++
	lr.Lsn = l.currLsn

	var rec [recordSize]byte
	lr.serialize(rec[:])
	l.buf = append(l.buf, rec[:]...)
	return lr.Lsn
}

func (l *Manager) Flush(upTo pages.LSN, force bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !force && l.flushedLsn >= upTo {
		return nil
	}
	if len(l.buf) == 0 {
		l.flushedLsn = l.currLsn
		return nil
	}

	if _, err := l.w.Write(l.buf); err != nil {
		return common.WrapError(common.IO, "log flush failed", err)
	}
	if s, ok := l.w.(interface{ Sync() error }); ok {
		if err := s.Sync(); err != nil {
			return common.WrapError(common.IO, "log sync failed", err)
		}
	}

	l.buf = l.buf[:0]
	l.flushedLsn = l.currLsn
	return nil
}

// GetFlushedLSN returns the latest lsn persisted to disk.
func (l *Manager) GetFlushedLSN() pages.LSN {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushedLsn
}
