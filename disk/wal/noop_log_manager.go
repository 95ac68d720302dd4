package wal

import (
	"github.com/iDC-NEU/tinydb/disk/pages"
)

// NoopLM is used when recovery is disabled. Appends return ZeroLSN and
// flushes succeed immediately.
var NoopLM = &noopLM{}

type noopLM struct{}

func (n *noopLM) AppendLog(lr *LogRecord) pages.LSN {
	return pages.ZeroLSN
}

func (n *noopLM) Flush(upTo pages.LSN, force bool) error {
	return nil
}

func (n *noopLM) GetFlushedLSN() pages.LSN {
	return pages.ZeroLSN
}

var _ LogManager = &noopLM{}
