package wal

import (
	"encoding/binary"

	"github.com/iDC-NEU/tinydb/disk/pages"
)

type LogRecordType uint8

const (
	TypeInvalid LogRecordType = iota
	TypePageUpdate
	TypeAllocPage
	TypeFreePage
	TypeCommit
	TypeAbort
)

// LogRecord is a single wal entry. The storage core only ever appends page
// level records; the recovery driver that would replay them is out of scope.
type LogRecord struct {
	Lsn    pages.LSN
	TxnID  uint64
	T      LogRecordType
	PageID uint32
}

func NewPageUpdateLogRecord(txnID uint64, pageID uint32) *LogRecord {
	return &LogRecord{TxnID: txnID, T: TypePageUpdate, PageID: pageID}
}

func NewAllocPageLogRecord(txnID uint64, pageID uint32) *LogRecord {
	return &LogRecord{TxnID: txnID, T: TypeAllocPage, PageID: pageID}
}

func NewFreePageLogRecord(txnID uint64, pageID uint32) *LogRecord {
	return &LogRecord{TxnID: txnID, T: TypeFreePage, PageID: pageID}
}

// serialized form: lsn(4) | txn(8) | type(1) | page(4)
const recordSize = 17

func (lr *LogRecord) serialize(dest []byte) {
	binary.LittleEndian.PutUint32(dest, uint32(lr.Lsn))
	binary.LittleEndian.PutUint64(dest[4:], lr.TxnID)
	dest[12] = byte(lr.T)
	binary.LittleEndian.PutUint32(dest[13:], lr.PageID)
}
