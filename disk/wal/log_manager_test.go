package wal

import (
	"bytes"
	"testing"

	"github.com/iDC-NEU/tinydb/disk/pages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendLog_Should_Assign_Monotonic_Lsns(t *testing.T) {
	lm := NewLogManager(&bytes.Buffer{})

	prev := pages.ZeroLSN
	for i := 0; i < 100; i++ {
		lsn := lm.AppendLog(NewPageUpdateLogRecord(1, uint32(i)))
		assert.Greater(t, lsn, prev)
		prev = lsn
	}
}

func TestFlush_Should_Advance_The_Watermark(t *testing.T) {
	buf := &bytes.Buffer{}
	lm := NewLogManager(buf)

	lsn := lm.AppendLog(NewAllocPageLogRecord(1, 5))
	assert.Equal(t, pages.ZeroLSN, lm.GetFlushedLSN())

	require.NoError(t, lm.Flush(lsn, true))
	assert.Equal(t, lsn, lm.GetFlushedLSN())
	assert.Equal(t, recordSize, buf.Len())
}

func TestFlush_Should_Skip_When_Watermark_Covers_And_Not_Forced(t *testing.T) {
	buf := &bytes.Buffer{}
	lm := NewLogManager(buf)

	lsn := lm.AppendLog(NewFreePageLogRecord(1, 5))
	require.NoError(t, lm.Flush(lsn, true))
	written := buf.Len()

	lm.AppendLog(NewFreePageLogRecord(1, 6))
	require.NoError(t, lm.Flush(lsn, false))
	assert.Equal(t, written, buf.Len())
}

func TestNoop_Log_Manager(t *testing.T) {
	assert.Equal(t, pages.ZeroLSN, NoopLM.AppendLog(NewPageUpdateLogRecord(1, 1)))
	assert.NoError(t, NoopLM.Flush(100, true))
	assert.Equal(t, pages.ZeroLSN, NoopLM.GetFlushedLSN())
}
