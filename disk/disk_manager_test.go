package disk

import (
	"path/filepath"
	"testing"

	"github.com/iDC-NEU/tinydb/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	d, init, err := NewDiskManager(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.True(t, init)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestAllocatePage_Should_Return_Monotonic_Ids(t *testing.T) {
	d := newTestManager(t)

	for i := uint32(0); i < 10; i++ {
		assert.Equal(t, i, d.AllocatePage())
	}
}

func TestAllocatePage_Should_Reuse_Deallocated_Ids(t *testing.T) {
	d := newTestManager(t)

	for i := 0; i < 5; i++ {
		d.AllocatePage()
	}
	d.DeallocatePage(2)

	assert.Equal(t, uint32(2), d.AllocatePage())
	assert.Equal(t, uint32(5), d.AllocatePage())
}

func TestWritePage_Then_ReadPage_Should_Round_Trip(t *testing.T) {
	d := newTestManager(t)

	src := make([]byte, common.PageSize)
	for i := range src {
		src[i] = byte(i % 251)
	}
	require.NoError(t, d.WritePage(3, src))

	dst := make([]byte, common.PageSize)
	require.NoError(t, d.ReadPage(3, dst, true))
	assert.Equal(t, src, dst)
}

func TestReadPage_Should_Zero_Fill_When_Page_Was_Never_Written(t *testing.T) {
	d := newTestManager(t)

	buf := make([]byte, common.PageSize)
	buf[0] = 0xAB
	require.NoError(t, d.ReadPage(7, buf, false))
	assert.Equal(t, make([]byte, common.PageSize), buf)
}

func TestReadPage_Should_Fail_When_Outbound_Is_Error(t *testing.T) {
	d := newTestManager(t)

	buf := make([]byte, common.PageSize)
	err := d.ReadPage(7, buf, true)
	assert.Error(t, err)
	assert.True(t, common.IsKind(err, common.IO))
}

func TestAllocator_State_Should_Survive_Reopen(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.db")

	d, _, err := NewDiskManager(file)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		d.AllocatePage()
	}
	d.DeallocatePage(1)
	require.NoError(t, d.Close())

	d2, init, err := NewDiskManager(file)
	require.NoError(t, err)
	defer d2.Close()
	assert.False(t, init)

	assert.Equal(t, uint32(1), d2.AllocatePage())
	assert.Equal(t, uint32(4), d2.AllocatePage())
}
