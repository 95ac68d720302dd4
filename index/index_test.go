package index

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/iDC-NEU/tinydb/btree"
	"github.com/iDC-NEU/tinydb/buffer"
	"github.com/iDC-NEU/tinydb/catalog"
	"github.com/iDC-NEU/tinydb/catalog/db_types"
	"github.com/iDC-NEU/tinydb/common"
	"github.com/iDC-NEU/tinydb/disk"
	"github.com/iDC-NEU/tinydb/disk/structures"
	"github.com/iDC-NEU/tinydb/disk/wal"
	"github.com/iDC-NEU/tinydb/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableSchema() *catalog.Schema {
	return catalog.NewSchema([]catalog.Column{
		{Name: "id", TypeId: db_types.Integer},
		{Name: "name", TypeId: db_types.Varchar},
		{Name: "age", TypeId: db_types.BigInt},
	})
}

func newTestIndex(t *testing.T, keyAttrs []int, unique bool) Index {
	t.Helper()
	dm, _, err := disk.NewDiskManager(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })

	pool := buffer.NewPoolManager(32, dm, wal.NewLogManager(io.Discard), nil)
	meta := NewMetadata("idx_test", "people", tableSchema(), keyAttrs, BPlusTreeType, unique)
	idx, err := Build(meta, pool, wal.NewLogManager(io.Discard), common.InvalidPageID, btree.Options{})
	require.NoError(t, err)
	return idx
}

func rowKey(t *testing.T, id int32, name string, age int64, keyAttrs []int, meta *Metadata) *structures.Tuple {
	t.Helper()
	row, err := structures.NewTuple([]db_types.Value{
		db_types.NewIntegerValue(id),
		db_types.NewVarcharValue(name),
		db_types.NewBigIntValue(age),
	}, tableSchema())
	require.NoError(t, err)

	key, err := row.KeyFromTuple(tableSchema(), meta.GetKeySchema(), keyAttrs)
	require.NoError(t, err)
	return key
}

func TestBuild_Picks_A_Width_For_Each_Key_Schema(t *testing.T) {
	for _, tc := range []struct {
		keyAttrs []int
		width    int
	}{
		{[]int{0}, 4},        // one integer
		{[]int{0, 2}, 16},    // integer + bigint = 12 -> 16
		{[]int{2}, 8},        // bigint
		{[]int{0, 0, 2}, 16}, // 4+4+8 = 16
		{[]int{1}, 64},       // varchar keys always take the widest buffer
	} {
		idx := newTestIndex(t, tc.keyAttrs, false)
		bt, ok := idx.(*BPlusTreeIndex)
		require.True(t, ok)
		assert.Equal(t, tc.width, bt.GetTree().KeySize(), "attrs %v", tc.keyAttrs)
	}
}

func TestBuild_Rejects_Oversized_Key_Schemas(t *testing.T) {
	wide := make([]catalog.Column, 0)
	for i := 0; i < 9; i++ {
		wide = append(wide, catalog.Column{Name: string(rune('a' + i)), TypeId: db_types.BigInt})
	}
	schema := catalog.NewSchema(wide)

	dm, _, err := disk.NewDiskManager(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer dm.Close()
	pool := buffer.NewPoolManager(8, dm, nil, nil)

	attrs := []int{0, 1, 2, 3, 4, 5, 6, 7, 8} // 72 bytes
	meta := NewMetadata("idx_wide", "t", schema, attrs, BPlusTreeType, false)
	_, err = Build(meta, pool, nil, common.InvalidPageID, btree.Options{})
	assert.True(t, common.IsKind(err, common.NotImplemented))
}

func TestIndex_Insert_Scan_Delete_Round_Trip(t *testing.T) {
	keyAttrs := []int{0}
	idx := newTestIndex(t, keyAttrs, false)
	meta := idx.GetMetadata()
	ctx := transaction.NewContext()

	for i := int32(0); i < 50; i++ {
		key := rowKey(t, i, "n", 30, keyAttrs, meta)
		ok, err := idx.InsertEntry(key, structures.NewRid(1, uint32(i)), ctx)
		require.NoError(t, err)
		require.True(t, ok)
	}

	key := rowKey(t, 7, "n", 30, keyAttrs, meta)
	res, err := idx.ScanKey(key, ctx)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, structures.NewRid(1, 7), res[0])

	ok, err := idx.DeleteEntry(key, structures.NewRid(1, 7), ctx)
	require.NoError(t, err)
	require.True(t, ok)

	res, err = idx.ScanKey(key, ctx)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestIndex_With_Varchar_Key_Column(t *testing.T) {
	keyAttrs := []int{1}
	idx := newTestIndex(t, keyAttrs, true)
	meta := idx.GetMetadata()
	ctx := transaction.NewContext()

	names := []string{"bob", "alice", "carol"}
	for i, n := range names {
		key := rowKey(t, int32(i), n, 20, keyAttrs, meta)
		ok, err := idx.InsertEntry(key, structures.NewRid(2, uint32(i)), ctx)
		require.NoError(t, err)
		require.True(t, ok)
	}

	key := rowKey(t, 0, "alice", 0, keyAttrs, meta)
	res, err := idx.ScanKey(key, ctx)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, structures.NewRid(2, 1), res[0])
}

func TestIndex_Rejects_Null_Key_Columns(t *testing.T) {
	keyAttrs := []int{0}
	idx := newTestIndex(t, keyAttrs, false)
	ctx := transaction.NewContext()

	key, err := structures.NewTuple([]db_types.Value{db_types.NewNullValue(db_types.Integer)}, idx.GetMetadata().GetKeySchema())
	require.NoError(t, err)

	_, err = idx.InsertEntry(key, structures.NewRid(1, 1), ctx)
	assert.True(t, common.IsKind(err, common.LogicError))
}

func TestMetadata_Accessors(t *testing.T) {
	meta := NewMetadata("idx_name", "people", tableSchema(), []int{1, 0}, BPlusTreeType, true)

	assert.Equal(t, "idx_name", meta.GetIndexName())
	assert.Equal(t, "people", meta.GetTableName())
	assert.Equal(t, 2, meta.GetIndexColumnCount())
	assert.Equal(t, []int{1, 0}, meta.GetKeyAttrs())
	assert.True(t, meta.IsUnique())
	assert.NotEmpty(t, meta.GetOID())
	assert.Equal(t, db_types.Varchar, meta.GetKeySchema().GetColumn(0).TypeId)
}
