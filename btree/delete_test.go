package btree

import (
	"math/rand"
	"testing"

	"github.com/iDC-NEU/tinydb/common"
	"github.com/iDC-NEU/tinydb/disk/pages"
	"github.com/iDC-NEU/tinydb/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deleteOne(t *testing.T, tree *BPlusTree, k int32) bool {
	t.Helper()
	ok, err := tree.DeleteEntry(makeKey(t, k), ridOf(k), transaction.NewContext())
	require.NoError(t, err)
	return ok
}

func TestDelete_Underflow_Borrows_From_The_Right_Sibling(t *testing.T) {
	tree := newTestTree(t, Options{LeafMaxSize: 3, InternalMaxSize: 3})
	insertAll(t, tree, []int32{1, 2, 3, 4, 5})

	require.True(t, deleteOne(t, tree, 1))

	rootPage, err := tree.fetchPage(tree.GetRootPageId())
	require.NoError(t, err)
	defer tree.pool.UnpinPage(rootPage.GetPageId(), false)
	root := asInternal(rootPage, tree.keySize)
	require.Equal(t, 2, root.h.GetSize())
	assert.Equal(t, 0, tree.cmp.Compare(makeKey(t, 4), root.keyAt(1)), "separator moves to the borrowed key's successor")

	leftPage, err := tree.fetchPage(root.childAt(0))
	require.NoError(t, err)
	defer tree.pool.UnpinPage(leftPage.GetPageId(), false)
	left := asLeaf(leftPage, tree.keySize)
	require.Equal(t, 2, left.h.GetSize())
	assert.Equal(t, 0, tree.cmp.Compare(makeKey(t, 2), left.keyAt(0)))
	assert.Equal(t, 0, tree.cmp.Compare(makeKey(t, 3), left.keyAt(1)))

	rightPage, err := tree.fetchPage(root.childAt(1))
	require.NoError(t, err)
	defer tree.pool.UnpinPage(rightPage.GetPageId(), false)
	right := asLeaf(rightPage, tree.keySize)
	require.Equal(t, 2, right.h.GetSize())
	assert.Equal(t, 0, tree.cmp.Compare(makeKey(t, 4), right.keyAt(0)))
	assert.Equal(t, 0, tree.cmp.Compare(makeKey(t, 5), right.keyAt(1)))

	validateTree(t, tree)
}

func TestDelete_Underflow_Merges_And_Demotes_The_Root(t *testing.T) {
	tree := newTestTree(t, Options{LeafMaxSize: 3, InternalMaxSize: 3})
	insertAll(t, tree, []int32{1, 2, 3, 4})

	require.True(t, deleteOne(t, tree, 1))
	require.True(t, deleteOne(t, tree, 2))

	rootPage, err := tree.fetchPage(tree.GetRootPageId())
	require.NoError(t, err)
	defer tree.pool.UnpinPage(rootPage.GetPageId(), false)

	h := pages.HeaderOf(rootPage)
	require.True(t, h.IsLeafPage(), "the tree collapses back to a single leaf")
	require.Equal(t, 2, h.GetSize())

	leaf := asLeaf(rootPage, tree.keySize)
	assert.Equal(t, 0, tree.cmp.Compare(makeKey(t, 3), leaf.keyAt(0)))
	assert.Equal(t, 0, tree.cmp.Compare(makeKey(t, 4), leaf.keyAt(1)))
	validateTree(t, tree)
}

func TestDelete_Picks_The_Matching_Rid_Among_Duplicates(t *testing.T) {
	tree := newTestTree(t, Options{})
	ctx := transaction.NewContext()

	rids := []int32{100, 101, 102} // A, B, C
	for _, r := range rids {
		ok, err := tree.InsertEntry(makeKey(t, 5), ridOf(r), ctx)
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, err := tree.DeleteEntry(makeKey(t, 5), ridOf(101), ctx)
	require.NoError(t, err)
	require.True(t, ok)

	res := scanInts(t, tree, 5)
	require.Len(t, res, 2)
	assert.Equal(t, ridOf(100), res[0])
	assert.Equal(t, ridOf(102), res[1])
}

func TestDelete_Returns_False_When_Nothing_Matches(t *testing.T) {
	tree := newTestTree(t, Options{})
	insertAll(t, tree, []int32{1, 2, 3})

	assert.False(t, deleteOne(t, tree, 9))

	// right key, wrong rid
	ok, err := tree.DeleteEntry(makeKey(t, 2), ridOf(99), transaction.NewContext())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete_Everything_Empties_The_Tree(t *testing.T) {
	tree := newTestTree(t, Options{LeafMaxSize: 3, InternalMaxSize: 3})
	keys := []int32{5, 3, 8, 1, 9, 2, 7, 4, 6, 10}
	insertAll(t, tree, keys)

	for _, k := range keys {
		require.True(t, deleteOne(t, tree, k), "delete of %d", k)
	}

	assert.Equal(t, common.InvalidPageID, tree.GetRootPageId())
	assert.Empty(t, scanInts(t, tree, 5))

	// the tree is usable again afterwards
	insertAll(t, tree, []int32{42})
	res := scanInts(t, tree, 42)
	require.Len(t, res, 1)
}

func TestRandom_Insert_Delete_Round_Trip(t *testing.T) {
	tree := newTestTree(t, Options{LeafMaxSize: 4, InternalMaxSize: 4})

	arr := make([]int32, 0)
	for i := int32(0); i < 500; i++ {
		arr = append(arr, i)
	}
	r := rand.New(rand.NewSource(7))
	r.Shuffle(len(arr), func(i, j int) { arr[i], arr[j] = arr[j], arr[i] })
	insertAll(t, tree, arr)

	deleted := map[int32]bool{}
	for i, k := range arr {
		if i%2 == 0 {
			require.True(t, deleteOne(t, tree, k))
			deleted[k] = true
		}
	}
	validateTree(t, tree)

	for _, k := range arr {
		res := scanInts(t, tree, k)
		if deleted[k] {
			assert.Empty(t, res, "key %d was deleted", k)
		} else {
			require.Len(t, res, 1, "key %d", k)
			assert.Equal(t, ridOf(k), res[0])
		}
	}
}
