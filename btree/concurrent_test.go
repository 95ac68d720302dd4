package btree

import (
	"sync"
	"testing"

	"github.com/iDC-NEU/tinydb/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrent_Inserts_Are_All_Visible(t *testing.T) {
	tree := newTestTree(t, Options{LeafMaxSize: 8, InternalMaxSize: 8})

	const workers = 4
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ctx := transaction.NewContext()
			for i := 0; i < perWorker; i++ {
				k := int32(w*perWorker + i)
				ok, err := tree.InsertEntry(makeKey(t, k), ridOf(k), ctx)
				assert.NoError(t, err)
				assert.True(t, ok)
			}
		}(w)
	}
	wg.Wait()

	validateTree(t, tree)
	for k := int32(0); k < workers*perWorker; k++ {
		res := scanInts(t, tree, k)
		require.Len(t, res, 1, "key %d", k)
	}
}

func TestConcurrent_Readers_During_Inserts(t *testing.T) {
	tree := newTestTree(t, Options{LeafMaxSize: 8, InternalMaxSize: 8})
	insertAll(t, tree, []int32{0, 1, 2, 3, 4, 5, 6, 7})

	stop := make(chan struct{})
	var readers sync.WaitGroup
	for r := 0; r < 2; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			ctx := transaction.NewContext()
			for {
				select {
				case <-stop:
					return
				default:
				}
				// established keys stay visible throughout
				res, err := tree.ScanKey(makeKey(t, 3), ctx)
				assert.NoError(t, err)
				assert.Len(t, res, 1)
			}
		}()
	}

	ctx := transaction.NewContext()
	for k := int32(8); k < 400; k++ {
		ok, err := tree.InsertEntry(makeKey(t, k), ridOf(k), ctx)
		require.NoError(t, err)
		require.True(t, ok)
	}
	close(stop)
	readers.Wait()

	validateTree(t, tree)
}
