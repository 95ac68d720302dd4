package btree

import (
	"github.com/iDC-NEU/tinydb/catalog"
	"github.com/iDC-NEU/tinydb/common"
	"github.com/iDC-NEU/tinydb/disk/structures"
)

// KeySizes are the supported fixed key widths in bytes.
var KeySizes = []int{4, 8, 16, 32, 64}

// KeySizeFor picks the smallest supported width that fits a key schema's
// byte length. A schema with varchar key columns gets the widest key, since
// the payload length is only known per tuple; a tuple that still does not
// fit is rejected at projection time. Oversized fixed schemas surface
// NotImplemented, the same outcome as asking the index builder for an
// unsupported width directly.
func KeySizeFor(keySchema *catalog.Schema) (int, error) {
	need := int(keySchema.Length())
	if len(keySchema.GetUninlinedColumns()) > 0 {
		need = KeySizes[len(KeySizes)-1]
	}
	for _, w := range KeySizes {
		if need <= w {
			return w, nil
		}
	}
	return 0, common.NewErrorf(common.NotImplemented, "key schema needs %d bytes, supported widths end at 64", need)
}

// SerializeKey projects a key tuple into a fixed width buffer. The tuple's
// canonical bytes land at the front, the rest is zero, so equal key tuples
// produce equal buffers.
func SerializeKey(t *structures.Tuple, keySize int) ([]byte, error) {
	if int(t.Length()) > keySize {
		return nil, common.NewErrorf(common.OutOfRange, "key tuple of %d bytes does not fit into a %d byte key", t.Length(), keySize)
	}
	buf := make([]byte, keySize)
	t.SerializeTo(buf)
	return buf, nil
}

// Comparator orders fixed width key buffers by decoding them column by
// column according to the key schema: integers numerically, varchars byte
// lexicographically. NULLs never reach a comparator because indexes reject
// them at projection time; hitting one here is a broken invariant.
type Comparator struct {
	keySchema *catalog.Schema
}

func NewComparator(keySchema *catalog.Schema) Comparator {
	return Comparator{keySchema: keySchema}
}

func (c Comparator) KeySchema() *catalog.Schema {
	return c.keySchema
}

// Compare returns -1, 0 or 1.
func (c Comparator) Compare(a, b []byte) int {
	ta := structures.TupleFromData(a)
	tb := structures.TupleFromData(b)

	for i := 0; i < c.keySchema.GetColumnCount(); i++ {
		va := ta.GetValue(c.keySchema, i)
		vb := tb.GetValue(c.keySchema, i)

		res, err := va.CompareTo(vb)
		if err != nil {
			panic(err)
		}
		if res != 0 {
			return res
		}
	}
	return 0
}
