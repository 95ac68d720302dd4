package structures

import (
	"bytes"
	"encoding/binary"

	"github.com/iDC-NEU/tinydb/catalog"
	"github.com/iDC-NEU/tinydb/catalog/db_types"
	"github.com/iDC-NEU/tinydb/common"
)

// Tuple is a row in its canonical byte form.
//
// Tuple format:
// | FIXED-SIZE VALUE or VARIED-SIZE OFFSET | PAYLOAD OF VARIED-SIZE TYPES
//
// For every column the fixed region either holds the value itself, or, for a
// varied size column, a 4 byte offset pointing into the payload tail where
// the value is stored as a length prefixed byte string. Varied size payloads
// follow in declaration order, which makes the byte form canonical: equal
// (schema, values) always produce equal bytes.
type Tuple struct {
	rid  Rid
	data []byte
}

// TupleFromData wraps existing bytes as a tuple without copying. Used for
// decoding key buffers and page resident payloads in place.
func TupleFromData(data []byte) *Tuple {
	return &Tuple{data: data}
}

// NewTuple builds a tuple from typed values. The value kinds must match the
// schema column kinds.
func NewTuple(values []db_types.Value, schema *catalog.Schema) (*Tuple, error) {
	if len(values) != schema.GetColumnCount() {
		return nil, common.NewErrorf(common.LogicError, "schema has %d columns but %d values given", schema.GetColumnCount(), len(values))
	}

	size := schema.Length()
	for _, idx := range schema.GetUninlinedColumns() {
		v := values[idx]
		if !v.IsNull() {
			size += 4 + uint32(len(v.GetAsVarchar()))
		}
	}

	t := &Tuple{data: make([]byte, size)}
	tail := schema.Length()
	for i, col := range schema.GetColumns() {
		v := values[i]
		if v.GetTypeId() != col.TypeId {
			return nil, common.NewErrorf(common.MismatchType, "column %s expects %s, got %s", col.Name, col.TypeId, v.GetTypeId())
		}

		if col.IsInlined() {
			v.SerializeTo(t.data[col.Offset:])
			continue
		}

		if v.IsNull() {
			binary.LittleEndian.PutUint32(t.data[col.Offset:], db_types.NullVarlen)
			continue
		}
		binary.LittleEndian.PutUint32(t.data[col.Offset:], tail)
		v.SerializeTo(t.data[tail:])
		tail += uint32(v.SerializedSize())
	}

	return t, nil
}

// GetValue decodes the value of the given column.
func (t *Tuple) GetValue(schema *catalog.Schema, colIdx int) db_types.Value {
	col := schema.GetColumn(colIdx)
	if col.IsInlined() {
		return db_types.Deserialize(col.TypeId, t.data[col.Offset:])
	}

	offset := binary.LittleEndian.Uint32(t.data[col.Offset:])
	if offset == db_types.NullVarlen {
		return db_types.NewNullValue(col.TypeId)
	}
	return db_types.Deserialize(col.TypeId, t.data[offset:])
}

// IsNull reports whether the value of the given column is NULL.
func (t *Tuple) IsNull(schema *catalog.Schema, colIdx int) bool {
	return t.GetValue(schema, colIdx).IsNull()
}

// KeyFromTuple projects the tuple onto a key schema. keyAttrs lists the
// columns of schema that constitute the key, in key order.
func (t *Tuple) KeyFromTuple(schema *catalog.Schema, keySchema *catalog.Schema, keyAttrs []int) (*Tuple, error) {
	values := make([]db_types.Value, 0, len(keyAttrs))
	for _, idx := range keyAttrs {
		values = append(values, t.GetValue(schema, idx))
	}
	return NewTuple(values, keySchema)
}

func (t *Tuple) GetRid() Rid {
	return t.rid
}

func (t *Tuple) SetRid(rid Rid) {
	t.rid = rid
}

func (t *Tuple) GetData() []byte {
	return t.data
}

// Length returns the size of the tuple including varlen payloads.
func (t *Tuple) Length() uint32 {
	return uint32(len(t.data))
}

// SerializeTo writes the raw tuple bytes without a size prefix. The caller
// owns the size metadata.
func (t *Tuple) SerializeTo(dest []byte) {
	copy(dest, t.data)
}

// SerializeToWithSize writes a 4 byte length followed by the tuple bytes and
// returns the number of bytes used.
func (t *Tuple) SerializeToWithSize(dest []byte) int {
	binary.LittleEndian.PutUint32(dest, t.Length())
	copy(dest[4:], t.data)
	return 4 + len(t.data)
}

// DeserializeFrom replaces the tuple content with size bytes from src.
func (t *Tuple) DeserializeFrom(src []byte, size uint32) {
	t.data = make([]byte, size)
	copy(t.data, src[:size])
}

// DeserializeFromWithSize reads the 4 byte length prefix and then the tuple
// bytes.
func (t *Tuple) DeserializeFromWithSize(src []byte) {
	size := binary.LittleEndian.Uint32(src)
	t.DeserializeFrom(src[4:], size)
}

// Equals compares two tuples at the byte level. Because the byte form is
// canonical this is a valid equality over (schema, values).
func (t *Tuple) Equals(other *Tuple) bool {
	return bytes.Equal(t.data, other.data)
}
