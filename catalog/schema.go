package catalog

import (
	"github.com/iDC-NEU/tinydb/common"
)

type Schema struct {
	columns []Column

	// length of the fixed slot region
	length uint32

	// indexes of columns whose payload lives in the tuple tail
	uninlined []int
}

func NewSchema(cols []Column) *Schema {
	s := &Schema{columns: cols}

	var offset uint32 = 0
	for i := 0; i < len(cols); i++ {
		s.columns[i].Offset = offset
		offset += s.columns[i].InlinedSize()
		if !s.columns[i].IsInlined() {
			s.uninlined = append(s.uninlined, i)
		}
	}
	s.length = offset

	return s
}

// CopySchema projects a schema onto the given column indexes. Key schemas of
// indexes are built this way.
func CopySchema(from *Schema, attrs []int) *Schema {
	cols := make([]Column, 0, len(attrs))
	for _, idx := range attrs {
		cols = append(cols, *from.GetColumn(idx))
	}
	return NewSchema(cols)
}

func (s *Schema) GetColumns() []Column {
	return s.columns
}

func (s *Schema) GetColumn(idx int) *Column {
	return &s.columns[idx]
}

func (s *Schema) GetColumnCount() int {
	return len(s.columns)
}

func (s *Schema) GetColIdx(name string) (int, error) {
	for i, column := range s.columns {
		if column.Name == name {
			return i, nil
		}
	}
	return 0, common.NewErrorf(common.LogicError, "column does not exist: %s", name)
}

// Length returns the size of the fixed slot region of a tuple with this
// schema.
func (s *Schema) Length() uint32 {
	return s.length
}

// GetUninlinedColumns returns the indexes of columns stored in the payload
// tail.
func (s *Schema) GetUninlinedColumns() []int {
	return s.uninlined
}
