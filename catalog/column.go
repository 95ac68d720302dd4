package catalog

import (
	"github.com/iDC-NEU/tinydb/catalog/db_types"
)

type Column struct {
	Name   string
	TypeId db_types.TypeID

	// Offset is the column's offset in the tuple's fixed slot region. Set by
	// NewSchema.
	Offset uint32
}

// IsInlined reports whether the column's value is stored directly in its
// slot. Varchar slots hold an offset to the payload tail instead.
func (c *Column) IsInlined() bool {
	return c.TypeId.IsInlined()
}

// InlinedSize is the slot width of the column.
func (c *Column) InlinedSize() uint32 {
	return uint32(c.TypeId.InlinedSize())
}
