package structures

import (
	"encoding/binary"
	"fmt"

	"github.com/iDC-NEU/tinydb/common"
)

// Rid identifies a record as (page id, slot number). Indexes store Rids as
// opaque values.
type Rid struct {
	PageId  uint32
	SlotNum uint32
}

// RidSize is the serialized width of a Rid.
const RidSize = 8

var InvalidRid = Rid{PageId: common.InvalidPageID, SlotNum: 0}

func NewRid(pageId uint32, slotNum uint32) Rid {
	return Rid{PageId: pageId, SlotNum: slotNum}
}

func (r Rid) Serialize(dest []byte) {
	binary.LittleEndian.PutUint32(dest, r.PageId)
	binary.LittleEndian.PutUint32(dest[4:], r.SlotNum)
}

func ReadRid(src []byte) Rid {
	return Rid{
		PageId:  binary.LittleEndian.Uint32(src),
		SlotNum: binary.LittleEndian.Uint32(src[4:]),
	}
}

func (r Rid) String() string {
	return fmt.Sprintf("(%d, %d)", r.PageId, r.SlotNum)
}
