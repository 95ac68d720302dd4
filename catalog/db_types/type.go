package db_types

import (
	"math"
)

// TypeID tags a value kind. Dispatch is a switch on the tag; there is no
// mutable type table.
type TypeID uint8

const (
	Invalid TypeID = iota
	Boolean
	Integer
	BigInt
	Decimal
	Varchar
)

func (t TypeID) String() string {
	switch t {
	case Boolean:
		return "boolean"
	case Integer:
		return "integer"
	case BigInt:
		return "bigint"
	case Decimal:
		return "decimal"
	case Varchar:
		return "varchar"
	default:
		return "invalid"
	}
}

// InlinedSize is the number of bytes the type occupies in a tuple's fixed
// slot region. Varchar slots store a 4 byte offset into the payload tail.
func (t TypeID) InlinedSize() int {
	switch t {
	case Boolean:
		return 1
	case Integer:
		return 4
	case BigInt, Decimal:
		return 8
	case Varchar:
		return 4
	default:
		return 0
	}
}

// IsInlined reports whether the value itself lives in the slot.
func (t TypeID) IsInlined() bool {
	return t != Varchar
}

// null sentinels of the fixed size types
const (
	nullBoolean = int8(math.MinInt8)
	nullInteger = int32(math.MinInt32)
	nullBigInt  = int64(math.MinInt64)
)

var nullDecimal = -math.MaxFloat64

// NullVarlen marks a NULL varchar, both as the slot offset inside a tuple and
// as the length prefix of a serialized value.
const NullVarlen uint32 = 0xFFFFFFFF
