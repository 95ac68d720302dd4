package db_types

import (
	"encoding/binary"
	"math"

	"github.com/iDC-NEU/tinydb/common"
)

// Value is a tagged variant over the supported kinds. The capability set
// (compare, add, divide, serialize) is implemented as a match on the tag.
type Value struct {
	typeID TypeID
	isNull bool

	i int64
	f float64
	s string
	b bool
}

func NewBooleanValue(v bool) Value {
	return Value{typeID: Boolean, b: v}
}

func NewIntegerValue(v int32) Value {
	return Value{typeID: Integer, i: int64(v)}
}

func NewBigIntValue(v int64) Value {
	return Value{typeID: BigInt, i: v}
}

func NewDecimalValue(v float64) Value {
	return Value{typeID: Decimal, f: v}
}

func NewVarcharValue(v string) Value {
	return Value{typeID: Varchar, s: v}
}

func NewNullValue(t TypeID) Value {
	return Value{typeID: t, isNull: true}
}

func (v Value) GetTypeId() TypeID {
	return v.typeID
}

func (v Value) IsNull() bool {
	return v.isNull
}

func (v Value) GetAsBoolean() bool {
	return v.b
}

func (v Value) GetAsInteger() int32 {
	return int32(v.i)
}

func (v Value) GetAsBigInt() int64 {
	return v.i
}

func (v Value) GetAsDecimal() float64 {
	return v.f
}

func (v Value) GetAsVarchar() string {
	return v.s
}

// CompareTo returns -1, 0 or 1. Comparing values of different kinds is a
// MismatchType error; comparing NULL is a LogicError because every index
// rejects NULL keys before comparisons can happen.
func (v Value) CompareTo(other Value) (int, error) {
	if v.typeID != other.typeID {
		return 0, common.NewErrorf(common.MismatchType, "cannot compare %s to %s", v.typeID, other.typeID)
	}
	if v.isNull || other.isNull {
		return 0, common.NewError(common.LogicError, "cannot compare NULL values")
	}

	switch v.typeID {
	case Boolean:
		return cmpBool(v.b, other.b), nil
	case Integer, BigInt:
		return cmpInt64(v.i, other.i), nil
	case Decimal:
		return cmpFloat64(v.f, other.f), nil
	case Varchar:
		// byte-lexicographic
		if v.s < other.s {
			return -1, nil
		} else if v.s > other.s {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, common.NewErrorf(common.Unreachable, "compare on invalid type %d", v.typeID)
	}
}

// Add is defined on the numeric kinds only.
func (v Value) Add(other Value) (Value, error) {
	if v.typeID != other.typeID {
		return Value{}, common.NewErrorf(common.MismatchType, "cannot add %s to %s", other.typeID, v.typeID)
	}
	switch v.typeID {
	case Integer:
		return NewIntegerValue(int32(v.i) + int32(other.i)), nil
	case BigInt:
		return NewBigIntValue(v.i + other.i), nil
	case Decimal:
		return NewDecimalValue(v.f + other.f), nil
	default:
		return Value{}, common.NewErrorf(common.IncompatibleType, "add is not defined on %s", v.typeID)
	}
}

// Divide is defined on the numeric kinds only.
func (v Value) Divide(other Value) (Value, error) {
	if v.typeID != other.typeID {
		return Value{}, common.NewErrorf(common.MismatchType, "cannot divide %s by %s", v.typeID, other.typeID)
	}
	switch v.typeID {
	case Integer, BigInt:
		if other.i == 0 {
			return Value{}, common.NewError(common.DivideByZero, "integer division by zero")
		}
		if v.typeID == Integer {
			return NewIntegerValue(int32(v.i) / int32(other.i)), nil
		}
		return NewBigIntValue(v.i / other.i), nil
	case Decimal:
		if other.f == 0 {
			return Value{}, common.NewError(common.DivideByZero, "decimal division by zero")
		}
		return NewDecimalValue(v.f / other.f), nil
	default:
		return Value{}, common.NewErrorf(common.IncompatibleType, "divide is not defined on %s", v.typeID)
	}
}

// SerializedSize is the number of bytes SerializeTo will emit. Fixed kinds
// match their inlined size; varchar emits a length prefix plus the bytes, and
// a NULL varchar is the prefix alone.
func (v Value) SerializedSize() int {
	if v.typeID == Varchar {
		if v.isNull {
			return 4
		}
		return 4 + len(v.s)
	}
	return v.typeID.InlinedSize()
}

// SerializeTo writes the canonical byte form into dest. NULL of a fixed kind
// is the kind's sentinel value; NULL varchar is the NullVarlen prefix.
func (v Value) SerializeTo(dest []byte) {
	switch v.typeID {
	case Boolean:
		b := int8(0)
		if v.isNull {
			b = nullBoolean
		} else if v.b {
			b = 1
		}
		dest[0] = byte(b)
	case Integer:
		n := int32(v.i)
		if v.isNull {
			n = nullInteger
		}
		binary.LittleEndian.PutUint32(dest, uint32(n))
	case BigInt:
		n := v.i
		if v.isNull {
			n = nullBigInt
		}
		binary.LittleEndian.PutUint64(dest, uint64(n))
	case Decimal:
		f := v.f
		if v.isNull {
			f = nullDecimal
		}
		binary.LittleEndian.PutUint64(dest, math.Float64bits(f))
	case Varchar:
		if v.isNull {
			binary.LittleEndian.PutUint32(dest, NullVarlen)
			return
		}
		binary.LittleEndian.PutUint32(dest, uint32(len(v.s)))
		copy(dest[4:], v.s)
	default:
		panic("serialize on invalid type")
	}
}

// Deserialize decodes a value of the given kind from src.
func Deserialize(t TypeID, src []byte) Value {
	switch t {
	case Boolean:
		b := int8(src[0])
		if b == nullBoolean {
			return NewNullValue(Boolean)
		}
		return NewBooleanValue(b != 0)
	case Integer:
		n := int32(binary.LittleEndian.Uint32(src))
		if n == nullInteger {
			return NewNullValue(Integer)
		}
		return NewIntegerValue(n)
	case BigInt:
		n := int64(binary.LittleEndian.Uint64(src))
		if n == nullBigInt {
			return NewNullValue(BigInt)
		}
		return NewBigIntValue(n)
	case Decimal:
		f := math.Float64frombits(binary.LittleEndian.Uint64(src))
		if f == nullDecimal {
			return NewNullValue(Decimal)
		}
		return NewDecimalValue(f)
	case Varchar:
		l := binary.LittleEndian.Uint32(src)
		if l == NullVarlen {
			return NewNullValue(Varchar)
		}
		return NewVarcharValue(string(src[4 : 4+l]))
	default:
		panic("deserialize on invalid type")
	}
}

func cmpBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

func cmpInt64(a, b int64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

func cmpFloat64(a, b float64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}
