package rowbatch

import (
	"fmt"

	"github.com/stratosql/strato/encoding"
	"github.com/stratosql/strato/types"
)

// Serialize appends a row-wise encoding of the batch to buff. The schema is
// not encoded - both sides of the wire must already agree on it.
func (b *Batch) Serialize(buff []byte) []byte {
	buff = encoding.AppendUint32ToBufferLE(buff, uint32(b.RowCount))
	for i := 0; i < b.RowCount; i++ {
		for j, ft := range b.Schema.columnTypes {
			col := b.Columns[j]
			if col.IsNull(i) {
				buff = encoding.AppendBoolToBuffer(buff, true)
				continue
			}
			buff = encoding.AppendBoolToBuffer(buff, false)
			switch ft.ID() {
			case types.ColumnTypeIDInt:
				buff = encoding.AppendUint64ToBufferLE(buff, uint64(col.(*IntColumn).Get(i)))
			case types.ColumnTypeIDFloat:
				buff = encoding.AppendFloat64ToBufferLE(buff, col.(*FloatColumn).Get(i))
			case types.ColumnTypeIDBool:
				buff = encoding.AppendBoolToBuffer(buff, col.(*BoolColumn).Get(i))
			case types.ColumnTypeIDString:
				buff = encoding.AppendStringToBufferLE(buff, col.(*StringColumn).Get(i))
			case types.ColumnTypeIDTimestamp:
				buff = encoding.AppendUint64ToBufferLE(buff, uint64(col.(*TimestampColumn).Get(i).Val))
			default:
				panic(fmt.Sprintf("unknown column type %d", ft.ID()))
			}
		}
	}
	return buff
}

func NewBatchFromSingleBuff(schema *Schema, buff []byte) *Batch {
	off := 0
	var rc uint32
	rc, off = encoding.ReadUint32FromBufferLE(buff, off)
	colBuilders := CreateColBuilders(schema.columnTypes)
	for i := 0; i < int(rc); i++ {
		for j, ft := range schema.columnTypes {
			var null bool
			null, off = encoding.ReadBoolFromBuffer(buff, off)
			if null {
				colBuilders[j].AppendNull()
				continue
			}
			switch ft.ID() {
			case types.ColumnTypeIDInt:
				var u uint64
				u, off = encoding.ReadUint64FromBufferLE(buff, off)
				colBuilders[j].(*IntColBuilder).Append(int64(u))
			case types.ColumnTypeIDFloat:
				var f float64
				f, off = encoding.ReadFloat64FromBufferLE(buff, off)
				colBuilders[j].(*FloatColBuilder).Append(f)
			case types.ColumnTypeIDBool:
				var v bool
				v, off = encoding.ReadBoolFromBuffer(buff, off)
				colBuilders[j].(*BoolColBuilder).Append(v)
			case types.ColumnTypeIDString:
				var s string
				s, off = encoding.ReadStringFromBufferLE(buff, off)
				colBuilders[j].(*StringColBuilder).Append(s)
			case types.ColumnTypeIDTimestamp:
				var u uint64
				u, off = encoding.ReadUint64FromBufferLE(buff, off)
				colBuilders[j].(*TimestampColBuilder).Append(types.NewTimestamp(int64(u)))
			default:
				panic(fmt.Sprintf("unknown column type %d", ft.ID()))
			}
		}
	}
	return NewBatchFromBuilders(schema, colBuilders...)
}
