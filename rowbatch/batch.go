package rowbatch

import (
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v11/arrow/array"
	"github.com/apache/arrow/go/v11/arrow/memory"
	log "github.com/stratosql/strato/logger"
	"github.com/stratosql/strato/types"
)

type Batch struct {
	Schema   *Schema
	Columns  []Column
	RowCount int
}

func NewBatchFromBuilders(schema *Schema, builders ...ColumnBuilder) *Batch {
	cols := make([]Column, len(builders))
	for i, colBuilder := range builders {
		cols[i] = colBuilder.Build()
	}
	return NewBatch(schema, cols...)
}

func NewBatch(schema *Schema, columns ...Column) *Batch {
	rc := -1
	for i, col := range columns {
		cl := col.Len()
		if rc != -1 && cl != rc {
			panic(fmt.Sprintf("column %s not same length (%d) as others (%d)",
				schema.ColumnNames()[i], cl, rc))
		}
		rc = cl
	}
	if rc == -1 {
		rc = 0
	}
	return &Batch{
		Schema:   schema,
		Columns:  columns,
		RowCount: rc,
	}
}

func (b *Batch) GetIntColumn(colIndex int) *IntColumn {
	return b.Columns[colIndex].(*IntColumn)
}

func (b *Batch) GetFloatColumn(colIndex int) *FloatColumn {
	return b.Columns[colIndex].(*FloatColumn)
}

func (b *Batch) GetBoolColumn(colIndex int) *BoolColumn {
	return b.Columns[colIndex].(*BoolColumn)
}

func (b *Batch) GetStringColumn(colIndex int) *StringColumn {
	return b.Columns[colIndex].(*StringColumn)
}

func (b *Batch) GetTimestampColumn(colIndex int) *TimestampColumn {
	return b.Columns[colIndex].(*TimestampColumn)
}

type Column interface {
	IsNull(row int) bool
	Len() int
}

type ColumnBuilder interface {
	AppendNull()
	Build() Column
}

func NewIntColBuilder() *IntColBuilder {
	allocator := memory.NewGoAllocator()
	builder := array.NewInt64Builder(allocator)
	return &IntColBuilder{
		builder: builder,
	}
}

type IntColBuilder struct {
	builder *array.Int64Builder
}

func (ib *IntColBuilder) AppendNull() {
	ib.builder.AppendNull()
}

func (ib *IntColBuilder) Append(val int64) {
	ib.builder.Append(val)
}

func (ib *IntColBuilder) BuildIntColumn() *IntColumn {
	return &IntColumn{array: ib.builder.NewInt64Array()}
}

func (ib *IntColBuilder) Build() Column {
	return ib.BuildIntColumn()
}

var _ Column = &IntColumn{}

type IntColumn struct {
	array *array.Int64
}

func (ic *IntColumn) Get(row int) int64 {
	return ic.array.Value(row)
}

func (ic *IntColumn) IsNull(row int) bool {
	return ic.array.IsNull(row)
}

func (ic *IntColumn) Len() int {
	return ic.array.Len()
}

func NewFloatColBuilder() *FloatColBuilder {
	allocator := memory.NewGoAllocator()
	builder := array.NewFloat64Builder(allocator)
	return &FloatColBuilder{
		builder: builder,
	}
}

type FloatColBuilder struct {
	builder *array.Float64Builder
}

func (ib *FloatColBuilder) AppendNull() {
	ib.builder.AppendNull()
}

func (ib *FloatColBuilder) Append(val float64) {
	ib.builder.Append(val)
}

func (ib *FloatColBuilder) BuildFloatColumn() *FloatColumn {
	return &FloatColumn{array: ib.builder.NewFloat64Array()}
}

func (ib *FloatColBuilder) Build() Column {
	return ib.BuildFloatColumn()
}

var _ Column = &FloatColumn{}

type FloatColumn struct {
	array *array.Float64
}

func (fc *FloatColumn) Get(row int) float64 {
	return fc.array.Value(row)
}

func (fc *FloatColumn) IsNull(row int) bool {
	return fc.array.IsNull(row)
}

func (fc *FloatColumn) Len() int {
	return fc.array.Len()
}

func NewBoolColBuilder() *BoolColBuilder {
	allocator := memory.NewGoAllocator()
	builder := array.NewBooleanBuilder(allocator)
	return &BoolColBuilder{
		builder: builder,
	}
}

type BoolColBuilder struct {
	builder *array.BooleanBuilder
}

func (ib *BoolColBuilder) AppendNull() {
	ib.builder.AppendNull()
}

func (ib *BoolColBuilder) Append(val bool) {
	ib.builder.Append(val)
}

func (ib *BoolColBuilder) BuildBoolColumn() *BoolColumn {
	return &BoolColumn{array: ib.builder.NewBooleanArray()}
}

func (ib *BoolColBuilder) Build() Column {
	return ib.BuildBoolColumn()
}

var _ Column = &BoolColumn{}

type BoolColumn struct {
	array *array.Boolean
}

func (bc *BoolColumn) Get(row int) bool {
	return bc.array.Value(row)
}

func (bc *BoolColumn) IsNull(row int) bool {
	return bc.array.IsNull(row)
}

func (bc *BoolColumn) Len() int {
	return bc.array.Len()
}

func NewStringColBuilder() *StringColBuilder {
	allocator := memory.NewGoAllocator()
	builder := array.NewStringBuilder(allocator)
	return &StringColBuilder{
		builder: builder,
	}
}

type StringColBuilder struct {
	builder *array.StringBuilder
}

func (ib *StringColBuilder) AppendNull() {
	ib.builder.AppendNull()
}

func (ib *StringColBuilder) Append(val string) {
	ib.builder.Append(val)
}

func (ib *StringColBuilder) BuildStringColumn() *StringColumn {
	return &StringColumn{array: ib.builder.NewStringArray()}
}

func (ib *StringColBuilder) Build() Column {
	return ib.BuildStringColumn()
}

var _ Column = &StringColumn{}

type StringColumn struct {
	array *array.String
}

func (sc *StringColumn) Get(row int) string {
	return sc.array.Value(row)
}

func (sc *StringColumn) IsNull(row int) bool {
	return sc.array.IsNull(row)
}

func (sc *StringColumn) Len() int {
	return sc.array.Len()
}

func NewTimestampColBuilder() *TimestampColBuilder {
	allocator := memory.NewGoAllocator()
	builder := array.NewInt64Builder(allocator)
	return &TimestampColBuilder{
		builder: builder,
	}
}

type TimestampColBuilder struct {
	builder *array.Int64Builder
}

func (ib *TimestampColBuilder) AppendNull() {
	ib.builder.AppendNull()
}

func (ib *TimestampColBuilder) Append(val types.Timestamp) {
	ib.builder.Append(val.Val)
}

func (ib *TimestampColBuilder) BuildTimestampColumn() *TimestampColumn {
	return &TimestampColumn{array: ib.builder.NewInt64Array()}
}

func (ib *TimestampColBuilder) Build() Column {
	return ib.BuildTimestampColumn()
}

var _ Column = &TimestampColumn{}

type TimestampColumn struct {
	array *array.Int64
}

func (tc *TimestampColumn) Get(row int) types.Timestamp {
	return types.NewTimestamp(tc.array.Value(row))
}

func (tc *TimestampColumn) IsNull(row int) bool {
	return tc.array.IsNull(row)
}

func (tc *TimestampColumn) Len() int {
	return tc.array.Len()
}

func CreateColBuilders(columnTypes []types.ColumnType) []ColumnBuilder {
	colBuilders := make([]ColumnBuilder, len(columnTypes))
	for colIndex, ft := range columnTypes {
		switch ft.ID() {
		case types.ColumnTypeIDInt:
			colBuilders[colIndex] = NewIntColBuilder()
		case types.ColumnTypeIDFloat:
			colBuilders[colIndex] = NewFloatColBuilder()
		case types.ColumnTypeIDBool:
			colBuilders[colIndex] = NewBoolColBuilder()
		case types.ColumnTypeIDString:
			colBuilders[colIndex] = NewStringColBuilder()
		case types.ColumnTypeIDTimestamp:
			colBuilders[colIndex] = NewTimestampColBuilder()
		default:
			panic(fmt.Sprintf("unknown column type %d", ft.ID()))
		}
	}
	return colBuilders
}

// CopyColumnEntry appends the entry at rowIndex of the batch's colIndex
// column to the corresponding builder.
func CopyColumnEntry(ft types.ColumnType, colBuilders []ColumnBuilder, colIndex int, rowIndex int, batch *Batch) {
	col := batch.Columns[colIndex]
	colBuilder := colBuilders[colIndex]
	if col.IsNull(rowIndex) {
		colBuilder.AppendNull()
		return
	}
	switch ft.ID() {
	case types.ColumnTypeIDInt:
		colBuilder.(*IntColBuilder).Append(col.(*IntColumn).Get(rowIndex))
	case types.ColumnTypeIDFloat:
		colBuilder.(*FloatColBuilder).Append(col.(*FloatColumn).Get(rowIndex))
	case types.ColumnTypeIDBool:
		colBuilder.(*BoolColBuilder).Append(col.(*BoolColumn).Get(rowIndex))
	case types.ColumnTypeIDString:
		colBuilder.(*StringColBuilder).Append(col.(*StringColumn).Get(rowIndex))
	case types.ColumnTypeIDTimestamp:
		colBuilder.(*TimestampColBuilder).Append(col.(*TimestampColumn).Get(rowIndex))
	default:
		panic(fmt.Sprintf("unknown column type %d", ft.ID()))
	}
}

func CreateEmptyBatch(schema *Schema) *Batch {
	colBuilders := CreateColBuilders(schema.ColumnTypes())
	return NewBatchFromBuilders(schema, colBuilders...)
}

func (b *Batch) Equal(other *Batch) bool {
	if b.RowCount != other.RowCount {
		return false
	}
	if len(b.Schema.columnNames) != len(other.Schema.columnNames) {
		return false
	}
	for i := 0; i < b.RowCount; i++ {
		for j, ft := range b.Schema.columnTypes {
			col1 := b.Columns[j]
			col2 := other.Columns[j]
			if col1.IsNull(i) != col2.IsNull(i) {
				return false
			}
			if col1.IsNull(i) {
				continue
			}
			switch ft.ID() {
			case types.ColumnTypeIDInt:
				if col1.(*IntColumn).Get(i) != col2.(*IntColumn).Get(i) {
					return false
				}
			case types.ColumnTypeIDFloat:
				if col1.(*FloatColumn).Get(i) != col2.(*FloatColumn).Get(i) {
					return false
				}
			case types.ColumnTypeIDBool:
				if col1.(*BoolColumn).Get(i) != col2.(*BoolColumn).Get(i) {
					return false
				}
			case types.ColumnTypeIDString:
				if col1.(*StringColumn).Get(i) != col2.(*StringColumn).Get(i) {
					return false
				}
			case types.ColumnTypeIDTimestamp:
				if col1.(*TimestampColumn).Get(i).Val != col2.(*TimestampColumn).Get(i).Val {
					return false
				}
			default:
				panic("unexpected type")
			}
		}
	}
	return true
}

func (b *Batch) Dump() {
	builder := strings.Builder{}
	for i, fn := range b.Schema.ColumnNames() {
		builder.WriteString(fn)
		if i != len(b.Columns)-1 {
			builder.WriteString(", ")
		}
	}
	log.Info(builder.String())
	for i := 0; i < b.RowCount; i++ {
		builder := strings.Builder{}
		for j, col := range b.Columns {
			switch b.Schema.ColumnTypes()[j].ID() {
			case types.ColumnTypeIDInt:
				builder.WriteString(fmt.Sprintf("%d", col.(*IntColumn).Get(i)))
			case types.ColumnTypeIDFloat:
				builder.WriteString(fmt.Sprintf("%f", col.(*FloatColumn).Get(i)))
			case types.ColumnTypeIDBool:
				builder.WriteString(fmt.Sprintf("%t", col.(*BoolColumn).Get(i)))
			case types.ColumnTypeIDString:
				builder.WriteString(col.(*StringColumn).Get(i))
			case types.ColumnTypeIDTimestamp:
				builder.WriteString(fmt.Sprintf("%d", col.(*TimestampColumn).Get(i).Val))
			}
			if j != len(b.Columns)-1 {
				builder.WriteString(", ")
			}
		}
		log.Info(builder.String())
	}
}
