package exec

import (
	"github.com/stratosql/strato/rowbatch"
	"github.com/stratosql/strato/types"
)

// BatchSource is the pull side of a plan fragment: produce the next row
// batch, signal the end of the sequence with a nil batch, or fail.
// Implementations are driven by a single goroutine and need not be safe for
// concurrent use.
type BatchSource interface {
	Schema() *rowbatch.Schema
	NextBatch() (*rowbatch.Batch, error)
}

var numbersSchema = rowbatch.NewSchema([]string{"number"}, []types.ColumnType{types.ColumnTypeInt})

// NumbersSource produces rows numbered 0..numRows-1 in batches of at most
// maxBatchRows, in a single int column called "number".
type NumbersSource struct {
	numRows      int
	maxBatchRows int
	pos          int
}

func NewNumbersSource(numRows int, maxBatchRows int) *NumbersSource {
	if maxBatchRows < 1 {
		panic("maxBatchRows must be >= 1")
	}
	return &NumbersSource{
		numRows:      numRows,
		maxBatchRows: maxBatchRows,
	}
}

func (n *NumbersSource) Schema() *rowbatch.Schema {
	return numbersSchema
}

func (n *NumbersSource) NextBatch() (*rowbatch.Batch, error) {
	if n.pos >= n.numRows {
		return nil, nil
	}
	builder := rowbatch.NewIntColBuilder()
	count := 0
	for n.pos < n.numRows && count < n.maxBatchRows {
		builder.Append(int64(n.pos))
		n.pos++
		count++
	}
	return rowbatch.NewBatch(numbersSchema, builder.BuildIntColumn()), nil
}

// StaticSource replays a fixed sequence of batches. Used by tests and by
// callers that have already materialized a fragment's output.
type StaticSource struct {
	schema  *rowbatch.Schema
	batches []*rowbatch.Batch
	pos     int
}

func NewStaticSource(schema *rowbatch.Schema, batches ...*rowbatch.Batch) *StaticSource {
	return &StaticSource{
		schema:  schema,
		batches: batches,
	}
}

func (s *StaticSource) Schema() *rowbatch.Schema {
	return s.schema
}

func (s *StaticSource) NextBatch() (*rowbatch.Batch, error) {
	if s.pos >= len(s.batches) {
		return nil, nil
	}
	batch := s.batches[s.pos]
	s.pos++
	return batch, nil
}
