package expr

import (
	"github.com/stratosql/strato/errors"
	"github.com/stratosql/strato/rowbatch"
	"github.com/stratosql/strato/types"
)

// Expression is the contract the stage executor relies on to obtain a
// routing value per row. Scatter expressions must evaluate to int.
type Expression interface {
	EvalInt(rowIndex int, batch *rowbatch.Batch) (int64, bool, error)
	ResultType() types.ColumnType
}

func NewIntConstantExpression(val int64) Expression {
	return &IntConstantExpression{val: val}
}

type IntConstantExpression struct {
	val int64
}

func (ic *IntConstantExpression) EvalInt(int, *rowbatch.Batch) (int64, bool, error) {
	return ic.val, false, nil
}

func (ic *IntConstantExpression) ResultType() types.ColumnType {
	return types.ColumnTypeInt
}

func NewColumnExpression(colName string, schema *rowbatch.Schema) (Expression, error) {
	colIndex := schema.ColumnIndex(colName)
	if colIndex == -1 {
		return nil, errors.NewStratoErrorf(errors.ExecuteStageError,
			"unknown column '%s'. (available columns: %s)", colName, schema.String())
	}
	colType := schema.ColumnTypes()[colIndex]
	if colType.ID() != types.ColumnTypeIDInt {
		return nil, errors.NewStratoErrorf(errors.ExecuteStageError,
			"column '%s' has type %s - scatter expressions must evaluate to int", colName, colType.String())
	}
	return &ColumnExpression{colIndex: colIndex}, nil
}

type ColumnExpression struct {
	colIndex int
}

func (c *ColumnExpression) EvalInt(rowIndex int, batch *rowbatch.Batch) (int64, bool, error) {
	col := batch.GetIntColumn(c.colIndex)
	if col.IsNull(rowIndex) {
		return 0, true, nil
	}
	return col.Get(rowIndex), false, nil
}

func (c *ColumnExpression) ResultType() types.ColumnType {
	return types.ColumnTypeInt
}
