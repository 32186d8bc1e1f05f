package expr

import (
	"github.com/stratosql/strato/errors"
	"github.com/stratosql/strato/rowbatch"
	"github.com/stratosql/strato/types"
)

// EvalRoutingColumn evaluates expr for every row of the batch and returns
// the routing values as an int column. Null routing values are appended as
// nulls - it is up to the caller to decide where null routes.
func EvalRoutingColumn(e Expression, batch *rowbatch.Batch) (*rowbatch.IntColumn, error) {
	if e.ResultType().ID() != types.ColumnTypeIDInt {
		return nil, errors.NewExecuteStageErrorf("scatter expression returns type %s - must be int",
			e.ResultType().String())
	}
	builder := rowbatch.NewIntColBuilder()
	rc := batch.RowCount
	for i := 0; i < rc; i++ {
		val, null, err := e.EvalInt(i, batch)
		if err != nil {
			return nil, err
		}
		if null {
			builder.AppendNull()
		} else {
			builder.Append(val)
		}
	}
	return builder.BuildIntColumn(), nil
}
