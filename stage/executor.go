package stage

import (
	"github.com/stratosql/strato/errors"
	"github.com/stratosql/strato/exec"
	"github.com/stratosql/strato/expr"
	log "github.com/stratosql/strato/logger"
	"github.com/stratosql/strato/rowbatch"
)

// QueryFailureListener is notified when a stage fails during streaming. The
// outer coordinator owns any retry decision - the stage itself never
// retries.
type QueryFailureListener interface {
	StageFailed(queryID string, stageID string, err error)
}

// Run drives the plan fragment to completion, scattering its output across
// the stage's destination channels. It is executed on a dedicated goroutine
// and never touches the dispatcher's registry.
//
// With a single destination every batch is forwarded verbatim and in order.
// With N destinations the scatter expression is evaluated per row and the
// destination index is the routing value mod N - a deterministic, stable
// assignment, so identical inputs always partition identically. Relative row
// order from the source batch is preserved within each destination.
func (s *Stage) Run(source exec.BatchSource, scatter expr.Expression, failureListener QueryFailureListener) {
	for {
		batch, err := source.NextBatch()
		if err != nil {
			s.fail(err, failureListener)
			return
		}
		if batch == nil {
			s.complete()
			return
		}
		if batch.RowCount == 0 {
			continue
		}
		if len(s.outputs) == 1 {
			s.sendToOutput(s.outputs[0], batch)
		} else if err := s.scatterBatch(batch, scatter); err != nil {
			s.fail(err, failureListener)
			return
		}
	}
}

func (s *Stage) scatterBatch(batch *rowbatch.Batch, scatter expr.Expression) error {
	if scatter == nil {
		return errors.NewExecuteStageErrorf("stage %s/%s has %d destinations but no scatter expression",
			s.queryID, s.stageID, len(s.outputs))
	}
	routing, err := expr.EvalRoutingColumn(scatter, batch)
	if err != nil {
		return err
	}
	numOutputs := len(s.outputs)
	columnTypes := batch.Schema.ColumnTypes()
	builders := make([][]rowbatch.ColumnBuilder, numOutputs)
	rowCounts := make([]int, numOutputs)
	for i := 0; i < batch.RowCount; i++ {
		destIndex := 0
		if !routing.IsNull(i) {
			destIndex = partitionIndex(routing.Get(i), numOutputs)
		}
		if builders[destIndex] == nil {
			builders[destIndex] = rowbatch.CreateColBuilders(columnTypes)
		}
		for colIndex, ft := range columnTypes {
			rowbatch.CopyColumnEntry(ft, builders[destIndex], colIndex, i, batch)
		}
		rowCounts[destIndex]++
	}
	for destIndex, destBuilders := range builders {
		if rowCounts[destIndex] == 0 {
			continue
		}
		subBatch := rowbatch.NewBatchFromBuilders(batch.Schema, destBuilders...)
		s.sendToOutput(s.outputs[destIndex], subBatch)
	}
	return nil
}

// partitionIndex maps a routing value to [0, numOutputs) with a Euclidean
// remainder so negative routing values partition deterministically too.
func partitionIndex(routing int64, numOutputs int) int {
	idx := int(routing % int64(numOutputs))
	if idx < 0 {
		idx += numOutputs
	}
	return idx
}

func (s *Stage) sendToOutput(out *output, batch *rowbatch.Batch) {
	if out.disconnected {
		return
	}
	if err := out.ch.SendBatch(batch); err != nil {
		// The consumer went away. This only affects that destination - the
		// stage keeps running for its siblings.
		log.Warnf("stage %s/%s: dropping batches for stream %s: %v", s.queryID, s.stageID,
			out.ch.StreamKey(), err)
		out.disconnected = true
	}
}

func (s *Stage) complete() {
	s.setState(StateCompleted)
	for _, out := range s.outputs {
		out.ch.Close(nil)
	}
}

// fail closes every destination channel - claimed or not - in error state so
// any current or future consumer observes the same failure instead of
// hanging, then reports the failure to the outer query failure surface.
func (s *Stage) fail(err error, failureListener QueryFailureListener) {
	s.setState(StateFailed)
	log.Errorf("stage %s/%s failed: %v", s.queryID, s.stageID, err)
	for _, out := range s.outputs {
		out.ch.Close(err)
	}
	if failureListener != nil {
		failureListener.StageFailed(s.queryID, s.stageID, err)
	}
}
