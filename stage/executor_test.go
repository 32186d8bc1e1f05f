package stage

import (
	"sync"
	"testing"
	"time"

	"github.com/stratosql/strato/errors"
	"github.com/stratosql/strato/exec"
	"github.com/stratosql/strato/expr"
	"github.com/stratosql/strato/rowbatch"
	"github.com/stretchr/testify/require"
)

func TestExecutorSingleDestinationPassthrough(t *testing.T) {
	ch := NewStreamChannel("q/s/s1", 10)
	receiver := ch.Receiver()
	stg := NewStage("q", "s", []*StreamChannel{ch})

	go stg.Run(exec.NewNumbersSource(5, 2), expr.NewIntConstantExpression(1), nil)

	require.Equal(t, []int64{0, 1, 2, 3, 4}, drainNumbers(t, receiver))
	require.Equal(t, StateCompleted, stg.State())
}

func TestExecutorScatterModN(t *testing.T) {
	ch1 := NewStreamChannel("q/s/s1", 10)
	ch2 := NewStreamChannel("q/s/s2", 10)
	receiver1 := ch1.Receiver()
	receiver2 := ch2.Receiver()
	stg := NewStage("q", "s", []*StreamChannel{ch1, ch2})

	source := exec.NewNumbersSource(5, 100)
	scatter, err := expr.NewColumnExpression("number", source.Schema())
	require.NoError(t, err)
	go stg.Run(source, scatter, nil)

	require.Equal(t, []int64{0, 2, 4}, drainNumbers(t, receiver1))
	require.Equal(t, []int64{1, 3}, drainNumbers(t, receiver2))
	require.Equal(t, StateCompleted, stg.State())
}

func TestExecutorScatterNegativeRouting(t *testing.T) {
	source := staticIntSource(-1, -2, -3, 0, 1)
	ch1 := NewStreamChannel("q/s/s1", 10)
	ch2 := NewStreamChannel("q/s/s2", 10)
	receiver1 := ch1.Receiver()
	receiver2 := ch2.Receiver()
	stg := NewStage("q", "s", []*StreamChannel{ch1, ch2})

	scatter, err := expr.NewColumnExpression("number", source.Schema())
	require.NoError(t, err)
	go stg.Run(source, scatter, nil)

	// Euclidean remainder: -2, 0 route to partition 0; -1, -3, 1 to partition 1
	require.Equal(t, []int64{-2, 0}, drainNumbers(t, receiver1))
	require.Equal(t, []int64{-1, -3, 1}, drainNumbers(t, receiver2))
}

func TestExecutorScatterConstantSkipsEmptyGroups(t *testing.T) {
	ch1 := NewStreamChannel("q/s/s1", 10)
	ch2 := NewStreamChannel("q/s/s2", 10)
	receiver1 := ch1.Receiver()
	receiver2 := ch2.Receiver()
	stg := NewStage("q", "s", []*StreamChannel{ch1, ch2})

	// constant 1 mod 2 routes every row to the second destination - the
	// first must see a clean close with no zero-row batches
	go stg.Run(exec.NewNumbersSource(4, 2), expr.NewIntConstantExpression(1), nil)

	batch, err := receiver1.NextBatch()
	require.NoError(t, err)
	require.Nil(t, batch)
	require.Equal(t, []int64{0, 1, 2, 3}, drainNumbers(t, receiver2))
}

func TestExecutorNullRoutingGoesToFirstDestination(t *testing.T) {
	builder := rowbatch.NewIntColBuilder()
	builder.Append(1)
	builder.AppendNull()
	builder.Append(3)
	batch := rowbatch.NewBatch(intSchema, builder.BuildIntColumn())
	source := exec.NewStaticSource(intSchema, batch)

	ch1 := NewStreamChannel("q/s/s1", 10)
	ch2 := NewStreamChannel("q/s/s2", 10)
	receiver1 := ch1.Receiver()
	receiver2 := ch2.Receiver()
	stg := NewStage("q", "s", []*StreamChannel{ch1, ch2})

	scatter, err := expr.NewColumnExpression("number", source.Schema())
	require.NoError(t, err)
	go stg.Run(source, scatter, nil)

	// the null row lands in the first destination, read back as the zero value
	require.Equal(t, []int64{0}, drainNumbers(t, receiver1))
	require.Equal(t, []int64{1, 3}, drainNumbers(t, receiver2))
}

func TestExecutorScatterWithoutExpressionFails(t *testing.T) {
	ch1 := NewStreamChannel("q/s/s1", 10)
	ch2 := NewStreamChannel("q/s/s2", 10)
	receiver1 := ch1.Receiver()
	listener := &fakeFailureListener{}
	stg := NewStage("q", "s", []*StreamChannel{ch1, ch2})

	go stg.Run(exec.NewNumbersSource(5, 2), nil, listener)

	_, err := receiver1.NextBatch()
	require.Error(t, err)
	require.Equal(t, errors.ErrorCode(errors.ExecuteStageError), errors.Code(err))
	listener.await(t)
	require.Equal(t, StateFailed, stg.State())
}

func TestExecutorDisconnectedConsumerDoesNotFailSiblings(t *testing.T) {
	ch1 := NewStreamChannel("q/s/s1", 1)
	ch2 := NewStreamChannel("q/s/s2", 10)
	receiver1 := ch1.Receiver()
	receiver2 := ch2.Receiver()
	stg := NewStage("q", "s", []*StreamChannel{ch1, ch2})

	// consumer of the first destination goes away before execution
	receiver1.Detach()

	source := exec.NewNumbersSource(20, 1)
	scatter, err := expr.NewColumnExpression("number", source.Schema())
	require.NoError(t, err)
	go stg.Run(source, scatter, nil)

	require.Equal(t, []int64{1, 3, 5, 7, 9, 11, 13, 15, 17, 19}, drainNumbers(t, receiver2))
	require.Equal(t, StateCompleted, stg.State())
}

func drainNumbers(t *testing.T, receiver *Receiver) []int64 {
	t.Helper()
	var numbers []int64
	for {
		batch, err := receiver.NextBatch()
		require.NoError(t, err)
		if batch == nil {
			return numbers
		}
		col := batch.GetIntColumn(0)
		for i := 0; i < batch.RowCount; i++ {
			numbers = append(numbers, col.Get(i))
		}
	}
}

func staticIntSource(vals ...int64) *exec.StaticSource {
	builder := rowbatch.NewIntColBuilder()
	for _, val := range vals {
		builder.Append(val)
	}
	batch := rowbatch.NewBatch(intSchema, builder.BuildIntColumn())
	return exec.NewStaticSource(intSchema, batch)
}

type fakeFailureListener struct {
	lock   sync.Mutex
	failed bool
}

func (f *fakeFailureListener) StageFailed(string, string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.failed = true
}

func (f *fakeFailureListener) await(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		f.lock.Lock()
		defer f.lock.Unlock()
		return f.failed
	}, 5*time.Second, 1*time.Millisecond)
}
