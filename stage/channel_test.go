package stage

import (
	"testing"
	"time"

	"github.com/stratosql/strato/errors"
	"github.com/stratosql/strato/rowbatch"
	"github.com/stratosql/strato/types"
	"github.com/stretchr/testify/require"
)

func TestChannelPreservesOrder(t *testing.T) {
	ch := NewStreamChannel("q/s/s1", 10)
	receiver := ch.Receiver()
	for i := 0; i < 5; i++ {
		require.NoError(t, ch.SendBatch(singleIntBatch(int64(i))))
	}
	ch.Close(nil)
	for i := 0; i < 5; i++ {
		batch, err := receiver.NextBatch()
		require.NoError(t, err)
		require.Equal(t, int64(i), batch.GetIntColumn(0).Get(0))
	}
	batch, err := receiver.NextBatch()
	require.NoError(t, err)
	require.Nil(t, batch)
}

func TestChannelCleanCloseIsTerminal(t *testing.T) {
	ch := NewStreamChannel("q/s/s1", 1)
	receiver := ch.Receiver()
	ch.Close(nil)
	for i := 0; i < 2; i++ {
		batch, err := receiver.NextBatch()
		require.NoError(t, err)
		require.Nil(t, batch)
	}
}

func TestChannelErrorCloseDeliveredAfterDrain(t *testing.T) {
	ch := NewStreamChannel("q/s/s1", 10)
	receiver := ch.Receiver()
	require.NoError(t, ch.SendBatch(singleIntBatch(23)))
	failure := errors.NewExecuteStageErrorf("executor failed")
	ch.Close(failure)

	batch, err := receiver.NextBatch()
	require.NoError(t, err)
	require.Equal(t, int64(23), batch.GetIntColumn(0).Get(0))

	_, err = receiver.NextBatch()
	require.Error(t, err)
	require.Equal(t, failure.Error(), err.Error())

	// the terminal error is sticky
	_, err = receiver.NextBatch()
	require.Error(t, err)
}

func TestChannelBackpressure(t *testing.T) {
	ch := NewStreamChannel("q/s/s1", 2)
	receiver := ch.Receiver()
	require.NoError(t, ch.SendBatch(singleIntBatch(0)))
	require.NoError(t, ch.SendBatch(singleIntBatch(1)))

	sent := make(chan error, 1)
	go func() {
		sent <- ch.SendBatch(singleIntBatch(2))
	}()
	select {
	case <-sent:
		require.Fail(t, "send should have blocked on full buffer")
	case <-time.After(50 * time.Millisecond):
	}

	// draining one batch unblocks the producer
	_, err := receiver.NextBatch()
	require.NoError(t, err)
	select {
	case err := <-sent:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.Fail(t, "send did not unblock after drain")
	}
}

func TestChannelDetachUnblocksProducer(t *testing.T) {
	ch := NewStreamChannel("q/s/s1", 1)
	receiver := ch.Receiver()
	require.NoError(t, ch.SendBatch(singleIntBatch(0)))

	sent := make(chan error, 1)
	go func() {
		sent <- ch.SendBatch(singleIntBatch(1))
	}()
	receiver.Detach()
	select {
	case err := <-sent:
		require.Error(t, err)
		require.Equal(t, errors.ErrorCode(errors.StreamDisconnected), errors.Code(err))
	case <-time.After(5 * time.Second):
		require.Fail(t, "send did not unblock after detach")
	}

	// further sends fail fast and detach stays idempotent
	receiver.Detach()
	err := ch.SendBatch(singleIntBatch(2))
	require.Error(t, err)
}

func TestChannelSendFailsFastAfterDetach(t *testing.T) {
	// Sends after detach must fail even while the buffer has free space -
	// a parked batch nobody will read is not acceptable
	ch := NewStreamChannel("q/s/s1", 10)
	receiver := ch.Receiver()
	receiver.Detach()
	for i := 0; i < 20; i++ {
		err := ch.SendBatch(singleIntBatch(int64(i)))
		require.Error(t, err)
		require.Equal(t, errors.ErrorCode(errors.StreamDisconnected), errors.Code(err))
	}
}

var intSchema = rowbatch.NewSchema([]string{"number"}, []types.ColumnType{types.ColumnTypeInt})

func singleIntBatch(val int64) *rowbatch.Batch {
	builder := rowbatch.NewIntColBuilder()
	builder.Append(val)
	return rowbatch.NewBatch(intSchema, builder.BuildIntColumn())
}
