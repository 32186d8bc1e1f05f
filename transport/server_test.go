package transport

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stratosql/strato/dispatch"
	"github.com/stratosql/strato/errors"
	"github.com/stratosql/strato/exec"
	"github.com/stratosql/strato/expr"
	"github.com/stratosql/strato/rowbatch"
	"github.com/stretchr/testify/require"
)

func TestFetchStreamOverWire(t *testing.T) {
	server, client, dispatcher := startServer(t)
	defer stopServer(t, server)

	queryID := uuid.New().String()
	stageID := uuid.New().String()
	err := dispatcher.PrepareQueryStage(dispatch.PrepareStageInfo{
		QueryID:      queryID,
		StageID:      stageID,
		Source:       exec.NewNumbersSource(5, 2),
		Destinations: []string{"s1"},
		Scatter:      expr.NewIntConstantExpression(1),
	})
	require.NoError(t, err)

	key := dispatch.NewStreamKey(queryID, stageID, "s1")
	batches, err := client.FetchStream(key.String(), exec.NewNumbersSource(0, 1).Schema())
	require.NoError(t, err)
	require.Equal(t, []int64{0, 1, 2, 3, 4}, flattenNumbers(batches))
}

func TestFetchScatteredStreamsOverWire(t *testing.T) {
	server, client, dispatcher := startServer(t)
	defer stopServer(t, server)

	schema := exec.NewNumbersSource(0, 1).Schema()
	scatter, err := expr.NewColumnExpression("number", schema)
	require.NoError(t, err)
	err = dispatcher.PrepareQueryStage(dispatch.PrepareStageInfo{
		QueryID:      "query1",
		StageID:      "stage1",
		Source:       exec.NewNumbersSource(5, 100),
		Destinations: []string{"stream_1", "stream_2"},
		Scatter:      scatter,
	})
	require.NoError(t, err)

	batches1, err := client.FetchStream("query1/stage1/stream_1", schema)
	require.NoError(t, err)
	require.Equal(t, []int64{0, 2, 4}, flattenNumbers(batches1))

	batches2, err := client.FetchStream("query1/stage1/stream_2", schema)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 3}, flattenNumbers(batches2))
}

func TestFetchUnknownStreamOverWire(t *testing.T) {
	server, client, _ := startServer(t)
	defer stopServer(t, server)

	_, err := client.FetchStream("q/s/missing", exec.NewNumbersSource(0, 1).Schema())
	require.Error(t, err)
	serr, ok := err.(errors.StratoError)
	require.True(t, ok)
	require.Equal(t, errors.ErrorCode(28), serr.Code)
	require.Equal(t, "Stream q/s/missing is not found", err.Error())
}

func TestFetchMalformedKeyOverWire(t *testing.T) {
	server, client, _ := startServer(t)
	defer stopServer(t, server)

	_, err := client.FetchStream("not-a-key", exec.NewNumbersSource(0, 1).Schema())
	require.Error(t, err)
	require.Equal(t, errors.ErrorCode(errors.StreamNotFound), errors.Code(err))
	require.Equal(t, "Stream not-a-key is not found", err.Error())
}

func startServer(t *testing.T) (*StreamServer, *StreamClient, *dispatch.Dispatcher) {
	t.Helper()
	dispatcher := dispatch.NewDispatcher(10, 0, 0, nil)
	dispatcher.Start()
	t.Cleanup(dispatcher.Stop)
	server := NewStreamServer("localhost:0", dispatcher)
	require.NoError(t, server.Start())
	return server, NewStreamClient(server.Address()), dispatcher
}

func stopServer(t *testing.T, server *StreamServer) {
	t.Helper()
	require.NoError(t, server.Stop())
}

func flattenNumbers(batches []*rowbatch.Batch) []int64 {
	var numbers []int64
	for _, batch := range batches {
		col := batch.GetIntColumn(0)
		for i := 0; i < batch.RowCount; i++ {
			numbers = append(numbers, col.Get(i))
		}
	}
	return numbers
}
