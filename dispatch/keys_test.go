package dispatch

import (
	"testing"

	"github.com/stratosql/strato/errors"
	"github.com/stretchr/testify/require"
)

func TestParseStreamKey(t *testing.T) {
	key, err := ParseStreamKey("query1/stage2/stream3")
	require.NoError(t, err)
	require.Equal(t, StreamKey{QueryID: "query1", StageID: "stage2", StreamID: "stream3"}, key)
	require.Equal(t, "query1/stage2/stream3", key.String())
	require.Equal(t, StageKey{QueryID: "query1", StageID: "stage2"}, key.StageKey())
}

func TestParseStreamKeyInvalid(t *testing.T) {
	invalid := []string{
		"",
		"query1",
		"query1/stage2",
		"query1/stage2/stream3/extra",
		"/stage2/stream3",
		"query1//stream3",
		"query1/stage2/",
	}
	for _, s := range invalid {
		_, err := ParseStreamKey(s)
		require.Error(t, err, "expected parse of %q to fail", s)
		require.Equal(t, errors.ErrorCode(errors.StreamNotFound), errors.Code(err))
	}
}
