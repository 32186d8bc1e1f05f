package conf

import (
	"testing"
	"time"

	"github.com/stratosql/strato/errors"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Config{
		ListenAddresses: []string{"localhost:7770"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	require.Equal(t, 0, *cfg.NodeID)
	require.Equal(t, DefaultStreamBufferSize, *cfg.StreamBufferSize)
	require.Equal(t, DefaultStreamOrphanTTL, *cfg.StreamOrphanTTL)
	require.Equal(t, DefaultOrphanCheckInterval, *cfg.OrphanCheckInterval)
	require.Equal(t, DefaultMaxBatchRows, *cfg.MaxBatchRows)
	require.NoError(t, cfg.Validate())
}

func TestValidateNodeID(t *testing.T) {
	cfg := validConfig()
	nodeID := -1
	cfg.NodeID = &nodeID
	invalidConfigErr(t, "invalid configuration: node-id must be >= 0", cfg)

	nodeID = 1
	invalidConfigErr(t, "invalid configuration: node-id must be >= 0 and < length listen-addresses", cfg)
}

func TestValidateStreamBufferSize(t *testing.T) {
	cfg := validConfig()
	bufferSize := 0
	cfg.StreamBufferSize = &bufferSize
	invalidConfigErr(t, "invalid configuration: stream-buffer-size must be >= 1", cfg)
}

func TestValidateStreamOrphanTTL(t *testing.T) {
	cfg := validConfig()
	ttl := 100 * time.Millisecond
	cfg.StreamOrphanTTL = &ttl
	invalidConfigErr(t, "invalid configuration: stream-orphan-ttl must be >= 1s", cfg)
}

func TestValidateOrphanCheckInterval(t *testing.T) {
	cfg := validConfig()
	interval := 100 * time.Millisecond
	cfg.OrphanCheckInterval = &interval
	invalidConfigErr(t, "invalid configuration: orphan-check-interval must be >= 1s", cfg)
}

func TestValidateMaxBatchRows(t *testing.T) {
	cfg := validConfig()
	maxBatchRows := 0
	cfg.MaxBatchRows = &maxBatchRows
	invalidConfigErr(t, "invalid configuration: max-batch-rows must be >= 1", cfg)
}

func invalidConfigErr(t *testing.T, msg string, cfg Config) {
	t.Helper()
	err := cfg.Validate()
	require.Error(t, err)
	require.Equal(t, msg, err.Error())
	require.Equal(t, errors.ErrorCode(errors.InvalidConfiguration), errors.Code(err))
}
