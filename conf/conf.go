package conf

import (
	"time"

	"github.com/stratosql/strato/errors"
)

const (
	DefaultStreamBufferSize    = 16
	DefaultStreamOrphanTTL     = 5 * time.Minute
	DefaultOrphanCheckInterval = 30 * time.Second
	DefaultMaxBatchRows        = 1000
)

type Config struct {
	NodeID *int

	ListenAddresses []string `name:"listen-addresses"`

	// Stream dispatch config
	StreamBufferSize    *int
	StreamOrphanTTL     *time.Duration
	OrphanCheckInterval *time.Duration
	MaxBatchRows        *int
}

func (c *Config) ApplyDefaults() {
	if c.NodeID == nil {
		nodeID := 0
		c.NodeID = &nodeID
	}
	if c.StreamBufferSize == nil {
		bufferSize := DefaultStreamBufferSize
		c.StreamBufferSize = &bufferSize
	}
	if c.StreamOrphanTTL == nil {
		ttl := DefaultStreamOrphanTTL
		c.StreamOrphanTTL = &ttl
	}
	if c.OrphanCheckInterval == nil {
		interval := DefaultOrphanCheckInterval
		c.OrphanCheckInterval = &interval
	}
	if c.MaxBatchRows == nil {
		maxBatchRows := DefaultMaxBatchRows
		c.MaxBatchRows = &maxBatchRows
	}
}

func (c *Config) Validate() error { //nolint:gocyclo
	if *c.NodeID < 0 {
		return errors.NewInvalidConfigurationError("node-id must be >= 0")
	}
	if *c.NodeID >= len(c.ListenAddresses) {
		return errors.NewInvalidConfigurationError("node-id must be >= 0 and < length listen-addresses")
	}
	if *c.StreamBufferSize < 1 {
		return errors.NewInvalidConfigurationError("stream-buffer-size must be >= 1")
	}
	if *c.StreamOrphanTTL < 1*time.Second {
		return errors.NewInvalidConfigurationError("stream-orphan-ttl must be >= 1s")
	}
	if *c.OrphanCheckInterval < 1*time.Second {
		return errors.NewInvalidConfigurationError("orphan-check-interval must be >= 1s")
	}
	if *c.MaxBatchRows < 1 {
		return errors.NewInvalidConfigurationError("max-batch-rows must be >= 1")
	}
	return nil
}
