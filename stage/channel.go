package stage

import (
	"sync"

	"github.com/stratosql/strato/errors"
	"github.com/stratosql/strato/rowbatch"
)

// StreamChannel is a bounded, ordered, single-producer/single-consumer
// conduit for row batches. The producer end is owned exclusively by a stage
// executor; the consumer end is wrapped in a Receiver and handed over by the
// dispatcher at most once.
//
// Closing is the only end-of-stream signal - there is no sentinel batch. The
// terminal error (nil for a clean close) is written before the batch channel
// is closed, so a consumer that drains the channel always observes it.
type StreamChannel struct {
	streamKey  string
	ch         chan *rowbatch.Batch
	detached   chan struct{}
	detachOnce sync.Once
	closeOnce  sync.Once
	err        error
}

func NewStreamChannel(streamKey string, bufferSize int) *StreamChannel {
	if bufferSize < 1 {
		panic("bufferSize must be >= 1")
	}
	return &StreamChannel{
		streamKey: streamKey,
		ch:        make(chan *rowbatch.Batch, bufferSize),
		detached:  make(chan struct{}),
	}
}

func (c *StreamChannel) StreamKey() string {
	return c.streamKey
}

// SendBatch blocks while the buffer is full. It fails with a
// StreamDisconnected error once the consumer end has been detached - the
// producer must stop sending to this destination but siblings are
// unaffected.
func (c *StreamChannel) SendBatch(batch *rowbatch.Batch) error {
	// Check detached first - a blocking select with buffer space free could
	// pick the send case and park a batch nobody will read
	select {
	case <-c.detached:
		return errors.NewStreamDisconnectedError(c.streamKey)
	default:
	}
	select {
	case c.ch <- batch:
		return nil
	case <-c.detached:
		return errors.NewStreamDisconnectedError(c.streamKey)
	}
}

// Close moves the channel to its terminal state. A nil err is a success
// close, non-nil an error close. Only the producer calls Close, exactly the
// first call wins.
func (c *StreamChannel) Close(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		close(c.ch)
	})
}

// Receiver returns the consumer end adapter. The channel creates exactly one
// Receiver; ownership semantics are enforced by the dispatcher's registry,
// not here.
func (c *StreamChannel) Receiver() *Receiver {
	return &Receiver{c: c}
}

// Receiver converts the consumer end of a StreamChannel into a pull-based
// lazy sequence of batches.
type Receiver struct {
	c *StreamChannel
}

// NextBatch suspends the caller while the channel is open and empty. It
// returns (nil, nil) when the channel was closed in success state and the
// buffer is drained, and the carried failure when it was closed in error
// state. Batches are returned strictly in emission order.
func (r *Receiver) NextBatch() (*rowbatch.Batch, error) {
	batch, ok := <-r.c.ch
	if !ok {
		return nil, r.c.err
	}
	return batch, nil
}

// Detach drops the consumer end. A producer blocked in SendBatch unblocks
// with a StreamDisconnected error, further sends fail fast. Idempotent.
func (r *Receiver) Detach() {
	r.c.detachOnce.Do(func() {
		close(r.c.detached)
	})
}
