package dispatch

import (
	"sync"
	"time"

	"github.com/stratosql/strato/common"
	"github.com/stratosql/strato/errors"
	"github.com/stratosql/strato/exec"
	"github.com/stratosql/strato/expr"
	log "github.com/stratosql/strato/logger"
	"github.com/stratosql/strato/stage"
)

const requestChannelSize = 100

// PrepareStageInfo describes one plan fragment to register and execute. It
// is immutable once submitted. The order of Destinations defines the
// partition index.
type PrepareStageInfo struct {
	QueryID      string
	StageID      string
	Source       exec.BatchSource
	Destinations []string
	Scatter      expr.Expression
}

// Dispatcher is the single sequential authority over stage registration and
// stream lookup. It owns the registry of unclaimed stream consumer ends; all
// mutations of the registry key space happen on its mailbox goroutine, so
// they are linearized without locks. Stage executors, once spawned, never
// touch the registry - they only write to their private channel ends.
type Dispatcher struct {
	lock            sync.RWMutex
	started         bool
	requests        chan request
	stopCh          chan struct{}
	stopWG          sync.WaitGroup
	registry        map[StreamKey]*registryEntry
	stages          map[StageKey]*stageEntry
	bufferSize      int
	orphanTTL       time.Duration
	checkInterval   time.Duration
	failureListener stage.QueryFailureListener
}

type registryEntry struct {
	receiver     *stage.Receiver
	registeredAt time.Time
}

// stageEntry pins a stage key while any of its streams is still unclaimed.
// Once the last stream is claimed or reaped the entry is released and the
// (query_id, stage_id) pair can be registered again.
type stageEntry struct {
	stg       *stage.Stage
	unclaimed int
}

// The closed set of mailbox request variants. Each carries its own response
// channel.
type request interface{}

type prepareStageRequest struct {
	info   PrepareStageInfo
	respCh chan error
}

type getStreamRequest struct {
	key    StreamKey
	respCh chan getStreamResponse
}

type getStreamResponse struct {
	receiver *stage.Receiver
	err      error
}

type reapOrphansRequest struct {
	respCh chan int
}

func NewDispatcher(bufferSize int, orphanTTL time.Duration, checkInterval time.Duration,
	failureListener stage.QueryFailureListener) *Dispatcher {
	return &Dispatcher{
		requests:        make(chan request, requestChannelSize),
		stopCh:          make(chan struct{}),
		registry:        map[StreamKey]*registryEntry{},
		stages:          map[StageKey]*stageEntry{},
		bufferSize:      bufferSize,
		orphanTTL:       orphanTTL,
		checkInterval:   checkInterval,
		failureListener: failureListener,
	}
}

func (d *Dispatcher) Start() {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.started {
		return
	}
	d.stopWG.Add(1)
	common.Go(d.mainLoop)
	if d.checkInterval > 0 {
		d.stopWG.Add(1)
		common.Go(d.orphanCheckLoop)
	}
	d.started = true
}

// Stop shuts the mailbox down. Any consumer ends still unclaimed are
// detached so executor goroutines blocked on a full channel can unwind.
func (d *Dispatcher) Stop() {
	d.lock.Lock()
	defer d.lock.Unlock()
	if !d.started {
		return
	}
	close(d.stopCh)
	d.stopWG.Wait()
	for _, entry := range d.registry {
		entry.receiver.Detach()
	}
	d.registry = map[StreamKey]*registryEntry{}
	d.stages = map[StageKey]*stageEntry{}
	d.started = false
}

// PrepareQueryStage validates and registers the stage, creates one channel
// per destination stream, spawns the stage executor against the producer
// ends and returns without waiting for execution to finish.
func (d *Dispatcher) PrepareQueryStage(info PrepareStageInfo) error {
	respCh := make(chan error, 1)
	if err := d.sendRequest(prepareStageRequest{info: info, respCh: respCh}); err != nil {
		return err
	}
	return <-respCh
}

// GetStream removes and returns the consumer end registered under the key.
// Each entry can be claimed at most once; a second call for the same key
// fails with the same not-found error as a key that never existed.
func (d *Dispatcher) GetStream(key StreamKey) (*stage.Receiver, error) {
	respCh := make(chan getStreamResponse, 1)
	if err := d.sendRequest(getStreamRequest{key: key, respCh: respCh}); err != nil {
		return nil, err
	}
	resp := <-respCh
	return resp.receiver, resp.err
}

// ReapOrphans detaches and removes every registry entry older than the
// orphan TTL, returning how many were reaped. It is also invoked
// periodically from the orphan check loop.
func (d *Dispatcher) ReapOrphans() (int, error) {
	respCh := make(chan int, 1)
	if err := d.sendRequest(reapOrphansRequest{respCh: respCh}); err != nil {
		return 0, err
	}
	return <-respCh, nil
}

func (d *Dispatcher) sendRequest(req request) error {
	d.lock.RLock()
	defer d.lock.RUnlock()
	if !d.started {
		return errors.NewStratoErrorf(errors.InternalError, "dispatcher is not started")
	}
	select {
	case d.requests <- req:
		return nil
	case <-d.stopCh:
		return errors.NewStratoErrorf(errors.InternalError, "dispatcher is not started")
	}
}

func (d *Dispatcher) mainLoop() {
	defer d.stopWG.Done()
	for {
		select {
		case req := <-d.requests:
			d.handleRequest(req)
		case <-d.stopCh:
			// Requests that were enqueued just before stop must still get an
			// answer - no sender can be left blocked on its response channel.
			// Nothing new can arrive here: senders need the read lock, which
			// Stop holds exclusively before closing stopCh.
			for {
				select {
				case req := <-d.requests:
					d.replyStopped(req)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) replyStopped(req request) {
	err := errors.NewStratoErrorf(errors.InternalError, "dispatcher is not started")
	switch r := req.(type) {
	case prepareStageRequest:
		r.respCh <- err
	case getStreamRequest:
		r.respCh <- getStreamResponse{err: err}
	case reapOrphansRequest:
		r.respCh <- 0
	default:
		panic("unexpected request type")
	}
}

func (d *Dispatcher) handleRequest(req request) {
	switch r := req.(type) {
	case prepareStageRequest:
		r.respCh <- d.handlePrepareStage(r.info)
	case getStreamRequest:
		r.respCh <- d.handleGetStream(r.key)
	case reapOrphansRequest:
		r.respCh <- d.handleReapOrphans()
	default:
		panic("unexpected request type")
	}
}

func (d *Dispatcher) handlePrepareStage(info PrepareStageInfo) error {
	if !validIdentifier(info.QueryID) {
		return errors.NewInvalidStageInfoError("invalid query id '%s'", info.QueryID)
	}
	if !validIdentifier(info.StageID) {
		return errors.NewInvalidStageInfoError("invalid stage id '%s'", info.StageID)
	}
	if len(info.Destinations) == 0 {
		return errors.NewInvalidStageInfoError("stage %s/%s has no destination streams",
			info.QueryID, info.StageID)
	}
	if info.Source == nil {
		return errors.NewInvalidStageInfoError("stage %s/%s has no plan fragment source",
			info.QueryID, info.StageID)
	}
	stageKey := StageKey{QueryID: info.QueryID, StageID: info.StageID}
	if _, exists := d.stages[stageKey]; exists {
		return errors.NewStageAlreadyRegisteredError(info.QueryID, info.StageID)
	}
	streamKeys := make([]StreamKey, len(info.Destinations))
	for i, streamID := range info.Destinations {
		if !validIdentifier(streamID) {
			return errors.NewInvalidStageInfoError("invalid stream id '%s' for stage %s/%s",
				streamID, info.QueryID, info.StageID)
		}
		key := NewStreamKey(info.QueryID, info.StageID, streamID)
		if _, exists := d.registry[key]; exists {
			return errors.NewInvalidStageInfoError("duplicate destination stream '%s' for stage %s/%s",
				streamID, info.QueryID, info.StageID)
		}
		streamKeys[i] = key
	}
	// Validation passed - insert all N entries and spawn the executor. This
	// all happens in one mailbox turn so the registry never holds a partial
	// stage.
	channels := make([]*stage.StreamChannel, len(streamKeys))
	now := time.Now()
	for i, key := range streamKeys {
		ch := stage.NewStreamChannel(key.String(), d.bufferSize)
		channels[i] = ch
		d.registry[key] = &registryEntry{
			receiver:     ch.Receiver(),
			registeredAt: now,
		}
	}
	stg := stage.NewStage(info.QueryID, info.StageID, channels)
	d.stages[stageKey] = &stageEntry{stg: stg, unclaimed: len(streamKeys)}
	common.Go(func() {
		stg.Run(info.Source, info.Scatter, d.failureListener)
	})
	log.Debugf("prepared stage %s with %d destination streams", stageKey.String(), len(streamKeys))
	return nil
}

func (d *Dispatcher) handleGetStream(key StreamKey) getStreamResponse {
	entry, exists := d.registry[key]
	if !exists {
		return getStreamResponse{err: errors.NewStreamNotFoundError(key.String())}
	}
	// Single hand-off: ownership of the consumer end transfers to the
	// caller and the entry is gone.
	delete(d.registry, key)
	d.releaseStream(key)
	return getStreamResponse{receiver: entry.receiver}
}

func (d *Dispatcher) releaseStream(key StreamKey) {
	stageKey := key.StageKey()
	entry, exists := d.stages[stageKey]
	if !exists {
		return
	}
	entry.unclaimed--
	if entry.unclaimed == 0 {
		delete(d.stages, stageKey)
	}
}

func (d *Dispatcher) handleReapOrphans() int {
	if d.orphanTTL <= 0 {
		return 0
	}
	now := time.Now()
	reaped := 0
	for key, entry := range d.registry {
		if now.Sub(entry.registeredAt) < d.orphanTTL {
			continue
		}
		entry.receiver.Detach()
		delete(d.registry, key)
		d.releaseStream(key)
		reaped++
		log.Warnf("reaped orphan stream %s - never claimed within %s", key.String(), d.orphanTTL)
	}
	return reaped
}

func (d *Dispatcher) orphanCheckLoop() {
	defer d.stopWG.Done()
	ticker := time.NewTicker(d.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			respCh := make(chan int, 1)
			select {
			case d.requests <- reapOrphansRequest{respCh: respCh}:
				<-respCh
			case <-d.stopCh:
				return
			}
		case <-d.stopCh:
			return
		}
	}
}
