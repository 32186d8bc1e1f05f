package stage

import (
	"sync/atomic"
)

type State int32

const (
	StateRunning State = iota
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		panic("unexpected state")
	}
}

// Stage is the runtime instance of one plan fragment on this node. It owns
// the producer ends of its destination channels exclusively - after
// creation it is only ever touched by its executor goroutine, apart from
// reads of its state.
type Stage struct {
	queryID string
	stageID string
	state   atomic.Int32
	outputs []*output
}

type output struct {
	ch           *StreamChannel
	disconnected bool
}

// NewStage binds a stage to the producer ends of its destination channels.
// The order of channels defines the partition index.
func NewStage(queryID string, stageID string, channels []*StreamChannel) *Stage {
	outputs := make([]*output, len(channels))
	for i, ch := range channels {
		outputs[i] = &output{ch: ch}
	}
	return &Stage{
		queryID: queryID,
		stageID: stageID,
		outputs: outputs,
	}
}

func (s *Stage) QueryID() string {
	return s.queryID
}

func (s *Stage) StageID() string {
	return s.stageID
}

func (s *Stage) State() State {
	return State(s.state.Load())
}

func (s *Stage) setState(state State) {
	s.state.Store(int32(state))
}
