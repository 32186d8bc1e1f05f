package server

import (
	"sync"

	"github.com/stratosql/strato/conf"
	"github.com/stratosql/strato/dispatch"
	log "github.com/stratosql/strato/logger"
	"github.com/stratosql/strato/transport"
)

// Server wires the dispatcher and the stream transport for one node.
type Server struct {
	lock         sync.Mutex
	cfg          conf.Config
	dispatcher   *dispatch.Dispatcher
	streamServer *transport.StreamServer
	started      bool
}

func NewServer(cfg conf.Config) (*Server, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dispatcher := dispatch.NewDispatcher(*cfg.StreamBufferSize, *cfg.StreamOrphanTTL,
		*cfg.OrphanCheckInterval, &loggingFailureListener{})
	streamServer := transport.NewStreamServer(cfg.ListenAddresses[*cfg.NodeID], dispatcher)
	return &Server{
		cfg:          cfg,
		dispatcher:   dispatcher,
		streamServer: streamServer,
	}, nil
}

func (s *Server) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.started {
		return nil
	}
	s.dispatcher.Start()
	if err := s.streamServer.Start(); err != nil {
		s.dispatcher.Stop()
		return err
	}
	s.started = true
	log.Infof("node %d started, serving streams on %s", *s.cfg.NodeID, s.streamServer.Address())
	return nil
}

func (s *Server) Stop() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.started {
		return nil
	}
	if err := s.streamServer.Stop(); err != nil {
		return err
	}
	s.dispatcher.Stop()
	s.started = false
	return nil
}

func (s *Server) Dispatcher() *dispatch.Dispatcher {
	return s.dispatcher
}

func (s *Server) StreamAddress() string {
	return s.streamServer.Address()
}

// loggingFailureListener is the default query failure surface - failed
// stages are reported here, retry is owned by the coordinator.
type loggingFailureListener struct {
}

func (l *loggingFailureListener) StageFailed(queryID string, stageID string, err error) {
	log.Errorf("query %s stage %s failed: %v", queryID, stageID, err)
}
