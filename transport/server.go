package transport

import (
	"encoding/binary"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/stratosql/strato/common"
	"github.com/stratosql/strato/dispatch"
	"github.com/stratosql/strato/encoding"
	"github.com/stratosql/strato/errors"
	log "github.com/stratosql/strato/logger"
)

// Frame types written by the server. Every frame is length prefixed with a
// big-endian 32 bit integer.
const (
	frameTypeBatch = iota + 1
	frameTypeEnd
	frameTypeError
)

/*
StreamServer hands registered streams to remote consumers over TCP. A
consumer sends a single length-prefixed message holding the canonical stream
key; the server claims the consumer end from the dispatcher and streams each
batch back as a length-prefixed frame, terminated by a clean end frame or an
error frame carrying the error code and message.
*/
type StreamServer struct {
	lock                sync.RWMutex
	address             string
	dispatcher          *dispatch.Dispatcher
	started             bool
	listener            net.Listener
	acceptLoopExitGroup sync.WaitGroup
	connections         sync.Map
}

func NewStreamServer(address string, dispatcher *dispatch.Dispatcher) *StreamServer {
	return &StreamServer{
		address:    address,
		dispatcher: dispatcher,
	}
}

func (s *StreamServer) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.started {
		return nil
	}
	list, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	s.listener = list
	s.started = true
	s.acceptLoopExitGroup.Add(1)
	common.Go(s.acceptLoop)
	return nil
}

func (s *StreamServer) Stop() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.started {
		return nil
	}
	if err := s.listener.Close(); err != nil {
		// Ignore
	}
	// Wait for accept loop to exit
	s.acceptLoopExitGroup.Wait()
	// Now close connections
	s.connections.Range(func(conn, _ interface{}) bool {
		conn.(*serverConnection).stop()
		return true
	})
	s.started = false
	return nil
}

func (s *StreamServer) Address() string {
	return s.listener.Addr().String()
}

func (s *StreamServer) acceptLoop() {
	defer s.acceptLoopExitGroup.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Ok - was closed
			break
		}
		c := &serverConnection{
			s:    s,
			conn: conn,
		}
		s.connections.Store(c, struct{}{})
		c.start()
	}
}

func (s *StreamServer) removeConnection(conn *serverConnection) {
	s.connections.Delete(conn)
}

type serverConnection struct {
	s          *StreamServer
	conn       net.Conn
	closeGroup sync.WaitGroup
	lock       sync.Mutex
	closed     bool
}

func (c *serverConnection) start() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.closeGroup.Add(1)
	common.Go(c.readLoop)
}

func (c *serverConnection) readLoop() {
	defer c.closeGroup.Done()
	if err := readMessage(c.conn, c.handleMessage); err != nil {
		// Closed connection errors are normal on server shutdown - we ignore them
		ignoreErr := false
		if err == io.EOF {
			ignoreErr = true
		} else if ne, ok := err.(net.Error); ok {
			ignoreErr = strings.Contains(ne.Error(), "use of closed network connection")
		}
		if !ignoreErr {
			log.Errorf("error in reading from server connection: %v", err)
		}
		if err := c.conn.Close(); err != nil {
			// Ignore
		}
	}
	c.cleanUp()
}

// handleMessage claims the requested stream and pumps its batches back to
// the consumer. The message body is the canonical stream key.
func (c *serverConnection) handleMessage(message []byte) error {
	sKey := string(message)
	key, err := dispatch.ParseStreamKey(sKey)
	if err != nil {
		return c.writeErrorFrame(err)
	}
	receiver, err := c.s.dispatcher.GetStream(key)
	if err != nil {
		return c.writeErrorFrame(err)
	}
	for {
		batch, err := receiver.NextBatch()
		if err != nil {
			return c.writeErrorFrame(err)
		}
		if batch == nil {
			return c.writeFrame(frameTypeEnd, nil)
		}
		if err := c.writeFrame(frameTypeBatch, batch.Serialize(nil)); err != nil {
			// Consumer went away mid-stream - drop the rest
			receiver.Detach()
			return err
		}
	}
}

func (c *serverConnection) writeErrorFrame(err error) error {
	var payload []byte
	payload = encoding.AppendUint32ToBufferLE(payload, uint32(errors.Code(err)))
	payload = encoding.AppendStringToBufferLE(payload, err.Error())
	return c.writeFrame(frameTypeError, payload)
}

func (c *serverConnection) writeFrame(frameType byte, payload []byte) error {
	buff := make([]byte, 5, 5+len(payload))
	binary.BigEndian.PutUint32(buff, uint32(len(payload)+1))
	buff[4] = frameType
	buff = append(buff, payload...)
	_, err := c.conn.Write(buff)
	return err
}

func (c *serverConnection) cleanUp() {
	c.s.removeConnection(c)
	c.lock.Lock()
	defer c.lock.Unlock()
	c.closed = true
}

func (c *serverConnection) stop() {
	c.lock.Lock()
	c.closed = true
	if err := c.conn.Close(); err != nil {
		// Do nothing - connection might already have been closed (e.g. from client)
	}
	c.lock.Unlock()
	c.closeGroup.Wait()
}

// readMessage reads messages that are length prefixed with a big-endian 32
// bit integer and calls the message handler for each one.
func readMessage(conn net.Conn, messageHandler func([]byte) error) error {
	lenBuff := make([]byte, 4)
	for {
		if _, err := io.ReadFull(conn, lenBuff); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		size := int(binary.BigEndian.Uint32(lenBuff))
		body := make([]byte, size)
		if _, err := io.ReadFull(conn, body); err != nil {
			return err
		}
		if err := messageHandler(body); err != nil {
			return err
		}
	}
}
