package transport

import (
	"encoding/binary"
	"io"
	"net"
	"time"

	"github.com/stratosql/strato/encoding"
	"github.com/stratosql/strato/errors"
	"github.com/stratosql/strato/rowbatch"
)

const (
	writeTimeout = 5 * time.Second
	dialTimeout  = 5 * time.Second
)

// StreamClient is the consumer side of the stream protocol, used by remote
// readers and tests.
type StreamClient struct {
	address string
}

func NewStreamClient(address string) *StreamClient {
	return &StreamClient{address: address}
}

// FetchStream claims the stream named by streamKey and reads it to
// completion. Batches arrive in emission order. The schema must match the
// one the producing stage used - the wire format does not carry it.
func (s *StreamClient) FetchStream(streamKey string, schema *rowbatch.Schema) ([]*rowbatch.Batch, error) {
	conn, err := s.createConnection()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			// Ignore
		}
	}()
	if err := writeMessage(conn, []byte(streamKey)); err != nil {
		return nil, err
	}
	var batches []*rowbatch.Batch
	for {
		frameType, payload, err := readFrame(conn)
		if err != nil {
			return nil, err
		}
		switch frameType {
		case frameTypeBatch:
			batches = append(batches, rowbatch.NewBatchFromSingleBuff(schema, payload))
		case frameTypeEnd:
			return batches, nil
		case frameTypeError:
			var code uint32
			off := 0
			code, off = encoding.ReadUint32FromBufferLE(payload, off)
			msg, _ := encoding.ReadStringFromBufferLE(payload, off)
			return nil, errors.NewStratoError(errors.ErrorCode(code), msg)
		default:
			return nil, errors.NewStratoErrorf(errors.InternalError, "unexpected frame type %d", frameType)
		}
	}
}

func (s *StreamClient) createConnection() (net.Conn, error) {
	d := net.Dialer{Timeout: dialTimeout}
	netConn, err := d.Dial("tcp", s.address)
	if err != nil {
		return nil, err
	}
	tcpConn := netConn.(*net.TCPConn)
	if err := tcpConn.SetNoDelay(true); err != nil {
		return nil, err
	}
	return netConn, nil
}

func writeMessage(conn net.Conn, message []byte) error {
	length := len(message) + 4
	buff := make([]byte, length)
	binary.BigEndian.PutUint32(buff, uint32(length-4))
	copy(buff[4:], message)
	// Set a write deadline so the write doesn't block for a long time in case
	// the other side of the TCP connection disappears
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	_, err := conn.Write(buff)
	return err
}

func readFrame(conn net.Conn) (byte, []byte, error) {
	lenBuff := make([]byte, 4)
	if _, err := io.ReadFull(conn, lenBuff); err != nil {
		return 0, nil, err
	}
	size := int(binary.BigEndian.Uint32(lenBuff))
	if size < 1 {
		return 0, nil, errors.NewStratoErrorf(errors.InternalError, "invalid frame size %d", size)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(conn, body); err != nil {
		return 0, nil, err
	}
	return body[0], body[1:], nil
}
