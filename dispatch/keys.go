package dispatch

import (
	"strings"

	"github.com/stratosql/strato/errors"
)

// Identifiers are composed into delimited strings at the RPC boundary, so
// they must not contain the delimiter themselves.
const keyDelimiter = "/"

// StageKey identifies one distributed query's one stage, unique per live
// dispatcher.
type StageKey struct {
	QueryID string
	StageID string
}

func (k StageKey) String() string {
	return k.QueryID + keyDelimiter + k.StageID
}

// StreamKey addresses one named output stream of a stage. The structured
// form is used everywhere inside the process; the delimited string form
// exists only at the RPC boundary.
type StreamKey struct {
	QueryID  string
	StageID  string
	StreamID string
}

func NewStreamKey(queryID string, stageID string, streamID string) StreamKey {
	return StreamKey{
		QueryID:  queryID,
		StageID:  stageID,
		StreamID: streamID,
	}
}

func (k StreamKey) StageKey() StageKey {
	return StageKey{QueryID: k.QueryID, StageID: k.StageID}
}

func (k StreamKey) String() string {
	return k.QueryID + keyDelimiter + k.StageID + keyDelimiter + k.StreamID
}

// ParseStreamKey parses the canonical "query_id/stage_id/stream_id" form. A
// string that cannot name any registered stream resolves to the same
// not-found error a lookup miss would produce.
func ParseStreamKey(s string) (StreamKey, error) {
	parts := strings.Split(s, keyDelimiter)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return StreamKey{}, errors.NewStreamNotFoundError(s)
	}
	return NewStreamKey(parts[0], parts[1], parts[2]), nil
}

func validIdentifier(id string) bool {
	return id != "" && !strings.Contains(id, keyDelimiter)
}
