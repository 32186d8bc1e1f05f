package errors

import (
	"fmt"
)

type ErrorCode int

// StreamNotFound is pinned to 28 - remote peers depend on this exact value,
// so it must never be renumbered.
const (
	StreamNotFound ErrorCode = 28

	InvalidStageInfo       ErrorCode = 1001
	StageAlreadyRegistered ErrorCode = 1002
	ExecuteStageError      ErrorCode = 1003
	StreamDisconnected     ErrorCode = 1004

	InvalidConfiguration ErrorCode = 3001

	InternalError ErrorCode = 5001
)

const streamNotFoundMsgFormat = "Stream %s is not found"

func NewStreamNotFoundError(streamKey string) StratoError {
	return NewStratoErrorf(StreamNotFound, streamNotFoundMsgFormat, streamKey)
}

func NewInvalidStageInfoError(msgFormat string, args ...interface{}) StratoError {
	return NewStratoErrorf(InvalidStageInfo, msgFormat, args...)
}

func NewStageAlreadyRegisteredError(queryID string, stageID string) StratoError {
	return NewStratoErrorf(StageAlreadyRegistered, "stage %s/%s is already registered", queryID, stageID)
}

func NewExecuteStageErrorf(msgFormat string, args ...interface{}) StratoError {
	return NewStratoErrorf(ExecuteStageError, msgFormat, args...)
}

func NewStreamDisconnectedError(streamKey string) StratoError {
	return NewStratoErrorf(StreamDisconnected, "stream %s was disconnected before completion", streamKey)
}

func NewInvalidConfigurationError(msg string) StratoError {
	return NewStratoErrorf(InvalidConfiguration, "invalid configuration: %s", msg)
}

func NewInternalError(errReference string) StratoError {
	return NewStratoErrorf(InternalError, "internal error - reference: %s please consult server logs for details", errReference)
}

func NewStratoErrorf(errorCode ErrorCode, msgFormat string, args ...interface{}) StratoError {
	msg := fmt.Sprintf(msgFormat, args...)
	return StratoError{Code: errorCode, Msg: msg}
}

func NewStratoError(errorCode ErrorCode, msg string) StratoError {
	return StratoError{Code: errorCode, Msg: msg}
}

func Error(msg string) error {
	return StratoError{Code: InternalError, Msg: msg}
}

type StratoError struct {
	Code ErrorCode
	Msg  string
}

func (s StratoError) Error() string {
	return s.Msg
}

// Code returns the ErrorCode carried by err, or InternalError if err is not
// a StratoError.
func Code(err error) ErrorCode {
	serr, ok := err.(StratoError)
	if !ok {
		return InternalError
	}
	return serr.Code
}
