package common

import "errors"

var (
	ErrMissingEventName       = errors.New("missing event name in json object")
	ErrMissingEventArgs       = errors.New("missing event args in json object")
	ErrEventArgsCountMismatch = errors.New("event must carry exactly one argument")
	ErrInvalidPayload         = errors.New("invalid event payload")
)
