package server

import "errors"

var (
	ErrUnknownModel = errors.New("unknown encryption model")
	ErrUndecodable  = errors.New("message cannot be decoded")
	ErrNoProtocol   = errors.New("no key has been sent")
)
