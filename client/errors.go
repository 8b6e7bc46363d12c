package client

import "errors"

var (
	ErrNotConnected = errors.New("WebSocket connection not established")
)
