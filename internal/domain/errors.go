package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrMalformedUpdate = errors.New("malformed book update")
	ErrLengthMismatch  = errors.New("input series lengths differ")
	ErrWSDisconnect    = errors.New("websocket disconnected")
)
