package apperrors

import "errors"

// Standardized gateway and trading errors
var (
	ErrNotConnected          = errors.New("websocket not connected")
	ErrConnectionFailed      = errors.New("connection failed")
	ErrAuthenticationFailed  = errors.New("authentication failed")
	ErrSocketError           = errors.New("socket error")
	ErrSocketClosed          = errors.New("socket closed")
	ErrInstrumentNotTradable = errors.New("instrument not tradable")
	ErrAlreadySubscribed     = errors.New("already subscribed to channel")
)
