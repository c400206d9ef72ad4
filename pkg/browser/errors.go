package browser

import "errors"

var (
	ErrUnknownEngine    = errors.New("unknown browser engine")
	ErrInvalidNamespace = errors.New("invalid namespace")
	ErrPageClosed       = errors.New("page closed")
)
