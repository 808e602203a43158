package client

import "errors"

var (
	ErrUnknownTarget = errors.New("unknown sync target")
	ErrEngineClosed  = errors.New("engine closed")
)
