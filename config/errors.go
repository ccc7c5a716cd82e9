package config

import "errors"

var (
	ErrInvalidTransport = errors.New("config: invalid transport")
	ErrInvalidPort      = errors.New("config: invalid port")
	ErrInvalidDuration  = errors.New("config: invalid duration")
)
