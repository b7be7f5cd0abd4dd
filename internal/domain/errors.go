package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnavailable     = errors.New("price unavailable")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUnknownExchange = errors.New("unknown exchange")
)
