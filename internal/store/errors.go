package store

import "errors"

var (
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrInvalidTransition   = errors.New("invalid ticket status transition")
	ErrPlayerAlreadyQueued = errors.New("player already has a waiting ticket for this title")
	ErrQueueNotFound       = errors.New("queue configuration not found")
	ErrMatchNotFound       = errors.New("match not found")
)
