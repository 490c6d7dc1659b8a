package repository

import (
	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrSessionNotFound is returned when a session does not exist
	ErrSessionNotFound = goerr.New("session not found")
)

const (
	collectionSessions = "sessions"
	defaultListLimit   = 100
)
