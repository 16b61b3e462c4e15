package storage

import (
	"errors"

	"github.com/alejandrodnm/swingbot/internal/ports"
)

var (
	// ErrActiveTradeExists is returned by CreateTrade when a PENDING trade
	// already exists. At most one trade may be in flight.
	ErrActiveTradeExists = ports.ErrActiveTradeExists

	// ErrTradeNotPending is returned when mutating a trade that is already closed.
	ErrTradeNotPending = ports.ErrTradeNotPending

	// ErrSnapshotUnavailable is returned when the ingestion job has not
	// produced a snapshot yet.
	ErrSnapshotUnavailable = ports.ErrSnapshotUnavailable

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
