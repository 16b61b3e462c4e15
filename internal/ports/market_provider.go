package ports

import (
	"context"

	"github.com/alejandrodnm/swingbot/internal/domain"
)

// SnapshotReader reads the latest enriched-coin dataset written by the
// external ingestion job. Read-only for the engine.
type SnapshotReader interface {
	// LatestSnapshot returns the coins of the last ingestion cycle restricted
	// to the query's universe, plus the snapshot's freshness timestamp.
	LatestSnapshot(ctx context.Context, q domain.UniverseQuery) (domain.MarketSnapshot, error)
}

// SnapshotRefresher asks the ingestion collaborator for a fresh snapshot.
// Callers fire it without waiting for the new data.
type SnapshotRefresher interface {
	RequestRefresh(ctx context.Context) error
}
