package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alejandrodnm/swingbot/internal/domain"
)

type snapshotWriter interface {
	ReplaceSnapshot(ctx context.Context, snap domain.MarketSnapshot) error
}

// importSnapshot hace de job de ingestión local: carga un snapshot desde JSON
// y reemplaza el actual. Acepta {"coins": [...], "fetched_at": ...} o un array de coins.
func importSnapshot(ctx context.Context, w snapshotWriter, path string, now time.Time) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("importSnapshot: read %q: %w", path, err)
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return fmt.Errorf("importSnapshot: %w", err)
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = now
	}
	if err := w.ReplaceSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("importSnapshot: %w", err)
	}
	slog.Info("snapshot imported", "coins", len(snap.Coins), "fetched_at", snap.FetchedAt)
	return nil
}

func decodeSnapshot(data []byte) (domain.MarketSnapshot, error) {
	var snap domain.MarketSnapshot
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &snap.Coins); err != nil {
			return snap, fmt.Errorf("decode coins: %w", err)
		}
		return snap, nil
	}
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return snap, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
