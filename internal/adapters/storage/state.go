package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/swingbot/internal/domain"
)

// ensureState crea la fila de system_state si falta (inicialización lazy).
func (s *SQLiteStorage) ensureState(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO system_state (id, mode, last_scan_at, updated_at)
		VALUES (1, ?, NULL, ?)`,
		s.defaultMode, formatTime(time.Now()))
	return err
}

// SystemState returns the state row, creating it with defaults if missing.
func (s *SQLiteStorage) SystemState(ctx context.Context) (domain.SystemState, error) {
	if err := s.ensureState(ctx); err != nil {
		return domain.SystemState{}, fmt.Errorf("storage.SystemState: init: %w", err)
	}

	var (
		mode, updatedAt string
		lastScan        sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT mode, last_scan_at, updated_at FROM system_state WHERE id = 1`,
	).Scan(&mode, &lastScan, &updatedAt)
	if err != nil {
		return domain.SystemState{}, fmt.Errorf("storage.SystemState: %w", err)
	}

	st := domain.SystemState{Mode: domain.ParseMode(mode)}
	if st.LastScanAt, err = parseNullTime(lastScan); err != nil {
		return domain.SystemState{}, fmt.Errorf("storage.SystemState: parse last_scan_at: %w", err)
	}
	if st.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.SystemState{}, fmt.Errorf("storage.SystemState: parse updated_at: %w", err)
	}
	return st, nil
}

// SetMode persiste el modo de operación (paper | live).
func (s *SQLiteStorage) SetMode(ctx context.Context, mode domain.Mode) error {
	if err := s.ensureState(ctx); err != nil {
		return fmt.Errorf("storage.SetMode: init: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE system_state SET mode = ?, updated_at = ? WHERE id = 1`,
		string(mode), formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("storage.SetMode: %w", err)
	}
	return nil
}

// ClaimScan is a compare-and-set on last_scan_at: it succeeds only if the
// previous scan is at least interval older than now. Two invocations racing
// inside the same interval cannot both claim the scan.
func (s *SQLiteStorage) ClaimScan(ctx context.Context, now time.Time, interval time.Duration) (bool, error) {
	if err := s.ensureState(ctx); err != nil {
		return false, fmt.Errorf("storage.ClaimScan: init: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE system_state SET last_scan_at = ?, updated_at = ?
		WHERE id = 1 AND (last_scan_at IS NULL OR last_scan_at <= ?)`,
		formatTime(now), formatTime(now), formatTime(now.Add(-interval)))
	if err != nil {
		return false, fmt.Errorf("storage.ClaimScan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage.ClaimScan: rows affected: %w", err)
	}
	return n == 1, nil
}
