package storage

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// SavePrices guarda la serie de precios de un token. Los puntos repetidos se ignoran.
func (s *SQLiteStorage) SavePrices(ctx context.Context, tokenID string, history []domain.PricePoint) error {
	if len(history) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SavePrices: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO price_history (token_id, ts, price) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SavePrices: prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range history {
		if _, err := stmt.ExecContext(ctx, tokenID, formatTime(p.At), p.Price); err != nil {
			return fmt.Errorf("storage.SavePrices %s: %w", tokenID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SavePrices: commit: %w", err)
	}
	return nil
}

// Prices devuelve la serie cacheada de un token ordenada por tiempo.
// Un token sin cache devuelve un slice vacío sin error.
func (s *SQLiteStorage) Prices(ctx context.Context, tokenID string) ([]domain.PricePoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, price FROM price_history WHERE token_id = ? ORDER BY ts`, tokenID)
	if err != nil {
		return nil, fmt.Errorf("storage.Prices: query: %w", err)
	}
	defer rows.Close()

	var out []domain.PricePoint
	for rows.Next() {
		var ts string
		var p domain.PricePoint
		if err := rows.Scan(&ts, &p.Price); err != nil {
			return nil, fmt.Errorf("storage.Prices: scan row: %w", err)
		}
		p.At = parseTime(ts)
		out = append(out, p)
	}
	return out, rows.Err()
}
