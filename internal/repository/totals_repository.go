package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkweon/asset-tracker/internal/kst"
	"github.com/mkweon/asset-tracker/internal/model"
)

// TotalsRepository provides data access methods for the daily_totals and
// daily_asset_totals tables. Days are stored as YYYY-MM-DD strings in KST.
type TotalsRepository struct {
	db *sql.DB
}

// NewTotalsRepository creates a new TotalsRepository with the provided database connection.
func NewTotalsRepository(db *sql.DB) *TotalsRepository {
	return &TotalsRepository{db: db}
}

// GetDailyTotals retrieves a user's daily totals, newest first.
func (r *TotalsRepository) GetDailyTotals(userID string) ([]model.DailyTotal, error) {
	query := `
          SELECT id, user_id, day, total_krw, snapshot_at
          FROM daily_totals
          WHERE user_id = ?
          ORDER BY day DESC
      `
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily_totals table: %w", err)
	}
	defer rows.Close()

	totals := []model.DailyTotal{}

	for rows.Next() {
		var t model.DailyTotal
		var day string
		err := rows.Scan(&t.ID, &t.UserID, &day, &t.TotalKRW, &t.SnapshotAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily_totals table results: %w", err)
		}
		t.Day, err = kst.ParseDay(day)
		if err != nil {
			return nil, fmt.Errorf("failed to parse daily_totals day %q: %w", day, err)
		}
		totals = append(totals, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily_totals table: %w", err)
	}

	return totals, nil
}

// GetDailyTotalOnDay retrieves the stored total for one KST day.
// Returns sql.ErrNoRows wrapped as a nil row (found=false) when absent.
func (r *TotalsRepository) GetDailyTotalOnDay(userID string, day time.Time) (float64, bool, error) {
	query := `
          SELECT total_krw
          FROM daily_totals
          WHERE user_id = ? AND day = ?
      `
	var total float64
	err := r.db.QueryRow(query, userID, kst.FormatDay(day)).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query daily total: %w", err)
	}
	return total, true, nil
}

// UpsertDailyTotal writes a user's total for one KST day. A non-nil
// snapshotAt marks the row as written by an explicit snapshot; updates
// never clear an existing snapshot_at.
func (r *TotalsRepository) UpsertDailyTotal(userID string, day time.Time, total float64, snapshotAt *time.Time) error {
	query := `
          INSERT INTO daily_totals (id, user_id, day, total_krw, snapshot_at)
          VALUES (?, ?, ?, ?, ?)
          ON CONFLICT(user_id, day) DO UPDATE SET
              total_krw = excluded.total_krw,
              snapshot_at = COALESCE(excluded.snapshot_at, daily_totals.snapshot_at)
      `
	_, err := r.db.Exec(query, uuid.NewString(), userID, kst.FormatDay(day), total, snapshotAt)
	if err != nil {
		return fmt.Errorf("failed to upsert daily total: %w", err)
	}
	return nil
}

// UpsertDailyAssetTotal writes one asset's value for one KST day.
func (r *TotalsRepository) UpsertDailyAssetTotal(userID, assetID string, day time.Time, total float64) error {
	query := `
          INSERT INTO daily_asset_totals (id, user_id, asset_id, day, total_krw)
          VALUES (?, ?, ?, ?, ?)
          ON CONFLICT(user_id, asset_id, day) DO UPDATE SET
              total_krw = excluded.total_krw
      `
	_, err := r.db.Exec(query, uuid.NewString(), userID, assetID, kst.FormatDay(day), total)
	if err != nil {
		return fmt.Errorf("failed to upsert daily asset total: %w", err)
	}
	return nil
}

// GetAssetTotalsOnDay retrieves per-asset values for one KST day, keyed by
// asset ID. Assets without a row for that day are simply absent.
func (r *TotalsRepository) GetAssetTotalsOnDay(userID string, day time.Time, assetIDs []string) (map[string]float64, error) {
	if len(assetIDs) == 0 {
		return map[string]float64{}, nil
	}

	placeholders := make([]string, len(assetIDs))
	for i := range placeholders {
		placeholders[i] = "?"
	}

	//#nosec G202 -- Safe: placeholders are generated programmatically, not from user input
	query := `
          SELECT asset_id, total_krw
          FROM daily_asset_totals
          WHERE user_id = ? AND day = ? AND asset_id IN (` + strings.Join(placeholders, ",") + `)
      `
	args := make([]any, 0, len(assetIDs)+2)
	args = append(args, userID, kst.FormatDay(day))
	for _, id := range assetIDs {
		args = append(args, id)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily_asset_totals table: %w", err)
	}
	defer rows.Close()

	totals := map[string]float64{}

	for rows.Next() {
		var assetID string
		var total float64
		if err := rows.Scan(&assetID, &total); err != nil {
			return nil, fmt.Errorf("failed to scan daily_asset_totals table results: %w", err)
		}
		totals[assetID] = total
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily_asset_totals table: %w", err)
	}

	return totals, nil
}
