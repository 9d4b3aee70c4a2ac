package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mkweon/asset-tracker/internal/apperrors"
	"github.com/mkweon/asset-tracker/internal/model"
)

// AssetRepository provides data access methods for the assets table.
type AssetRepository struct {
	db *sql.DB
}

// NewAssetRepository creates a new AssetRepository with the provided database connection.
func NewAssetRepository(db *sql.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

const assetColumns = `id, user_id, name, symbol, asset_type, quantity,
          last_price_krw, last_price_usd, last_updated, last_source`

func scanAsset(scan func(...any) error) (model.Asset, error) {
	var a model.Asset
	err := scan(
		&a.ID,
		&a.UserID,
		&a.Name,
		&a.Symbol,
		&a.AssetType,
		&a.Quantity,
		&a.LastPriceKRW,
		&a.LastPriceUSD,
		&a.LastUpdated,
		&a.Source,
	)
	return a, err
}

// GetByUserID retrieves all assets owned by a user.
// Returns an empty slice when the user has no assets.
func (r *AssetRepository) GetByUserID(userID string) ([]model.Asset, error) {
	query := `
          SELECT ` + assetColumns + `
          FROM assets
          WHERE user_id = ?
          ORDER BY rowid
      `
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets table: %w", err)
	}
	defer rows.Close()

	assets := []model.Asset{}

	for rows.Next() {
		a, err := scanAsset(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assets table results: %w", err)
		}
		assets = append(assets, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets table: %w", err)
	}

	return assets, nil
}

// GetAll retrieves every asset in the system. Used by the scheduled refresh job.
func (r *AssetRepository) GetAll() ([]model.Asset, error) {
	query := `
          SELECT ` + assetColumns + `
          FROM assets
          ORDER BY rowid
      `
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets table: %w", err)
	}
	defer rows.Close()

	assets := []model.Asset{}

	for rows.Next() {
		a, err := scanAsset(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assets table results: %w", err)
		}
		assets = append(assets, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets table: %w", err)
	}

	return assets, nil
}

// GetOnID retrieves a single asset, scoped to its owner.
func (r *AssetRepository) GetOnID(userID, assetID string) (model.Asset, error) {
	query := `
          SELECT ` + assetColumns + `
          FROM assets
          WHERE id = ? AND user_id = ?
      `
	a, err := scanAsset(r.db.QueryRow(query, assetID, userID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Asset{}, apperrors.ErrAssetNotFound
	}
	if err != nil {
		return model.Asset{}, fmt.Errorf("failed to query asset: %w", err)
	}

	return a, nil
}

// Create inserts a new asset.
func (r *AssetRepository) Create(a model.Asset) error {
	query := `
          INSERT INTO assets (id, user_id, name, symbol, asset_type, quantity,
              last_price_krw, last_price_usd, last_updated, last_source)
          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
      `
	_, err := r.db.Exec(query,
		a.ID, a.UserID, a.Name, a.Symbol, a.AssetType, a.Quantity,
		a.LastPriceKRW, a.LastPriceUSD, a.LastUpdated, a.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	return nil
}

// Update persists all mutable fields of an asset, scoped to its owner.
func (r *AssetRepository) Update(a model.Asset) error {
	query := `
          UPDATE assets
          SET name = ?, symbol = ?, asset_type = ?, quantity = ?,
              last_price_krw = ?, last_price_usd = ?, last_updated = ?, last_source = ?
          WHERE id = ? AND user_id = ?
      `
	result, err := r.db.Exec(query,
		a.Name, a.Symbol, a.AssetType, a.Quantity,
		a.LastPriceKRW, a.LastPriceUSD, a.LastUpdated, a.Source,
		a.ID, a.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrAssetNotFound
	}
	return nil
}

// Delete removes an asset, scoped to its owner.
func (r *AssetRepository) Delete(userID, assetID string) error {
	result, err := r.db.Exec(`DELETE FROM assets WHERE id = ? AND user_id = ?`, assetID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrAssetNotFound
	}
	return nil
}
