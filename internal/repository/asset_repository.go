package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"photoshelf/internal/database"
	"photoshelf/internal/ids"
	"photoshelf/internal/models"
)

// PersistenceError wraps any failure reported by the relational store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type AssetRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewAssetRepository(db *database.DB) *AssetRepository {
	return &AssetRepository{db: db.DB, dialect: db.Dialect}
}

// Insert stores a new asset and returns its id. ID and UploadedAt are
// assigned when left empty.
func (r *AssetRepository) Insert(ctx context.Context, asset models.Asset) (string, error) {
	const query = `
		INSERT INTO assets (
			id, filename, storage_key, photographer, description,
			content_type, size_bytes, uploaded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if asset.ID == "" {
		asset.ID = ids.New()
	}
	if asset.UploadedAt.IsZero() {
		asset.UploadedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		asset.ID,
		asset.Filename,
		asset.StorageKey,
		asset.Photographer,
		asset.Description,
		asset.ContentType,
		asset.SizeBytes,
		asset.UploadedAt.UnixMicro(),
	)
	if err != nil {
		return "", &PersistenceError{Op: "insert", Err: err}
	}
	return asset.ID, nil
}

// Query returns assets newest first. A non-empty search keeps only assets
// whose description or photographer contains it, compared case-sensitively.
func (r *AssetRepository) Query(ctx context.Context, search string) ([]models.Asset, error) {
	const columns = `
		SELECT id, filename, storage_key, photographer, description,
		       content_type, size_bytes, uploaded_at
		FROM assets
	`
	const order = ` ORDER BY uploaded_at DESC, id DESC`

	var (
		rows *sql.Rows
		err  error
	)
	if search == "" {
		rows, err = r.db.QueryContext(ctx, columns+order)
	} else {
		rows, err = r.db.QueryContext(ctx, columns+r.containsClause()+order, search)
	}
	if err != nil {
		return nil, &PersistenceError{Op: "query", Err: err}
	}
	defer rows.Close()

	var assets []models.Asset
	for rows.Next() {
		var (
			asset      models.Asset
			uploadedAt int64
		)
		if err := rows.Scan(
			&asset.ID,
			&asset.Filename,
			&asset.StorageKey,
			&asset.Photographer,
			&asset.Description,
			&asset.ContentType,
			&asset.SizeBytes,
			&uploadedAt,
		); err != nil {
			return nil, &PersistenceError{Op: "scan", Err: err}
		}
		asset.UploadedAt = time.UnixMicro(uploadedAt).UTC()
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "query", Err: err}
	}
	return assets, nil
}

// LIKE is case-insensitive on SQLite and treats % and _ as wildcards, so
// substring search goes through the position functions instead.
func (r *AssetRepository) containsClause() string {
	if r.dialect == database.DialectSQLite {
		return ` WHERE instr(description, $1) > 0 OR instr(photographer, $1) > 0`
	}
	return ` WHERE strpos(description, $1) > 0 OR strpos(photographer, $1) > 0`
}

func (r *AssetRepository) StorageKeys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT storage_key FROM assets`)
	if err != nil {
		return nil, &PersistenceError{Op: "storage keys", Err: err}
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, &PersistenceError{Op: "scan", Err: err}
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "storage keys", Err: err}
	}
	return keys, nil
}

func (r *AssetRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
