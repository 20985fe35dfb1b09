package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/qbank/internal/domain"
)

const sourceColumns = `id, account_id, path, type, last_scanned`

// InsertSource inserts a new source path for an account and returns its ID.
func (db *DB) InsertSource(ctx context.Context, accountID, path string, sourceType domain.SourceType) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (account_id, path, type)
		VALUES (?, ?, ?)
	`, accountID, path, string(sourceType))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("source %s: %w", path, domain.ErrConflict)
		}
		return 0, unavailable(fmt.Sprintf("failed to insert source %s", path), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, unavailable(fmt.Sprintf("failed to get last insert ID for source %s", path), err)
	}
	return id, nil
}

// FindSourceByPath retrieves an account's source by its path.
func (db *DB) FindSourceByPath(ctx context.Context, accountID, path string) (*domain.Source, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+sourceColumns+`
		FROM sources WHERE account_id = ? AND path = ?
	`, accountID, path)

	s, err := scanSource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("source %s: %w", path, domain.ErrNotFound)
		}
		return nil, unavailable(fmt.Sprintf("failed to find source by path %s", path), err)
	}
	return s, nil
}

// GetAllSources retrieves every stored source, across accounts.
func (db *DB) GetAllSources(ctx context.Context) ([]domain.Source, error) {
	return db.listSources(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY id`)
}

// ListSources retrieves the sources owned by accountID.
func (db *DB) ListSources(ctx context.Context, accountID string) ([]domain.Source, error) {
	return db.listSources(ctx, `SELECT `+sourceColumns+` FROM sources WHERE account_id = ? ORDER BY id`, accountID)
}

func (db *DB) listSources(ctx context.Context, query string, args ...any) ([]domain.Source, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("failed to get sources", err)
	}
	defer rows.Close()

	sources := []domain.Source{}
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, unavailable("failed to scan source row", err)
		}
		sources = append(sources, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("failed to iterate source rows", err)
	}
	return sources, nil
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, sourceID int64, at time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, toUnix(at), sourceID)
	if err != nil {
		return unavailable(fmt.Sprintf("failed to update last scanned for source ID %d", sourceID), err)
	}
	return nil
}

// DeleteSource removes an account's source. Questions imported from it are
// removed by the foreign key cascade.
func (db *DB) DeleteSource(ctx context.Context, accountID string, sourceID int64) error {
	res, err := db.conn.ExecContext(ctx, `
		DELETE FROM sources
		WHERE id = ? AND account_id = ?
	`, sourceID, accountID)
	if err != nil {
		return unavailable(fmt.Sprintf("failed to delete source ID %d", sourceID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(fmt.Sprintf("failed to read affected rows for source ID %d", sourceID), err)
	}
	if n == 0 {
		return fmt.Errorf("source %d: %w", sourceID, domain.ErrNotFound)
	}
	return nil
}

func scanSource(row rowScanner) (*domain.Source, error) {
	var s domain.Source
	var sourceType string
	var lastScanned sql.NullInt64
	if err := row.Scan(&s.ID, &s.AccountID, &s.Path, &sourceType, &lastScanned); err != nil {
		return nil, err
	}
	s.Type = domain.SourceType(sourceType)
	s.LastScanned = nullTime(lastScanned)
	return &s, nil
}
