package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ivanhernandez-dev/url-shortener/pkg/core/domain"
	"github.com/ivanhernandez-dev/url-shortener/pkg/ports"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	moderncsqlite "modernc.org/sqlite"                   // Local SQLite driver
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	dsn := dbURL
	if driverName == "sqlite" {
		dsn = withBusyTimeout(dbURL)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	if driverName == "sqlite" {
		// A single writer connection serialises local writes.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

const busyTimeoutPragma = "_pragma=busy_timeout(5000)"

// withBusyTimeout adds the busy_timeout pragma to a modernc DSN so the driver
// applies it to every connection it opens.
func withBusyTimeout(dsn string) string {
	if strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + busyTimeoutPragma
	}
	return dsn + "?" + busyTimeoutPragma
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		short_code TEXT NOT NULL UNIQUE,
		original_url TEXT NOT NULL,
		owner_id TEXT,
		tenant_id TEXT,
		created_at DATETIME NOT NULL,
		expires_at DATETIME,
		access_count INTEGER NOT NULL DEFAULT 0,
		last_accessed_at DATETIME,
		CHECK (tenant_id IS NULL OR owner_id IS NOT NULL)
	);
	CREATE INDEX IF NOT EXISTS idx_links_owner_id ON links(owner_id);
	`
	_, err := db.Exec(query)
	return err
}

const selectColumns = `id, short_code, original_url, owner_id, tenant_id, created_at, expires_at, access_count, last_accessed_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLink(row rowScanner) (*domain.ShortLink, error) {
	var (
		link           domain.ShortLink
		ownerID        sql.NullString
		tenantID       sql.NullString
		expiresAt      sql.NullTime
		lastAccessedAt sql.NullTime
	)
	err := row.Scan(
		&link.ID, &link.ShortCode, &link.OriginalURL, &ownerID, &tenantID,
		&link.CreatedAt, &expiresAt, &link.AccessCount, &lastAccessedAt,
	)
	if err != nil {
		return nil, err
	}

	if link.OwnerID, err = parseUUID(ownerID); err != nil {
		return nil, err
	}
	if link.TenantID, err = parseUUID(tenantID); err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		link.ExpiresAt = &t
	}
	if lastAccessedAt.Valid {
		t := lastAccessedAt.Time
		link.LastAccessedAt = &t
	}
	return &link, nil
}

func parseUUID(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, fmt.Errorf("parse uuid %q: %w", s.String, err)
	}
	return &id, nil
}

func nullUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	// libsql reports constraint failures as plain text.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *SQLiteRepository) Create(ctx context.Context, link *domain.ShortLink) error {
	query := `INSERT INTO links (short_code, original_url, owner_id, tenant_id, created_at, expires_at, access_count, last_accessed_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		link.ShortCode, link.OriginalURL, nullUUID(link.OwnerID), nullUUID(link.TenantID),
		link.CreatedAt.UTC(), nullTime(link.ExpiresAt), link.AccessCount, nullTime(link.LastAccessedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicateCode
		}
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	link.ID = id
	return nil
}

func (r *SQLiteRepository) GetByShortCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	query := `SELECT ` + selectColumns + ` FROM links WHERE short_code = ?`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *SQLiteRepository) ExistsByShortCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM links WHERE short_code = ?)`, code).Scan(&exists)
	return exists, err
}

func (r *SQLiteRepository) GetByShortCodeAndOwner(ctx context.Context, code string, ownerID uuid.UUID) (*domain.ShortLink, error) {
	query := `SELECT ` + selectColumns + ` FROM links WHERE short_code = ? AND owner_id = ?`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, code, ownerID.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.ShortLink, error) {
	query := `SELECT ` + selectColumns + ` FROM links WHERE owner_id = ? ORDER BY created_at DESC`
	return r.queryLinks(ctx, query, ownerID.String())
}

func (r *SQLiteRepository) DeleteByShortCode(ctx context.Context, code string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE short_code = ?`, code)
	return err
}

func (r *SQLiteRepository) Save(ctx context.Context, link *domain.ShortLink) error {
	query := `UPDATE links SET expires_at = ?, access_count = ?, last_accessed_at = ? WHERE short_code = ?`
	_, err := r.db.ExecContext(ctx, query, nullTime(link.ExpiresAt), link.AccessCount, nullTime(link.LastAccessedAt), link.ShortCode)
	return err
}

func (r *SQLiteRepository) RecordAccess(ctx context.Context, code string, at time.Time) (*domain.ShortLink, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Increment in SQL so concurrent resolutions never lose an update.
	res, err := tx.ExecContext(ctx,
		`UPDATE links SET access_count = access_count + 1, last_accessed_at = ? WHERE short_code = ?`,
		at.UTC(), code)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	link, err := scanLink(tx.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM links WHERE short_code = ?`, code))
	if err != nil {
		return nil, err
	}
	return link, tx.Commit()
}

func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.ShortLink, error) {
	return r.queryLinks(ctx, `SELECT `+selectColumns+` FROM links ORDER BY id`)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) queryLinks(ctx context.Context, query string, args ...interface{}) ([]domain.ShortLink, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.ShortLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, rows.Err()
}

// Ensure interface compliance
var _ ports.LinkRepository = (*SQLiteRepository)(nil)
