// Package sqlite provides a SQLite-backed cafe storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sqlitemigrate "github.com/louisbranch/cafes/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/cafes/internal/services/cafes/storage"
	"github.com/louisbranch/cafes/internal/services/cafes/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const cafeColumns = `id, name, map_url, img_url, location, seats, has_toilet, has_wifi, has_sockets, can_take_calls, coffee_price`

// Store persists cafes in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite cafe store and applies embedded migrations. The parent
// directory is created when missing.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	sqlDB, err := sql.Open("sqlite", dsn(cleanPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return newStore(sqlDB), nil
}

// dsn applies pragmas on every pooled connection. Writers wait on the busy
// timeout instead of failing, and transactions take the write lock up front.
func dsn(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_txlock=immediate"
}

func newStore(sqlDB *sql.DB) *Store {
	return &Store{sqlDB: sqlDB}
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// ListCafes returns cafes matching filter in id order.
func (s *Store) ListCafes(ctx context.Context, filter storage.Condition) ([]storage.Cafe, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query := `SELECT ` + cafeColumns + ` FROM cafes`
	var args []any
	if !filter.IsZero() {
		query += ` WHERE (` + filter.Clause + `)`
		args = filter.Args
	}
	query += ` ORDER BY id ASC`

	cafes, err := s.queryCafes(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cafes: %w", err)
	}
	return cafes, nil
}

// GetCafe returns one cafe by id.
func (s *Store) GetCafe(ctx context.Context, id int64) (storage.Cafe, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Cafe{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+cafeColumns+` FROM cafes WHERE id = ?`, id)
	cafe, err := scanCafe(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Cafe{}, storage.ErrNotFound
		}
		return storage.Cafe{}, fmt.Errorf("get cafe: %w", err)
	}
	return cafe, nil
}

// ListCafesByLocation returns cafes whose location equals location exactly.
func (s *Store) ListCafesByLocation(ctx context.Context, location string) ([]storage.Cafe, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	cafes, err := s.queryCafes(ctx,
		`SELECT `+cafeColumns+` FROM cafes WHERE location = ? ORDER BY id ASC`,
		location,
	)
	if err != nil {
		return nil, fmt.Errorf("list cafes by location: %w", err)
	}
	return cafes, nil
}

// RandomCafe returns one cafe chosen uniformly at random.
func (s *Store) RandomCafe(ctx context.Context) (storage.Cafe, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Cafe{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+cafeColumns+` FROM cafes ORDER BY RANDOM() LIMIT 1`)
	cafe, err := scanCafe(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Cafe{}, storage.ErrEmptyStore
		}
		return storage.Cafe{}, fmt.Errorf("random cafe: %w", err)
	}
	return cafe, nil
}

// CreateCafe inserts cafe and returns it with its assigned id.
func (s *Store) CreateCafe(ctx context.Context, cafe storage.Cafe) (storage.Cafe, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Cafe{}, err
	}
	cafe = cafe.Normalize()
	if missing := cafe.MissingFields(); len(missing) > 0 {
		return storage.Cafe{}, fmt.Errorf("%w: missing %s", storage.ErrInvalidCafe, strings.Join(missing, ", "))
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO cafes (
		   name,
		   map_url,
		   img_url,
		   location,
		   seats,
		   has_toilet,
		   has_wifi,
		   has_sockets,
		   can_take_calls,
		   coffee_price
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cafe.Name,
		cafe.MapURL,
		cafe.ImgURL,
		cafe.Location,
		cafe.Seats,
		boolToInt(cafe.HasToilet),
		boolToInt(cafe.HasWifi),
		boolToInt(cafe.HasSockets),
		boolToInt(cafe.CanTakeCalls),
		nullableString(cafe.CoffeePrice),
	)
	if err != nil {
		if isCafeUniqueViolation(err) {
			return storage.Cafe{}, storage.ErrAlreadyExists
		}
		return storage.Cafe{}, fmt.Errorf("create cafe: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.Cafe{}, fmt.Errorf("create cafe: %w", err)
	}
	cafe.ID = id
	return cafe, nil
}

// UpdateCafePrice sets the coffee price of one cafe and returns the updated
// record. No other column is touched.
func (s *Store) UpdateCafePrice(ctx context.Context, id int64, price string) (storage.Cafe, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Cafe{}, err
	}
	price = strings.TrimSpace(price)
	if price == "" {
		return storage.Cafe{}, fmt.Errorf("%w: price is required", storage.ErrMissingArgument)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.Cafe{}, fmt.Errorf("update cafe price: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `UPDATE cafes SET coffee_price = ? WHERE id = ?`, price, id)
	if err != nil {
		return storage.Cafe{}, fmt.Errorf("update cafe price: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.Cafe{}, fmt.Errorf("update cafe price: %w", err)
	}
	if affected == 0 {
		return storage.Cafe{}, storage.ErrNotFound
	}

	cafe, err := scanCafe(tx.QueryRowContext(ctx, `SELECT `+cafeColumns+` FROM cafes WHERE id = ?`, id))
	if err != nil {
		return storage.Cafe{}, fmt.Errorf("update cafe price: reload: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return storage.Cafe{}, fmt.Errorf("update cafe price: commit: %w", err)
	}
	return cafe, nil
}

// DeleteCafe removes one cafe by id.
func (s *Store) DeleteCafe(ctx context.Context, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM cafes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete cafe: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cafe: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) queryCafes(ctx context.Context, query string, args ...any) ([]storage.Cafe, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cafes := make([]storage.Cafe, 0)
	for rows.Next() {
		cafe, err := scanCafe(rows)
		if err != nil {
			return nil, err
		}
		cafes = append(cafes, cafe)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cafes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCafe(row rowScanner) (storage.Cafe, error) {
	var (
		cafe                                    storage.Cafe
		hasToilet, hasWifi, hasSockets, canCall int64
		price                                   sql.NullString
	)
	if err := row.Scan(
		&cafe.ID,
		&cafe.Name,
		&cafe.MapURL,
		&cafe.ImgURL,
		&cafe.Location,
		&cafe.Seats,
		&hasToilet,
		&hasWifi,
		&hasSockets,
		&canCall,
		&price,
	); err != nil {
		return storage.Cafe{}, err
	}
	cafe.HasToilet = hasToilet != 0
	cafe.HasWifi = hasWifi != 0
	cafe.HasSockets = hasSockets != 0
	cafe.CanTakeCalls = canCall != 0
	if price.Valid {
		value := price.String
		cafe.CoffeePrice = &value
	}
	return cafe, nil
}

func boolToInt(value bool) int64 {
	if value {
		return 1
	}
	return 0
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func isCafeUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "cafes.name")
}

var _ storage.CafeStore = (*Store)(nil)
