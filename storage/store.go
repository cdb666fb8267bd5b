// Package storage appends junction records to the junction_data table and
// reads them back. Postgres is the default backend; MySQL and SQLite are
// selected through DB_DRIVER.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"junctionflow/config"
	"junctionflow/models"

	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// StorageError wraps any connection, schema, write or read failure against
// the relational store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

type Store struct {
	db        *gorm.DB
	driver    string
	batchSize int
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	if cfg.Driver == "sqlite" {
		// One connection keeps ":memory:" databases shared and writes serialised.
		sqlDB.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, &StorageError{Op: "ping", Err: err}
	}

	return New(db, cfg.Driver, cfg.BatchSize), nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, driver string, batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Store{db: db, driver: driver, batchSize: batchSize}
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres", "":
		return postgres.Open(cfg.GetDSN()), nil
	case "mysql":
		return mysql.Open(cfg.GetDSN()), nil
	case "sqlite":
		return sqlite.Open(cfg.GetDSN()), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the connection is still usable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return &StorageError{Op: "ping", Err: err}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return &StorageError{Op: "ping", Err: err}
	}
	return nil
}

// EnsureTable creates junction_data from the record model if it is missing.
// An existing table is never altered: its columns must match the model
// exactly or a schema StorageError is returned.
func (s *Store) EnsureTable(ctx context.Context) error {
	migrator := s.db.WithContext(ctx).Migrator()
	if !migrator.HasTable(&models.JunctionRecord{}) {
		if err := migrator.CreateTable(&models.JunctionRecord{}); err != nil {
			return &StorageError{Op: "create", Err: err}
		}
		return nil
	}

	columnTypes, err := migrator.ColumnTypes(&models.JunctionRecord{})
	if err != nil {
		return &StorageError{Op: "schema", Err: err}
	}
	names := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		names[i] = ct.Name()
	}
	if err := checkColumns(names); err != nil {
		return &StorageError{Op: "schema", Err: err}
	}
	return nil
}

// checkColumns compares table column names with models.Columns, ignoring
// order and case.
func checkColumns(names []string) error {
	want := make(map[string]bool, len(models.Columns))
	for _, c := range models.Columns {
		want[c] = true
	}
	have := make(map[string]bool, len(names))
	var extra []string
	for _, n := range names {
		n = strings.ToLower(n)
		have[n] = true
		if !want[n] {
			extra = append(extra, n)
		}
	}
	var missing []string
	for _, c := range models.Columns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	return fmt.Errorf("%s does not match the record model (missing %v, unexpected %v)",
		models.JunctionRecord{}.TableName(), missing, extra)
}

// Append inserts the batch in one transaction, creating the table on first
// use. Rows are never deduplicated.
func (s *Store) Append(ctx context.Context, records []models.JunctionRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.EnsureTable(ctx); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(records, s.batchSize).Error
	})
	if err != nil {
		return &StorageError{Op: "append", Err: err}
	}
	return nil
}

// ReadAll returns every row of junction_data without filtering or paging.
func (s *Store) ReadAll(ctx context.Context) ([]models.JunctionRecord, error) {
	var rows []models.JunctionRecord
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, &StorageError{Op: "read", Err: err}
	}
	return rows, nil
}

// List returns one page of rows, newest capture first, optionally limited to
// one junction name.
func (s *Store) List(ctx context.Context, limit, offset int, junction string) ([]models.JunctionRecord, error) {
	query := s.db.WithContext(ctx).
		Model(&models.JunctionRecord{}).
		Order("record_date DESC").
		Order("record_time DESC").
		Order("junction_name").
		Limit(limit).
		Offset(offset)
	if junction != "" {
		query = query.Where("junction_name = ?", junction)
	}

	var rows []models.JunctionRecord
	if err := query.Find(&rows).Error; err != nil {
		return nil, &StorageError{Op: "read", Err: err}
	}
	return rows, nil
}

// Count returns the number of rows, optionally for one junction name.
func (s *Store) Count(ctx context.Context, junction string) (int64, error) {
	query := s.db.WithContext(ctx).Model(&models.JunctionRecord{})
	if junction != "" {
		query = query.Where("junction_name = ?", junction)
	}
	var n int64
	if err := query.Count(&n).Error; err != nil {
		return 0, &StorageError{Op: "count", Err: err}
	}
	return n, nil
}

// CanCopy reports whether CopyCSV is available for this backend.
func (s *Store) CanCopy() bool { return s.driver == "postgres" }

var copySQL = fmt.Sprintf(
	"COPY %s (%s) TO STDOUT WITH (FORMAT csv, HEADER true)",
	models.JunctionRecord{}.TableName(), strings.Join(models.Columns, ", "),
)

// CopyCSV streams the whole table as CSV using the server-side COPY protocol.
// Only Postgres connections support it.
func (s *Store) CopyCSV(ctx context.Context, w io.Writer) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return &StorageError{Op: "copy", Err: err}
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return &StorageError{Op: "copy", Err: err}
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn any) error {
		pc, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("driver connection %T does not support COPY", driverConn)
		}
		_, err := pc.Conn().PgConn().CopyTo(ctx, w, copySQL)
		return err
	})
	if err != nil {
		return &StorageError{Op: "copy", Err: err}
	}
	return nil
}
