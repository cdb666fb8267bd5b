package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"reflect"
	"strconv"
	"testing"
	"time"

	"junctionflow/config"
	"junctionflow/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), config.DatabaseConfig{
		Driver:    "sqlite",
		Path:      ":memory:",
		BatchSize: 4,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// setupTestPostgres returns nil when no PostgreSQL server is reachable.
func setupTestPostgres(t *testing.T) *Store {
	t.Helper()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return nil
	}
	port, _ := strconv.Atoi(os.Getenv("POSTGRES_PORT"))
	if port == 0 {
		port = 5432
	}

	store, err := Open(context.Background(), config.DatabaseConfig{
		Driver:         "postgres",
		Host:           host,
		Port:           port,
		User:           os.Getenv("POSTGRES_USER"),
		Password:       os.Getenv("POSTGRES_PASSWORD"),
		Name:           os.Getenv("POSTGRES_DB"),
		SSLMode:        "disable",
		ConnectTimeout: 3 * time.Second,
	})
	if err != nil {
		return nil
	}
	return store
}

func sampleRecords(n int, stamp string) []models.JunctionRecord {
	out := make([]models.JunctionRecord, n)
	for i := range out {
		out[i] = models.JunctionRecord{
			JunctionName:        "J" + strconv.Itoa(i+1),
			PrimaryDirection:    "Northbound",
			PrimarySpeedLimit:   70,
			PrimaryAvgSpeed:     60.25 + float64(i),
			SecondaryDirection:  "Southbound",
			SecondarySpeedLimit: 50 + 10*(i%3),
			SecondaryAvgSpeed:   41.07 + float64(i),
			RecordTime:          stamp,
			RecordDate:          "2024-05-01",
			DayOfWeek:           "Wednesday",
		}
	}
	return out
}

func TestAppendAndReadAll(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	batch := sampleRecords(10, "09:00:00")
	if err := store.Append(ctx, batch); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	rows, err := store.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if !reflect.DeepEqual(rows, batch) {
		t.Errorf("ReadAll() = %+v, want %+v", rows, batch)
	}
}

func TestAppendIsAppendOnly(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := sampleRecords(3, "09:00:00")
	second := sampleRecords(3, "09:15:00")
	if err := store.Append(ctx, first); err != nil {
		t.Fatalf("Append(first) error: %v", err)
	}
	if err := store.Append(ctx, second); err != nil {
		t.Fatalf("Append(second) error: %v", err)
	}

	rows, err := store.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("len(rows) = %d, want 6", len(rows))
	}
	if !reflect.DeepEqual(rows[:3], first) {
		t.Error("existing rows changed after a second append")
	}
	if !reflect.DeepEqual(rows[3:], second) {
		t.Error("appended rows do not match the batch")
	}
}

func TestAppendDuplicatesAreKept(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	batch := sampleRecords(2, "10:00:00")
	for i := 0; i < 2; i++ {
		if err := store.Append(ctx, batch); err != nil {
			t.Fatalf("Append() #%d error: %v", i+1, err)
		}
	}

	n, err := store.Count(ctx, "")
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 4 {
		t.Errorf("Count() = %d, want 4", n)
	}
}

func TestAppendEmptyBatchIsNoop(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Append(context.Background(), nil); err != nil {
		t.Fatalf("Append(nil) error: %v", err)
	}
	if store.DB().Migrator().HasTable(&models.JunctionRecord{}) {
		t.Error("empty batch should not create the table")
	}
}

func TestReadAllMissingTable(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.ReadAll(context.Background())
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if storageErr.Op != "read" {
		t.Errorf("Op = %q, want %q", storageErr.Op, "read")
	}
}

func TestAppendAfterCloseFails(t *testing.T) {
	store := setupTestStore(t)
	_ = store.Close()

	err := store.Append(context.Background(), sampleRecords(1, "11:00:00"))
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

func tableColumns(t *testing.T, store *Store) int {
	t.Helper()
	cols, err := store.DB().Migrator().ColumnTypes(&models.JunctionRecord{})
	if err != nil {
		t.Fatalf("column types: %v", err)
	}
	return len(cols)
}

func TestAppendRejectsMismatchedTable(t *testing.T) {
	tests := []struct {
		name    string
		ddl     string
		columns int
	}{
		{
			name:    "missing columns",
			ddl:     "CREATE TABLE junction_data (junction_name text, primary_direction text)",
			columns: 2,
		},
		{
			name: "unexpected column",
			ddl: "CREATE TABLE junction_data (junction_name text, primary_direction text, " +
				"primary_speed_limit integer, primary_avg_speed real, secondary_direction text, " +
				"secondary_speed_limit integer, secondary_avg_speed real, record_time text, " +
				"record_date text, day_of_week text, source text)",
			columns: 11,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			ctx := context.Background()
			if err := store.DB().Exec(tt.ddl).Error; err != nil {
				t.Fatalf("create table: %v", err)
			}

			err := store.Append(ctx, sampleRecords(1, "09:00:00"))
			var storageErr *StorageError
			if !errors.As(err, &storageErr) {
				t.Fatalf("expected StorageError, got %v", err)
			}
			if storageErr.Op != "schema" {
				t.Errorf("Op = %q, want %q", storageErr.Op, "schema")
			}
			if got := tableColumns(t, store); got != tt.columns {
				t.Errorf("table has %d columns after Append, want %d unchanged", got, tt.columns)
			}
		})
	}
}

func TestAppendAcceptsExistingMatchingTable(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	ddl := "CREATE TABLE junction_data (junction_name text, primary_direction text, " +
		"primary_speed_limit integer, primary_avg_speed real, secondary_direction text, " +
		"secondary_speed_limit integer, secondary_avg_speed real, record_time text, " +
		"record_date text, day_of_week text)"
	if err := store.DB().Exec(ddl).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}

	batch := sampleRecords(2, "09:00:00")
	if err := store.Append(ctx, batch); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	rows, err := store.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if !reflect.DeepEqual(rows, batch) {
		t.Errorf("ReadAll() = %+v, want %+v", rows, batch)
	}
}

func TestEnsureTableCreatesModelColumns(t *testing.T) {
	store := setupTestStore(t)
	if err := store.EnsureTable(context.Background()); err != nil {
		t.Fatalf("EnsureTable() error: %v", err)
	}
	if got := tableColumns(t, store); got != len(models.Columns) {
		t.Errorf("created %d columns, want %d", got, len(models.Columns))
	}
	if err := store.EnsureTable(context.Background()); err != nil {
		t.Errorf("EnsureTable() on an existing table error: %v", err)
	}
}

func TestListAndCount(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, sampleRecords(3, "08:00:00")); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if err := store.Append(ctx, sampleRecords(3, "08:15:00")); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	page, err := store.List(ctx, 2, 0, "")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("len(page) = %d, want 2", len(page))
	}
	if page[0].RecordTime != "08:15:00" || page[0].JunctionName != "J1" {
		t.Errorf("first row = %+v, want newest J1", page[0])
	}

	rest, err := store.List(ctx, 10, 2, "")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(rest) != 4 {
		t.Errorf("len(rest) = %d, want 4", len(rest))
	}

	j2, err := store.List(ctx, 10, 0, "J2")
	if err != nil {
		t.Fatalf("List(J2) error: %v", err)
	}
	if len(j2) != 2 {
		t.Errorf("len(J2 rows) = %d, want 2", len(j2))
	}

	n, err := store.Count(ctx, "J3")
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 2 {
		t.Errorf("Count(J3) = %d, want 2", n)
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "oracle"})
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

func TestCanCopy(t *testing.T) {
	if setupTestStore(t).CanCopy() {
		t.Error("sqlite store should not report COPY support")
	}
}

func TestCopyCSVPostgres(t *testing.T) {
	store := setupTestPostgres(t)
	if store == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer store.Close()
	ctx := context.Background()

	cleanup := func() {
		_ = store.DB().Exec("DROP TABLE IF EXISTS junction_data").Error
	}
	cleanup()
	defer cleanup()

	batch := sampleRecords(3, "12:00:00")
	if err := store.Append(ctx, batch); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	var buf bytes.Buffer
	if err := store.CopyCSV(ctx, &buf); err != nil {
		t.Fatalf("CopyCSV() error: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse copy output: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("len(rows) = %d, want header + 3", len(rows))
	}
	if !reflect.DeepEqual(rows[0], models.Columns) {
		t.Errorf("header = %v, want %v", rows[0], models.Columns)
	}
}
