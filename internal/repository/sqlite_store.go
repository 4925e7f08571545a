package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"visitstats/internal/domain"
	apperrors "visitstats/pkg/errors"
	"visitstats/pkg/database"
)

// sqliteStore keeps the index as rows in a local SQLite database
type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path and creates the tables
func NewSQLiteStore(ctx context.Context, path string) (VisitStore, error) {
	db, err := database.OpenSQLite(ctx, path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open sqlite store", err)
	}

	if _, err := db.ExecContext(ctx, querySQLiteSchema); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("failed to create sqlite schema", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to begin sqlite read", err)
	}
	defer tx.Rollback()

	snapshot, err := s.load(ctx, tx)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to load snapshot from sqlite", err)
	}
	return snapshot, nil
}

func (s *sqliteStore) load(ctx context.Context, tx *sql.Tx) (*domain.Snapshot, error) {
	snapshot := &domain.Snapshot{}
	var savedAt int64

	err := tx.QueryRowContext(ctx, querySelectMeta).Scan(&snapshot.Version, &snapshot.Total, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		var rows int64
		if err := tx.QueryRowContext(ctx, queryCountBuckets).Scan(&rows); err != nil {
			return nil, fmt.Errorf("failed to count bucket rows: %w", err)
		}
		if rows > 0 {
			return nil, corrupt("%d bucket rows without a meta row", rows)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read meta row: %w", err)
	}
	snapshot.SavedAt = time.UnixMilli(savedAt).UTC()

	rows, err := tx.QueryContext(ctx, querySelectBuckets)
	if err != nil {
		return nil, fmt.Errorf("failed to query bucket rows: %w", err)
	}
	defer rows.Close()

	var asm bucketAssembler
	for rows.Next() {
		var r bucketRow
		if err := rows.Scan(&r.Year, &r.Month, &r.Day, &r.Hour, &r.ClientID, &r.Visits); err != nil {
			return nil, fmt.Errorf("failed to scan bucket row: %w", err)
		}
		asm.add(r.Year, r.Month, r.Day, r.Hour, r.ClientID, r.Visits)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading bucket rows: %w", err)
	}
	snapshot.Buckets = asm.buckets
	if asm.total != snapshot.Total {
		return nil, corrupt("bucket rows sum to %d visits, meta row says %d", asm.total, snapshot.Total)
	}

	clientRows, err := tx.QueryContext(ctx, querySelectClientTotals)
	if err != nil {
		return nil, fmt.Errorf("failed to query client totals: %w", err)
	}
	defer clientRows.Close()

	snapshot.Clients = make(map[string]int64)
	for clientRows.Next() {
		var client string
		var visits int64
		if err := clientRows.Scan(&client, &visits); err != nil {
			return nil, fmt.Errorf("failed to scan client total: %w", err)
		}
		snapshot.Clients[client] = visits
	}
	if err := clientRows.Err(); err != nil {
		return nil, fmt.Errorf("error reading client totals: %w", err)
	}

	return snapshot, nil
}

// Save rewrites every row in one transaction
func (s *sqliteStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	if err := s.save(ctx, snapshot); err != nil {
		return apperrors.NewStorageError("failed to save snapshot to sqlite", err)
	}
	return nil
}

func (s *sqliteStore) save(ctx context.Context, snapshot *domain.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, queryDeleteBuckets); err != nil {
		return fmt.Errorf("failed to clear bucket rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, queryInsertBucketSQLite)
	if err != nil {
		return fmt.Errorf("failed to prepare bucket insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range flatten(snapshot) {
		if _, err := stmt.ExecContext(ctx, r.Year, r.Month, r.Day, r.Hour, r.ClientID, r.Visits); err != nil {
			return fmt.Errorf("failed to insert bucket row: %w", err)
		}
	}

	savedAt := snapshot.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	if _, err := tx.ExecContext(ctx, queryUpsertMetaSQLite, snapshot.Version, snapshot.Total, savedAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to write meta row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
