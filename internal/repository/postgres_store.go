package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"visitstats/internal/domain"
	apperrors "visitstats/pkg/errors"
	"visitstats/pkg/database"
)

var bucketColumns = []string{"year", "month", "day", "hour", "client_id", "visits"}

// postgresStore keeps the index as rows in PostgreSQL
type postgresStore struct {
	db *database.PostgresDB
}

// NewPostgresStore creates the tables if needed and returns the store.
// The pool stays owned by the caller.
func NewPostgresStore(ctx context.Context, db *database.PostgresDB) (VisitStore, error) {
	if _, err := db.Pool.Exec(ctx, PostgresSchema); err != nil {
		return nil, apperrors.NewStorageError("failed to create postgres schema", err)
	}
	return &postgresStore{db: db}, nil
}

func (s *postgresStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	tx, err := s.db.Pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, apperrors.NewStorageError("failed to begin postgres read", err)
	}
	defer tx.Rollback(ctx)

	snapshot, err := s.load(ctx, tx)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to load snapshot from postgres", err)
	}
	return snapshot, nil
}

func (s *postgresStore) load(ctx context.Context, tx pgx.Tx) (*domain.Snapshot, error) {
	snapshot := &domain.Snapshot{}

	err := tx.QueryRow(ctx, querySelectMeta).Scan(&snapshot.Version, &snapshot.Total, &snapshot.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var rows int64
		if err := tx.QueryRow(ctx, queryCountBuckets).Scan(&rows); err != nil {
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

	rows, err := tx.Query(ctx, querySelectBuckets)
	if err != nil {
		return nil, fmt.Errorf("failed to query bucket rows: %w", err)
	}

	var asm bucketAssembler
	for rows.Next() {
		var r bucketRow
		if err := rows.Scan(&r.Year, &r.Month, &r.Day, &r.Hour, &r.ClientID, &r.Visits); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan bucket row: %w", err)
		}
		asm.add(r.Year, r.Month, r.Day, r.Hour, r.ClientID, r.Visits)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading bucket rows: %w", err)
	}
	snapshot.Buckets = asm.buckets
	if asm.total != snapshot.Total {
		return nil, corrupt("bucket rows sum to %d visits, meta row says %d", asm.total, snapshot.Total)
	}

	clientRows, err := tx.Query(ctx, querySelectClientTotals)
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

// Save replaces every row in one transaction, bulk loading with COPY
func (s *postgresStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	if err := s.save(ctx, snapshot); err != nil {
		return apperrors.NewStorageError("failed to save snapshot to postgres", err)
	}
	return nil
}

func (s *postgresStore) save(ctx context.Context, snapshot *domain.Snapshot) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, queryDeleteBuckets); err != nil {
		return fmt.Errorf("failed to clear bucket rows: %w", err)
	}

	rows := flatten(snapshot)
	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"visit_buckets"}, bucketColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.Year, r.Month, r.Day, r.Hour, r.ClientID, r.Visits}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to copy bucket rows: %w", err)
	}
	if copied != int64(len(rows)) {
		return fmt.Errorf("copied %d of %d bucket rows", copied, len(rows))
	}

	savedAt := snapshot.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	if _, err := tx.Exec(ctx, queryUpsertMetaPostgres, snapshot.Version, snapshot.Total, savedAt); err != nil {
		return fmt.Errorf("failed to write meta row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the container
func (s *postgresStore) Close() error {
	return nil
}
