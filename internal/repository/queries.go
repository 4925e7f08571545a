package repository

// visit_buckets holds one row per (hour, client) cell. visit_meta holds the
// running total and layout version in a single row with id = 1.

const querySQLiteSchema = `
	CREATE TABLE IF NOT EXISTS visit_buckets (
		year      INTEGER NOT NULL,
		month     INTEGER NOT NULL,
		day       INTEGER NOT NULL,
		hour      INTEGER NOT NULL,
		client_id TEXT    NOT NULL,
		visits    INTEGER NOT NULL CHECK (visits > 0),
		PRIMARY KEY (year, month, day, hour, client_id)
	);
	CREATE TABLE IF NOT EXISTS visit_meta (
		id           INTEGER PRIMARY KEY CHECK (id = 1),
		version      INTEGER NOT NULL,
		total_visits INTEGER NOT NULL,
		saved_at     INTEGER NOT NULL
	);
`

// PostgresSchema is applied by cmd/migrate and on store start
const PostgresSchema = `
	CREATE TABLE IF NOT EXISTS visit_buckets (
		year      INTEGER NOT NULL,
		month     SMALLINT NOT NULL CHECK (month BETWEEN 1 AND 12),
		day       SMALLINT NOT NULL CHECK (day BETWEEN 1 AND 31),
		hour      SMALLINT NOT NULL CHECK (hour BETWEEN 0 AND 23),
		client_id TEXT NOT NULL,
		visits    BIGINT NOT NULL CHECK (visits > 0),
		PRIMARY KEY (year, month, day, hour, client_id)
	);
	CREATE TABLE IF NOT EXISTS visit_meta (
		id           INTEGER PRIMARY KEY CHECK (id = 1),
		version      INTEGER NOT NULL,
		total_visits BIGINT NOT NULL,
		saved_at     TIMESTAMPTZ NOT NULL
	);
`

// PostgresDropSchema removes everything PostgresSchema creates
const PostgresDropSchema = `
	DROP TABLE IF EXISTS visit_buckets;
	DROP TABLE IF EXISTS visit_meta;
`

const (
	querySelectMeta = `SELECT version, total_visits, saved_at FROM visit_meta WHERE id = 1`

	queryCountBuckets = `SELECT COUNT(*) FROM visit_buckets`

	querySelectBuckets = `
		SELECT year, month, day, hour, client_id, visits
		FROM visit_buckets
		ORDER BY year, month, day, hour, client_id
	`

	querySelectClientTotals = `
		SELECT client_id, SUM(visits)
		FROM visit_buckets
		GROUP BY client_id
	`

	queryDeleteBuckets = `DELETE FROM visit_buckets`

	queryInsertBucketSQLite = `
		INSERT INTO visit_buckets (year, month, day, hour, client_id, visits)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	queryUpsertMetaSQLite = `
		INSERT INTO visit_meta (id, version, total_visits, saved_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			version = excluded.version,
			total_visits = excluded.total_visits,
			saved_at = excluded.saved_at
	`

	queryUpsertMetaPostgres = `
		INSERT INTO visit_meta (id, version, total_visits, saved_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			version = EXCLUDED.version,
			total_visits = EXCLUDED.total_visits,
			saved_at = EXCLUDED.saved_at
	`
)
