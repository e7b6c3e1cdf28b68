package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"icmm/pkg/schema"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeLayout is fixed-width UTC so lexical order equals chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Dialect captures the differences between the supported SQL databases.
type Dialect struct {
	Name   string
	Driver string
	Schema string
	bind   func(n int) string
}

// SQLite is the modernc.org/sqlite dialect.
var SQLite = Dialect{
	Name:   "sqlite",
	Driver: "sqlite",
	Schema: `
		CREATE TABLE IF NOT EXISTS assessment_records (
			seq            INTEGER PRIMARY KEY AUTOINCREMENT,
			id             TEXT    NOT NULL UNIQUE,
			collection     TEXT    NOT NULL,
			schema_version TEXT    NOT NULL DEFAULT '',
			uid            TEXT    NOT NULL DEFAULT '',
			email          TEXT    NOT NULL DEFAULT '',
			school_name    TEXT    NOT NULL,
			city           TEXT    NOT NULL DEFAULT '',
			role           TEXT    NOT NULL DEFAULT '',
			created_at     TEXT    NOT NULL,
			answers        TEXT    NOT NULL,
			total_score    INTEGER NOT NULL,
			level          TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_records_collection_created
			ON assessment_records(collection, created_at);
	`,
	bind: func(int) string { return "?" },
}

// Postgres is the lib/pq dialect.
var Postgres = Dialect{
	Name:   "postgres",
	Driver: "postgres",
	Schema: `
		CREATE TABLE IF NOT EXISTS assessment_records (
			seq            BIGSERIAL PRIMARY KEY,
			id             TEXT    NOT NULL UNIQUE,
			collection     TEXT    NOT NULL,
			schema_version TEXT    NOT NULL DEFAULT '',
			uid            TEXT    NOT NULL DEFAULT '',
			email          TEXT    NOT NULL DEFAULT '',
			school_name    TEXT    NOT NULL,
			city           TEXT    NOT NULL DEFAULT '',
			role           TEXT    NOT NULL DEFAULT '',
			created_at     TEXT    NOT NULL,
			answers        TEXT    NOT NULL,
			total_score    INTEGER NOT NULL,
			level          TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_records_collection_created
			ON assessment_records(collection, created_at);
	`,
	bind: func(n int) string { return "$" + strconv.Itoa(n) },
}

// SQLStore stores records in a single table keyed by collection.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore wraps an open database and runs migrations.
func NewSQLStore(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("repository: migration: %w", err)
	}
	return s, nil
}

// OpenSQLite opens (creating if needed) dataDir/assessments.db with WAL mode.
func OpenSQLite(dataDir string) (*SQLStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("repository: create data dir: %w", err)
	}

	// busy_timeout is per connection, so it goes in the DSN to reach every pooled connection.
	dbPath := filepath.Join(dataDir, "assessments.db") + "?_pragma=busy_timeout(5000)"
	db, err := openDB(SQLite.Driver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("repository: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("repository: pragma %q: %w", p, err)
		}
	}

	s, err := NewSQLStore(db, SQLite)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres connects to dsn and runs migrations.
func OpenPostgres(dsn string) (*SQLStore, error) {
	db, err := openDB(Postgres.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	s, err := NewSQLStore(db, Postgres)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	_, err := s.db.Exec(s.dialect.Schema)
	return err
}

// Ping tests the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create implements Store.
func (s *SQLStore) Create(ctx context.Context, collection string, rec *schema.AssessmentRecord) (string, error) {
	cp, err := prepareRecord(collection, rec)
	if err != nil {
		return "", err
	}

	answers, err := json.Marshal(cp.Answers)
	if err != nil {
		return "", fmt.Errorf("marshal answers: %w", err)
	}
	if cp.Answers == nil {
		answers = []byte("[]")
	}

	b := s.dialect.bind
	query := fmt.Sprintf(`INSERT INTO assessment_records
		(id, collection, schema_version, uid, email, school_name, city, role, created_at, answers, total_score, level)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		b(1), b(2), b(3), b(4), b(5), b(6), b(7), b(8), b(9), b(10), b(11), b(12))

	_, err = s.db.ExecContext(ctx, query,
		cp.ID,
		collection,
		cp.SchemaVersion,
		cp.Respondent.UID,
		cp.Respondent.Email,
		cp.Respondent.SchoolName,
		cp.Respondent.City,
		cp.Respondent.Role,
		cp.CreatedAt.UTC().Format(timeLayout),
		string(answers),
		cp.TotalScore,
		cp.Level,
	)
	if err != nil {
		return "", fmt.Errorf("insert record %s: %w", cp.ID, err)
	}

	return cp.ID, nil
}

// StreamAll implements Store. Rows are read lazily while the consumer iterates.
func (s *SQLStore) StreamAll(ctx context.Context, collection string, opts StreamOptions) iter.Seq2[schema.AssessmentRecord, error] {
	if err := checkCollection(collection); err != nil {
		return errSeq(err)
	}
	if err := checkOptions(opts); err != nil {
		return errSeq(err)
	}

	dir := "ASC"
	if opts.Descending {
		dir = "DESC"
	}

	query := fmt.Sprintf(`SELECT id, schema_version, uid, email, school_name, city, role, created_at, answers, total_score, level
		FROM assessment_records
		WHERE collection = %s
		ORDER BY created_at %s, seq %s`, s.dialect.bind(1), dir, dir)
	args := []any{collection}

	if opts.Limit > 0 {
		query += " LIMIT " + s.dialect.bind(2)
		args = append(args, opts.Limit)
	}

	return func(yield func(schema.AssessmentRecord, error) bool) {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(schema.AssessmentRecord{}, fmt.Errorf("query records: %w", err))
			return
		}
		defer func() {
			if err := rows.Close(); err != nil {
				slog.Warn("Failed to close rows", "error", err)
			}
		}()

		for rows.Next() {
			rec, err := scanRecord(rows)
			if !yield(rec, err) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(schema.AssessmentRecord{}, fmt.Errorf("iterate records: %w", err))
		}
	}
}

func scanRecord(rows *sql.Rows) (schema.AssessmentRecord, error) {
	var (
		rec       schema.AssessmentRecord
		createdAt string
		answers   string
	)

	err := rows.Scan(
		&rec.ID,
		&rec.SchemaVersion,
		&rec.Respondent.UID,
		&rec.Respondent.Email,
		&rec.Respondent.SchoolName,
		&rec.Respondent.City,
		&rec.Respondent.Role,
		&createdAt,
		&answers,
		&rec.TotalScore,
		&rec.Level,
	)
	if err != nil {
		return schema.AssessmentRecord{}, fmt.Errorf("scan record: %w", err)
	}

	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return schema.AssessmentRecord{}, fmt.Errorf("record %s: parse created_at: %w", rec.ID, err)
	}

	if err := json.Unmarshal([]byte(answers), &rec.Answers); err != nil {
		return schema.AssessmentRecord{}, fmt.Errorf("record %s: parse answers: %w", rec.ID, err)
	}

	return rec, nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
