package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Brownie44l1/cancer-api/internal/classify"
	"github.com/Brownie44l1/cancer-api/internal/prediction"
)

// createdAt is kept as ISO-8601 text with millisecond precision.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

const createTableSQL = `CREATE TABLE IF NOT EXISTS predictions (
	id TEXT PRIMARY KEY,
	result TEXT NOT NULL,
	suggestion TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

// SQLStore keeps records in a single predictions table through database/sql.
// Queries are written with ? placeholders and rebound for Postgres.
type SQLStore struct {
	db       *sql.DB
	numbered bool
}

func newSQLStore(ctx context.Context, db *sql.DB, numbered bool) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("create predictions table: %w", err)
	}
	return &SQLStore{db: db, numbered: numbered}, nil
}

func (s *SQLStore) Save(ctx context.Context, r prediction.Record) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO predictions (id, result, suggestion, created_at) VALUES (?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`),
		r.ID, string(r.Result), r.Suggestion, r.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return saveError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return saveError(err)
	}
	if n == 0 {
		return duplicateError(r.ID)
	}
	return nil
}

func (s *SQLStore) ListAll(ctx context.Context) ([]prediction.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, result, suggestion, created_at FROM predictions ORDER BY created_at`)
	if err != nil {
		return nil, listError(err)
	}
	defer func() { _ = rows.Close() }()

	records := []prediction.Record{}
	for rows.Next() {
		var (
			r         prediction.Record
			result    string
			createdAt string
		)
		if err := rows.Scan(&r.ID, &result, &r.Suggestion, &createdAt); err != nil {
			return nil, listError(fmt.Errorf("scan: %w", err))
		}
		r.Result = classify.Result(result)
		if err := checkClassification(r); err != nil {
			return nil, listError(err)
		}
		if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, listError(fmt.Errorf("parse created_at of %s: %w", r.ID, err))
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, listError(err)
	}
	return records, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

// DB exposes the underlying handle for tests.
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) rebind(query string) string {
	if !s.numbered {
		return query
	}
	return rebindNumbered(query)
}

// rebindNumbered rewrites ? placeholders as $1, $2, ...
func rebindNumbered(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
