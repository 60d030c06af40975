// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/donor-match/pkg/types"
)

// SQLiteAdapter answers criteria from a source-owned SQLite datatable with
// one row per (student, attribute, value).
type SQLiteAdapter struct {
	capabilitySet
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens or creates the datatable at path and ensures its schema.
func OpenSQLite(id, path string, caps map[string][]types.Operator) (*SQLiteAdapter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a := &SQLiteAdapter{
		capabilitySet: newCapabilitySet(id, caps),
		db:            db,
		now:           time.Now,
	}
	if err := a.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return a, nil
}

// Close releases the database connection.
func (a *SQLiteAdapter) Close() error {
	return a.db.Close()
}

func (a *SQLiteAdapter) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS attributes (
			student_id TEXT NOT NULL,
			attribute TEXT NOT NULL,
			value TEXT NOT NULL,
			norm TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 1.0,
			UNIQUE(student_id, attribute, value)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attributes_attribute ON attributes(attribute, norm)`,
		`CREATE INDEX IF NOT EXISTS idx_attributes_student ON attributes(student_id)`,
	}
	for _, stmt := range statements {
		if _, err := a.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Load upserts records into the datatable in a single transaction.
func (a *SQLiteAdapter) Load(ctx context.Context, records []Record) (int, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO attributes (student_id, attribute, value, norm, confidence)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(student_id, attribute, value) DO UPDATE SET confidence = excluded.confidence`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	rows := 0
	for _, r := range records {
		for attr, values := range r.Attributes {
			for _, v := range values {
				if _, err := stmt.ExecContext(ctx, r.StudentID, strings.ToLower(attr), v, normalize(v), r.confidence()); err != nil {
					return rows, fmt.Errorf("inserting %s/%s: %w", r.StudentID, attr, err)
				}
				rows++
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return rows, fmt.Errorf("committing: %w", err)
	}
	return rows, nil
}

// compile builds the SQL prefilter for one criterion. Text checks run
// against the norm column, which Load fills with the same normalization the
// matcher applies, so the prefilter never drops a row the matcher accepts.
// Range and near only narrow by attribute and are verified in Go.
func compile(c types.Criterion) (string, []any) {
	q := `SELECT student_id, value, confidence FROM attributes WHERE attribute = ?`
	args := []any{strings.ToLower(c.Attribute)}
	switch c.Operator {
	case types.OpContains:
		q += ` AND instr(norm, ?) > 0`
		args = append(args, normalize(c.Value.Text))
	case types.OpEquals:
		if _, isNum := parseNumber(c.Value.Text); !isNum {
			q += ` AND norm = ?`
			args = append(args, normalize(c.Value.Text))
		}
	}
	return q + ` ORDER BY student_id`, args
}

// Query runs one prefilter per criterion and merges matches per student.
// A student's confidence is the lowest confidence among its matched rows.
func (a *SQLiteAdapter) Query(ctx context.Context, criteria []types.Criterion) ([]types.SourceResult, error) {
	if err := a.check(criteria); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, FromContext(a.id, err)
	}

	type hit struct {
		satisfied []string
		conf      float64
	}
	hits := make(map[string]*hit)
	var order []string

	for _, c := range criteria {
		q, args := compile(c)
		rows, err := a.db.QueryContext(ctx, q, args...)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, FromContext(a.id, ctxErr)
			}
			return nil, Unavailable(a.id, fmt.Errorf("querying %s: %w", c.Attribute, err))
		}

		seen := make(map[string]bool)
		for rows.Next() {
			var studentID, value string
			var conf float64
			if err := rows.Scan(&studentID, &value, &conf); err != nil {
				rows.Close()
				return nil, Unavailable(a.id, fmt.Errorf("scanning row: %w", err))
			}
			if !Matches(c, []string{value}) {
				continue
			}
			h, ok := hits[studentID]
			if !ok {
				h = &hit{conf: 1.0}
				hits[studentID] = h
				order = append(order, studentID)
			}
			if !seen[studentID] {
				h.satisfied = append(h.satisfied, c.ID)
				seen[studentID] = true
			}
			h.conf = math.Min(h.conf, conf)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, Unavailable(a.id, fmt.Errorf("iterating rows: %w", err))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, FromContext(a.id, err)
	}

	now := a.now()
	results := make([]types.SourceResult, 0, len(order))
	for _, id := range order {
		h := hits[id]
		results = append(results, types.SourceResult{
			SourceID:   a.id,
			StudentID:  id,
			Satisfied:  h.satisfied,
			Confidence: math.Max(0, math.Min(1, h.conf)),
			FetchedAt:  now,
		})
	}
	sortResults(results)
	return results, nil
}
