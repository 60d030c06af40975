// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/pdiddy/donor-match/pkg/types"
)

var studentPrefix = []byte("student/")

// BadgerAdapter answers criteria from student records held in a Badger
// key-value store under "student/<id>".
type BadgerAdapter struct {
	capabilitySet
	db  *badger.DB
	now func() time.Time
}

// slogBadgerLogger adapts slog.Logger to badger.Logger.
type slogBadgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*slogBadgerLogger)(nil)

func (l *slogBadgerLogger) Errorf(msg string, items ...any) {
	l.logger.Error(fmt.Sprintf(msg, items...))
}

func (l *slogBadgerLogger) Warningf(msg string, items ...any) {
	l.logger.Warn(fmt.Sprintf(msg, items...))
}

func (l *slogBadgerLogger) Infof(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...))
}

func (l *slogBadgerLogger) Debugf(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBadger opens the store at dir. An empty dir opens an in-memory store.
func OpenBadger(id, dir string, caps map[string][]types.Operator) (*BadgerAdapter, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &slogBadgerLogger{logger: slog.Default().With("component", "badger", "source", id)}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store %s: %w", dir, err)
	}
	return &BadgerAdapter{
		capabilitySet: newCapabilitySet(id, caps),
		db:            db,
		now:           time.Now,
	}, nil
}

// Close closes the store.
func (a *BadgerAdapter) Close() error {
	return a.db.Close()
}

func studentKey(id string) []byte {
	return append(append([]byte{}, studentPrefix...), id...)
}

// Load writes records, replacing any existing record with the same student ID.
func (a *BadgerAdapter) Load(_ context.Context, records []Record) (int, error) {
	wb := a.db.NewWriteBatch()
	defer wb.Cancel()
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("encoding record %s: %w", r.StudentID, err)
		}
		if err := wb.Set(studentKey(r.StudentID), data); err != nil {
			return 0, fmt.Errorf("writing record %s: %w", r.StudentID, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flushing records: %w", err)
	}
	return len(records), nil
}

// Query scans every student record and evaluates criteria against it.
// Keys are iterated in byte order, so results come back sorted by student ID.
func (a *BadgerAdapter) Query(ctx context.Context, criteria []types.Criterion) ([]types.SourceResult, error) {
	if err := a.check(criteria); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, FromContext(a.id, err)
	}

	now := a.now()
	var results []types.SourceResult
	err := a.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = studentPrefix
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Seek(studentPrefix); it.ValidForPrefix(studentPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("decoding %s: %w", it.Item().Key(), err)
			}
			if res, ok := evaluate(a.id, rec, criteria, now); ok {
				results = append(results, res)
			}
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, FromContext(a.id, ctxErr)
		}
		return nil, Unavailable(a.id, err)
	}
	return results, nil
}
