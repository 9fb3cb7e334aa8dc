package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Row is one fetched row: primary key values and enabled column values,
// aligned with the reader's KeyColumns and ValueColumns.
type Row struct {
	Keys   []any
	Values []any
}

// BatchReadError wraps a page read that failed after all retries.
type BatchReadError struct {
	Table  string
	Offset int64
	Err    error
}

func (e *BatchReadError) Error() string {
	return fmt.Sprintf("reading %s at offset %d: %s", e.Table, e.Offset, e.Err)
}

func (e *BatchReadError) Unwrap() error { return e.Err }

const readAttempts = 3

// Reader pages through one table in stable primary-key order, fetching only
// the key columns and the enabled columns.
type Reader struct {
	Session Session
	Dialect Dialect

	Table        string
	KeyColumns   []string
	ValueColumns []string
	Where        string
	MaxRows      int64
}

// Count returns the number of targeted rows, honoring Where and MaxRows.
func (r *Reader) Count(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s",
		QuoteQualified(r.Dialect, r.Table), r.whereClause())
	var n int64
	if err := r.Session.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	if r.MaxRows > 0 && n > r.MaxRows {
		n = r.MaxRows
	}
	return n, nil
}

// ReadPage fetches up to limit rows starting at offset. Transient failures
// are retried with exponential backoff before surfacing a BatchReadError.
func (r *Reader) ReadPage(ctx context.Context, offset int64, limit int) ([]Row, error) {
	if r.MaxRows > 0 {
		remaining := r.MaxRows - offset
		if remaining <= 0 {
			return nil, nil
		}
		if int64(limit) > remaining {
			limit = int(remaining)
		}
	}

	var rows []Row
	operation := func() error {
		var err error
		rows, err = r.readPage(ctx, offset, limit)
		return err
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(200*time.Millisecond),
		), readAttempts-1),
		ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, &BatchReadError{Table: r.Table, Offset: offset, Err: err}
	}
	return rows, nil
}

func (r *Reader) readPage(ctx context.Context, offset int64, limit int) ([]Row, error) {
	cols := make([]string, 0, len(r.KeyColumns)+len(r.ValueColumns))
	for _, c := range append(append([]string{}, r.KeyColumns...), r.ValueColumns...) {
		cols = append(cols, r.Dialect.QuoteIdent(c))
	}
	order := make([]string, len(r.KeyColumns))
	for i, c := range r.KeyColumns {
		order[i] = r.Dialect.QuoteIdent(c)
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s %s",
		strings.Join(cols, ", "),
		QuoteQualified(r.Dialect, r.Table),
		r.whereClause(),
		strings.Join(order, ", "),
		r.Dialect.PageClause(offset, limit))

	res, err := r.Session.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	var out []Row
	for res.Next() {
		dest := make([]any, len(cols))
		for i := range dest {
			var v any
			dest[i] = &v
		}
		if err := res.Scan(dest...); err != nil {
			return nil, err
		}
		row := Row{
			Keys:   make([]any, len(r.KeyColumns)),
			Values: make([]any, len(r.ValueColumns)),
		}
		for i := range dest {
			v := *(dest[i].(*any))
			// drivers hand back []byte for text columns; normalize so the
			// generator sees strings
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			if i < len(r.KeyColumns) {
				row.Keys[i] = v
			} else {
				row.Values[i-len(r.KeyColumns)] = v
			}
		}
		out = append(out, row)
	}
	return out, res.Err()
}

func (r *Reader) whereClause() string {
	if r.Where == "" {
		return ""
	}
	return " WHERE " + r.Where
}
