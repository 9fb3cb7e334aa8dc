package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Update is one row's replacement values, aligned with the writer's
// SetColumns and KeyColumns.
type Update struct {
	Keys   []any
	Values []any
}

// Failure reports one update that did not commit. Index points into the
// slice passed to WriteBatch.
type Failure struct {
	Index int
	Err   error
}

// Writer applies updates in sub-batches of SQLBatchSize rows, one
// transaction per sub-batch. A failed sub-batch is reported through
// Failure records and does not stop the following sub-batches.
type Writer struct {
	Session Session
	Dialect Dialect

	Table        string
	KeyColumns   []string
	SetColumns   []string
	SQLBatchSize int
	Timeout      time.Duration
	DryRun       bool
	Logger       Logger
}

// WriteBatch applies the updates. committed counts rows whose transaction
// committed (always 0 under DryRun, where statements are executed and then
// rolled back so they are still fully validated by the server).
func (w *Writer) WriteBatch(ctx context.Context, updates []Update) (committed int, failures []Failure) {
	for start := 0; start < len(updates); start += w.SQLBatchSize {
		end := start + w.SQLBatchSize
		if end > len(updates) {
			end = len(updates)
		}
		if err := w.writeSubBatch(ctx, updates[start:end]); err != nil {
			for i := start; i < end; i++ {
				failures = append(failures, Failure{Index: i, Err: err})
			}
			continue
		}
		if !w.DryRun {
			committed += end - start
		}
	}
	return committed, failures
}

func (w *Writer) writeSubBatch(ctx context.Context, updates []Update) error {
	subCtx := ctx
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		subCtx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}

	tx, err := w.Session.BeginTx(subCtx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	if w.Dialect.SupportsMultiStatement() {
		err = w.execCombined(subCtx, tx, updates)
	} else {
		err = w.execPerRow(subCtx, tx, updates)
	}
	if err != nil {
		tx.Rollback()
		return err
	}

	if w.DryRun {
		return tx.Rollback()
	}
	return tx.Commit()
}

// execCombined sends every row's UPDATE in one round trip with continuing
// placeholder numbering.
func (w *Writer) execCombined(ctx context.Context, tx *sql.Tx, updates []Update) error {
	var b strings.Builder
	args := make([]any, 0, len(updates)*(len(w.SetColumns)+len(w.KeyColumns)))
	n := 0
	for _, u := range updates {
		stmt, stmtArgs := w.buildUpdate(u, n)
		n += len(stmtArgs)
		b.WriteString(stmt)
		b.WriteString(";\n")
		args = append(args, stmtArgs...)
		w.logStatement(stmt, stmtArgs)
	}
	_, err := tx.ExecContext(ctx, b.String(), args...)
	return err
}

func (w *Writer) execPerRow(ctx context.Context, tx *sql.Tx, updates []Update) error {
	for _, u := range updates {
		stmt, args := w.buildUpdate(u, 0)
		w.logStatement(stmt, args)
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return err
		}
	}
	return nil
}

// buildUpdate renders "UPDATE t SET a=$1 WHERE k=$2" starting placeholder
// numbering after offset existing parameters.
func (w *Writer) buildUpdate(u Update, offset int) (string, []any) {
	args := make([]any, 0, len(w.SetColumns)+len(w.KeyColumns))
	n := offset

	sets := make([]string, len(w.SetColumns))
	for i, c := range w.SetColumns {
		n++
		sets[i] = fmt.Sprintf("%s = %s", w.Dialect.QuoteIdent(c), w.Dialect.Placeholder(n))
		args = append(args, u.Values[i])
	}
	conds := make([]string, len(w.KeyColumns))
	for i, c := range w.KeyColumns {
		n++
		conds[i] = fmt.Sprintf("%s = %s", w.Dialect.QuoteIdent(c), w.Dialect.Placeholder(n))
		args = append(args, u.Keys[i])
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		QuoteQualified(w.Dialect, w.Table),
		strings.Join(sets, ", "),
		strings.Join(conds, " AND "))
	return stmt, args
}

func (w *Writer) logStatement(stmt string, args []any) {
	if !w.DryRun || w.Logger == nil {
		return
	}
	w.Logger.Printf("-- dry run -- %s %v\n", stmt, args)
}
