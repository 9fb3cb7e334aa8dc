package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dataveil/dataveil/checkpoint"
	"github.com/dataveil/dataveil/config"
	"github.com/dataveil/dataveil/database"
	"github.com/dataveil/dataveil/faillog"
	"github.com/dataveil/dataveil/generator"
)

// columnPlan is everything a worker needs per enabled column, resolved once
// so the per-row loop stays allocation-light.
type columnPlan struct {
	name           string
	cacheType      string
	baseType       string
	seed           string
	preserveLength bool
	onlyIfNotNull  bool
	fallback       config.Fallback
	validation     *generator.Validation
	formatting     *generator.Formatting
}

// worker drives one table: batches in strictly increasing offset order,
// single-threaded, talking to the generator through the shared cache and
// reporting progress into its own checkpoint record.
type worker struct {
	eng   *Engine
	table *config.Table
	sess  database.Session
	ts    *checkpoint.TableState

	reader *database.Reader
	writer *database.Writer
	plans  []columnPlan

	progress *progressMeter
	failed   int64
}

func (e *Engine) newWorker(table *config.Table, sess database.Session, ts *checkpoint.TableState) (*worker, error) {
	cols := table.EnabledColumns()
	plans := make([]columnPlan, len(cols))
	valueCols := make([]string, len(cols))
	for i, c := range cols {
		valueCols[i] = c.Name
		plan, err := e.planColumn(c)
		if err != nil {
			return nil, err
		}
		plans[i] = plan
	}

	dialect := e.db.Dialect()
	var where string
	var maxRows int64
	if table.Conditions != nil {
		where = table.Conditions.WhereClause
		maxRows = table.Conditions.MaxRows
	}

	return &worker{
		eng:   e,
		table: table,
		sess:  sess,
		ts:    ts,
		plans: plans,
		reader: &database.Reader{
			Session:      sess,
			Dialect:      dialect,
			Table:        table.FullName,
			KeyColumns:   table.PrimaryKey,
			ValueColumns: valueCols,
			Where:        where,
			MaxRows:      maxRows,
		},
		writer: &database.Writer{
			Session:      sess,
			Dialect:      dialect,
			Table:        table.FullName,
			KeyColumns:   table.PrimaryKey,
			SetColumns:   valueCols,
			SQLBatchSize: e.doc.Global.SqlBatchSize,
			Timeout:      time.Duration(e.doc.Global.CommandTimeoutSeconds) * time.Second,
			DryRun:       e.doc.Global.DryRun,
			Logger:       e.logger,
		},
		progress: newProgressMeter(table.FullName, e.logger),
	}, nil
}

func (e *Engine) planColumn(c config.Column) (columnPlan, error) {
	base, custom, err := e.doc.ResolveType(c.DataType)
	if err != nil {
		return columnPlan{}, err
	}

	plan := columnPlan{
		name:           c.Name,
		baseType:       base,
		seed:           e.doc.EffectiveSeed(c.DataType),
		preserveLength: c.PreserveLength,
		onlyIfNotNull:  true,
		fallback:       config.Fallback{OnError: config.FallbackUseOriginal},
		validation:     c.Validation,
	}
	// custom types cache under their own name so distinct seeds never share
	// entries; standard names collapse aliases (Suburb → City)
	if custom != nil {
		plan.cacheType = c.DataType
		plan.preserveLength = plan.preserveLength || custom.PreserveLength
		plan.formatting = custom.Formatting
		if plan.validation == nil {
			plan.validation = custom.Validation
		}
	} else {
		plan.cacheType = generator.BaseType(c.DataType)
	}
	if c.Conditions != nil {
		plan.onlyIfNotNull = c.Conditions.OnlyIfNotNull
	}
	if c.Fallback != nil {
		plan.fallback = *c.Fallback
	}
	return plan, nil
}

func (w *worker) run(ctx context.Context) error {
	e := w.eng

	e.withState(func() {
		if w.ts.Status == checkpoint.StatusNotStarted {
			w.ts.Status = checkpoint.StatusInProgress
		}
	})

	if w.ts.TotalRows == 0 {
		total, err := w.reader.Count(ctx)
		if err != nil {
			return fmt.Errorf("counting rows of %s: %w", w.table.FullName, err)
		}
		e.withState(func() { w.ts.TotalRows = total })
	}
	w.progress.setTotal(w.ts.TotalRows)

	batchSize := w.table.BatchSize(e.doc.Global.BatchSize)
	totalRows := w.ts.TotalRows

	for batchNum := 0; int64(batchNum)*int64(batchSize) < totalRows; batchNum++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		offset := int64(batchNum) * int64(batchSize)

		// resumed batches are skipped verbatim: their rows are neither
		// re-read nor re-written
		if b := w.ts.Batch(batchNum); b != nil && b.IsProcessed {
			w.progress.advance(int64(b.RowsProcessed))
			continue
		}

		rows, err := w.reader.ReadPage(ctx, offset, batchSize)
		if err != nil {
			e.withState(func() {
				w.ts.MarkFailed(batchNum, offset, batchSize, err.Error())
			})
			// the final page may be shorter than a full batch
			failed := totalRows - offset
			if failed > int64(batchSize) {
				failed = int64(batchSize)
			}
			w.failed += failed
			e.saveCheckpoint(false)
			continue
		}
		if len(rows) == 0 {
			break
		}

		w.processBatch(ctx, batchNum, offset, rows)
		e.saveCheckpoint(false)
		w.progress.maybeReport()
	}

	e.withState(func() {
		if w.ts.ProcessedRows >= w.ts.TotalRows {
			w.ts.Status = checkpoint.StatusCompleted
		} else {
			w.ts.Status = checkpoint.StatusFailed
		}
	})
	e.saveCheckpoint(true)
	w.progress.finish()
	return nil
}

func (w *worker) processBatch(ctx context.Context, batchNum int, offset int64, rows []database.Row) {
	e := w.eng

	updates := make([]database.Update, 0, len(rows))
	updateRows := make([]database.Row, 0, len(rows))
	for _, row := range rows {
		values, changed, skip := w.obfuscateRow(row)
		if skip || !changed {
			continue
		}
		updates = append(updates, database.Update{Keys: row.Keys, Values: values})
		updateRows = append(updateRows, row)
	}

	_, failures := w.writer.WriteBatch(ctx, updates)
	if len(failures) == 0 {
		e.withState(func() {
			w.ts.MarkProcessed(batchNum, offset, len(rows))
		})
		w.progress.advance(int64(len(rows)))
		return
	}

	for _, f := range failures {
		row := updateRows[f.Index]
		w.failed++
		e.flog.Record(faillog.FailedRow{
			TableName:        w.table.FullName,
			PrimaryKeyValues: w.keyMap(row),
			OriginalValues:   w.valueMap(row.Values),
			ObfuscatedValues: w.valueMap(updates[f.Index].Values),
			ErrorMessage:     f.Err.Error(),
		})
	}
	e.withState(func() {
		w.ts.MarkFailed(batchNum, offset, len(rows), failures[0].Err.Error())
	})
}

// obfuscateRow computes replacement values for one row. skip means a
// fallback of kind "skip" fired and the whole row is left untouched.
func (w *worker) obfuscateRow(row database.Row) (values []any, changed, skip bool) {
	values = make([]any, len(w.plans))
	for i := range w.plans {
		plan := &w.plans[i]
		original := row.Values[i]
		values[i] = original

		if original == nil {
			if !plan.onlyIfNotNull && plan.fallback.OnError == config.FallbackUseDefault {
				values[i] = plan.fallback.DefaultValue
				changed = true
			}
			continue
		}

		origStr := originalString(original)
		synthetic, err := w.eng.cache.GetOrCreate(plan.cacheType, origStr, func() (string, error) {
			return generator.Generate(generator.Request{
				DataType:       plan.baseType,
				Original:       origStr,
				Seed:           plan.seed,
				PreserveLength: plan.preserveLength,
				Locale:         w.eng.doc.Metadata.Locale,
				Formatting:     plan.formatting,
				Validation:     plan.validation,
			})
		})
		if err != nil {
			w.failed++
			w.eng.flog.Record(faillog.FailedRow{
				TableName:        w.table.FullName,
				PrimaryKeyValues: w.keyMap(row),
				OriginalValues:   map[string]any{plan.name: original},
				ErrorMessage:     err.Error(),
			})
			switch plan.fallback.OnError {
			case config.FallbackUseDefault:
				values[i] = plan.fallback.DefaultValue
				changed = true
			case config.FallbackSkip:
				return nil, false, true
			default: // useOriginal
			}
			continue
		}
		if synthetic != origStr {
			changed = true
		}
		values[i] = synthetic
	}
	return values, changed, false
}

func (w *worker) keyMap(row database.Row) map[string]any {
	m := make(map[string]any, len(row.Keys))
	for i, k := range w.table.PrimaryKey {
		m[k] = row.Keys[i]
	}
	return m
}

func (w *worker) valueMap(values []any) map[string]any {
	m := make(map[string]any, len(values))
	for i := range w.plans {
		m[w.plans[i].name] = values[i]
	}
	return m
}

func originalString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", x)
	}
}
