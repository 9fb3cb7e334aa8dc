// Package engine runs the obfuscation: a coordinator fans out one worker
// per table, bounded by Global.ParallelThreads, with cooperative
// cancellation and debounced checkpointing.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dataveil/dataveil/cache"
	"github.com/dataveil/dataveil/checkpoint"
	"github.com/dataveil/dataveil/config"
	"github.com/dataveil/dataveil/database"
	"github.com/dataveil/dataveil/faillog"
)

const (
	saveEveryBatches = 5
	saveEverySeconds = 10
)

type Options struct {
	DatabaseName string
	Logger       database.Logger
	LogDirectory string // parent of failures/; default "logs"

	// State is a resumed checkpoint, or nil to start fresh.
	State *checkpoint.State
}

type Engine struct {
	doc    *config.Document
	db     database.Database
	store  *checkpoint.Store
	logger database.Logger
	cache  *cache.Cache
	flog   *faillog.Logger

	dbName string
	runID  string
	logDir string

	state   *checkpoint.State
	stateMu sync.Mutex

	// checkpoint debounce
	saveMu       sync.Mutex
	batchesSince int
	lastSave     time.Time
}

func New(doc *config.Document, db database.Database, store *checkpoint.Store, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = database.StdoutLogger{}
	}
	state := opts.State
	if state == nil {
		state = checkpoint.NewState(doc.Hash, opts.DatabaseName)
	}
	logDir := opts.LogDirectory
	if logDir == "" {
		logDir = "logs"
	}
	return &Engine{
		doc:    doc,
		db:     db,
		store:  store,
		logger: logger,
		dbName: opts.DatabaseName,
		runID:  uuid.NewString(),
		logDir: logDir,
		state:  state,
		cache:  cache.New(doc.Global.MaxCacheSize, doc.CachePolicy()),
	}
}

// RunID identifies this invocation in the report and failure log.
func (e *Engine) RunID() string { return e.runID }

// Run executes every enabled table and returns the report. The returned
// error is non-nil only for run-level failures (connectivity, cancellation);
// per-table failures are reported through Report.Failed and the checkpoint.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	started := time.Now()

	if err := database.Ping(ctx, e.db); err != nil {
		return nil, err
	}

	if err := e.cache.Load(e.doc.Global.MappingCacheDirectory, e.dbName); err != nil {
		slog.Warn("could not load mapping cache; continuing without it", "error", err)
	}

	flog, err := faillog.New(e.logDir, e.dbName, e.runID)
	if err != nil {
		return nil, err
	}
	e.flog = flog
	defer e.flog.Close()

	tables := e.targetTables()
	// the pool needs one pinned connection per worker
	e.db.DB().SetMaxOpenConns(e.doc.Global.ParallelThreads + 1)

	e.withState(func() {
		e.state.Status = checkpoint.StatusInProgress
	})
	if err := e.store.Save(e.state); err != nil {
		return nil, err
	}

	results := make([]tableResult, len(tables))
	eg, runCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.doc.Global.ParallelThreads)
	for i := range tables {
		i, table := i, tables[i]
		eg.Go(func() error {
			results[i] = e.runTable(runCtx, table)
			if errors.Is(results[i].Err, context.Canceled) {
				return results[i].Err
			}
			return nil
		})
	}
	egErr := eg.Wait()

	if err := e.cache.Flush(e.doc.Global.MappingCacheDirectory, e.dbName); err != nil {
		slog.Warn("could not flush mapping cache", "error", err)
	}

	report := e.buildReport(started, results)

	cancelled := egErr != nil || ctx.Err() != nil
	switch {
	case cancelled:
		// keep InProgress so the next invocation offers to resume
		e.saveCheckpoint(true)
		return report, context.Canceled
	case report.TablesFailed > 0:
		e.withState(func() { e.state.Status = checkpoint.StatusFailed })
		e.saveCheckpoint(true)
	default:
		e.withState(func() { e.state.Status = checkpoint.StatusCompleted })
		if err := e.store.Clear(e.doc.Hash); err != nil {
			slog.Warn("could not clear checkpoint", "error", err)
		}
	}

	if path, err := e.writeReport(report); err != nil {
		slog.Warn("could not write report", "error", err)
	} else {
		report.Path = path
	}
	return report, nil
}

type tableResult struct {
	Table    string
	Status   checkpoint.Status
	Rows     int64
	Failed   int64
	Duration time.Duration
	Err      error
}

func (e *Engine) runTable(ctx context.Context, table *config.Table) tableResult {
	started := time.Now()
	result := tableResult{Table: table.FullName}

	ts := func() *checkpoint.TableState {
		e.stateMu.Lock()
		defer e.stateMu.Unlock()
		return e.state.Table(table.FullName)
	}()

	// a dedicated connection per worker; never shared
	conn, err := e.db.DB().Conn(ctx)
	if err != nil {
		result.Err = err
		result.Status = checkpoint.StatusFailed
		e.withState(func() { ts.Status = checkpoint.StatusFailed })
		return result
	}
	defer conn.Close()

	w, err := e.newWorker(table, conn, ts)
	if err == nil {
		err = w.run(ctx)
	}

	e.stateMu.Lock()
	result.Status = ts.Status
	result.Rows = ts.ProcessedRows
	e.stateMu.Unlock()
	if w != nil {
		result.Failed = w.failed
	}
	result.Duration = time.Since(started)

	if err != nil {
		result.Err = err
		if !errors.Is(err, context.Canceled) {
			slog.Error("table worker failed", "table", table.FullName, "error", err)
			result.Status = checkpoint.StatusFailed
			e.withState(func() { ts.Status = checkpoint.StatusFailed })
			e.saveCheckpoint(true)
		}
	}
	return result
}

func (e *Engine) targetTables() []*config.Table {
	var tables []*config.Table
	for i := range e.doc.Tables {
		t := &e.doc.Tables[i]
		if t.IsEnabled() && len(t.EnabledColumns()) > 0 {
			tables = append(tables, t)
		}
	}
	return tables
}

// withState runs fn under the checkpoint mutex. All mutations of the state
// document go through here so Save never marshals a torn struct.
func (e *Engine) withState(fn func()) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	fn()
}

// saveCheckpoint persists the state, debounced unless forced: at least
// every saveEveryBatches batches or saveEverySeconds seconds.
func (e *Engine) saveCheckpoint(force bool) {
	e.saveMu.Lock()
	e.batchesSince++
	due := force ||
		e.batchesSince >= saveEveryBatches ||
		time.Since(e.lastSave) >= saveEverySeconds*time.Second
	if due {
		e.batchesSince = 0
		e.lastSave = time.Now()
	}
	e.saveMu.Unlock()
	if !due {
		return
	}

	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if err := e.store.Save(e.state); err != nil {
		slog.Error("checkpoint save failed", "error", err)
	}
}
