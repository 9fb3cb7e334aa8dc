// Package dataveil wires the mapping loader, checkpoint store, database
// backends and the engine into the Run function shared by the CLI.
package dataveil

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/k0kubun/pp/v3"

	"github.com/dataveil/dataveil/checkpoint"
	"github.com/dataveil/dataveil/config"
	"github.com/dataveil/dataveil/database"
	"github.com/dataveil/dataveil/database/mssql"
	"github.com/dataveil/dataveil/database/mysql"
	"github.com/dataveil/dataveil/database/postgres"
	"github.com/dataveil/dataveil/database/sqlite3"
	"github.com/dataveil/dataveil/engine"
	"github.com/dataveil/dataveil/generator"
	"github.com/dataveil/dataveil/util"
)

const (
	ExitOK            = 0
	ExitConfigError   = 2
	ExitConnectivity  = 3
	ExitPartialFail   = 4
	ExitUserCancelled = 5
)

type Options struct {
	MappingFile    string
	DryRun         bool
	Resume         bool
	Fresh          bool
	ValidateOnly   bool
	VerifyMappings bool

	Logger database.Logger
}

// Run executes one obfuscation invocation and returns the process exit code.
func Run(options *Options) int {
	util.InitSlog()
	logger := options.Logger
	if logger == nil {
		logger = database.StdoutLogger{}
	}

	doc, err := config.Load(options.MappingFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitConfigError
	}
	if options.DryRun {
		doc.Global.DryRun = true
	}

	if options.ValidateOnly || options.VerifyMappings {
		logger.Printf("OK %s\n", doc.Hash)
		if options.VerifyMappings {
			verifyMappings(doc, logger)
		}
		return ExitOK
	}

	db, dbName, err := OpenDatabase(doc.Global.ConnectionString)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitConnectivity
	}
	defer db.Close()

	store := checkpoint.NewStore(doc.Global.CheckpointDirectory)
	state, code := resolveResume(store, doc.Hash, options, logger)
	if code != ExitOK {
		return code
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Println("interrupt: finishing in-flight sub-batches (interrupt again to abort)")
		cancel()
		<-sigCh
		os.Exit(ExitUserCancelled)
	}()
	defer signal.Stop(sigCh)

	eng := engine.New(doc, db, store, engine.Options{
		DatabaseName: dbName,
		Logger:       logger,
		State:        state,
	})
	report, err := eng.Run(ctx)
	if err != nil {
		var connErr *database.ConnectivityError
		switch {
		case errors.As(err, &connErr):
			fmt.Fprintln(os.Stderr, err)
			return ExitConnectivity
		case errors.Is(err, context.Canceled):
			logger.Println("run cancelled; checkpoint preserved")
			return ExitUserCancelled
		default:
			fmt.Fprintln(os.Stderr, err)
			return ExitPartialFail
		}
	}

	printSummary(report, logger)
	if report.TablesFailed > 0 {
		return ExitPartialFail
	}
	return ExitOK
}

// resolveResume applies --resume/--fresh or prompts when an unfinished
// checkpoint exists for this mapping.
func resolveResume(store *checkpoint.Store, hash string, options *Options, logger database.Logger) (*checkpoint.State, int) {
	state, err := store.Load(hash)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, ExitConfigError
	}
	if state == nil || state.Status == checkpoint.StatusCompleted {
		return nil, ExitOK
	}

	switch {
	case options.Fresh:
		if err := store.Clear(hash); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return nil, ExitConfigError
		}
		return nil, ExitOK
	case options.Resume:
		return state, ExitOK
	}

	logger.Printf("An unfinished run exists for this mapping (%d rows processed, last update %s).\n",
		state.TotalRowsProcessed, state.LastUpdatedAt.Format("2006-01-02 15:04:05"))
	logger.Print("Resume it? [y/n] ")
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		fmt.Fprintln(os.Stderr, "no answer on stdin; pass --resume or --fresh")
		return nil, ExitConfigError
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
		return state, ExitOK
	}
	if err := store.Clear(hash); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, ExitConfigError
	}
	return nil, ExitOK
}

// OpenDatabase picks the backend from the connection string scheme and
// returns it along with the database name used for checkpoints, caches and
// reports.
func OpenDatabase(connString string) (database.Database, string, error) {
	u, err := url.Parse(connString)
	if err != nil {
		return nil, "", fmt.Errorf("invalid connection string: %w", err)
	}

	cfg := database.Config{ConnectionString: connString}
	switch u.Scheme {
	case "sqlserver", "mssql":
		name := u.Query().Get("database")
		if name == "" {
			name = strings.TrimPrefix(u.Path, "/")
		}
		db, err := mssql.NewDatabase(cfg)
		return db, name, err
	case "postgres", "postgresql":
		db, err := postgres.NewDatabase(cfg)
		return db, strings.TrimPrefix(u.Path, "/"), err
	case "mysql":
		// go-sql-driver uses its own DSN syntax; translate the URL form
		mcfg := database.Config{
			User:   u.User.Username(),
			Host:   u.Hostname(),
			DbName: strings.TrimPrefix(u.Path, "/"),
		}
		mcfg.Password, _ = u.User.Password()
		mcfg.Port, _ = strconv.Atoi(u.Port())
		if mcfg.Port == 0 {
			mcfg.Port = 3306
		}
		db, err := mysql.NewDatabase(mcfg)
		return db, mcfg.DbName, err
	case "sqlite", "sqlite3", "file", "":
		path := u.Opaque
		if path == "" {
			path = u.Path
			if path == "" {
				path = connString
			}
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		db, err := sqlite3.NewDatabase(database.Config{ConnectionString: path})
		return db, name, err
	}
	return nil, "", fmt.Errorf("unsupported connection string scheme %q", u.Scheme)
}

// verifyMappings dumps the resolved document, the per-type cache policy and
// one sample synthetic value per referenced data type.
func verifyMappings(doc *config.Document, logger database.Logger) {
	printer := pp.New()
	printer.SetColoringEnabled(false)
	logger.Println(printer.Sprint(doc))

	policy := doc.CachePolicy()
	for dataType, cached := range util.CanonicalMapIter(policy) {
		base, _, err := doc.ResolveType(dataType)
		if err != nil {
			continue
		}
		sample, err := generator.Generate(generator.Request{
			DataType: base,
			Original: "sample",
			Seed:     doc.Global.GlobalSeed,
			Locale:   doc.Metadata.Locale,
		})
		if err != nil {
			sample = "<error: " + err.Error() + ">"
		}
		logger.Printf("%-24s cached=%-5v sample=%q\n", dataType, cached, sample)
	}
}

func printSummary(report *engine.Report, logger database.Logger) {
	logger.Println("-- Summary --")
	for _, t := range report.Tables {
		logger.Printf("%s: %s, processed=%d failed=%d\n", t.Table, t.Status, t.Rows, t.Failed)
	}
	logger.Printf("total rows=%d failed=%d\n", report.Rows, report.Failed)
	if report.Path != "" {
		logger.Printf("report: %s\n", report.Path)
	}
	if report.FailureLog != "" {
		logger.Printf("failure log: %s\n", report.FailureLog)
	}
}
