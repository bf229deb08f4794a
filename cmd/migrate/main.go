package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/auth"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/config"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/formulareport"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/idgen"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/logging"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/migerr"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/orchestrator"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/pmostandards"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/progress"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/resiliency"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/source"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/store"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/target"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(err, false)
	}

	log := logging.New(logging.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Infof("received shutdown signal, cancelling in-flight projects...")
		cancel()
	}()

	runID := cfg.ResumeRunID
	resuming := runID != ""
	if !resuming {
		runID = idgen.NewRunID()
	}
	if resuming {
		log.Infof("resuming migration run %s (solution type: %s)", runID, cfg.SolutionType)
	} else {
		log.Infof("starting migration run %s (solution type: %s)", runID, cfg.SolutionType)
	}

	var stateStore *store.Queries
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			fatal(fmt.Errorf("connect to state database: %w", err), false)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			fatal(fmt.Errorf("ping state database: %w", err), false)
		}
		if cfg.RunMigrations {
			if err := store.RunMigrations(db, cfg.MigrationsPath, log); err != nil {
				fatal(fmt.Errorf("run state database migrations: %w", err), false)
			}
		}
		stateStore = store.New(db)
	} else {
		log.Infof("DATABASE_URL not set; running without durable resumable state")
	}

	var progressSink *progress.Sink
	if cfg.NATSURL != "" {
		progressSink, err = progress.Connect(cfg.NATSURL, log)
		if err != nil {
			fatal(fmt.Errorf("connect to progress transport: %w", err), false)
		}
		defer progressSink.Close()
	} else {
		progressSink = progress.NewNoop(log)
	}

	authCache := auth.NewMemoryTokenCacheStore()
	authMgr := auth.NewManager(cfg, authCache, log)

	srcClient := source.New(cfg.ProjectOnlineURL, func(tctx context.Context) (string, error) {
		return authMgr.GetAccessToken(tctx, func(verificationURI, userCode string) {
			log.Infof("to authenticate, visit %s and enter code %s", verificationURI, userCode)
		})
	}, cfg.SourceRateLimitPerMin, cfg.MaxRetries, log)

	tgtClient := target.New(cfg.SmartsheetAPIToken, cfg.MaxRetries, log)

	ops := resiliency.New(tgtClient, log)
	standards := pmostandards.New(ops, tgtClient, log, cfg.PMOStandardsWorkspaceID)
	if err := standards.Ensure(ctx); err != nil {
		fatal(fmt.Errorf("ensure PMO Standards workspace: %w", err), false)
	}

	reporter := formulareport.New()

	if stateStore != nil && !resuming {
		if err := stateStore.CreateRun(ctx, runID, cfg.TenantID, string(cfg.SolutionType), 0); err != nil {
			log.Warnf("persist run %s: %v", runID, err)
		}
		if err := stateStore.StartRun(ctx, runID); err != nil {
			log.Warnf("mark run %s started: %v", runID, err)
		}
	}

	var st orchestrator.StateStore
	if stateStore != nil {
		st = stateStore
	}
	orch := orchestrator.New(srcClient, tgtClient, standards, ops, st, reporter, progressSink, log, orchestrator.Config{
		RunID:                 runID,
		MaxConcurrentProjects: cfg.MaxConcurrentProjects,
		DryRun:                cfg.DryRun,
	})

	results, err := orch.Run(ctx)
	if err != nil {
		fatal(fmt.Errorf("run migration: %w", err), false)
	}

	hadFailures := false
	failedCount := 0
	for _, r := range results {
		switch {
		case r.Cancelled:
			log.Warnf("project %q (%s) cancelled", r.ProjectName, r.ProjectID)
			failedCount++
		case r.Err != nil:
			hadFailures = true
			failedCount++
			log.Errorf("project %q (%s) failed: %s", r.ProjectName, r.ProjectID, migerr.Summary(r.Err))
		default:
			log.Infof("✓ project %q (%s) migrated: %d tasks, %d resources", r.ProjectName, r.ProjectID, r.TasksLoaded, r.ResLoaded)
		}
	}

	if cfg.FormulaFieldsReportPath != "" {
		if err := reporter.WriteFile(cfg.FormulaFieldsReportPath); err != nil {
			log.Warnf("write formula fields report: %v", err)
		} else {
			log.Infof("formula fields report written to %s", cfg.FormulaFieldsReportPath)
		}
	}

	if stateStore != nil {
		if hadFailures {
			_ = stateStore.FailRun(ctx, runID, "one or more projects failed")
		} else {
			_ = stateStore.CompleteRun(ctx, runID, len(results)-failedCount, failedCount)
		}
	}

	os.Exit(migerr.ExitCode(err, ctx.Err() != nil, hadFailures))
}

func fatal(err error, cancelled bool) {
	logging.New(logging.LevelInfo).Errorf("%s", migerr.Summary(err))
	os.Exit(migerr.ExitCode(err, cancelled, false))
}
