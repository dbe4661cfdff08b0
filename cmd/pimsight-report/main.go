// Package main provides the entry point for the governance report generator
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pimsight/go-core/internal/engine"
	"github.com/pimsight/go-core/internal/logging"
	"github.com/pimsight/go-core/internal/metrics"
	"github.com/pimsight/go-core/internal/snapshot"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var (
		snapshotDir    = flag.String("snapshot-dir", "", "Directory holding fetched snapshot dumps (required)")
		outDir         = flag.String("out", ".", "Directory to write report files to")
		format         = flag.String("format", "csv", "Report format (csv, json)")
		watch          = flag.Bool("watch", false, "Watch the snapshot directory and regenerate on change")
		metricsAddr    = flag.String("metrics-addr", "", "Address to serve Prometheus metrics on (empty disables)")
		roleFilter     = flag.String("role-filter", "", "CEL visibility expression for roles")
		groupFilter    = flag.String("group-filter", "", "CEL visibility expression for groups")
		excludeRoles   = flag.Bool("exclude-roles", false, "Exclude the directory-role workload")
		excludeGroups  = flag.Bool("exclude-groups", false, "Exclude the group workload")
		topLimit       = flag.Int("top", 5, "Number of top principals in the summary")
		expiringWindow = flag.Int("expiring-window", 30, "Expiring-soon lookahead in days")
		logLevel       = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		logFile        = flag.String("log-file", "", "Also write JSON logs to this file with rotation")
		devLog         = flag.Bool("dev-log", false, "Human-readable console logging")
		showVersion    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("pimsight-report %s\n", Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}
	if *snapshotDir == "" {
		fmt.Fprintln(os.Stderr, "-snapshot-dir is required")
		flag.Usage()
		os.Exit(2)
	}

	logger, err := logging.New(logging.Config{
		Development: *devLog,
		Level:       *logLevel,
		File:        *logFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting report generator",
		zap.String("version", Version),
		zap.String("snapshotDir", *snapshotDir),
		zap.String("format", *format),
	)

	m := metrics.NewPrometheusMetrics("pimcore")
	store := snapshot.NewStore()
	loader := snapshot.NewLoader(logger)

	store.Notifier().Start()
	defer store.Notifier().Stop()

	eng, err := engine.New(engine.Config{
		Logger:             logger,
		Metrics:            m,
		TopPrincipalLimit:  *topLimit,
		ExpiringWindowDays: *expiringWindow,
	}, store)
	if err != nil {
		logger.Fatal("Failed to create engine", zap.Error(err))
	}

	opts := engine.Options{
		ExcludeRoles:  *excludeRoles,
		ExcludeGroups: *excludeGroups,
		RoleFilter:    *roleFilter,
		GroupFilter:   *groupFilter,
	}

	snap, err := loader.LoadFromDirectory(*snapshotDir)
	if err != nil {
		logger.Fatal("Failed to load snapshots", zap.Error(err))
	}
	store.Replace(snap)

	if err := generate(eng, opts, *format, *outDir, logger); err != nil {
		logger.Fatal("Failed to generate report", zap.Error(err))
	}

	if !*watch && *metricsAddr == "" {
		logger.Info("Report complete")
		return
	}

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.HTTPHandler())
		go func() {
			logger.Info("Serving metrics", zap.String("addr", *metricsAddr))
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("Metrics server error", zap.Error(err))
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *watch {
		fw, err := snapshot.NewFileWatcher(*snapshotDir, store, loader, logger)
		if err != nil {
			logger.Fatal("Failed to create snapshot watcher", zap.Error(err))
		}
		if err := fw.Watch(ctx); err != nil {
			logger.Fatal("Failed to start snapshot watcher", zap.Error(err))
		}
		defer fw.Stop()

		go func() {
			for ev := range fw.EventChan() {
				if ev.Error != nil {
					continue
				}
				if err := generate(eng, opts, *format, *outDir, logger); err != nil {
					logger.Error("Failed to regenerate report", zap.Error(err))
				}
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
}

// generate writes the report files for the current snapshot and logs the
// dashboard summary.
func generate(eng *engine.Engine, opts engine.Options, format, outDir string, logger *zap.Logger) error {
	switch format {
	case "csv":
		if err := writeFile(filepath.Join(outDir, "role-summary.csv"), func(f *os.File) error {
			_, err := eng.ExportRoleSummaryCSV(f, opts)
			return err
		}); err != nil {
			return err
		}
		if err := writeFile(filepath.Join(outDir, "assignments.csv"), func(f *os.File) error {
			_, err := eng.ExportAssignmentDetailCSV(f, opts)
			return err
		}); err != nil {
			return err
		}
	case "json":
		if err := writeFile(filepath.Join(outDir, "governance-export.json"), func(f *os.File) error {
			_, err := eng.ExportJSON(f, opts)
			return err
		}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	summary, err := eng.Summary(opts, time.Now())
	if err != nil {
		return err
	}
	logger.Info("Report generated",
		zap.Int("permanent", summary.Totals.Permanent),
		zap.Int("eligible", summary.Totals.Eligible),
		zap.Int("active", summary.Totals.Active),
		zap.Int("coveragePercent", summary.CoveragePercent),
	)
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Sync()
}
