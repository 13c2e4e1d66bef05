// Command etl rewrites whole directories of files through the rule
// engine and leaves a parquet audit trail of every replacement.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/Geeks-Trident-LLC/rewordapp/internal/batch"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/config"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/logger"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/rule"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/ruleio"
)

func main() {
	var (
		configPath = flag.String("config", "", "Configuration file path")
		inputGlob  = flag.String("input", "", "Input files (glob, e.g. 'logs/*.log')")
		outputDir  = flag.String("output-dir", "", "Output directory (overrides config)")
		rulesPath  = flag.String("rules", "", "Rule file (overrides config)")
		auditFile  = flag.String("audit", "", "Parquet audit file (overrides config, empty string in config disables)")
		workers    = flag.Int("workers", 0, "Number of worker goroutines (overrides config)")
		seed       = flag.Int64("seed", 0, "Seed for reproducible output (0 = fresh seed)")
		header     = flag.String("header", "", "Header prepended to every output file")
	)
	flag.Parse()

	if *inputGlob == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input 'logs/*.log' --output-dir scrubbed\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input support-bundle.txt --rules rules.yaml --seed 42\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *rulesPath != "" {
		cfg.Rewrite.RulesPath = *rulesPath
	}
	if *outputDir != "" {
		cfg.Batch.OutputDir = *outputDir
	}
	if *auditFile != "" {
		cfg.Batch.AuditFile = *auditFile
	}
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck // stdout sync

	paths, err := filepath.Glob(*inputGlob)
	if err != nil {
		log.Fatal("Invalid input glob", zap.String("glob", *inputGlob), zap.Error(err))
	}
	if len(paths) == 0 {
		log.Fatal("No input files matched", zap.String("glob", *inputGlob))
	}

	defs, err := ruleio.Load(cfg.Rewrite.RulesPath)
	if err != nil {
		log.Fatal("Failed to load rules", zap.Error(err))
	}
	set, err := rule.Compile(defs)
	if err != nil {
		log.Fatal("Failed to compile rules", zap.Error(err))
	}

	runSeed := *seed
	if runSeed == 0 {
		runSeed = cfg.Rewrite.Seed
	}
	runHeader := *header
	if runHeader == "" {
		runHeader = cfg.Rewrite.Header
	}

	pipeline := batch.NewPipeline(set, &batch.Config{
		Workers:   cfg.Batch.Workers,
		OutputDir: cfg.Batch.OutputDir,
		AuditFile: cfg.Batch.AuditFile,
		Seed:      runSeed,
		Header:    runHeader,
	}, log.WithComponent("batch").Logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := pipeline.ProcessFiles(ctx, paths)
	if err != nil {
		log.Fatal("Pipeline failed", zap.Error(err))
	}

	fmt.Printf("Processed %d files (%d failed), %d mappings, %d warnings in %s\n",
		result.FilesProcessed, result.FilesFailed,
		result.TotalMappings, result.TotalWarnings, result.Duration)

	if result.FilesFailed > 0 {
		os.Exit(1)
	}
}
