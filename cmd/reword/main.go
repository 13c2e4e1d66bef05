package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Geeks-Trident-LLC/rewordapp/internal/config"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/engine"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/logger"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/rule"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/ruleio"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/server"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")

		inputPath  = flag.String("input", "", "Rewrite a file (or - for stdin) instead of serving")
		outputPath = flag.String("output", "", "Output file for one-shot mode (default stdout)")
		rulesPath  = flag.String("rules", "", "Rule file override for one-shot mode")
		seed       = flag.Int64("seed", 0, "Seed for reproducible output (0 = fresh seed)")
		header     = flag.String("header", "", "Header prepended to the output")
		showRules  = flag.Bool("show-rules", false, "Print the compiled rules and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("rewordapp %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if *healthCheck {
		performHealthCheck()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *rulesPath != "" {
		cfg.Rewrite.RulesPath = *rulesPath
	}

	if *showRules || *inputPath != "" {
		runOneShot(cfg, *inputPath, *outputPath, *seed, *header, *showRules)
		return
	}

	serve(cfg)
}

// serve runs the API server until a shutdown signal arrives.
func serve(cfg *config.Config) {
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: true,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck // stdout sync

	log.Info("Starting rewordapp",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Int("port", cfg.Server.Port))

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	// Rewrite defaults apply live; port, store and logging changes
	// still need a restart.
	config.Watch(func(updated *config.Config) {
		log.Info("Configuration file changed, applying rewrite defaults")
		srv.ApplyRewriteDefaults(updated.Rewrite)
	})

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}
		log.Info("Server shutdown complete")
	}
}

// runOneShot compiles the rule file and rewrites a single input.
func runOneShot(cfg *config.Config, inputPath, outputPath string, seed int64, header string, showRules bool) {
	defs, err := ruleio.Load(cfg.Rewrite.RulesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	set, err := rule.Compile(defs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to compile rules: %v\n", err)
		os.Exit(1)
	}

	if showRules {
		for _, line := range rule.Describe(set) {
			fmt.Println(line)
		}
		if inputPath == "" {
			return
		}
	}

	var text []byte
	if inputPath == "-" {
		text, err = io.ReadAll(os.Stdin)
	} else {
		text, err = os.ReadFile(inputPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
		os.Exit(1)
	}

	if seed == 0 {
		seed = cfg.Rewrite.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if header == "" {
		header = cfg.Rewrite.Header
	}

	result, err := engine.Rewrite(string(text), set, engine.Options{Seed: seed, Header: header})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Rewrite failed: %v\n", err)
		os.Exit(1)
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: rule %s at line %d offset %d: %s\n", w.Rule, w.Line, w.Pos, w.Reason)
	}

	if outputPath == "" {
		fmt.Print(result.Output)
		return
	}
	if err := os.WriteFile(outputPath, []byte(result.Output), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		os.Exit(1)
	}
}

// performHealthCheck performs a health check against the running server.
func performHealthCheck() {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
