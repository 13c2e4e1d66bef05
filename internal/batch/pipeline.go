// Package batch rewrites whole files concurrently and writes a parquet
// audit trail of every replacement that was made.
package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/Geeks-Trident-LLC/rewordapp/internal/engine"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/rule"
)

// Pipeline rewrites files through a shared compiled rule set. The set
// itself is immutable and safe to share; every file gets its own run
// with its own mapping cache and generator state.
type Pipeline struct {
	set    *rule.Set
	config *Config
	logger *zap.Logger
}

// NewPipeline creates a batch pipeline.
func NewPipeline(set *rule.Set, config *Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{set: set, config: config, logger: logger}
}

type fileJob struct {
	in  string
	out string // file name inside OutputDir, unique across the batch
}

type fileOutcome struct {
	file     string
	mappings int
	warnings int
	records  []AuditRecord
	err      error
}

// outputNames assigns each input a unique output file name. Base names
// collide when inputs come from different directories; later duplicates
// get a numeric infix ("app.log", "app.1.log", ...) in input order so
// the assignment stays deterministic.
func outputNames(paths []string) map[string]string {
	used := make(map[string]bool, len(paths))
	names := make(map[string]string, len(paths))
	for _, path := range paths {
		base := filepath.Base(path)
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)

		name := base
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d%s", stem, n, ext)
		}
		used[name] = true
		names[path] = name
	}
	return names
}

// ProcessFiles rewrites every input file into the output directory and
// appends the audit trail. A failing file is reported and skipped; the
// pipeline keeps going.
func (p *Pipeline) ProcessFiles(ctx context.Context, paths []string) (*Result, error) {
	start := time.Now()

	if err := os.MkdirAll(p.config.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	seed := p.config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	p.logger.Info("Starting batch pipeline",
		zap.Int("files", len(paths)),
		zap.Int("workers", p.config.Workers),
		zap.Int64("seed", seed))

	names := outputNames(paths)
	jobs := make(chan fileJob)
	outcomes := make(chan fileOutcome)

	var wg sync.WaitGroup
	for w := 0; w < p.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				outcomes <- p.processFile(job, seed)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, path := range paths {
			select {
			case jobs <- fileJob{in: path, out: names[path]}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	result := &Result{}
	var audit []AuditRecord
	for outcome := range outcomes {
		if outcome.err != nil {
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", outcome.file, outcome.err))
			p.logger.Error("File failed", zap.String("file", outcome.file), zap.Error(outcome.err))
			continue
		}
		result.FilesProcessed++
		result.TotalMappings += outcome.mappings
		result.TotalWarnings += outcome.warnings
		audit = append(audit, outcome.records...)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	if p.config.AuditFile != "" && len(audit) > 0 {
		if err := p.writeAudit(audit); err != nil {
			return result, err
		}
	}

	result.Duration = time.Since(start)
	p.logger.Info("Batch pipeline completed",
		zap.Int("processed", result.FilesProcessed),
		zap.Int("failed", result.FilesFailed),
		zap.Int("mappings", result.TotalMappings),
		zap.Int("warnings", result.TotalWarnings),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// processFile rewrites one file as a self-contained run.
func (p *Pipeline) processFile(job fileJob, seed int64) fileOutcome {
	outcome := fileOutcome{file: job.in}
	runID := uuid.NewString()

	data, err := os.ReadFile(job.in)
	if err != nil {
		outcome.err = fmt.Errorf("failed to read input: %w", err)
		return outcome
	}

	result, err := engine.Rewrite(string(data), p.set, engine.Options{
		Seed:   seed,
		Header: p.config.Header,
	})
	if err != nil {
		outcome.err = err
		return outcome
	}

	outPath := filepath.Join(p.config.OutputDir, job.out)
	if err := os.WriteFile(outPath, []byte(result.Output), 0o644); err != nil {
		outcome.err = fmt.Errorf("failed to write output: %w", err)
		return outcome
	}

	now := time.Now().UnixMilli()
	for _, m := range result.Mappings {
		sum := sha256.Sum256([]byte(m.Original))
		outcome.records = append(outcome.records, AuditRecord{
			RunID:          runID,
			File:           job.out,
			Rule:           m.Rule,
			OriginalSHA256: hex.EncodeToString(sum[:]),
			Replacement:    m.Replacement,
			CreatedAtMS:    now,
		})
	}
	outcome.mappings = len(result.Mappings)
	outcome.warnings = len(result.Warnings)

	p.logger.Debug("File rewritten",
		zap.String("file", job.in),
		zap.String("run_id", runID),
		zap.Int("mappings", outcome.mappings),
		zap.Int("warnings", outcome.warnings))

	return outcome
}

// writeAudit writes the audit records as a parquet file.
func (p *Pipeline) writeAudit(records []AuditRecord) error {
	file, err := os.Create(p.config.AuditFile)
	if err != nil {
		return fmt.Errorf("failed to create audit file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[AuditRecord](file)
	if _, err := writer.Write(records); err != nil {
		writer.Close() //nolint:errcheck // already failing
		return fmt.Errorf("failed to write audit records: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize audit file: %w", err)
	}

	p.logger.Info("Audit trail written",
		zap.String("file", p.config.AuditFile),
		zap.Int("records", len(records)))

	return nil
}

// ReadAudit loads audit records back from a parquet file, mainly for
// inspection tooling and tests.
func ReadAudit(path string) ([]AuditRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}
	defer file.Close()

	reader := parquet.NewGenericReader[AuditRecord](file)
	defer reader.Close()

	var out []AuditRecord
	buf := make([]AuditRecord, 64)
	for {
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			break
		}
	}
	return out, nil
}
