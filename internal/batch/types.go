package batch

import "time"

// AuditRecord is one row of the parquet audit trail: which rule
// replaced which value (by hash) during which run. Originals are never
// written, only their SHA-256.
type AuditRecord struct {
	RunID          string `parquet:"run_id"`
	File           string `parquet:"file"`
	Rule           string `parquet:"rule"`
	OriginalSHA256 string `parquet:"original_sha256"`
	Replacement    string `parquet:"replacement"`
	CreatedAtMS    int64  `parquet:"created_at_ms"`
}

// Config contains batch pipeline configuration.
type Config struct {
	// Workers is the number of files rewritten concurrently. Each file
	// is its own run with its own mapping cache.
	Workers   int
	OutputDir string
	// AuditFile is the parquet file receiving the audit trail. Empty
	// disables auditing.
	AuditFile string
	// Seed fixes every run's pseudo-random source. Zero derives a
	// fresh seed per invocation.
	Seed   int64
	Header string
}

// Result summarizes one pipeline invocation.
type Result struct {
	FilesProcessed int
	FilesFailed    int
	TotalMappings  int
	TotalWarnings  int
	Duration       time.Duration
	Errors         []string
}
