package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Geeks-Trident-LLC/rewordapp/internal/rule"
)

func testRuleSet(t *testing.T) *rule.Set {
	t.Helper()
	set, err := rule.Compile([]rule.Definition{{
		Name:        "ids",
		Pattern:     rule.ClassPattern("number"),
		Replacement: rule.CounterReplacement("ID-%d"),
	}})
	require.NoError(t, err)
	return set
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessFiles(t *testing.T) {
	inDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "out")
	audit := filepath.Join(t.TempDir(), "audit.parquet")

	a := writeInput(t, inDir, "a.log", "request 42 done\n")
	b := writeInput(t, inDir, "b.log", "no numbers here\n")

	p := NewPipeline(testRuleSet(t), &Config{
		Workers:   2,
		OutputDir: outDir,
		AuditFile: audit,
		Seed:      1,
	}, zap.NewNop())

	res, err := p.ProcessFiles(context.Background(), []string{a, b})
	require.NoError(t, err)

	assert.Equal(t, 2, res.FilesProcessed)
	assert.Equal(t, 0, res.FilesFailed)
	assert.Equal(t, 1, res.TotalMappings)
	assert.Equal(t, 0, res.TotalWarnings)
	assert.Empty(t, res.Errors)

	outA, err := os.ReadFile(filepath.Join(outDir, "a.log"))
	require.NoError(t, err)
	assert.Equal(t, "request ID-1 done\n", string(outA))

	outB, err := os.ReadFile(filepath.Join(outDir, "b.log"))
	require.NoError(t, err)
	assert.Equal(t, "no numbers here\n", string(outB), "files without matches round-trip unchanged")

	records, err := ReadAudit(audit)
	require.NoError(t, err)
	require.Len(t, records, 1)

	sum := sha256.Sum256([]byte("42"))
	assert.Equal(t, "a.log", records[0].File)
	assert.Equal(t, "ids", records[0].Rule)
	assert.Equal(t, hex.EncodeToString(sum[:]), records[0].OriginalSHA256)
	assert.Equal(t, "ID-1", records[0].Replacement)
	assert.NotEmpty(t, records[0].RunID)
	assert.Positive(t, records[0].CreatedAtMS)
}

func TestProcessFilesSkipsFailures(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	good := writeInput(t, t.TempDir(), "good.log", "value 7\n")
	missing := filepath.Join(t.TempDir(), "does-not-exist.log")

	p := NewPipeline(testRuleSet(t), &Config{
		Workers:   1,
		OutputDir: outDir,
		Seed:      1,
	}, zap.NewNop())

	res, err := p.ProcessFiles(context.Background(), []string{missing, good})
	require.NoError(t, err, "a failing file must not fail the pipeline")

	assert.Equal(t, 1, res.FilesProcessed)
	assert.Equal(t, 1, res.FilesFailed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "does-not-exist.log")

	out, err := os.ReadFile(filepath.Join(outDir, "good.log"))
	require.NoError(t, err)
	assert.Equal(t, "value ID-1\n", string(out))
}

func TestProcessFilesNoAuditWhenDisabled(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	in := writeInput(t, t.TempDir(), "a.log", "value 7\n")

	p := NewPipeline(testRuleSet(t), &Config{
		Workers:   1,
		OutputDir: outDir,
		Seed:      1,
	}, zap.NewNop())

	res, err := p.ProcessFiles(context.Background(), []string{in})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesProcessed)
}

func TestProcessFilesDistinctOutputsForSameBaseName(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	first := writeInput(t, t.TempDir(), "app.log", "value 1\n")
	second := writeInput(t, t.TempDir(), "app.log", "value 2\n")

	p := NewPipeline(testRuleSet(t), &Config{
		Workers:   2,
		OutputDir: outDir,
		Seed:      1,
	}, zap.NewNop())

	res, err := p.ProcessFiles(context.Background(), []string{first, second})
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesProcessed)
	assert.Equal(t, 0, res.FilesFailed)

	outA, err := os.ReadFile(filepath.Join(outDir, "app.log"))
	require.NoError(t, err)
	assert.Equal(t, "value ID-1\n", string(outA))

	outB, err := os.ReadFile(filepath.Join(outDir, "app.1.log"))
	require.NoError(t, err)
	assert.Equal(t, "value ID-1\n", string(outB), "colliding base names must not overwrite each other")
}

func TestOutputNames(t *testing.T) {
	names := outputNames([]string{"/x/a.log", "/y/a.log", "/z/a.log", "/x/b.log"})
	assert.Equal(t, map[string]string{
		"/x/a.log": "a.log",
		"/y/a.log": "a.1.log",
		"/z/a.log": "a.2.log",
		"/x/b.log": "b.log",
	}, names)
}

func TestProcessFilesCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(testRuleSet(t), &Config{
		Workers:   1,
		OutputDir: filepath.Join(t.TempDir(), "out"),
	}, zap.NewNop())

	inputs := make([]string, 0, 8)
	dir := t.TempDir()
	for i := 0; i < 8; i++ {
		inputs = append(inputs, writeInput(t, dir, filepath.Base(dir)+".log", "x\n"))
	}

	_, err := p.ProcessFiles(ctx, inputs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessFilesHeader(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	in := writeInput(t, t.TempDir(), "a.log", "value 7\n")

	p := NewPipeline(testRuleSet(t), &Config{
		Workers:   1,
		OutputDir: outDir,
		Seed:      1,
		Header:    "# sanitized",
	}, zap.NewNop())

	_, err := p.ProcessFiles(context.Background(), []string{in})
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(outDir, "a.log"))
	require.NoError(t, err)
	assert.Equal(t, "# sanitized\nvalue ID-1\n", string(out))
}
