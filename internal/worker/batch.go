package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/shepard/internal/model"
)

// Analyzer produces the report for one document id
type Analyzer interface {
	AnalyzeID(ctx context.Context, id string) (*model.Report, error)
}

// AnalyzeJob analyzes one document
type AnalyzeJob struct {
	DocumentID string
	Analyzer   Analyzer
}

// Execute executes the analysis job
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	report, err := j.Analyzer.AnalyzeID(ctx, j.DocumentID)
	if err != nil {
		return &AnalyzeResult{DocumentID: j.DocumentID, Error: err}
	}
	return &AnalyzeResult{DocumentID: j.DocumentID, Report: report}
}

// AnalyzeResult represents the result of an analysis job
type AnalyzeResult struct {
	DocumentID string
	Report     *model.Report
	Error      error
}

// GetError returns the error from the analysis
func (r *AnalyzeResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes many documents concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessIDs analyzes every document and returns results in input order.
// Documents skipped because ctx ended carry ctx's error.
func (b *BatchProcessor) ProcessIDs(ctx context.Context, ids []string) []*AnalyzeResult {
	if len(ids) == 0 {
		return []*AnalyzeResult{}
	}

	jobs := make([]Job, len(ids))
	for i, id := range ids {
		jobs[i] = &AnalyzeJob{DocumentID: id, Analyzer: b.analyzer}
	}

	results := NewPool(b.concurrency).Run(ctx, jobs)

	out := make([]*AnalyzeResult, len(results))
	for i, result := range results {
		if result == nil {
			out[i] = &AnalyzeResult{DocumentID: ids[i], Error: fmt.Errorf("not started: %w", context.Cause(ctx))}
			continue
		}
		out[i] = result.(*AnalyzeResult)
	}
	return out
}

// ProcessFile reads document ids from a file and analyzes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AnalyzeResult, error) {
	ids, err := ReadIDsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read document ids: %w", err)
	}
	return b.ProcessIDs(ctx, ids), nil
}

// ReadIDsFromFile reads document ids from a file, one per line.
// Blank lines and # comments are skipped; duplicates are dropped.
func ReadIDsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			ids = append(ids, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return ids, nil
}
