package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ppiankov/shepard/internal/model"
	"github.com/ppiankov/shepard/internal/pipeline"
	"github.com/ppiankov/shepard/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	batchTrack   bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Shepardize many documents from a file in parallel",
	Long: `Batch analyzes every document id listed in a file (one per line, # comments
allowed) with a pool of workers and writes a JSON and a Markdown report per
document.

Example:
  shepard batch ids.txt
  shepard batch ids.txt --concurrency 8 --output-dir ./reports --track`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./shepard-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchTrack, "track", false, "record a status snapshot for every document")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	batchCmd.Flags().BoolVar(&noNarrative, "no-narrative", false, "skip LLM narratives")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline, cfg *model.Config) error {
		ctx, cancel := context.WithTimeout(ctx, batchTimeout)
		defer cancel()

		fmt.Fprintf(os.Stderr, "Input file:  %s\n", file)
		fmt.Fprintf(os.Stderr, "Workers:     %d\n", concurrency)
		fmt.Fprintf(os.Stderr, "Output dir:  %s\n\n", outputDir)

		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}

		opts := pipeline.DefaultOptions()
		opts.Track = batchTrack
		opts.Narrative = !noNarrative
		p.SetOptions(opts)

		processor := worker.NewBatchProcessor(p, concurrency)
		results, err := processor.ProcessFile(ctx, file)
		if err != nil {
			return fmt.Errorf("process file: %w", err)
		}

		renderer := pipeline.NewRenderer(!noFooter)
		successCount, failureCount := 0, 0
		for _, result := range results {
			if result.Error != nil {
				failureCount++
				fmt.Fprintf(os.Stderr, "x %s: %v\n", result.DocumentID, result.Error)
				continue
			}

			name := sanitizeFilename(result.DocumentID)
			if err := renderer.RenderJSON(result.Report, filepath.Join(outputDir, name+".json")); err != nil {
				failureCount++
				fmt.Fprintf(os.Stderr, "x %s: failed to write JSON: %v\n", result.DocumentID, err)
				continue
			}
			if err := renderer.RenderMarkdown(result.Report, filepath.Join(outputDir, name+".md")); err != nil {
				failureCount++
				fmt.Fprintf(os.Stderr, "x %s: failed to write Markdown: %v\n", result.DocumentID, err)
				continue
			}

			successCount++
			status := model.StatusUnknown
			if result.Report.Shepard != nil {
				status = result.Report.Shepard.OverallStatus
			}
			fmt.Fprintf(os.Stderr, "ok %s (%s)\n", result.DocumentID, status)
		}

		fmt.Fprintf(os.Stderr, "\nTotal: %d  Success: %d  Failures: %d\n", len(results), successCount, failureCount)
		if failureCount > 0 && successCount == 0 {
			return fmt.Errorf("all %d documents failed", failureCount)
		}
		return nil
	})
}

// sanitizeFilename makes a document id safe to use as a file name
func sanitizeFilename(s string) string {
	var b []rune
	for _, r := range s {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			r = '_'
		case ' ':
			r = '-'
		}
		b = append(b, r)
	}
	out := string(b)
	if len(out) > 100 {
		out = out[:100]
	}
	if out == "" || out == "." || out == ".." {
		return "document"
	}
	return out
}
