package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/shepard/internal/model"
	"github.com/ppiankov/shepard/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	docFile     string
	docURL      string
	outJSON     string
	outMD       string
	timeout     time.Duration
	maxBytes    int64
	noFooter    bool
	noNarrative bool
	trackStatus bool
	jsonOut     bool

	validateText   string
	validateFile   string
	validateFormat string

	netScope    string
	netDepth    int
	netMaxNodes int
)

// shepardizeCmd runs the full analysis of one document
var shepardizeCmd = &cobra.Command{
	Use:   "shepardize [document-id]",
	Short: "Analyze the status and treatment of an authority",
	Long: `Shepardize looks up every later document that cites an authority and reports:
- Its status (good law, questioned, overruled, ...)
- How citing decisions treat it and the patterns in that treatment
- The citation network around it
- The validity of the citations in its own text

The document is given by index id, or loaded with --file or --url.

Example:
  shepard shepardize smith-v-jones
  shepard shepardize --file opinion.yaml --json report.json --md report.md
  shepard shepardize smith-v-jones --track`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShepardize,
}

var validateCmd = &cobra.Command{
	Use:   "validate [citation...]",
	Short: "Validate citation strings or the citations in a text",
	Long: `Validate parses each citation, checks it against the chosen style guide and
prints its issues and normalized form.

Example:
  shepard validate "Smith v. Jones, 123 F.3d 456 (9th Cir. 1997)"
  shepard validate --file brief.txt --format alwd`,
	RunE: runValidate,
}

var treatmentCmd = &cobra.Command{
	Use:   "treatment [document-id]",
	Short: "Analyze how citing decisions treat an authority",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocument(cmd, args, func(ctx context.Context, p *pipeline.Pipeline, doc model.Document) error {
			t, err := p.Treatment(ctx, doc)
			if err != nil {
				return err
			}
			if jsonOut {
				return pipeline.WriteJSON(os.Stdout, t)
			}
			fmt.Printf("%s: %s (confidence %.2f, consensus %.2f)\n", doc.DisplayName(), t.OverallTreatment, t.Confidence, t.Consensus)
			for _, pattern := range t.Patterns {
				fmt.Printf("  pattern:  %s\n", pattern.Description)
			}
			for _, insight := range t.Insights {
				fmt.Printf("  insight:  %s\n", insight)
			}
			for _, r := range t.Recommendations {
				fmt.Printf("  consider: %s\n", r)
			}
			return nil
		})
	},
}

var networkCmd = &cobra.Command{
	Use:   "network [document-id]",
	Short: "Map the citation network around an authority",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope := model.NetworkScope(netScope)
		switch scope {
		case "", model.ScopeImmediate, model.ScopeExtended, model.ScopeComprehensive:
		default:
			return fmt.Errorf("unknown scope: %s (supported: immediate, extended, comprehensive)", netScope)
		}
		return withDocument(cmd, args, func(ctx context.Context, p *pipeline.Pipeline, doc model.Document) error {
			n, err := p.Network(ctx, doc, scope, netDepth, netMaxNodes)
			if err != nil {
				return err
			}
			if jsonOut {
				return pipeline.WriteJSON(os.Stdout, n)
			}
			fmt.Printf("%s: %d documents, %d citations (scope %s, depth %d, density %.3f)\n",
				doc.DisplayName(), n.NodeCount, n.EdgeCount, n.Scope, n.MaxDepth, n.Density)
			if n.Partial {
				fmt.Println("  expansion stopped early; the network is partial")
			}
			for i, id := range n.AuthorityRankings {
				if i >= 10 {
					break
				}
				fmt.Printf("  %2d. %s\n", i+1, id)
			}
			for _, w := range n.Warnings {
				fmt.Printf("  ! %s\n", w)
			}
			return nil
		})
	},
}

var bridgesCmd = &cobra.Command{
	Use:   "bridges <from-id> <to-id>",
	Short: "Find citation paths connecting two documents",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline, cfg *model.Config) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			from, err := p.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			to, err := p.Resolve(ctx, args[1])
			if err != nil {
				return err
			}
			paths, err := p.Bridges(ctx, from, to, netDepth)
			if err != nil {
				return err
			}
			if jsonOut {
				return pipeline.WriteJSON(os.Stdout, paths)
			}
			if len(paths) == 0 {
				fmt.Printf("No citation path connects %s and %s\n", args[0], args[1])
				return nil
			}
			for _, path := range paths {
				fmt.Printf("%s  (length %d, strength %.2f)\n", strings.Join(path.NodeIDs, " -> "), path.Length, path.Strength)
			}
			return nil
		})
	},
}

var influenceCmd = &cobra.Command{
	Use:   "influence [document-id]",
	Short: "Report how influential an authority is in its citation network",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocument(cmd, args, func(ctx context.Context, p *pipeline.Pipeline, doc model.Document) error {
			r, err := p.Influence(ctx, doc)
			if err != nil {
				return err
			}
			if jsonOut {
				return pipeline.WriteJSON(os.Stdout, r)
			}
			fmt.Printf("%s: %s influence (%.2f)\n", doc.DisplayName(), r.InfluenceLevel, r.InfluenceScore)
			fmt.Printf("  direct citations:   %d\n", r.DirectCitations)
			fmt.Printf("  indirect citations: %d\n", r.IndirectCitations)
			fmt.Printf("  authority rank:     %d\n", r.AuthorityRank)
			for _, insight := range r.Insights {
				fmt.Printf("  - %s\n", insight)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(shepardizeCmd, validateCmd, treatmentCmd, networkCmd, bridgesCmd, influenceCmd)

	for _, c := range []*cobra.Command{shepardizeCmd, treatmentCmd, networkCmd, influenceCmd} {
		c.Flags().StringVar(&docFile, "file", "", "load the document from a .yaml, .json or text file")
		c.Flags().StringVar(&docURL, "url", "", "fetch the document from a web page")
		c.Flags().Int64Var(&maxBytes, "max-bytes", 2_000_000, "max response bytes to read with --url")
	}
	for _, c := range []*cobra.Command{shepardizeCmd, validateCmd, treatmentCmd, networkCmd, bridgesCmd, influenceCmd} {
		c.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	}
	for _, c := range []*cobra.Command{validateCmd, treatmentCmd, networkCmd, bridgesCmd, influenceCmd} {
		c.Flags().BoolVar(&jsonOut, "json", false, "print JSON instead of a summary")
	}

	// Output flags
	shepardizeCmd.Flags().StringVar(&outJSON, "json", "", "write the JSON report to this path (- for stdout)")
	shepardizeCmd.Flags().StringVar(&outMD, "md", "", "write the Markdown report to this path")
	shepardizeCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	shepardizeCmd.Flags().BoolVar(&noNarrative, "no-narrative", false, "skip the LLM narrative even when a provider is configured")
	shepardizeCmd.Flags().BoolVar(&trackStatus, "track", false, "record a status snapshot and raise alerts")

	validateCmd.Flags().StringVar(&validateText, "text", "", "validate every citation found in this text")
	validateCmd.Flags().StringVar(&validateFile, "file", "", "validate every citation found in this file")
	validateCmd.Flags().StringVar(&validateFormat, "format", "", "style guide (bluebook, alwd, chicago); default from config")

	networkCmd.Flags().StringVar(&netScope, "scope", "", "immediate, extended or comprehensive; default from config")
	for _, c := range []*cobra.Command{networkCmd, bridgesCmd} {
		c.Flags().IntVar(&netDepth, "depth", 0, "maximum expansion depth; default from config")
	}
	networkCmd.Flags().IntVar(&netMaxNodes, "max-nodes", 0, "maximum number of documents; default from config")
}

// loadDocument resolves the document a command operates on: an index id
// argument, or a document loaded with --file or --url
func loadDocument(ctx context.Context, p *pipeline.Pipeline, cfg *model.Config, args []string) (model.Document, error) {
	sources := 0
	for _, set := range []bool{len(args) > 0, docFile != "", docURL != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return model.Document{}, fmt.Errorf("give exactly one of a document id, --file or --url")
	}

	loader := pipeline.NewLoader(cfg.Index, maxBytes)
	switch {
	case docFile != "":
		return loader.Load(ctx, docFile)
	case docURL != "":
		return loader.Fetch(ctx, docURL)
	default:
		return p.Resolve(ctx, args[0])
	}
}

func withDocument(cmd *cobra.Command, args []string, fn func(ctx context.Context, p *pipeline.Pipeline, doc model.Document) error) error {
	return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline, cfg *model.Config) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		doc, err := loadDocument(ctx, p, cfg, args)
		if err != nil {
			return err
		}
		return fn(ctx, p, doc)
	})
}

func runShepardize(cmd *cobra.Command, args []string) error {
	return withDocument(cmd, args, func(ctx context.Context, p *pipeline.Pipeline, doc model.Document) error {
		opts := pipeline.DefaultOptions()
		opts.Track = trackStatus
		opts.Narrative = !noNarrative

		if verbose {
			fmt.Fprintf(os.Stderr, "Analyzing: %s\n", doc.DisplayName())
		}
		report, err := p.Analyze(ctx, doc, opts)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		renderer := pipeline.NewRenderer(!noFooter)
		if outJSON != "" {
			if err := renderer.RenderJSON(report, outJSON); err != nil {
				return fmt.Errorf("render failed: %w", err)
			}
		}
		if outMD != "" {
			if err := renderer.RenderMarkdown(report, outMD); err != nil {
				return fmt.Errorf("render failed: %w", err)
			}
		}
		if outJSON != "-" {
			renderer.RenderSummary(os.Stdout, report)
		}
		return nil
	})
}

func runValidate(cmd *cobra.Command, args []string) error {
	format := model.CitationFormat(validateFormat)
	switch format {
	case "", model.FormatBluebook, model.FormatALWD, model.FormatChicago:
	default:
		return fmt.Errorf("unknown format: %s (supported: bluebook, alwd, chicago)", validateFormat)
	}
	if len(args) == 0 && validateText == "" && validateFile == "" {
		return fmt.Errorf("give citations as arguments, or --text or --file")
	}

	return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline, cfg *model.Config) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var results []model.CitationValidationResult
		for _, c := range args {
			results = append(results, p.ValidateCitation(c, format))
		}

		text := validateText
		if validateFile != "" {
			doc, err := pipeline.LoadFile(validateFile)
			if err != nil {
				return err
			}
			text = doc.Content
		}
		if text != "" {
			found, err := p.ValidateDocument(ctx, model.Document{ID: "input", Content: text})
			if err != nil {
				return err
			}
			results = append(results, found...)
		}

		if jsonOut {
			return pipeline.WriteJSON(os.Stdout, results)
		}
		invalid := 0
		for _, r := range results {
			mark := "ok"
			if !r.IsValid {
				mark = "INVALID"
				invalid++
			}
			fmt.Printf("[%s] %s\n", mark, r.Citation)
			if r.NormalizedCitation != "" && r.NormalizedCitation != r.Citation {
				fmt.Printf("      normalized: %s\n", r.NormalizedCitation)
			}
			for _, issue := range r.Issues {
				fmt.Printf("      %s: %s\n", issue.Severity, issue.Message)
			}
		}
		fmt.Printf("\n%d of %d citations are valid\n", len(results)-invalid, len(results))
		return nil
	})
}
