package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/shepard/internal/llm"
	"github.com/ppiankov/shepard/internal/model"
)

const footer = "_Generated by shepard. Citation treatment is classified from the text of citing documents; it supports, and never replaces, legal review._\n"

// Renderer writes reports as JSON, Markdown and console summaries
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// RenderJSON writes the report to path as JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error { return WriteJSON(w, report) })
}

// RenderMarkdown writes the report to path as Markdown. An enabled narrative
// goes to a sibling .narrative.md file so generated text never mixes with the analysis.
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	if err := writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, r.Markdown(report))
		return err
	}); err != nil {
		return err
	}
	if md := llm.RenderMarkdown(report.Narrative); md != "" {
		narrativePath := strings.TrimSuffix(path, filepath.Ext(path)) + ".narrative.md"
		if err := writeFile(narrativePath, func(w io.Writer) error {
			_, err := io.WriteString(w, md)
			return err
		}); err != nil {
			return fmt.Errorf("write narrative: %w", err)
		}
	}
	return nil
}

// Markdown renders the report
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Citation Analysis: %s\n\n", displayName(report.Document))
	if report.Document.Citation != "" {
		fmt.Fprintf(&b, "- **Citation:** %s\n", report.Document.Citation)
	}
	fmt.Fprintf(&b, "- **Document ID:** %s\n", report.Document.ID)
	fmt.Fprintf(&b, "- **Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04 MST"))

	if s := report.Shepard; s != nil {
		writeShepard(&b, s)
	}
	if t := report.Treatment; t != nil {
		writeTreatment(&b, t)
	}
	if n := report.Network; n != nil {
		writeNetwork(&b, n)
	}
	if len(report.Citations) > 0 {
		writeCitations(&b, report.Citations)
	}
	if snap := report.Snapshot; snap != nil {
		b.WriteString("## Status Tracking\n\n")
		fmt.Fprintf(&b, "Snapshot `%s` recorded %s (%s, confidence %.2f).\n\n",
			snap.ID, snap.Timestamp.Format("2006-01-02 15:04"), snap.Status, snap.Confidence)
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString(footer)
	}
	return b.String()
}

func writeShepard(b *strings.Builder, s *model.ShepardAnalysis) {
	b.WriteString("## Status\n\n")
	fmt.Fprintf(b, "**%s** (confidence %.2f)\n\n", statusLabel(s.OverallStatus), s.Confidence)
	fmt.Fprintf(b, "| Citing decisions | Positive | Negative | Neutral | Precedential value | Reliability |\n")
	fmt.Fprintf(b, "|---|---|---|---|---|---|\n")
	fmt.Fprintf(b, "| %d | %d | %d | %d | %.2f | %.2f |\n\n",
		s.TotalCitations, s.PositiveTreatmentCount, s.NegativeTreatmentCount, s.NeutralTreatmentCount,
		s.PrecedentialValue, s.ReliabilityScore)

	writeList(b, "### Alerts", s.Alerts)
	writeList(b, "### Warnings", s.Warnings)

	if len(s.CitingCases) > 0 {
		b.WriteString("### Citing Decisions\n\n")
		b.WriteString("| Decision | Court | Signal | Context | Confidence |\n|---|---|---|---|---|\n")
		for _, c := range s.CitingCases {
			name := c.CaseName
			if c.Citation != "" {
				name += ", " + c.Citation
			}
			fmt.Fprintf(b, "| %s | %s | %s | %s | %.2f |\n", escapeCell(name), escapeCell(c.Court), c.Signal, c.Context, c.ConfidenceScore)
		}
		b.WriteString("\n")
	}
}

func writeTreatment(b *strings.Builder, t *model.TreatmentAnalysis) {
	b.WriteString("## Treatment\n\n")
	fmt.Fprintf(b, "Overall treatment **%s** (confidence %.2f, consensus %.2f).\n\n", t.OverallTreatment, t.Confidence, t.Consensus)
	if len(t.Patterns) > 0 {
		b.WriteString("### Patterns\n\n")
		for _, p := range t.Patterns {
			fmt.Fprintf(b, "- **%s** (significance %.1f): %s\n", p.Type, p.Significance, p.Description)
		}
		b.WriteString("\n")
	}
	writeList(b, "### Insights", t.Insights)
	writeList(b, "### Recommendations", t.Recommendations)
}

func writeNetwork(b *strings.Builder, n *model.NetworkAnalysis) {
	b.WriteString("## Citation Network\n\n")
	fmt.Fprintf(b, "%d documents, %d citations (scope %s, depth %d, density %.3f).", n.NodeCount, n.EdgeCount, n.Scope, n.MaxDepth, n.Density)
	if n.Partial {
		b.WriteString(" Expansion stopped early; the network is partial.")
	}
	b.WriteString("\n\n")
	if len(n.AuthorityRankings) > 0 {
		b.WriteString("### Most Authoritative\n\n")
		for i, id := range n.AuthorityRankings {
			if i >= 5 {
				break
			}
			title := id
			if node, ok := n.Nodes[id]; ok && node.Title != "" {
				title = node.Title
			}
			fmt.Fprintf(b, "%d. %s\n", i+1, title)
		}
		b.WriteString("\n")
	}
	writeList(b, "### Network Warnings", n.Warnings)
}

func writeCitations(b *strings.Builder, results []model.CitationValidationResult) {
	valid := 0
	for _, r := range results {
		if r.IsValid {
			valid++
		}
	}
	fmt.Fprintf(b, "## Citations in Text\n\n%d of %d citations are valid.\n\n", valid, len(results))
	for _, r := range results {
		if len(r.Issues) == 0 {
			continue
		}
		fmt.Fprintf(b, "- `%s`\n", r.Citation)
		for _, issue := range r.Issues {
			fmt.Fprintf(b, "  - %s: %s\n", issue.Severity, issue.Message)
		}
	}
	b.WriteString("\n")
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

// RenderSummary prints a short console summary of the report
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	fmt.Fprintf(w, "%s\n", displayName(report.Document))
	if s := report.Shepard; s != nil {
		fmt.Fprintf(w, "  Status:      %s (confidence %.2f)\n", statusLabel(s.OverallStatus), s.Confidence)
		fmt.Fprintf(w, "  Citing:      %d (%d positive, %d negative)\n", s.TotalCitations, s.PositiveTreatmentCount, s.NegativeTreatmentCount)
		for _, a := range s.Alerts {
			fmt.Fprintf(w, "  ! %s\n", a)
		}
	}
	if t := report.Treatment; t != nil {
		fmt.Fprintf(w, "  Treatment:   %s (consensus %.2f)\n", t.OverallTreatment, t.Consensus)
	}
	if n := report.Network; n != nil {
		fmt.Fprintf(w, "  Network:     %d nodes, %d edges\n", n.NodeCount, n.EdgeCount)
	}
}

func displayName(ref model.DocumentRef) string {
	if ref.Name != "" {
		return ref.Name
	}
	if ref.Citation != "" {
		return ref.Citation
	}
	return ref.ID
}

func statusLabel(s model.CaseStatus) string {
	return strings.ToUpper(strings.ReplaceAll(string(s), "_", " "))
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// writeFile writes to path, or to stdout when path is "-"
func writeFile(path string, write func(io.Writer) error) (err error) {
	if path == "-" {
		return write(os.Stdout)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	return write(f)
}
