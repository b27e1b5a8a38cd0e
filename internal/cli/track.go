package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/shepard/internal/model"
	"github.com/ppiankov/shepard/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	periodDays     int
	alertsDocument string
	minSeverity    string
)

var trackCmd = &cobra.Command{
	Use:   "track [document-id]",
	Short: "Record a status snapshot and raise alerts on change",
	Long: `Track shepardizes an authority, stores a snapshot of its status and compares
it with the previous one. Status changes raise alerts; list them with
'shepard alerts'.

Example:
  shepard track smith-v-jones
  shepard track --file opinion.yaml --store sqlite`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocument(cmd, args, func(ctx context.Context, p *pipeline.Pipeline, doc model.Document) error {
			snap, err := p.Track(ctx, doc)
			if err != nil {
				return err
			}
			if jsonOut {
				return pipeline.WriteJSON(os.Stdout, snap)
			}
			fmt.Printf("Recorded snapshot %s for %s: %s (confidence %.2f)\n", snap.ID, doc.DisplayName(), snap.Status, snap.Confidence)

			alerts, err := p.Alerts(ctx, doc.ID, model.SeverityInfo)
			if err != nil {
				return err
			}
			for _, a := range alerts {
				fmt.Printf("  %s [%s] %s\n", a.ID, a.Severity, a.Title)
			}
			return nil
		})
	},
}

var trendsCmd = &cobra.Command{
	Use:   "trends <document-id>",
	Short: "Analyze the status history of a tracked authority",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline, cfg *model.Config) error {
			days := periodDays
			if days <= 0 {
				days = cfg.Tracker.DefaultPeriodDays
			}
			trend, err := p.Trends(ctx, args[0], days)
			if err != nil {
				return err
			}
			if jsonOut {
				return pipeline.WriteJSON(os.Stdout, trend)
			}
			if trend == nil {
				fmt.Printf("%s: fewer than two snapshots in the last %d days\n", args[0], days)
				return nil
			}
			fmt.Printf("%s over %d days (%d snapshots)\n", args[0], trend.PeriodDays, trend.SnapshotCount)
			fmt.Printf("  trend:       %s (slope %.3f)\n", trend.Direction, trend.Slope)
			fmt.Printf("  status:      %s, predicted %s (confidence %.2f)\n", trend.CurrentStatus, trend.PredictedStatus, trend.PredictionConfidence)
			fmt.Printf("  stability:   %.2f\n", trend.StatusStability)
			fmt.Printf("  changes:     %d\n", trend.StatusChanges)
			fmt.Printf("  risk:        %s\n", trend.RiskLevel)
			for _, insight := range trend.Insights {
				fmt.Printf("  - %s\n", insight)
			}
			return nil
		})
	},
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List unacknowledged status alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		sev := model.Severity(minSeverity)
		if sev == "" {
			sev = model.SeverityInfo
		}
		if sev.Rank() < 0 {
			return fmt.Errorf("unknown severity: %s (supported: info, low, medium, high, critical)", minSeverity)
		}
		return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline, cfg *model.Config) error {
			alerts, err := p.Alerts(ctx, alertsDocument, sev)
			if err != nil {
				return err
			}
			if jsonOut {
				return pipeline.WriteJSON(os.Stdout, alerts)
			}
			if len(alerts) == 0 {
				fmt.Println("No pending alerts")
				return nil
			}
			for _, a := range alerts {
				fmt.Printf("%s  [%s] %s  %s\n", a.ID, a.Severity, a.CreatedAt.Format("2006-01-02 15:04"), a.Title)
				fmt.Printf("    %s\n", a.Message)
			}
			return nil
		})
	},
}

var ackCmd = &cobra.Command{
	Use:   "ack <alert-id>",
	Short: "Acknowledge a status alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline, cfg *model.Config) error {
			changed, err := p.Acknowledge(ctx, args[0])
			if err != nil {
				return err
			}
			if changed {
				fmt.Printf("Acknowledged %s\n", args[0])
			} else {
				fmt.Printf("%s was already acknowledged\n", args[0])
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(trackCmd, trendsCmd, alertsCmd, ackCmd)

	trackCmd.Flags().StringVar(&docFile, "file", "", "load the document from a .yaml, .json or text file")
	trackCmd.Flags().StringVar(&docURL, "url", "", "fetch the document from a web page")
	trackCmd.Flags().Int64Var(&maxBytes, "max-bytes", 2_000_000, "max response bytes to read with --url")
	trackCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	for _, c := range []*cobra.Command{trackCmd, trendsCmd, alertsCmd} {
		c.Flags().BoolVar(&jsonOut, "json", false, "print JSON instead of a summary")
	}

	trendsCmd.Flags().IntVar(&periodDays, "period-days", 0, "trend window in days; default from config")
	alertsCmd.Flags().StringVar(&alertsDocument, "document", "", "only alerts for this document id")
	alertsCmd.Flags().StringVar(&minSeverity, "min-severity", "info", "lowest severity to list")
}
