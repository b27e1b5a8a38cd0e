package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ppiankov/shepard/internal/api"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes citation validation, Shepard analysis, treatment, network and
status tracking over HTTP under /v1. It stops gracefully on SIGINT or SIGTERM.

Example:
  shepard serve --port 8080 --store sqlite`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, logger, err := newPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := p.Close(); err != nil {
				logger.Warn("close pipeline", zap.Error(err))
			}
			_ = logger.Sync()
		}()

		return api.Serve(ctx, p, cfg.Server, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("port", 0, "listen port; default from config")
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
