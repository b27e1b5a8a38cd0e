package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/shepard/internal/cache"
	"github.com/ppiankov/shepard/internal/logging"
	"github.com/ppiankov/shepard/internal/lookup"
	"github.com/ppiankov/shepard/internal/model"
	"github.com/ppiankov/shepard/internal/pipeline"
	"github.com/ppiankov/shepard/internal/tracker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Version is set at build time
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "shepard",
	Short: "Shepard - legal citation validation and treatment analysis",
	Long: `Shepard validates legal citations and analyzes how later decisions treat
an authority: its status, treatment patterns, citation network and the history
of its status over time.

Shepard classifies treatment from the text of citing documents. It supports,
and never replaces, legal review.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("shepard %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.shepard/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.String("index", "", "citation universe file for the static index")
	flags.String("store", "", "status history store (memory, sqlite, postgres)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("index.static_path", flags.Lookup("index"))
	_ = viper.BindPFlag("tracker.store", flags.Lookup("store"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".shepard"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// SHEPARD_TRACKER_STORE overrides tracker.store
	viper.SetEnvPrefix("SHEPARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := registerDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}
	// Secrets are omitted from the marshaled defaults; bind them so env still reaches them
	_ = viper.BindEnv("llm.api_key")
	_ = viper.BindEnv("index.api_key")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// registerDefaults sets every key of cfg as a viper default, so that
// environment variables can override keys the config file never mentions
func registerDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setDefaults(v, "", tree)
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// loadConfig builds the effective configuration from defaults, the config
// file, the environment and flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newPipeline wires a pipeline from configuration. The caller must Close it.
func newPipeline(ctx context.Context, cfg *model.Config) (*pipeline.Pipeline, *zap.Logger, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}

	index, err := lookup.New(cfg.Index, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open citation index: %w", err)
	}
	store, err := tracker.OpenStore(ctx, cfg.Tracker)
	if err != nil {
		return nil, nil, err
	}

	var c cache.Cache = cache.NopCache{}
	if cfg.Cache.Enabled {
		c = cache.NewMemoryDiskCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	p, err := pipeline.New(cfg, pipeline.Deps{Index: index, Store: store, Cache: c}, logger)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	logger.Debug("pipeline ready",
		zap.String("index", cfg.Index.Provider),
		zap.String("store", cfg.Tracker.Store),
		zap.Bool("cache", cfg.Cache.Enabled))
	return p, logger, nil
}

// withPipeline loads configuration, runs fn with a pipeline and closes it
func withPipeline(cmd *cobra.Command, fn func(ctx context.Context, p *pipeline.Pipeline, cfg *model.Config) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
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
	return fn(ctx, p, cfg)
}
