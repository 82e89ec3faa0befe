// Package main provides the epadash CLI entry point.
// epadash syncs EPA scores from procedure report narratives into the
// radiology residency dashboard.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ocnguye/epa-dash-sub000/cmd"
	"github.com/ocnguye/epa-dash-sub000/config"
	"github.com/ocnguye/epa-dash-sub000/pkg/buildinfo"
	"github.com/ocnguye/epa-dash-sub000/pkg/logging"
)

// Global flags and state.
var (
	configDir    string
	outputFormat string
	debug        bool

	// cfg holds the loaded configuration.
	cfg *config.CLIConfig
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "epadash",
	Short: "EPA score sync for the residency dashboard",
	Long: `epadash extracts EPA (Entrustable Professional Activity) scores from the
narrative text of procedure reports and records them against the
reports' trainee participants in the residency dashboard database.

Attendings grade trainees inside the report text itself, in lines such
as "Jane Doe Trainee EPA: 4". epadash finds those assertions, resolves
each graded name against the report's participant roster, and upserts
one score per participant. Assertions it cannot resolve with confidence
are written to a per-run review artifact instead of being guessed.

COMMON WORKFLOWS:
  Dry run:          epadash sync
  Apply scores:     epadash sync --write
  Inspect a report: epadash preview <report-id>
  Check system:     epadash health
  Store password:   epadash db password set

All commands support --output json for machine-readable results.`,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		// Skip initialization for commands that don't need it.
		if c.Name() == "version" || c.Name() == "help" || c.Name() == "completion" {
			return nil
		}

		if configDir != "" {
			expanded, err := config.ExpandPath(configDir)
			if err != nil {
				return fmt.Errorf("invalid config directory: %w", err)
			}
			os.Setenv("EPADASH_CONFIG_DIR", expanded)
		}

		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		// Override with command-line flags.
		if outputFormat != "" {
			cfg.OutputFormat = config.OutputFormat(outputFormat)
			if !cfg.OutputFormat.IsValid() {
				return fmt.Errorf("invalid output format: %s (must be text or json)", outputFormat)
			}
		}
		if debug {
			cfg.Debug = true
		}

		logCfg := logging.DefaultConfig()
		if cfg.Debug {
			logCfg.Level = logging.LevelDebug
		}
		logging.SetGlobal(logging.NewLogger(logCfg))

		return nil
	},
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build time of the epadash CLI.`,
	RunE: func(c *cobra.Command, args []string) error {
		info := buildinfo.Get("epadash")
		out := c.OutOrStdout()
		fmt.Fprintf(out, "epadash version %s\n", info.Version)
		fmt.Fprintf(out, "  commit:     %s\n", info.Commit)
		fmt.Fprintf(out, "  built:      %s\n", info.BuildTime)
		return nil
	},
}

// configCmd manages CLI configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `View and modify the epadash CLI configuration settings.`,
}

// configShowCmd displays current configuration.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current CLI configuration values.`,
	RunE: func(c *cobra.Command, args []string) error {
		if cfg == nil {
			var err error
			cfg, err = config.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
		}

		configPath, _ := config.ConfigPath()
		reviewDir, _ := cfg.ResolveReviewDir()
		out := c.OutOrStdout()

		fmt.Fprintln(out, "Current configuration:")
		fmt.Fprintf(out, "  Config file:   %s\n", configPath)
		fmt.Fprintf(out, "  Output format: %s\n", cfg.OutputFormat)
		fmt.Fprintf(out, "  Debug:         %t\n", cfg.Debug)
		fmt.Fprintf(out, "  Review dir:    %s\n", reviewDir)
		fmt.Fprintf(out, "  Database:      %s@%s:%d/%s (sslmode=%s)\n",
			cfg.Database.User, cfg.Database.Host, cfg.Database.Port,
			cfg.Database.Database, cfg.Database.SSLMode)
		if cfg.Redis.Enabled() {
			fmt.Fprintf(out, "  Redis:         %s (db %d)\n", cfg.Redis.Addr, cfg.Redis.DB)
		} else {
			fmt.Fprintln(out, "  Redis:         not configured")
		}
		fmt.Fprintf(out, "  Sync defaults: limit %d, %d workers\n", cfg.Sync.Limit, cfg.Sync.Workers)

		return nil
	},
}

// configInitCmd initializes configuration.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long:  `Create a new configuration file with default values if one doesn't exist.`,
	RunE: func(c *cobra.Command, args []string) error {
		configPath, err := config.ConfigPath()
		if err != nil {
			return fmt.Errorf("getting config path: %w", err)
		}
		out := c.OutOrStdout()

		if _, err := os.Stat(configPath); err == nil {
			fmt.Fprintf(out, "Configuration file already exists: %s\n", configPath)
			fmt.Fprintln(out, "Use 'epadash config show' to view current settings.")
			return nil
		}

		defaultCfg := config.DefaultConfig()
		if err := config.SaveConfig(defaultCfg); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Fprintf(out, "Created configuration file: %s\n", configPath)
		return nil
	},
}

// configSetCmd sets a configuration value.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

Available keys:
  output_format  - Default output format (text, json)
  review_dir     - Directory for review artifacts (supports ~)
  db_host        - Database host
  db_port        - Database port
  db_name        - Database name
  db_user        - Database user
  db_sslmode     - Database SSL mode
  redis_addr     - Redis cache address (empty disables the cache)
  sync_limit     - Default report batch size
  sync_workers   - Default concurrent workers
  debug          - Enable debug mode (true/false)

Examples:
  epadash config set output_format json
  epadash config set db_host db.internal
  epadash config set redis_addr localhost:6379
  epadash config set sync_limit 100`,
	Args: cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		currentCfg, err := config.LoadConfig()
		if err != nil {
			currentCfg = config.DefaultConfig()
		}

		switch key {
		case "output_format":
			format := config.OutputFormat(value)
			if !format.IsValid() {
				return fmt.Errorf("invalid output format: %s (must be text or json)", value)
			}
			currentCfg.OutputFormat = format
		case "review_dir":
			if _, err := config.ExpandPath(value); err != nil {
				return fmt.Errorf("invalid review directory: %w", err)
			}
			currentCfg.ReviewDir = value
		case "db_host":
			currentCfg.Database.Host = value
		case "db_port":
			port, err := strconv.Atoi(value)
			if err != nil || port <= 0 || port > 65535 {
				return fmt.Errorf("invalid port value: %s", value)
			}
			currentCfg.Database.Port = port
		case "db_name":
			currentCfg.Database.Database = value
		case "db_user":
			currentCfg.Database.User = value
		case "db_sslmode":
			currentCfg.Database.SSLMode = value
		case "redis_addr":
			if value == "" {
				currentCfg.Redis = nil
			} else {
				if currentCfg.Redis == nil {
					currentCfg.Redis = &config.RedisConfig{}
				}
				currentCfg.Redis.Addr = value
			}
		case "sync_limit":
			limit, err := strconv.Atoi(value)
			if err != nil || limit <= 0 {
				return fmt.Errorf("invalid sync_limit value: %s", value)
			}
			currentCfg.Sync.Limit = limit
		case "sync_workers":
			workers, err := strconv.Atoi(value)
			if err != nil || workers <= 0 {
				return fmt.Errorf("invalid sync_workers value: %s", value)
			}
			currentCfg.Sync.Workers = workers
		case "debug":
			switch value {
			case "true", "1":
				currentCfg.Debug = true
			case "false", "0":
				currentCfg.Debug = false
			default:
				return fmt.Errorf("invalid debug value: %s (must be true or false)", value)
			}
		default:
			return fmt.Errorf("unknown configuration key: %s", key)
		}

		if err := config.SaveConfig(currentCfg); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Fprintf(c.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

// completionCmd generates shell completion scripts.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for epadash.

Bash:
  $ source <(epadash completion bash)

Zsh:
  $ epadash completion zsh > "${fpath[1]}/_epadash"

Fish:
  $ epadash completion fish | source

PowerShell:
  PS> epadash completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(c *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

func init() {
	// Global flags.
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default is ~/.epadash)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "", "output format: text, json")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Score Sync:"},
		&cobra.Group{ID: "ops", Title: "Operations:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	// Score sync
	syncCmd := cmd.NewSyncCommand(nil)
	syncCmd.GroupID = "sync"
	rootCmd.AddCommand(syncCmd)

	previewCmd := cmd.NewPreviewCommand(nil)
	previewCmd.GroupID = "sync"
	rootCmd.AddCommand(previewCmd)

	// Operations
	healthCmd := cmd.NewHealthCommand(nil)
	healthCmd.GroupID = "ops"
	rootCmd.AddCommand(healthCmd)

	dbCmd := cmd.NewDbCommand()
	dbCmd.GroupID = "ops"
	rootCmd.AddCommand(dbCmd)

	// Setup
	configCmd.GroupID = "setup"
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)

	completionCmd.GroupID = "setup"
	rootCmd.AddCommand(completionCmd)

	versionCmd.GroupID = "setup"
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
