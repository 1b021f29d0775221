package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/Tawesh/idb-to-sql/internal/config"
	"github.com/Tawesh/idb-to-sql/internal/logger"
)

var (
	cfg *config.Config
	log logger.Logger

	askPassword bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ibdreplay",
	Short: "Convert InnoDB .ibd files to SQL and replay them into MySQL",
	Long: `ibdreplay turns a directory of InnoDB table-space files (.ibd) into SQL
scripts with an external converter (ibd_to_sql by default) and replays every
script into a MySQL database.

For each file, schema and other ordered statements run first in a single
transaction. INSERT statements follow, fanned out over several autocommit
connections when there are more than 10 of them. The target database is
created when it does not exist yet.

Settings are taken, in increasing priority, from defaults, the environment
(MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PWD, MYSQL_DATABASE, IBD_CONVERTER,
REPLAY_PROCESSES, REPLAY_THREADS, ...; a .env file is read too), the
.ibdreplay.toml file in the current directory, and command line flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context, config *config.Config, logger logger.Logger) error {
	cfg = config
	log = logger

	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", cfg.Version, cfg.BuildTime, cfg.GitCommit)
	bindFlags(rootCmd.PersistentFlags(), cfg)

	return rootCmd.ExecuteContext(ctx)
}

func bindFlags(flags *pflag.FlagSet, c *config.Config) {
	flags.StringVar(&c.Host, "host", c.Host, "MySQL host")
	flags.IntVarP(&c.Port, "port", "P", c.Port, "MySQL port")
	flags.StringVarP(&c.User, "user", "u", c.User, "MySQL user")
	flags.StringVarP(&c.Password, "password", "p", c.Password, "MySQL password (prefer MYSQL_PWD)")
	flags.BoolVar(&askPassword, "ask-password", false, "Prompt for the MySQL password")
	flags.StringVarP(&c.Database, "database", "d", c.Database, "Target database (created if missing)")
	flags.StringVar(&c.Charset, "charset", c.Charset, "Connection character set")

	flags.StringVar(&c.Converter, "converter", c.Converter, "ibd to SQL converter binary")
	flags.StringVar(&c.Extension, "ext", c.Extension, "Input file extension")
	flags.StringVarP(&c.OutputDir, "output", "o", c.OutputDir, "Directory for converted scripts (default <input parent>/sql_output_<timestamp>)")
	flags.IntVar(&c.Processes, "processes", c.Processes, "Files processed at once")
	flags.IntVarP(&c.Threads, "threads", "t", c.Threads, "INSERT workers per file")
	flags.StringVar(&c.Compress, "compress", c.Compress, "Store converted scripts compressed (none, gzip, zstd)")
	flags.BoolVar(&c.NoProgress, "no-progress", c.NoProgress, "Disable the progress bar")

	flags.BoolVar(&c.NoColor, "no-color", c.NoColor, "Disable colored output")
	flags.BoolVar(&c.Debug, "debug", c.Debug, "Enable debug logging")
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format (text, json)")

	flags.StringVar(&c.ConfigPath, "config", c.ConfigPath, "Local configuration file")
	flags.BoolVar(&c.NoLoadConfig, "no-config", c.NoLoadConfig, "Do not read the local configuration file")
	flags.BoolVar(&c.SaveConfig, "save-config", c.SaveConfig, "Save the effective settings to the local configuration file")
}

// loadConfig merges the local configuration file underneath explicitly set
// flags, then rebuilds the logger for the effective level.
func loadConfig(cmd *cobra.Command) error {
	if !cfg.NoLoadConfig {
		local, err := config.LoadLocalConfigFromPath(cfg.ConfigPath)
		if err != nil {
			return err
		}
		if local != nil {
			if err := applyUnderFlags(cmd.Flags(), func() { config.ApplyLocalConfig(cfg, local) }); err != nil {
				return err
			}
		}
	}

	if cfg.NoColor {
		logger.DisableColors()
	}
	log = logger.New(cfg.EffectiveLogLevel(), cfg.LogFormat)

	if askPassword {
		pw, err := promptPassword(fmt.Sprintf("Password for %s@%s: ", cfg.User, cfg.Host))
		if err != nil {
			return err
		}
		cfg.Password = pw
	}

	if cfg.SaveConfig {
		if err := config.SaveLocalConfigToPath(config.ConfigFromConfig(cfg), cfg.ConfigPath); err != nil {
			return err
		}
		log.Info("Saved configuration", "path", cfg.ConfigPath)
	}
	return nil
}

// applyUnderFlags runs apply and then restores every flag the user set on
// the command line, so flags keep the highest priority.
func applyUnderFlags(flags *pflag.FlagSet, apply func()) error {
	changed := map[string]string{}
	flags.Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	apply()

	for name, value := range changed {
		if err := flags.Set(name, value); err != nil {
			return fmt.Errorf("restore flag --%s: %w", name, err)
		}
	}
	return nil
}

func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--ask-password needs an interactive terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

// stderrIsTerminal reports whether the progress bar can be drawn
func stderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
