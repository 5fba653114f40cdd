package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// configuration keys, shared by flags, environment variables and config files
const (
	gitDirKey      = "git-dir"
	workTreeKey    = "work-tree"
	revisionKey    = "revision"
	rootKey        = "root"
	authorNameKey  = "author-name"
	authorEmailKey = "author-email"
	logLevelKey    = "loglevel"
	metricsKey     = "metrics"
	periodKey      = "metrics-period"
)

// CLIConfig describes the CLI configuration.
type CLIConfig struct {
	GitDir      string `json:"git-dir" yaml:"git-dir" mapstructure:"git-dir"`
	WorkTree    string `json:"work-tree" yaml:"work-tree" mapstructure:"work-tree"`
	Revision    string `json:"revision" yaml:"revision" mapstructure:"revision"`
	Root        string `json:"root" yaml:"root" mapstructure:"root"`
	AuthorName  string `json:"author-name" yaml:"author-name" mapstructure:"author-name"`
	AuthorEmail string `json:"author-email" yaml:"author-email" mapstructure:"author-email"`
	LogLevel    string `json:"loglevel" yaml:"loglevel" mapstructure:"loglevel"`
	Metrics     bool   `json:"metrics" yaml:"metrics" mapstructure:"metrics"`

	MetricsPeriod time.Duration `json:"metrics-period" yaml:"metrics-period" mapstructure:"metrics-period"`
}

func newConfig() (*CLIConfig, error) {
	var config CLIConfig
	err := viper.Unmarshal(&config)
	if err != nil {
		return nil, err
	}
	if config.Root == "" {
		config.Root = "/"
	}
	return &config, nil
}

// configCmd represents the config related commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Commands to inspect the gitfs configuration",
	Long: `Commands to inspect the gitfs CLI configuration.

Configuration is the common set of flags needed by most commands. Each setting is taken from,
by order of precedence: the command line flag, a GITFS_ environment variable (e.g. GITFS_GIT_DIR),
the config file.

The config file is gitfs.yaml, searched in the current directory, $HOME/.gitfs and /etc/gitfs,
unless the GITFS_CONFIG environment variable points to a file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  "Show the effective configuration, as YAML",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		b, err := yaml.Marshal(config)
		if err != nil {
			wrapFatalln("failed to marshal config", err)
			return
		}
		_, _ = cmd.OutOrStdout().Write(b)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
