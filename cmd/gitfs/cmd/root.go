// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"log"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/oneconcern/gitfs/pkg/dlogger"
	"github.com/oneconcern/gitfs/pkg/gitfs"
	"github.com/oneconcern/gitfs/pkg/metrics"
)

const (
	envConfig = "GITFS_CONFIG"
	envPrefix = "GITFS_"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gitfs",
	Short: "gitfs serves a git revision as a file system",
	Long: `gitfs serves the tree of a git revision as a file system namespace.

Files and directories are read from the committed snapshot: uncommitted changes are not visible.
When the repository has a working tree, changes made with gitfs are committed right away,
one commit per change.
`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		logger, err = dlogger.GetLogger(config.LogLevel)
		if err != nil {
			wrapFatalln("failed to set log level", err)
			return
		}
		if config.Metrics {
			metrics.Init(
				metrics.WithExporter(metrics.DefaultExporter(logger)),
				metrics.WithReportingPeriod(config.MetricsPeriod),
			)
		}
	},
	// upstream api note:  *PostRun functions aren't called in case of a panic() in Run
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if config.Metrics {
			metrics.Flush()
		}
	},
}

var (
	config *CLIConfig
	logger *zap.Logger
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	log.SetFlags(0)
	addRootFlags(rootCmd)
	cobra.OnInitialize(initConfig)
}

// initConfig reads in config file and ENV variables if set. It runs before every command.
func initConfig() {
	viper.Reset()
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		logFatalln(err)
	}

	if os.Getenv(envConfig) != "" {
		// Use config file from the environment.
		viper.SetConfigFile(os.Getenv(envConfig))
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.gitfs")
		viper.AddConfigPath("/etc/gitfs")
		viper.SetConfigName("gitfs")
	}

	viper.SetEnvPrefix("gitfs")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Println("Using config file:", viper.ConfigFileUsed())
	}

	var err error
	config, err = newConfig()
	if err != nil {
		logFatalln(err)
	}
}

func newNamespace() (*gitfs.Namespace, error) {
	opts := []gitfs.Option{
		gitfs.Logger(logger),
		gitfs.Revision(config.Revision),
		gitfs.RootName(config.Root),
		gitfs.WithMetrics(config.Metrics),
	}
	if config.GitDir != "" {
		opts = append(opts, gitfs.GitDir(config.GitDir))
	}
	if config.WorkTree != "" {
		opts = append(opts, gitfs.WorkTree(config.WorkTree))
	}
	if config.AuthorName != "" || config.AuthorEmail != "" {
		opts = append(opts, gitfs.Author(config.AuthorName, config.AuthorEmail))
	}
	return gitfs.Open(opts...)
}

// namespacePath resolves a path argument: relative paths are taken from the root of the namespace
func namespacePath(arg string) string {
	if strings.HasPrefix(arg, "/") {
		return arg
	}
	return path.Join(config.Root, arg)
}

// withNamespace runs some action on a namespace opened from the configuration
func withNamespace(action func(*gitfs.Namespace)) {
	ns, err := newNamespace()
	if err != nil {
		wrapFatalln("failed to open namespace", err)
		return
	}
	defer func() { _ = ns.Close() }()
	action(ns)
}
