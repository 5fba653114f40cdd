// Copyright © 2018 One Concern

package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/oneconcern/gitfs/pkg/dlogger"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"

	defaultCacheSize     = 64
	defaultMetricsPeriod = 10 * time.Second
)

type flagsT struct {
	root struct {
		gitDir      string
		workTree    string
		revision    string
		root        string
		authorName  string
		authorEmail string
		logLevel    string
		metrics     bool
		period      time.Duration
	}
	ls struct {
		long   bool
		output string
	}
	stat struct {
		output string
	}
	find struct {
		kind string
	}
	write struct {
		message string
		append  bool
	}
	fs struct {
		mountPath  string
		cacheSize  int
		allowOther bool
		memPoll    time.Duration
		memProfile string
		daemonize  bool
	}
}

var gitfsFlags = flagsT{}

func addRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&gitfsFlags.root.gitDir, gitDirKey, "",
		"The git metadata directory. When not specified, a repository is searched from the current directory")
	flags.StringVar(&gitfsFlags.root.workTree, workTreeKey, "", "The working tree of the repository")
	flags.StringVar(&gitfsFlags.root.revision, revisionKey, "",
		"The revision to serve, e.g. HEAD~1, v1.0, a commit hash. Defaults to the tip of the current branch")
	flags.StringVar(&gitfsFlags.root.root, rootKey, "/", "The absolute name of the root of the namespace")
	flags.StringVar(&gitfsFlags.root.authorName, authorNameKey, "", "The name of the author of commits")
	flags.StringVar(&gitfsFlags.root.authorEmail, authorEmailKey, "", "The email of the author of commits")
	flags.StringVar(&gitfsFlags.root.logLevel, logLevelKey, dlogger.LogLevelInfo, "The logging level: debug, info or none")
	flags.BoolVar(&gitfsFlags.root.metrics, metricsKey, false, "Log usage metrics")
	flags.DurationVar(&gitfsFlags.root.period, periodKey, defaultMetricsPeriod, "The interval between two exports of metrics")
}

func addLongFlag(cmd *cobra.Command) string {
	long := "long"
	cmd.Flags().BoolVarP(&gitfsFlags.ls.long, long, "l", false, "Long listing format: kind, size and name")
	return long
}

func addListOutputFlag(cmd *cobra.Command) string {
	output := "output"
	cmd.Flags().StringVarP(&gitfsFlags.ls.output, output, "o", outputText, "Output format: text or json")
	return output
}

func addStatOutputFlag(cmd *cobra.Command) string {
	output := "output"
	cmd.Flags().StringVarP(&gitfsFlags.stat.output, output, "o", outputYAML, "Output format: yaml or json")
	return output
}

func addCommitMessageFlag(cmd *cobra.Command) string {
	message := "message"
	cmd.Flags().StringVarP(&gitfsFlags.write.message, message, "m", "", "The message of the commit recording the change")
	return message
}

func addAppendFlag(cmd *cobra.Command) string {
	appendFlag := "append"
	cmd.Flags().BoolVar(&gitfsFlags.write.append, appendFlag, false, "Append to the current content of the file")
	return appendFlag
}

func addMountPathFlag(cmd *cobra.Command) string {
	mount := "mount"
	cmd.Flags().StringVar(&gitfsFlags.fs.mountPath, mount, "", "The path to the mount dir")
	return mount
}

func addCacheSizeFlag(cmd *cobra.Command) string {
	cacheSize := "cache-size"
	cmd.Flags().IntVar(&gitfsFlags.fs.cacheSize, cacheSize, defaultCacheSize, "The number of files kept open for reading")
	return cacheSize
}

func addAllowOtherFlag(cmd *cobra.Command) string {
	allowOther := "allow-other"
	cmd.Flags().BoolVar(&gitfsFlags.fs.allowOther, allowOther, false, "Let other users access the mount")
	return allowOther
}

func addMemPollFlag(cmd *cobra.Command) string {
	memPoll := "mem-poll"
	cmd.Flags().DurationVar(&gitfsFlags.fs.memPoll, memPoll, 0, "Log memory usage at this interval. Disabled when zero")
	return memPoll
}

func addMemProfileFlag(cmd *cobra.Command) string {
	memProfile := "mem-profile"
	cmd.Flags().StringVar(&gitfsFlags.fs.memProfile, memProfile, "",
		"Write a heap profile to the temp dir when the heap grows above this size, e.g. 512MiB. Requires --mem-poll")
	return memProfile
}

func addFindTypeFlag(cmd *cobra.Command) string {
	kind := "type"
	cmd.Flags().StringVar(&gitfsFlags.find.kind, kind, "", "Only find entries of this type: f for files, d for directories")
	return kind
}

func addDaemonizeFlag(cmd *cobra.Command) string {
	daemonize := "daemonize"
	if cmd != nil {
		cmd.Flags().BoolVar(&gitfsFlags.fs.daemonize, daemonize, false, "Whether to run the command as a daemonized process")
	}
	return daemonize
}

func requireFlags(cmd *cobra.Command, flags ...string) {
	for _, flag := range flags {
		err := cmd.MarkFlagRequired(flag)
		if err != nil {
			logFatalln(err)
		}
	}
}
