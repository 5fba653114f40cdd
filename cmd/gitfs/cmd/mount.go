// Copyright © 2018 One Concern

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/docker/go-units"
	daemonizer "github.com/jacobsa/daemonize"
	jfuse "github.com/jacobsa/fuse"
	"github.com/spf13/cobra"

	"github.com/oneconcern/gitfs/internal"
	"github.com/oneconcern/gitfs/pkg/fuse"
	"github.com/oneconcern/gitfs/pkg/gitfs"
)

func undaemonizeArgs(args []string) []string {
	foregroundArgs := make([]string, 0, len(args))
	for _, arg := range args {
		if arg != "--"+addDaemonizeFlag(nil) {
			foregroundArgs = append(foregroundArgs, arg)
		}
	}
	return foregroundArgs
}

// runDaemonized runs the same command again, in the background.
//
// The background process calls daemonizer.SignalOutcome once the mount is ready:
// this process then exits, successfully or not.
func runDaemonized() {
	pth, err := os.Executable()
	if err != nil {
		wrapFatalln("failed to locate executable", err)
		return
	}

	// PATH lets the daemon find fusermount
	env := []string{
		fmt.Sprintf("PATH=%s", os.Getenv("PATH")),
		fmt.Sprintf("HOME=%s", os.Getenv("HOME")),
	}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, envPrefix) {
			env = append(env, kv)
		}
	}

	if err = daemonizer.Run(pth, undaemonizeArgs(os.Args[1:]), env, os.Stdout); err != nil {
		wrapFatalln("failed to daemonize", err)
	}
}

// onDaemonError reports a failure to the foreground process, if any, before exiting
func onDaemonError(msg string, err error) {
	if errSig := daemonizer.SignalOutcome(err); errSig != nil {
		wrapFatalln(msg, fmt.Errorf("could not signal outcome: %v, cause: %w", errSig, err))
		return
	}
	wrapFatalln(msg, err)
}

// Mount a read only view of a snapshot
var mountCmd = &cobra.Command{
	Use:   "mount",
	Short: "Mount a snapshot",
	Long: `Mount a read-only view of the snapshot with fuse.

The command blocks until the file system is unmounted, or upon SIGINT.
With --daemonize, it returns as soon as the file system is mounted.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if gitfsFlags.fs.daemonize {
			runDaemonized()
			return
		}

		withNamespace(func(ns *gitfs.Namespace) {
			fs, err := fuse.NewReadOnlyFS(ns,
				fuse.Logger(logger),
				fuse.CacheSize(gitfsFlags.fs.cacheSize),
				fuse.WithMetrics(config.Metrics),
			)
			if err != nil {
				onDaemonError("failed to initialize mount", err)
				return
			}
			defer func() { _ = fs.Close() }()

			var opts []fuse.MountOption
			if gitfsFlags.fs.allowOther {
				opts = append(opts, fuse.AllowOther())
			}

			if err = fs.MountReadOnly(gitfsFlags.fs.mountPath, opts...); err != nil {
				onDaemonError("failed to mount", err)
				return
			}
			registerSIGINTHandlerMount(gitfsFlags.fs.mountPath)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if err = startMemPoll(ctx); err != nil {
				onDaemonError("failed to watch memory", err)
				return
			}

			if err = daemonizer.SignalOutcome(nil); err != nil {
				wrapFatalln("failed to signal mount", err)
				return
			}
			if err = fs.JoinMount(ctx); err != nil {
				wrapFatalln("failed to wait for unmount", err)
			}
		})
	},
}

func startMemPoll(ctx context.Context) error {
	if gitfsFlags.fs.memPoll == 0 {
		return nil
	}
	params := internal.MemPollParams{
		Poll:     gitfsFlags.fs.memPoll,
		LogEvery: gitfsFlags.fs.memPoll,
		Logger:   logger,
	}
	if gitfsFlags.fs.memProfile != "" {
		above, err := units.RAMInBytes(gitfsFlags.fs.memProfile)
		if err != nil {
			return err
		}
		params.ProfileAbove = uint64(above)
	}
	return internal.MemPoll(ctx, params)
}

func registerSIGINTHandlerMount(mountPoint string) {
	// Register for SIGINT.
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)

	// Start a goroutine that will unmount when the signal is received.
	go func() {
		for {
			<-signalChan
			fmt.Println("Received SIGINT, attempting to unmount...")

			err := jfuse.Unmount(mountPoint)
			if err != nil {
				fmt.Printf("Failed to unmount in response to SIGINT: %v\n", err)
			} else {
				fmt.Println("Successfully unmounted in response to SIGINT.")
				signal.Stop(signalChan)
				return
			}
		}
	}()
}

func init() {
	requireFlags(mountCmd,
		addMountPathFlag(mountCmd),
	)
	addCacheSizeFlag(mountCmd)
	addAllowOtherFlag(mountCmd)
	addMemPollFlag(mountCmd)
	addMemProfileFlag(mountCmd)
	addDaemonizeFlag(mountCmd)
	rootCmd.AddCommand(mountCmd)
}
