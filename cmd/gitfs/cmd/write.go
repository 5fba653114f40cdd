package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/oneconcern/gitfs/pkg/gitfs"
)

var putCmd = &cobra.Command{
	Use:   "put <path>",
	Short: "Write a file from the standard input",
	Long: `Write the standard input to a file in the working tree, then commit it.

The hash of the new commit is printed. Parent directories are created as needed.
Without --append, the content of an existing file is replaced.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pth := namespacePath(args[0])

		withNamespace(func(ns *gitfs.Namespace) {
			withLock(ns, func() {
				w, err := ns.OpenWriter(pth, gitfsFlags.write.append)
				if err != nil {
					wrapFatalln("failed to open "+pth+" for writing", err)
					return
				}

				if _, err = io.Copy(w, cmd.InOrStdin()); err != nil {
					_ = w.Close()
					wrapFatalln("failed to write "+pth, err)
					return
				}

				h, err := w.Finalize(gitfsFlags.write.message)
				if err != nil {
					wrapFatalln("failed to commit "+pth, err)
					return
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), h)
			})
		})
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Remove a file or a directory",
	Long:  "Remove a file or a directory from the working tree, then commit the removal. The hash of the new commit is printed.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pth := namespacePath(args[0])

		withNamespace(func(ns *gitfs.Namespace) {
			withLock(ns, func() {
				h, err := ns.Delete(pth, gitfsFlags.write.message)
				if err != nil {
					wrapFatalln("failed to remove "+pth, err)
					return
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), h)
			})
		})
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv <old path> <new path>",
	Short: "Rename a file or a directory",
	Long:  "Rename a file or a directory in the working tree, then commit both sides at once. The hash of the new commit is printed.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		oldPath, newPath := namespacePath(args[0]), namespacePath(args[1])

		withNamespace(func(ns *gitfs.Namespace) {
			withLock(ns, func() {
				h, err := ns.Rename(oldPath, newPath, gitfsFlags.write.message)
				if err != nil {
					fatalOnError("failed to rename "+oldPath, err)
					return
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), h)
			})
		})
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a directory in the working tree",
	Long: `Create a directory in the working tree, with its parents.

Git does not record empty directories: the new directory appears in the snapshot
only after some file has been committed in it.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pth := namespacePath(args[0])

		withNamespace(func(ns *gitfs.Namespace) {
			if err := ns.Mkdir(pth); err != nil {
				wrapFatalln("failed to create directory "+pth, err)
			}
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{putCmd, rmCmd, mvCmd} {
		addCommitMessageFlag(cmd)
	}
	addAppendFlag(putCmd)

	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(mkdirCmd)
}
