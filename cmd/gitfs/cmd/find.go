package cmd

import (
	"fmt"

	"github.com/bmatcuk/doublestar"
	"github.com/spf13/cobra"

	"github.com/oneconcern/gitfs/pkg/gitfs"
)

const (
	typeFile = "f"
	typeDir  = "d"
)

var findCmd = &cobra.Command{
	Use:   "find <pattern>",
	Short: "Find entries matching a glob pattern",
	Long: `Walk the snapshot and print the entries whose path matches a glob pattern.

Paths are relative to the root of the namespace, parents before children, e.g.:

  gitfs find '**/*.go' --type f

"**" matches any number of directories, including none.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pattern := args[0]
		out := cmd.OutOrStdout()

		var keep func(gitfs.Entry) bool
		switch gitfsFlags.find.kind {
		case "":
			keep = func(gitfs.Entry) bool { return true }
		case typeFile:
			keep = func(e gitfs.Entry) bool { return e.Kind.IsFile() }
		case typeDir:
			keep = func(e gitfs.Entry) bool { return e.IsDir() }
		default:
			wrapFatalln("unsupported entry type: "+gitfsFlags.find.kind, nil)
			return
		}

		withNamespace(func(ns *gitfs.Namespace) {
			err := ns.Walk(config.Root, func(e gitfs.Entry) error {
				if e.Path == "" || !keep(e) {
					return nil
				}
				match, err := doublestar.Match(pattern, e.Path)
				if err != nil {
					return err
				}
				if match {
					_, _ = fmt.Fprintln(out, e.Path)
				}
				return nil
			})
			if err != nil {
				fatalOnError("failed to find "+pattern, err)
			}
		})
	},
}

func init() {
	addFindTypeFlag(findCmd)
	rootCmd.AddCommand(findCmd)
}
