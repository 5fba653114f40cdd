package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/oneconcern/gitfs/pkg/gitfs"
	"github.com/oneconcern/gitfs/pkg/gitfs/status"
)

type listEntry struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Size int64  `json:"size"`
	ID   string `json:"id"`
}

type statEntry struct {
	Path    string    `json:"path" yaml:"path"`
	Name    string    `json:"name" yaml:"name"`
	Kind    string    `json:"kind" yaml:"kind"`
	Size    int64     `json:"size" yaml:"size"`
	ID      string    `json:"id" yaml:"id"`
	Mode    string    `json:"mode" yaml:"mode"`
	ModTime time.Time `json:"modTime" yaml:"modTime"`
}

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory",
	Long: `List the children of a directory in the snapshot, in tree order.

Names are escaped as URL path segments, e.g. "with space.txt" is listed as "with%20space.txt".
The long format and the json output show names unescaped.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pth := config.Root
		if len(args) > 0 {
			pth = namespacePath(args[0])
		}
		out := cmd.OutOrStdout()

		withNamespace(func(ns *gitfs.Namespace) {
			if !gitfsFlags.ls.long && gitfsFlags.ls.output == outputText {
				names, err := ns.ListChildren(pth)
				if err != nil {
					fatalOnError("failed to list "+pth, err)
					return
				}
				for _, name := range names {
					_, _ = fmt.Fprintln(out, name)
				}
				return
			}

			entries, err := ns.ReadDir(pth)
			if err != nil {
				fatalOnError("failed to list "+pth, err)
				return
			}

			switch gitfsFlags.ls.output {
			case outputJSON:
				list := make([]listEntry, 0, len(entries))
				for _, e := range entries {
					list = append(list, listEntry{Name: e.Name, Kind: e.Kind.String(), Size: e.Size, ID: e.ID.String()})
				}
				if err := jsoniter.NewEncoder(out).Encode(list); err != nil {
					wrapFatalln("failed to encode listing", err)
				}
			case outputText:
				for _, e := range entries {
					size := "-"
					if e.Kind.IsFile() {
						size = units.HumanSize(float64(e.Size))
					}
					_, _ = fmt.Fprintf(out, "%-10s %10s %s\n", e.Kind, size, colorName(e))
				}
			default:
				wrapFatalln("unsupported output format: "+gitfsFlags.ls.output, nil)
			}
		})
	},
}

var (
	dirColor  = color.New(color.FgHiBlue)
	execColor = color.New(color.FgGreen)
)

// colorName highlights directories and executables. Colors are off when the output is not a terminal.
func colorName(e gitfs.Entry) string {
	switch e.Kind {
	case gitfs.Directory:
		return dirColor.Sprint(e.Name)
	case gitfs.ExecutableFile:
		return execColor.Sprint(e.Name)
	default:
		return e.Name
	}
}

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print the content of a file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pth := namespacePath(args[0])

		withNamespace(func(ns *gitfs.Namespace) {
			rdr, err := ns.Open(pth)
			if err != nil {
				fatalOnError("failed to open "+pth, err)
				return
			}
			defer func() { _ = rdr.Close() }()

			if _, err = io.Copy(cmd.OutOrStdout(), rdr); err != nil {
				wrapFatalln("failed to read "+pth, err)
			}
		})
	},
}

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Describe an entry",
	Long:  "Describe an entry of the snapshot: kind, size, object id, mode and last modification time.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pth := namespacePath(args[0])

		withNamespace(func(ns *gitfs.Namespace) {
			e, err := ns.Stat(pth)
			if err != nil {
				wrapFatalln("failed to stat "+pth, err)
				return
			}
			if !e.Exists() {
				fatalOnError("failed to stat "+pth, status.ErrNotExist.WrapMessage("%s", pth))
				return
			}

			modTime, err := ns.LastModified(pth)
			if err != nil {
				wrapFatalln("failed to get last modification time of "+pth, err)
				return
			}

			st := statEntry{
				Path:    pth,
				Name:    e.Name,
				Kind:    e.Kind.String(),
				Size:    e.Size,
				ID:      e.ID.String(),
				Mode:    fmt.Sprintf("%04o", e.FileMode().Perm()),
				ModTime: modTime.UTC(),
			}

			var b []byte
			switch gitfsFlags.stat.output {
			case outputYAML:
				b, err = yaml.Marshal(st)
			case outputJSON:
				b, err = jsoniter.MarshalIndent(st, "", "  ")
				b = append(b, '\n')
			default:
				wrapFatalln("unsupported output format: "+gitfsFlags.stat.output, nil)
				return
			}
			if err != nil {
				wrapFatalln("failed to encode entry", err)
				return
			}
			_, _ = cmd.OutOrStdout().Write(b)
		})
	},
}

func init() {
	addLongFlag(lsCmd)
	addListOutputFlag(lsCmd)
	rootCmd.AddCommand(lsCmd)

	rootCmd.AddCommand(catCmd)

	addStatOutputFlag(statCmd)
	rootCmd.AddCommand(statCmd)
}
