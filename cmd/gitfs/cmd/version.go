package cmd

import (
	"bytes"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

const goGitModule = "github.com/go-git/go-git/v5"

// Build information, set with -ldflags. Unset values are taken from the build stamps of the binary.
var (
	Version   string
	BuildDate string
	GitCommit string
	GitState  string
)

// VersionInfo describes the build of this binary and the git implementation it embeds
type VersionInfo struct {
	Version   string
	BuildDate string
	GitCommit string
	GitState  string
	GoVersion string
	GoGit     string
}

// NewVersionInfo reports the build information, with "dev" as the version of untagged builds
func NewVersionInfo() VersionInfo {
	ver := VersionInfo{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GitState:  GitState,
		GoVersion: runtime.Version(),
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		ver.fromBuildInfo(info)
	}
	if ver.Version == "" {
		ver.Version = "dev"
	}
	return ver
}

// fromBuildInfo fills in what ldflags left unset
func (v *VersionInfo) fromBuildInfo(info *debug.BuildInfo) {
	if v.Version == "" && info.Main.Version != "(devel)" {
		v.Version = info.Main.Version
	}

	for _, dep := range info.Deps {
		if dep.Path != goGitModule {
			continue
		}
		v.GoGit = dep.Version
		if dep.Replace != nil {
			v.GoGit = dep.Replace.Version
		}
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if v.GitCommit == "" {
				v.GitCommit = setting.Value
			}
		case "vcs.time":
			if v.BuildDate == "" {
				v.BuildDate = setting.Value
			}
		case "vcs.modified":
			if v.GitState != "" {
				continue
			}
			v.GitState = "clean"
			if setting.Value == "true" {
				v.GitState = "dirty"
			}
		}
	}
}

func (v VersionInfo) String() string {
	var buf bytes.Buffer
	for _, line := range [][2]string{
		{"Version", v.Version},
		{"Build date", v.BuildDate},
		{"Commit", v.GitCommit},
		{"Working tree", v.GitState},
		{"Go", v.GoVersion},
		{"go-git", v.GoGit},
	} {
		buf.WriteString(line[0])
		buf.WriteString(": ")
		buf.WriteString(line[1])
		buf.WriteString("\n")
	}
	return buf.String()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "prints the version of gitfs",
	Long: `Prints the version of gitfs and of the git implementation it is built with.

Values not set at link time are read from the module and vcs stamps of the binary:
the commit and its time, whether the working tree was modified, and the go-git release.
`,
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = cmd.OutOrStdout().Write([]byte(NewVersionInfo().String()))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
