package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v2"

	"github.com/oneconcern/gitfs/internal/testutil"
)

func TestMain(m *testing.M) {
	// isolates tests from the user's global git config and gitfs config
	home, err := os.MkdirTemp("", "gitfs-home-")
	if err != nil {
		panic(err)
	}
	_ = os.Setenv("HOME", home)
	_ = os.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	_ = os.Unsetenv(envConfig)
	color.NoColor = true

	code := m.Run()
	_ = os.RemoveAll(home)

	if code == 0 {
		if err := goleak.Find(
			goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
		); err != nil {
			fmt.Fprintf(os.Stderr, "goleak: %v\n", err)
			code = 1
		}
	}
	os.Exit(code)
}

type exitMocks struct {
	fatalCalls int
	codes      []int
}

func setupTests(t *testing.T) (*testutil.Repo, *exitMocks) {
	mocks := &exitMocks{}
	logFatalf = func(string, ...interface{}) { mocks.fatalCalls++ }
	logFatalln = func(...interface{}) { mocks.fatalCalls++ }
	osExit = func(code int) { mocks.codes = append(mocks.codes, code) }

	r := testutil.NewRepo(t)
	r.CommitFiles(t, "first", map[string][]byte{
		"file1.txt":          []byte("one"),
		"folder1/nested.txt": []byte("nested"),
		"with space.txt":     []byte("spaced"),
	})
	r.CommitFiles(t, "second", map[string][]byte{
		"file1.txt": []byte("one, modified"),
	})
	return r, mocks
}

// resetFlags restores flag defaults, since commands are executed many times in the same process
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

func runCmd(t *testing.T, stdin string, args ...string) string {
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append(args, "--loglevel", "none"))
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func lines(out string) []string {
	return strings.Split(strings.TrimSpace(out), "\n")
}

func TestList(t *testing.T) {
	r, mocks := setupTests(t)

	out := runCmd(t, "", "ls", "--git-dir", r.GitDir())
	assert.Equal(t, []string{"file1.txt", "folder1", "with%20space.txt"}, lines(out))

	out = runCmd(t, "", "ls", "folder1", "--git-dir", r.GitDir())
	assert.Equal(t, []string{"nested.txt"}, lines(out))

	out = runCmd(t, "", "ls", "-l", "--git-dir", r.GitDir())
	long := lines(out)
	require.Len(t, long, 3)
	assert.Equal(t, []string{"file", "13B", "file1.txt"}, strings.Fields(long[0]))
	assert.Equal(t, []string{"directory", "-", "folder1"}, strings.Fields(long[1]))
	assert.True(t, strings.HasSuffix(long[2], " with space.txt"))

	out = runCmd(t, "", "ls", "-o", "json", "--git-dir", r.GitDir())
	var entries []listEntry
	require.NoError(t, jsoniter.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, listEntry{Name: "with space.txt", Kind: "file", Size: 6, ID: entries[2].ID}, entries[2])
	assert.Len(t, entries[2].ID, 40)

	assert.Zero(t, mocks.fatalCalls)
	assert.Empty(t, mocks.codes)
}

func TestListErrors(t *testing.T) {
	r, mocks := setupTests(t)

	_ = runCmd(t, "", "ls", "nowhere", "--git-dir", r.GitDir())
	assert.Equal(t, []int{int(unix.ENOENT)}, mocks.codes)

	_ = runCmd(t, "", "ls", "file1.txt", "--git-dir", r.GitDir())
	assert.Equal(t, 1, mocks.fatalCalls, "a file is not a directory")

	_ = runCmd(t, "", "ls", "-o", "xml", "--git-dir", r.GitDir())
	assert.Equal(t, 2, mocks.fatalCalls)

	_ = runCmd(t, "", "ls", "--git-dir", filepath.Join(t.TempDir(), ".git"))
	assert.Equal(t, 3, mocks.fatalCalls, "no repository")
}

func TestCat(t *testing.T) {
	r, mocks := setupTests(t)

	assert.Equal(t, "nested", runCmd(t, "", "cat", "folder1/nested.txt", "--git-dir", r.GitDir()))
	assert.Equal(t, "nested", runCmd(t, "", "cat", "/folder1/nested.txt", "--git-dir", r.GitDir()))
	assert.Equal(t, "one, modified", runCmd(t, "", "cat", "file1.txt", "--git-dir", r.GitDir()))
	assert.Equal(t, "one", runCmd(t, "", "cat", "file1.txt", "--revision", "HEAD~1", "--git-dir", r.GitDir()))
	assert.Equal(t, "spaced", runCmd(t, "", "cat", "/repo/with space.txt", "--root", "/repo", "--git-dir", r.GitDir()))
	assert.Zero(t, mocks.fatalCalls)

	_ = runCmd(t, "", "cat", "nowhere.txt", "--git-dir", r.GitDir())
	assert.Equal(t, []int{int(unix.ENOENT)}, mocks.codes)

	_ = runCmd(t, "", "cat", "folder1", "--git-dir", r.GitDir())
	assert.Equal(t, 1, mocks.fatalCalls, "a directory has no content")
}

func TestStat(t *testing.T) {
	r, mocks := setupTests(t)

	out := runCmd(t, "", "stat", "folder1/nested.txt", "--git-dir", r.GitDir())
	var st map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &st))
	assert.Equal(t, "/folder1/nested.txt", st["path"])
	assert.Equal(t, "nested.txt", st["name"])
	assert.Equal(t, "file", st["kind"])
	assert.Equal(t, 6, st["size"])
	assert.Equal(t, "0644", st["mode"])

	out = runCmd(t, "", "stat", "folder1", "-o", "json", "--git-dir", r.GitDir())
	var entry statEntry
	require.NoError(t, jsoniter.Unmarshal([]byte(out), &entry))
	assert.Equal(t, "directory", entry.Kind)
	assert.Equal(t, "0755", entry.Mode)
	assert.False(t, entry.ModTime.IsZero())
	assert.Zero(t, mocks.fatalCalls)

	_ = runCmd(t, "", "stat", "nowhere", "--git-dir", r.GitDir())
	assert.Equal(t, []int{int(unix.ENOENT)}, mocks.codes)
}

func TestWriteCommands(t *testing.T) {
	r, mocks := setupTests(t)
	gitDir := r.GitDir()

	out := runCmd(t, "hello", "put", "new.txt", "-m", "add new", "--git-dir", gitDir)
	assert.Len(t, strings.TrimSpace(out), 40)
	assert.Equal(t, "add new", r.Head(t).Message)
	assert.Equal(t, strings.TrimSpace(out), r.Head(t).Hash.String())
	assert.Equal(t, "hello", runCmd(t, "", "cat", "new.txt", "--git-dir", gitDir))

	_ = runCmd(t, " world", "put", "new.txt", "--append", "--git-dir", gitDir)
	assert.Equal(t, "hello world", runCmd(t, "", "cat", "new.txt", "--git-dir", gitDir))

	_ = runCmd(t, "replaced", "put", "new.txt", "--git-dir", gitDir)
	assert.Equal(t, "replaced", runCmd(t, "", "cat", "new.txt", "--git-dir", gitDir))

	_ = runCmd(t, "", "mv", "new.txt", "moved/new.txt", "-m", "move it", "--git-dir", gitDir)
	assert.Equal(t, "move it", r.Head(t).Message)
	assert.Equal(t, "replaced", runCmd(t, "", "cat", "moved/new.txt", "--git-dir", gitDir))

	_ = runCmd(t, "", "rm", "moved", "--git-dir", gitDir)
	assert.Equal(t, []string{"file1.txt", "folder1", "with%20space.txt"}, lines(runCmd(t, "", "ls", "--git-dir", gitDir)))

	_ = runCmd(t, "", "mkdir", "empty/dir", "--git-dir", gitDir)
	info, err := os.Stat(r.Path("empty/dir"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.Zero(t, mocks.fatalCalls)
	assert.Empty(t, mocks.codes)

	_ = runCmd(t, "x", "put", "folder1", "--git-dir", gitDir)
	assert.Equal(t, 1, mocks.fatalCalls, "a directory can't be written to")
}

func TestWriteBare(t *testing.T) {
	_, mocks := setupTests(t)
	bare := testutil.NewBareRepo(t)
	bare.CommitObjects(t, "init", map[string][]byte{"file.txt": []byte("bare")})

	assert.Equal(t, "bare", runCmd(t, "", "cat", "file.txt", "--git-dir", bare.Dir))
	assert.Zero(t, mocks.fatalCalls)

	_ = runCmd(t, "x", "put", "file.txt", "--git-dir", bare.Dir)
	assert.Equal(t, 1, mocks.fatalCalls, "bare repositories are read-only")
}

func TestWriteLocked(t *testing.T) {
	r, mocks := setupTests(t)
	before := r.Head(t).Hash

	// a lock held by another live process
	lock := filepath.Join(r.GitDir(), lockName)
	require.NoError(t, os.WriteFile(lock, []byte(fmt.Sprintf("%d\n", os.Getppid())), 0o600))

	_ = runCmd(t, "locked", "put", "locked.txt", "--git-dir", r.GitDir())
	assert.Equal(t, 1, mocks.fatalCalls)
	assert.Equal(t, before, r.Head(t).Hash)

	require.NoError(t, os.Remove(lock))
	_ = runCmd(t, "unlocked", "put", "locked.txt", "--git-dir", r.GitDir())
	assert.Equal(t, 1, mocks.fatalCalls)
	assert.NotEqual(t, before, r.Head(t).Hash)
	assert.NoFileExists(t, lock, "the lock is released")
}

func TestFind(t *testing.T) {
	r, mocks := setupTests(t)

	out := runCmd(t, "", "find", "**/*.txt", "--git-dir", r.GitDir())
	assert.Equal(t, []string{"file1.txt", "folder1/nested.txt", "with space.txt"}, lines(out))

	out = runCmd(t, "", "find", "folder1/*", "--git-dir", r.GitDir())
	assert.Equal(t, []string{"folder1/nested.txt"}, lines(out))

	out = runCmd(t, "", "find", "*", "--type", "d", "--git-dir", r.GitDir())
	assert.Equal(t, []string{"folder1"}, lines(out))

	out = runCmd(t, "", "find", "**", "--type", "f", "--root", "/repo", "--git-dir", r.GitDir())
	assert.Len(t, lines(out), 3)
	assert.Zero(t, mocks.fatalCalls)

	_ = runCmd(t, "", "find", "*", "--type", "x", "--git-dir", r.GitDir())
	assert.Equal(t, 1, mocks.fatalCalls)
}

func TestAuthorFlags(t *testing.T) {
	r, mocks := setupTests(t)

	_ = runCmd(t, "content", "put", "authored.txt",
		"--author-name", "Jane", "--author-email", "jane@example.com", "--git-dir", r.GitDir())
	require.Zero(t, mocks.fatalCalls)

	head := r.Head(t)
	assert.Equal(t, "Jane", head.Author.Name)
	assert.Equal(t, "jane@example.com", head.Committer.Email)
}

func TestConfig(t *testing.T) {
	r, mocks := setupTests(t)

	cfgFile := filepath.Join(t.TempDir(), "gitfs.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(
		"git-dir: "+r.GitDir()+"\nrevision: HEAD~1\n",
	), 0o600))
	t.Setenv(envConfig, cfgFile)

	out := runCmd(t, "", "config", "show")
	var shown CLIConfig
	require.NoError(t, yaml.Unmarshal([]byte(out), &shown))
	assert.Equal(t, r.GitDir(), shown.GitDir)
	assert.Equal(t, "HEAD~1", shown.Revision)
	assert.Equal(t, "/", shown.Root)
	assert.Equal(t, "none", shown.LogLevel)
	assert.Equal(t, defaultMetricsPeriod, shown.MetricsPeriod)

	assert.Equal(t, "one", runCmd(t, "", "cat", "file1.txt"))

	// flags win over the config file
	assert.Equal(t, "one, modified", runCmd(t, "", "cat", "file1.txt", "--revision", "HEAD"))

	// environment variables win over the config file
	t.Setenv("GITFS_REVISION", "master")
	assert.Equal(t, "one, modified", runCmd(t, "", "cat", "file1.txt"))
	assert.Zero(t, mocks.fatalCalls)
}

func TestEnvironment(t *testing.T) {
	r, mocks := setupTests(t)
	t.Setenv("GITFS_GIT_DIR", r.GitDir())

	assert.Equal(t, []string{"nested.txt"}, lines(runCmd(t, "", "ls", "folder1")))
	assert.Zero(t, mocks.fatalCalls)
}

func TestMetricsFlag(t *testing.T) {
	r, mocks := setupTests(t)

	assert.Equal(t, "nested", runCmd(t, "", "cat", "folder1/nested.txt", "--metrics", "--git-dir", r.GitDir()))
	assert.Zero(t, mocks.fatalCalls)
}

func TestMountRequiresPath(t *testing.T) {
	resetFlags(rootCmd)
	rootCmd.SetArgs([]string{"mount", "--loglevel", "none"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	require.Error(t, rootCmd.Execute())
}

func TestVersion(t *testing.T) {
	out := runCmd(t, "", "version")
	assert.Contains(t, out, "Version: dev")
	assert.Contains(t, out, "Working tree: ")
	assert.Contains(t, out, "go-git: ")
}

func TestVersionFromBuildInfo(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/oneconcern/gitfs", Version: "v1.2.3"},
		Deps: []*debug.Module{
			{Path: "github.com/spf13/cobra", Version: "v1.8.0"},
			{Path: goGitModule, Version: "v5.12.0"},
		},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123abcd"},
			{Key: "vcs.time", Value: "2024-05-01T10:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	var ver VersionInfo
	ver.fromBuildInfo(info)
	assert.Equal(t, VersionInfo{
		Version:   "v1.2.3",
		BuildDate: "2024-05-01T10:00:00Z",
		GitCommit: "0123abcd",
		GitState:  "dirty",
		GoGit:     "v5.12.0",
	}, ver)

	// link time values win
	ver = VersionInfo{Version: "v2.0.0", GitCommit: "feedbeef", GitState: "clean"}
	info.Main.Version = "(devel)"
	info.Deps[1].Replace = &debug.Module{Path: "example.com/go-git", Version: "v5.12.1"}
	ver.fromBuildInfo(info)
	assert.Equal(t, "v2.0.0", ver.Version)
	assert.Equal(t, "feedbeef", ver.GitCommit)
	assert.Equal(t, "clean", ver.GitState)
	assert.Equal(t, "v5.12.1", ver.GoGit)

	assert.Contains(t, ver.String(), "go-git: v5.12.1\n")
}
