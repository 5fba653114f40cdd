package internal

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/docker/go-units"
	"go.uber.org/zap"

	"github.com/oneconcern/gitfs/internal/rand"
	"github.com/oneconcern/gitfs/pkg/dlogger"
)

const defaultPoll = 500 * time.Millisecond

// MemPollParams tunes the memory poller of long running commands, such as a mount.
type MemPollParams struct {
	// Poll is the interval between two reads of the memory stats
	Poll time.Duration

	// LogEvery logs the memory stats at this interval. Zero means only log heap growth.
	LogEvery time.Duration

	// ProfileAbove writes a heap profile to ProfileDir the first time the heap exceeds this many bytes.
	ProfileAbove uint64
	ProfileDir   string

	Logger *zap.Logger
}

func memPollDefaults(params MemPollParams) (MemPollParams, error) {
	if params.Poll <= 0 {
		params.Poll = defaultPoll
	}
	if params.ProfileDir == "" {
		params.ProfileDir = os.TempDir()
	}
	if params.Logger == nil {
		logger, err := dlogger.GetLogger(dlogger.LogLevelInfo)
		if err != nil {
			return MemPollParams{}, err
		}
		params.Logger = logger
	}
	return params, nil
}

// writeProfIfNExist writes a named runtime profile, unless the file is already there
func writeProfIfNExist(pth string, name string) error {
	if _, err := os.Stat(pth); !os.IsNotExist(err) {
		return err
	}
	fprof, err := os.Create(pth)
	if err != nil {
		return err
	}
	defer func() { _ = fprof.Close() }()
	return pprof.Lookup(name).WriteTo(fprof, 0)
}

// heapProfile writes the heap and allocation profiles, returning the base name of the profile files
func heapProfile(dir string) (string, error) {
	base := filepath.Join(dir, strings.Join([]string{"gitfs", "mem", rand.LetterString(6)}, "-"))
	if err := writeProfIfNExist(base+".mem.prof", "heap"); err != nil {
		return "", err
	}
	if err := writeProfIfNExist(base+".alloc.prof", "allocs"); err != nil {
		return "", err
	}
	return base, nil
}

func memPoll(ctx context.Context, params MemPollParams) {
	mstats := new(runtime.MemStats)
	var maxHeapThusFar uint64
	var sinceLog time.Duration
	profiled := params.ProfileAbove == 0

	ticker := time.NewTicker(params.Poll)
	defer ticker.Stop()

	for {
		runtime.ReadMemStats(mstats)
		if params.LogEvery != 0 && sinceLog >= params.LogEvery {
			params.Logger.Info("mempoll",
				zap.String("heap", units.BytesSize(float64(mstats.Alloc))),
				zap.String("max heap", units.BytesSize(float64(mstats.HeapSys))),
				zap.Int("goroutines", runtime.NumGoroutine()),
			)
			sinceLog = 0
		}
		if mstats.HeapSys > maxHeapThusFar {
			maxHeapThusFar = mstats.HeapSys
			params.Logger.Debug("grew heap",
				zap.String("heap", units.BytesSize(float64(mstats.Alloc))),
				zap.String("max heap", units.BytesSize(float64(mstats.HeapSys))),
			)
		}
		if !profiled && mstats.HeapSys >= params.ProfileAbove {
			profiled = true
			base, err := heapProfile(params.ProfileDir)
			if err != nil {
				params.Logger.Error("memory profiling error", zap.Error(err))
			} else {
				params.Logger.Info("wrote memory profile", zap.String("profile", base))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sinceLog += params.Poll
		}
	}
}

// MemPoll watches the memory of the process until the context is done.
func MemPoll(ctx context.Context, params MemPollParams) error {
	params, err := memPollDefaults(params)
	if err != nil {
		return err
	}
	go memPoll(ctx, params)
	return nil
}
