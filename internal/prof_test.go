package internal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHeapProfile(t *testing.T) {
	dir := t.TempDir()

	base, err := heapProfile(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(base))

	for _, ext := range []string{".mem.prof", ".alloc.prof"} {
		info, err := os.Stat(base + ext)
		require.NoError(t, err)
		assert.NotZero(t, info.Size())
	}
}

func TestMemPoll(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	params, err := memPollDefaults(MemPollParams{
		Poll:         time.Millisecond,
		LogEvery:     time.Millisecond,
		ProfileAbove: 1,
		ProfileDir:   dir,
		Logger:       zap.New(core),
	})
	require.NoError(t, err)

	go func() {
		memPoll(ctx, params)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("mempoll").Len() > 0
	}, 5*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 1, logs.FilterMessage("wrote memory profile").Len())
	assert.NotZero(t, logs.FilterMessage("grew heap").Len())

	profiles, err := filepath.Glob(filepath.Join(dir, "*.mem.prof"))
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

func TestMemPollDefaults(t *testing.T) {
	params, err := memPollDefaults(MemPollParams{})
	require.NoError(t, err)
	assert.Equal(t, defaultPoll, params.Poll)
	assert.Equal(t, os.TempDir(), params.ProfileDir)
	assert.NotNil(t, params.Logger)
}
