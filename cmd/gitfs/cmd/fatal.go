package cmd

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/sys/unix"

	"github.com/oneconcern/gitfs/pkg/errors"
	"github.com/oneconcern/gitfs/pkg/gitfs/status"
)

var (
	// globals used to patch over calls to os.Exit() during test

	logFatalln = log.Fatalln
	logFatalf  = log.Fatalf
	osExit     = os.Exit
)

func wrapFatalln(msg string, err error) {
	if err == nil {
		logFatalln(msg)
	} else {
		logFatalf("%v", fmt.Errorf(msg+": %w", err))
	}
}

func wrapFatalWithCodef(code int, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	osExit(code)
}

// fatalOnError exits with ENOENT when a path is not found in the snapshot
func fatalOnError(msg string, err error) {
	if errors.Is(err, status.ErrNotExist) {
		wrapFatalWithCodef(int(unix.ENOENT), "%s: %v", msg, err)
		return
	}
	wrapFatalln(msg, err)
}
