package fsmrt

import (
	"errors"
	"log/slog"
	"os"
)

// Recoverable errors, part of the Timer Service's public API.
var (
	// ErrDuplicateTimer is returned by TimerService.Create when timerID
	// is already registered.
	ErrDuplicateTimer = errors.New("fsmrt: timer already exists")
)

// osExit is a variable, not a direct os.Exit call, so tests can observe
// fatal paths without actually terminating the test binary.
var osExit = os.Exit

// die logs msg as a fatal diagnostic and terminates the process. Spec §7
// classifies programmer errors (unknown timer ID, double-create past the
// recoverable Create check) and system-resource errors (kernel syscall
// failure) as fatal-abort; this is the Go translation of the source's
// die() macro (perror + exit(EXIT_FAILURE)).
func die(logger *slog.Logger, msg string, err error) {
	if logger == nil {
		logger = Logger
	}
	logger.Error(msg, "error", err)
	osExit(1)
}
