package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

const logStampLayout = "2006-01-02T15-04-05"

// SetupLogFile opens dir/<name>-<stamp>.log for writing and prunes the same name's older files so
// at most maxFiles remain. The caller owns the returned file.
func SetupLogFile(dir, name string, maxFiles int) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("log dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, name+"-"+time.Now().Format(logStampLayout)+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	if err := pruneLogs(dir, name, max(maxFiles, 1)); err != nil {
		fmt.Fprintf(os.Stderr, "warning: pruning %s logs: %v\n", name, err)
	}
	return f, nil
}

// pruneLogs relies on the stamp layout sorting lexically in time order.
func pruneLogs(dir, name string, keep int) error {
	matches, err := filepath.Glob(filepath.Join(dir, name+"-*.log"))
	if err != nil {
		return err
	}
	excess := len(matches) - keep
	if excess <= 0 {
		return nil
	}

	slices.Sort(matches)
	for _, old := range matches[:excess] {
		if err := os.Remove(old); err != nil {
			return fmt.Errorf("remove %s: %w", filepath.Base(old), err)
		}
	}
	return nil
}
