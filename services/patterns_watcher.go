// services/patterns_watcher.go
package services

import (
	"context"
	"os"
	"time"

	"playmap/common"
)

var (
	patLastMod        time.Time
	patWatcherRunning bool
)

// StartPatternsWatcher monitors the pattern file for changes and reloads
// the text grammar automatically. No-op when no file is configured or
// when PLAYMAP_PATTERNS_WATCH is false.
func StartPatternsWatcher(ctx context.Context) {
	if patWatcherRunning {
		return
	}
	if patPath == "" {
		return
	}
	if !common.EnvBool(PatternsWatchEnv, "true") {
		common.InfoLog("patterns: watch disabled (%s=false)", PatternsWatchEnv)
		return
	}
	patWatcherRunning = true

	if stat, err := os.Stat(patPath); err == nil {
		patLastMod = stat.ModTime()
	}

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				common.InfoLog("patterns: watcher stopped")
				patWatcherRunning = false
				return
			case <-ticker.C:
				checkAndReloadPatterns()
			}
		}
	}()

	common.InfoLog("patterns: watching %s for changes (checking every 10s)", patPath)
}

func checkAndReloadPatterns() {
	if patPath == "" {
		return
	}
	stat, err := os.Stat(patPath)
	if err != nil {
		// File may be mid-replace; try again next tick.
		common.DebugLog("patterns: stat %s failed: %v", patPath, err)
		return
	}

	modTime := stat.ModTime()
	if !modTime.After(patLastMod) {
		return
	}
	common.InfoLog("patterns: file changed, reloading...")
	if err := ReloadPatterns(); err != nil {
		common.ErrorLog("patterns: reload failed, keeping previous grammar: %v", err)
	}
	patLastMod = modTime
}
