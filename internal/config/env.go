package config

import (
	"log"
	"os"
	"strings"
	"sync"
)

var (
	warnLogger func(format string, args ...any) = log.Printf
	warnMu     sync.Mutex
	warnedKeys sync.Map
)

// lookup returns the trimmed, non-empty value of key. When only the
// deprecated oldKey is set its value is used and a warning is logged once
// per process.
func lookup(key, oldKey string) (string, bool) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v, true
	}
	if oldKey == "" {
		return "", false
	}
	if v := strings.TrimSpace(os.Getenv(oldKey)); v != "" {
		warnDeprecated(oldKey, key)
		return v, true
	}
	return "", false
}

func warnDeprecated(oldKey, key string) {
	onceIface, _ := warnedKeys.LoadOrStore(oldKey, &sync.Once{})
	onceIface.(*sync.Once).Do(func() {
		warnMu.Lock()
		logger := warnLogger
		warnMu.Unlock()
		logger("%s is deprecated; use %s", oldKey, key)
	})
}

// setWarnLoggerForTesting swaps the warning logger and clears the once
// guards. The returned function restores the previous logger.
func setWarnLoggerForTesting(fn func(format string, args ...any)) (restore func()) {
	warnMu.Lock()
	previous := warnLogger
	warnLogger = fn
	warnedKeys = sync.Map{}
	warnMu.Unlock()
	return func() {
		warnMu.Lock()
		warnLogger = previous
		warnMu.Unlock()
	}
}
