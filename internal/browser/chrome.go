package browser

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/lance13c/mlbstats/internal/logging"
)

// ErrChromeNotFound means no Chrome-compatible executable was found.
var ErrChromeNotFound = errors.New("Chrome browser not found; install Chrome or Chromium, or set browser.exec_path")

// chromeCandidates lists executable names and install paths per OS, most
// preferred first.
func chromeCandidates(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Google Chrome Canary.app/Contents/MacOS/Google Chrome Canary",
			"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
		}
	case "windows":
		return []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files\Chromium\Application\chrome.exe`,
			"chrome",
		}
	}
	return []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome"}
}

// FindChrome returns the first Chrome-compatible executable for this OS.
func FindChrome() (string, error) {
	return findExecutable(chromeCandidates(runtime.GOOS))
}

// findExecutable resolves candidates in order. Absolute paths must exist as
// files; bare names are looked up on PATH.
func findExecutable(candidates []string) (string, error) {
	for _, c := range candidates {
		if filepath.IsAbs(c) {
			if info, err := os.Stat(c); err == nil && !info.IsDir() {
				logging.Debug("Found Chrome at: %s", c)
				return c, nil
			}
			continue
		}
		if resolved, err := exec.LookPath(c); err == nil {
			logging.Debug("Found Chrome at: %s", resolved)
			return resolved, nil
		}
	}
	return "", ErrChromeNotFound
}
