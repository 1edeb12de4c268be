// Package paths resolves the configuration directory and history file
// locations used by the CLI.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// Environment variable overriding the configuration directory.
const EnvConfigDir = "BLADERF_CONFIG_DIR"

// historyFileName is the default command-history file in the user's
// home directory.
const historyFileName = ".bladerf_history"

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/bladerf (fallback ~/.config/bladerf)
// macOS:   ~/Library/Application Support/bladerf
// Windows: %APPDATA%/bladerf
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "bladerf"), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "bladerf"), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "bladerf"), nil
	}
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > BLADERF_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// DefaultHistoryFile returns the default readline history file path in
// the user's home directory.
func DefaultHistoryFile() (string, error) {
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, historyFileName), nil
}
