// Package config loads the CLI configuration from the resolved config
// directory, with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/jenselo/bladeRF/internal/paths"
	"github.com/jenselo/bladeRF/internal/script"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "BLADERF"
)

// Config keys.
const (
	cfgKeyDevice         = "device"
	cfgKeyPrompt         = "prompt"
	cfgKeyScriptMaxDepth = "script_max_depth"
	cfgKeyHistoryFile    = "history_file"
	cfgKeyLogLevel       = "log_level"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# bladeRF CLI configuration

# Device identifier to open at startup (empty: open on demand)
# device: loopback

# Interactive prompt
# prompt: "bladeRF> "

# Maximum script nesting depth
# script_max_depth: 16

# Command history file (empty: ~/.bladerf_history)
# history_file:

# Log level: debug, info, warn, error
# log_level: info
`

// Config holds the tool's settings.
type Config struct {
	Device         string
	Prompt         string
	ScriptMaxDepth int
	HistoryFile    string
	LogLevel       string
}

// Load reads config.yaml from configDir, creating the directory and a
// commented default file on first run. A missing config.yaml is not an
// error. Environment variables with the BLADERF_ prefix override file
// values (e.g. BLADERF_LOG_LEVEL).
func Load(configDir string) (Config, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return Config{}, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyDevice, "")
	v.SetDefault(cfgKeyPrompt, "bladeRF> ")
	v.SetDefault(cfgKeyScriptMaxDepth, script.DefaultMaxDepth)
	v.SetDefault(cfgKeyHistoryFile, "")
	v.SetDefault(cfgKeyLogLevel, "info")

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		Device:         v.GetString(cfgKeyDevice),
		Prompt:         v.GetString(cfgKeyPrompt),
		ScriptMaxDepth: v.GetInt(cfgKeyScriptMaxDepth),
		HistoryFile:    v.GetString(cfgKeyHistoryFile),
		LogLevel:       v.GetString(cfgKeyLogLevel),
	}

	if cfg.HistoryFile == "" {
		hist, err := paths.DefaultHistoryFile()
		if err != nil {
			return Config{}, fmt.Errorf("resolve history file: %w", err)
		}
		cfg.HistoryFile = hist
	}
	return cfg, nil
}

// ensureDefaultConfigFile creates a commented config.yaml if none
// exists in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
