package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

const keyEnv = "ENV"
const envLocal = "local"

const (
	defaultPort            = "8080"
	defaultKVDBPath        = "./data/deepfind.db"
	defaultResultCap       = 20
	defaultDebounce        = 300 * time.Millisecond
	defaultProgressFolders = 10
	defaultProgressFiles   = 100
)

type Config struct {
	config *viper.Viper
}

func Load(env string) (*Config, error) {

	if len(env) == 0 {
		if env = os.Getenv(keyEnv); len(env) == 0 {
			env = envLocal
		}
	}

	configPath, err := getConfigPath(env)

	viperConfig := viper.New()
	if err == nil {
		viperConfig.SetConfigFile(configPath)
		if err := viperConfig.ReadInConfig(); err != nil {
			slog.Warn(fmt.Sprintf("error reading config file, %s", err))
		}
	}
	viperConfig.AutomaticEnv()

	cfg := &Config{
		config: viperConfig,
	}

	return cfg, nil
}

// Set overrides a config key, mostly for tests and CLI flags.
func (c *Config) Set(key string, value any) {
	c.config.Set(key, value)
}

func (c *Config) GetPort() string {
	return c.getString("PORT", "server.port", defaultPort)
}

func (c *Config) GetKVDBPath() string {
	return c.getString("KVDB_PATH", "database.kvdb_path", defaultKVDBPath)
}

func (c *Config) GetLogLevel() string {
	return c.getString("LOG_LEVEL", "log.level", "info")
}

// GetResultCap is the number of matches a search emits before it pauses.
func (c *Config) GetResultCap() int {
	return c.getInt("RESULT_CAP", "search.result_cap", defaultResultCap)
}

// GetSystemDirectory is the directory name the default skip policy never descends into.
func (c *Config) GetSystemDirectory() string {
	return c.getString("SYSTEM_DIRECTORY", "search.system_directory", defaultSystemDirectory())
}

func (c *Config) GetCaseInsensitivePaths() bool {
	if c.config.IsSet("CASE_INSENSITIVE_PATHS") {
		return c.config.GetBool("CASE_INSENSITIVE_PATHS")
	}
	if c.config.IsSet("search.case_insensitive_paths") {
		return c.config.GetBool("search.case_insensitive_paths")
	}
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

func (c *Config) GetDebounce() time.Duration {
	ms := c.getInt("DEBOUNCE_MS", "search.debounce_ms", -1)
	if ms < 0 {
		return defaultDebounce
	}
	return time.Duration(ms) * time.Millisecond
}

func (c *Config) GetProgressFolders() int {
	return c.getInt("PROGRESS_FOLDERS", "search.progress_folders", defaultProgressFolders)
}

func (c *Config) GetProgressFiles() int {
	return c.getInt("PROGRESS_FILES", "search.progress_files", defaultProgressFiles)
}

func (c *Config) getString(envKey string, fileKey string, fallback string) string {
	value := c.config.GetString(envKey)
	if len(value) == 0 {
		value = c.config.GetString(fileKey)
	}
	if len(value) == 0 {
		value = fallback
	}

	return value
}

func (c *Config) getInt(envKey string, fileKey string, fallback int) int {
	if c.config.IsSet(envKey) {
		return c.config.GetInt(envKey)
	}
	if c.config.IsSet(fileKey) {
		return c.config.GetInt(fileKey)
	}

	return fallback
}

func defaultSystemDirectory() string {
	switch runtime.GOOS {
	case "windows":
		return "Windows"
	case "darwin":
		return "System"
	default:
		return "proc"
	}
}

func getProjectRoot() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	for {
		configDir := filepath.Join(currentDir, "config")
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)

		if parent == currentDir {
			break
		}

		currentDir = parent
	}

	return "", fmt.Errorf("could not find project root (directory containing 'config' folder)")
}

func getConfigPath(env string) (string, error) {
	configFile := fmt.Sprintf("config.%s.yaml", env)

	projectRoot, err := getProjectRoot()
	if err != nil {
		slog.Warn("failed to find project root with config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	configPath := filepath.Join(projectRoot, "config", configFile)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Warn("failed to find config file within config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("config file does not exist: %s", configPath)
	}

	return configPath, nil
}
