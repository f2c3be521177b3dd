// Package config reads .flowgate/config.yaml directly, without going
// through the viper singleton. Hook handlers run before (and outside of)
// CLI flag parsing, and may execute in a different working directory than
// the one the CLI was initialized in, so they need a load path that is
// just "read this file now".
//
// Any read or parse failure yields an empty config, never an error: a
// broken config file must not block a hook decision.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DirName is the workspace directory flowgate keeps its files in.
const DirName = ".flowgate"

// ConfigFileName is the config file inside the workspace directory.
const ConfigFileName = "config.yaml"

// GitHubConfig identifies the repository used for issue-state lookups.
type GitHubConfig struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Token string `yaml:"token"`
}

// LocalConfig is the subset of config.yaml the hook and engine paths
// read directly from the file.
type LocalConfig struct {
	// LogDir overrides where session event logs live. Empty means
	// <flowgate-dir>/runtime/logs.
	LogDir string `yaml:"log-dir"`

	// ExpiryHours bounds how long an incomplete flow stays relevant.
	// Zero or negative means the engine default (24h).
	ExpiryHours int `yaml:"expiry-hours"`

	// LockTimeout bounds how long an append waits on the log file lock,
	// as a Go duration string ("2s"). Empty means the store default.
	LockTimeout string `yaml:"lock-timeout"`

	// LookupTimeout bounds a single GitHub issue-state lookup, as a Go
	// duration string ("4s"). Empty means the aggregator default.
	LookupTimeout string `yaml:"lookup-timeout"`

	// LookupConcurrency bounds parallel issue lookups. Zero or negative
	// means the aggregator default (5).
	LookupConcurrency int `yaml:"lookup-concurrency"`

	// SessionID is the fallback session identity when neither the hook
	// payload nor the environment carries one.
	SessionID string `yaml:"session-id"`

	GitHub GitHubConfig `yaml:"github"`
}

// Load reads and parses config.yaml from the given flowgate directory.
// Returns an empty LocalConfig (not nil) if the file doesn't exist or
// can't be parsed.
func Load(flowgateDir string) *LocalConfig {
	configPath := filepath.Join(flowgateDir, ConfigFileName)
	data, err := os.ReadFile(configPath) // #nosec G304 - config file path from flowgateDir
	if err != nil {
		return &LocalConfig{}
	}

	var cfg LocalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &LocalConfig{}
	}

	return &cfg
}

// LoadWithEnv reads config.yaml and applies environment variable
// overrides. Environment variables take precedence over file values.
//
// Supported overrides:
//   - FLOWGATE_SESSION_ID: overrides session-id
//   - FLOWGATE_LOG_DIR: overrides log-dir
//   - FLOWGATE_GITHUB_TOKEN (then GITHUB_TOKEN): overrides github.token
func LoadWithEnv(flowgateDir string) *LocalConfig {
	cfg := Load(flowgateDir)

	if sid := os.Getenv("FLOWGATE_SESSION_ID"); sid != "" {
		cfg.SessionID = sid
	}
	if dir := os.Getenv("FLOWGATE_LOG_DIR"); dir != "" {
		cfg.LogDir = dir
	}
	if tok := os.Getenv("FLOWGATE_GITHUB_TOKEN"); tok != "" {
		cfg.GitHub.Token = tok
	} else if tok := os.Getenv("GITHUB_TOKEN"); tok != "" && cfg.GitHub.Token == "" {
		cfg.GitHub.Token = tok
	}

	return cfg
}

// LogDirOrDefault resolves the session log directory.
func (c *LocalConfig) LogDirOrDefault(flowgateDir string) string {
	if c.LogDir != "" {
		return c.LogDir
	}
	return filepath.Join(flowgateDir, "runtime", "logs")
}

// WorkflowDir resolves the workflow state directory.
func WorkflowDir(flowgateDir string) string {
	return filepath.Join(flowgateDir, "runtime", "workflow")
}

// Expiry returns the configured flow expiry, or zero when unset so the
// caller falls back to the engine default.
func (c *LocalConfig) Expiry() time.Duration {
	if c.ExpiryHours <= 0 {
		return 0
	}
	return time.Duration(c.ExpiryHours) * time.Hour
}

// LockTimeoutDuration parses lock-timeout, or zero when unset/invalid.
func (c *LocalConfig) LockTimeoutDuration() time.Duration {
	return parseDuration(c.LockTimeout)
}

// LookupTimeoutDuration parses lookup-timeout, or zero when unset/invalid.
func (c *LocalConfig) LookupTimeoutDuration() time.Duration {
	return parseDuration(c.LookupTimeout)
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

// FindDir locates the flowgate workspace directory. FLOWGATE_DIR wins;
// otherwise the search walks up from startDir looking for an existing
// .flowgate directory, and falls back to <startDir>/.flowgate (which may
// not exist yet; init creates it).
func FindDir(startDir string) string {
	if dir := os.Getenv("FLOWGATE_DIR"); dir != "" {
		return dir
	}

	dir := startDir
	for {
		candidate := filepath.Join(dir, DirName)
		if fi, err := os.Stat(candidate); err == nil && fi.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return filepath.Join(startDir, DirName)
}
