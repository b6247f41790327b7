package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	Backend string        `yaml:"backend"`
	Google  GoogleConfig  `yaml:"google"`
	Local   LocalConfig   `yaml:"local"`
	Limits  LimitsConfig  `yaml:"limits"`
	Tools   ToolsConfig   `yaml:"tools"`
	Logging LoggingConfig `yaml:"logging"`
}

// GoogleConfig locates the credentials for the Google backend. TokenPath holds
// an authorized-user token produced out of band; when it is empty,
// CredentialsPath must be a service account key.
type GoogleConfig struct {
	CredentialsPath string `yaml:"credentials_path"`
	TokenPath       string `yaml:"token_path"`
	RetryAttempts   int    `yaml:"retry_attempts"`

	RetryDelay    time.Duration `yaml:"-"`
	RetryDelayRaw string        `yaml:"retry_delay"`
}

// LocalConfig configures the local workbook backend.
type LocalConfig struct {
	AllowedDirs []string `yaml:"allowed_dirs"`

	IdleTTL    time.Duration `yaml:"-"`
	IdleTTLRaw string        `yaml:"idle_ttl"`
}

// LimitsConfig holds the runtime guardrails.
type LimitsConfig struct {
	MaxConcurrentRequests int `yaml:"max_concurrent_requests"`
	MaxOpenWorkbooks      int `yaml:"max_open_workbooks"`
	MaxFanout             int `yaml:"max_fanout"`
	MaxGridCells          int `yaml:"max_grid_cells"`

	OperationTimeout      time.Duration `yaml:"-"`
	AcquireRequestTimeout time.Duration `yaml:"-"`

	OperationTimeoutRaw      string `yaml:"operation_timeout"`
	AcquireRequestTimeoutRaw string `yaml:"acquire_request_timeout"`
}

// ToolsConfig controls tool discovery.
type ToolsConfig struct {
	Disabled []string `yaml:"disabled"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Backend: BackendGoogle,
		Google: GoogleConfig{
			RetryAttempts: DefaultRetryAttempts,
			RetryDelay:    DefaultRetryDelay,
		},
		Local: LocalConfig{IdleTTL: DefaultWorkbookIdleTTL},
		Limits: LimitsConfig{
			MaxConcurrentRequests: DefaultMaxConcurrentRequests,
			MaxOpenWorkbooks:      DefaultMaxOpenWorkbooks,
			MaxFanout:             DefaultMaxFanout,
			MaxGridCells:          DefaultMaxGridCells,
			OperationTimeout:      DefaultOperationTimeout,
			AcquireRequestTimeout: DefaultAcquireRequestTimeout,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults, then applies environment
// overrides. An empty path skips the file. ${VAR} references in the file are
// expanded before parsing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		if err := parseDurations(cfg); err != nil {
			return nil, fmt.Errorf("parsing durations: %w", err)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

var envVarRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with its value, or "" when unset.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarRe.FindStringSubmatch(match)[1])
	})
}

func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"google.retry_delay", cfg.Google.RetryDelayRaw, &cfg.Google.RetryDelay},
		{"local.idle_ttl", cfg.Local.IdleTTLRaw, &cfg.Local.IdleTTL},
		{"limits.operation_timeout", cfg.Limits.OperationTimeoutRaw, &cfg.Limits.OperationTimeout},
		{"limits.acquire_request_timeout", cfg.Limits.AcquireRequestTimeoutRaw, &cfg.Limits.AcquireRequestTimeout},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// applyEnv overlays the supported environment variables.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("MCPSHEETS_BACKEND")); v != "" {
		cfg.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("GSHEETS_CREDENTIALS_PATH")); v != "" {
		cfg.Google.CredentialsPath = v
	}
	if v := strings.TrimSpace(os.Getenv("GSHEETS_TOKEN_PATH")); v != "" {
		cfg.Google.TokenPath = v
	}
	if v := os.Getenv("MCPSHEETS_ALLOWED_DIRS"); v != "" {
		cfg.Local.AllowedDirs = filepath.SplitList(v)
	}
	if v := os.Getenv("MCPSHEETS_DISABLED_TOOLS"); v != "" {
		cfg.Tools.Disabled = splitCSV(v)
	}
	if v := strings.TrimSpace(os.Getenv("MCPSHEETS_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks that the selected backend is usable and limits are sane.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGoogle:
		if c.Google.CredentialsPath == "" && c.Google.TokenPath == "" {
			return fmt.Errorf("google.credentials_path or google.token_path is required (GSHEETS_CREDENTIALS_PATH / GSHEETS_TOKEN_PATH)")
		}
		if c.Google.RetryAttempts < 1 {
			return fmt.Errorf("google.retry_attempts must be >= 1")
		}
	case BackendLocal:
		if len(c.Local.AllowedDirs) == 0 {
			return fmt.Errorf("local.allowed_dirs is required (MCPSHEETS_ALLOWED_DIRS)")
		}
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", BackendGoogle, BackendLocal, c.Backend)
	}
	if c.Limits.MaxConcurrentRequests < 1 || c.Limits.MaxOpenWorkbooks < 1 || c.Limits.MaxFanout < 1 {
		return fmt.Errorf("limits must be positive")
	}
	if c.Limits.MaxGridCells < 0 {
		return fmt.Errorf("limits.max_grid_cells must be >= 0")
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// LogLevel returns the parsed log level, defaulting to info.
func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
