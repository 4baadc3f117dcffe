// loader.go — configuration loading with priority cascade.
// Priority: defaults < global config file < project config file < env
// vars < flags. Generalizes the teacher's cmd/gasoline-cmd/config
// cascade from CLI-client settings (server port, output format) to this
// core's own tunables: slot count N, audit capacity A, explain-session
// cache bound M and timeout T, rule-list sources, intercept mode, and
// the LLM credential env var name (§6).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all resolved configuration values for the core.
type Config struct {
	// Slots is N, the configured maximum number of agent slots (§3).
	Slots int `yaml:"slots" json:"slots"`
	// AuditCapacity is A, the audit ring buffer's fixed capacity (§4.C).
	AuditCapacity int `yaml:"audit_capacity" json:"audit_capacity"`
	// SessionCacheSize is M, the explain-session cache bound (§4.H).
	SessionCacheSize int `yaml:"session_cache_size" json:"session_cache_size"`
	// SessionTimeout is T, the explain-session expiry timeout (§4.H).
	SessionTimeout time.Duration `yaml:"session_timeout" json:"session_timeout"`
	// InterceptMode is the network interceptor's operating mode (§4.C):
	// one of off, strict, balanced, allowlist.
	InterceptMode string `yaml:"intercept_mode" json:"intercept_mode"`
	// RuleListPaths are the EasyList-dialect files loaded at startup
	// (§6). They are the only rule sources: no default list is compiled in.
	RuleListPaths []string `yaml:"rule_list_paths" json:"rule_list_paths"`
	// Allowlist is the host allowlist consulted before the rule engine
	// (§4.C step 2).
	Allowlist []string `yaml:"allowlist" json:"allowlist"`
	// LLMAPIKeyEnv names the process-configuration variable (§6) that
	// cmd/workspace checks before building the genai client. Defaults to
	// GEMINI_API_KEY. The client itself always reads GEMINI_API_KEY, so
	// setting only a differently named variable leaves it without a key
	// and cmd/workspace falls back to llmclient.Fake.
	LLMAPIKeyEnv string `yaml:"llm_api_key_env" json:"llm_api_key_env"`
	// LLMModel names the Gemini model the facade calls.
	LLMModel string `yaml:"llm_model" json:"llm_model"`
	// ReconcileDebounce bounds the scheduler's layout-reconciliation
	// debounce delay (§4.K; "≈100ms is a reasonable upper bound").
	ReconcileDebounce time.Duration `yaml:"reconcile_debounce" json:"reconcile_debounce"`
	// RuleWatch enables fsnotify-driven hot reload of RuleListPaths.
	RuleWatch bool `yaml:"rule_watch" json:"rule_watch"`
	// BrowserHostPort is the local port of the embedded-browser-engine
	// collaborator (§6). 0 means no collaborator is configured, and the
	// core falls back to the in-memory fake engine (headless/dev mode).
	BrowserHostPort int `yaml:"browser_host_port" json:"browser_host_port"`
	// BrowserHostTimeout bounds each RPC to the browser host.
	BrowserHostTimeout time.Duration `yaml:"browser_host_timeout" json:"browser_host_timeout"`
	// BrowserCallbackPort is the local port this core listens on for the
	// collaborator's intercept/response/status pushes (§6). 0 disables
	// the listener entirely.
	BrowserCallbackPort int `yaml:"browser_callback_port" json:"browser_callback_port"`
	// GenericInspectEnabled gates the response inspector's fallback
	// stripping path for bodies that don't match a known endpoint shape.
	GenericInspectEnabled bool `yaml:"generic_inspect_enabled" json:"generic_inspect_enabled"`
	// AdURLPattern is a regular expression matched against manifest
	// segment URLs to identify ad segments for the manifest rewriter.
	// Empty disables URL-based ad-segment matching.
	AdURLPattern string `yaml:"ad_url_pattern" json:"ad_url_pattern"`
}

// FlagOverrides holds values explicitly set via command-line flags.
// A nil pointer means the flag was not set, so lower-priority values
// are kept.
type FlagOverrides struct {
	Slots            *int
	AuditCapacity    *int
	SessionCacheSize *int
	SessionTimeout   *time.Duration
	InterceptMode    *string
}

// Defaults returns the base configuration, matching spec.md's §5
// defaults (N=4, A=1000, M=10, T=30min).
func Defaults() Config {
	return Config{
		Slots:                 4,
		AuditCapacity:         1000,
		SessionCacheSize:      10,
		SessionTimeout:        30 * time.Minute,
		InterceptMode:         "balanced",
		LLMAPIKeyEnv:          "GEMINI_API_KEY",
		LLMModel:              "gemini-2.0-flash",
		ReconcileDebounce:     100 * time.Millisecond,
		RuleWatch:             true,
		GenericInspectEnabled: true,
	}
}

// Load builds the final configuration by applying the priority cascade:
// defaults < global (~/.browsing-workspace/config.yaml) < project
// (.workspace.yaml or .workspace.json in projectDir) < env vars < flags.
func Load(projectDir string, flags *FlagOverrides) (Config, error) {
	cfg := Defaults()

	if home, err := os.UserHomeDir(); err == nil {
		if err := loadFile(&cfg, filepath.Join(home, ".browsing-workspace", "config.yaml")); err != nil {
			return cfg, fmt.Errorf("global config: %w", err)
		}
	}

	for _, name := range []string{".workspace.yaml", ".workspace.yml", ".workspace.json"} {
		if err := loadFile(&cfg, filepath.Join(projectDir, name)); err != nil {
			return cfg, fmt.Errorf("project config: %w", err)
		}
	}

	loadEnvVars(&cfg)

	if flags != nil {
		applyFlags(&cfg, flags)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// fileConfig uses pointers to distinguish "not set" from the zero value.
type fileConfig struct {
	Slots            *int     `yaml:"slots" json:"slots"`
	AuditCapacity    *int     `yaml:"audit_capacity" json:"audit_capacity"`
	SessionCacheSize *int     `yaml:"session_cache_size" json:"session_cache_size"`
	SessionTimeout   *string  `yaml:"session_timeout" json:"session_timeout"`
	InterceptMode    *string  `yaml:"intercept_mode" json:"intercept_mode"`
	RuleListPaths    []string `yaml:"rule_list_paths" json:"rule_list_paths"`
	Allowlist        []string `yaml:"allowlist" json:"allowlist"`
	LLMAPIKeyEnv     *string  `yaml:"llm_api_key_env" json:"llm_api_key_env"`
	LLMModel         *string  `yaml:"llm_model" json:"llm_model"`
	RuleWatch        *bool    `yaml:"rule_watch" json:"rule_watch"`
	BrowserCallbackPort   *int    `yaml:"browser_callback_port" json:"browser_callback_port"`
	GenericInspectEnabled *bool   `yaml:"generic_inspect_enabled" json:"generic_inspect_enabled"`
	AdURLPattern          *string `yaml:"ad_url_pattern" json:"ad_url_pattern"`
}

// loadFile reads a YAML or JSON config file (by extension) and merges
// explicitly-set fields into cfg. A missing file is not an error.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var fc fileConfig
	// yaml.Unmarshal parses both YAML and JSON documents (JSON is a
	// subset of YAML 1.2), so one path covers the teacher's JSON
	// convention and the pack's more common YAML ambient format.
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if fc.Slots != nil {
		cfg.Slots = *fc.Slots
	}
	if fc.AuditCapacity != nil {
		cfg.AuditCapacity = *fc.AuditCapacity
	}
	if fc.SessionCacheSize != nil {
		cfg.SessionCacheSize = *fc.SessionCacheSize
	}
	if fc.SessionTimeout != nil {
		d, err := time.ParseDuration(*fc.SessionTimeout)
		if err != nil {
			return fmt.Errorf("session_timeout: %w", err)
		}
		cfg.SessionTimeout = d
	}
	if fc.InterceptMode != nil {
		cfg.InterceptMode = *fc.InterceptMode
	}
	if len(fc.RuleListPaths) > 0 {
		cfg.RuleListPaths = fc.RuleListPaths
	}
	if len(fc.Allowlist) > 0 {
		cfg.Allowlist = fc.Allowlist
	}
	if fc.LLMAPIKeyEnv != nil {
		cfg.LLMAPIKeyEnv = *fc.LLMAPIKeyEnv
	}
	if fc.LLMModel != nil {
		cfg.LLMModel = *fc.LLMModel
	}
	if fc.RuleWatch != nil {
		cfg.RuleWatch = *fc.RuleWatch
	}
	if fc.BrowserCallbackPort != nil {
		cfg.BrowserCallbackPort = *fc.BrowserCallbackPort
	}
	if fc.GenericInspectEnabled != nil {
		cfg.GenericInspectEnabled = *fc.GenericInspectEnabled
	}
	if fc.AdURLPattern != nil {
		cfg.AdURLPattern = *fc.AdURLPattern
	}
	return nil
}

// loadEnvVars applies WORKSPACE_-prefixed environment variable overrides.
func loadEnvVars(cfg *Config) {
	if v := os.Getenv("WORKSPACE_SLOTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Slots = n
		}
	}
	if v := os.Getenv("WORKSPACE_AUDIT_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AuditCapacity = n
		}
	}
	if v := os.Getenv("WORKSPACE_SESSION_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SessionCacheSize = n
		}
	}
	if v := os.Getenv("WORKSPACE_SESSION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionTimeout = d
		}
	}
	if v := os.Getenv("WORKSPACE_INTERCEPT_MODE"); v != "" {
		cfg.InterceptMode = v
	}
	if v := os.Getenv("WORKSPACE_RULE_LISTS"); v != "" {
		cfg.RuleListPaths = strings.Split(v, string(os.PathListSeparator))
	}
	if v := os.Getenv("WORKSPACE_LLM_API_KEY_ENV"); v != "" {
		cfg.LLMAPIKeyEnv = v
	}
	if v := os.Getenv("WORKSPACE_BROWSER_CALLBACK_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BrowserCallbackPort = n
		}
	}
	if v := os.Getenv("WORKSPACE_AD_URL_PATTERN"); v != "" {
		cfg.AdURLPattern = v
	}
}

// applyFlags applies command-line flag overrides (highest priority).
func applyFlags(cfg *Config, flags *FlagOverrides) {
	if flags.Slots != nil {
		cfg.Slots = *flags.Slots
	}
	if flags.AuditCapacity != nil {
		cfg.AuditCapacity = *flags.AuditCapacity
	}
	if flags.SessionCacheSize != nil {
		cfg.SessionCacheSize = *flags.SessionCacheSize
	}
	if flags.SessionTimeout != nil {
		cfg.SessionTimeout = *flags.SessionTimeout
	}
	if flags.InterceptMode != nil {
		cfg.InterceptMode = *flags.InterceptMode
	}
}

// Validate checks that configuration values are within acceptable ranges.
func (c Config) Validate() error {
	if c.Slots < 1 {
		return fmt.Errorf("slots must be >= 1, got %d", c.Slots)
	}
	if c.AuditCapacity < 1 {
		return fmt.Errorf("audit_capacity must be >= 1, got %d", c.AuditCapacity)
	}
	if c.SessionCacheSize < 1 {
		return fmt.Errorf("session_cache_size must be >= 1, got %d", c.SessionCacheSize)
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("session_timeout must be positive, got %s", c.SessionTimeout)
	}
	validModes := map[string]bool{"off": true, "strict": true, "balanced": true, "allowlist": true}
	if !validModes[c.InterceptMode] {
		return fmt.Errorf("intercept_mode must be off, strict, balanced, or allowlist, got %q", c.InterceptMode)
	}
	return nil
}
