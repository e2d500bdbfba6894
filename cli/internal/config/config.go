// Package config provides c4f configuration with a defined load order:
// CLI flags > environment variables > repo config > global config > defaults.
//
// Paths:
//   - Repo: .c4f.toml (relative to repo root)
//   - Global: XDG config dir, e.g. ~/.config/c4f/config.toml (see os.UserConfigDir)
//
// Environment variables (override config files when set):
//   - C4F_MODEL, C4F_OLLAMA_BASE_URL,
//   - C4F_PROMPT_THRESHOLD (changed-line count selecting the comprehensive prompt),
//   - C4F_FALLBACK_TIMEOUT (per-attempt bound; Go duration string or integer seconds),
//   - C4F_MIN_COMPREHENSIVE_LENGTH (minimum accepted length of a comprehensive message),
//   - C4F_ATTEMPTS (generation attempts before falling back),
//   - C4F_DIFF_MAX_LINES (per-file diff budget in the prompt),
//   - C4F_SUBJECT_MAX_LENGTH (commit subject length bound),
//   - C4F_FORCE_BRACKETS (require a scope in subjects: 1/true/yes/on or 0/false/no/off),
//   - C4F_TEMPERATURE, C4F_NUM_CTX (Ollama model runtime options; passed to /api/generate).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"c4f/cli/internal/erruser"
)

// Config holds all c4f configuration. Thresholds and the model identifier are
// explicit fields passed into the pipeline; there is no module-level mutable
// state, so tests can run in parallel with different configurations.
type Config struct {
	Model         string        `toml:"model"`
	OllamaBaseURL string        `toml:"ollama_base_url"`
	// PromptThreshold is the total changed-line count at or above which the
	// comprehensive prompt template is used (below it the simple template).
	PromptThreshold int `toml:"prompt_threshold"`
	// FallbackTimeout bounds each generation attempt; an attempt exceeding it
	// is treated as failed and the next attempt starts fresh.
	FallbackTimeout time.Duration `toml:"fallback_timeout"`
	// MinComprehensiveLength is the minimum total length of a generated
	// message accepted for a comprehensive prompt (rejects one-word replies).
	MinComprehensiveLength int `toml:"min_comprehensive_length"`
	// Attempts is the number of generation attempts before composing the
	// deterministic fallback message.
	Attempts int `toml:"attempts"`
	// DiffMaxLines is the per-file diff line budget in prompts; longer diffs
	// are truncated with an explicit marker.
	DiffMaxLines int `toml:"diff_max_lines"`
	// SubjectMaxLength bounds the commit subject line.
	SubjectMaxLength int `toml:"subject_max_length"`
	// ForceBrackets requires a (scope) in every generated subject.
	ForceBrackets bool `toml:"force_brackets"`
	// Temperature and NumCtx are passed to Ollama /api/generate options.
	Temperature float64 `toml:"temperature"`
	NumCtx      int     `toml:"num_ctx"`
}

// Overrides represents optional CLI flag overrides. Non-nil pointer means
// "override with this value". Applied last (highest precedence).
type Overrides struct {
	Model                  *string
	OllamaBaseURL          *string
	PromptThreshold        *int
	FallbackTimeout        *time.Duration
	MinComprehensiveLength *int
	Attempts               *int
	DiffMaxLines           *int
	SubjectMaxLength       *int
	ForceBrackets          *bool
	Temperature            *float64
	NumCtx                 *int
}

// LoadOptions configures Load. All fields are optional.
type LoadOptions struct {
	// RepoRoot is the repository root; if set, repo config is RepoRoot/.c4f.toml.
	RepoRoot string
	// GlobalConfigPath is the global config file path; if empty, XDG path is used.
	GlobalConfigPath string
	// Env is the environment key=value slice; if nil, os.Environ() is used.
	Env []string
	// Overrides are applied last (highest precedence).
	Overrides *Overrides
}

const (
	_defaultModel                  = "mistral:7b"
	_defaultOllamaBaseURL          = "http://localhost:11434"
	_defaultPromptThreshold        = 80
	_defaultFallbackTimeout        = 10 * time.Second
	_defaultMinComprehensiveLength = 50
	_defaultAttempts               = 3
	_defaultDiffMaxLines           = 100
	_defaultSubjectMaxLength       = 72
	_defaultTemperature            = 0.2
	_defaultNumCtx                 = 8192
)

const repoConfigName = ".c4f.toml"

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Model:                  _defaultModel,
		OllamaBaseURL:          _defaultOllamaBaseURL,
		PromptThreshold:        _defaultPromptThreshold,
		FallbackTimeout:        _defaultFallbackTimeout,
		MinComprehensiveLength: _defaultMinComprehensiveLength,
		Attempts:               _defaultAttempts,
		DiffMaxLines:           _defaultDiffMaxLines,
		SubjectMaxLength:       _defaultSubjectMaxLength,
		Temperature:            _defaultTemperature,
		NumCtx:                 _defaultNumCtx,
	}
}

// Load loads configuration with precedence: defaults < global file < repo file < env < overrides.
// Missing config files are ignored. Invalid TOML or invalid env values return an error.
func Load(opts LoadOptions) (*Config, error) {
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	cfg := DefaultConfig()

	globalPath := opts.GlobalConfigPath
	if globalPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, erruser.New("Could not determine config directory.", err)
		}
		globalPath = filepath.Join(dir, "c4f", "config.toml")
	}
	if err := mergeFile(&cfg, globalPath); err != nil {
		return nil, err
	}

	if opts.RepoRoot != "" {
		if err := mergeFile(&cfg, filepath.Join(opts.RepoRoot, repoConfigName)); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg, opts.Env); err != nil {
		return nil, err
	}

	applyOverrides(&cfg, opts.Overrides)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeFile reads path and merges into cfg. Only overwrites fields that are
// present and valid in the file. Missing file is skipped (no error).
func mergeFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return erruser.New("Invalid configuration file.", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return erruser.New("Could not read configuration file.", err)
	}
	var file struct {
		Model                  *string  `toml:"model"`
		OllamaBaseURL          *string  `toml:"ollama_base_url"`
		PromptThreshold        *int64   `toml:"prompt_threshold"`
		FallbackTimeout        *string  `toml:"fallback_timeout"`
		MinComprehensiveLength *int64   `toml:"min_comprehensive_length"`
		Attempts               *int64   `toml:"attempts"`
		DiffMaxLines           *int64   `toml:"diff_max_lines"`
		SubjectMaxLength       *int64   `toml:"subject_max_length"`
		ForceBrackets          *bool    `toml:"force_brackets"`
		Temperature            *float64 `toml:"temperature"`
		NumCtx                 *int64   `toml:"num_ctx"`
	}
	if _, err := toml.Decode(string(data), &file); err != nil {
		return erruser.New("Invalid configuration in "+filepath.Base(path)+".", err)
	}
	if file.Model != nil && *file.Model != "" {
		cfg.Model = *file.Model
	}
	if file.OllamaBaseURL != nil && *file.OllamaBaseURL != "" {
		cfg.OllamaBaseURL = *file.OllamaBaseURL
	}
	if file.PromptThreshold != nil && *file.PromptThreshold > 0 {
		cfg.PromptThreshold = int(*file.PromptThreshold)
	}
	if file.FallbackTimeout != nil && *file.FallbackTimeout != "" {
		d, err := parseDuration(*file.FallbackTimeout)
		if err != nil {
			return erruser.New("Configuration fallback_timeout is invalid.", err)
		}
		cfg.FallbackTimeout = d
	}
	if file.MinComprehensiveLength != nil && *file.MinComprehensiveLength > 0 {
		cfg.MinComprehensiveLength = int(*file.MinComprehensiveLength)
	}
	if file.Attempts != nil && *file.Attempts > 0 {
		cfg.Attempts = int(*file.Attempts)
	}
	if file.DiffMaxLines != nil && *file.DiffMaxLines > 0 {
		cfg.DiffMaxLines = int(*file.DiffMaxLines)
	}
	if file.SubjectMaxLength != nil && *file.SubjectMaxLength > 0 {
		cfg.SubjectMaxLength = int(*file.SubjectMaxLength)
	}
	if file.ForceBrackets != nil {
		cfg.ForceBrackets = *file.ForceBrackets
	}
	if file.Temperature != nil && *file.Temperature >= 0 && *file.Temperature <= 2 {
		cfg.Temperature = *file.Temperature
	}
	if file.NumCtx != nil && *file.NumCtx > 0 {
		cfg.NumCtx = int(*file.NumCtx)
	}
	return nil
}

// parseDuration parses a Go duration string ("10s", "1m") or a bare integer
// (interpreted as seconds).
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration %d", n)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

// parseBool accepts 1/true/yes/on and 0/false/no/off (case-insensitive).
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

func applyEnv(cfg *Config, env []string) error {
	get := func(key string) (string, bool) {
		prefix := key + "="
		for i := len(env) - 1; i >= 0; i-- {
			if strings.HasPrefix(env[i], prefix) {
				return env[i][len(prefix):], true
			}
		}
		return "", false
	}
	if v, ok := get("C4F_MODEL"); ok && v != "" {
		cfg.Model = v
	}
	if v, ok := get("C4F_OLLAMA_BASE_URL"); ok && v != "" {
		cfg.OllamaBaseURL = v
	}
	intVars := []struct {
		key string
		dst *int
	}{
		{"C4F_PROMPT_THRESHOLD", &cfg.PromptThreshold},
		{"C4F_MIN_COMPREHENSIVE_LENGTH", &cfg.MinComprehensiveLength},
		{"C4F_ATTEMPTS", &cfg.Attempts},
		{"C4F_DIFF_MAX_LINES", &cfg.DiffMaxLines},
		{"C4F_SUBJECT_MAX_LENGTH", &cfg.SubjectMaxLength},
		{"C4F_NUM_CTX", &cfg.NumCtx},
	}
	for _, iv := range intVars {
		v, ok := get(iv.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return erruser.New(iv.key+" must be a positive integer.", err)
		}
		*iv.dst = n
	}
	if v, ok := get("C4F_FALLBACK_TIMEOUT"); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return erruser.New("C4F_FALLBACK_TIMEOUT is invalid; use a Go duration or integer seconds.", err)
		}
		cfg.FallbackTimeout = d
	}
	if v, ok := get("C4F_FORCE_BRACKETS"); ok && v != "" {
		b, err := parseBool(v)
		if err != nil {
			return erruser.New("C4F_FORCE_BRACKETS must be a boolean (1/true/yes/on or 0/false/no/off).", err)
		}
		cfg.ForceBrackets = b
	}
	if v, ok := get("C4F_TEMPERATURE"); ok && v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || f < 0 || f > 2 {
			return erruser.New("C4F_TEMPERATURE must be a number between 0 and 2.", err)
		}
		cfg.Temperature = f
	}
	return nil
}

func applyOverrides(cfg *Config, o *Overrides) {
	if o == nil {
		return
	}
	if o.Model != nil && *o.Model != "" {
		cfg.Model = *o.Model
	}
	if o.OllamaBaseURL != nil && *o.OllamaBaseURL != "" {
		cfg.OllamaBaseURL = *o.OllamaBaseURL
	}
	if o.PromptThreshold != nil && *o.PromptThreshold > 0 {
		cfg.PromptThreshold = *o.PromptThreshold
	}
	if o.FallbackTimeout != nil && *o.FallbackTimeout > 0 {
		cfg.FallbackTimeout = *o.FallbackTimeout
	}
	if o.MinComprehensiveLength != nil && *o.MinComprehensiveLength > 0 {
		cfg.MinComprehensiveLength = *o.MinComprehensiveLength
	}
	if o.Attempts != nil && *o.Attempts > 0 {
		cfg.Attempts = *o.Attempts
	}
	if o.DiffMaxLines != nil && *o.DiffMaxLines > 0 {
		cfg.DiffMaxLines = *o.DiffMaxLines
	}
	if o.SubjectMaxLength != nil && *o.SubjectMaxLength > 0 {
		cfg.SubjectMaxLength = *o.SubjectMaxLength
	}
	if o.ForceBrackets != nil {
		cfg.ForceBrackets = *o.ForceBrackets
	}
	if o.Temperature != nil && *o.Temperature >= 0 && *o.Temperature <= 2 {
		cfg.Temperature = *o.Temperature
	}
	if o.NumCtx != nil && *o.NumCtx > 0 {
		cfg.NumCtx = *o.NumCtx
	}
}

// validate rejects configurations the pipeline cannot honor.
func validate(cfg *Config) error {
	if cfg.Attempts < 1 {
		return erruser.New("attempts must be at least 1.", nil)
	}
	if cfg.FallbackTimeout <= 0 {
		return erruser.New("fallback_timeout must be positive.", nil)
	}
	if cfg.SubjectMaxLength < 20 {
		return erruser.New("subject_max_length must be at least 20.", nil)
	}
	if cfg.DiffMaxLines < 10 {
		return erruser.New("diff_max_lines must be at least 10.", nil)
	}
	return nil
}
