// Package config provides configuration loading and validation for the CLI
// and the HTTP server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/jonathan/nfa-builder/internal/classify"
	"github.com/jonathan/nfa-builder/internal/llm"
	"github.com/jonathan/nfa-builder/internal/signatures"
	"github.com/jonathan/nfa-builder/internal/types"
)

// EnvPrefix is prepended to every environment override, e.g. NFA_LLM_MODEL.
const EnvPrefix = "NFA"

// Config is the merged configuration from the config file, NFA_* environment
// variables and defaults.
type Config struct {
	LLM LLMConfig `mapstructure:"llm"`

	// Paths
	OutputDir      string `mapstructure:"output_dir"`      // Directory generated documents are written to
	AssetsDir      string `mapstructure:"assets_dir"`      // Directory searched for header images
	HeaderImage    string `mapstructure:"header_image"`    // Explicit header image path
	SignaturesFile string `mapstructure:"signatures_file"` // JSON or YAML signature store
	PhrasesFile    string `mapstructure:"phrases_file"`    // JSON phrase list overriding the built-in one

	DatabaseURL    string   `mapstructure:"database_url"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// MaxBullets caps the bullet list. Zero keeps every bullet.
	MaxBullets int              `mapstructure:"max_bullets"`
	BatchLimit int              `mapstructure:"batch_limit"`
	Phrases    classify.Phrases `mapstructure:"phrases"`

	// Signatories overrides the compiled-in default grid cell by cell.
	Signatories types.SignatureLayout `mapstructure:"signatories"`

	Auth AuthConfig `mapstructure:"auth"`

	// ConfigFile is the file the values were read from, if any.
	ConfigFile string `mapstructure:"-"`
}

// LLMConfig selects the provider and the sampling settings per call.
type LLMConfig struct {
	Provider            string  `mapstructure:"provider"`
	Model               string  `mapstructure:"model"`
	BaseURL             string  `mapstructure:"base_url"`
	APIKey              string  `mapstructure:"api_key"`
	GenerateMaxTokens   int     `mapstructure:"generate_max_tokens"`
	GenerateTemperature float32 `mapstructure:"generate_temperature"`
	EditMaxTokens       int     `mapstructure:"edit_max_tokens"`
	EditTemperature     float32 `mapstructure:"edit_temperature"`
}

// AuthConfig holds the operator credentials for the API. Auth is disabled
// when PasswordHash is empty.
type AuthConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

// Enabled reports whether API requests must carry a token.
func (a AuthConfig) Enabled() bool {
	return a.PasswordHash != ""
}

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config error: '%s' %s: %v", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("config error: '%s' %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:            string(llm.ProviderOpenAI),
			GenerateMaxTokens:   300,
			GenerateTemperature: 0.5,
			EditMaxTokens:       400,
			EditTemperature:     0.1,
		},
		OutputDir:      "output",
		AssetsDir:      "assets",
		Port:           8080,
		AllowedOrigins: []string{"*"},
		MaxBullets:     classify.DefaultMaxBullets,
		BatchLimit:     4,
		Auth:           AuthConfig{Username: "admin"},
	}
}

// Load reads configuration from path (YAML or JSON, chosen by extension),
// NFA_* environment variables and defaults, in decreasing precedence of
// environment, file, default. With an empty path, nfa.yaml or nfa.json in the
// working directory is used when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Conventional unprefixed names used by deployment tooling.
	_ = v.BindEnv("database_url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("port", EnvPrefix+"_PORT", "PORT")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("nfa")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	return &cfg, nil
}

// setDefaults registers every scalar key so environment overrides reach
// Unmarshal.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.generate_max_tokens", d.LLM.GenerateMaxTokens)
	v.SetDefault("llm.generate_temperature", d.LLM.GenerateTemperature)
	v.SetDefault("llm.edit_max_tokens", d.LLM.EditMaxTokens)
	v.SetDefault("llm.edit_temperature", d.LLM.EditTemperature)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("assets_dir", d.AssetsDir)
	v.SetDefault("header_image", d.HeaderImage)
	v.SetDefault("signatures_file", d.SignaturesFile)
	v.SetDefault("phrases_file", d.PhrasesFile)
	v.SetDefault("database_url", d.DatabaseURL)
	v.SetDefault("port", d.Port)
	v.SetDefault("allowed_origins", d.AllowedOrigins)
	v.SetDefault("max_bullets", d.MaxBullets)
	v.SetDefault("batch_limit", d.BatchLimit)
	v.SetDefault("auth.username", d.Auth.Username)
	v.SetDefault("auth.password_hash", d.Auth.PasswordHash)
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if _, err := llm.ParseProvider(c.LLM.Provider); err != nil {
		return &ValidationError{Field: "llm.provider", Message: "is not supported", Cause: err}
	}

	for _, f := range []struct {
		name  string
		value int
	}{
		{"llm.generate_max_tokens", c.LLM.GenerateMaxTokens},
		{"llm.edit_max_tokens", c.LLM.EditMaxTokens},
		{"max_bullets", c.MaxBullets},
		{"batch_limit", c.BatchLimit},
	} {
		if f.value < 0 {
			return &ValidationError{Field: f.name, Message: "must be non-negative"}
		}
	}

	for _, f := range []struct {
		name  string
		value float32
	}{
		{"llm.generate_temperature", c.LLM.GenerateTemperature},
		{"llm.edit_temperature", c.LLM.EditTemperature},
	} {
		if f.value < 0 || f.value > 2 {
			return &ValidationError{Field: f.name, Message: "must be between 0 and 2"}
		}
	}

	if c.Port < 0 || c.Port > 65535 {
		return &ValidationError{Field: "port", Message: fmt.Sprintf("out of range: %d", c.Port)}
	}

	// Validate file paths exist (if specified)
	for _, f := range []struct {
		name string
		path string
	}{
		{"header_image", c.HeaderImage},
		{"signatures_file", c.SignaturesFile},
		{"phrases_file", c.PhrasesFile},
	} {
		if f.path == "" {
			continue
		}
		if _, err := os.Stat(f.path); os.IsNotExist(err) {
			return &ValidationError{Field: f.name, Message: "file not found: " + f.path}
		}
	}

	if c.Auth.Enabled() && c.Auth.Username == "" {
		return &ValidationError{Field: "auth.username", Message: "is required when auth.password_hash is set"}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&result.LLM.Provider, defaults.LLM.Provider)
	fill(&result.LLM.Model, defaults.LLM.Model)
	fill(&result.LLM.BaseURL, defaults.LLM.BaseURL)
	fill(&result.LLM.APIKey, defaults.LLM.APIKey)
	fill(&result.OutputDir, defaults.OutputDir)
	fill(&result.AssetsDir, defaults.AssetsDir)
	fill(&result.HeaderImage, defaults.HeaderImage)
	fill(&result.SignaturesFile, defaults.SignaturesFile)
	fill(&result.PhrasesFile, defaults.PhrasesFile)
	fill(&result.DatabaseURL, defaults.DatabaseURL)
	fill(&result.Auth.Username, defaults.Auth.Username)

	// Numeric fields: use default if zero
	if result.LLM.GenerateMaxTokens == 0 {
		result.LLM.GenerateMaxTokens = defaults.LLM.GenerateMaxTokens
	}
	if result.LLM.GenerateTemperature == 0 {
		result.LLM.GenerateTemperature = defaults.LLM.GenerateTemperature
	}
	if result.LLM.EditMaxTokens == 0 {
		result.LLM.EditMaxTokens = defaults.LLM.EditMaxTokens
	}
	if result.LLM.EditTemperature == 0 {
		result.LLM.EditTemperature = defaults.LLM.EditTemperature
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.BatchLimit == 0 {
		result.BatchLimit = defaults.BatchLimit
	}
	if len(result.AllowedOrigins) == 0 {
		result.AllowedOrigins = defaults.AllowedOrigins
	}

	// MaxBullets: zero means unlimited, so it is never merged.

	result.Signatories = result.Signatories.WithDefaults(defaults.Signatories)
	return result
}

// ClientConfig returns the llm configuration for the selected provider with
// the model override applied to every tier.
func (c LLMConfig) ClientConfig() (*llm.Config, error) {
	provider, err := llm.ParseProvider(c.Provider)
	if err != nil {
		return nil, err
	}
	cfg := llm.ConfigFor(provider)
	cfg.BaseURL = c.BaseURL
	if c.Model != "" {
		for _, tier := range []llm.ModelTier{llm.TierLite, llm.TierStandard, llm.TierAdvanced} {
			cfg = cfg.WithModel(tier, c.Model)
		}
	}
	return cfg, nil
}

// ResolveAPIKey returns the configured key, or the provider's conventional
// environment variable (OPENAI_API_KEY or GEMINI_API_KEY).
func (c LLMConfig) ResolveAPIKey(lookup LookupFunc) string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	name := "OPENAI_API_KEY"
	if provider, err := llm.ParseProvider(c.Provider); err == nil && provider == llm.ProviderGemini {
		name = "GEMINI_API_KEY"
	}
	key, _ := lookup(name)
	return strings.TrimSpace(key)
}

// SignatureDefaults returns the configured signatory grid over the
// compiled-in defaults.
func (c *Config) SignatureDefaults() types.SignatureLayout {
	return c.Signatories.WithDefaults(signatures.Defaults())
}

// ClassifierOptions returns the phrase lists and bullet cap for the
// classifier. A phrases_file replaces the built-in lists; inline phrases
// then replace whichever list they set.
func (c *Config) ClassifierOptions() (classify.Options, error) {
	phrases := classify.DefaultPhrases()
	if c.PhrasesFile != "" {
		data, err := os.ReadFile(c.PhrasesFile)
		if err != nil {
			return classify.Options{}, fmt.Errorf("failed to read phrases file %s: %w", c.PhrasesFile, err)
		}
		fromFile, err := classify.ParsePhrases(data)
		if err != nil {
			return classify.Options{}, fmt.Errorf("phrases file %s: %w", c.PhrasesFile, err)
		}
		phrases = phrases.Merge(fromFile)
	}
	return classify.Options{
		Phrases:    phrases.Merge(c.Phrases),
		MaxBullets: c.MaxBullets,
	}, nil
}
