// Package config implements .catalogtx.yaml configuration file support.
//
// Settings come from three layers, later ones winning: built-in defaults,
// .catalogtx.yaml in the project root, and environment variables (a .env file
// next to the config is loaded first when present).
package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/catalogtx/catalog"
	"github.com/minios-linux/catalogtx/logging"
)

// FileName is the default config file name.
const FileName = ".catalogtx.yaml"

// EnvFileName is loaded from the project root before environment overrides.
const EnvFileName = ".env"

// Defaults.
const (
	DefaultSourceLang = "it"
	DefaultLimit      = 10
	DefaultOutput     = "translated_products.json"
	DefaultURLPrefix  = "/products/"
	DefaultDSN        = "catalogtx.db"
	DefaultEngine     = "python3"
	DefaultTimeout    = 5 * time.Minute
)

// DefaultEngineArgs run the bundled translator script.
var DefaultEngineArgs = []string{"translator.py"}

// Environment variables.
const (
	EnvDSN            = "CATALOGTX_DSN"
	EnvLanguages      = "SUPPORTED_LANGS"
	EnvDefaultLang    = "DEFAULT_LANG"
	EnvSourceLang     = "CATALOGTX_SOURCE_LANG"
	EnvEngine         = "CATALOGTX_ENGINE"
	EnvEngineTimeout  = "CATALOGTX_ENGINE_TIMEOUT"
	EnvLimit          = "CATALOGTX_LIMIT"
	EnvWorkers        = "CATALOGTX_WORKERS"
	EnvLogLevel       = "CATALOGTX_LOG_LEVEL"
	EnvLogFormat      = "CATALOGTX_LOG_FORMAT"
	invalidConfigCode = "CONFIG_INVALID"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// Config is the top-level .catalogtx.yaml structure.
type Config struct {
	// Languages are the supported catalog languages.
	Languages []string `yaml:"languages,omitempty"`
	// DefaultLang is the fallback language for localized views.
	DefaultLang string `yaml:"default_lang,omitempty"`
	// SourceLang is the language products are translated from (default "it").
	SourceLang string `yaml:"source_lang,omitempty"`
	// Limit caps how many products one run loads (default 10, 0 = default).
	Limit int `yaml:"limit,omitempty"`
	// Output is the draft artifact path relative to the project root.
	Output string `yaml:"output,omitempty"`
	// URLPrefix is prepended to derived slugs.
	URLPrefix string `yaml:"url_prefix,omitempty"`
	// Workers is the number of items translated concurrently (default 1).
	Workers int `yaml:"workers,omitempty"`
	// RatePerSecond paces engine work when > 0.
	RatePerSecond float64 `yaml:"rate_per_second,omitempty"`
	// RateBurst is the pacing burst.
	RateBurst int `yaml:"rate_burst,omitempty"`
	// OnlyChanged translates only products whose source changed since the
	// last clean run.
	OnlyChanged bool `yaml:"only_changed,omitempty"`

	Database Database       `yaml:"database,omitempty"`
	Engine   Engine         `yaml:"engine,omitempty"`
	Log      logging.Config `yaml:"log,omitempty"`

	path  string
	found bool
}

// Database selects the product store.
type Database struct {
	// DSN is a SQLite path or a postgres:// URL.
	DSN string `yaml:"dsn,omitempty"`
}

// Engine describes the external translation process.
type Engine struct {
	Command string            `yaml:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty"`
	Dir     string            `yaml:"dir,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	// Timeout bounds one batch call (e.g. "90s").
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads .catalogtx.yaml from rootDir (or configPath when set), applies
// .env and environment overrides, fills defaults and validates the result.
// A missing default config file is not an error; a missing explicit one is.
func Load(rootDir, configPath string) (*Config, error) {
	explicit := configPath != ""
	path := configPath
	if !explicit {
		path = filepath.Join(rootDir, FileName)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(rootDir, path)
	}

	c := &Config{path: path}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		c.path = path
		c.found = true
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	envPath := filepath.Join(rootDir, EnvFileName)
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envPath, err)
		}
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Path returns the config file path that was read or would be read.
func (c *Config) Path() string {
	return c.path
}

// Found reports whether the config file existed.
func (c *Config) Found() bool {
	return c.found
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDSN); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(EnvLanguages); v != "" {
		c.Languages = splitList(v)
	}
	if v := os.Getenv(EnvDefaultLang); v != "" {
		c.DefaultLang = v
	}
	if v := os.Getenv(EnvSourceLang); v != "" {
		c.SourceLang = v
	}
	if fields := strings.Fields(os.Getenv(EnvEngine)); len(fields) > 0 {
		c.Engine.Command = fields[0]
		c.Engine.Args = fields[1:]
	}
	if v := os.Getenv(EnvEngineTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return invalid(fmt.Errorf("%s: %w", EnvEngineTimeout, err), c.path)
		}
		c.Engine.Timeout = d
	}
	if v := os.Getenv(EnvLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return invalid(fmt.Errorf("%s: %w", EnvLimit, err), c.path)
		}
		c.Limit = n
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return invalid(fmt.Errorf("%s: %w", EnvWorkers, err), c.path)
		}
		c.Workers = n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if len(c.Languages) == 0 {
		c.Languages = catalog.DefaultCatalog.Languages()
	}
	for i, l := range c.Languages {
		c.Languages[i] = normalizeLang(l)
	}
	if c.DefaultLang == "" {
		c.DefaultLang = catalog.DefaultCatalog.Default()
	}
	c.DefaultLang = normalizeLang(c.DefaultLang)
	if c.SourceLang == "" {
		c.SourceLang = DefaultSourceLang
	}
	c.SourceLang = normalizeLang(c.SourceLang)
	if c.Limit == 0 {
		c.Limit = DefaultLimit
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.URLPrefix == "" {
		c.URLPrefix = DefaultURLPrefix
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.Database.DSN == "" {
		c.Database.DSN = DefaultDSN
	}
	if c.Engine.Command == "" {
		c.Engine.Command = DefaultEngine
		if len(c.Engine.Args) == 0 {
			c.Engine.Args = append([]string(nil), DefaultEngineArgs...)
		}
	}
	if c.Engine.Timeout == 0 {
		c.Engine.Timeout = DefaultTimeout
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate checks the configuration. Errors are go-errors validation errors
// with text code CONFIG_INVALID.
func (c *Config) Validate() error {
	langs := make([]any, len(c.Languages))
	for i, l := range c.Languages {
		langs[i] = l
	}

	err := validation.ValidateStruct(c,
		validation.Field(&c.Languages, validation.Required, validation.Each(validation.By(languageCode))),
		validation.Field(&c.DefaultLang, validation.Required, validation.By(languageCode), validation.In(langs...)),
		validation.Field(&c.SourceLang, validation.Required, validation.By(languageCode), validation.In(langs...)),
		validation.Field(&c.Limit, validation.Min(0)),
		validation.Field(&c.Output, validation.Required),
		validation.Field(&c.Workers, validation.Min(0)),
		validation.Field(&c.RatePerSecond, validation.Min(0.0)),
		validation.Field(&c.RateBurst, validation.Min(0)),
		validation.Field(&c.Engine),
	)
	if err != nil {
		return invalid(err, c.path)
	}
	return nil
}

// Validate implements validation.Validatable.
func (e Engine) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Command, validation.Required),
		validation.Field(&e.Timeout, validation.Min(0)),
	)
}

func languageCode(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if strings.ContainsAny(s, "_ ") {
		return validation.NewError("validation_language_code", "must not contain underscores or spaces")
	}
	if _, err := language.Parse(s); err != nil {
		return validation.NewError("validation_language_code", "must be a valid BCP 47 language code")
	}
	return nil
}

func invalid(err error, path string) error {
	msg := "invalid configuration"
	if path != "" {
		msg += " (" + path + ")"
	}
	msg += ": " + err.Error()
	return goerrors.Wrap(err, goerrors.CategoryValidation, msg).WithTextCode(invalidConfigCode)
}

// ---------------------------------------------------------------------------
// Derived values
// ---------------------------------------------------------------------------

// Catalog returns the field catalog for the configured languages.
func (c *Config) Catalog() (catalog.Catalog, error) {
	return catalog.NewCatalog(c.Languages, c.DefaultLang)
}

// Targets returns every configured language except the source language.
func (c *Config) Targets() []string {
	out := make([]string, 0, len(c.Languages))
	for _, l := range c.Languages {
		if l != c.SourceLang {
			out = append(out, l)
		}
	}
	return out
}

// OutputPath resolves Output against rootDir.
func (c *Config) OutputPath(rootDir string) string {
	if filepath.IsAbs(c.Output) {
		return c.Output
	}
	return filepath.Join(rootDir, c.Output)
}

// EngineEnv returns the engine environment as sorted KEY=VALUE pairs.
func (c *Config) EngineEnv() []string {
	out := make([]string, 0, len(c.Engine.Env))
	for _, k := range slices.Sorted(maps.Keys(c.Engine.Env)) {
		out = append(out, k+"="+c.Engine.Env[k])
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizeLang(l string) string {
	return strings.ToLower(strings.TrimSpace(l))
}
