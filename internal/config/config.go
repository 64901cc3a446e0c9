// Package config loads the image-censor configuration.
//
// Settings come from, in increasing priority: built-in defaults, a JSON
// config file, and IMAGE_CENSOR_* environment variables (a .env file in the
// working directory is read first when present).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"

	"github.com/ironsheep/image-censor/internal/censor"
	"github.com/ironsheep/image-censor/internal/detection"
	"github.com/ironsheep/image-censor/internal/effects"
	codec "github.com/ironsheep/image-censor/internal/imaging"
	"github.com/ironsheep/image-censor/internal/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EnvPrefix prefixes every environment override.
const EnvPrefix = "IMAGE_CENSOR_"

// Config holds every setting of the binary.
type Config struct {
	Censor     effects.GlobalOptions  `json:"censor"`
	Match      detection.MatchOptions `json:"match"`
	Styles     StylesConfig           `json:"styles"`
	Output     OutputConfig           `json:"output"`
	Assets     AssetsConfig           `json:"assets"`
	OCR        OCRConfig              `json:"ocr"`
	Classifier ClassifierConfig       `json:"classifier"`
	Log        logging.Options        `json:"log"`
}

// StylesConfig maps labels to censor styles.
type StylesConfig struct {
	// Map holds label -> style string, e.g. "FACE": "sticker:cats".
	Map map[string]string `json:"map,omitempty"`

	// Levels holds label -> level, DefaultLevel when missing.
	Levels map[string]int `json:"levels,omitempty" validate:"dive,gte=0,lte=20"`

	// Default is used for labels missing from Map. Empty means they are
	// left alone.
	Default string `json:"default"`

	// OverrideFile is a JSON file of label -> [style, level] that takes
	// priority over Map.
	OverrideFile string `json:"override_file,omitempty"`
}

// OutputConfig controls encoding and pipeline behaviour.
type OutputConfig struct {
	Quality  int  `json:"quality,omitempty" validate:"gte=0,lte=100"`
	Lossless bool `json:"lossless,omitempty"`

	// SlowProviderMS is the provider duration that triggers a warning.
	SlowProviderMS int `json:"slow_provider_ms" validate:"gte=0"`

	// Watermark stamps a small square in the bottom-right corner.
	Watermark bool `json:"watermark,omitempty"`
}

// AssetsConfig locates sticker images and caption lists.
type AssetsConfig struct {
	Dir string `json:"dir,omitempty"`

	// RedisAddr, when set, serves captions from Redis sets.
	RedisAddr     string `json:"redis_addr,omitempty" validate:"omitempty,hostname_port"`
	RedisPassword string `json:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty" validate:"gte=0"`
	RedisPrefix   string `json:"redis_prefix,omitempty"`
}

// OCRConfig enables text detection middleware.
type OCRConfig struct {
	Enabled        bool    `json:"enabled"`
	Label          string  `json:"label" validate:"required_if=Enabled true"`
	Language       string  `json:"language,omitempty"`
	TessdataPrefix string  `json:"tessdata_prefix,omitempty"`
	MinConfidence  float64 `json:"min_confidence" validate:"gte=0,lte=1"`

	// Heuristic uses the edge-density detector instead of Tesseract.
	Heuristic bool `json:"heuristic,omitempty"`
}

// ClassifierConfig configures the Ollama vision classifier.
type ClassifierConfig struct {
	OllamaURL string `json:"ollama_url,omitempty" validate:"omitempty,url"`
	Model     string `json:"model,omitempty" validate:"required_with=OllamaURL"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Censor: effects.DefaultGlobalOptions(),
		Match:  detection.DefaultMatchOptions(),
		Styles: StylesConfig{
			Default: censor.DefaultSpec().Style,
		},
		Output: OutputConfig{
			Quality:        90,
			SlowProviderMS: int(censor.DefaultSlowProvider / time.Millisecond),
		},
		Assets: AssetsConfig{
			RedisPrefix: "image-censor:",
		},
		OCR: OCRConfig{
			Label:         "TEXT",
			Language:      "eng",
			MinConfidence: 0.5,
		},
		Log: logging.DefaultOptions(),
	}
}

// Path returns the default config file location.
func Path() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "image-censor", "config.json")
	}
	return "image-censor.json"
}

// LoadFromFile reads path over the defaults. Keys missing from the file keep
// their default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	c := Default()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return c, nil
}

// SaveToFile writes c as indented JSON, creating parent directories.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load builds the effective configuration: defaults, then path when it is
// not empty, then .env and environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		var err error
		if c, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	// A missing .env is not an error.
	_ = godotenv.Load()

	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overrides fields from IMAGE_CENSOR_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	var errs []string
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := lookup(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, name, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	boolean("ALLOW_MERGING", &c.Censor.AllowMerging)
	float("PADDING_SCALE", &c.Censor.PaddingScale)
	float("RELATIVE_SCALE", &c.Censor.RelativeScale)
	float("MINIMUM_SCORE", &c.Match.MinimumScore)

	str("DEFAULT_STYLE", &c.Styles.Default)
	str("OVERRIDE_FILE", &c.Styles.OverrideFile)

	integer("QUALITY", &c.Output.Quality)
	integer("SLOW_PROVIDER_MS", &c.Output.SlowProviderMS)
	boolean("WATERMARK", &c.Output.Watermark)

	str("ASSETS_DIR", &c.Assets.Dir)
	str("REDIS_ADDR", &c.Assets.RedisAddr)
	str("REDIS_PASSWORD", &c.Assets.RedisPassword)
	integer("REDIS_DB", &c.Assets.RedisDB)

	boolean("OCR_ENABLED", &c.OCR.Enabled)
	str("OCR_LANGUAGE", &c.OCR.Language)
	str("TESSDATA_PREFIX", &c.OCR.TessdataPrefix)

	str("OLLAMA_URL", &c.Classifier.OllamaURL)
	str("MODEL", &c.Classifier.Model)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every field constraint and that style strings name a
// known provider.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				field := strings.TrimPrefix(e.Namespace(), "Config.")
				msgs = append(msgs, fmt.Sprintf("%s fails %q (value %v)", field, e.Tag(), e.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// CheckStyles reports styles that no provider in catalog supports. The
// "none" style is always accepted.
func (c *Config) CheckStyles(catalog effects.Catalog) error {
	var unknown []string
	check := func(where, style string) {
		if style == "" {
			return
		}
		spec := effects.ParseSpec(style, effects.DefaultLevel)
		if spec.Style == censor.NoneStyle {
			return
		}
		if catalog.Find(spec.Style) == nil {
			unknown = append(unknown, fmt.Sprintf("%s=%q", where, spec.Style))
		}
	}
	for label, style := range c.Styles.Map {
		check("styles.map."+label, style)
	}
	check("styles.default", c.Styles.Default)

	if len(unknown) > 0 {
		return fmt.Errorf("unsupported styles: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// Parser builds the label parser: the override file first, when set, then
// the static style map.
func (c *Config) Parser() (censor.Parser, error) {
	static := censor.NewStaticParser(c.Styles.Map, c.Styles.Levels, c.Styles.Default)
	if c.Styles.OverrideFile == "" {
		return static, nil
	}
	overrides, err := censor.LoadOverrideFile(c.Styles.OverrideFile)
	if err != nil {
		return nil, err
	}
	return censor.ChainParser{overrides, static}, nil
}

// SlowProvider returns the slow-provider threshold.
func (c *Config) SlowProvider() time.Duration {
	return time.Duration(c.Output.SlowProviderMS) * time.Millisecond
}

// Encoding returns the encoder settings.
func (c *Config) Encoding() codec.EncodeOptions {
	return codec.EncodeOptions{Quality: c.Output.Quality, Lossless: c.Output.Lossless}
}
