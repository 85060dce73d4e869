// Package config loads the server configuration: built-in defaults, an
// optional YAML file, then POS_* environment variables.
package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// EnvPrefix marks environment variables that override configuration keys.
const EnvPrefix = "POS_"

//go:embed default.yaml
var defaultYAML []byte

type Config struct {
	Env struct {
		Name string `yaml:"name"`
		Log  Log    `yaml:"log"`
	} `yaml:"env"`

	HTTP struct {
		Port           int      `yaml:"port"`
		BaseURL        string   `yaml:"baseUrl"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
		// WebDir holds a built frontend; empty disables static serving.
		WebDir   string `yaml:"webDir"`
		Timeouts struct {
			Read     time.Duration `yaml:"read"`
			Write    time.Duration `yaml:"write"`
			Idle     time.Duration `yaml:"idle"`
			Shutdown time.Duration `yaml:"shutdown"`
		} `yaml:"timeouts"`
	} `yaml:"http"`

	Database Database `yaml:"database"`

	Auth Auth `yaml:"auth"`

	AI struct {
		APIKey    string `yaml:"apiKey"`
		Model     string `yaml:"model"`
		MaxRounds int    `yaml:"maxRounds"`
	} `yaml:"ai"`

	Reports Reports `yaml:"reports"`
}

type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type Database struct {
	// Driver is "mysql" or "sqlite".
	Driver      string        `yaml:"driver"`
	DSN         string        `yaml:"dsn"`
	MaxAttempts int           `yaml:"maxAttempts"`
	RetryDelay  time.Duration `yaml:"retryDelay"`
	Debug       bool          `yaml:"debug"`
}

type Auth struct {
	JWTSecret         string        `yaml:"jwtSecret"`
	TokenTTL          time.Duration `yaml:"tokenTtl"`
	BcryptCost        int           `yaml:"bcryptCost"`
	AllowRegistration bool          `yaml:"allowRegistration"`
	// AllowUserIDHeader accepts the legacy verbatim X-User-ID header.
	AllowUserIDHeader bool `yaml:"allowUserIdHeader"`
}

type Reports struct {
	LowStockThreshold int `yaml:"lowStockThreshold"`
	TopSellingLimit   int `yaml:"topSellingLimit"`
	RecentSalesLimit  int `yaml:"recentSalesLimit"`
}

// rawBytes serves an in-memory document to koanf.
type rawBytes []byte

func (r rawBytes) ReadBytes() ([]byte, error) { return r, nil }

func (r rawBytes) Read() (map[string]any, error) {
	return nil, errors.New("rawBytes provider does not support Read")
}

// Load builds the configuration. path may be empty; POS_CONFIG is used then.
func Load(path string) (*Config, error) {
	// .env is optional, like in development checkouts
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(rawBytes(defaultYAML), yaml.Parser()); err != nil {
		return nil, errors.Wrap(err, "load default config")
	}

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}

	existing := k.Raw()
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			name := strings.TrimPrefix(key, EnvPrefix)
			if name == "CONFIG" {
				return "", nil
			}
			canonical := canonicalizeEnvKey(name, existing)
			if strings.HasSuffix(canonical, "allowedOrigins") {
				return canonical, splitList(value)
			}
			return canonical, value
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables")
	}

	cfg := new(Config)
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "yaml",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			TagName:          "yaml",
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	applyLegacyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyLegacyEnv honours the variable names of older .env files.
func applyLegacyEnv(cfg *Config) {
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = os.Getenv("DB_DSN")
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.HTTP.BaseURL == "" {
		cfg.HTTP.BaseURL = os.Getenv("BASE_URL")
	}
	if _, set := os.LookupEnv(EnvPrefix + "AUTH_ALLOW_REGISTRATION"); !set {
		if v, ok := os.LookupEnv("ALLOW_REGISTRATION"); ok {
			if allow, err := strconv.ParseBool(v); err == nil {
				cfg.Auth.AllowRegistration = allow
			}
		}
	}
	if cfg.HTTP.BaseURL == "" {
		cfg.HTTP.BaseURL = "http://localhost:" + strconv.Itoa(cfg.HTTP.Port)
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return errors.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required (database.dsn, POS_DATABASE_DSN or DB_DSN)")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret is required (POS_AUTH_JWT_SECRET)")
	}
	if c.HTTP.Port <= 0 {
		return errors.Errorf("invalid http port %d", c.HTTP.Port)
	}
	return nil
}

// canonicalizeEnvKey maps AUTH_JWT_SECRET onto the existing key auth.jwtSecret.
// Consecutive segments are joined greedily to match camelCase keys.
func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	var segments []string
	for _, s := range strings.Split(strings.ToLower(rawKey), "_") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	canonical := make([]string, 0, len(segments))
	current := existing
	for i := 0; i < len(segments); {
		matched := false
		for j := len(segments); j > i; j-- {
			key, next, ok := findExistingSegment(current, strings.Join(segments[i:j], ""))
			if !ok {
				continue
			}
			canonical = append(canonical, key)
			current = next
			i = j
			matched = true
			break
		}
		if !matched {
			canonical = append(canonical, strings.Join(segments[i:], ""))
			break
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (string, map[string]any, bool) {
	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}
		child, _ := value.(map[string]any)
		return key, child, true
	}
	return "", nil, false
}

func normalizeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
