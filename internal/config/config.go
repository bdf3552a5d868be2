package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	Port     string `mapstructure:"PORT"`

	TerminologyBaseURL string        `mapstructure:"TERMINOLOGY_BASE_URL"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	RetryMax           int           `mapstructure:"RETRY_MAX"`
	RetryWaitMin       time.Duration `mapstructure:"RETRY_WAIT_MIN"`
	RetryWaitMax       time.Duration `mapstructure:"RETRY_WAIT_MAX"`

	ValueSetURL   string `mapstructure:"VALUESET_URL"`
	ConceptMapURL string `mapstructure:"CONCEPT_MAP_URL"`
	MRNSystem     string `mapstructure:"MRN_SYSTEM"`
	SystemLabels  string `mapstructure:"SYSTEM_LABELS"`

	SearchDebounce  time.Duration `mapstructure:"SEARCH_DEBOUNCE"`
	SearchMinLength int           `mapstructure:"SEARCH_MIN_LENGTH"`
	SearchCount     int           `mapstructure:"SEARCH_COUNT"`

	TokenStorageKey       string        `mapstructure:"TOKEN_STORAGE_KEY"`
	TokenDefaultTTL       time.Duration `mapstructure:"TOKEN_DEFAULT_TTL"`
	TokenRefreshThreshold time.Duration `mapstructure:"TOKEN_REFRESH_THRESHOLD"`
	RedisURL              string        `mapstructure:"REDIS_URL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
	BodyLimit   string   `mapstructure:"BODY_LIMIT"`

	MockPort      string `mapstructure:"MOCK_PORT"`
	MockJWTSecret string `mapstructure:"MOCK_JWT_SECRET"`
	MockUsername  string `mapstructure:"MOCK_USERNAME"`
	MockPassword  string `mapstructure:"MOCK_PASSWORD"`
}

var keys = []string{
	"ENV", "LOG_LEVEL", "PORT",
	"TERMINOLOGY_BASE_URL", "REQUEST_TIMEOUT", "RETRY_MAX", "RETRY_WAIT_MIN", "RETRY_WAIT_MAX",
	"VALUESET_URL", "CONCEPT_MAP_URL", "MRN_SYSTEM", "SYSTEM_LABELS",
	"SEARCH_DEBOUNCE", "SEARCH_MIN_LENGTH", "SEARCH_COUNT",
	"TOKEN_STORAGE_KEY", "TOKEN_DEFAULT_TTL", "TOKEN_REFRESH_THRESHOLD", "REDIS_URL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"CORS_ORIGINS", "BODY_LIMIT",
	"MOCK_PORT", "MOCK_JWT_SECRET", "MOCK_USERNAME", "MOCK_PASSWORD",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", "3000")
	v.SetDefault("TERMINOLOGY_BASE_URL", "http://localhost:8000")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("RETRY_MAX", 2)
	v.SetDefault("RETRY_WAIT_MIN", "200ms")
	v.SetDefault("RETRY_WAIT_MAX", "2s")
	v.SetDefault("VALUESET_URL", "https://namaste.ayush.gov.in/fhir/ValueSet/ayush")
	v.SetDefault("CONCEPT_MAP_URL", "https://namaste.ayush.gov.in/fhir/ConceptMap/namaste-to-icd11")
	v.SetDefault("MRN_SYSTEM", "http://hospital.example.org/mrn")
	v.SetDefault("SYSTEM_LABELS", "ayurveda=Ayurveda,siddha=Siddha,unani=Unani,icd11=ICD-11,icd.who.int=ICD-11")
	v.SetDefault("SEARCH_DEBOUNCE", "300ms")
	v.SetDefault("SEARCH_MIN_LENGTH", 2)
	v.SetDefault("SEARCH_COUNT", 10)
	v.SetDefault("TOKEN_STORAGE_KEY", "namaste_fhir_token")
	v.SetDefault("TOKEN_DEFAULT_TTL", "3600s")
	v.SetDefault("TOKEN_REFRESH_THRESHOLD", "5m")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("MOCK_PORT", "8000")
	v.SetDefault("MOCK_JWT_SECRET", "namaste-dev-secret")
	v.SetDefault("MOCK_USERNAME", "demo")
	v.SetDefault("MOCK_PASSWORD", "demo")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	cfg.TerminologyBaseURL = strings.TrimRight(cfg.TerminologyBaseURL, "/")

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// TokenStoreKind reports where the auth token is persisted: "redis" when
// REDIS_URL is set, otherwise "memory".
func (c *Config) TokenStoreKind() string {
	if c.RedisURL != "" {
		return "redis"
	}
	return "memory"
}

// HistoryStoreKind reports where translation history is kept: "postgres"
// when DATABASE_URL is set, otherwise "memory".
func (c *Config) HistoryStoreKind() string {
	if c.DatabaseURL != "" {
		return "postgres"
	}
	return "memory"
}

// Validate checks that the configuration can drive the terminology client.
func (c *Config) Validate() error {
	u, err := url.Parse(c.TerminologyBaseURL)
	if err != nil {
		return fmt.Errorf("TERMINOLOGY_BASE_URL is not a valid URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("TERMINOLOGY_BASE_URL must be an absolute URL, got %q", c.TerminologyBaseURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("RETRY_MAX must not be negative, got %d", c.RetryMax)
	}
	if c.SearchDebounce < 0 {
		return fmt.Errorf("SEARCH_DEBOUNCE must not be negative, got %s", c.SearchDebounce)
	}
	if c.SearchMinLength < 1 {
		return fmt.Errorf("SEARCH_MIN_LENGTH must be at least 1, got %d", c.SearchMinLength)
	}
	if c.TokenDefaultTTL <= 0 {
		return fmt.Errorf("TOKEN_DEFAULT_TTL must be positive, got %s", c.TokenDefaultTTL)
	}
	if c.TokenStorageKey == "" {
		return fmt.Errorf("TOKEN_STORAGE_KEY is required")
	}
	if _, err := ParseSystemLabels(c.SystemLabels); err != nil {
		return fmt.Errorf("SYSTEM_LABELS: %w", err)
	}
	return nil
}

// SystemLabel is one "token=Label" entry of SYSTEM_LABELS.
type SystemLabel struct {
	Token string
	Label string
}

// ParseSystemLabels parses a comma-separated "token=Label" list, keeping
// the declared order.
func ParseSystemLabels(s string) ([]SystemLabel, error) {
	var out []SystemLabel
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		token, label, ok := strings.Cut(item, "=")
		token, label = strings.TrimSpace(token), strings.TrimSpace(label)
		if !ok || token == "" || label == "" {
			return nil, fmt.Errorf("entry %q must look like token=Label", item)
		}
		out = append(out, SystemLabel{Token: token, Label: label})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one token=Label entry is required")
	}
	return out, nil
}
