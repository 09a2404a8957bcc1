package config

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dustin/go-humanize"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"
	defaultMaxUploadSize      = "250MB"
	defaultMinCredentialLen   = 6
	defaultMaxCredentialLen   = 72
	defaultSessionCookieName  = "session"
	defaultSignedURLTTL       = 15 * time.Minute
	defaultMaxFolderDepth     = 64
	defaultDatabaseDriver     = DriverPostgres
	defaultBlobProvider       = BlobProviderGoCloud
	defaultBlobURL            = "mem://"
)

// Database drivers supported by the metadata store.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Blob providers supported by the content store.
const (
	BlobProviderGoCloud  = "gocloud"
	BlobProviderSupabase = "supabase"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Database *DatabaseConfig `json:"database" yaml:"database"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	Session *SessionConfig `json:"session" yaml:"session"`

	// Content configuration for the folder tree and upload validation
	Content *ContentConfig `json:"content" yaml:"content"`

	// Blob configuration for lecture file storage
	Blob *BlobConfig `json:"blob" yaml:"blob"`
}

// DatabaseConfig selects the metadata store driver.
type DatabaseConfig struct {
	// Driver is either "postgres" or "sqlite"
	Driver      string       `json:"driver" yaml:"driver"`
	AutoMigrate bool         `json:"autoMigrate" yaml:"autoMigrate"`
	SQLite      SQLiteConfig `json:"sqlite" yaml:"sqlite"`
}

// SQLiteConfig defines the embedded database location.
type SQLiteConfig struct {
	Path string `json:"path" yaml:"path"`
}

// AuthConfig defines authentication-related configuration
type AuthConfig struct {
	BcryptCost          int    `json:"bcryptCost" yaml:"bcryptCost"`
	MinCredentialLength int    `json:"minCredentialLength" yaml:"minCredentialLength"`
	MaxCredentialLength int    `json:"maxCredentialLength" yaml:"maxCredentialLength"`
	FirstAccountIsAdmin bool   `json:"firstAccountIsAdmin" yaml:"firstAccountIsAdmin"`
	AdminInviteCode     string `json:"adminInviteCode" yaml:"adminInviteCode"`
}

// SessionConfig defines how login sessions are signed and carried.
type SessionConfig struct {
	// Secret signs session tokens. A random secret is generated when empty.
	Secret       string        `json:"secret" yaml:"secret"`
	TTL          time.Duration `json:"ttl" yaml:"ttl"`
	CookieName   string        `json:"cookieName" yaml:"cookieName"`
	CookieSecure bool          `json:"cookieSecure" yaml:"cookieSecure"`
}

// ContentConfig defines folder tree and upload rules.
type ContentConfig struct {
	Namespaces        []string `json:"namespaces" yaml:"namespaces"`
	AllowedExtensions []string `json:"allowedExtensions" yaml:"allowedExtensions"`
	MaxUploadSize     string   `json:"maxUploadSize" yaml:"maxUploadSize"`
	MaxDepth          int      `json:"maxDepth" yaml:"maxDepth"`
}

// MaxUploadBytes parses MaxUploadSize, e.g. "250MB" or "1.5GiB".
func (c *ContentConfig) MaxUploadBytes() (int64, error) {
	size := defaultMaxUploadSize
	if c != nil && strings.TrimSpace(c.MaxUploadSize) != "" {
		size = c.MaxUploadSize
	}

	n, err := humanize.ParseBytes(size)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid content.maxUploadSize %q", size)
	}
	if n == 0 || n > math.MaxInt64 {
		return 0, errors.Errorf("content.maxUploadSize %q out of range", size)
	}

	return int64(n), nil
}

// BlobConfig defines the blob store backend.
type BlobConfig struct {
	// Provider type: "gocloud" for any gocloud.dev bucket URL or "supabase" for Supabase Storage
	Provider string `json:"provider" yaml:"provider"`

	// Bucket URL for the gocloud provider, e.g. mem://, file:///var/lib/lecturehall, s3://bucket?region=eu-west-1
	URL string `json:"url" yaml:"url"`

	SignedURLTTL time.Duration `json:"signedURLTTL" yaml:"signedURLTTL"`

	Supabase SupabaseConfig `json:"supabase" yaml:"supabase"`
}

// SupabaseConfig defines the Supabase Storage connection.
type SupabaseConfig struct {
	URL    string `json:"url" yaml:"url"`
	Key    string `json:"key" yaml:"key"`
	Bucket string `json:"bucket" yaml:"bucket"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: POSTGRES_SSLMODE -> postgres.sslMode (not postgres.sslmode)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

// New loads config.yaml from the working directory or its config folders.
func New() (*Config, error) {
	return Load("config", "../config", "../../config")
}

// Load reads config.yaml from the working directory or one of dirs, applies environment
// overrides and defaults, and validates the result.
func Load(dirs ...string) (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", dirs...)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if cfg.Database.Driver == DriverPostgres {
		if cfg.Postgres == nil {
			return nil, errors.New("postgres configuration is required for the postgres driver")
		}
		// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	if _, err := cfg.Content.MaxUploadBytes(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills every optional section so callers never check for nil.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	if cfg.Database == nil {
		cfg.Database = &DatabaseConfig{}
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = defaultDatabaseDriver
	}

	if cfg.Auth == nil {
		cfg.Auth = &AuthConfig{}
	}
	if cfg.Auth.MinCredentialLength <= 0 {
		cfg.Auth.MinCredentialLength = defaultMinCredentialLen
	}
	if cfg.Auth.MaxCredentialLength <= 0 {
		cfg.Auth.MaxCredentialLength = defaultMaxCredentialLen
	}

	if cfg.Session == nil {
		cfg.Session = &SessionConfig{}
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = defaultSessionCookieName
	}

	if cfg.Content == nil {
		cfg.Content = &ContentConfig{}
	}
	if strings.TrimSpace(cfg.Content.MaxUploadSize) == "" {
		cfg.Content.MaxUploadSize = defaultMaxUploadSize
	}
	if len(cfg.Content.AllowedExtensions) == 0 {
		cfg.Content.AllowedExtensions = []string{".mp3", ".mp4", ".webm"}
	}
	if cfg.Content.MaxDepth <= 0 {
		cfg.Content.MaxDepth = defaultMaxFolderDepth
	}

	if cfg.Blob == nil {
		cfg.Blob = &BlobConfig{}
	}
	if cfg.Blob.Provider == "" {
		cfg.Blob.Provider = defaultBlobProvider
	}
	if cfg.Blob.Provider == BlobProviderGoCloud && cfg.Blob.URL == "" {
		cfg.Blob.URL = defaultBlobURL
	}
	if cfg.Blob.SignedURLTTL <= 0 {
		cfg.Blob.SignedURLTTL = defaultSignedURLTTL
	}
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

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
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
// Example: POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, POSTGRES_REPLICAS_0_USERNAME, POSTGRES_REPLICAS_0_PASSWORD
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			// No more replicas or incomplete configuration.
			break
		}

		replica := postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		}

		replicas = append(replicas, replica)
	}

	return replicas
}
