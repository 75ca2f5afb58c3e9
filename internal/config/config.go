package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-yaml/yaml"
)

type Config struct {
	AppPort         string `yaml:"appPort"`
	AppBaseURL      string `yaml:"appBaseURL"`
	FrontendBaseURL string `yaml:"frontendBaseURL"`
	CORSOrigins     string `yaml:"corsOrigins"`

	Store    string   `yaml:"store"` // postgres | memory
	Database Database `yaml:"database"`

	JWTSecret     string `yaml:"jwtSecret"`
	JWTExpiresMin int    `yaml:"jwtExpiresMin"`

	FirebaseProjectID string   `yaml:"firebaseProjectID"`
	AdminExternalIDs  []string `yaml:"adminExternalIDs"`

	GoogleClientID string `yaml:"googleClientID"`
	GoogleSecret   string `yaml:"googleClientSecret"`
	GoogleRedirect string `yaml:"googleRedirectURL"`

	Redis         Redis  `yaml:"redis"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	ListingTTL    int    `yaml:"listingCacheTTLSeconds"`

	Cloudinary Cloudinary `yaml:"cloudinary"`
	UploadDir  string     `yaml:"uploadDir"`

	LogLevel      string `yaml:"logLevel"`
	LogFormat     string `yaml:"logFormat"`
	SentryDSN     string `yaml:"sentryDSN"`
	Environment   string `yaml:"environment"`
	TraceEndpoint string `yaml:"traceEndpoint"`

	RateLimitMax       int `yaml:"rateLimitMax"`
	RateLimitWindowSec int `yaml:"rateLimitWindowSeconds"`

	ProposalsAutoReject bool `yaml:"proposalsAutoReject"`
	ReconcileEverySec   int  `yaml:"reconcileEverySeconds"`
}

type Database struct {
	DSN             string `yaml:"dsn"`
	MaxIdleConns    int    `yaml:"maxIdleConns"`
	MaxOpenConns    int    `yaml:"maxOpenConns"`
	ConnMaxLifetime int    `yaml:"connMaxLifetimeMinutes"`
}

type Redis struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Backplane bool   `yaml:"backplane"`
}

func (r Redis) Enabled() bool { return r.Addr != "" }

type Cloudinary struct {
	CloudName string `yaml:"cloudName"`
	APIKey    string `yaml:"apiKey"`
	APISecret string `yaml:"apiSecret"`
	Folder    string `yaml:"folder"`
}

func (c Cloudinary) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.JWTExpiresMin) * time.Minute
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSec) * time.Second
}

func (c Config) IsAdminExternalID(uid string) bool {
	for _, id := range c.AdminExternalIDs {
		if id == uid {
			return true
		}
	}
	return false
}

func defaults() Config {
	return Config{
		AppPort:         "8080",
		FrontendBaseURL: "http://localhost:3000",
		CORSOrigins:     "http://127.0.0.1:3000, http://localhost:3000",
		Store:           "postgres",
		Database: Database{
			MaxIdleConns:    10,
			MaxOpenConns:    50,
			ConnMaxLifetime: 30,
		},
		JWTExpiresMin:      60,
		ListingTTL:         30,
		Cloudinary:         Cloudinary{Folder: "gigconnect-profiles"},
		UploadDir:          "./uploads",
		LogLevel:           "info",
		LogFormat:          "json",
		Environment:        "development",
		RateLimitMax:       30,
		RateLimitWindowSec: 60,
		ReconcileEverySec:  300,
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE and finally the environment.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config file: %w", err)
		}
		err = yaml.NewDecoder(file).Decode(&cfg)
		file.Close()
		if err != nil {
			return Config{}, fmt.Errorf("decode config file: %w", err)
		}
	}

	cfg.AppPort = get("APP_PORT", cfg.AppPort)
	cfg.AppBaseURL = get("APP_BASE_URL", cfg.AppBaseURL)
	cfg.FrontendBaseURL = get("FRONTEND_BASE_URL", cfg.FrontendBaseURL)
	cfg.CORSOrigins = get("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.Store = strings.ToLower(get("STORE", cfg.Store))

	cfg.Database.DSN = get("DB_DSN", cfg.Database.DSN)
	cfg.Database.MaxIdleConns = getInt("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.MaxOpenConns = getInt("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.ConnMaxLifetime = getInt("DB_CONN_MAX_LIFETIME_MIN", cfg.Database.ConnMaxLifetime)

	cfg.JWTSecret = get("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTExpiresMin = getInt("JWT_EXPIRES_MIN", cfg.JWTExpiresMin)

	cfg.FirebaseProjectID = get("FIREBASE_PROJECT_ID", cfg.FirebaseProjectID)
	if v := os.Getenv("ADMIN_EXTERNAL_IDS"); v != "" {
		cfg.AdminExternalIDs = splitList(v)
	}

	cfg.GoogleClientID = get("GOOGLE_CLIENT_ID", cfg.GoogleClientID)
	cfg.GoogleSecret = get("GOOGLE_CLIENT_SECRET", cfg.GoogleSecret)
	cfg.GoogleRedirect = get("GOOGLE_REDIRECT_URL", cfg.GoogleRedirect)

	cfg.Redis.Addr = get("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = get("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.Backplane = getBool("REDIS_BACKPLANE", cfg.Redis.Backplane)
	cfg.MemcachedAddr = get("MEMCACHED_ADDR", cfg.MemcachedAddr)
	cfg.ListingTTL = getInt("LISTING_CACHE_TTL_SEC", cfg.ListingTTL)

	cfg.Cloudinary.CloudName = get("CLOUDINARY_CLOUD_NAME", cfg.Cloudinary.CloudName)
	cfg.Cloudinary.APIKey = get("CLOUDINARY_API_KEY", cfg.Cloudinary.APIKey)
	cfg.Cloudinary.APISecret = get("CLOUDINARY_API_SECRET", cfg.Cloudinary.APISecret)
	cfg.Cloudinary.Folder = get("CLOUDINARY_FOLDER", cfg.Cloudinary.Folder)
	cfg.UploadDir = get("UPLOAD_DIR", cfg.UploadDir)

	cfg.LogLevel = get("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = get("LOG_FORMAT", cfg.LogFormat)
	cfg.SentryDSN = get("SENTRY_DSN", cfg.SentryDSN)
	cfg.Environment = get("APP_ENV", cfg.Environment)
	cfg.TraceEndpoint = get("TRACE_ENDPOINT", cfg.TraceEndpoint)

	cfg.RateLimitMax = getInt("RATE_LIMIT_MAX", cfg.RateLimitMax)
	cfg.RateLimitWindowSec = getInt("RATE_LIMIT_WINDOW_SEC", cfg.RateLimitWindowSec)

	cfg.ProposalsAutoReject = getBool("PROPOSALS_AUTO_REJECT", cfg.ProposalsAutoReject)
	cfg.ReconcileEverySec = getInt("RECONCILE_EVERY_SEC", cfg.ReconcileEverySec)

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing env: JWT_SECRET")
	}
	switch cfg.Store {
	case "postgres":
		if cfg.Database.DSN == "" {
			return Config{}, fmt.Errorf("missing env: DB_DSN")
		}
	case "memory":
	default:
		return Config{}, fmt.Errorf("unknown STORE %q", cfg.Store)
	}
	return cfg, nil
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getBool(k string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
