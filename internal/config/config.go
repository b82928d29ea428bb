package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultProfileImage is assigned to every new account until an image is uploaded.
const DefaultProfileImage = "https://www.pphfoundation.ca/wp-content/uploads/2018/05/default-avatar.png"

// Config holds the application configuration.
type Config struct {
	ServerPort   int    `env:"PORT" envDefault:"5000"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./folio.db"`

	// JWTSecret signs session tokens. Required.
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"1h"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"true"`

	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	StorageBackend      string `env:"STORAGE_BACKEND" envDefault:"local"`
	UploadDir           string `env:"UPLOAD_DIR" envDefault:"uploads"`
	MaxUploadBytes      int64  `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`
	DefaultProfileImage string `env:"DEFAULT_PROFILE_IMAGE"`

	S3 S3Config `envPrefix:"S3_"`

	EventRetention  time.Duration `env:"EVENT_RETENTION" envDefault:"720h"`
	JanitorSchedule string        `env:"JANITOR_SCHEDULE" envDefault:"@hourly"`
}

// S3Config configures the S3-compatible profile image backend.
type S3Config struct {
	Bucket          string `env:"BUCKET"`
	Region          string `env:"REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"ENDPOINT"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `env:"USE_PATH_STYLE"`
	PublicBaseURL   string `env:"PUBLIC_BASE_URL"`
}

var (
	ErrMissingSecret  = errors.New("JWT_SECRET must be set")
	ErrUnknownBackend = errors.New("STORAGE_BACKEND must be \"local\" or \"s3\"")
	ErrMissingBucket  = errors.New("S3_BUCKET must be set when STORAGE_BACKEND=s3")
)

// Load loads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	// A missing .env file is normal outside of local development.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}
	if cfg.DefaultProfileImage == "" {
		cfg.DefaultProfileImage = DefaultProfileImage
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingSecret
	}
	switch c.StorageBackend {
	case "local":
	case "s3":
		if c.S3.Bucket == "" {
			return ErrMissingBucket
		}
	default:
		return ErrUnknownBackend
	}
	return nil
}
