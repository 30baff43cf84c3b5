package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvFiles are loaded in order; values already present in the environment
// (including ones set by an earlier file) are never overridden.
var EnvFiles = []string{".env.local", ".env"}

type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	AppPort  string `envconfig:"APP_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// CORSOrigin is echoed in Access-Control-Allow-Origin.
	CORSOrigin string `envconfig:"CORS_ORIGIN" default:"*"`

	// DatabaseURL selects the backend by scheme: mongodb://, mongodb+srv://,
	// postgres://, postgresql:// or memory://.
	DatabaseURL string `envconfig:"MONGODB_URI"`
	DBName      string `envconfig:"DB_NAME" default:"catalog"`

	CloudinaryCloudName string `envconfig:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `envconfig:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `envconfig:"CLOUDINARY_API_SECRET"`
	UploadFolder        string `envconfig:"UPLOAD_FOLDER" default:"products"`
	UploadMaxBytes      int64  `envconfig:"UPLOAD_MAX_BYTES" default:"5242880"`

	LoadedFiles []string `ignored:"true"`
}

func Load() (*Config, error) {
	loaded := loadEnvFiles(EnvFiles...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	cfg.LoadedFiles = loaded

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("MONGODB_URI is not set; define it in the environment or in .env.local")
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.UploadMaxBytes)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func loadEnvFiles(files ...string) []string {
	var loaded []string
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			continue
		}
		loaded = append(loaded, f)
	}
	return loaded
}
