package config

import (
	"errors"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds the client's runtime configuration.
type Config struct {
	Env string

	Server ServerConfig
	Log    LogConfig
	Chart  ChartConfig
	Export ExportConfig
}

// ServerConfig locates the student-records backend. No request timeout is
// configured on purpose: failures are only those the transport surfaces.
type ServerConfig struct {
	URL       string
	APIPrefix string
}

type LogConfig struct {
	Level  string
	Format string
}

// ChartConfig controls where fetched grade-distribution images are written.
type ChartConfig struct {
	Dir string
}

// ExportConfig selects the default roster export format (csv or pdf).
type ExportConfig struct {
	Format string
	Dir    string
}

// Load reads configuration from the environment with .env overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Server = ServerConfig{
		URL:       strings.TrimRight(v.GetString("SERVER_URL"), "/"),
		APIPrefix: v.GetString("API_PREFIX"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Chart = ChartConfig{
		Dir: v.GetString("CHART_DIR"),
	}

	cfg.Export = ExportConfig{
		Format: strings.ToLower(v.GetString("EXPORT_FORMAT")),
		Dir:    v.GetString("EXPORT_DIR"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("SERVER_URL", "http://localhost:5000")
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("CHART_DIR", ".")

	v.SetDefault("EXPORT_FORMAT", "csv")
	v.SetDefault("EXPORT_DIR", ".")
}
