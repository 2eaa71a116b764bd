package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

type Config struct {
	Server   ServerConfig
	Artifact ArtifactConfig
	Logger   LoggerConfig
	Database DatabaseConfig
	Variant  string
	// CatalogPath replaces the embedded catalog when set.
	CatalogPath string
}

type ServerConfig struct {
	Port    string
	GinMode string
}

type ArtifactConfig struct {
	Source string
	// Path is empty when the variant default applies.
	Path string
	Name string
}

type LoggerConfig struct {
	Level  string
	Format string
}

type DatabaseConfig struct {
	Enabled bool
	URL     string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")
	v.SetDefault("VARIANT", "compact")
	v.SetDefault("ARTIFACT_SOURCE", SourceFile)
	v.SetDefault("ARTIFACT_PATH", "")
	v.SetDefault("ARTIFACT_NAME", "")
	v.SetDefault("CATALOG_PATH", "")
	v.SetDefault("ENABLE_DB", false)
	v.SetDefault("DATABASE_URL", "")

	// Env
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:    v.GetString("PORT"),
			GinMode: v.GetString("GIN_MODE"),
		},
		Artifact: ArtifactConfig{
			Source: strings.ToLower(v.GetString("ARTIFACT_SOURCE")),
			Path:   v.GetString("ARTIFACT_PATH"),
			Name:   v.GetString("ARTIFACT_NAME"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
		Database: DatabaseConfig{
			Enabled: v.GetBool("ENABLE_DB"),
			URL:     v.GetString("DATABASE_URL"),
		},
		Variant:     v.GetString("VARIANT"),
		CatalogPath: v.GetString("CATALOG_PATH"),
	}

	switch cfg.Artifact.Source {
	case SourceFile:
	case SourcePostgres:
		cfg.Database.Enabled = true
		if cfg.Artifact.Name == "" {
			return nil, fmt.Errorf("ARTIFACT_NAME is required when ARTIFACT_SOURCE=postgres")
		}
	default:
		return nil, fmt.Errorf("ARTIFACT_SOURCE must be %q or %q, got %q", SourceFile, SourcePostgres, cfg.Artifact.Source)
	}

	if cfg.Database.Enabled && cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}

	return cfg, nil
}
