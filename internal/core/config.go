package core

import (
	"fmt"
	"os"
	"strings"

	"github.com/jo-hoe/goimageindex/internal/backend/thumbnail"
	"github.com/jo-hoe/goimageindex/internal/common"
	"github.com/labstack/gommon/bytes"
	"gopkg.in/yaml.v3"
)

const (
	// NamingOriginal stores uploads under the client supplied filename.
	NamingOriginal = "original"
	// NamingID stores uploads under the generated id plus the original extension.
	NamingID = "id"

	defaultRedisConnection = "redis://localhost:6379/0"
	defaultRedisKey        = "goimageindex:images"
)

type Index struct {
	Type             string `yaml:"type" validate:"oneof=memory sqlite redis"`
	ConnectionString string `yaml:"connectionString"`
	Key              string `yaml:"key"`
}

type Storage struct {
	Type      string `yaml:"type" validate:"oneof=disk minio"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
}

type ServiceConfig struct {
	Port           int     `yaml:"port" validate:"min=0,max=65535"`
	UploadRoute    string  `yaml:"uploadRoute"`
	UploadDir      string  `yaml:"uploadDir" validate:"required"`
	StagingDir     string  `yaml:"stagingDir" validate:"required"`
	ClientDir      string  `yaml:"clientDir"`
	StorageNaming  string  `yaml:"storageNaming" validate:"oneof=original id"`
	MaxUploadSize  string  `yaml:"maxUploadSize"`
	ThumbnailWidth int     `yaml:"thumbnailWidth" validate:"min=1"`
	Index          Index   `yaml:"index"`
	Storage        Storage `yaml:"storage"`
}

// DefaultConfig returns the settings used when no config file is present.
func DefaultConfig() *ServiceConfig {
	return &ServiceConfig{
		Port:           3000,
		UploadRoute:    "/uploads",
		UploadDir:      "uploads",
		StagingDir:     "tmp-uploads",
		ClientDir:      "client/dist",
		StorageNaming:  NamingOriginal,
		ThumbnailWidth: 256,
		Index: Index{
			Type: "memory",
		},
		Storage: Storage{
			Type: "disk",
		},
	}
}

// LoadConfig loads configuration from the specified YAML file. Keys missing
// from the file keep their DefaultConfig value.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	config := DefaultConfig()
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := config.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	return config, nil
}

// Normalize fills backend specific defaults and validates the configuration.
func (config *ServiceConfig) Normalize() error {
	config.UploadRoute = strings.TrimRight(config.UploadRoute, "/")

	switch config.Index.Type {
	case "sqlite":
		if config.Index.ConnectionString == "" {
			config.Index.ConnectionString = ":memory:"
		}
	case "redis":
		if config.Index.ConnectionString == "" {
			config.Index.ConnectionString = defaultRedisConnection
		}
		if config.Index.Key == "" {
			config.Index.Key = defaultRedisKey
		}
	}

	if err := common.ValidateStruct(config); err != nil {
		return err
	}
	if err := validateUploadRoute(config.UploadRoute); err != nil {
		return err
	}
	if err := validateMaxUploadSize(config.MaxUploadSize); err != nil {
		return err
	}
	if config.ThumbnailWidth > thumbnail.MaxWidth {
		return fmt.Errorf("thumbnailWidth must not exceed %d, got %d", thumbnail.MaxWidth, config.ThumbnailWidth)
	}
	return validateStorage(config.Storage)
}

// validateUploadRoute ensures uploads are served below the site root and away from the API
func validateUploadRoute(route string) error {
	if route == "" || !strings.HasPrefix(route, "/") {
		return fmt.Errorf("uploadRoute must start with '/' and must not be the site root, got %q", route)
	}
	if route == "/api" || strings.HasPrefix(route, "/api/") {
		return fmt.Errorf("uploadRoute must not overlap the API, got %q", route)
	}
	return nil
}

// validateMaxUploadSize accepts an empty value (no limit) or a size such as "10M"
func validateMaxUploadSize(size string) error {
	if size == "" {
		return nil
	}
	if _, err := bytes.Parse(size); err != nil {
		return fmt.Errorf("invalid maxUploadSize %q: %w", size, err)
	}
	return nil
}

// validateStorage ensures a bucket store has everything it needs to connect
func validateStorage(storage Storage) error {
	if storage.Type != "minio" {
		return nil
	}
	fields := []struct{ key, value string }{
		{"endpoint", storage.Endpoint},
		{"accessKey", storage.AccessKey},
		{"secretKey", storage.SecretKey},
		{"bucket", storage.Bucket},
	}
	missing := []string{}
	for _, field := range fields {
		if field.value == "" {
			missing = append(missing, field.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("minio storage is missing %s", strings.Join(missing, ", "))
	}
	return nil
}
