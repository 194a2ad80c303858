package storage

import (
	"errors"
	"fmt"

	"github.com/PawTalesApp/PawTales/internal/pkg/env"
)

// Config holds object storage configuration for pet photos and generated
// illustrations.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
}

// LoadConfig loads object storage configuration from environment variables.
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
	}

	if config.AccessKeyID == "" {
		return nil, errors.New("S3_ACCESS_KEY_ID is required")
	}
	if config.SecretAccessKey == "" {
		return nil, errors.New("S3_SECRET_ACCESS_KEY is required")
	}
	if config.BucketName == "" {
		return nil, errors.New("S3_BUCKET_NAME is required")
	}

	return config, nil
}

// PhotoKey generates a standardized object key for an uploaded pet photo.
func (c *Config) PhotoKey(petUUID, fileExtension string) string {
	return fmt.Sprintf("photos/%s%s", petUUID, fileExtension)
}

// PortraitKey generates the object key for a generated persona portrait.
func (c *Config) PortraitKey(petUUID string, revision int) string {
	return fmt.Sprintf("portraits/%s/r%d.png", petUUID, revision)
}

// IllustrationKey generates the object key for a generated chapter illustration.
func (c *Config) IllustrationKey(storyUUID string, chapter, revision int) string {
	return fmt.Sprintf("illustrations/%s/ch%02d-r%d.png", storyUUID, chapter, revision)
}
