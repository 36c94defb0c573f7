package app

import (
	"github.com/openshelf/openshelf-backend/internal/db"
	"github.com/openshelf/openshelf-backend/internal/platform/envutil"
	"github.com/openshelf/openshelf-backend/internal/platform/objstore"
)

// Config is the full environment-derived configuration. The S3 sub-config is
// all or nothing: unless every required field is set the object store stays
// disabled and s3:// paths resolve to a misconfiguration error.
type Config struct {
	AppEnv     string
	Port       string
	UploadsDir string

	Postgres db.PostgresConfig
	S3       objstore.Config
}

func (c Config) DevMode() bool { return c.AppEnv != "production" }

func Load() Config {
	return Config{
		AppEnv:     envutil.String("APP_ENV", "development"),
		Port:       envutil.String("PORT", "8080"),
		UploadsDir: envutil.String("UPLOADS_DIR", "./uploads"),
		Postgres: db.PostgresConfig{
			Host:     envutil.String("POSTGRES_HOST", "localhost"),
			Port:     envutil.String("POSTGRES_PORT", "5432"),
			User:     envutil.String("POSTGRES_USER", "postgres"),
			Password: envutil.String("POSTGRES_PASSWORD", ""),
			Name:     envutil.String("POSTGRES_DB", "openshelf"),
		},
		S3: objstore.Config{
			Endpoint:  envutil.String("S3_ENDPOINT", ""),
			AccessKey: envutil.String("S3_ACCESS_KEY", ""),
			SecretKey: envutil.String("S3_SECRET_KEY", ""),
			Bucket:    envutil.String("S3_BUCKET", ""),
			Region:    envutil.String("S3_REGION", "us-east-1"),
			UseSSL:    envutil.Bool("S3_USE_SSL", true),
		},
	}
}
