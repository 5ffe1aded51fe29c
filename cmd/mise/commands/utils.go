package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"miseagent"
	"miseagent/app"
	"miseagent/tools/storage"
)

// buildApp loads configuration from the environment and wires the application.
func buildApp(ctx context.Context) (*app.App, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, app.Options{})
}

// seedApp fills the store for userID from a JSON file or an s3://bucket/key
// object. An empty location is a no-op.
func seedApp(ctx context.Context, a *app.App, location, userID string) error {
	if location == "" {
		return nil
	}
	src, err := seedSource(ctx, location)
	if err != nil {
		return err
	}
	if err := storage.SeedStore(ctx, src, a.Store, userID); err != nil {
		return fmt.Errorf("seed store: %w", err)
	}
	slog.Info("SETUP: Seeded store", "from", location, "user_id", userID)
	return nil
}

func seedSource(ctx context.Context, location string) (storage.Source, error) {
	bucket, key, ok := parseS3URI(location)
	if !ok {
		return storage.NewFileSource(location), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return storage.NewS3Source(s3.NewFromConfig(awsCfg), bucket, key), nil
}

// parseS3URI splits s3://bucket/key. ok is false for anything else.
func parseS3URI(location string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(location, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// openCoordinationLog creates ./logs/<time>.<model>.json and a file logger
// writing to it. Call the returned func to flush and close.
func openCoordinationLog(model string) (*miseagent.FileCoordinationLogger, func() error, error) {
	path := miseagent.NewCoordinationLogFilePath(model)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create coordination log: %w", err)
	}
	logger := miseagent.NewFileCoordinationLogger(f)
	slog.Info("SETUP: Writing coordination log", "path", path)

	closeFn := func() error {
		flushErr := logger.Flush()
		if err := f.Close(); err != nil && flushErr == nil {
			return err
		}
		return flushErr
	}
	return logger, closeFn, nil
}
