// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for EvalHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: backend, mongo_uri, etc.
//   - Environment variables: EVALHUB_BACKEND, EVALHUB_MONGO_URI, etc.
//   - Command-line flags: --backend, --mongo_uri, etc.
var appConfigKeys = []config.AppKey{
	{Name: "backend", Default: "mongo", Desc: "Storage backend: 'mongo' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "evalhub", Desc: "MongoDB database name"},
	{Name: "trash_retention_days", Default: 30, Desc: "Days trashed items are kept before permanent removal (0 disables)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// CoreConfig comes from the shared WAFFLE layer; AppConfig is specific to
// this app. Precedence is flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "EVALHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		Backend:            appValues.String("backend"),
		MongoURI:           appValues.String("mongo_uri"),
		MongoDatabase:      appValues.String("mongo_database"),
		TrashRetentionDays: appValues.Int("trash_retention_days"),
	}
	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// EvalHub validates the backend selection and, for the mongo backend, the
// URI format, so configuration errors surface before any connect attempt.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if appCfg.TrashRetentionDays < 0 {
		return fmt.Errorf("trash_retention_days must be >= 0, got %d", appCfg.TrashRetentionDays)
	}
	switch appCfg.Backend {
	case "memory":
		return nil
	case "mongo":
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown backend %q (expected 'mongo' or 'memory')", appCfg.Backend)
	}
}
