// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	"github.com/dalemusser/evalhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// trashSweeper is started in Startup and stopped in Shutdown. Nil when the
// retention window is zero or the backend cannot purge.
var trashSweeper *workers.TrashSweep

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	logger.Info("evalhub starting", zap.String("backend", appCfg.Backend))

	if appCfg.TrashRetentionDays > 0 {
		if purger, ok := deps.Tree.(workers.Purger); ok {
			retention := time.Duration(appCfg.TrashRetentionDays) * 24 * time.Hour
			trashSweeper = workers.NewTrashSweep(purger, logger, 1*time.Hour, retention)
			trashSweeper.Start()
		}
	}
	return nil
}
