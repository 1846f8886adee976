// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/evalhub/internal/storage/memstore"
	"github.com/dalemusser/evalhub/internal/storage/mongostore"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectDB builds the storage backend selected by configuration. For the
// mongo backend it connects the client and verifies the connection with a
// ping; the memory backend needs no connection.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	if appCfg.Backend == "memory" {
		logger.Warn("using in-memory storage backend; data is lost on restart")
		return DBDeps{Tree: memstore.New()}, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(appCfg.MongoURI))
	if err != nil {
		return DBDeps{}, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return DBDeps{}, err
	}
	db := client.Database(appCfg.MongoDatabase)
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase))

	return DBDeps{
		Tree:                 mongostore.New(db),
		EvalHubMongoClient:   client,
		EvalHubMongoDatabase: db,
	}, nil
}

// EnsureSchema sets up indexes or schema as needed.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if ms, ok := deps.Tree.(*mongostore.Store); ok {
		if err := ms.EnsureIndexes(ctx); err != nil {
			logger.Error("index bootstrap failed", zap.Error(err))
			return err
		}
	}
	return nil
}
