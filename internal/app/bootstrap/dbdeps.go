// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/evalhub/internal/storage"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
// Tree is the storage backend every store is built on; the Mongo fields are
// nil when the memory backend is selected.
type DBDeps struct {
	Tree                 storage.Backend
	EvalHubMongoClient   *mongo.Client
	EvalHubMongoDatabase *mongo.Database
}
