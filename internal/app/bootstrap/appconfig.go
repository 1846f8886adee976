// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (ports, TLS, logging
// level, timeouts); AppConfig is everything specific to EvalHub. Values come
// from environment variables, configuration files, or command-line flags,
// loaded in LoadConfig.
type AppConfig struct {
	// Storage backend selection: "mongo" or "memory". The memory backend
	// exists for local development; it loses everything on restart.
	Backend string

	// MongoDB connection configuration (used when Backend is "mongo").
	MongoURI      string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase string // Database name within MongoDB

	// TrashRetentionDays controls how long trashed files and folders are
	// kept before the background sweeper removes them permanently. Zero
	// disables the sweeper, so trashed items are kept forever.
	TrashRetentionDays int
}
