// Package database opens the PostgreSQL database a test environment
// publishes, the way the application under test would.
//
// The configuration is read from the "database" section, so after the
// connection registry has been applied to a Viper instance the DSN points
// at the running container:
//
//	reg.Apply(v)
//	var cfg database.Config
//	_ = v.UnmarshalKey("database", &cfg)
//	db, err := database.Open(ctx, cfg, log)
//
// Open retries with a linear backoff while the server is still coming up.
// Errors are translated to AppError by FromDatabase.
package database
