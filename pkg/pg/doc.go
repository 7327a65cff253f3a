// Package pg wraps the pgx/v5 driver with the small amount of plumbing the
// notification stores need: an environment-driven pool Config, a Connect
// helper that retries while the database comes up, a health probe, and error
// classifiers that let repositories translate driver errors into domain
// sentinels.
//
// Usage:
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		panic(err)
//	}
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		panic(err)
//	}
//	defer pool.Close()
package pg
