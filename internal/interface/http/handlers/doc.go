// Package handlers contains reusable pieces of the local HTTP API:
// health checking and gin middleware.
//
// # Health Checks
//
// CompositeHealthChecker runs named checks in parallel, each under its own
// timeout:
//
//	checker := handlers.NewCompositeHealthChecker("v1")
//	checker.AddCheck("store", handlers.NewPingCheck(store))
//	checker.AddCheck("redis", handlers.NewPingCheck(redisClient))
//	checker.AddCheck("content", handlers.NewBreakerCheck(httpSource.Breaker()))
//
//	status := checker.Check(ctx)
//
// # Middleware
//
//	r := gin.New()
//	r.Use(
//	    handlers.Recovery(logger),
//	    handlers.RequestID(),
//	    handlers.RequestLogger(logger),
//	    handlers.SecurityHeaders(),
//	)
//	api := r.Group("/api", handlers.NoCache())
package handlers
