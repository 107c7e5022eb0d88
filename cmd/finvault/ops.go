package main

import (
	"database/sql"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"

	"github.com/finvault/finvault/pkg/observability"
)

// opsHandler serves the probe and metrics endpoints on the ops port,
// away from the public API surface
func opsHandler(db *sql.DB, redisClient *redis.Client, metrics *observability.Metrics, metricsEnabled bool) http.Handler {
	router := mux.NewRouter()

	health := observability.NewHealthChecker(db, redisClient)
	router.HandleFunc("/healthz", health.Liveness).Methods("GET")
	router.HandleFunc("/readyz", health.Readiness).Methods("GET")

	if metricsEnabled {
		router.Handle("/metrics", metrics.Handler()).Methods("GET")
	}

	return router
}
