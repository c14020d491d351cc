package health

import (
	"net/http"

	"github.com/pizzabox/pizzabox-backend/api/responses"
	"github.com/pizzabox/pizzabox-backend/pkg/db"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
	pkgredis "github.com/pizzabox/pizzabox-backend/pkg/redis"
)

// Live reports that the process is up.
func Live() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// Ready reports whether the service can reach its backing stores.
func Ready(client *db.Client, redis *pkgredis.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"redis":    "ok",
		}
		healthy := true

		if err := client.Ping(r.Context()); err != nil {
			checks["database"] = err.Error()
			healthy = false
		}
		if err := redis.Ping(r.Context()); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}

		if !healthy {
			logg.Warn(logg.WithFields(r.Context(), map[string]any{"checks": checks}), "readiness check failed")
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, checks)
			return
		}
		responses.WriteSuccess(w, checks)
	}
}
