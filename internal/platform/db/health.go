package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// PingFunc checks that a storage backend is reachable.
type PingFunc func(ctx context.Context) error

// HealthHandler returns a handler for the storage health check endpoint.
// details is optional and is included in the response body when set.
func HealthHandler(backend string, ping PingFunc, details func() interface{}) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		body := map[string]interface{}{
			"backend": backend,
		}
		if details != nil {
			body["details"] = details()
		}

		if ping != nil {
			if err := ping(ctx); err != nil {
				body["status"] = "unhealthy"
				body["error"] = err.Error()
				return c.JSON(http.StatusServiceUnavailable, body)
			}
		}

		body["status"] = "healthy"
		return c.JSON(http.StatusOK, body)
	}
}
