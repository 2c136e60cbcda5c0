package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	intconfig "fleetcore/internal/config"
	intdb "fleetcore/internal/db"

	"github.com/gin-gonic/gin"
)

var (
	routerMu sync.RWMutex
	router   *gin.Engine
)

// SetRouter stores the active gin engine for later inspection (e.g., /api/routes).
func SetRouter(r *gin.Engine) {
	routerMu.Lock()
	defer routerMu.Unlock()
	router = r
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "fleetcore berjalan"})
}

func DBCheck(c *gin.Context) {
	db := intconfig.DB
	if db == nil {
		respondError(c, http.StatusInternalServerError, "db_unavailable", "database belum terhubung", nil)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	var vehicles int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vehicles").Scan(&vehicles); err != nil {
		respondError(c, http.StatusInternalServerError, "db_error", "gagal query ke database", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "koneksi database OK",
		"driver":      string(intdb.CurrentDialect()),
		"vehicles_db": vehicles,
	})
}

func Routes(c *gin.Context) {
	routerMu.RLock()
	r := router
	routerMu.RUnlock()
	if r == nil {
		respondError(c, http.StatusServiceUnavailable, "router_not_ready", "router belum siap", nil)
		return
	}

	routes := r.Routes()
	out := make([]gin.H, 0, len(routes))
	for _, rt := range routes {
		out = append(out, gin.H{
			"method":  rt.Method,
			"path":    rt.Path,
			"handler": rt.Handler,
		})
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}
