package healthcheck_api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	internal_clipstore "github.com/clipperai/internal/store/clipstore"
	"github.com/clipperai/config"
	"github.com/clipperai/pkg/commons"
)

type healthCheckApi struct {
	cfg    *config.AppConfig
	logger commons.Logger
	clips  internal_clipstore.Store
}

func New(cfg *config.AppConfig, logger commons.Logger, clips internal_clipstore.Store) *healthCheckApi {
	return &healthCheckApi{cfg: cfg, logger: logger, clips: clips}
}

// Healthz reports process liveness only.
func (api *healthCheckApi) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"name":    api.cfg.Name,
		"version": api.cfg.Version,
	})
}

// Readiness additionally checks that the clip store answers.
func (api *healthCheckApi) Readiness(c *gin.Context) {
	if _, err := api.clips.GetAll(c.Request.Context()); err != nil {
		api.logger.Errorf("healthcheck: clip store not ready: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
