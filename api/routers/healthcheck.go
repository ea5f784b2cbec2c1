package clip_routers

import (
	"github.com/gin-gonic/gin"

	internal_clipstore "github.com/clipperai/internal/store/clipstore"
	healthCheckApi "github.com/clipperai/api/health-check-api"
	"github.com/clipperai/config"
	"github.com/clipperai/pkg/commons"
)

func HealthCheckRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, clips internal_clipstore.Store) {
	logger.Info("Internal HealthCheckRoutes added to engine.")
	apiv1 := engine.Group("")
	hcApi := healthCheckApi.New(cfg, logger, clips)
	{
		apiv1.GET("/readiness/", hcApi.Readiness)
		apiv1.GET("/healthz/", hcApi.Healthz)
	}
}
