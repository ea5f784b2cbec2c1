package clip_routers

import (
	"github.com/gin-gonic/gin"

	clipApi "github.com/clipperai/api/clip-api/api"
	internal_session "github.com/clipperai/internal/session"
	internal_clipstore "github.com/clipperai/internal/store/clipstore"
	"github.com/clipperai/config"
	"github.com/clipperai/pkg/commons"
)

func ClipApiRoute(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, clips internal_clipstore.Store) {
	apiv1 := engine.Group("v1/clips")
	api := clipApi.NewClipApi(cfg, logger, clips)
	{
		apiv1.GET("/", api.GetAll)
		apiv1.POST("/", api.Create)
		apiv1.GET("/:clipId", api.Get)
		apiv1.PATCH("/:clipId", api.Update)
		apiv1.DELETE("/:clipId", api.Delete)
	}
}

func SessionApiRoute(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, session *internal_session.Session) {
	apiv1 := engine.Group("v1/session")
	api := clipApi.NewSessionApi(cfg, logger, session)
	{
		apiv1.GET("/", api.State)
		apiv1.GET("/level", api.Level)
		apiv1.POST("/start", api.Start)
		apiv1.POST("/stop", api.Stop)
		apiv1.POST("/append/:clipId", api.Append)
		apiv1.POST("/new", api.NewClip)
		apiv1.POST("/force-retry", api.ForceRetry)
		apiv1.POST("/resubmit/:clipId", api.Resubmit)
		apiv1.POST("/reset", api.Reset)
	}
}

func TranscriptionApiRoute(
	cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger,
	session *internal_session.Session,
	retry internal_session.TranscriptionEngine,
) {
	apiv1 := engine.Group("v1/transcription")
	api := clipApi.NewTranscriptionApi(cfg, logger, session, retry)
	{
		apiv1.POST("/", api.Submit)
		apiv1.GET("/state", api.RetryState)
	}
}
