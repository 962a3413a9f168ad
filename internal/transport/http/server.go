package http

import (
	"github.com/gin-gonic/gin"

	"knowledge-assistant/internal/bootstrap"
	"knowledge-assistant/internal/transport/http/handler"
	"knowledge-assistant/internal/transport/http/middleware"
)

func NewRouter(a *bootstrap.App) *gin.Engine {
	gin.SetMode(a.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.CORS())
	router.MaxMultipartMemory = 16 << 20

	strict := a.Config.App.StrictErrors
	healthHandler := handler.NewHealthHandler(
		a.Config.App.Name,
		a.Config.App.Env,
		a.StartedAt,
		a.Pipeline.IndexedChunks,
		a.DependencyChecks(),
	)
	askHandler := handler.NewAskHandler(a.Ask, a.Pipeline, strict)
	uploadHandler := handler.NewUploadHandler(a.Ingest, strict)

	router.GET("/", healthHandler.Root)
	router.GET("/healthz", healthHandler.Check)
	router.POST("/ask", askHandler.Ask)
	router.POST("/upload", uploadHandler.Upload)
	router.GET("/documents", askHandler.Documents)

	return router
}
