package http

import (
	"github.com/gin-gonic/gin"

	"slidecoach/internal/bootstrap"
	"slidecoach/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	router.Static("/images", app.Store.Root())

	sessionHandler := handler.NewSessionHandler(app.Sessions)
	reviewHandler := handler.NewReviewHandler(app.Orchestrator)

	v1 := router.Group("/api/v1")
	v1.POST("/upload", sessionHandler.Upload)
	v1.GET("/sessions", sessionHandler.Sessions)
	v1.GET("/slides/:sessionId", sessionHandler.Slides)
	v1.POST("/audio", sessionHandler.Audio)

	v1.GET("/transcript", reviewHandler.Transcript)
	v1.POST("/review/start", reviewHandler.StartReview)
	v1.POST("/review/slide", reviewHandler.ReviewSlide)
	v1.GET("/review/summary", reviewHandler.Summary)
	v1.GET("/status", reviewHandler.Status)

	return router
}
