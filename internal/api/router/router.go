package router

import (
	"net/http"

	"github.com/Freeeeeet/slot_swapper/internal/api/handler"
	"github.com/Freeeeeet/slot_swapper/internal/api/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Setup собирает gin engine со всеми маршрутами /api
func Setup(h *handler.Handler, tokens middleware.TokenParser, users middleware.UserChecker, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authorized := api.Group("")
	authorized.Use(middleware.JWTAuth(tokens, users))
	{
		events := authorized.Group("/events")
		{
			events.GET("", h.Event.ListEvents)
			events.POST("", h.Event.CreateEvent)
			events.GET("/:id", h.Event.GetEvent)
			events.PUT("/:id", h.Event.UpdateEvent)
			events.PATCH("/:id/status", h.Event.SetEventStatus)
			events.DELETE("/:id", h.Event.DeleteEvent)
		}

		swaps := authorized.Group("/swaps")
		{
			swaps.GET("/swappable-slots", h.Swap.ListSwappable)
			swaps.POST("/request", h.Swap.RequestSwap)
			swaps.GET("/requests", h.Swap.ListRequests)
			swaps.GET("/requests/:requestId", h.Swap.GetRequest)
			swaps.POST("/response/:requestId", h.Swap.Respond)
		}

		authorized.GET("/notifications/stream", h.Notification.Stream)
	}

	return r
}
