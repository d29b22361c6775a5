package v1

import (
	"github.com/gin-gonic/gin"

	"jan-server/services/newsletter-api/internal/interfaces/httpserver/handlers"
)

func registerNewsletterRoutes(router gin.IRoutes, handler *handlers.NewsletterHandler) {
	router.POST("/newsletters", handler.Publish)
	router.GET("/newsletters/:issue_id", handler.GetIssue)
	router.GET("/deliveries/queue", handler.QueueDepth)
}
