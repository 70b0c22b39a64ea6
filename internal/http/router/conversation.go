package router

import (
	"github.com/gin-gonic/gin"

	"ticketdesk.app/portal/internal/http/handler"
)

func ConversationRouter(router *gin.RouterGroup, conversations *handler.ConversationHandler, messages *handler.MessageHandler) {
	router.POST("", conversations.Create)
	router.GET("", conversations.List)
	router.GET("/:id", conversations.Get)
	router.GET("/:id/events", conversations.Timeline)
	router.GET("/:id/messages", messages.List)
	router.POST("/:id/messages", messages.Send)
}
