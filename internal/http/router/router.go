package router

import (
	"github.com/gin-gonic/gin"

	"ticketdesk.app/portal/core/config"
	"ticketdesk.app/portal/internal/http/handler"
	"ticketdesk.app/portal/internal/http/handler/webhook"
	"ticketdesk.app/portal/internal/http/middleware"
	"ticketdesk.app/portal/internal/service"
	"ticketdesk.app/portal/internal/store"
)

type RouterConfig struct {
	Chatwoot    config.ChatwootConfig
	AdminAPIKey string
}

func SetupRoutes(router *gin.Engine, services *service.Services, stores *store.Stores, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	webhookHandler := webhook.NewChatwootWebhookHandler(services.Conversations(), services.Sync(), stores.WebhookDeliveries(), cfg.Chatwoot)
	router.POST("/webhook", webhookHandler.HandleEvent)

	v1 := router.Group("/api/v1")
	{
		conversationHandler := handler.NewConversationHandler(services.Conversations())
		messageHandler := handler.NewMessageHandler(services.Conversations(), services.Messages())
		syncHandler := handler.NewSyncHandler(services.Conversations(), services.Sync())

		conversations := v1.Group("/conversations")
		conversations.Use(middleware.RequireSession(stores.Sessions()))
		ConversationRouter(conversations, conversationHandler, messageHandler)

		// The listener authenticates with the admin key; a live browser
		// client confirms optimistic updates with its session.
		sync := v1.Group("/conversations")
		sync.Use(middleware.RequireAdminAPIKeyOrSession(cfg.AdminAPIKey, stores.Sessions()))
		SyncRouter(sync, syncHandler)
	}
}
