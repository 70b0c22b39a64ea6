package router

import (
	"github.com/gin-gonic/gin"

	"ticketdesk.app/portal/internal/http/handler"
)

func SyncRouter(router *gin.RouterGroup, handler *handler.SyncHandler) {
	router.POST("/:id/sync", handler.Sync)
}
