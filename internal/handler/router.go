// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"github.com/gin-gonic/gin"

	"nursing-archive-go/internal/middleware"
)

// RegisterRoutes 把档案管线的全部路由挂到给定的 Gin 引擎上。
func RegisterRoutes(r *gin.Engine, archive *ArchiveHandler, category *CategoryHandler, audit *AuditHandler) {
	api := r.Group("/api/nursing-archive")
	api.Use(middleware.Identity())
	{
		api.GET("/categories", category.ListActive)

		document := api.Group("/document")
		{
			document.GET("/:documentID", archive.Get)
			document.GET("/:documentID/download", archive.Download)
			document.PUT("/:documentID", archive.Update)
			document.DELETE("/:documentID", archive.Delete)
		}

		api.GET("/:clientID", archive.List)
		api.POST("/:clientID/upload", archive.Upload)
		api.GET("/:clientID/search", archive.Search)
		api.GET("/:clientID/audit", audit.History)
	}
}
