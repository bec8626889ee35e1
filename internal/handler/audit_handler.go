// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nursing-archive-go/internal/repository"
	"nursing-archive-go/internal/service"
	"nursing-archive-go/pkg/log"
)

// AuditHandler 负责处理档案访问审计查询的 API 请求。
type AuditHandler struct {
	auditService service.AuditService
}

// NewAuditHandler 创建一个新的 AuditHandler 实例。
func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// History 返回指定客户的访问事件历史，按时间倒序。
// 查询参数：startDate、endDate、accessType。只读，不产生新的审计事件。
func (h *AuditHandler) History(c *gin.Context) {
	clientID, ok := parseIDParam(c, "clientID")
	if !ok {
		return
	}

	filter := repository.AccessFilter{
		AccessType: c.Query("accessType"),
	}
	if startStr := c.Query("startDate"); startStr != "" {
		start, err := parseDate(startStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 startDate"})
			return
		}
		filter.StartDate = &start
	}
	if endStr := c.Query("endDate"); endStr != "" {
		end, err := parseDate(endStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 endDate"})
			return
		}
		if len(endStr) == len("2006-01-02") {
			end = end.Add(24*time.Hour - time.Nanosecond)
		}
		filter.EndDate = &end
	}

	rows, err := h.auditService.History(c.Request.Context(), clientID, filter)
	if err != nil {
		log.Error("History: 审计查询失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}
