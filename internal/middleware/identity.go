// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"github.com/gin-gonic/gin"
)

// UserKey 是操作者标识在 Gin 上下文中的键。
const UserKey = "user"

// headerUser 是上游网关完成认证后注入的身份头。
const headerUser = "X-User"

// Identity 从请求头提取操作者标识放入上下文。
// 认证本身由上游（Azure AD 网关）完成，服务只信任转发的身份头；
// 头缺失时记为 system，便于内部任务直接调用。
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.GetHeader(headerUser)
		if user == "" {
			user = "system"
		}
		c.Set(UserKey, user)
		c.Next()
	}
}
