package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"k9aliases/backend/internal/domain"
)

// 上下文键
const (
	ContextUserID       = "userID"
	ContextSessionID    = "sessionID"
	ContextSessionToken = "sessionToken"
)

// Authenticator 根据令牌解析会话
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Session, error)
}

// SessionAuth 会话认证中间件
type SessionAuth struct {
	auth       Authenticator
	cookieName string
	log        *zap.Logger
}

// NewSessionAuth 创建会话认证中间件
func NewSessionAuth(auth Authenticator, cookieName string, log *zap.Logger) *SessionAuth {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionAuth{
		auth:       auth,
		cookieName: cookieName,
		log:        log,
	}
}

// RequireSession 要求有效会话，失败时返回 401
func (sa *SessionAuth) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sa.Token(c)
		if token == "" {
			abortUnauthorized(c, "You must be logged in.")
			return
		}

		session, err := sa.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			sa.log.Debug("session rejected",
				zap.String("ip", c.ClientIP()),
				zap.Error(err),
			)
			abortUnauthorized(c, domain.MessageOf(err))
			return
		}

		c.Set(ContextUserID, session.UserID)
		c.Set(ContextSessionID, session.ID)
		c.Set(ContextSessionToken, token)

		c.Next()
	}
}

// Token 从请求中提取会话令牌：先 Authorization 头，再 Cookie
func (sa *SessionAuth) Token(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	token, err := c.Cookie(sa.cookieName)
	if err == nil && token != "" {
		return token
	}
	return ""
}

// UserID 返回当前请求的用户 ID，未认证时为空
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// SessionToken 返回当前请求使用的会话令牌
func SessionToken(c *gin.Context) string {
	return c.GetString(ContextSessionToken)
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": http.StatusUnauthorized,
		"msg":  msg,
	})
}
