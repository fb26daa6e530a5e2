package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/jwt"
	"github.com/d60-Lab/microblog/pkg/logger"
	"github.com/d60-Lab/microblog/pkg/response"
)

const (
	UserIDKey     = "user_id"
	NicknameKey   = "nickname"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// LastSeenToucher 每次认证请求刷新最近访问时间
type LastSeenToucher interface {
	TouchLastSeen(ctx context.Context, userID string) error
}

// Auth 校验 Bearer 令牌；失败即 401
func Auth(tokens *jwt.Manager, users LastSeenToucher) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, tokens, users) {
			return
		}
		c.Next()
	}
}

// OptionalAuth 带令牌时解析身份，不带时按匿名放行
func OptionalAuth(tokens *jwt.Manager, users LastSeenToucher) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(AuthHeaderKey) == "" {
			c.Next()
			return
		}
		if !authenticate(c, tokens, users) {
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, tokens *jwt.Manager, users LastSeenToucher) bool {
	header := c.GetHeader(AuthHeaderKey)
	if header == "" {
		response.Unauthorized(c, "missing authorization header")
		return false
	}
	if !strings.HasPrefix(header, BearerPrefix) {
		response.Unauthorized(c, "invalid authorization format")
		return false
	}
	claims, err := tokens.Validate(strings.TrimPrefix(header, BearerPrefix))
	if err != nil {
		response.Unauthorized(c, err.Error())
		return false
	}
	if err := users.TouchLastSeen(c.Request.Context(), claims.UserID); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.Unauthorized(c, "unknown user")
			return false
		}
		logger.Warn("touch last seen failed", zap.String("user_id", claims.UserID), zap.Error(err))
	}
	c.Set(UserIDKey, claims.UserID)
	c.Set(NicknameKey, claims.Nickname)
	return true
}

// GetUserID 未认证时返回空串
func GetUserID(c *gin.Context) string {
	if id, ok := c.Get(UserIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
