package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/internal/api/middleware"
	"github.com/d60-Lab/microblog/internal/notify"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/jwt"
	"github.com/d60-Lab/microblog/pkg/response"
)

// NotificationReader 读取用户最近收到的关注通知
type NotificationReader interface {
	List(ctx context.Context, userID string, limit int64) ([]notify.FollowEvent, error)
}

// Deps 构造 Handler 所需的服务
type Deps struct {
	Identity      service.IdentityService
	Relations     service.RelationshipService
	Posts         service.PostService
	Feed          service.FeedService
	Search        service.SearchService
	Blogs         service.BlogService
	Tokens        *jwt.Manager
	Notifications NotificationReader // 可为 nil
	// ProviderSecret 身份提供方回调时携带的共享密钥
	ProviderSecret string
}

type Handler struct {
	identity       service.IdentityService
	relService     service.RelationshipService
	postService    service.PostService
	feedService    service.FeedService
	searchService  service.SearchService
	blogService    service.BlogService
	tokens         *jwt.Manager
	notifications  NotificationReader
	providerSecret string
}

func New(d Deps) *Handler {
	return &Handler{
		identity:       d.Identity,
		relService:     d.Relations,
		postService:    d.Posts,
		feedService:    d.Feed,
		searchService:  d.Search,
		blogService:    d.Blogs,
		tokens:         d.Tokens,
		notifications:  d.Notifications,
		providerSecret: d.ProviderSecret,
	}
}

// Health 存活检查
// @Summary 健康检查
// @Tags 系统
// @Success 200 {object} response.Response
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// writeError 按领域错误分类映射 HTTP 状态
func writeError(c *gin.Context, err error) {
	switch service.KindOf(err) {
	case service.KindNotFound:
		response.NotFound(c, err.Error())
	case service.KindForbidden:
		response.Forbidden(c, err.Error())
	case service.KindConflict:
		response.Conflict(c, err.Error())
	case service.KindInvalidInput, service.KindSelfReference:
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

// queryInt 读取正整数查询参数，缺省时返回 def
func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		response.BadRequest(c, key+" must be an integer")
		return 0, false
	}
	return v, true
}

func currentUserID(c *gin.Context) string { return middleware.GetUserID(c) }

// resolveUser 把路径里的昵称解析为用户 ID
func (h *Handler) resolveUser(c *gin.Context) (string, bool) {
	u, err := h.identity.GetByNickname(c.Request.Context(), c.Param("nickname"))
	if err != nil {
		writeError(c, err)
		return "", false
	}
	return u.ID, true
}
