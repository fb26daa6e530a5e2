package api

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/d60-Lab/microblog/docs"
	"github.com/d60-Lab/microblog/internal/api/handler"
	"github.com/d60-Lab/microblog/internal/api/middleware"
	"github.com/d60-Lab/microblog/pkg/jwt"
	"github.com/d60-Lab/microblog/pkg/logger"
	"github.com/d60-Lab/microblog/pkg/metrics"
)

// Options 路由装配参数
type Options struct {
	Mode           string
	ServiceName    string
	Tokens         *jwt.Manager
	Users          middleware.LastSeenToucher
	PostsPerSecond float64
	PostBurst      int
}

// NewRouter 注册全部路由
func NewRouter(h *handler.Handler, opts Options) *gin.Engine {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	r := gin.New()
	r.Use(
		gin.Recovery(),
		sentrygin.New(sentrygin.Options{Repanic: true}),
		otelgin.Middleware(opts.ServiceName),
		logger.GinLogger(),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})),
	)

	r.GET("/health", h.Health)
	r.GET("/metrics", metrics.Handler())
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	auth := middleware.Auth(opts.Tokens, opts.Users)
	optional := middleware.OptionalAuth(opts.Tokens, opts.Users)
	postLimiter := middleware.NewRateLimiter(opts.PostsPerSecond, opts.PostBurst)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/callback", h.AuthCallback)

		v1.GET("/users/:nickname", optional, h.GetUser)
		v1.GET("/users/:nickname/followers", h.ListFollowers)
		v1.GET("/users/:nickname/following", h.ListFollowing)
		v1.GET("/users/:nickname/posts", h.ListUserPosts)
		v1.GET("/users/:nickname/blogs", h.ListBlogs)

		v1.GET("/posts/:id", h.GetPost)
		v1.GET("/search", h.Search)
	}

	authed := v1.Group("", auth)
	{
		authed.GET("/me", h.Me)
		authed.PUT("/me", h.UpdateProfile)
		authed.GET("/me/notifications", h.Notifications)

		authed.POST("/follows/:nickname", h.Follow)
		authed.DELETE("/follows/:nickname", h.Unfollow)

		authed.POST("/posts", postLimiter.Middleware(), h.CreatePost)
		authed.DELETE("/posts/:id", h.DeletePost)
		authed.GET("/feed", h.Feed)

		authed.POST("/blogs", h.CreateBlog)
	}
	return r
}
