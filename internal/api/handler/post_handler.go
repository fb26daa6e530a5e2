package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/pkg/response"
)

type createPostRequest struct {
	Body string `json:"body" binding:"required"`
}

// CreatePost 发布帖子
// @Summary 发布帖子
// @Tags 帖子
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createPostRequest true "内容"
// @Success 201 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.postService.CreatePost(c.Request.Context(), currentUserID(c), req.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, p)
}

// GetPost 查询单条帖子
// @Summary 查询帖子
// @Tags 帖子
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	p, err := h.postService.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, p)
}

// DeletePost 删除帖子，仅作者本人
// @Summary 删除帖子
// @Tags 帖子
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.postService.DeletePost(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

// ListUserPosts 用户主页的帖子
// @Summary 用户帖子列表
// @Tags 帖子
// @Produce json
// @Param nickname path string true "昵称"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=service.PostPage}
// @Router /api/v1/users/{nickname}/posts [get]
func (h *Handler) ListUserPosts(c *gin.Context) {
	userID, ok := h.resolveUser(c)
	if !ok {
		return
	}
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	size, ok := queryInt(c, "page_size", 10)
	if !ok {
		return
	}
	res, err := h.postService.PostsByAuthorPage(c.Request.Context(), userID, page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, res)
}

// Feed 当前用户的时间线（关注对象及自己的帖子）
// @Summary 时间线
// @Tags 帖子
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=service.PostPage}
// @Router /api/v1/feed [get]
func (h *Handler) Feed(c *gin.Context) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	size, ok := queryInt(c, "page_size", 0)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	me := currentUserID(c)
	if _, set := c.GetQuery("page_size"); !set {
		res, err := h.feedService.FeedDefault(ctx, me, page)
		if err != nil {
			writeError(c, err)
			return
		}
		response.Success(c, res)
		return
	}
	res, err := h.feedService.Feed(ctx, me, page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, res)
}

// Search 全文检索帖子
// @Summary 搜索帖子
// @Tags 帖子
// @Produce json
// @Param q query string true "关键词"
// @Param limit query int false "最多条数"
// @Success 200 {object} response.Response
// @Router /api/v1/search [get]
func (h *Handler) Search(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	q := c.Query("q")
	posts, err := h.searchService.Search(c.Request.Context(), q, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"query": q, "list": posts})
}
