package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/pkg/response"
)

type createBlogRequest struct {
	Title   string `json:"title" binding:"required,max=200"`
	Content string `json:"content" binding:"required"`
}

// CreateBlog 发表长文
// @Summary 发表长文
// @Tags 长文
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createBlogRequest true "长文"
// @Success 201 {object} response.Response{data=model.Blog}
// @Failure 400 {object} response.Response
// @Router /api/v1/blogs [post]
func (h *Handler) CreateBlog(c *gin.Context) {
	var req createBlogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	b, err := h.blogService.CreateBlog(c.Request.Context(), currentUserID(c), req.Title, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, b)
}

// ListBlogs 某用户的长文
// @Summary 长文列表
// @Tags 长文
// @Produce json
// @Param nickname path string true "昵称"
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response{data=service.BlogPage}
// @Router /api/v1/users/{nickname}/blogs [get]
func (h *Handler) ListBlogs(c *gin.Context) {
	userID, ok := h.resolveUser(c)
	if !ok {
		return
	}
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	res, err := h.blogService.ListBlogs(c.Request.Context(), userID, page)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, res)
}
