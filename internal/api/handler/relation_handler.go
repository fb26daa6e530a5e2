package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/pkg/response"
)

// Follow 关注用户
// @Summary 关注用户
// @Tags 关系链
// @Produce json
// @Security BearerAuth
// @Param nickname path string true "被关注者昵称"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/follows/{nickname} [post]
func (h *Handler) Follow(c *gin.Context) {
	target, ok := h.resolveUser(c)
	if !ok {
		return
	}
	edge, err := h.relService.Follow(c.Request.Context(), currentUserID(c), target)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, edge)
}

// Unfollow 取消关注
// @Summary 取消关注
// @Tags 关系链
// @Produce json
// @Security BearerAuth
// @Param nickname path string true "被关注者昵称"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/follows/{nickname} [delete]
func (h *Handler) Unfollow(c *gin.Context) {
	target, ok := h.resolveUser(c)
	if !ok {
		return
	}
	if err := h.relService.Unfollow(c.Request.Context(), currentUserID(c), target); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

// ListFollowing 查询某用户关注的人
// @Summary 查询关注列表
// @Tags 关系链
// @Param nickname path string true "昵称"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/users/{nickname}/following [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	h.listRelations(c, h.relService.ListFollowing)
}

// ListFollowers 查询某用户的粉丝
// @Summary 查询粉丝列表
// @Tags 关系链
// @Param nickname path string true "昵称"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/users/{nickname}/followers [get]
func (h *Handler) ListFollowers(c *gin.Context) {
	h.listRelations(c, h.relService.ListFollowers)
}

func (h *Handler) listRelations(c *gin.Context, list func(ctx context.Context, userID string, page, pageSize int) ([]string, error)) {
	userID, ok := h.resolveUser(c)
	if !ok {
		return
	}
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	pageSize, ok := queryInt(c, "page_size", 10)
	if !ok {
		return
	}
	ids, err := list(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": ids})
}
