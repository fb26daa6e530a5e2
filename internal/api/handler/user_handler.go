package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/response"
)

// profileResponse 公开资料，不含邮箱
type profileResponse struct {
	ID        string                `json:"id"`
	Nickname  string                `json:"nickname"`
	AboutMe   string                `json:"about_me"`
	LastSeen  time.Time             `json:"last_seen"`
	CreatedAt time.Time             `json:"created_at"`
	Counts    *service.FollowCounts `json:"counts"`
	Following *bool                 `json:"following,omitempty"`
}

// GetUser 用户主页资料
// @Summary 查询用户资料
// @Tags 用户
// @Produce json
// @Param nickname path string true "昵称"
// @Success 200 {object} response.Response{data=profileResponse}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{nickname} [get]
func (h *Handler) GetUser(c *gin.Context) {
	ctx := c.Request.Context()
	u, err := h.identity.GetByNickname(ctx, c.Param("nickname"))
	if err != nil {
		writeError(c, err)
		return
	}
	counts, err := h.relService.Counts(ctx, u.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	resp := profileResponse{
		ID:        u.ID,
		Nickname:  u.Nickname,
		AboutMe:   u.AboutMe,
		LastSeen:  u.LastSeen,
		CreatedAt: u.CreatedAt,
		Counts:    counts,
	}
	if me := currentUserID(c); me != "" && me != u.ID {
		ok, err := h.relService.IsFollowing(ctx, me, u.ID)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		resp.Following = &ok
	}
	response.Success(c, resp)
}

// Me 当前登录用户
// @Summary 当前用户
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=model.User}
// @Router /api/v1/me [get]
func (h *Handler) Me(c *gin.Context) {
	u, err := h.identity.GetByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, u)
}

type updateProfileRequest struct {
	Nickname string `json:"nickname" binding:"required"`
	AboutMe  string `json:"about_me"`
}

// UpdateProfile 修改昵称与简介
// @Summary 修改资料
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body updateProfileRequest true "资料"
// @Success 200 {object} response.Response{data=model.User}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/me [put]
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.identity.UpdateProfile(c.Request.Context(), currentUserID(c), req.Nickname, req.AboutMe)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, u)
}

// Notifications 最近的新粉丝通知
// @Summary 关注通知
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Param limit query int false "条数" default(50)
// @Success 200 {object} response.Response
// @Router /api/v1/me/notifications [get]
func (h *Handler) Notifications(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}
	if h.notifications == nil {
		response.Success(c, gin.H{"list": []struct{}{}})
		return
	}
	list, err := h.notifications.List(c.Request.Context(), currentUserID(c), int64(limit))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}
