package handler

import (
	"crypto/subtle"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/pkg/response"
)

const providerSecretHeader = "X-Provider-Secret"

type callbackRequest struct {
	Email    string `json:"email" binding:"required"`
	Nickname string `json:"nickname"`
}

type tokenResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Created   bool        `json:"created"`
	User      *model.User `json:"user"`
}

// AuthCallback 身份提供方登录回调：首次登录即注册，返回访问令牌
// @Summary 身份提供方回调
// @Tags 认证
// @Accept json
// @Produce json
// @Param X-Provider-Secret header string true "共享密钥"
// @Param request body callbackRequest true "身份信息"
// @Success 200 {object} response.Response{data=tokenResponse}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/callback [post]
func (h *Handler) AuthCallback(c *gin.Context) {
	secret := c.GetHeader(providerSecretHeader)
	if h.providerSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.providerSecret)) != 1 {
		response.Unauthorized(c, "invalid provider secret")
		return
	}
	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, created, err := h.identity.RegisterOrGetUser(c.Request.Context(), req.Email, req.Nickname)
	if err != nil {
		writeError(c, err)
		return
	}
	token, exp, err := h.tokens.Generate(u.ID, u.Nickname)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, tokenResponse{Token: token, ExpiresAt: exp, Created: created, User: u})
}
