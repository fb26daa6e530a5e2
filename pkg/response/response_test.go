package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, fn func(c *gin.Context)) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	fn(c)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestSuccess(t *testing.T) {
	w, resp := run(t, func(c *gin.Context) { Success(c, gin.H{"a": 1}) })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, map[string]interface{}{"a": float64(1)}, resp.Data)
}

func TestErrorHelpers(t *testing.T) {
	cases := []struct {
		fn     func(c *gin.Context)
		status int
		code   int
	}{
		{func(c *gin.Context) { BadRequest(c, "bad") }, http.StatusBadRequest, CodeBadRequest},
		{func(c *gin.Context) { Unauthorized(c, "who") }, http.StatusUnauthorized, CodeUnauthorized},
		{func(c *gin.Context) { Forbidden(c, "no") }, http.StatusForbidden, CodeForbidden},
		{func(c *gin.Context) { NotFound(c, "gone") }, http.StatusNotFound, CodeNotFound},
		{func(c *gin.Context) { Conflict(c, "dup") }, http.StatusConflict, CodeConflict},
		{func(c *gin.Context) { TooManyRequests(c, "slow") }, http.StatusTooManyRequests, CodeTooMany},
	}
	for _, tc := range cases {
		w, resp := run(t, tc.fn)
		assert.Equal(t, tc.status, w.Code)
		assert.Equal(t, tc.code, resp.Code)
		assert.Nil(t, resp.Data)
	}
}

func TestInternalError_HidesCause(t *testing.T) {
	w, resp := run(t, func(c *gin.Context) { InternalError(c, errors.New("db exploded")) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, CodeInternalError, resp.Code)
	assert.NotContains(t, resp.Message, "db exploded")
}
