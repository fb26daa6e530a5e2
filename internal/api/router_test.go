package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/microblog/internal/api/handler"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/search"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/clock"
	"github.com/d60-Lab/microblog/pkg/database/dbtest"
	"github.com/d60-Lab/microblog/pkg/jwt"
	"github.com/d60-Lab/microblog/pkg/response"
)

const testProviderSecret = "provider-secret"

type testServer struct {
	router *gin.Engine
	clock  *clock.Fake
	worker *service.IndexWorker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := dbtest.New(t)
	clk := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	users := repository.NewUserRepository(db)
	follows := repository.NewFollowRepository(db)
	posts := repository.NewPostRepository(db)
	outbox := repository.NewOutboxRepository(db)
	backend := search.NewSQLBackend(db)
	tokens := jwt.NewManager("test-secret", time.Hour, "microblog-test")

	identity := service.NewIdentityService(db, users, follows, clk)
	h := handler.New(handler.Deps{
		Identity:       identity,
		Relations:      service.NewRelationshipService(db, users, follows, nil, nil, clk),
		Posts:          service.NewPostService(db, users, posts, outbox, clk, 140),
		Feed:           service.NewFeedService(posts, 10),
		Search:         service.NewSearchService(backend, users, posts, 50),
		Blogs:          service.NewBlogService(users, repository.NewBlogRepository(db), clk, 10),
		Tokens:         tokens,
		ProviderSecret: testProviderSecret,
	})
	r := NewRouter(h, Options{
		Mode:           gin.TestMode,
		ServiceName:    "microblog-test",
		Tokens:         tokens,
		Users:          identity,
		PostsPerSecond: 0.001,
		PostBurst:      3,
	})
	return &testServer{
		router: r,
		clock:  clk,
		worker: service.NewIndexWorker(outbox, posts, backend, clk, 1, 100, 10*time.Millisecond, time.Minute),
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}, headers ...string) (int, response.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp response.Response
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w.Code, resp
}

// login 走身份提供方回调，返回令牌和用户 ID
func (s *testServer) login(t *testing.T, email, nickname string) (string, string) {
	t.Helper()
	code, resp := s.do(t, http.MethodPost, "/api/v1/auth/callback", "",
		gin.H{"email": email, "nickname": nickname}, "X-Provider-Secret", testProviderSecret)
	require.Equal(t, http.StatusOK, code, resp.Message)
	data := resp.Data.(map[string]interface{})
	user := data["user"].(map[string]interface{})
	return data["token"].(string), user["id"].(string)
}

func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "unexpected data: %#v", resp.Data)
	return m
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, resp := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, response.CodeSuccess, resp.Code)
}

func TestAuthCallback(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.do(t, http.MethodPost, "/api/v1/auth/callback", "", gin.H{"email": "a@example.com"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, response.CodeUnauthorized, resp.Code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/callback", "",
		gin.H{"email": "not-an-email"}, "X-Provider-Secret", testProviderSecret)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = s.do(t, http.MethodPost, "/api/v1/auth/callback", "",
		gin.H{"email": "a@example.com", "nickname": "alice"}, "X-Provider-Secret", testProviderSecret)
	require.Equal(t, http.StatusOK, code)
	first := dataMap(t, resp)
	assert.Equal(t, true, first["created"])
	assert.NotEmpty(t, first["token"])

	code, resp = s.do(t, http.MethodPost, "/api/v1/auth/callback", "",
		gin.H{"email": "a@example.com", "nickname": "other"}, "X-Provider-Secret", testProviderSecret)
	require.Equal(t, http.StatusOK, code)
	second := dataMap(t, resp)
	assert.Equal(t, false, second["created"])
	assert.Equal(t, "alice", second["user"].(map[string]interface{})["nickname"])
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodGet, "/api/v1/feed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/feed", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	token, _ := s.login(t, "a@example.com", "alice")
	code, resp := s.do(t, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", dataMap(t, resp)["nickname"])
}

func TestFollowFlow(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.login(t, "a@example.com", "alice")
	_, bobID := s.login(t, "b@example.com", "bob")

	code, _ := s.do(t, http.MethodPost, "/api/v1/follows/bob", alice, nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp := s.do(t, http.MethodPost, "/api/v1/follows/bob", alice, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, response.CodeConflict, resp.Code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/follows/alice", alice, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/follows/nobody", alice, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = s.do(t, http.MethodGet, "/api/v1/users/alice/following", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []interface{}{bobID}, dataMap(t, resp)["list"])

	code, resp = s.do(t, http.MethodGet, "/api/v1/users/bob", alice, nil)
	require.Equal(t, http.StatusOK, code)
	profile := dataMap(t, resp)
	assert.Equal(t, true, profile["following"])
	assert.NotContains(t, profile, "email")
	assert.Equal(t, float64(1), profile["counts"].(map[string]interface{})["followers"])

	code, _ = s.do(t, http.MethodDelete, "/api/v1/follows/bob", alice, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodDelete, "/api/v1/follows/bob", alice, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(t, http.MethodDelete, "/api/v1/follows/alice", alice, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/users/alice/followers?page=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/users/alice/followers?page=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPostsFeedAndSearch(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.login(t, "a@example.com", "alice")
	bob, _ := s.login(t, "b@example.com", "bob")

	code, resp := s.do(t, http.MethodPost, "/api/v1/posts", bob, gin.H{"body": "hello from bob"})
	require.Equal(t, http.StatusCreated, code)
	postID := dataMap(t, resp)["id"].(string)

	code, _ = s.do(t, http.MethodPost, "/api/v1/posts", bob, gin.H{"body": "   "})
	assert.Equal(t, http.StatusBadRequest, code)

	// 未关注时 alice 的时间线为空
	code, resp = s.do(t, http.MethodGet, "/api/v1/feed", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, dataMap(t, resp)["items"])

	code, _ = s.do(t, http.MethodPost, "/api/v1/follows/bob", alice, nil)
	require.Equal(t, http.StatusOK, code)
	code, resp = s.do(t, http.MethodGet, "/api/v1/feed?page=1&page_size=5", alice, nil)
	require.Equal(t, http.StatusOK, code)
	items := dataMap(t, resp)["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, postID, items[0].(map[string]interface{})["id"])

	code, resp = s.do(t, http.MethodGet, "/api/v1/feed?page=9", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, dataMap(t, resp)["items"])

	code, resp = s.do(t, http.MethodGet, "/api/v1/feed?page=1000000000000000000", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, dataMap(t, resp)["items"])
	assert.Equal(t, false, dataMap(t, resp)["has_more"])

	_, err := s.worker.ProcessOnce(context.Background())
	require.NoError(t, err)
	code, resp = s.do(t, http.MethodGet, "/api/v1/search?q=bob", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, dataMap(t, resp)["list"], 1)

	code, _ = s.do(t, http.MethodDelete, "/api/v1/posts/"+postID, alice, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodDelete, "/api/v1/posts/"+postID, bob, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/posts/"+postID, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCreatePost_RateLimited(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.login(t, "a@example.com", "alice")

	for i := 0; i < 3; i++ {
		code, _ := s.do(t, http.MethodPost, "/api/v1/posts", token, gin.H{"body": "post"})
		require.Equal(t, http.StatusCreated, code)
	}
	code, resp := s.do(t, http.MethodPost, "/api/v1/posts", token, gin.H{"body": "post"})
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, response.CodeTooMany, resp.Code)
}

func TestUpdateProfile(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.login(t, "a@example.com", "alice")
	s.login(t, "b@example.com", "bob")

	code, resp := s.do(t, http.MethodPut, "/api/v1/me", alice, gin.H{"nickname": "alicia", "about_me": "hi"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alicia", dataMap(t, resp)["nickname"])

	code, _ = s.do(t, http.MethodPut, "/api/v1/me", alice, gin.H{"nickname": "bob"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/users/alice", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/users/alicia", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestBlogsAndNotifications(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.login(t, "a@example.com", "alice")

	code, _ := s.do(t, http.MethodPost, "/api/v1/blogs", alice, gin.H{"title": "t"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/blogs", alice, gin.H{"title": "Title", "content": "Body"})
	require.Equal(t, http.StatusCreated, code)

	code, resp := s.do(t, http.MethodGet, "/api/v1/users/alice/blogs", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, dataMap(t, resp)["items"], 1)

	code, resp = s.do(t, http.MethodGet, "/api/v1/me/notifications", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, dataMap(t, resp)["list"])
}
