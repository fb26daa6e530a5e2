package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/cache"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/notify"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/search"
	"github.com/d60-Lab/microblog/pkg/clock"
	"github.com/d60-Lab/microblog/pkg/database/dbtest"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.FollowEvent
}

func (n *recordingNotifier) Enqueue(ev notify.FollowEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) all() []notify.FollowEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.FollowEvent(nil), n.events...)
}

type env struct {
	db       *gorm.DB
	clock    *clock.Fake
	notifier *recordingNotifier
	outbox   repository.OutboxRepository
	users    repository.UserRepository
	follows  repository.FollowRepository
	postRepo repository.PostRepository
	backend  *search.SQLBackend

	identity IdentityService
	rel      RelationshipService
	posts    PostService
	feed     FeedService
	search   SearchService
	blogs    BlogService
	worker   *IndexWorker
}

func newEnv(t *testing.T) *env {
	return newEnvWithCache(t, nil)
}

func newEnvWithCache(t *testing.T, followingCache *cache.FollowingCache) *env {
	t.Helper()
	db := dbtest.New(t)
	clk := clock.NewFake(epoch)
	users := repository.NewUserRepository(db)
	follows := repository.NewFollowRepository(db)
	posts := repository.NewPostRepository(db)
	outbox := repository.NewOutboxRepository(db)
	backend := search.NewSQLBackend(db)
	notifier := &recordingNotifier{}

	return &env{
		db:       db,
		clock:    clk,
		notifier: notifier,
		outbox:   outbox,
		users:    users,
		follows:  follows,
		postRepo: posts,
		backend:  backend,
		identity: NewIdentityService(db, users, follows, clk),
		rel:      NewRelationshipService(db, users, follows, followingCache, notifier, clk),
		posts:    NewPostService(db, users, posts, outbox, clk, 140),
		feed:     NewFeedService(posts, 10),
		search:   NewSearchService(backend, users, posts, 50),
		blogs:    NewBlogService(users, repository.NewBlogRepository(db), clk, 2),
		worker:   NewIndexWorker(outbox, posts, backend, clk, 1, 100, 10*time.Millisecond, time.Minute),
	}
}

func (e *env) register(t *testing.T, email, nickname string) *model.User {
	t.Helper()
	u, created, err := e.identity.RegisterOrGetUser(context.Background(), email, nickname)
	require.NoError(t, err)
	require.True(t, created)
	return u
}

func (e *env) post(t *testing.T, author *model.User, body string) *model.Post {
	t.Helper()
	p, err := e.posts.CreatePost(context.Background(), author.ID, body)
	require.NoError(t, err)
	return p
}

func (e *env) drainIndex(t *testing.T) {
	t.Helper()
	for {
		n, err := e.worker.ProcessOnce(context.Background())
		require.NoError(t, err)
		if n == 0 {
			return
		}
	}
}

func postIDs(posts []*model.Post) []string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}
