package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/cache"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/notify"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/pkg/clock"
	"github.com/d60-Lab/microblog/pkg/logger"
	"github.com/d60-Lab/microblog/pkg/metrics"
)

// FollowNotifier 接收新关注边事件，实现需非阻塞
type FollowNotifier interface {
	Enqueue(ev notify.FollowEvent)
}

// FollowCounts 不含自关注边
type FollowCounts struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

// RelationshipService 关系链服务
type RelationshipService interface {
	Follow(ctx context.Context, followerID, followeeID string) (*model.Follow, error)
	Unfollow(ctx context.Context, followerID, followeeID string) error
	// FollowedIDs 含自己，按 id 升序；未知用户返回空集
	FollowedIDs(ctx context.Context, userID string) ([]string, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error)
	ListFollowers(ctx context.Context, userID string, page, pageSize int) ([]string, error)
	Counts(ctx context.Context, userID string) (*FollowCounts, error)
}

type relationshipService struct {
	db         *gorm.DB
	users      repository.UserRepository
	followRepo repository.FollowRepository
	cache      *cache.FollowingCache
	notifier   FollowNotifier
	clock      clock.Clock
	group      singleflight.Group
}

// NewRelationshipService cache 与 notifier 均可为 nil
func NewRelationshipService(db *gorm.DB, users repository.UserRepository, followRepo repository.FollowRepository, followingCache *cache.FollowingCache, notifier FollowNotifier, clk clock.Clock) RelationshipService {
	return &relationshipService{db: db, users: users, followRepo: followRepo, cache: followingCache, notifier: notifier, clock: clk}
}

func (s *relationshipService) Follow(ctx context.Context, followerID, followeeID string) (*model.Follow, error) {
	if followerID == followeeID {
		return nil, ErrSelfFollowRedundant
	}
	var edge *model.Follow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireUsers(ctx, s.users.WithTx(tx), followerID, followeeID); err != nil {
			return err
		}
		f, err := s.followRepo.WithTx(tx).Create(ctx, followerID, followeeID, s.clock.Now())
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyFollowing
			}
			return err
		}
		edge = f
		return nil
	})
	metrics.FollowOps.WithLabelValues("follow", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, followerID)
	if s.notifier != nil {
		s.notifier.Enqueue(notify.FollowEvent{
			FollowID:   edge.ID,
			FollowerID: edge.FollowerID,
			FolloweeID: edge.FolloweeID,
			CreatedAt:  edge.CreatedAt,
		})
	}
	return edge, nil
}

func (s *relationshipService) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return ErrCannotUnfollowSelf
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireUsers(ctx, s.users.WithTx(tx), followerID, followeeID); err != nil {
			return err
		}
		if err := s.followRepo.WithTx(tx).Delete(ctx, followerID, followeeID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFollowing
			}
			return err
		}
		return nil
	})
	metrics.FollowOps.WithLabelValues("unfollow", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	s.invalidate(ctx, followerID)
	return nil
}

func (s *relationshipService) requireUsers(ctx context.Context, users repository.UserRepository, ids ...string) error {
	for _, id := range ids {
		ok, err := users.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUserNotFound
		}
	}
	return nil
}

// invalidate 缓存失败不影响已提交的写入，下次读取会在 TTL 内自愈
func (s *relationshipService) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		logger.Warn("invalidate following cache failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *relationshipService) FollowedIDs(ctx context.Context, userID string) ([]string, error) {
	if ids, err := s.cache.Get(ctx, userID); err == nil {
		return ids, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		logger.Warn("read following cache failed", zap.String("user_id", userID), zap.Error(err))
	}

	v, err, _ := s.group.Do(userID, func() (interface{}, error) {
		// 先取版本再读库，期间发生的失效会让回填作废
		ver, verErr := s.cache.Version(ctx, userID)
		ids, err := s.followRepo.ListFolloweeIDs(ctx, userID)
		if err != nil {
			return nil, err
		}
		if verErr != nil {
			logger.Warn("read following cache version failed", zap.String("user_id", userID), zap.Error(verErr))
			return ids, nil
		}
		switch err := s.cache.SetIfVersion(ctx, userID, ids, ver); {
		case errors.Is(err, cache.ErrStale):
			logger.Debug("following cache fill skipped, invalidated meanwhile", zap.String("user_id", userID))
		case err != nil:
			logger.Warn("write following cache failed", zap.String("user_id", userID), zap.Error(err))
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	ids := v.([]string)
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

func (s *relationshipService) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	return s.followRepo.Exists(ctx, followerID, followeeID)
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	if page < 1 || pageSize < 1 {
		return nil, ErrInvalidPage
	}
	offset, _, ok := pageWindow(page, pageSize)
	if !ok {
		return []string{}, nil
	}
	items, err := s.followRepo.ListFollowings(ctx, userID, offset, pageSize)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FolloweeID
	}
	return res, nil
}

func (s *relationshipService) ListFollowers(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	if page < 1 || pageSize < 1 {
		return nil, ErrInvalidPage
	}
	offset, _, ok := pageWindow(page, pageSize)
	if !ok {
		return []string{}, nil
	}
	items, err := s.followRepo.ListFollowers(ctx, userID, offset, pageSize)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FollowerID
	}
	return res, nil
}

func (s *relationshipService) Counts(ctx context.Context, userID string) (*FollowCounts, error) {
	followers, err := s.followRepo.CountFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}
	following, err := s.followRepo.CountFollowings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &FollowCounts{Followers: followers, Following: following}, nil
}
