package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/pkg/clock"
	"github.com/d60-Lab/microblog/pkg/logger"
)

const (
	maxNicknameLen = 64
	// 预留数字后缀的长度
	nicknameBaseLen     = maxNicknameLen - 6
	maxRegisterAttempts = 5
)

// IdentityService 用户身份
type IdentityService interface {
	// RegisterOrGetUser 按邮箱查找用户，不存在则分配唯一昵称并与自关注边一起创建；bool 表示是否新建
	RegisterOrGetUser(ctx context.Context, email, proposedNickname string) (*model.User, bool, error)
	RenameUser(ctx context.Context, userID, nickname string) error
	UpdateProfile(ctx context.Context, userID, nickname, aboutMe string) (*model.User, error)
	TouchLastSeen(ctx context.Context, userID string) error
	GetByID(ctx context.Context, userID string) (*model.User, error)
	GetByNickname(ctx context.Context, nickname string) (*model.User, error)
}

type identityService struct {
	db       *gorm.DB
	users    repository.UserRepository
	follows  repository.FollowRepository
	clock    clock.Clock
	validate *validator.Validate
}

func NewIdentityService(db *gorm.DB, users repository.UserRepository, follows repository.FollowRepository, clk clock.Clock) IdentityService {
	return &identityService{db: db, users: users, follows: follows, clock: clk, validate: validator.New()}
}

type registration struct {
	Email string `validate:"required,email,max=120"`
}

type profile struct {
	Nickname string `validate:"required,max=64,excludesall=/"`
	AboutMe  string `validate:"max=140"`
}

func (s *identityService) RegisterOrGetUser(ctx context.Context, email, proposedNickname string) (*model.User, bool, error) {
	email = strings.TrimSpace(email)
	if err := s.validate.Struct(registration{Email: email}); err != nil {
		return nil, false, ErrInvalidEmail
	}

	if u, err := s.users.GetByEmail(ctx, email); err == nil {
		return u, false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	base := nicknameBase(proposedNickname, email)
	for attempt := 1; attempt <= maxRegisterAttempts; attempt++ {
		var created *model.User
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			users := s.users.WithTx(tx)
			nickname, err := uniqueNickname(ctx, users, base)
			if err != nil {
				return err
			}
			now := s.clock.Now()
			u := &model.User{
				ID:        uuid.New().String(),
				Nickname:  nickname,
				Email:     email,
				LastSeen:  now,
				CreatedAt: now,
			}
			if err := users.Create(ctx, u); err != nil {
				return err
			}
			if _, err := s.follows.WithTx(tx).Create(ctx, u.ID, u.ID, now); err != nil {
				return err
			}
			created = u
			return nil
		})
		if err == nil {
			logger.Info("user registered", zap.String("user_id", created.ID), zap.String("nickname", created.Nickname))
			return created, true, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, false, err
		}

		// 同一邮箱并发注册，另一方已经成功
		if u, gerr := s.users.GetByEmail(ctx, email); gerr == nil {
			return u, false, nil
		}
		logger.Debug("nickname allocation raced, retrying", zap.String("base", base), zap.Int("attempt", attempt))
	}
	return nil, false, ErrRegistrationConflict
}

// nicknameBase 取昵称提示，空时退回邮箱本地部分
func nicknameBase(hint, email string) string {
	base := strings.Join(strings.Fields(hint), "")
	if base == "" {
		base = email
		if i := strings.IndexByte(email, '@'); i > 0 {
			base = email[:i]
		}
	}
	base = strings.ReplaceAll(base, "/", "")
	if utf8.RuneCountInString(base) > nicknameBaseLen {
		base = string([]rune(base)[:nicknameBaseLen])
	}
	if base == "" {
		base = "user"
	}
	return base
}

// uniqueNickname 依次尝试 base, base2, base3 ... 直到未被占用
func uniqueNickname(ctx context.Context, users repository.UserRepository, base string) (string, error) {
	candidate := base
	for n := 2; ; n++ {
		taken, err := users.NicknameTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(n)
	}
}

func (s *identityService) RenameUser(ctx context.Context, userID, nickname string) error {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	_, err = s.UpdateProfile(ctx, userID, nickname, u.AboutMe)
	return err
}

func (s *identityService) UpdateProfile(ctx context.Context, userID, nickname, aboutMe string) (*model.User, error) {
	nickname = strings.TrimSpace(nickname)
	if strings.ContainsFunc(nickname, unicode.IsSpace) {
		return nil, ErrInvalidNickname
	}
	if err := s.validate.Struct(profile{Nickname: nickname, AboutMe: aboutMe}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Field() == "AboutMe" {
			return nil, ErrAboutMeTooLong
		}
		return nil, ErrInvalidNickname
	}

	var updated *model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		u, err := users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if u.Nickname != nickname {
			other, err := users.GetByNickname(ctx, nickname)
			if err == nil && other.ID != u.ID {
				return ErrNicknameTaken
			}
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}
		if u.Nickname == nickname && u.AboutMe == aboutMe {
			updated = u
			return nil
		}
		if err := users.UpdateProfile(ctx, userID, nickname, aboutMe); err != nil {
			return err
		}
		u.Nickname, u.AboutMe = nickname, aboutMe
		updated = u
		return nil
	})
	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrUserNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return nil, ErrNicknameTaken
	default:
		return nil, err
	}
}

func (s *identityService) TouchLastSeen(ctx context.Context, userID string) error {
	if err := s.users.TouchLastSeen(ctx, userID, s.clock.Now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *identityService) GetByID(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *identityService) GetByNickname(ctx context.Context, nickname string) (*model.User, error) {
	u, err := s.users.GetByNickname(ctx, nickname)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}
