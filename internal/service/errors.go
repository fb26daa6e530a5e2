package service

import "errors"

// Kind 错误分类，HTTP 层据此映射状态码
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindInvalidInput
	KindSelfReference
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	case KindSelfReference:
		return "self_reference_rejected"
	default:
		return "unknown"
	}
}

// Error 领域错误
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

var (
	ErrUserNotFound = newError(KindNotFound, "user not found")
	ErrPostNotFound = newError(KindNotFound, "post not found")
	// ErrNotFollowing 取消关注时边不存在，归入 NotFound
	ErrNotFollowing = newError(KindNotFound, "not following")

	ErrForbidden = newError(KindForbidden, "forbidden")

	ErrAlreadyFollowing     = newError(KindConflict, "already following")
	ErrNicknameTaken        = newError(KindConflict, "nickname already taken")
	ErrRegistrationConflict = newError(KindConflict, "registration conflict, please retry")

	ErrEmptyBody       = newError(KindInvalidInput, "post body is empty")
	ErrBodyTooLong     = newError(KindInvalidInput, "post body is too long")
	ErrInvalidPage     = newError(KindInvalidInput, "page must be >= 1 and page size > 0")
	ErrInvalidEmail    = newError(KindInvalidInput, "invalid email")
	ErrInvalidNickname = newError(KindInvalidInput, "invalid nickname")
	ErrAboutMeTooLong  = newError(KindInvalidInput, "about me is too long")
	ErrInvalidBlog     = newError(KindInvalidInput, "blog title and content are required")

	ErrSelfFollowRedundant = newError(KindSelfReference, "cannot follow yourself")
	ErrCannotUnfollowSelf  = newError(KindSelfReference, "cannot unfollow yourself")
)

// KindOf 返回 err 链上第一个领域错误的分类
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
