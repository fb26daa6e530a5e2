package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(ErrUserNotFound))
	assert.Equal(t, KindNotFound, KindOf(ErrNotFollowing))
	assert.Equal(t, KindForbidden, KindOf(ErrForbidden))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("follow: %w", ErrAlreadyFollowing)))
	assert.Equal(t, KindInvalidInput, KindOf(ErrEmptyBody))
	assert.Equal(t, KindSelfReference, KindOf(ErrCannotUnfollowSelf))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "self_reference_rejected", KindSelfReference.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
