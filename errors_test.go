package identity_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid credentials", identity.ErrInvalidCredentials, http.StatusUnauthorized},
		{"stale session", identity.ErrStaleSession, http.StatusUnauthorized},
		{"expired token", identity.ErrExpiredToken, http.StatusUnauthorized},
		{"forbidden", identity.ErrForbidden, http.StatusForbidden},
		{"not found", identity.ErrNotFound, http.StatusNotFound},
		{"reset token", identity.ErrInvalidOrExpiredToken, http.StatusBadRequest},
		{"email taken", identity.ErrEmailTaken, http.StatusBadRequest},
		{"delivery", identity.ErrDeliveryFailed, http.StatusBadGateway},
		{"conflict", identity.ErrResetTokenConsumed, http.StatusConflict},
		{"category only", goerrors.New("nope", goerrors.CategoryAuthz), http.StatusForbidden},
		{"wrapped keeps status", goerrors.Wrap(identity.ErrNotFound, goerrors.CategoryInternal, "lookup"), http.StatusNotFound},
		{"fiber error", fiber.NewError(fiber.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, identity.ErrorStatus(tt.err))
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, identity.IsUnauthenticated(identity.ErrStaleSession))
	assert.True(t, identity.IsUnauthenticated(identity.ErrInvalidCredentials))
	assert.False(t, identity.IsUnauthenticated(identity.ErrForbidden))

	assert.True(t, identity.IsStaleSession(identity.ErrStaleSession))
	assert.False(t, identity.IsStaleSession(identity.ErrExpiredToken))

	assert.True(t, identity.IsTokenExpiredError(identity.ErrExpiredToken))
	assert.True(t, identity.IsMalformedError(identity.ErrInvalidToken))
	assert.True(t, identity.IsInvalidCredentials(identity.ErrInvalidCredentials))
	assert.True(t, identity.IsForbidden(identity.ErrForbidden))

	assert.False(t, identity.IsStaleSession(nil))
	assert.False(t, identity.IsStaleSession(errors.New("plain")))
}

func TestErrorsAreDistinct(t *testing.T) {
	all := []error{
		identity.ErrInvalidCredentials,
		identity.ErrUnauthenticated,
		identity.ErrInvalidToken,
		identity.ErrExpiredToken,
		identity.ErrStaleSession,
		identity.ErrForbidden,
		identity.ErrNotFound,
		identity.ErrInvalidOrExpiredToken,
		identity.ErrDeliveryFailed,
		identity.ErrEmailTaken,
	}

	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}
