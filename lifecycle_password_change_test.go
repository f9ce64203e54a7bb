package identity_test

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	identity "github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle_ChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newLifecycleFixture(t, nil)
	signed := f.signup(t, "change@example.com", "old-pass1")

	f.clock.Advance(time.Second)

	res, err := f.lifecycle.ChangePassword(ctx, identity.ChangePasswordMessage{
		PrincipalID:     signed.Principal.ID,
		CurrentPassword: "old-pass1",
		Password:        "new-pass1",
		PasswordConfirm: "new-pass1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	assert.NotEqual(t, signed.Token, res.Token)

	_, _, err = f.gate.Authenticate(ctx, signed.Token)
	assert.ErrorIs(t, err, identity.ErrStaleSession)
	assert.True(t, identity.IsStaleSession(err))

	principal, _, err := f.gate.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, signed.Principal.ID, principal.ID)

	_, err = f.lifecycle.Login(ctx, identity.LoginMessage{Email: "change@example.com", Password: "old-pass1"})
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	_, err = f.lifecycle.Login(ctx, identity.LoginMessage{Email: "change@example.com", Password: "new-pass1"})
	assert.NoError(t, err)
}

func TestLifecycle_ChangePasswordWithinSameSecond(t *testing.T) {
	ctx := context.Background()
	f := newLifecycleFixture(t, nil)

	f.clock.Advance(200 * time.Millisecond)
	signed := f.signup(t, "subsecond@example.com", "old-pass1")

	f.clock.Advance(500 * time.Millisecond)
	res, err := f.lifecycle.ChangePassword(ctx, identity.ChangePasswordMessage{
		PrincipalID:     signed.Principal.ID,
		CurrentPassword: "old-pass1",
		Password:        "new-pass1",
		PasswordConfirm: "new-pass1",
	})
	require.NoError(t, err)

	_, _, err = f.gate.Authenticate(ctx, signed.Token)
	assert.ErrorIs(t, err, identity.ErrStaleSession)

	_, _, err = f.gate.Authenticate(ctx, res.Token)
	assert.NoError(t, err)
}

func TestLifecycle_ChangePasswordClearsPendingReset(t *testing.T) {
	ctx := context.Background()
	f := newLifecycleFixture(t, nil)
	signed := f.signup(t, "pending@example.com", "old-pass1")

	secret := requestReset(t, f, "pending@example.com")

	_, err := f.lifecycle.ChangePassword(ctx, identity.ChangePasswordMessage{
		PrincipalID:     signed.Principal.ID,
		CurrentPassword: "old-pass1",
		Password:        "new-pass1",
		PasswordConfirm: "new-pass1",
	})
	require.NoError(t, err)

	_, err = f.lifecycle.ConfirmPasswordReset(ctx, identity.ConfirmPasswordResetMessage{
		Secret:          secret,
		Password:        "hijack-pass1",
		PasswordConfirm: "hijack-pass1",
	})
	assert.ErrorIs(t, err, identity.ErrInvalidOrExpiredToken)
}

func TestLifecycle_ChangePasswordFailures(t *testing.T) {
	ctx := context.Background()
	f := newLifecycleFixture(t, nil)
	signed := f.signup(t, "fail@example.com", "old-pass1")

	tests := []struct {
		name  string
		msg   identity.ChangePasswordMessage
		check func(t *testing.T, err error)
	}{
		{
			name: "wrong current password",
			msg: identity.ChangePasswordMessage{
				PrincipalID:     signed.Principal.ID,
				CurrentPassword: "nope-nope",
				Password:        "new-pass1",
				PasswordConfirm: "new-pass1",
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
			},
		},
		{
			name: "unknown principal",
			msg: identity.ChangePasswordMessage{
				PrincipalID:     uuid.New(),
				CurrentPassword: "old-pass1",
				Password:        "new-pass1",
				PasswordConfirm: "new-pass1",
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, identity.ErrUnauthenticated)
			},
		},
		{
			name: "confirmation mismatch",
			msg: identity.ChangePasswordMessage{
				PrincipalID:     signed.Principal.ID,
				CurrentPassword: "old-pass1",
				Password:        "new-pass1",
				PasswordConfirm: "new-pass2",
			},
			check: func(t *testing.T, err error) {
				assert.True(t, goerrors.IsValidation(err))
			},
		},
		{
			name: "too short",
			msg: identity.ChangePasswordMessage{
				PrincipalID:     signed.Principal.ID,
				CurrentPassword: "old-pass1",
				Password:        "short",
				PasswordConfirm: "short",
			},
			check: func(t *testing.T, err error) {
				assert.True(t, goerrors.IsValidation(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.lifecycle.ChangePassword(ctx, tt.msg)
			require.Error(t, err)
			assert.Nil(t, res)
			tt.check(t, err)
		})
	}

	_, err := f.lifecycle.Login(ctx, identity.LoginMessage{Email: "fail@example.com", Password: "old-pass1"})
	assert.NoError(t, err, "failed changes leave the password untouched")
}
