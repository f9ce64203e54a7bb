package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"go.opentelemetry.io/otel/trace"
)

// Signup creates a principal with RoleUser and starts a session. msg.Role
// is ignored.
func (l *Lifecycle) Signup(ctx context.Context, msg SignupMessage) (*AuthResult, error) {
	var result *AuthResult

	err := l.run(ctx, "identity.signup", func(ctx context.Context, span trace.Span) error {
		msg.Email = NormalizeEmail(msg.Email)

		if err := msg.Validate(); err != nil {
			return validationError(err)
		}

		digest, err := l.hasher.Hash(msg.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		principal, err := l.store.Create(ctx, &Principal{
			Name:         msg.Name,
			Email:        msg.Email,
			PasswordHash: digest,
			Role:         RoleUser,
			Active:       true,
		})
		if err != nil {
			return err
		}

		span.SetAttributes(principalAttrs(principal)...)

		if result, err = l.startSession(principal); err != nil {
			return err
		}

		l.recordActivity(ctx, ActivityEvent{
			EventType:   ActivityEventSignup,
			PrincipalID: principal.ID.String(),
			Email:       principal.Email,
		})

		return nil
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}
