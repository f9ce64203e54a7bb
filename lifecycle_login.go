package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"go.opentelemetry.io/otel/trace"
)

// Login verifies credentials. Unknown emails, inactive principals and wrong
// passwords all fail with ErrInvalidCredentials.
func (l *Lifecycle) Login(ctx context.Context, msg LoginMessage) (*AuthResult, error) {
	var result *AuthResult

	err := l.run(ctx, "identity.login", func(ctx context.Context, span trace.Span) error {
		msg.Email = NormalizeEmail(msg.Email)

		if err := msg.Validate(); err != nil {
			return validationError(err)
		}

		principal, err := l.store.FindByEmail(ctx, msg.Email)
		if err != nil {
			if !goerrors.IsNotFound(err) {
				return err
			}
			l.verifyUnknown(msg.Password)
			l.loginFailed(ctx, msg.Email, "")
			return ErrInvalidCredentials
		}

		if !principal.Active || !l.hasher.Verify(msg.Password, principal.PasswordHash) {
			l.loginFailed(ctx, msg.Email, principal.ID.String())
			return ErrInvalidCredentials
		}

		span.SetAttributes(principalAttrs(principal)...)

		if result, err = l.startSession(principal); err != nil {
			return err
		}

		l.recordActivity(ctx, ActivityEvent{
			EventType:   ActivityEventLoginSuccess,
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

func (l *Lifecycle) loginFailed(ctx context.Context, email, principalID string) {
	l.logger.Debug("login failed for %s", email)
	l.recordActivity(ctx, ActivityEvent{
		EventType:   ActivityEventLoginFailure,
		PrincipalID: principalID,
		Email:       email,
	})
}
