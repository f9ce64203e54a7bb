package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"go.opentelemetry.io/otel/trace"
)

// ChangePassword checks the current password, stores the new one and starts
// a new session. Sessions issued before the change become stale.
func (l *Lifecycle) ChangePassword(ctx context.Context, msg ChangePasswordMessage) (*AuthResult, error) {
	var result *AuthResult

	err := l.run(ctx, "identity.password.change", func(ctx context.Context, span trace.Span) error {
		principal, err := l.store.FindByID(ctx, msg.PrincipalID)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrUnauthenticated
			}
			return err
		}

		span.SetAttributes(principalAttrs(principal)...)

		if !l.hasher.Verify(msg.CurrentPassword, principal.PasswordHash) {
			return ErrInvalidCredentials
		}

		if err := msg.Validate(); err != nil {
			return validationError(err)
		}

		result, err = l.rotatePassword(msg.Password, func(changes PrincipalChanges) (*Principal, error) {
			return l.store.Update(ctx, principal.ID, changes)
		})
		if err != nil {
			return err
		}

		l.recordActivity(ctx, ActivityEvent{
			EventType:   ActivityEventPasswordChanged,
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
