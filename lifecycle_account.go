package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Me returns the active principal for id without credential fields
func (l *Lifecycle) Me(ctx context.Context, id uuid.UUID) (*Principal, error) {
	var out *Principal

	err := l.run(ctx, "identity.me", func(ctx context.Context, span trace.Span) error {
		principal, err := l.store.FindByID(ctx, id)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrUnauthenticated
			}
			return err
		}
		out = principal.Scrubbed()
		return nil
	})

	return out, err
}

// GetPrincipal looks up any active principal by id
func (l *Lifecycle) GetPrincipal(ctx context.Context, id uuid.UUID) (*Principal, error) {
	var out *Principal

	err := l.run(ctx, "identity.principal.get", func(ctx context.Context, span trace.Span) error {
		principal, err := l.store.FindByID(ctx, id)
		if err != nil {
			return err
		}
		out = principal.Scrubbed()
		return nil
	})

	return out, err
}

// DeactivateAccount soft deletes the principal. Its email stays reserved
// and its sessions fail authentication from now on.
func (l *Lifecycle) DeactivateAccount(ctx context.Context, id uuid.UUID) error {
	return l.run(ctx, "identity.deactivate", func(ctx context.Context, span trace.Span) error {
		inactive := false
		principal, err := l.store.Update(ctx, id, PrincipalChanges{
			Active:          &inactive,
			ClearResetToken: true,
		})
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrUnauthenticated
			}
			return err
		}

		span.SetAttributes(principalAttrs(principal)...)

		l.recordActivity(ctx, ActivityEvent{
			EventType:   ActivityEventDeactivated,
			PrincipalID: principal.ID.String(),
			Email:       principal.Email,
		})

		return nil
	})
}
