package identity

import (
	"context"
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"go.opentelemetry.io/otel/trace"
)

// RequestPasswordReset stores a new reset token for email and mails the
// plaintext secret. A failed delivery clears the stored token and returns
// ErrDeliveryFailed.
func (l *Lifecycle) RequestPasswordReset(ctx context.Context, msg RequestPasswordResetMessage) error {
	return l.run(ctx, "identity.password_reset.request", func(ctx context.Context, span trace.Span) error {
		msg.Email = NormalizeEmail(msg.Email)

		if err := msg.Validate(); err != nil {
			return validationError(err)
		}

		principal, err := l.store.FindByEmail(ctx, msg.Email)
		if err != nil {
			if goerrors.IsNotFound(err) {
				if l.conceal {
					return nil
				}
				return ErrNotFound
			}
			return err
		}

		span.SetAttributes(principalAttrs(principal)...)

		secret, hash, expiresAt, err := l.resets.Generate()
		if err != nil {
			return err
		}

		if _, err := l.store.Update(ctx, principal.ID, PrincipalChanges{
			ResetTokenHash:      &hash,
			ResetTokenExpiresAt: &expiresAt,
		}); err != nil {
			return err
		}

		if err := l.mailer.Send(ctx, l.resetEmail(principal.Email, secret)); err != nil {
			l.logger.Error("password reset delivery failed for %s: %v", principal.ID, err)
			l.rollbackReset(ctx, principal)
			l.recordActivity(ctx, ActivityEvent{
				EventType:   ActivityEventPasswordResetDelivery,
				PrincipalID: principal.ID.String(),
				Email:       principal.Email,
			})
			return ErrDeliveryFailed
		}

		l.recordActivity(ctx, ActivityEvent{
			EventType:   ActivityEventPasswordResetRequest,
			PrincipalID: principal.ID.String(),
			Email:       principal.Email,
			Metadata:    map[string]any{"expires_at": expiresAt},
		})

		return nil
	})
}

// rollbackReset runs detached from ctx so a timed out send still clears the token
func (l *Lifecycle) rollbackReset(ctx context.Context, principal *Principal) {
	rollbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	if _, err := l.store.Update(rollbackCtx, principal.ID, PrincipalChanges{ClearResetToken: true}); err != nil {
		l.logger.Error("failed to clear reset token for %s: %v", principal.ID, err)
	}
}

func (l *Lifecycle) resetEmail(to, secret string) Email {
	url := fmt.Sprintf("%s/%s", l.resetURLBase, secret)
	minutes := int(l.resets.TTL().Minutes())

	return Email{
		To:      to,
		Subject: fmt.Sprintf("Your password reset token (valid for %d minutes)", minutes),
		Text: fmt.Sprintf(
			"Someone asked to reset the password for this account.\n\n"+
				"Send a POST request with your new password and passwordConfirm to:\n%s\n\n"+
				"The link expires in %d minutes. If this wasn't you, ignore this email.\n",
			url, minutes,
		),
	}
}

// ConfirmPasswordReset consumes a reset secret and sets a new password.
// Wrong, consumed and expired secrets fail with ErrInvalidOrExpiredToken.
func (l *Lifecycle) ConfirmPasswordReset(ctx context.Context, msg ConfirmPasswordResetMessage) (*AuthResult, error) {
	var result *AuthResult

	err := l.run(ctx, "identity.password_reset.confirm", func(ctx context.Context, span trace.Span) error {
		if msg.Secret == "" {
			return ErrInvalidOrExpiredToken
		}

		hash := HashSecret(msg.Secret)

		principal, err := l.store.FindByResetTokenHash(ctx, hash)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrInvalidOrExpiredToken
			}
			return err
		}

		if principal.ResetTokenHash == nil || principal.ResetTokenExpiresAt == nil {
			return ErrInvalidOrExpiredToken
		}

		if !l.resets.Match(msg.Secret, *principal.ResetTokenHash, *principal.ResetTokenExpiresAt) {
			if l.resets.Expired(*principal.ResetTokenExpiresAt) {
				l.expireReset(ctx, principal, hash)
			}
			return ErrInvalidOrExpiredToken
		}

		if err := msg.Validate(); err != nil {
			return validationError(err)
		}

		span.SetAttributes(principalAttrs(principal)...)

		result, err = l.rotatePassword(msg.Password, func(changes PrincipalChanges) (*Principal, error) {
			updated, err := l.store.ConsumeResetToken(ctx, principal.ID, hash, changes)
			if errors.Is(err, ErrResetTokenConsumed) {
				return nil, ErrInvalidOrExpiredToken
			}
			return updated, err
		})
		if err != nil {
			return err
		}

		l.recordActivity(ctx, ActivityEvent{
			EventType:   ActivityEventPasswordResetSuccess,
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

func (l *Lifecycle) expireReset(ctx context.Context, principal *Principal, hash string) {
	_, err := l.store.ConsumeResetToken(ctx, principal.ID, hash, PrincipalChanges{})
	if err != nil && !errors.Is(err, ErrResetTokenConsumed) {
		l.logger.Warn("failed to clear expired reset token for %s: %v", principal.ID, err)
	}
}
