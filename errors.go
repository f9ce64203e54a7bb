package identity

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeValidation            = "VALIDATION_ERROR"
	TextCodeUnauthenticated       = "UNAUTHENTICATED"
	TextCodeStaleSession          = "STALE_SESSION"
	TextCodeForbidden             = "FORBIDDEN"
	TextCodeNotFound              = "NOT_FOUND"
	TextCodeInvalidOrExpiredToken = "TOKEN_INVALID_OR_EXPIRED"
	TextCodeDeliveryFailed        = "DELIVERY_FAILED"
	TextCodeEmailTaken            = "EMAIL_TAKEN"
	TextCodeResetTokenConsumed    = "RESET_TOKEN_CONSUMED"
)

// Errors are returned as-is so callers can match them with errors.Is.
var (
	// ErrNoEmptyString is returned when hashing an empty password
	ErrNoEmptyString = goerrors.New("password can't be an empty string", goerrors.CategoryValidation).
				WithTextCode(goerrors.TextCodeEmptyPassword).
				WithCode(http.StatusBadRequest)

	ErrValidation = goerrors.New("invalid input", goerrors.CategoryValidation).
			WithTextCode(TextCodeValidation).
			WithCode(http.StatusBadRequest)

	ErrPasswordMismatch = goerrors.New("passwords are not the same", goerrors.CategoryValidation).
				WithTextCode(TextCodeValidation).
				WithCode(http.StatusBadRequest)

	ErrEmailTaken = goerrors.New("email is already registered", goerrors.CategoryValidation).
			WithTextCode(TextCodeEmailTaken).
			WithCode(http.StatusBadRequest)

	// ErrInvalidCredentials covers both unknown email and wrong password
	ErrInvalidCredentials = goerrors.New("incorrect email or password", goerrors.CategoryAuth).
				WithTextCode(goerrors.TextCodeInvalidCredentials).
				WithCode(http.StatusUnauthorized)

	ErrUnauthenticated = goerrors.New("you are not logged in", goerrors.CategoryAuth).
				WithTextCode(TextCodeUnauthenticated).
				WithCode(http.StatusUnauthorized)

	ErrInvalidToken = goerrors.New("invalid session token", goerrors.CategoryAuth).
			WithTextCode(goerrors.TextCodeTokenMalformed).
			WithCode(http.StatusUnauthorized)

	ErrExpiredToken = goerrors.New("session token has expired", goerrors.CategoryAuth).
			WithTextCode(goerrors.TextCodeTokenExpired).
			WithCode(http.StatusUnauthorized)

	// ErrStaleSession is returned for tokens issued before the last password change
	ErrStaleSession = goerrors.New("password changed after the session was issued", goerrors.CategoryAuth).
			WithTextCode(TextCodeStaleSession).
			WithCode(http.StatusUnauthorized)

	ErrForbidden = goerrors.New("you do not have permission to perform this action", goerrors.CategoryAuthz).
			WithTextCode(TextCodeForbidden).
			WithCode(http.StatusForbidden)

	ErrNotFound = goerrors.New("principal not found", goerrors.CategoryNotFound).
			WithTextCode(TextCodeNotFound).
			WithCode(http.StatusNotFound)

	// ErrInvalidOrExpiredToken covers a wrong, consumed or expired reset secret
	ErrInvalidOrExpiredToken = goerrors.New("token is invalid or has expired", goerrors.CategoryBadInput).
					WithTextCode(TextCodeInvalidOrExpiredToken).
					WithCode(http.StatusBadRequest)

	ErrDeliveryFailed = goerrors.New("there was an error sending the email, try again later", goerrors.CategoryExternal).
				WithTextCode(TextCodeDeliveryFailed).
				WithCode(http.StatusBadGateway)

	// ErrResetTokenConsumed is returned by stores when a conditional reset
	// update matched no row
	ErrResetTokenConsumed = goerrors.New("reset token already consumed", goerrors.CategoryConflict).
				WithTextCode(TextCodeResetTokenConsumed).
				WithCode(http.StatusConflict)
)

// IsUnauthenticated reports whether err should be answered with 401
func IsUnauthenticated(err error) bool {
	return goerrors.IsCategory(err, goerrors.CategoryAuth)
}

// IsStaleSession checks for a session invalidated by a password change
func IsStaleSession(err error) bool {
	return hasTextCode(err, TextCodeStaleSession)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return hasTextCode(err, goerrors.TextCodeTokenExpired)
}

// IsMalformedError will check for tokens that failed signature or parsing
func IsMalformedError(err error) bool {
	return hasTextCode(err, goerrors.TextCodeTokenMalformed)
}

func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, goerrors.TextCodeInvalidCredentials)
}

func IsForbidden(err error) bool {
	return goerrors.IsCategory(err, goerrors.CategoryAuthz)
}

func hasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	verr := goerrors.FromOzzoValidation(err, "invalid input")
	verr.TextCode = TextCodeValidation
	verr.Code = http.StatusBadRequest
	return verr
}
