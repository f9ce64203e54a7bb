package identity

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// ErrorStatus maps an error to its HTTP status code
func ErrorStatus(err error) int {
	return statusFor(asRichError(err))
}

func asRichError(err error) *goerrors.Error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}

	var fiberErr *fiber.Error
	if goerrors.As(err, &fiberErr) {
		return goerrors.New(fiberErr.Message, goerrors.HTTPStatusToCategory(fiberErr.Code)).
			WithCode(fiberErr.Code)
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
		WithCode(goerrors.CodeInternal)
}

func statusFor(richErr *goerrors.Error) int {
	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}

	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// sendError writes err as a JSON error response. Internal details are
// replaced by a generic message.
func sendError(c *fiber.Ctx, err error) error {
	status := ErrorStatus(err)

	public := asRichError(err).Clone()
	public.Source = nil
	public.Location = nil
	public.StackTrace = nil
	public.Code = status

	if status >= http.StatusInternalServerError && public.Category == goerrors.CategoryInternal {
		public.Message = "An unexpected server error occurred"
		public.Metadata = nil
	}

	outcome := "fail"
	if status >= http.StatusInternalServerError {
		outcome = "error"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":  outcome,
		"message": public.Message,
		"error":   public,
	})
}
