package identity

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// RegisterAuthRoutes mounts the identity endpoints on router
func RegisterAuthRoutes(router fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)
	controller.Register(router)
	return controller
}

type AuthControllerRoutes struct {
	Signup         string
	Login          string
	Logout         string
	ForgotPassword string
	ResetPassword  string
	UpdatePassword string
	Me             string
	Deactivate     string
	AdminPrincipal string
}

type AuthController struct {
	Debug     bool
	Logger    Logger
	Lifecycle *Lifecycle
	Gate      *AuthenticationGate
	Transport SessionTransport
	Routes    *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLifecycle(l *Lifecycle) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Lifecycle = l
		return c
	}
}

func WithControllerGate(g *AuthenticationGate) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Gate = g
		return c
	}
}

func WithControllerTransport(t SessionTransport) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Transport = t
		return c
	}
}

func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(l)
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Signup:         "/signup",
			Login:          "/login",
			Logout:         "/logout",
			ForgotPassword: "/forget-password",
			ResetPassword:  "/reset-password/:token",
			UpdatePassword: "/update-password",
			Me:             "/me",
			Deactivate:     "/deactivate-account",
			AdminPrincipal: "/admin/principals/:id",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Lifecycle == nil {
		panic("Missing Lifecycle in identity controller...")
	}

	if c.Gate == nil {
		panic("Missing AuthenticationGate in identity controller...")
	}

	if c.Transport == nil {
		panic("Missing SessionTransport in identity controller...")
	}

	return c
}

func (a *AuthController) Register(r fiber.Router) {
	protect := a.Gate.Protect()

	r.Post(a.Routes.Signup, a.Signup).Name("identity.signup")
	r.Post(a.Routes.Login, a.Login).Name("identity.login")
	r.Post(a.Routes.Logout, a.Logout).Name("identity.logout")
	r.Post(a.Routes.ForgotPassword, a.ForgotPassword).Name("identity.forgot-password")
	r.Post(a.Routes.ResetPassword, a.ResetPassword).Name("identity.reset-password")

	r.Patch(a.Routes.UpdatePassword, protect, a.UpdatePassword).Name("identity.update-password")
	r.Get(a.Routes.Me, protect, a.Me).Name("identity.me")
	r.Delete(a.Routes.Deactivate, protect, a.Deactivate).Name("identity.deactivate")

	r.Get(a.Routes.AdminPrincipal, protect, RequireRole(RoleAdmin), a.AdminGetPrincipal).
		Name("identity.admin.principal")
}

func (a *AuthController) Signup(c *fiber.Ctx) error {
	msg := SignupMessage{}
	if err := a.parse(c, &msg); err != nil {
		return sendError(c, err)
	}

	res, err := a.Lifecycle.Signup(c.UserContext(), msg)
	if err != nil {
		return a.fail(c, msg.Type(), err)
	}

	return a.sendSession(c, fiber.StatusCreated, res)
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	msg := LoginMessage{}
	if err := a.parse(c, &msg); err != nil {
		return sendError(c, err)
	}

	res, err := a.Lifecycle.Login(c.UserContext(), msg)
	if err != nil {
		return a.fail(c, msg.Type(), err)
	}

	return a.sendSession(c, fiber.StatusOK, res)
}

// Logout clears the cookie. Tokens are stateless so a copy held elsewhere
// stays valid until it expires.
func (a *AuthController) Logout(c *fiber.Ctx) error {
	a.Transport.Clear(c)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "success"})
}

func (a *AuthController) ForgotPassword(c *fiber.Ctx) error {
	msg := RequestPasswordResetMessage{}
	if err := a.parse(c, &msg); err != nil {
		return sendError(c, err)
	}

	if err := a.Lifecycle.RequestPasswordReset(c.UserContext(), msg); err != nil {
		return a.fail(c, msg.Type(), err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Reset token sent to email",
	})
}

func (a *AuthController) ResetPassword(c *fiber.Ctx) error {
	msg := ConfirmPasswordResetMessage{}
	if err := a.parse(c, &msg); err != nil {
		return sendError(c, err)
	}
	msg.Secret = c.Params("token")

	res, err := a.Lifecycle.ConfirmPasswordReset(c.UserContext(), msg)
	if err != nil {
		return a.fail(c, msg.Type(), err)
	}

	return a.sendSession(c, fiber.StatusOK, res)
}

func (a *AuthController) UpdatePassword(c *fiber.Ctx) error {
	principal, ok := PrincipalFromFiber(c)
	if !ok {
		return sendError(c, ErrUnauthenticated)
	}

	msg := ChangePasswordMessage{}
	if err := a.parse(c, &msg); err != nil {
		return sendError(c, err)
	}
	msg.PrincipalID = principal.ID

	res, err := a.Lifecycle.ChangePassword(c.UserContext(), msg)
	if err != nil {
		return a.fail(c, msg.Type(), err)
	}

	return a.sendSession(c, fiber.StatusOK, res)
}

func (a *AuthController) Me(c *fiber.Ctx) error {
	principal, ok := PrincipalFromFiber(c)
	if !ok {
		return sendError(c, ErrUnauthenticated)
	}

	record, err := a.Lifecycle.Me(c.UserContext(), principal.ID)
	if err != nil {
		return a.fail(c, "identity.me", err)
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"principal": record},
	})
}

func (a *AuthController) Deactivate(c *fiber.Ctx) error {
	principal, ok := PrincipalFromFiber(c)
	if !ok {
		return sendError(c, ErrUnauthenticated)
	}

	if err := a.Lifecycle.DeactivateAccount(c.UserContext(), principal.ID); err != nil {
		return a.fail(c, "identity.deactivate", err)
	}

	a.Transport.Clear(c)
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *AuthController) AdminGetPrincipal(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return sendError(c, ErrNotFound)
	}

	record, err := a.Lifecycle.GetPrincipal(c.UserContext(), id)
	if err != nil {
		return a.fail(c, "identity.admin.principal", err)
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"principal": record},
	})
}

func (a *AuthController) parse(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body").
			WithTextCode(TextCodeValidation).
			WithCode(fiber.StatusBadRequest)
	}

	if a.Debug {
		fmt.Println("======= IDENTITY REQUEST ======")
		fmt.Println(c.Method(), c.Path())
		fmt.Println("===============================")
	}

	return nil
}

func (a *AuthController) sendSession(c *fiber.Ctx, status int, res *AuthResult) error {
	a.Transport.Attach(c, res.Token, a.Lifecycle.SessionTTL())

	resp := fiber.Map{
		"status": "success",
		"token":  res.Token,
		"data":   fiber.Map{"principal": res.Principal},
	}

	if a.Debug {
		fmt.Println("======= IDENTITY SESSION ======")
		fmt.Println(print.MaybePrettyJSON(res.Principal))
		fmt.Println("===============================")
	}

	return c.Status(status).JSON(resp)
}

func (a *AuthController) fail(c *fiber.Ctx, op string, err error) error {
	if ErrorStatus(err) >= fiber.StatusInternalServerError {
		a.Logger.Error("%s failed: %v", op, err)
	} else {
		a.Logger.Debug("%s rejected: %v", op, err)
	}
	return sendError(c, err)
}
