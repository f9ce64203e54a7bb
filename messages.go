package identity

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
)

const (
	// MinPasswordLength is the shortest accepted password
	MinPasswordLength = 8
	// MaxPasswordLength is the bcrypt input limit
	MaxPasswordLength = 72
)

// SignupMessage registers a new principal. Role is accepted on the wire but
// never applied.
type SignupMessage struct {
	Name            string `json:"name" form:"name"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	PasswordConfirm string `json:"passwordConfirm" form:"passwordConfirm"`
	Role            string `json:"role,omitempty" form:"role"`
}

func (m SignupMessage) Type() string {
	return "identity.signup"
}

func (m SignupMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&m.Email, validation.Required, validation.Length(3, 254), is.EmailFormat),
		validation.Field(&m.Password, passwordRules()...),
		validation.Field(&m.PasswordConfirm, validation.Required, validation.By(ValidateStringEquals(m.Password))),
	)
}

type LoginMessage struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (m LoginMessage) Type() string {
	return "identity.login"
}

func (m LoginMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required),
		validation.Field(&m.Password, validation.Required),
	)
}

type RequestPasswordResetMessage struct {
	Email string `json:"email" form:"email"`
}

func (m RequestPasswordResetMessage) Type() string {
	return "identity.password_reset.request"
}

func (m RequestPasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, is.EmailFormat),
	)
}

type ConfirmPasswordResetMessage struct {
	Secret          string `json:"-" params:"token"`
	Password        string `json:"password" form:"password"`
	PasswordConfirm string `json:"passwordConfirm" form:"passwordConfirm"`
}

func (m ConfirmPasswordResetMessage) Type() string {
	return "identity.password_reset.confirm"
}

// Validate checks the new password pair. The secret is checked by the flow.
func (m ConfirmPasswordResetMessage) Validate() error {
	return validatePasswordPair(m.Password, m.PasswordConfirm)
}

type ChangePasswordMessage struct {
	PrincipalID     uuid.UUID `json:"-"`
	CurrentPassword string    `json:"passwordCurrent" form:"passwordCurrent"`
	Password        string    `json:"password" form:"password"`
	PasswordConfirm string    `json:"passwordConfirm" form:"passwordConfirm"`
}

func (m ChangePasswordMessage) Type() string {
	return "identity.password.change"
}

func (m ChangePasswordMessage) Validate() error {
	return validatePasswordPair(m.Password, m.PasswordConfirm)
}

func validatePasswordPair(password, confirm string) error {
	pair := struct {
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}{password, confirm}

	return validation.ValidateStruct(&pair,
		validation.Field(&pair.Password, passwordRules()...),
		validation.Field(&pair.PasswordConfirm, validation.Required, validation.By(ValidateStringEquals(pair.Password))),
	)
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(MinPasswordLength, MaxPasswordLength),
	}
}

// ValidateStringEquals returns a rule that passes when the value equals str
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("passwords are not the same")
		}
		return nil
	}
}
