package auth

import (
	"strings"

	"github.com/frahmantamala/opsboard/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d *LoginDTO) Normalize() {
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
}

func (d LoginDTO) Validate() error {
	if err := validation.ValidateStruct(d); err != nil {
		return err
	}
	return nil
}

func (d RefreshTokenDTO) Validate() error {
	if err := validation.ValidateStruct(d); err != nil {
		return err
	}
	return nil
}
