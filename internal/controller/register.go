package controller

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/gst-chat/client/internal/service/api"
)

const (
	msgRegisterMissingFields = "All fields are required."
	msgRegisterSuccess       = "Registration successful! Please login."
	msgRegisterFailed        = "Registration failed."
	msgRegisterNetwork       = "Network error"
)

// RegisterView is the register page: an error line plus a blocking alert.
type RegisterView interface {
	FormView
	Alerter
}

// RegisterController drives the registration page.
type RegisterController struct {
	api  RegisterAPI
	view RegisterView
	nav  Navigator
}

// NewRegisterController wires the registration page.
func NewRegisterController(client RegisterAPI, view RegisterView, nav Navigator) *RegisterController {
	return &RegisterController{api: client, view: view, nav: nav}
}

// Submit registers the account and sends the user to the login page.
// It returns true when the account was created.
func (c *RegisterController) Submit(ctx context.Context, name, email, password string) bool {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)
	c.view.SetError("")

	if name == "" || email == "" || password == "" {
		c.view.SetError(msgRegisterMissingFields)
		return false
	}

	err := c.api.Register(ctx, api.Registration{Name: name, Email: email, Password: password})
	switch {
	case err == nil:
		log.Info().Str("email", email).Msg("[register] success")
		c.view.Alert(msgRegisterSuccess)
		c.nav.Navigate(PageLogin)
		return true
	case errors.Is(err, api.ErrNetwork):
		log.Error().Err(err).Msg("[register] request failed")
		c.view.SetError(msgRegisterNetwork)
	default:
		log.Info().Err(err).Str("email", email).Msg("[register] rejected")
		if detail := api.DetailOf(err); detail != "" {
			c.view.SetError(detail)
		} else {
			c.view.SetError(msgRegisterFailed)
		}
	}
	return false
}
