package controller

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/gst-chat/client/internal/service/api"
)

const (
	msgLoginMissingFields = "Please enter email and password."
	msgLoginInvalid       = "Invalid credentials."
	msgLoginNetwork       = "Network error. Check if backend is running."
)

// LoginController drives the login page.
type LoginController struct {
	api  LoginAPI
	view FormView
	nav  Navigator
}

// NewLoginController wires the login page.
func NewLoginController(client LoginAPI, view FormView, nav Navigator) *LoginController {
	return &LoginController{api: client, view: view, nav: nav}
}

// Submit validates the fields locally, logs in and moves to the chat page.
// It returns true when the login succeeded.
func (c *LoginController) Submit(ctx context.Context, email, password string) bool {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)
	c.view.SetError("")

	if email == "" || password == "" {
		c.view.SetError(msgLoginMissingFields)
		return false
	}

	if err := c.api.Login(ctx, email, password); err != nil {
		if errors.Is(err, api.ErrNetwork) {
			log.Error().Err(err).Msg("[login] request failed")
			c.view.SetError(msgLoginNetwork)
			return false
		}
		log.Info().Err(err).Str("email", email).Msg("[login] rejected")
		c.view.SetError(msgLoginInvalid)
		return false
	}

	log.Info().Str("email", email).Msg("[login] success")
	c.nav.Navigate(PageChat)
	return true
}
