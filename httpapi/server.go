// Package httpapi exposes the authentication core over HTTP. Route
// names, including the /varify-* spelling, are a frozen contract with
// the deployed frontends and must not be normalized.
package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/bazario-labs/authcore"
)

// Server binds the core's services to fiber handlers.
type Server struct {
	core   *authcore.Core
	logger *logrus.Logger
}

// NewServer creates a [Server] over an assembled core.
func NewServer(core *authcore.Core, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{core: core, logger: logger}
}

// Register mounts all routes on app.
func (s *Server) Register(app *fiber.App) {
	app.Post("/user-registration", s.register(authcore.RoleUser))
	app.Post("/varify-user", s.finalize(authcore.RoleUser))
	app.Post("/login-user", s.login(authcore.RoleUser))
	app.Post("/forgot-password-user", s.forgotPassword(authcore.RoleUser))
	app.Post("/verify-forgot-password-user", s.verifyForgotPassword)
	app.Post("/reset-password-user", s.resetPassword(authcore.RoleUser))

	app.Post("/seller-registration", s.register(authcore.RoleSeller))
	app.Post("/varify-seller", s.finalize(authcore.RoleSeller))
	app.Post("/login-seller", s.login(authcore.RoleSeller))
	app.Post("/forgot-password-seller", s.forgotPassword(authcore.RoleSeller))
	app.Post("/verify-forgot-password-seller", s.verifyForgotPassword)
	app.Post("/reset-password-seller", s.resetPassword(authcore.RoleSeller))

	app.Post("/refresh-token", s.refreshToken)
	app.Post("/logout-user", s.logout)
	app.Get("/me", s.me)
	app.Get("/metrics", s.metrics)
}
