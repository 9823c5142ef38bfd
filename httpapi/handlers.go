package httpapi

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/bazario-labs/authcore"
)

type registrationRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Country  string `json:"country"`
}

type finalizeRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
	Phone    string `json:"phone"`
	Country  string `json:"country"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userView struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Country   string    `json:"country,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func viewOf(record *authcore.UserRecord) userView {
	return userView{
		ID:        record.ID,
		Role:      string(record.Role),
		Name:      record.Name,
		Email:     record.Email,
		Phone:     record.Phone,
		Country:   record.Country,
		CreatedAt: record.CreatedAt,
	}
}

// requestContext tags the request context with the caller IP so audit
// events carry it.
func requestContext(c *fiber.Ctx) context.Context {
	return authcore.WithClientIP(c.Context(), c.IP())
}

func (s *Server) register(role authcore.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req registrationRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, authcore.ValidationError("malformed request body"))
		}

		err := s.core.Credentials.Register(requestContext(c), authcore.RegistrationInput{
			Role:     role,
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			Phone:    req.Phone,
			Country:  req.Country,
		})
		if err != nil {
			return fail(c, err)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "otp sent to your email",
		})
	}
}

func (s *Server) finalize(role authcore.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req finalizeRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, authcore.ValidationError("malformed request body"))
		}

		record, tokens, err := s.core.Credentials.FinalizeRegistration(requestContext(c), authcore.FinalizeInput{
			Role:     role,
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			OTP:      req.OTP,
			Phone:    req.Phone,
			Country:  req.Country,
		})
		if err != nil {
			return fail(c, err)
		}

		s.logger.WithFields(logrus.Fields{
			"role":    string(record.Role),
			"user_id": record.ID,
		}).Info("account created")

		setSessionCookies(c, s.core.Config().Cookie, tokens)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "account created",
			"user":    viewOf(record),
		})
	}
}

func (s *Server) login(role authcore.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, authcore.ValidationError("malformed request body"))
		}

		record, tokens, err := s.core.Credentials.Login(requestContext(c), req.Email, req.Password, role)
		if err != nil {
			return fail(c, err)
		}

		setSessionCookies(c, s.core.Config().Cookie, tokens)
		return c.JSON(fiber.Map{
			"success": true,
			"message": "login successful",
			"user":    viewOf(record),
		})
	}
}

func (s *Server) forgotPassword(role authcore.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req emailRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, authcore.ValidationError("malformed request body"))
		}

		if err := s.core.Credentials.InitiateForgotPassword(requestContext(c), req.Email, role); err != nil {
			return fail(c, err)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "otp sent to your email",
		})
	}
}

func (s *Server) verifyForgotPassword(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, authcore.ValidationError("malformed request body"))
	}

	if err := s.core.Credentials.VerifyPasswordResetOTP(requestContext(c), req.Email, req.OTP); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "otp verified",
	})
}

func (s *Server) resetPassword(role authcore.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req resetPasswordRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, authcore.ValidationError("malformed request body"))
		}

		if err := s.core.Credentials.ResetPassword(requestContext(c), req.Email, req.Password, role); err != nil {
			return fail(c, err)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "password updated",
		})
	}
}

func (s *Server) refreshToken(c *fiber.Ctx) error {
	cfg := s.core.Config().Cookie

	refresh := c.Cookies(cfg.RefreshName)
	tokens, err := s.core.Tokens.Refresh(requestContext(c), refresh)
	if err != nil {
		s.logger.WithField("ip", c.IP()).Warn("refresh token rejected")
		clearSessionCookies(c, cfg)
		return fail(c, err)
	}

	setSessionCookies(c, cfg, tokens)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "session refreshed",
	})
}

func (s *Server) logout(c *fiber.Ctx) error {
	clearSessionCookies(c, s.core.Config().Cookie)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "logged out",
	})
}

func (s *Server) me(c *fiber.Ctx) error {
	cfg := s.core.Config().Cookie

	claims, err := s.core.Tokens.ParseAccess(c.Cookies(cfg.AccessName))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "not authenticated",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"id":   claims.ID,
			"role": claims.Role,
		},
	})
}

func (s *Server) metrics(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4; charset=utf-8")
	return c.SendString(s.core.Metrics().RenderPrometheus())
}
