package httpapi

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/bazario-labs/authcore"
)

// fail maps core errors onto the wire contract: validation and state
// errors are 400, credential and token errors are 401, lock errors are
// 429 with a Retry-After header, store outages are 503.
func fail(c *fiber.Ctx, err error) error {
	var locked *authcore.LockedError
	if errors.As(err, &locked) {
		seconds := int(locked.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"success":     false,
			"message":     locked.Error(),
			"lock_kind":   string(locked.Kind),
			"retry_after": seconds,
		})
	}

	var mismatch *authcore.OTPMismatchError
	if errors.As(err, &mismatch) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success":       false,
			"message":       mismatch.Error(),
			"attempts_left": mismatch.Remaining,
		})
	}

	status := fiber.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, authcore.ErrInvalidInput),
		errors.Is(err, authcore.ErrAccountExists),
		errors.Is(err, authcore.ErrPasswordReuse),
		errors.Is(err, authcore.ErrUserNotFound),
		errors.Is(err, authcore.ErrChallengeNotFound),
		errors.Is(err, authcore.ErrIncorrectOTP):
		status = fiber.StatusBadRequest
		message = err.Error()
	case errors.Is(err, authcore.ErrInvalidCredentials),
		errors.Is(err, authcore.ErrRefreshInvalid):
		status = fiber.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, authcore.ErrStoreUnavailable):
		status = fiber.StatusServiceUnavailable
		message = "service temporarily unavailable"
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
