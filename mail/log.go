package mail

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Log writes OTP codes to the logger instead of sending mail. Local
// development only; it prints the code in clear text.
type Log struct {
	logger *logrus.Logger
}

// NewLog creates a logging sender.
func NewLog(logger *logrus.Logger) *Log {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Log{logger: logger}
}

// SendOTP implements the core's mail contract.
func (l *Log) SendOTP(_ context.Context, to, subject, code string) error {
	l.logger.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
		"code":    code,
	}).Info("otp mail (dev sender)")
	return nil
}
