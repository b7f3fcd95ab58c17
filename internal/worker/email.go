package worker

import (
	"context"

	"github.com/rs/zerolog"
)

// LogEmailSender satisfies the delivery interface without talking to real
// mail infrastructure. Deployments plug an actual sender in its place.
type LogEmailSender struct {
	Logger *zerolog.Logger
}

func (s *LogEmailSender) Send(ctx context.Context, recipient, subject, body string) error {
	s.Logger.Info().
		Str("recipient", recipient).
		Str("subject", subject).
		Msg("email delivery (log only)")
	return nil
}
