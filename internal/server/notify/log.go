package notify

import (
	"context"
	"time"

	"github.com/dmitrijs2005/useradmin/internal/logging"
)

// LogNotifier writes emails to the log instead of sending them. Bodies, which
// carry tokens, are only written at debug level.
type LogNotifier struct {
	logger    logging.Logger
	templates Templates
}

func NewLogNotifier(logger logging.Logger, templates Templates) *LogNotifier {
	return &LogNotifier{logger: logger.With("module", "notify"), templates: templates}
}

func (n *LogNotifier) SendVerification(ctx context.Context, to, name, token string) error {
	n.log(ctx, n.templates.Verification(to, name, token))
	return nil
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, to, name, token string, expires time.Time) error {
	n.log(ctx, n.templates.PasswordReset(to, name, token, expires))
	return nil
}

func (n *LogNotifier) SendTemporaryPassword(ctx context.Context, to, name, password string) error {
	n.log(ctx, n.templates.TemporaryPassword(to, name, password))
	return nil
}

func (n *LogNotifier) log(ctx context.Context, msg Message) {
	n.logger.Info(ctx, "email not sent, smtp is not configured", "to", msg.To, "subject", msg.Subject)
	n.logger.Debug(ctx, "email body", "to", msg.To, "body", msg.Body)
}
