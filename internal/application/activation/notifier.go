package activation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tapcard-api/internal/domain"
)

// Notifier is told about first-time claims. Implementations must not fail the claim.
type Notifier interface {
	NotifyClaimed(ctx context.Context, rec *domain.ActivationRecord)
}

type userLookup interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type mailSender interface {
	SendEmail(to, subject, body string) error
}

// MailNotifier emails the new owner a confirmation. Errors are logged only.
type MailNotifier struct {
	users  userLookup
	mailer mailSender
}

func NewMailNotifier(users userLookup, mailer mailSender) *MailNotifier {
	return &MailNotifier{users: users, mailer: mailer}
}

func (n *MailNotifier) NotifyClaimed(ctx context.Context, rec *domain.ActivationRecord) {
	if rec.OwnerUserID == nil {
		return
	}
	u, err := n.users.Get(ctx, *rec.OwnerUserID)
	if err != nil {
		slog.Warn("claim notification: user lookup failed", "record_id", rec.RecordID, "err", err)
		return
	}
	body := fmt.Sprintf("Hi %s,\n\nYour card %s is now activated. Head to the editor to publish your profile.\n",
		u.FirstName, rec.ActivationCode)
	if err := n.mailer.SendEmail(u.Email, "Your card is activated", body); err != nil {
		slog.Warn("claim notification: send failed", "record_id", rec.RecordID, "user_id", u.UserID, "err", err)
	}
}

type nopNotifier struct{}

func (nopNotifier) NotifyClaimed(context.Context, *domain.ActivationRecord) {}
