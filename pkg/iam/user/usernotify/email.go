// Package usernotify adapts pkg/notifx to user.Notifier.
package usernotify

import (
	"context"
	"fmt"

	"github.com/Abraxas-365/manifesto/pkg/notifx"
)

type EmailNotifier struct {
	client       *notifx.Client
	from         string
	verifyURLFmt string // e.g. "https://app.example.com/verify?token=%s"
	resetURLFmt  string // e.g. "https://app.example.com/reset-password?token=%s"
	inviteURLFmt string // e.g. "https://app.example.com/accept-invite?token=%s"
}

func NewEmailNotifier(client *notifx.Client, fromAddress, verifyURLFmt string) *EmailNotifier {
	return &EmailNotifier{client: client, from: fromAddress, verifyURLFmt: verifyURLFmt}
}

// WithResetURLFmt and WithInviteURLFmt opt this notifier into
// auth.ResetMailer and invitation.Mailer respectively. Both are optional
// since not every deployment needs password reset or invitations wired.
func (n *EmailNotifier) WithResetURLFmt(format string) *EmailNotifier {
	n.resetURLFmt = format
	return n
}

func (n *EmailNotifier) WithInviteURLFmt(format string) *EmailNotifier {
	n.inviteURLFmt = format
	return n
}

func (n *EmailNotifier) SendVerificationEmail(ctx context.Context, toEmail, toName, verifyToken string) error {
	link := fmt.Sprintf(n.verifyURLFmt, verifyToken)
	return n.client.SendEmail(ctx, notifx.EmailMessage{
		From:     n.from,
		To:       []string{toEmail},
		Subject:  "Verify your email",
		TextBody: fmt.Sprintf("Hi %s,\n\nVerify your email by visiting: %s", toName, link),
	})
}

// SendPasswordReset satisfies auth.ResetMailer.
func (n *EmailNotifier) SendPasswordReset(ctx context.Context, toEmail, resetToken string) error {
	link := fmt.Sprintf(n.resetURLFmt, resetToken)
	return n.client.SendEmail(ctx, notifx.EmailMessage{
		From:     n.from,
		To:       []string{toEmail},
		Subject:  "Reset your password",
		TextBody: fmt.Sprintf("Reset your password by visiting: %s\n\nIf you didn't request this, ignore this email.", link),
	})
}

// SendInvitation satisfies invitation.Mailer.
func (n *EmailNotifier) SendInvitation(ctx context.Context, toEmail, inviteToken string) error {
	link := fmt.Sprintf(n.inviteURLFmt, inviteToken)
	return n.client.SendEmail(ctx, notifx.EmailMessage{
		From:     n.from,
		To:       []string{toEmail},
		Subject:  "You've been invited",
		TextBody: fmt.Sprintf("You've been invited to join. Accept here: %s", link),
	})
}
