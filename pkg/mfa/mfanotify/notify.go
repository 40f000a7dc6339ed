// Package mfanotify adapts the outbound channels used to deliver MFA
// challenge codes to the mfa.Notifier contract.
package mfanotify

import (
	"context"
	"fmt"

	"github.com/Abraxas-365/manifesto/pkg/mfa"
	"github.com/Abraxas-365/manifesto/pkg/notifx"
)

// SMSSender abstracts the outbound SMS transport. The corpus this project
// was built against carries no SMS provider SDK, so production deployments
// supply their own implementation (e.g. a carrier's REST API client); dev
// and test use ConsoleSMSSender below.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Notifier implements mfa.Notifier over an email client and an SMS sender.
type Notifier struct {
	email *notifx.Client
	sms   SMSSender
	from  string
}

func NewNotifier(email *notifx.Client, sms SMSSender, fromAddress string) *Notifier {
	return &Notifier{email: email, sms: sms, from: fromAddress}
}

func (n *Notifier) Send(ctx context.Context, method mfa.Method, contact, code string) error {
	switch method {
	case mfa.MethodEmail:
		return n.email.SendEmail(ctx, notifx.EmailMessage{
			From:     n.from,
			To:       []string{contact},
			Subject:  "Your verification code",
			TextBody: fmt.Sprintf("Your verification code is %s. It expires shortly.", code),
		})
	case mfa.MethodSMS:
		return n.sms.SendSMS(ctx, contact, fmt.Sprintf("Your verification code is %s", code))
	default:
		return mfa.ErrUnsupportedMethod()
	}
}
