package mfanotify

import (
	"context"

	"github.com/Abraxas-365/manifesto/pkg/logx"
)

// ConsoleSMSSender logs SMS sends via logx instead of dispatching them.
// Intended for development and testing, mirroring notifxconsole's email
// provider.
type ConsoleSMSSender struct{}

func NewConsoleSMSSender() *ConsoleSMSSender {
	return &ConsoleSMSSender{}
}

func (s *ConsoleSMSSender) SendSMS(_ context.Context, to, body string) error {
	logx.WithFields(logx.Fields{
		"to": to,
	}).Info("mfanotify/console: sms sent (dev mode)")
	logx.Debugf("mfanotify/console: body: %s", body)
	return nil
}
