package mfa

import (
	"context"

	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

// FactorRepository persists enrolled MFA factors.
type FactorRepository interface {
	Save(ctx context.Context, factor Factor) error
	FindByUserAndMethod(ctx context.Context, userID kernel.UserID, method Method) (*Factor, error)
	ListForUser(ctx context.Context, userID kernel.UserID) ([]*Factor, error)
	Delete(ctx context.Context, userID kernel.UserID, method Method) error
}

// BackupCodeRepository persists hashed single-use recovery codes.
type BackupCodeRepository interface {
	ReplaceAll(ctx context.Context, userID kernel.UserID, codes []BackupCode) error
	FindUnused(ctx context.Context, userID kernel.UserID) ([]BackupCode, error)
	MarkUsed(ctx context.Context, codeID string) error
	CountUnused(ctx context.Context, userID kernel.UserID) (int, error)
}

// Notifier delivers an out-of-band one-time code, e.g. over SMS or email.
type Notifier interface {
	Send(ctx context.Context, method Method, contact string, code string) error
}
