package service

import (
	"context"
	"log/slog"

	"github.com/truefolio/truefolio/internal/apperror"
	"github.com/truefolio/truefolio/internal/repository"
)

// SignupCreditGrant is how many free generations a new account starts with.
const SignupCreditGrant = 3

// creditPacks maps pack names to the credits they add. Purchases are mocked:
// no payment provider is wired in, buying a pack just appends a ledger entry.
var creditPacks = map[string]int64{
	"starter": 5,
	"pro":     20,
}

// CreditService fronts the append-only credit ledger.
type CreditService struct {
	credits repository.CreditRepository
	logger  *slog.Logger
}

func NewCreditService(credits repository.CreditRepository, logger *slog.Logger) *CreditService {
	return &CreditService{credits: credits, logger: logger}
}

// Balance is the sum of the user's ledger entries.
func (s *CreditService) Balance(ctx context.Context, userID string) (int64, error) {
	return s.credits.Balance(ctx, userID)
}

// GrantSignupCredits seeds a freshly created account.
func (s *CreditService) GrantSignupCredits(ctx context.Context, userID string) error {
	if err := s.credits.Add(ctx, userID, SignupCreditGrant, "signup grant"); err != nil {
		return err
	}
	s.logger.Info("signup credits granted",
		slog.String("userID", userID),
		slog.Int64("credits", SignupCreditGrant),
	)
	return nil
}

// Purchase credits the user with the named pack and returns the new balance.
func (s *CreditService) Purchase(ctx context.Context, userID, pack string) (int64, error) {
	amount, ok := creditPacks[pack]
	if !ok {
		return 0, apperror.ValidationFailed("pack", "unknown credit pack: "+pack)
	}

	if err := s.credits.Add(ctx, userID, amount, "purchase: "+pack); err != nil {
		return 0, err
	}

	s.logger.Info("credit pack purchased",
		slog.String("userID", userID),
		slog.String("pack", pack),
		slog.Int64("credits", amount),
	)
	return s.credits.Balance(ctx, userID)
}
