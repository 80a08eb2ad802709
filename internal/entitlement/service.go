// internal/entitlement/service.go
package entitlement

import (
	"context"

	"calorie-bot/internal/models"
	"calorie-bot/internal/store"
	"calorie-bot/pkg/logger"
)

// Notifier delivers a best-effort message to a user. Installed by the bot
// after construction; failures are the notifier's problem, never the
// caller's.
type Notifier func(userID int64, text string)

// Service layers the admin override and the revoke notification side effect
// on top of the persistence contract. Admins are implicitly always entitled.
type Service struct {
	store  store.Store
	admins map[int64]struct{}
	notify Notifier
	log    *logger.Logger
}

func New(st store.Store, adminIDs []int64, log *logger.Logger) *Service {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Service{store: st, admins: admins, log: log}
}

// SetNotifier installs the outbound message hook used on revoke.
func (s *Service) SetNotifier(n Notifier) {
	s.notify = n
}

func (s *Service) IsAdmin(userID int64) bool {
	_, ok := s.admins[userID]
	return ok
}

// HasPremium reports entitlement. Admins always qualify; storage read
// failures degrade to false.
func (s *Service) HasPremium(ctx context.Context, userID int64) bool {
	if s.IsAdmin(userID) {
		return true
	}
	ok, err := s.store.HasPremium(ctx, userID)
	if err != nil {
		s.log.Warnw("Premium check failed", "user_id", userID, "error", err)
		return false
	}
	return ok
}

// TrialActive reports whether the user is inside the trial window. Admins
// always qualify.
func (s *Service) TrialActive(ctx context.Context, userID int64) bool {
	if s.IsAdmin(userID) {
		return true
	}
	ok, err := s.store.TrialActive(ctx, userID)
	if err != nil {
		s.log.Warnw("Trial check failed", "user_id", userID, "error", err)
		return false
	}
	return ok
}

// Entitled reports trial-or-premium access to gated features.
func (s *Service) Entitled(ctx context.Context, userID int64) bool {
	return s.TrialActive(ctx, userID) || s.HasPremium(ctx, userID)
}

func (s *Service) StartTrialIfNeeded(ctx context.Context, userID int64) error {
	return s.store.StartTrialIfNeeded(ctx, userID)
}

// Grant extends the premium window by days, stacking onto unexpired time.
func (s *Service) Grant(ctx context.Context, userID int64, days int) (models.UserAccount, error) {
	return s.store.GrantPremium(ctx, userID, days)
}

// Revoke clears the premium window immediately and notifies the user on a
// best-effort basis. A failed notification never rolls back the revoke.
func (s *Service) Revoke(ctx context.Context, userID int64) error {
	if err := s.store.RevokePremium(ctx, userID); err != nil {
		return err
	}
	if s.notify != nil {
		s.notify(userID, "❌ Ваш премиум был снят администратором.")
	}
	return nil
}
