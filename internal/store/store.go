// internal/store/store.go
package store

import (
	"context"

	"calorie-bot/internal/models"
)

// Store is the persistence contract for accounts, the payment log and the
// admin-editable greeting. Two backends satisfy it: the default JSON file
// and Postgres when a DSN is configured. Read failures degrade to empty
// state; write failures propagate so the caller can show a retry message.
type Store interface {
	// GetOrCreateAccount returns the existing record or creates one with
	// defaults. The returned error concerns persisting the new record only;
	// a usable account is always returned.
	GetOrCreateAccount(ctx context.Context, userID int64) (models.UserAccount, error)

	// Account returns the raw stored record without side effects.
	Account(ctx context.Context, userID int64) (models.UserAccount, bool, error)

	// SaveProfile attaches questionnaire answers to the account.
	SaveProfile(ctx context.Context, userID int64, profile models.Profile) error

	// GrantPremium extends the premium window by the given number of days,
	// counting from max(now, current expiry) so grants stack. Each call adds
	// time; callers must not replay one purchase twice.
	GrantPremium(ctx context.Context, userID int64, days int) (models.UserAccount, error)

	// RevokePremium clears the premium window immediately.
	RevokePremium(ctx context.Context, userID int64) error

	// HasPremium reports whether the premium window is unexpired, lazily
	// clearing a stale active flag as a side effect.
	HasPremium(ctx context.Context, userID int64) (bool, error)

	// StartTrialIfNeeded starts the one-time trial window; no-op once started.
	StartTrialIfNeeded(ctx context.Context, userID int64) error

	// TrialActive reports whether the user is inside the trial window.
	TrialActive(ctx context.Context, userID int64) (bool, error)

	// RecordPayment appends one entry to the payment log.
	RecordPayment(ctx context.Context, userID int64, amount int, payload string) error

	CountAccounts(ctx context.Context) (int, error)
	CountActivePremium(ctx context.Context) (int, error)

	// PaymentStats returns the raw total amount and entry count of the log.
	PaymentStats(ctx context.Context) (total int, count int, err error)

	// UserIDs lists every known account id, for broadcasts.
	UserIDs(ctx context.Context) ([]int64, error)

	// Greeting returns the admin-editable first-contact text, empty when unset.
	Greeting(ctx context.Context) (string, error)
	SetGreeting(ctx context.Context, text string) error

	Close()
}
