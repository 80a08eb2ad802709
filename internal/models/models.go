// internal/models/models.go
package models

// Profile holds the questionnaire answers used to personalize the weekly
// meal plan. Answers survive restarts: they are stored on the account so a
// purchase made after the questionnaire generates a plan without re-asking.
type Profile struct {
	Sex      string `json:"sex,omitempty"`
	Height   int    `json:"height,omitempty"`
	Weight   int    `json:"weight,omitempty"`
	Age      int    `json:"age,omitempty"`
	Activity string `json:"activity,omitempty"`
	Goal     string `json:"goal,omitempty"`
}

// Complete reports whether every questionnaire field has been answered.
func (p Profile) Complete() bool {
	return p.Sex != "" && p.Height > 0 && p.Weight > 0 && p.Age > 0 &&
		p.Activity != "" && p.Goal != ""
}

// UserAccount is one persisted record per Telegram user id. Timestamps are
// unix seconds. Missing fields decode to zero values, so records written by
// older builds stay readable.
type UserAccount struct {
	JoinedAt     int64    `json:"joined"`
	Premium      bool     `json:"premium"`
	PremiumUntil int64    `json:"premium_until"`
	TrialStarted int64    `json:"trial_started,omitempty"`
	TrialUntil   int64    `json:"trial_until,omitempty"`
	Profile      *Profile `json:"profile,omitempty"`
}

// PaymentRecord is one append-only entry per completed transaction. It is
// used only for admin reporting; entitlement is driven by PremiumUntil.
type PaymentRecord struct {
	UserID    int64  `json:"uid"`
	Amount    int    `json:"stars"`
	Timestamp int64  `json:"ts"`
	Payload   string `json:"payload"`
}
