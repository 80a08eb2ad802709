// internal/payment/stripe.go
package payment

import (
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/checkout/session"
	"github.com/stripe/stripe-go/v72/webhook"
)

// StripeClient is the optional card-payment path next to Telegram Stars.
// Disabled unless a secret key is configured; the Stars path never depends
// on it.
type StripeClient struct {
	secretKey     string
	webhookSecret string
	priceID       string
}

func NewStripeClient(secretKey, webhookSecret, priceID string) *StripeClient {
	if secretKey != "" {
		stripe.Key = secretKey
	}
	return &StripeClient{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		priceID:       priceID,
	}
}

// Enabled reports whether card payments are configured.
func (s *StripeClient) Enabled() bool {
	return s.secretKey != "" && s.priceID != ""
}

func (s *StripeClient) GetWebhookSecret() string {
	return s.webhookSecret
}

// CreateCheckoutSession returns the session id and the hosted checkout URL
// for a premium purchase by the given user.
func (s *StripeClient) CreateCheckoutSession(userID int64, successURL, cancelURL string) (string, string, error) {
	if stripe.Key != s.secretKey {
		stripe.Key = s.secretKey
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(strconv.FormatInt(userID, 10)),
	}

	sess, err := session.New(params)
	if err != nil {
		return "", "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return sess.ID, sess.URL, nil
}

func (s *StripeClient) VerifyWebhookSignature(payload []byte, sig string) (stripe.Event, error) {
	if s.webhookSecret == "" {
		return stripe.Event{}, fmt.Errorf("webhook secret is not configured")
	}
	return webhook.ConstructEvent(payload, sig, s.webhookSecret)
}
