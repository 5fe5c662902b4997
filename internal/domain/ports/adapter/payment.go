package adapter

import "context"

// GatewayOrder is the provider-side order created before checkout.
type GatewayOrder struct {
	ID       string // provider order id
	Amount   int64  // minor units (paise)
	Currency string
}

// PaymentGateway is the port for the payment provider. Amounts are in
// minor units. Signature checks are pure functions of provider-held
// secrets and never hit the network.
type PaymentGateway interface {
	Name() string
	// KeyID is the public key identifier the frontend checkout needs.
	KeyID() string

	// CreateOrder registers a provider order for the given amount.
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*GatewayOrder, error)

	// VerifySignature checks the checkout confirmation signature over
	// orderID and paymentID using constant-time comparison.
	VerifySignature(orderID, paymentID, signature string) bool

	// VerifyWebhook checks the webhook signature over the raw body.
	VerifyWebhook(body []byte, signature string) bool
}
