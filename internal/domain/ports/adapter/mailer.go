package adapter

import "context"

// Mailer delivers the download link after a verified payment. Delivery
// is best-effort: callers log failures and never roll back payment state.
type Mailer interface {
	SendDownloadLink(ctx context.Context, toEmail, toName, downloadURL string) error
}
