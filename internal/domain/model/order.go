package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"pdf-store-backend/internal/domain"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // created at checkout; awaiting payment verification
	OrderStatusCompleted OrderStatus = "completed" // signature verified; download token live
	OrderStatusFailed    OrderStatus = "failed"    // signature mismatch; terminal
	OrderStatusExpired   OrderStatus = "expired"   // token consumed or past expiry; terminal
)

// transitions is the full forward-only transition table. Anything not
// listed here is illegal.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusCompleted, OrderStatusFailed},
	OrderStatusCompleted: {OrderStatusExpired},
}

// CanTransition reports whether s may move to the given status.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusFailed, OrderStatusExpired:
		return true
	}
	return false
}

// Order is the central record: one paid checkout, one download token.
type Order struct {
	ID string // ULID

	// Payment gateway linkage
	ProviderOrderID  string  // gateway order id, globally unique
	PaymentID        *string // set after successful verification
	PaymentSignature *string // set after successful verification

	// Customer
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	CollegeName   string

	// Commercial
	PackageType    string // catalog key, e.g. "1".."5"
	PDFCount       int
	Currency       string
	BasePrice      int64 // listed package price, rupees
	CouponCode     *string
	CouponDiscount int64
	FinalPrice     int64 // amount actually charged, rupees

	// Lifecycle
	Status        OrderStatus
	DownloadToken string // opaque hex token, globally unique
	TokenUsed     bool
	TokenUsedAt   *time.Time
	ExpiresAt     time.Time
	EmailSent     bool
	EmailSentAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transition moves the order to the given status, rejecting anything the
// transition table does not allow. This is the only sanctioned way to
// change Status in memory; repositories enforce the same guards in SQL.
func (o *Order) Transition(to OrderStatus) error {
	if !o.Status.CanTransition(to) {
		return domain.ErrInvalidTransition
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return nil
}

// IsTokenValid reports whether the download token authorizes a download
// at the given instant. All three conditions must hold at once; callers
// must re-evaluate at the moment of access, never cache the result.
func (o *Order) IsTokenValid(now time.Time) bool {
	if o.TokenUsed {
		return false
	}
	if now.After(o.ExpiresAt) {
		return false
	}
	return o.Status == OrderStatusCompleted
}

// DownloadTokenBytes is the entropy behind each download token.
const DownloadTokenBytes = 32

// NewDownloadToken returns a fresh high-entropy opaque token (hex).
func NewDownloadToken() (string, error) {
	buf := make([]byte, DownloadTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
