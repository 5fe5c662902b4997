package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"pdf-store-backend/internal/domain"
	"pdf-store-backend/internal/domain/model"
	"pdf-store-backend/internal/domain/ports/adapter"
	"pdf-store-backend/internal/domain/ports/repository"
)

// Compile-time check
var _ OrderUseCase = (*orderUC)(nil)

// DownloadTokenTTL is how long a download link lives, measured from
// order creation.
const DownloadTokenTTL = 24 * time.Hour

type CreateOrderInput struct {
	Phone       string
	CollegeName string
	PackageType string
	CouponCode  string
}

type PricingBreakdown struct {
	PackageType    string
	PDFCount       int
	BasePrice      int64
	FinalPrice     int64
	CouponApplied  bool
	CouponDiscount int64
}

type CreateOrderResult struct {
	Order        *model.Order
	GatewayOrder *adapter.GatewayOrder
	KeyID        string
	Pricing      PricingBreakdown
}

type OrderUseCase interface {
	// Create resolves pricing server-side, registers a gateway order and
	// persists a local pending order with a fresh download token.
	Create(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error)
}

type orderUC struct {
	orders  repository.OrderRepository
	catalog *model.Catalog
	gateway adapter.PaymentGateway
	log     *zerolog.Logger
	now     func() time.Time
}

func NewOrderUseCase(orders repository.OrderRepository, catalog *model.Catalog, gateway adapter.PaymentGateway, logger *zerolog.Logger) *orderUC {
	l := logger.With().Str("component", "OrderUC").Logger()
	return &orderUC{orders: orders, catalog: catalog, gateway: gateway, log: &l, now: time.Now}
}

func (u *orderUC) Create(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	if u.gateway == nil {
		return nil, domain.ErrGatewayUnavailable
	}

	phone := strings.TrimSpace(in.Phone)
	college := strings.TrimSpace(in.CollegeName)
	if phone == "" || college == "" {
		return nil, domain.ErrInvalidArgument
	}

	pkg, ok := u.catalog.Package(in.PackageType)
	if !ok {
		return nil, domain.ErrInvalidPackage
	}

	// Coupon handling is strictly server-side. A coupon supplied for a
	// tier that does not support coupons is rejected outright; a wrong
	// code on an eligible tier just yields zero discount.
	coupon := strings.TrimSpace(in.CouponCode)
	couponApplied := false
	var discount int64
	if coupon != "" {
		if !u.catalog.SupportsCoupon(in.PackageType) {
			return nil, domain.ErrInvalidCoupon
		}
		couponApplied = u.catalog.ValidateCoupon(in.PackageType, coupon)
		if couponApplied {
			discount = pkg.CouponDiscount
		}
	}

	finalPrice := pkg.Price - discount
	if finalPrice <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	now := u.now()
	amountMinor := finalPrice * 100 // rupees -> paise

	gw, err := u.gateway.CreateOrder(ctx, amountMinor, "INR", fmt.Sprintf("order_%d", now.UnixMilli()), map[string]string{
		"phone":        phone,
		"college_name": college,
		"package_type": in.PackageType,
		"pdf_count":    fmt.Sprintf("%d", pkg.PDFCount),
	})
	if err != nil {
		u.log.Error().Err(err).Str("package", in.PackageType).Msg("gateway order creation failed")
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	token, err := model.NewDownloadToken()
	if err != nil {
		return nil, fmt.Errorf("generate download token: %w", err)
	}

	o := &model.Order{
		ID:              ulid.Make().String(),
		ProviderOrderID: gw.ID,
		CustomerName:    "Guest Customer",
		CustomerEmail:   fmt.Sprintf("no-email-%s@no-email.local", phone),
		CustomerPhone:   phone,
		CollegeName:     college,
		PackageType:     in.PackageType,
		PDFCount:        pkg.PDFCount,
		Currency:        gw.Currency,
		BasePrice:       pkg.Price,
		CouponDiscount:  discount,
		FinalPrice:      finalPrice,
		Status:          model.OrderStatusPending,
		DownloadToken:   token,
		ExpiresAt:       now.Add(DownloadTokenTTL),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if couponApplied {
		o.CouponCode = &coupon
	}

	if err := u.orders.Create(ctx, repository.NoTX, o); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	u.log.Info().
		Str("order_id", o.ID).
		Str("provider_order_id", gw.ID).
		Str("package", in.PackageType).
		Int64("final_price", finalPrice).
		Bool("coupon", couponApplied).
		Msg("order created")

	return &CreateOrderResult{
		Order:        o,
		GatewayOrder: gw,
		KeyID:        u.gateway.KeyID(),
		Pricing: PricingBreakdown{
			PackageType:    in.PackageType,
			PDFCount:       pkg.PDFCount,
			BasePrice:      pkg.Price,
			FinalPrice:     finalPrice,
			CouponApplied:  couponApplied,
			CouponDiscount: discount,
		},
	}, nil
}
