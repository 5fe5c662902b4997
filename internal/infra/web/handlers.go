package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pdf-store-backend/internal/domain"
	"pdf-store-backend/internal/infra/metrics"
	"pdf-store-backend/internal/usecase"
)

const maxWebhookBody = 1 << 20 // 1 MiB

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{false, message})
}

// handleProducts lists the storefront catalog. Secure filenames and
// coupon codes never leave the server; clients only learn whether a
// tier is coupon-eligible.
func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	type pkgView struct {
		PackageType    string `json:"packageType"`
		PDFCount       int    `json:"pdfCount"`
		Price          int64  `json:"price"`
		Title          string `json:"title"`
		EmailCount     int    `json:"emailCount"`
		SupportsCoupon bool   `json:"supportsCoupon"`
	}
	type productView struct {
		ProductID     string `json:"productId"`
		Title         string `json:"title"`
		Description   string `json:"description"`
		OriginalPrice int64  `json:"originalPrice"`
		SellingPrice  int64  `json:"sellingPrice"`
	}

	var packages []pkgView
	for _, pt := range s.catalog.PackageTypes() {
		p, _ := s.catalog.Package(pt)
		packages = append(packages, pkgView{
			PackageType:    p.PackageType,
			PDFCount:       p.PDFCount,
			Price:          p.Price,
			Title:          p.Title,
			EmailCount:     p.EmailCount,
			SupportsCoupon: p.CouponCode != "",
		})
	}
	var products []productView
	for _, p := range s.catalog.Products() {
		products = append(products, productView{
			ProductID:     p.ProductID,
			Title:         p.Title,
			Description:   p.Description,
			OriginalPrice: p.OriginalPrice,
			SellingPrice:  p.SellingPrice,
		})
	}

	writeJSON(w, http.StatusOK, struct {
		Success  bool          `json:"success"`
		Products []productView `json:"products"`
		Packages []pkgView     `json:"packages"`
	}{true, products, packages})
}

type createOrderRequest struct {
	Phone       string `json:"phone"`
	CollegeName string `json:"collegeName"`
	PackageType string `json:"packageType"`
	CouponCode  string `json:"couponCode"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := s.orderUC.Create(r.Context(), usecase.CreateOrderInput{
		Phone:       req.Phone,
		CollegeName: req.CollegeName,
		PackageType: req.PackageType,
		CouponCode:  req.CouponCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrGatewayUnavailable):
			writeError(w, http.StatusServiceUnavailable, "Payment gateway is not configured")
		case errors.Is(err, domain.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, "Phone and college name are required")
		case errors.Is(err, domain.ErrInvalidPackage):
			writeError(w, http.StatusBadRequest, "Unknown package type")
		case errors.Is(err, domain.ErrInvalidCoupon):
			writeError(w, http.StatusBadRequest, "Coupon is not valid for this package")
		case errors.Is(err, domain.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "Invalid order amount")
		default:
			s.log.Error().Err(err).Msg("order creation failed")
			writeError(w, http.StatusInternalServerError, "Failed to create order")
		}
		return
	}

	metrics.OrdersCreated.WithLabelValues(res.Order.PackageType).Inc()

	writeJSON(w, http.StatusOK, struct {
		Success      bool   `json:"success"`
		OrderID      string `json:"orderId"` // provider order id for checkout
		LocalOrderID string `json:"localOrderId"`
		Amount       int64  `json:"amount"` // paise
		Currency     string `json:"currency"`
		KeyID        string `json:"keyId"`
		Pricing struct {
			PackageType    string `json:"packageType"`
			PDFCount       int    `json:"pdfCount"`
			BasePrice      int64  `json:"basePrice"`
			CouponApplied  bool   `json:"couponApplied"`
			CouponDiscount int64  `json:"couponDiscount"`
			FinalPrice     int64  `json:"finalPrice"`
		} `json:"pricing"`
	}{
		Success:      true,
		OrderID:      res.GatewayOrder.ID,
		LocalOrderID: res.Order.ID,
		Amount:       res.GatewayOrder.Amount,
		Currency:     res.GatewayOrder.Currency,
		KeyID:        res.KeyID,
		Pricing: struct {
			PackageType    string `json:"packageType"`
			PDFCount       int    `json:"pdfCount"`
			BasePrice      int64  `json:"basePrice"`
			CouponApplied  bool   `json:"couponApplied"`
			CouponDiscount int64  `json:"couponDiscount"`
			FinalPrice     int64  `json:"finalPrice"`
		}{
			PackageType:    res.Pricing.PackageType,
			PDFCount:       res.Pricing.PDFCount,
			BasePrice:      res.Pricing.BasePrice,
			CouponApplied:  res.Pricing.CouponApplied,
			CouponDiscount: res.Pricing.CouponDiscount,
			FinalPrice:     res.Pricing.FinalPrice,
		},
	})
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, reason := "ok", ""
	defer func() {
		metrics.PaymentVerifyRequests.WithLabelValues(result, reason).Inc()
		metrics.PaymentVerifyDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()

	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		result, reason = "fail", "missing_fields"
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := s.paymentUC.Verify(r.Context(), req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			result, reason = "fail", "missing_fields"
			writeError(w, http.StatusBadRequest, "Missing payment verification fields")
		case errors.Is(err, domain.ErrNotFound):
			result, reason = "fail", "not_found"
			writeError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, domain.ErrSignatureMismatch), errors.Is(err, domain.ErrInvalidTransition):
			result, reason = "fail", "bad_signature"
			writeError(w, http.StatusBadRequest, "Payment verification failed")
		case errors.Is(err, domain.ErrGatewayUnavailable):
			result, reason = "fail", "gateway_unconfigured"
			writeError(w, http.StatusInternalServerError, "Payment verification is not configured")
		default:
			result, reason = "fail", "internal"
			s.log.Error().Err(err).Msg("payment verification failed")
			writeError(w, http.StatusInternalServerError, "Payment verification failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success       bool   `json:"success"`
		Message       string `json:"message"`
		DownloadToken string `json:"downloadToken"`
	}{true, "Payment verified successfully", order.DownloadToken})
}

// handleWebhook validates the gateway signature over the raw body before
// anything in the payload is trusted.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		writeError(w, http.StatusBadRequest, "Unreadable body")
		return
	}

	sig := r.Header.Get("X-Razorpay-Signature")
	if err := s.paymentUC.HandleWebhook(r.Context(), body, sig); err != nil {
		if errors.Is(err, domain.ErrSignatureMismatch) {
			metrics.WebhookEvents.WithLabelValues("bad_signature").Inc()
			s.log.Warn().Str("remote", r.RemoteAddr).Msg("webhook signature mismatch")
			writeError(w, http.StatusBadRequest, "Invalid webhook signature")
			return
		}
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Msg("webhook processing failed")
		writeError(w, http.StatusInternalServerError, "Webhook processing failed")
		return
	}

	metrics.WebhookEvents.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{true})
}

// handleVerifyDownload reports link validity without consuming the
// token. Always 200; the body carries the verdict.
func (s *Server) handleVerifyDownload(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	valid, message, err := s.downloadUC.Peek(r.Context(), token)
	if err != nil {
		s.log.Error().Err(err).Msg("download verification failed")
	}
	writeJSON(w, http.StatusOK, struct {
		Valid   bool   `json:"valid"`
		Message string `json:"message"`
	}{valid, message})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	grant, err := s.downloadUC.Authorize(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			metrics.Downloads.WithLabelValues("not_found").Inc()
			writeError(w, http.StatusBadRequest, "Download token is required")
		case errors.Is(err, domain.ErrNotFound):
			metrics.Downloads.WithLabelValues("not_found").Inc()
			writeError(w, http.StatusNotFound, "Invalid download link")
		case errors.Is(err, domain.ErrPaymentRequired):
			metrics.Downloads.WithLabelValues("forbidden").Inc()
			writeError(w, http.StatusForbidden, "Payment not completed for this order")
		case errors.Is(err, domain.ErrLinkExpired):
			metrics.Downloads.WithLabelValues("expired").Inc()
			writeError(w, http.StatusForbidden, "Download link has expired or already used")
		case errors.Is(err, domain.ErrTokenConsumed):
			metrics.Downloads.WithLabelValues("consumed").Inc()
			writeError(w, http.StatusForbidden, "Download link has expired or already used")
		case errors.Is(err, domain.ErrInvalidPackage):
			metrics.Downloads.WithLabelValues("forbidden").Inc()
			writeError(w, http.StatusForbidden, "No file is mapped to this order")
		case errors.Is(err, domain.ErrFileMissing):
			metrics.Downloads.WithLabelValues("file_missing").Inc()
			writeError(w, http.StatusInternalServerError, "File is temporarily unavailable")
		case errors.Is(err, domain.ErrLockBusy):
			metrics.Downloads.WithLabelValues("locked").Inc()
			writeError(w, http.StatusConflict, "Download already in progress")
		default:
			metrics.Downloads.WithLabelValues("error").Inc()
			s.log.Error().Err(err).Msg("download authorization failed")
			writeError(w, http.StatusInternalServerError, "Download failed")
		}
		return
	}
	defer grant.Content.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", grant.FileName))
	if grant.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(grant.Size, 10))
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, grant.Content); err != nil {
		// Token is already consumed; nothing to unwind mid-stream.
		s.log.Warn().Err(err).Str("order_id", grant.Order.ID).Msg("download stream interrupted")
		return
	}
	metrics.Downloads.WithLabelValues("served").Inc()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if s.db == nil {
		dbStatus = "unconfigured"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			dbStatus = "down"
		}
	}

	gw := "ok"
	if !s.gatewayReady {
		gw = "unconfigured"
	}

	status := http.StatusOK
	if dbStatus == "down" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Gateway  string `json:"gateway"`
	}{"up", dbStatus, gw})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, struct {
		OK bool  `json:"ok"`
		TS int64 `json:"ts"`
	}{true, time.Now().UnixMilli()})
}
