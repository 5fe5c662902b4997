package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"pdf-store-backend/internal/domain/model"
)

type adminLoginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil || s.adminPassword == "" {
		writeError(w, http.StatusServiceUnavailable, "Admin API is not configured")
		return
	}

	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.adminPassword)) != 1 {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("admin login rejected")
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.auth.Mint(w)
	if err != nil {
		s.log.Error().Err(err).Msg("admin session mint failed")
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}{true, token})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	if s.auth != nil {
		s.auth.Clear(w)
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{true})
}

// orderView strips the download token and signature from admin listings;
// the dashboard has no business handing out live download links.
type orderView struct {
	ID              string  `json:"id"`
	ProviderOrderID string  `json:"providerOrderId"`
	PaymentID       *string `json:"paymentId"`
	CustomerPhone   string  `json:"customerPhone"`
	CustomerEmail   string  `json:"customerEmail"`
	CollegeName     string  `json:"collegeName"`
	PackageType     string  `json:"packageType"`
	FinalPrice      int64   `json:"finalPrice"`
	Status          string  `json:"status"`
	TokenUsed       bool    `json:"tokenUsed"`
	EmailSent       bool    `json:"emailSent"`
	CreatedAt       string  `json:"createdAt"`
	ExpiresAt       string  `json:"expiresAt"`
}

func toOrderView(o *model.Order) orderView {
	return orderView{
		ID:              o.ID,
		ProviderOrderID: o.ProviderOrderID,
		PaymentID:       o.PaymentID,
		CustomerPhone:   o.CustomerPhone,
		CustomerEmail:   o.CustomerEmail,
		CollegeName:     o.CollegeName,
		PackageType:     o.PackageType,
		FinalPrice:      o.FinalPrice,
		Status:          string(o.Status),
		TokenUsed:       o.TokenUsed,
		EmailSent:       o.EmailSent,
		CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:       o.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleAdminOrders(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	orders, err := s.statsUC.RecentOrders(r.Context(), offset, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("admin order listing failed")
		writeError(w, http.StatusInternalServerError, "Failed to list orders")
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	writeJSON(w, http.StatusOK, struct {
		Data   []orderView `json:"data"`
		Offset int         `json:"offset"`
		Limit  int         `json:"limit"`
	}{views, offset, limit})
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	byStatus, err := s.statsUC.Totals(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get totals")
		return
	}
	week, month, year, err := s.statsUC.Revenue(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get revenue")
		return
	}

	counts := make(map[string]int, len(byStatus))
	for st, n := range byStatus {
		counts[string(st)] = n
	}

	writeJSON(w, http.StatusOK, struct {
		OrdersByStatus map[string]int `json:"orders_by_status"`
		Revenue        struct {
			Week  int64 `json:"week"`
			Month int64 `json:"month"`
			Year  int64 `json:"year"`
		} `json:"revenue_inr"`
	}{
		OrdersByStatus: counts,
		Revenue: struct {
			Week  int64 `json:"week"`
			Month int64 `json:"month"`
			Year  int64 `json:"year"`
		}{week, month, year},
	})
}
