package router

import (
	"net/http"
	"time"

	"github.com/divecrm/divecrm/internal/auth"
	"github.com/divecrm/divecrm/internal/handler"
	"github.com/divecrm/divecrm/internal/logger"
	"github.com/divecrm/divecrm/internal/middleware"
)

// New creates and configures the HTTP router
func New(h *handler.Handler, mw *middleware.Middleware, log *logger.Logger, tokenSvc *auth.TokenService) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints (no auth required)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	// API v1 routes
	mux.HandleFunc("GET /api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"DiveCRM API v1","version":"0.1.0"}`))
	})

	// Public routes (rate limited)
	loginRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "login",
		Limit:  5,
		Window: 15 * time.Minute,
		KeyFn:  middleware.IPKey,
	})
	feedbackRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "feedback",
		Limit:  10,
		Window: 1 * time.Hour,
		KeyFn:  middleware.IPKey,
	})

	mux.Handle("POST /api/v1/auth/login", loginRateLimit(http.HandlerFunc(h.Login)))

	// Customers reach this through the link in their follow-up email
	mux.Handle("POST /api/v1/customers/{id}/feedback", feedbackRateLimit(http.HandlerFunc(h.SaveFeedback)))

	// Protected routes (require staff auth)
	authMw := mw.Auth(tokenSvc)

	mux.Handle("POST /api/v1/auth/logout", authMw(http.HandlerFunc(h.Logout)))
	mux.Handle("GET /api/v1/auth/me", authMw(http.HandlerFunc(h.GetCurrentUser)))

	// Customer routes
	mux.Handle("GET /api/v1/customers", authMw(http.HandlerFunc(h.ListCustomers)))
	mux.Handle("POST /api/v1/customers", authMw(http.HandlerFunc(h.CreateCustomer)))
	mux.Handle("GET /api/v1/customers/export", authMw(http.HandlerFunc(h.ExportCustomers)))
	mux.Handle("GET /api/v1/customers/{id}", authMw(http.HandlerFunc(h.GetCustomer)))
	mux.Handle("PUT /api/v1/customers/{id}", authMw(http.HandlerFunc(h.UpdateCustomer)))
	mux.Handle("DELETE /api/v1/customers/{id}", authMw(http.HandlerFunc(h.DeleteCustomer)))
	mux.Handle("GET /api/v1/customers/{id}/deliveries", authMw(http.HandlerFunc(h.ListDeliveries)))
	mux.Handle("GET /api/v1/customers/{id}/preview/{kind}", authMw(http.HandlerFunc(h.PreviewEmail)))

	// Template routes
	mux.Handle("GET /api/v1/templates", authMw(http.HandlerFunc(h.ListTemplates)))
	mux.Handle("GET /api/v1/templates/{kind}/{lang}", authMw(http.HandlerFunc(h.GetTemplate)))
	mux.Handle("PUT /api/v1/templates/{kind}/{lang}", authMw(http.HandlerFunc(h.PutTemplate)))
	mux.Handle("DELETE /api/v1/templates/{kind}/{lang}", authMw(http.HandlerFunc(h.DeleteTemplate)))
	mux.Handle("DELETE /api/v1/templates/{kind}", authMw(http.HandlerFunc(h.ResetTemplates)))

	// Dispatch routes
	mux.Handle("POST /api/v1/customers/{id}/send", authMw(http.HandlerFunc(h.SendManual)))
	mux.Handle("POST /api/v1/dispatch/send-all", authMw(http.HandlerFunc(h.SendManualToAll)))
	mux.Handle("POST /api/v1/dispatch/tick", authMw(mw.RequireAdmin(http.HandlerFunc(h.RunTick))))

	// Marketing routes (admin only, rate limited)
	marketingRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "marketing",
		Limit:  5,
		Window: 1 * time.Hour,
		KeyFn:  middleware.IPKey,
	})
	mux.Handle("POST /api/v1/marketing/send", authMw(mw.RequireAdmin(marketingRateLimit(http.HandlerFunc(h.SendMarketing)))))

	// Staff management routes (admin only)
	mux.Handle("GET /api/v1/staff", authMw(mw.RequireAdmin(http.HandlerFunc(h.ListStaff))))
	mux.Handle("POST /api/v1/staff", authMw(mw.RequireAdmin(http.HandlerFunc(h.CreateStaff))))
	mux.Handle("DELETE /api/v1/staff/{id}", authMw(mw.RequireAdmin(http.HandlerFunc(h.DeleteStaff))))

	// Settings routes
	mux.Handle("GET /api/v1/settings/vat", authMw(http.HandlerFunc(h.GetVATRate)))
	mux.Handle("PUT /api/v1/settings/vat", authMw(mw.RequireAdmin(http.HandlerFunc(h.SetVATRate))))

	// Apply middleware stack
	var handler http.Handler = mux

	// CORS (configure allowed origins based on environment)
	handler = mw.CORS([]string{"http://localhost:3000", "http://localhost:5173"})(handler)

	// Security headers
	handler = mw.SecurityHeaders(handler)

	// Request logging
	handler = mw.Logger(handler)

	// Request ID
	handler = mw.RequestID(handler)

	// Panic recovery (outermost)
	handler = mw.Recover(handler)

	return handler
}
