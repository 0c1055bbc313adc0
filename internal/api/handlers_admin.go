package api

import (
	"net/http"

	"github.com/viewcoin/ledger-service/internal/domain"
)

type updateUserTypeRequest struct {
	UserType string `json:"userType" validate:"required"`
}

// ListPaymentRequestsHandler handles GET /admin/payment-requests?status=.
func (h *LedgerHandlers) ListPaymentRequestsHandler(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListPaymentRequests(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.respondError(w, r, "admin_payment_requests", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"paymentRequests": requests,
		"count":           len(requests),
	})
}

// ProcessPaymentRequestHandler handles PUT /admin/payment-requests/{requestId}.
func (h *LedgerHandlers) ProcessPaymentRequestHandler(w http.ResponseWriter, r *http.Request) {
	admin, _ := PrincipalFromContext(r.Context())
	requestID, ok := pathUUID(r, "requestId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid payment request ID")
		return
	}

	var req domain.ProcessPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	processed, err := h.service.ProcessWithdrawal(r.Context(), admin, requestID, req)
	if err != nil {
		h.respondError(w, r, "admin_process_payment_request", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "Payment request " + string(processed.Status) + " successfully",
		"paymentRequest": processed,
	})
}

// StatisticsHandler handles GET /admin/statistics.
func (h *LedgerHandlers) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.PlatformStatistics(r.Context())
	if err != nil {
		h.respondError(w, r, "admin_statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"statistics": stats})
}

// SubscribersHandler handles GET /admin/subscriptions.
func (h *LedgerHandlers) SubscribersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Subscribers(r.Context())
	if err != nil {
		h.respondError(w, r, "admin_subscriptions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"subscribedUsers": users,
		"count":           len(users),
	})
}

// WalletsHandler handles GET /admin/wallets.
func (h *LedgerHandlers) WalletsHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Wallets(r.Context())
	if err != nil {
		h.respondError(w, r, "admin_wallets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

// UpdateUserTypeHandler handles PUT /admin/users/{userId}/type.
func (h *LedgerHandlers) UpdateUserTypeHandler(w http.ResponseWriter, r *http.Request) {
	admin, _ := PrincipalFromContext(r.Context())
	userID, ok := pathUUID(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req updateUserTypeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.service.UpdateUserType(r.Context(), admin, userID, req.UserType)
	if err != nil {
		h.respondError(w, r, "admin_update_user_type", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": updated})
}
