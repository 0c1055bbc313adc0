package api

import (
	"net/http"

	"github.com/viewcoin/ledger-service/internal/app"
	"github.com/viewcoin/ledger-service/internal/domain"
)

// WalletHandler handles GET /payments/wallet.
func (h *LedgerHandlers) WalletHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	wallet, err := h.service.Wallet(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, r, "wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// RequestWithdrawalHandler handles POST /payments/request-withdrawal.
func (h *LedgerHandlers) RequestWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	var req domain.WithdrawalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	request, err := h.service.SubmitWithdrawal(r.Context(), user, req)
	if err != nil {
		h.respondError(w, r, "request_withdrawal", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Withdrawal request submitted successfully",
		"requestId": request.ID,
	})
}

// TransactionHistoryHandler handles GET /payments/transaction-history.
func (h *LedgerHandlers) TransactionHistoryHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	limit, err := parseOptionalNonNegativeInt(r.URL.Query().Get("limit"), app.DefaultHistoryLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	offset, err := parseOptionalNonNegativeInt(r.URL.Query().Get("offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid offset")
		return
	}

	page, err := h.service.TransactionHistory(r.Context(), user.ID, limit, offset)
	if err != nil {
		h.respondError(w, r, "transaction_history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Transaction history retrieved successfully",
		"transactions": page.Transactions,
		"limit":        page.Limit,
		"offset":       page.Offset,
	})
}

// WithdrawalHistoryHandler handles GET /payments/withdrawal-history.
func (h *LedgerHandlers) WithdrawalHistoryHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	requests, err := h.service.WithdrawalHistory(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, r, "withdrawal_history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Withdrawal history retrieved successfully",
		"withdrawals": requests,
	})
}

// RechargeWalletHandler handles POST /payments/recharge-wallet.
func (h *LedgerHandlers) RechargeWalletHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	var req domain.RechargeOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.service.CreateRechargeOrder(r.Context(), user, req.Amount)
	if err != nil {
		h.respondError(w, r, "recharge_wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// VerifyRechargeHandler handles POST /payments/verify-recharge.
func (h *LedgerHandlers) VerifyRechargeHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	var req domain.PaymentVerificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	outcome, err := h.service.VerifyRecharge(r.Context(), user, req)
	if err != nil {
		h.respondError(w, r, "verify_recharge", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Wallet recharged successfully",
		"coinsAdded":    outcome.CoinsAdded,
		"amountAdded":   outcome.AmountAdded,
		"becameCreator": outcome.BecameCreator,
		"totalCoins":    outcome.User.Coins,
		"walletBalance": outcome.User.WalletBalance,
		"userType":      outcome.User.UserType,
	})
}

// CreateSubscriptionHandler handles POST /payments/create-subscription.
func (h *LedgerHandlers) CreateSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	order, err := h.service.CreateSubscriptionOrder(r.Context(), user)
	if err != nil {
		h.respondError(w, r, "create_subscription", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// VerifySubscriptionHandler handles POST /payments/verify-subscription.
func (h *LedgerHandlers) VerifySubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	var req domain.PaymentVerificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	outcome, err := h.service.VerifySubscription(r.Context(), user, req)
	if err != nil {
		h.respondError(w, r, "verify_subscription", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Subscription activated successfully",
		"coinsAdded": outcome.CoinsAdded,
		"expiryDate": outcome.ExpiryDate,
		"totalCoins": outcome.User.Coins,
	})
}
