package api

import "net/http"

// BecomeCreatorHandler handles PUT /profile/become-creator.
func (h *LedgerHandlers) BecomeCreatorHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	updated, err := h.service.BecomeCreator(r.Context(), user)
	if err != nil {
		h.respondError(w, r, "become_creator", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "You are now a creator!",
		"user":    updated,
	})
}

// SubscriptionHandler handles GET /profile/subscription.
func (h *LedgerHandlers) SubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	subscription, err := h.service.Subscription(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, r, "subscription", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Subscription details retrieved",
		"subscription": subscription,
	})
}
