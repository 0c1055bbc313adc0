package api

import (
	"net/http"

	"github.com/viewcoin/ledger-service/internal/domain"
)

// AddCampaignHandler handles POST /videos/add.
func (h *LedgerHandlers) AddCampaignHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	var req domain.AddCampaignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	campaign, err := h.service.CreateCampaign(r.Context(), user, req)
	if err != nil {
		h.respondError(w, r, "add_video", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Video added successfully",
		"video":   campaign,
	})
}

// ListOwnCampaignsHandler handles GET /videos/user-videos.
func (h *LedgerHandlers) ListOwnCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())

	campaigns, err := h.service.ListOwnCampaigns(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, r, "user_videos", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Videos retrieved successfully",
		"videos":  campaigns,
	})
}

// UpdateCampaignHandler handles PUT /videos/update/{videoId}.
func (h *LedgerHandlers) UpdateCampaignHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())
	videoID, ok := pathUUID(r, "videoId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid video ID")
		return
	}

	var req domain.UpdateCampaignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	campaign, err := h.service.SetCampaignActive(r.Context(), videoID, user.ID, *req.Active)
	if err != nil {
		h.respondError(w, r, "update_video", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Video updated successfully",
		"video":   campaign,
	})
}

// ListAvailableCampaignsHandler handles GET /videos/available.
func (h *LedgerHandlers) ListAvailableCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.service.ListAvailableCampaigns(r.Context())
	if err != nil {
		h.respondError(w, r, "available_videos", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Available videos retrieved successfully",
		"videos":  campaigns,
	})
}

// RecordViewHandler handles POST /videos/view/{videoId}.
func (h *LedgerHandlers) RecordViewHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := PrincipalFromContext(r.Context())
	videoID, ok := pathUUID(r, "videoId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid video ID")
		return
	}

	outcome, err := h.service.RecordView(r.Context(), videoID, user)
	if err != nil {
		h.respondError(w, r, "record_view", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "View recorded successfully",
		"coinsEarned": outcome.CoinsEarned,
		"totalCoins":  outcome.ViewerCoins,
	})
}

// TopCreatorsHandler handles GET /videos/top-creators.
func (h *LedgerHandlers) TopCreatorsHandler(w http.ResponseWriter, r *http.Request) {
	creators, err := h.service.TopCreators(r.Context())
	if err != nil {
		h.respondError(w, r, "top_creators", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Top creators retrieved successfully",
		"topCreators": creators,
	})
}
