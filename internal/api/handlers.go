/**
 * @description
 * This file contains the shared pieces of the ledger-service HTTP handlers:
 * the handler set, JSON request decoding and the mapping from service and
 * store errors to HTTP responses. Handlers parse requests, call the
 * application service and write the response; they hold no business rules.
 *
 * @dependencies
 * - internal/app, internal/store: For service logic and sentinel errors.
 * - internal/validation: Struct validation of request DTOs.
 */

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/viewcoin/ledger-service/internal/app"
	"github.com/viewcoin/ledger-service/internal/logging"
	"github.com/viewcoin/ledger-service/internal/store"
	"github.com/viewcoin/ledger-service/internal/validation"
)

const maxRequestBodyBytes = 1 << 20

// LedgerHandlers holds the application service that handlers will use.
type LedgerHandlers struct {
	service *app.Service
	logger  zerolog.Logger
}

// NewLedgerHandlers creates a new instance of LedgerHandlers.
func NewLedgerHandlers(service *app.Service) *LedgerHandlers {
	return &LedgerHandlers{service: service, logger: logging.Component("api")}
}

// writeJSON is a helper for writing JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a single JSON object into dst and runs struct validation.
// It writes the 400 response itself and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "Validation failed",
			"fields": verr.Fields,
		})
		return false
	}
	return true
}

// pathUUID parses a chi URL parameter as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

func parseOptionalNonNegativeInt(raw string, defaultValue int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, errors.New("must be >= 0")
	}
	return value, nil
}

// statusForError maps service and store errors onto HTTP status codes.
// Unknown errors are 500 and their text is never shown to the caller.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, app.ErrInvalidTitle),
		errors.Is(err, app.ErrInvalidBudget),
		errors.Is(err, app.ErrInvalidCoinsPerView),
		errors.Is(err, app.ErrInvalidYouTubeURL),
		errors.Is(err, app.ErrBelowMinimum),
		errors.Is(err, app.ErrUPIRequired),
		errors.Is(err, app.ErrInvalidStatus),
		errors.Is(err, app.ErrInvalidUserType),
		errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrBelowMinimumRecharge),
		errors.Is(err, app.ErrSubscriptionActive),
		errors.Is(err, app.ErrAlreadyCreator),
		errors.Is(err, app.ErrInvalidSignature),
		errors.Is(err, app.ErrPaymentMismatch):
		return http.StatusBadRequest, rootMessage(err)
	case errors.Is(err, store.ErrInsufficientFunds),
		errors.Is(err, store.ErrCampaignInactive),
		errors.Is(err, store.ErrBudgetExhausted):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, app.ErrForbidden), errors.Is(err, store.ErrNotCampaignOwner):
		return http.StatusForbidden, "Not authorized to perform this action"
	case errors.Is(err, store.ErrCampaignNotFound),
		errors.Is(err, store.ErrPaymentRequestNotFound),
		errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, store.ErrAlreadyProcessed),
		errors.Is(err, store.ErrDuplicatePayment):
		return http.StatusConflict, err.Error()
	case errors.Is(err, app.ErrRateLimited):
		return http.StatusTooManyRequests, app.ErrRateLimited.Error()
	case errors.Is(err, app.ErrGatewayUnavailable):
		return http.StatusBadGateway, app.ErrGatewayUnavailable.Error()
	}
	return http.StatusInternalServerError, "Internal server error"
}

// rootMessage strips wrapping detail so validation responses stay stable.
func rootMessage(err error) string {
	for _, sentinel := range []error{app.ErrInvalidUserType, app.ErrPaymentMismatch, app.ErrInvalidSignature} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// respondError writes the mapped error and logs anything the caller cannot fix.
func (h *LedgerHandlers) respondError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	status, message := statusForError(err)
	var rlErr *app.RateLimitError
	if errors.As(err, &rlErr) {
		w.Header().Set("Retry-After", strconv.Itoa(rlErr.RetryAfterSeconds))
	}

	logger := logging.Ctx(r.Context(), h.logger)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error().Str("endpoint", endpoint).Err(err).Msg("request failed")
	case status != http.StatusNotFound:
		logger.Warn().Str("endpoint", endpoint).Int("status", status).Err(err).Msg("request rejected")
	}
	writeError(w, status, message)
}
