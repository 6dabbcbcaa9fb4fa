package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sessionshq/license-service/internal/store"
)

// LicenseHandler exposes the operator read surface over issued licenses
// and their delivery attempts.
type LicenseHandler struct {
	store store.LicenseStore
}

func NewLicenseHandler(s store.LicenseStore) *LicenseHandler {
	return &LicenseHandler{store: s}
}

func (h *LicenseHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50)

	licenses, err := h.store.ListLicenses(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list licenses")
		return
	}

	respondJSON(w, http.StatusOK, licenses)
}

func (h *LicenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	lic, err := h.store.GetLicense(r.Context(), key)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get license")
		return
	}
	if lic == nil {
		respondError(w, http.StatusNotFound, "license not found")
		return
	}

	respondJSON(w, http.StatusOK, lic)
}

func (h *LicenseHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	licenseKey := r.URL.Query().Get("license_key")
	limit := queryLimit(r, 50)

	attempts, err := h.store.ListDeliveryAttempts(r.Context(), licenseKey, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list delivery attempts")
		return
	}

	respondJSON(w, http.StatusOK, attempts)
}

func queryLimit(r *http.Request, fallback int) int {
	limit := fallback
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	return limit
}
