package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendix/platform/internal/resolver"
	"github.com/vendix/platform/internal/store"
)

// ResolveHandler serves the unauthenticated, cache-backed hot path.
type ResolveHandler struct {
	resolver *resolver.Service
	logger   *slog.Logger
}

// NewResolveHandler creates a new resolve handler.
func NewResolveHandler(svc *resolver.Service, logger *slog.Logger) *ResolveHandler {
	return &ResolveHandler{
		resolver: svc,
		logger:   logger,
	}
}

// Resolve handles GET /api/public/domains/resolve/{hostname}.
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	hostname := chi.URLParam(r, "hostname")

	tenant, err := h.resolver.Resolve(r.Context(), hostname)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "Hostname not configured: "+hostname)
			return
		}
		h.logger.Error("resolving hostname", "hostname", hostname, "error", err)
		WriteInternalError(w, "Failed to resolve hostname")
		return
	}

	WriteJSON(w, http.StatusOK, tenant)
}

// Check handles GET /api/public/domains/check/{hostname}.
func (h *ResolveHandler) Check(w http.ResponseWriter, r *http.Request) {
	hostname := chi.URLParam(r, "hostname")

	result, err := h.resolver.Check(r.Context(), hostname)
	if err != nil {
		h.logger.Error("checking hostname", "hostname", hostname, "error", err)
		WriteInternalError(w, "Failed to check hostname")
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
