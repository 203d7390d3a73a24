package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vendix/platform/internal/dnscheck"
	"github.com/vendix/platform/internal/models"
	"github.com/vendix/platform/internal/registry"
	"github.com/vendix/platform/internal/store"
)

// DomainHandler serves the administrative domain-settings surface.
type DomainHandler struct {
	registry *registry.Service
	verifier *dnscheck.Verifier
	logger   *slog.Logger
}

// NewDomainHandler creates a new domain handler.
func NewDomainHandler(reg *registry.Service, verifier *dnscheck.Verifier, logger *slog.Logger) *DomainHandler {
	return &DomainHandler{
		registry: reg,
		verifier: verifier,
		logger:   logger,
	}
}

// CreateRequest is the payload for POST /v1/domain-settings.
type CreateRequest struct {
	Hostname       string              `json:"hostname"`
	OrganizationID string              `json:"organizationId"`
	StoreID        string              `json:"storeId,omitempty"`
	Config         models.DomainConfig `json:"config"`
	DomainType     models.DomainType   `json:"domainType,omitempty"`
	IsPrimary      *bool               `json:"isPrimary,omitempty"`
}

// Create handles POST /v1/domain-settings.
func (h *DomainHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Hostname == "" {
		WriteBadRequest(w, "hostname is required")
		return
	}
	if req.OrganizationID == "" {
		WriteBadRequest(w, "organizationId is required")
		return
	}

	record, err := h.registry.Create(r.Context(), registry.CreateInput{
		Hostname:       req.Hostname,
		OrganizationID: req.OrganizationID,
		StoreID:        req.StoreID,
		Config:         req.Config,
		DomainType:     req.DomainType,
		IsPrimary:      req.IsPrimary,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, record)
}

// List handles GET /v1/domain-settings.
func (h *DomainHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.DomainFilter{
		OrganizationID: r.URL.Query().Get("organizationId"),
		StoreID:        r.URL.Query().Get("storeId"),
		Search:         r.URL.Query().Get("search"),
		Limit:          50,
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit", 50); err != nil {
		WriteBadRequest(w, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		WriteBadRequest(w, "offset must be a non-negative integer")
		return
	}

	if slug := r.URL.Query().Get("organizationSlug"); slug != "" && filter.OrganizationID == "" {
		org, err := h.registry.GetOrganizationBySlug(r.Context(), slug)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		filter.OrganizationID = org.ID
	}

	records, total, err := h.registry.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("listing domain records", "error", err)
		WriteInternalError(w, "Failed to list domains")
		return
	}
	if records == nil {
		records = []*models.DomainRecord{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"data":   records,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// Get handles GET /v1/domain-settings/hostname/{hostname}.
func (h *DomainHandler) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.registry.Get(r.Context(), chi.URLParam(r, "hostname"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, record)
}

// GetByID handles GET /v1/domain-settings/{id}.
func (h *DomainHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	record, err := h.registry.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, record)
}

// UpdateRequest is the payload for PUT /v1/domain-settings/hostname/{hostname}.
type UpdateRequest struct {
	Config     *models.DomainConfig `json:"config,omitempty"`
	DomainType *models.DomainType   `json:"domainType,omitempty"`
	Status     *models.DomainStatus `json:"status,omitempty"`
	SSLStatus  *models.SSLStatus    `json:"sslStatus,omitempty"`
	IsPrimary  *bool                `json:"isPrimary,omitempty"`
}

// Update handles PUT /v1/domain-settings/hostname/{hostname}.
func (h *DomainHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	record, err := h.registry.Update(r.Context(), chi.URLParam(r, "hostname"), registry.UpdateInput{
		Config:     req.Config,
		DomainType: req.DomainType,
		Status:     req.Status,
		SSLStatus:  req.SSLStatus,
		IsPrimary:  req.IsPrimary,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, record)
}

// Delete handles DELETE /v1/domain-settings/hostname/{hostname}.
func (h *DomainHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), chi.URLParam(r, "hostname")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DuplicateRequest is the payload for the duplicate endpoint.
type DuplicateRequest struct {
	NewHostname string `json:"newHostname"`
}

// Duplicate handles POST /v1/domain-settings/hostname/{hostname}/duplicate.
func (h *DomainHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	var req DuplicateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.NewHostname == "" {
		WriteBadRequest(w, "newHostname is required")
		return
	}

	record, err := h.registry.Duplicate(r.Context(), chi.URLParam(r, "hostname"), req.NewHostname)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, record)
}

// VerifyRequest is the payload for the verify endpoint.
type VerifyRequest struct {
	Checks        []dnscheck.CheckKind `json:"checks,omitempty"`
	ExpectedCNAME string               `json:"expectedCname,omitempty"`
	ExpectedA     []string             `json:"expectedA,omitempty"`
	Force         bool                 `json:"force,omitempty"`
}

// Verify handles POST /v1/domain-settings/hostname/{hostname}/verify.
func (h *DomainHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteBadRequest(w, "Invalid request body")
			return
		}
	}

	result, err := h.verifier.Verify(r.Context(), chi.URLParam(r, "hostname"), dnscheck.Options{
		Checks:        req.Checks,
		ExpectedCNAME: req.ExpectedCNAME,
		ExpectedA:     req.ExpectedA,
		Force:         req.Force,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// ValidateHostnameRequest is the payload for the validate-hostname endpoint.
type ValidateHostnameRequest struct {
	Hostname string `json:"hostname"`
}

// ValidateHostname handles POST /v1/domain-settings/validate-hostname.
func (h *DomainHandler) ValidateHostname(w http.ResponseWriter, r *http.Request) {
	var req ValidateHostnameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	WriteJSON(w, http.StatusOK, h.registry.ValidateHostname(req.Hostname))
}

// writeDomainError maps service errors onto the API error taxonomy.
func (h *DomainHandler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteNotFound(w, "Domain not found")
	case errors.Is(err, registry.ErrOrganizationNotFound):
		WriteNotFound(w, "Organization not found")
	case errors.Is(err, registry.ErrStoreNotFound):
		WriteNotFound(w, "Store not found")
	case errors.Is(err, store.ErrDuplicateHostname):
		WriteConflict(w, "Hostname already registered")
	case errors.Is(err, store.ErrDuplicatePrimary):
		WriteConflict(w, "Scope already has a primary domain")
	case errors.Is(err, dnscheck.ErrNotVerifiable):
		WriteError(w, http.StatusUnprocessableEntity, ErrCodeNotVerifiable, "Domain type is not verifiable")
	case errors.Is(err, models.ErrHostnameRequired),
		errors.Is(err, models.ErrHostnameTooLong),
		errors.Is(err, models.ErrHostnameInvalid),
		errors.Is(err, registry.ErrInvalidDomainType),
		errors.Is(err, registry.ErrInvalidStatus),
		errors.Is(err, registry.ErrInvalidSSLStatus),
		errors.Is(err, dnscheck.ErrInvalidCheck):
		WriteBadRequest(w, err.Error())
	default:
		h.logger.Error("domain operation failed", "error", err)
		WriteInternalError(w, "Internal server error")
	}
}

// queryInt parses a non-negative integer query parameter with a default.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer")
	}
	return n, nil
}
