package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/KuolDimDeng/dott-tenant/internal/cache"
	"github.com/KuolDimDeng/dott-tenant/internal/http/middleware"
	"github.com/KuolDimDeng/dott-tenant/internal/httputil"
	"github.com/KuolDimDeng/dott-tenant/pkg/domain"
	"github.com/KuolDimDeng/dott-tenant/pkg/idp"
)

// TenantStore is the persistence surface the tenant endpoints need,
// satisfied by repository.TenantsRepository.
type TenantStore interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	GetByOwner(ctx context.Context, ownerUserID uuid.UUID) (*domain.Tenant, error)
}

// Handler serves the tenant authority endpoints: verification, record
// creation and reconciliation fallbacks.
type Handler struct {
	logger    *slog.Logger
	tenants   TenantStore
	idpAdmin  idp.AdminAPI // may be nil when no provider is configured
	cache     *cache.Cache // may be nil when Redis is not configured
	verifyTTL time.Duration
}

// NewHandler creates a tenant handler.
func NewHandler(
	logger *slog.Logger,
	tenants TenantStore,
	idpAdmin idp.AdminAPI,
	verifyCache *cache.Cache,
	verifyTTL time.Duration,
) *Handler {
	if verifyTTL <= 0 {
		verifyTTL = 30 * time.Second
	}
	return &Handler{
		logger:    logger,
		tenants:   tenants,
		idpAdmin:  idpAdmin,
		cache:     verifyCache,
		verifyTTL: verifyTTL,
	}
}

// TenantInfo is the tenant payload embedded in verify responses.
type TenantInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	SchemaName string `json:"schemaName"`
}

// VerifyResponse is the payload of GET /api/tenant/verify.
type VerifyResponse struct {
	Valid           bool        `json:"valid"`
	Tenant          *TenantInfo `json:"tenant,omitempty"`
	CorrectTenantID string      `json:"correctTenantId,omitempty"`
}

// EnsureRequest is the payload of the ensure and init endpoints.
type EnsureRequest struct {
	TenantID        string `json:"tenantId"`
	UserID          string `json:"userId"`
	Email           string `json:"email"`
	BusinessName    string `json:"businessName"`
	BusinessType    string `json:"businessType"`
	BusinessCountry string `json:"businessCountry"`
	ForceCreate     bool   `json:"forceCreate"`
}

// EnsureResponse is the payload of the ensure and init endpoints.
type EnsureResponse struct {
	Success    bool   `json:"success"`
	Exists     bool   `json:"exists,omitempty"`
	TenantID   string `json:"tenantId,omitempty"`
	Name       string `json:"name,omitempty"`
	SchemaName string `json:"schemaName,omitempty"`
	Message    string `json:"message,omitempty"`
}

// SourceResponse is the payload of the cognito and fallback endpoints.
type SourceResponse struct {
	Success  bool   `json:"success"`
	TenantID string `json:"tenantId,omitempty"`
	Source   string `json:"source,omitempty"`
}

// Verify checks a candidate tenant ID against the database, answering with
// a correction when the authenticated user owns a different tenant.
// GET /api/tenant/verify?tenantId=<id>
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	candidate := r.URL.Query().Get("tenantId")
	candidateID, err := domain.ParseTenantID(candidate)
	if err != nil {
		h.logger.Debug("verify rejected malformed tenant id", "value", candidate)
		httputil.Error(w, http.StatusBadRequest, "tenantId must be a valid UUID")
		return
	}

	record, err := h.lookupTenant(r, candidateID)
	if err != nil && !errors.Is(err, domain.ErrTenantNotFound) {
		h.logger.Error("tenant lookup failed", "tenant_id", candidateID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "tenant lookup failed")
		return
	}

	if record != nil && record.OwnerUserID == userID && record.Status == domain.TenantStatusActive {
		httputil.JSON(w, http.StatusOK, VerifyResponse{
			Valid:  true,
			Tenant: tenantInfo(record),
		})
		return
	}

	// Candidate missing, suspended or owned by someone else: answer with
	// the user's actual tenant when one exists.
	owned, err := h.tenants.GetByOwner(r.Context(), userID)
	if err == nil && owned.ID != candidateID {
		httputil.JSON(w, http.StatusOK, VerifyResponse{
			Valid:           false,
			CorrectTenantID: owned.ID.String(),
		})
		return
	}
	if err != nil && !errors.Is(err, domain.ErrTenantNotFound) {
		h.logger.Error("owner lookup failed", "user_id", userID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "tenant lookup failed")
		return
	}

	httputil.JSON(w, http.StatusOK, VerifyResponse{Valid: false})
}

// EnsureDBRecord confirms or creates the durable tenant record.
// POST /api/tenant/ensure-db-record
func (h *Handler) EnsureDBRecord(w http.ResponseWriter, r *http.Request) {
	h.ensure(w, r, false)
}

// Init creates a tenant for a user who has none yet. Creation is always
// forced regardless of the request flag.
// POST /api/tenant/init
func (h *Handler) Init(w http.ResponseWriter, r *http.Request) {
	h.ensure(w, r, true)
}

func (h *Handler) ensure(w http.ResponseWriter, r *http.Request, forceCreate bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req EnsureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	candidateID := uuid.Nil
	if req.TenantID != "" {
		parsed, err := domain.ParseTenantID(req.TenantID)
		if err != nil {
			h.logger.Debug("ensure rejected malformed tenant id", "value", req.TenantID)
			httputil.Error(w, http.StatusBadRequest, "tenantId must be a valid UUID")
			return
		}
		candidateID = parsed
	}

	create := forceCreate || req.ForceCreate
	record, created, err := ensureTenant(r.Context(), h.tenants, candidateID, userID, req.BusinessName, create)
	if errors.Is(err, domain.ErrTenantNotFound) {
		httputil.JSON(w, http.StatusOK, EnsureResponse{
			Success: false,
			Message: "tenant record does not exist",
		})
		return
	}
	if err != nil {
		h.logger.Error("ensure tenant failed", "user_id", userID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "tenant record could not be ensured")
		return
	}

	if created {
		email := req.Email
		if email == "" {
			email, _ = middleware.GetEmail(r.Context())
		}
		h.logger.Info("tenant record created", "tenant_id", record.ID, "user_id", userID, "email", email)
		h.invalidateVerifyCache(r, record.ID)
	}

	httputil.JSON(w, http.StatusOK, EnsureResponse{
		Success:    true,
		Exists:     !created,
		TenantID:   record.ID.String(),
		Name:       record.Name,
		SchemaName: record.SchemaName,
	})
}

// Cognito reconciles the tenant ID from the identity provider's stored
// attributes, server-side.
// GET /api/tenant/cognito
func (h *Handler) Cognito(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if h.idpAdmin == nil {
		httputil.JSON(w, http.StatusOK, SourceResponse{Success: false, Source: "cognito"})
		return
	}

	attrs, err := h.idpAdmin.FetchUserAttributes(r.Context(), userID.String())
	if err != nil {
		h.logger.Warn("identity provider attribute fetch failed", "user_id", userID, "error", err)
		httputil.JSON(w, http.StatusOK, SourceResponse{Success: false, Source: "cognito"})
		return
	}

	id, ok := domain.TenantIDFromAttributes(attrs)
	if !ok {
		httputil.JSON(w, http.StatusOK, SourceResponse{Success: false, Source: "cognito"})
		return
	}

	httputil.JSON(w, http.StatusOK, SourceResponse{
		Success:  true,
		TenantID: id.String(),
		Source:   "cognito",
	})
}

// Fallback resolves the tenant by database ownership, the last-resort
// source.
// GET /api/tenant/fallback
func (h *Handler) Fallback(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	owned, err := h.tenants.GetByOwner(r.Context(), userID)
	if errors.Is(err, domain.ErrTenantNotFound) {
		httputil.JSON(w, http.StatusOK, SourceResponse{Success: false, Source: "database"})
		return
	}
	if err != nil {
		h.logger.Error("owner lookup failed", "user_id", userID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "tenant lookup failed")
		return
	}

	httputil.JSON(w, http.StatusOK, SourceResponse{
		Success:  true,
		TenantID: owned.ID.String(),
		Source:   "database",
	})
}

// lookupTenant reads the record through the verify cache when configured.
func (h *Handler) lookupTenant(r *http.Request, id uuid.UUID) (*domain.Tenant, error) {
	key := "tenant:record:" + id.String()

	if h.cache != nil {
		var cached domain.Tenant
		if err := h.cache.Get(r.Context(), key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			h.logger.Warn("verify cache read failed", "key", key, "error", err)
		}
	}

	record, err := h.tenants.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), key, record, h.verifyTTL); err != nil {
			h.logger.Warn("verify cache write failed", "key", key, "error", err)
		}
	}
	return record, nil
}

func (h *Handler) invalidateVerifyCache(r *http.Request, id uuid.UUID) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Delete(r.Context(), "tenant:record:"+id.String()); err != nil {
		h.logger.Warn("verify cache invalidation failed", "tenant_id", id, "error", err)
	}
}

func tenantInfo(t *domain.Tenant) *TenantInfo {
	return &TenantInfo{
		ID:         t.ID.String(),
		Name:       t.Name,
		Status:     string(t.Status),
		SchemaName: t.SchemaName,
	}
}
