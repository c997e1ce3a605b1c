package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/KuolDimDeng/dott-tenant/pkg/domain"
)

// VerificationStatus is the terminal state of a verification.
type VerificationStatus string

const (
	// StatusVerified means the candidate is valid for the current user.
	StatusVerified VerificationStatus = "verified"
	// StatusCorrected means the backend declared a different ID correct;
	// callers must propagate the corrected value to the attribute store
	// and cache.
	StatusCorrected VerificationStatus = "corrected"
	// StatusNotFound means the backend explicitly knows no such tenant.
	StatusNotFound VerificationStatus = "not_found"
	// StatusError means verification could not complete after exhausting
	// the fallback path.
	StatusError VerificationStatus = "error"
)

// VerificationResult is the outcome of verifying a candidate tenant ID.
type VerificationResult struct {
	Status   VerificationStatus
	TenantID uuid.UUID // the verified or corrected value
	Err      error     // set only when Status is StatusError
}

// UserProfile carries the profile fields sent to the tenant initialization
// endpoints when a tenant record must be created.
type UserProfile struct {
	UserID          string
	Email           string
	BusinessName    string
	BusinessType    string
	BusinessCountry string
}

// Verifier checks candidate tenant IDs against the backend authority, with
// correction and creation support. A mismatch is a normal Corrected
// outcome, not an error.
type Verifier struct {
	backend *Backend
	attrs   *AttributeStore
	retrier *Retrier
	logger  *slog.Logger
}

// NewVerifier creates a verifier. attrs may be nil when write-back after
// creation is handled elsewhere.
func NewVerifier(backend *Backend, attrs *AttributeStore, retrier *Retrier, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		backend: backend,
		attrs:   attrs,
		retrier: retrier,
		logger:  logger,
	}
}

// Verify checks candidate against the backend. The lightweight check runs
// first; when it is inconclusive the heavier ensure call acts as fallback.
func (v *Verifier) Verify(ctx context.Context, candidate uuid.UUID) VerificationResult {
	var verifyResp *VerifyResponse
	res := v.retrier.Do(ctx, "backend.verify", func(ctx context.Context) error {
		resp, err := v.backend.VerifyTenant(ctx, candidate.String())
		if err != nil {
			return err
		}
		verifyResp = resp
		return nil
	})

	if res.OK {
		if verifyResp.Valid {
			return VerificationResult{Status: StatusVerified, TenantID: candidate}
		}
		if corrected, err := domain.ParseTenantID(verifyResp.CorrectTenantID); err == nil {
			if corrected != candidate {
				v.logger.Info("tenant id corrected by backend",
					"candidate", candidate, "corrected", corrected)
				return VerificationResult{Status: StatusCorrected, TenantID: corrected}
			}
			return VerificationResult{Status: StatusVerified, TenantID: candidate}
		}
		// valid=false with no correction: the fast index may simply be
		// missing the record, let the ensure path decide.
	}

	return v.verifyViaEnsure(ctx, candidate, res.Err)
}

// verifyViaEnsure is the heavier fallback: ask the backend to confirm or
// create the durable record for candidate.
func (v *Verifier) verifyViaEnsure(ctx context.Context, candidate uuid.UUID, fastErr error) VerificationResult {
	var ensureResp *EnsureResponse
	res := v.retrier.Do(ctx, "backend.ensure_record", func(ctx context.Context) error {
		resp, err := v.backend.EnsureRecord(ctx, EnsureRequest{TenantID: candidate.String()})
		if err != nil {
			return err
		}
		ensureResp = resp
		return nil
	})
	if !res.OK {
		err := res.Err
		if err == nil {
			err = fastErr
		}
		return VerificationResult{Status: StatusError, Err: err}
	}

	if ensureResp.Success {
		id := candidate
		if parsed, err := domain.ParseTenantID(ensureResp.TenantID); err == nil {
			id = parsed
		}
		if id != candidate {
			return VerificationResult{Status: StatusCorrected, TenantID: id}
		}
		return VerificationResult{Status: StatusVerified, TenantID: id}
	}
	return VerificationResult{Status: StatusNotFound}
}

// CreateForUser asks the backend to mint a tenant for a user who has none,
// using candidate as the preferred ID. The init endpoint runs first; the
// ensure endpoint is the alternate before giving up. The returned ID may be
// server-assigned. A real tenant is only ever minted by the backend; this
// method never fabricates one locally. On success the durable attribute
// record is updated best-effort.
func (v *Verifier) CreateForUser(ctx context.Context, candidate uuid.UUID, profile UserProfile) (uuid.UUID, bool) {
	req := EnsureRequest{
		TenantID:        candidate.String(),
		UserID:          profile.UserID,
		Email:           profile.Email,
		BusinessName:    profile.BusinessName,
		BusinessType:    profile.BusinessType,
		BusinessCountry: profile.BusinessCountry,
		ForceCreate:     true,
	}

	var created *EnsureResponse
	res := v.retrier.Do(ctx, "backend.init_tenant", func(ctx context.Context) error {
		resp, err := v.backend.InitTenant(ctx, req)
		if err != nil {
			return err
		}
		if !resp.Success {
			return domain.ErrTenantNotFound
		}
		created = resp
		return nil
	})

	if !res.OK {
		v.logger.Warn("tenant init failed, trying ensure endpoint", "error", res.Err)
		res = v.retrier.Do(ctx, "backend.ensure_record", func(ctx context.Context) error {
			resp, err := v.backend.EnsureRecord(ctx, req)
			if err != nil {
				return err
			}
			if !resp.Success {
				return domain.ErrTenantNotFound
			}
			created = resp
			return nil
		})
		if !res.OK {
			v.logger.Error("tenant creation failed on both endpoints", "candidate", candidate, "error", res.Err)
			return uuid.Nil, false
		}
	}

	id := candidate
	if parsed, err := domain.ParseTenantID(created.TenantID); err == nil {
		id = parsed
	}

	if v.attrs != nil {
		if ok := v.attrs.WriteTenantID(ctx, id.String()); !ok {
			v.logger.Warn("attribute write-back after tenant creation failed", "tenant_id", id)
		}
	}

	v.logger.Info("tenant created", "tenant_id", id, "user_id", profile.UserID)
	return id, true
}
