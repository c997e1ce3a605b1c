package tenant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// fakeAuthority simulates the tenant authority API for client tests.
type fakeAuthority struct {
	mu sync.Mutex

	verifyResp   VerifyResponse
	verifyStatus int // 0 means 200

	ensureResp   EnsureResponse
	ensureStatus int

	initResp   EnsureResponse
	initStatus int

	cognitoResp   SourceResponse
	cognitoStatus int

	fallbackResp   SourceResponse
	fallbackStatus int

	verifyCalls, ensureCalls, initCalls, cognitoCalls, fallbackCalls int
}

func (f *fakeAuthority) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	respond := func(status int, body interface{}) {
		if status == 0 {
			status = http.StatusOK
		}
		if status >= 500 {
			http.Error(w, "unavailable", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}

	switch r.URL.Path {
	case "/api/tenant/verify":
		f.verifyCalls++
		respond(f.verifyStatus, f.verifyResp)
	case "/api/tenant/ensure-db-record":
		f.ensureCalls++
		respond(f.ensureStatus, f.ensureResp)
	case "/api/tenant/init":
		f.initCalls++
		respond(f.initStatus, f.initResp)
	case "/api/tenant/cognito":
		f.cognitoCalls++
		respond(f.cognitoStatus, f.cognitoResp)
	case "/api/tenant/fallback":
		f.fallbackCalls++
		respond(f.fallbackStatus, f.fallbackResp)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAuthority) calls() (verify, ensure, init, cognito, fallback int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyCalls, f.ensureCalls, f.initCalls, f.cognitoCalls, f.fallbackCalls
}

func newTestVerifier(t *testing.T, authority *fakeAuthority, attrs *AttributeStore) *Verifier {
	t.Helper()
	srv := httptest.NewServer(authority)
	t.Cleanup(srv.Close)

	backend := NewBackend(BackendConfig{BaseURL: srv.URL})
	return NewVerifier(backend, attrs, testRetrier(t, 3), nil)
}

func TestVerify_Valid(t *testing.T) {
	candidate := uuid.New()
	authority := &fakeAuthority{verifyResp: VerifyResponse{Valid: true}}
	verifier := newTestVerifier(t, authority, nil)

	res := verifier.Verify(context.Background(), candidate)

	if res.Status != StatusVerified {
		t.Fatalf("Status = %s, want %s", res.Status, StatusVerified)
	}
	if res.TenantID != candidate {
		t.Errorf("TenantID = %v, want candidate %v", res.TenantID, candidate)
	}
	if _, ensure, _, _, _ := authority.calls(); ensure != 0 {
		t.Error("ensure endpoint should not be called on fast-path success")
	}
}

func TestVerify_Corrected(t *testing.T) {
	candidate := uuid.New()
	corrected := uuid.New()
	authority := &fakeAuthority{
		verifyResp: VerifyResponse{Valid: false, CorrectTenantID: corrected.String()},
	}
	verifier := newTestVerifier(t, authority, nil)

	res := verifier.Verify(context.Background(), candidate)

	if res.Status != StatusCorrected {
		t.Fatalf("Status = %s, want %s", res.Status, StatusCorrected)
	}
	if res.TenantID != corrected {
		t.Errorf("TenantID = %v, want corrected %v", res.TenantID, corrected)
	}
}

func TestVerify_FastPathDegradedFallsBackToEnsure(t *testing.T) {
	candidate := uuid.New()
	authority := &fakeAuthority{
		verifyStatus: http.StatusServiceUnavailable,
		ensureResp:   EnsureResponse{Success: true, Exists: true, TenantID: candidate.String()},
	}
	verifier := newTestVerifier(t, authority, nil)

	res := verifier.Verify(context.Background(), candidate)

	if res.Status != StatusVerified {
		t.Fatalf("Status = %s, want %s", res.Status, StatusVerified)
	}
	_, ensure, _, _, _ := authority.calls()
	if ensure == 0 {
		t.Error("ensure endpoint should be called when fast path is degraded")
	}
}

func TestVerify_NotFound(t *testing.T) {
	authority := &fakeAuthority{
		verifyResp: VerifyResponse{Valid: false},
		ensureResp: EnsureResponse{Success: false},
	}
	verifier := newTestVerifier(t, authority, nil)

	res := verifier.Verify(context.Background(), uuid.New())

	if res.Status != StatusNotFound {
		t.Fatalf("Status = %s, want %s", res.Status, StatusNotFound)
	}
}

func TestVerify_ErrorAfterExhaustedFallback(t *testing.T) {
	authority := &fakeAuthority{
		verifyStatus: http.StatusServiceUnavailable,
		ensureStatus: http.StatusInternalServerError,
	}
	verifier := newTestVerifier(t, authority, nil)

	res := verifier.Verify(context.Background(), uuid.New())

	if res.Status != StatusError {
		t.Fatalf("Status = %s, want %s", res.Status, StatusError)
	}
	if res.Err == nil {
		t.Error("Err should carry the failure reason")
	}
}

func TestVerify_MismatchNeverPanics(t *testing.T) {
	// Scenario: candidate A, backend answers {valid:false, correctTenantId:B}.
	candidate := uuid.MustParse("aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa")
	corrected := uuid.MustParse("bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb")
	authority := &fakeAuthority{
		verifyResp: VerifyResponse{Valid: false, CorrectTenantID: corrected.String()},
	}
	verifier := newTestVerifier(t, authority, nil)

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Verify panicked: %v", r)
		}
	}()

	res := verifier.Verify(context.Background(), candidate)
	if res.Status != StatusCorrected || res.TenantID != corrected {
		t.Errorf("result = %+v, want Corrected with %v", res, corrected)
	}
}

func TestCreateForUser_InitEndpoint(t *testing.T) {
	candidate := uuid.New()
	api := newFakeAttributeAPI(nil)
	attrs := newTestStore(t, api)
	authority := &fakeAuthority{
		initResp: EnsureResponse{Success: true, TenantID: candidate.String()},
	}
	verifier := newTestVerifier(t, authority, attrs)

	id, ok := verifier.CreateForUser(context.Background(), candidate, UserProfile{
		UserID:       uuid.New().String(),
		Email:        "owner@example.com",
		BusinessName: "Dott Coffee",
	})

	if !ok {
		t.Fatal("CreateForUser failed")
	}
	if id != candidate {
		t.Errorf("id = %v, want %v", id, candidate)
	}
	// Creation triggers a durable attribute write-back.
	if got := api.get("custom:tenant_id"); got != candidate.String() {
		t.Errorf("attribute write-back = %q, want %q", got, candidate)
	}
}

func TestCreateForUser_ServerAssignedID(t *testing.T) {
	candidate := uuid.New()
	assigned := uuid.New()
	authority := &fakeAuthority{
		initResp: EnsureResponse{Success: true, TenantID: assigned.String()},
	}
	verifier := newTestVerifier(t, authority, nil)

	id, ok := verifier.CreateForUser(context.Background(), candidate, UserProfile{})
	if !ok {
		t.Fatal("CreateForUser failed")
	}
	if id != assigned {
		t.Errorf("id = %v, want server-assigned %v", id, assigned)
	}
}

func TestCreateForUser_AlternateEndpoint(t *testing.T) {
	candidate := uuid.New()
	authority := &fakeAuthority{
		initStatus: http.StatusInternalServerError,
		ensureResp: EnsureResponse{Success: true, TenantID: candidate.String()},
	}
	verifier := newTestVerifier(t, authority, nil)

	id, ok := verifier.CreateForUser(context.Background(), candidate, UserProfile{})
	if !ok {
		t.Fatal("CreateForUser should succeed via the alternate endpoint")
	}
	if id != candidate {
		t.Errorf("id = %v, want %v", id, candidate)
	}
}

func TestCreateForUser_BothEndpointsFail(t *testing.T) {
	authority := &fakeAuthority{
		initStatus:   http.StatusInternalServerError,
		ensureStatus: http.StatusInternalServerError,
	}
	verifier := newTestVerifier(t, authority, nil)

	if id, ok := verifier.CreateForUser(context.Background(), uuid.New(), UserProfile{}); ok {
		t.Errorf("CreateForUser = (%v, true), want failure; an ID must never be fabricated locally", id)
	}
}
