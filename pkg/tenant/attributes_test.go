package tenant

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/KuolDimDeng/dott-tenant/pkg/domain"
)

// fakeAttributeAPI is an in-memory identity provider attribute API.
type fakeAttributeAPI struct {
	mu          sync.Mutex
	attrs       map[string]string
	fetchErr    error
	updateErr   error
	fetchCalls  int
	updateCalls int
}

func newFakeAttributeAPI(attrs map[string]string) *fakeAttributeAPI {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &fakeAttributeAPI{attrs: attrs}
}

func (f *fakeAttributeAPI) FetchAttributes(ctx context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	copied := make(map[string]string, len(f.attrs))
	for k, v := range f.attrs {
		copied[k] = v
	}
	return copied, nil
}

func (f *fakeAttributeAPI) UpdateAttributes(ctx context.Context, patch map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	for k, v := range patch {
		f.attrs[k] = v
	}
	return nil
}

func (f *fakeAttributeAPI) get(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attrs[key]
}

func (f *fakeAttributeAPI) snapshotCalls() (fetch, update int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls, f.updateCalls
}

func newTestStore(t *testing.T, api *fakeAttributeAPI) *AttributeStore {
	t.Helper()
	return NewAttributeStore(api, testRetrier(t, 3), nil)
}

func TestReadTenantID_AliasPriority(t *testing.T) {
	first := uuid.New().String()
	second := uuid.New().String()

	tests := []struct {
		name  string
		attrs map[string]string
		want  string
		ok    bool
	}{
		{
			name: "upper alias wins over later aliases",
			attrs: map[string]string{
				domain.AttrTenantIDUpper: first,
				domain.AttrBusinessID:    second,
			},
			want: first,
			ok:   true,
		},
		{
			name: "camel alias alone",
			attrs: map[string]string{
				domain.AttrTenantIDCamel: "3fa85f64-5717-4562-b3fc-2c963f66afa6",
			},
			want: "3fa85f64-5717-4562-b3fc-2c963f66afa6",
			ok:   true,
		},
		{
			name: "malformed earlier alias skipped",
			attrs: map[string]string{
				domain.AttrTenantIDUpper: "not-a-uuid",
				domain.AttrTenantIDLower: first,
			},
			want: first,
			ok:   true,
		},
		{
			name: "empty alias skipped",
			attrs: map[string]string{
				domain.AttrTenantIDUpper: "",
				domain.AttrBusinessID:    first,
			},
			want: first,
			ok:   true,
		},
		{
			name:  "no aliases present",
			attrs: map[string]string{"email": "a@b.com"},
			ok:    false,
		},
		{
			name: "all aliases malformed",
			attrs: map[string]string{
				domain.AttrTenantIDUpper: "nope",
				domain.AttrTenantIDLower: "{3fa85f64-5717-4562-b3fc-2c963f66afa6}",
			},
			ok: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t, newFakeAttributeAPI(tt.attrs))

			id, ok := store.ReadTenantID(context.Background())
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if tt.ok && id.String() != tt.want {
				t.Errorf("id = %v, want %v", id, tt.want)
			}
		})
	}
}

func TestReadTenantID_FetchFailureIsMiss(t *testing.T) {
	api := newFakeAttributeAPI(nil)
	api.fetchErr = errors.New("provider unreachable")
	store := newTestStore(t, api)

	if _, ok := store.ReadTenantID(context.Background()); ok {
		t.Error("fetch failure should degrade to a miss, not a value")
	}

	fetches, _ := api.snapshotCalls()
	if fetches != 3 {
		t.Errorf("fetch calls = %d, want 3 (retried)", fetches)
	}
}

func TestWriteTenantID_SetsAllAliases(t *testing.T) {
	api := newFakeAttributeAPI(nil)
	store := newTestStore(t, api)
	id := uuid.New().String()

	if ok := store.WriteTenantID(context.Background(), id); !ok {
		t.Fatal("WriteTenantID failed")
	}

	for _, alias := range domain.TenantIDAliases {
		if got := api.get(alias); got != id {
			t.Errorf("alias %s = %q, want %q", alias, got, id)
		}
	}
	if api.get(domain.AttrUpdatedAt) == "" {
		t.Error("updated_at attribute not set")
	}

	_, updates := api.snapshotCalls()
	if updates != 1 {
		t.Errorf("update calls = %d, want 1 (single request)", updates)
	}
}

func TestWriteTenantID_Idempotent(t *testing.T) {
	api := newFakeAttributeAPI(nil)
	store := newTestStore(t, api)
	id := uuid.New().String()

	if ok := store.WriteTenantID(context.Background(), id); !ok {
		t.Fatal("first write failed")
	}
	first := make(map[string]string)
	for _, alias := range domain.TenantIDAliases {
		first[alias] = api.get(alias)
	}

	if ok := store.WriteTenantID(context.Background(), id); !ok {
		t.Fatal("second write failed")
	}
	for _, alias := range domain.TenantIDAliases {
		if api.get(alias) != first[alias] {
			t.Errorf("alias %s changed on repeated write", alias)
		}
	}
}

func TestWriteTenantID_RejectsMalformedWithoutNetwork(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"garbage", "not-a-uuid"},
		{"missing hyphens", "3fa85f6457174562b3fc2c963f66afa6"},
		{"urn form", "urn:uuid:3fa85f64-5717-4562-b3fc-2c963f66afa6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAttributeAPI(nil)
			store := newTestStore(t, api)

			if ok := store.WriteTenantID(context.Background(), tt.value); ok {
				t.Error("malformed tenant id accepted")
			}
			if _, updates := api.snapshotCalls(); updates != 0 {
				t.Errorf("update calls = %d, want 0 (fail fast)", updates)
			}
		})
	}
}

func TestWriteTenantID_ProviderErrorReturnsFalse(t *testing.T) {
	api := newFakeAttributeAPI(nil)
	api.updateErr = errors.New("throttled")
	store := newTestStore(t, api)

	if ok := store.WriteTenantID(context.Background(), uuid.New().String()); ok {
		t.Error("provider error should surface as false")
	}
}
