package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/swiftdrop/api/internal/auth"
	"github.com/swiftdrop/api/internal/database"
	"github.com/swiftdrop/api/internal/enum"
	"github.com/swiftdrop/api/internal/handler"
	"github.com/swiftdrop/api/internal/middleware"
)

// --- Mock StoreStore ---

type mockStoreStore struct {
	listStoresFn         func(ctx context.Context, arg database.ListStoresParams) ([]database.Store, error)
	getStoreFn           func(ctx context.Context, id uuid.UUID) (database.Store, error)
	listStoresByOwnerFn  func(ctx context.Context, ownerID uuid.UUID) ([]database.Store, error)
	createStoreFn        func(ctx context.Context, arg database.CreateStoreParams) (database.Store, error)
	updateStoreFn        func(ctx context.Context, arg database.UpdateStoreParams) (database.Store, error)
	getStoreContactFn    func(ctx context.Context, storeID uuid.UUID) (database.StoreContact, error)
	upsertStoreContactFn func(ctx context.Context, arg database.UpsertStoreContactParams) (database.StoreContact, error)
}

func (m *mockStoreStore) ListStores(ctx context.Context, arg database.ListStoresParams) ([]database.Store, error) {
	if m.listStoresFn != nil {
		return m.listStoresFn(ctx, arg)
	}
	return []database.Store{}, nil
}

func (m *mockStoreStore) GetStore(ctx context.Context, id uuid.UUID) (database.Store, error) {
	if m.getStoreFn != nil {
		return m.getStoreFn(ctx, id)
	}
	return database.Store{}, pgx.ErrNoRows
}

func (m *mockStoreStore) ListStoresByOwner(ctx context.Context, ownerID uuid.UUID) ([]database.Store, error) {
	if m.listStoresByOwnerFn != nil {
		return m.listStoresByOwnerFn(ctx, ownerID)
	}
	return []database.Store{}, nil
}

func (m *mockStoreStore) CreateStore(ctx context.Context, arg database.CreateStoreParams) (database.Store, error) {
	if m.createStoreFn != nil {
		return m.createStoreFn(ctx, arg)
	}
	return database.Store{}, pgx.ErrNoRows
}

func (m *mockStoreStore) UpdateStore(ctx context.Context, arg database.UpdateStoreParams) (database.Store, error) {
	if m.updateStoreFn != nil {
		return m.updateStoreFn(ctx, arg)
	}
	return database.Store{}, pgx.ErrNoRows
}

func (m *mockStoreStore) GetStoreContact(ctx context.Context, storeID uuid.UUID) (database.StoreContact, error) {
	if m.getStoreContactFn != nil {
		return m.getStoreContactFn(ctx, storeID)
	}
	return database.StoreContact{}, pgx.ErrNoRows
}

func (m *mockStoreStore) UpsertStoreContact(ctx context.Context, arg database.UpsertStoreContactParams) (database.StoreContact, error) {
	if m.upsertStoreContactFn != nil {
		return m.upsertStoreContactFn(ctx, arg)
	}
	return database.StoreContact{}, pgx.ErrNoRows
}

// --- Test helpers ---

func setupStoreRouter(store *mockStoreStore) *chi.Mux {
	h := handler.NewStoreHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/stores", func(r chi.Router) {
		h.RegisterOwnerRoutes(r)
		h.RegisterRoutes(r)
	})
	return r
}

func testStore(ownerID uuid.UUID) database.Store {
	return database.Store{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		Name:     "Mama Nkechi Grocery",
		Category: enum.StoreCategoryGrocery,
		Hours:    []byte(`{"monday":"8am - 9pm"}`),
	}
}

// --- Tests ---

func TestStoreList_CategoryFilter(t *testing.T) {
	var captured database.ListStoresParams
	store := &mockStoreStore{
		listStoresFn: func(ctx context.Context, arg database.ListStoresParams) ([]database.Store, error) {
			captured = arg
			return []database.Store{testStore(uuid.New())}, nil
		},
	}

	router := setupStoreRouter(store)
	rr := doAuthRequest(t, router, http.MethodGet, "/stores/?category=pharmacy", nil, customerClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if !captured.Category.Valid || captured.Category.String != enum.StoreCategoryPharmacy {
		t.Errorf("category filter: got %+v", captured.Category)
	}
}

func TestStoreList_InvalidCategory(t *testing.T) {
	router := setupStoreRouter(&mockStoreStore{})
	rr := doAuthRequest(t, router, http.MethodGet, "/stores/?category=electronics", nil, customerClaims())

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestStoreGet_NotFound(t *testing.T) {
	router := setupStoreRouter(&mockStoreStore{})
	rr := doAuthRequest(t, router, http.MethodGet, "/stores/"+uuid.NewString(), nil, customerClaims())

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestStoreContact_DefaultsWhenMissing(t *testing.T) {
	st := testStore(uuid.New())
	store := &mockStoreStore{
		getStoreFn: func(ctx context.Context, id uuid.UUID) (database.Store, error) {
			return st, nil
		},
		// no contact row saved
	}

	router := setupStoreRouter(store)
	rr := doAuthRequest(t, router, http.MethodGet, "/stores/"+st.ID.String()+"/contact", nil, customerClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	if resp["phone"] != "" || resp["email"] != "" {
		t.Errorf("expected empty contact, got %v", resp)
	}
}

func TestStoreCreate_HappyPath(t *testing.T) {
	ownerID := uuid.New()
	var captured database.CreateStoreParams
	store := &mockStoreStore{
		createStoreFn: func(ctx context.Context, arg database.CreateStoreParams) (database.Store, error) {
			captured = arg
			return testStore(arg.OwnerID), nil
		},
	}

	router := setupStoreRouter(store)
	rr := doAuthRequest(t, router, http.MethodPost, "/stores/", map[string]interface{}{
		"name":     "Mama Nkechi Grocery",
		"category": "grocery",
		"address":  "3 Awolowo Road",
		"hours":    map[string]string{"monday": "8am - 9pm"},
	}, &auth.Claims{UserID: ownerID, Role: enum.RoleStoreOwner})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201: %s", rr.Code, rr.Body.String())
	}
	if captured.OwnerID != ownerID {
		t.Errorf("owner: got %v, want %v", captured.OwnerID, ownerID)
	}
	if !captured.Address.Valid || captured.Address.String != "3 Awolowo Road" {
		t.Errorf("address: got %+v", captured.Address)
	}
}

func TestStoreCreate_InvalidCategory(t *testing.T) {
	router := setupStoreRouter(&mockStoreStore{})
	rr := doAuthRequest(t, router, http.MethodPost, "/stores/", map[string]interface{}{
		"name":     "Shop",
		"category": "electronics",
	}, &auth.Claims{UserID: uuid.New(), Role: enum.RoleStoreOwner})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestStoreUpdate_NotOwnerReadsAsNotFound(t *testing.T) {
	store := &mockStoreStore{
		updateStoreFn: func(ctx context.Context, arg database.UpdateStoreParams) (database.Store, error) {
			// Owner-scoped UPDATE matches nothing for a non-owner.
			return database.Store{}, pgx.ErrNoRows
		},
	}

	router := setupStoreRouter(store)
	rr := doAuthRequest(t, router, http.MethodPut, "/stores/"+uuid.NewString(), map[string]interface{}{
		"name":     "Hijacked",
		"category": "grocery",
	}, &auth.Claims{UserID: uuid.New(), Role: enum.RoleStoreOwner})

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestStoreContactUpdate_NormalizesPhone(t *testing.T) {
	ownerID := uuid.New()
	st := testStore(ownerID)

	var captured database.UpsertStoreContactParams
	store := &mockStoreStore{
		getStoreFn: func(ctx context.Context, id uuid.UUID) (database.Store, error) {
			return st, nil
		},
		upsertStoreContactFn: func(ctx context.Context, arg database.UpsertStoreContactParams) (database.StoreContact, error) {
			captured = arg
			return database.StoreContact{StoreID: arg.StoreID, Phone: arg.Phone, Email: arg.Email}, nil
		},
	}

	router := setupStoreRouter(store)
	rr := doAuthRequest(t, router, http.MethodPut, "/stores/"+st.ID.String()+"/contact", map[string]string{
		"phone": "0803 123 4567",
		"email": "shop@example.com",
	}, &auth.Claims{UserID: ownerID, Role: enum.RoleStoreOwner})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if !captured.Phone.Valid || captured.Phone.String != "+2348031234567" {
		t.Errorf("phone: got %+v", captured.Phone)
	}
}

func TestStoreContactUpdate_ForeignStore(t *testing.T) {
	st := testStore(uuid.New())
	store := &mockStoreStore{
		getStoreFn: func(ctx context.Context, id uuid.UUID) (database.Store, error) {
			return st, nil
		},
	}

	router := setupStoreRouter(store)
	rr := doAuthRequest(t, router, http.MethodPut, "/stores/"+st.ID.String()+"/contact", map[string]string{
		"phone": "08031234567",
	}, &auth.Claims{UserID: uuid.New(), Role: enum.RoleStoreOwner})

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestStoreListMine(t *testing.T) {
	ownerID := uuid.New()
	store := &mockStoreStore{
		listStoresByOwnerFn: func(ctx context.Context, id uuid.UUID) ([]database.Store, error) {
			if id != ownerID {
				t.Errorf("queried owner %v, want %v", id, ownerID)
			}
			return []database.Store{testStore(ownerID)}, nil
		},
	}

	router := setupStoreRouter(store)
	rr := doAuthRequest(t, router, http.MethodGet, "/stores/mine", nil,
		&auth.Claims{UserID: ownerID, Role: enum.RoleStoreOwner})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	stores, ok := resp["stores"].([]interface{})
	if !ok || len(stores) != 1 {
		t.Fatalf("stores: got %v", resp["stores"])
	}
}
