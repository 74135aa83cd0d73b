package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/swiftdrop/api/internal/auth"
	"github.com/swiftdrop/api/internal/database"
	"github.com/swiftdrop/api/internal/enum"
	"github.com/swiftdrop/api/internal/handler"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock AuthStore ---

type mockAuthStore struct {
	createProfileFn     func(ctx context.Context, arg database.CreateProfileParams) (database.Profile, error)
	getProfileByEmailFn func(ctx context.Context, email string) (database.Profile, error)
	getProfileByIDFn    func(ctx context.Context, id uuid.UUID) (database.Profile, error)
	updateProfileRoleFn func(ctx context.Context, arg database.UpdateProfileRoleParams) (database.Profile, error)
}

func (m *mockAuthStore) CreateProfile(ctx context.Context, arg database.CreateProfileParams) (database.Profile, error) {
	if m.createProfileFn != nil {
		return m.createProfileFn(ctx, arg)
	}
	return database.Profile{}, pgx.ErrNoRows
}

func (m *mockAuthStore) GetProfileByEmail(ctx context.Context, email string) (database.Profile, error) {
	if m.getProfileByEmailFn != nil {
		return m.getProfileByEmailFn(ctx, email)
	}
	return database.Profile{}, pgx.ErrNoRows
}

func (m *mockAuthStore) GetProfileByID(ctx context.Context, id uuid.UUID) (database.Profile, error) {
	if m.getProfileByIDFn != nil {
		return m.getProfileByIDFn(ctx, id)
	}
	return database.Profile{}, pgx.ErrNoRows
}

func (m *mockAuthStore) UpdateProfileRole(ctx context.Context, arg database.UpdateProfileRoleParams) (database.Profile, error) {
	if m.updateProfileRoleFn != nil {
		return m.updateProfileRoleFn(ctx, arg)
	}
	return database.Profile{}, pgx.ErrNoRows
}

// --- Test helpers ---

func setupAuthRouter(store *mockAuthStore) *chi.Mux {
	h := handler.NewAuthHandler(store, testJWTSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func doJSONRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hashed)
}

// --- Tests ---

func TestSignup_HappyPath(t *testing.T) {
	var captured database.CreateProfileParams
	store := &mockAuthStore{
		createProfileFn: func(ctx context.Context, arg database.CreateProfileParams) (database.Profile, error) {
			captured = arg
			return database.Profile{
				ID:          uuid.New(),
				Email:       arg.Email,
				FullName:    arg.FullName,
				PhoneNumber: arg.PhoneNumber,
				Role:        arg.Role,
			}, nil
		},
	}

	router := setupAuthRouter(store)
	rr := doJSONRequest(t, router, http.MethodPost, "/auth/signup", map[string]string{
		"email":        "Ada@Example.com",
		"password":     "correct-horse",
		"full_name":    "Ada Obi",
		"phone_number": "0803 123 4567",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201: %s", rr.Code, rr.Body.String())
	}

	if captured.Email != "ada@example.com" {
		t.Errorf("email not lowercased: %s", captured.Email)
	}
	if captured.Role != enum.RoleCustomer {
		t.Errorf("role: got %s, want default customer", captured.Role)
	}
	if !captured.PhoneNumber.Valid || captured.PhoneNumber.String != "+2348031234567" {
		t.Errorf("phone: got %+v", captured.PhoneNumber)
	}
	if captured.HashedPassword == "correct-horse" {
		t.Error("password stored in plaintext")
	}

	resp := decodeBody(t, rr)
	if resp["access_token"] == "" || resp["refresh_token"] == "" {
		t.Error("expected token pair in response")
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	store := &mockAuthStore{
		createProfileFn: func(ctx context.Context, arg database.CreateProfileParams) (database.Profile, error) {
			return database.Profile{}, &pgconn.PgError{Code: "23505"}
		},
	}

	router := setupAuthRouter(store)
	rr := doJSONRequest(t, router, http.MethodPost, "/auth/signup", map[string]string{
		"email":     "ada@example.com",
		"password":  "correct-horse",
		"full_name": "Ada Obi",
	})

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409", rr.Code)
	}
}

func TestSignup_Validation(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{})

	cases := []struct {
		name string
		body map[string]string
	}{
		{"bad email", map[string]string{"email": "nope", "password": "correct-horse", "full_name": "A"}},
		{"short password", map[string]string{"email": "a@b.com", "password": "short", "full_name": "A"}},
		{"missing name", map[string]string{"email": "a@b.com", "password": "correct-horse"}},
		{"bad role", map[string]string{"email": "a@b.com", "password": "correct-horse", "full_name": "A", "role": "admin"}},
		{"bad phone", map[string]string{"email": "a@b.com", "password": "correct-horse", "full_name": "A", "phone_number": "0123"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSONRequest(t, router, http.MethodPost, "/auth/signup", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", rr.Code)
			}
		})
	}
}

func TestLogin_HappyPath(t *testing.T) {
	password := "correct-horse"
	profile := database.Profile{
		ID:             uuid.New(),
		Email:          "ada@example.com",
		HashedPassword: hashPassword(t, password),
		FullName:       "Ada Obi",
		Role:           enum.RoleCustomer,
	}
	store := &mockAuthStore{
		getProfileByEmailFn: func(ctx context.Context, email string) (database.Profile, error) {
			return profile, nil
		},
	}

	router := setupAuthRouter(store)
	rr := doJSONRequest(t, router, http.MethodPost, "/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": password,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rr.Code, rr.Body.String())
	}

	resp := decodeBody(t, rr)
	accessToken, _ := resp["access_token"].(string)
	claims, err := auth.ValidateToken(testJWTSecret, accessToken)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	if claims.UserID != profile.ID || claims.Role != enum.RoleCustomer {
		t.Errorf("claims: got %+v", claims)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	store := &mockAuthStore{
		getProfileByEmailFn: func(ctx context.Context, email string) (database.Profile, error) {
			return database.Profile{
				ID:             uuid.New(),
				HashedPassword: hashPassword(t, "right-password"),
			}, nil
		},
	}

	router := setupAuthRouter(store)
	rr := doJSONRequest(t, router, http.MethodPost, "/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "wrong-password",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rr.Code)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{})
	rr := doJSONRequest(t, router, http.MethodPost, "/auth/login", map[string]string{
		"email":    "ghost@example.com",
		"password": "whatever123",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rr.Code)
	}
}

func TestLogin_RoleHintRelabelsProfile(t *testing.T) {
	password := "correct-horse"
	profile := database.Profile{
		ID:             uuid.New(),
		Email:          "ada@example.com",
		HashedPassword: hashPassword(t, password),
		Role:           enum.RoleCustomer,
	}

	var updated database.UpdateProfileRoleParams
	store := &mockAuthStore{
		getProfileByEmailFn: func(ctx context.Context, email string) (database.Profile, error) {
			return profile, nil
		},
		updateProfileRoleFn: func(ctx context.Context, arg database.UpdateProfileRoleParams) (database.Profile, error) {
			updated = arg
			p := profile
			p.Role = arg.Role
			return p, nil
		},
	}

	router := setupAuthRouter(store)
	rr := doJSONRequest(t, router, http.MethodPost, "/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": password,
		"role":     enum.RoleRider,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if updated.ID != profile.ID || updated.Role != enum.RoleRider {
		t.Errorf("role update: got %+v", updated)
	}

	resp := decodeBody(t, rr)
	user := resp["user"].(map[string]interface{})
	if user["role"] != enum.RoleRider {
		t.Errorf("returned role: got %v", user["role"])
	}
}

func TestRefresh_HappyPath(t *testing.T) {
	profile := database.Profile{
		ID:    uuid.New(),
		Email: "ada@example.com",
		Role:  enum.RoleCustomer,
	}
	store := &mockAuthStore{
		getProfileByIDFn: func(ctx context.Context, id uuid.UUID) (database.Profile, error) {
			if id != profile.ID {
				t.Errorf("looked up %v, want %v", id, profile.ID)
			}
			return profile, nil
		},
	}

	refreshToken, err := auth.GenerateRefreshToken(testJWTSecret, profile.ID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	router := setupAuthRouter(store)
	rr := doJSONRequest(t, router, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rr.Code, rr.Body.String())
	}
}

func TestRefresh_GarbageToken(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{})
	rr := doJSONRequest(t, router, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": "not.a.token",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rr.Code)
	}
}
