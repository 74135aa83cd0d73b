package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/swiftdrop/api/internal/database"
	"github.com/swiftdrop/api/internal/enum"
	"github.com/swiftdrop/api/internal/middleware"
	"github.com/swiftdrop/api/internal/phone"
)

// StoreStore defines the database methods needed by store handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type StoreStore interface {
	ListStores(ctx context.Context, arg database.ListStoresParams) ([]database.Store, error)
	GetStore(ctx context.Context, id uuid.UUID) (database.Store, error)
	ListStoresByOwner(ctx context.Context, ownerID uuid.UUID) ([]database.Store, error)
	CreateStore(ctx context.Context, arg database.CreateStoreParams) (database.Store, error)
	UpdateStore(ctx context.Context, arg database.UpdateStoreParams) (database.Store, error)
	GetStoreContact(ctx context.Context, storeID uuid.UUID) (database.StoreContact, error)
	UpsertStoreContact(ctx context.Context, arg database.UpsertStoreContactParams) (database.StoreContact, error)
}

// StoreHandler handles the store directory and owner store management.
type StoreHandler struct {
	store StoreStore
}

// NewStoreHandler creates a new StoreHandler.
func NewStoreHandler(store StoreStore) *StoreHandler {
	return &StoreHandler{store: store}
}

// RegisterRoutes registers the read-side store endpoints, open to any
// authenticated user. Expected to be mounted at /stores.
func (h *StoreHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/contact", h.GetContact)
}

// RegisterOwnerRoutes registers store management endpoints. Expected to be
// mounted behind a storeOwner role check.
func (h *StoreHandler) RegisterOwnerRoutes(r chi.Router) {
	r.Get("/mine", h.ListMine)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Put("/{id}/contact", h.UpdateContact)
}

// --- Request / Response types ---

type storeRequest struct {
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Address     string          `json:"address"`
	Hours       json.RawMessage `json:"hours"`
}

type storeResponse struct {
	ID          uuid.UUID       `json:"id"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description *string         `json:"description"`
	Address     *string         `json:"address"`
	Hours       json.RawMessage `json:"hours"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type storeListResponse struct {
	Stores []storeResponse `json:"stores"`
}

type contactRequest struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type contactResponse struct {
	StoreID uuid.UUID `json:"store_id"`
	Phone   string    `json:"phone"`
	Email   string    `json:"email"`
}

// --- Handlers ---

// List handles GET /stores with an optional ?category= filter.
func (h *StoreHandler) List(w http.ResponseWriter, r *http.Request) {
	var params database.ListStoresParams
	if c := r.URL.Query().Get("category"); c != "" {
		if !enum.IsValidStoreCategory(c) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category"})
			return
		}
		params.Category = pgtype.Text{String: c, Valid: true}
	}

	stores, err := h.store.ListStores(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list stores: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toStoreListResponse(stores))
}

// Get handles GET /stores/{id}.
func (h *StoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	st, err := h.store.GetStore(r.Context(), storeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "store not found"})
			return
		}
		log.Printf("ERROR: get store: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toStoreResponse(st))
}

// GetContact handles GET /stores/{id}/contact. A store with no saved contact
// row responds with empty fields rather than 404 so clients can render a
// contact card unconditionally.
func (h *StoreHandler) GetContact(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	if _, err := h.store.GetStore(r.Context(), storeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "store not found"})
			return
		}
		log.Printf("ERROR: get store: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	contact, err := h.store.GetStoreContact(r.Context(), storeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusOK, contactResponse{StoreID: storeID})
			return
		}
		log.Printf("ERROR: get store contact: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toContactResponse(contact))
}

// ListMine handles GET /stores/mine for store owners.
func (h *StoreHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	stores, err := h.store.ListStoresByOwner(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list stores by owner: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toStoreListResponse(stores))
}

// Create handles POST /stores for store owners.
func (h *StoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	req, ok := h.decodeStoreRequest(w, r)
	if !ok {
		return
	}

	st, err := h.store.CreateStore(r.Context(), database.CreateStoreParams{
		OwnerID:     claims.UserID,
		Name:        req.Name,
		Category:    req.Category,
		Description: textOrNull(req.Description),
		Address:     textOrNull(req.Address),
		Hours:       hoursOrDefault(req.Hours),
	})
	if err != nil {
		log.Printf("ERROR: create store: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toStoreResponse(st))
}

// Update handles PUT /stores/{id} for store owners. The update is scoped by
// owner in SQL, so editing someone else's store reads as not found.
func (h *StoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	storeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	req, ok := h.decodeStoreRequest(w, r)
	if !ok {
		return
	}

	st, err := h.store.UpdateStore(r.Context(), database.UpdateStoreParams{
		ID:          storeID,
		OwnerID:     claims.UserID,
		Name:        req.Name,
		Category:    req.Category,
		Description: textOrNull(req.Description),
		Address:     textOrNull(req.Address),
		Hours:       hoursOrDefault(req.Hours),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "store not found"})
			return
		}
		log.Printf("ERROR: update store: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toStoreResponse(st))
}

// UpdateContact handles PUT /stores/{id}/contact for store owners.
func (h *StoreHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	storeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	st, err := h.store.GetStore(r.Context(), storeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "store not found"})
			return
		}
		log.Printf("ERROR: get store: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if st.OwnerID != claims.UserID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "store not found"})
		return
	}

	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var contactPhone pgtype.Text
	if req.Phone != "" {
		normalized := phone.Normalize(req.Phone)
		if !phone.Valid(normalized) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid phone number"})
			return
		}
		contactPhone = pgtype.Text{String: normalized, Valid: true}
	}

	contact, err := h.store.UpsertStoreContact(r.Context(), database.UpsertStoreContactParams{
		StoreID: storeID,
		Phone:   contactPhone,
		Email:   textOrNull(req.Email),
	})
	if err != nil {
		log.Printf("ERROR: upsert store contact: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toContactResponse(contact))
}

// --- Helpers ---

func (h *StoreHandler) decodeStoreRequest(w http.ResponseWriter, r *http.Request) (storeRequest, bool) {
	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return req, false
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return req, false
	}
	if !enum.IsValidStoreCategory(req.Category) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category"})
		return req, false
	}
	if len(req.Hours) > 0 && !json.Valid(req.Hours) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hours must be a JSON object"})
		return req, false
	}
	return req, true
}

func textOrNull(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func hoursOrDefault(hours json.RawMessage) []byte {
	if len(hours) == 0 {
		return []byte("{}")
	}
	return hours
}

func toStoreResponse(s database.Store) storeResponse {
	resp := storeResponse{
		ID:        s.ID,
		OwnerID:   s.OwnerID,
		Name:      s.Name,
		Category:  s.Category,
		Hours:     s.Hours,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if len(resp.Hours) == 0 {
		resp.Hours = json.RawMessage("{}")
	}
	if s.Description.Valid {
		resp.Description = &s.Description.String
	}
	if s.Address.Valid {
		resp.Address = &s.Address.String
	}
	return resp
}

func toStoreListResponse(stores []database.Store) storeListResponse {
	resp := storeListResponse{Stores: make([]storeResponse, len(stores))}
	for i, s := range stores {
		resp.Stores[i] = toStoreResponse(s)
	}
	return resp
}

func toContactResponse(c database.StoreContact) contactResponse {
	resp := contactResponse{StoreID: c.StoreID}
	if c.Phone.Valid {
		resp.Phone = c.Phone.String
	}
	if c.Email.Valid {
		resp.Email = c.Email.String
	}
	return resp
}
