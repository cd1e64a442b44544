// Package location serves the delivery areas a bakery order can ship to.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-bakehouse/internal/common"
	"github.com/noah-isme/backend-bakehouse/internal/pricing"
	"github.com/noah-isme/backend-bakehouse/internal/repo"
)

const listCacheKey = "locations:active"

type locationQueries interface {
	ListLocations(ctx context.Context) ([]repo.Location, error)
	GetLocation(ctx context.Context, locationID string) (repo.Location, error)
	CreateLocation(ctx context.Context, arg repo.CreateLocationParams) (repo.Location, error)
	UpdateLocation(ctx context.Context, locationID string, arg repo.CreateLocationParams) (repo.Location, error)
}

// Handler exposes delivery area endpoints.
type Handler struct {
	Q        locationQueries
	Redis    *redis.Client
	CacheTTL time.Duration
}

// View is the public delivery area payload.
type View struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Pincode        string `json:"pincode,omitempty"`
	DeliveryCharge int64  `json:"deliveryCharge"`
	ChargeLabel    string `json:"chargeLabel"`
}

// List handles GET /api/v1/locations.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "location queries not configured", nil)
		return
	}
	ctx := r.Context()
	if cached := h.cachedList(ctx); cached != nil {
		common.JSONData(w, http.StatusOK, cached)
		return
	}
	rows, err := h.Q.ListLocations(ctx)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list locations", nil)
		return
	}
	views := make([]View, 0, len(rows))
	for _, row := range rows {
		views = append(views, toView(row))
	}
	h.storeList(ctx, views)
	common.JSONData(w, http.StatusOK, views)
}

// Create handles POST /api/v1/admin/locations.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "location queries not configured", nil)
		return
	}
	arg, ok := h.decode(w, r)
	if !ok {
		return
	}
	loc, err := h.Q.CreateLocation(r.Context(), arg)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create location", nil)
		return
	}
	h.invalidate(r.Context())
	common.JSONData(w, http.StatusCreated, toView(loc))
}

// Update handles PUT /api/v1/admin/locations/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "location queries not configured", nil)
		return
	}
	arg, ok := h.decode(w, r)
	if !ok {
		return
	}
	loc, err := h.Q.UpdateLocation(r.Context(), chi.URLParam(r, "id"), arg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "location not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update location", nil)
		return
	}
	h.invalidate(r.Context())
	common.JSONData(w, http.StatusOK, toView(loc))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (repo.CreateLocationParams, bool) {
	var payload struct {
		Name           string `json:"name"`
		Pincode        string `json:"pincode"`
		DeliveryCharge int64  `json:"deliveryCharge"`
		IsActive       bool   `json:"isActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return repo.CreateLocationParams{}, false
	}
	if payload.Name == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "name is required", nil)
		return repo.CreateLocationParams{}, false
	}
	if payload.DeliveryCharge < 0 {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "deliveryCharge must not be negative", nil)
		return repo.CreateLocationParams{}, false
	}
	return repo.CreateLocationParams{
		Name:           payload.Name,
		Pincode:        payload.Pincode,
		DeliveryCharge: payload.DeliveryCharge,
		IsActive:       payload.IsActive,
	}, true
}

func (h *Handler) cachedList(ctx context.Context) []View {
	if h.Redis == nil {
		return nil
	}
	data, err := h.Redis.Get(ctx, listCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var views []View
	if err := json.Unmarshal(data, &views); err != nil {
		return nil
	}
	return views
}

func (h *Handler) storeList(ctx context.Context, views []View) {
	if h.Redis == nil {
		return
	}
	ttl := h.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if data, err := json.Marshal(views); err == nil {
		_ = h.Redis.Set(ctx, listCacheKey, data, ttl).Err()
	}
}

func (h *Handler) invalidate(ctx context.Context) {
	if h.Redis != nil {
		_ = h.Redis.Del(ctx, listCacheKey).Err()
	}
}

func toView(loc repo.Location) View {
	return View{
		ID:             loc.ID,
		Name:           loc.Name,
		Pincode:        loc.Pincode,
		DeliveryCharge: loc.DeliveryCharge,
		ChargeLabel:    pricing.FormatCurrency(float64(loc.DeliveryCharge), false),
	}
}
