package location_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-bakehouse/internal/location"
	"github.com/noah-isme/backend-bakehouse/internal/repo"
)

type fakeLocationQueries struct {
	locations []repo.Location
	listCalls int
}

func (f *fakeLocationQueries) ListLocations(context.Context) ([]repo.Location, error) {
	f.listCalls++
	return f.locations, nil
}

func (f *fakeLocationQueries) GetLocation(_ context.Context, id string) (repo.Location, error) {
	for _, loc := range f.locations {
		if loc.ID == id {
			return loc, nil
		}
	}
	return repo.Location{}, pgx.ErrNoRows
}

func (f *fakeLocationQueries) CreateLocation(_ context.Context, arg repo.CreateLocationParams) (repo.Location, error) {
	loc := repo.Location{
		ID:             "loc-new",
		Name:           arg.Name,
		Pincode:        arg.Pincode,
		DeliveryCharge: arg.DeliveryCharge,
		IsActive:       arg.IsActive,
	}
	f.locations = append(f.locations, loc)
	return loc, nil
}

func (f *fakeLocationQueries) UpdateLocation(_ context.Context, id string, arg repo.CreateLocationParams) (repo.Location, error) {
	for i, loc := range f.locations {
		if loc.ID == id {
			f.locations[i].Name = arg.Name
			f.locations[i].DeliveryCharge = arg.DeliveryCharge
			return f.locations[i], nil
		}
	}
	return repo.Location{}, pgx.ErrNoRows
}

type listResponse struct {
	Data []location.View `json:"data"`
}

func TestListUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	queries := &fakeLocationQueries{locations: []repo.Location{
		{ID: "loc-1", Name: "Sector 12", DeliveryCharge: 30, IsActive: true},
	}}
	handler := &location.Handler{Q: queries, Redis: client, CacheTTL: time.Minute}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/locations", nil)
		rec := httptest.NewRecorder()
		handler.List(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp listResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		require.Equal(t, int64(30), resp.Data[0].DeliveryCharge)
		require.Equal(t, "₹30", resp.Data[0].ChargeLabel)
	}
	require.Equal(t, 1, queries.listCalls)
}

func TestCreateInvalidatesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	queries := &fakeLocationQueries{}
	handler := &location.Handler{Q: queries, Redis: client, CacheTTL: time.Minute}

	// Prime the cache with an empty list.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/locations", nil)
	handler.List(httptest.NewRecorder(), req)

	body := `{"name":"Model Town","pincode":"144411","deliveryCharge":25,"isActive":true}`
	creq := httptest.NewRequest(http.MethodPost, "/api/v1/admin/locations", jsonBody(body))
	crec := httptest.NewRecorder()
	handler.Create(crec, creq)
	require.Equal(t, http.StatusCreated, crec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/locations", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)
	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "Model Town", resp.Data[0].Name)
}

func TestCreateRejectsNegativeCharge(t *testing.T) {
	handler := &location.Handler{Q: &fakeLocationQueries{}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/locations", jsonBody(`{"name":"X","deliveryCharge":-5}`))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func jsonBody(s string) *strings.Reader {
	return strings.NewReader(s)
}
