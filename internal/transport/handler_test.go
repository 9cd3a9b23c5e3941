package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mansara-store/internal/domain"
	"mansara-store/internal/metrics"
	"mansara-store/internal/middleware"
	"mansara-store/internal/repository/memory"
	"mansara-store/internal/repository/storetest"
	"mansara-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

// apiFixture wires the real services over a memory store behind the full
// /api router
type apiFixture struct {
	store   *memory.Store
	router  http.Handler
	profile service.ProfileService
	admin   string // bearer token of an admin identity
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logger := zap.NewNop()
	mem := memory.NewStore()
	m := metrics.New()
	locks := service.NewIdentityLocks()
	profiles := service.NewProfileService(mem, service.TokenConfig{
		Secret:        testSecret,
		AccessExpiry:  time.Hour,
		RefreshExpiry: 24 * time.Hour,
	}, logger)

	handlers := &Handlers{
		Profile: NewProfileHandler(profiles, logger),
		Catalog: NewCatalogHandler(service.NewCatalogService(mem, logger), logger),
		Cart:    NewCartHandler(service.NewCartService(mem, locks, m, logger), logger),
		Orders:  NewOrderHandler(service.NewOrderService(mem, locks, service.NewOrderNumbers(nil), m, logger), logger),
		Admin:   NewAdminHandler(service.NewAdminService(mem, nil, logger), logger),
	}

	r := chi.NewRouter()
	handlers.Mount(r, middleware.AuthMiddleware(testSecret, logger), middleware.RequireAdmin(logger))

	return &apiFixture{
		store:   mem,
		router:  r,
		profile: profiles,
		admin:   signToken(t, &domain.Identity{ID: uuid.New(), Email: "admin@mansara.test", IsAdmin: true}),
	}
}

func signToken(t *testing.T, identity *domain.Identity) string {
	t.Helper()
	claims := &service.Claims{
		UserID:  identity.ID,
		Email:   identity.Email,
		IsAdmin: identity.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

// customer stores a customer profile and returns a bearer token for it
func (f *apiFixture) customer(t *testing.T) string {
	t.Helper()
	profile := storetest.NewProfile()
	require.NoError(t, f.store.Profiles().Create(context.Background(), profile))
	return signToken(t, profile.Identity())
}

// do sends a JSON request. body may be nil, a string sent verbatim, or any
// value to be marshalled.
func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

// createProduct adds an active product through the admin API
func (f *apiFixture) createProduct(t *testing.T, name string, price int) ProductView {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/admin/products", f.admin, map[string]interface{}{
		"name":     name,
		"slug":     "p-" + uuid.NewString(),
		"category": "Ready Mixes",
		"price":    price,
		"images":   []string{"https://img.example/" + uuid.NewString() + ".jpg"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var view ProductView
	decode(t, w, &view)
	return view
}

func chennaiAddress() map[string]string {
	return map[string]string{
		"full_name":     "Lakshmi Raman",
		"phone":         "9876543210",
		"address_line1": "12 Anna Salai",
		"city":          "Chennai",
		"state":         "Tamil Nadu",
		"pincode":       "600002",
	}
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponse {
	t.Helper()
	var resp middleware.ErrorResponse
	decode(t, w, &resp)
	return resp
}
