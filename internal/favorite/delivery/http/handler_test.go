package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/favorite-products/internal/catalog"
	favoriteHTTP "github.com/tair/favorite-products/internal/favorite/delivery/http"
	"github.com/tair/favorite-products/internal/favorite/domain"
	product "github.com/tair/favorite-products/internal/product/domain"
	"github.com/tair/favorite-products/pkg/auth"
)

type pair struct {
	userID    uint
	productID int
}

type stubRepo struct {
	favorites map[pair]*domain.Favorite
	nextID    uint
}

func newStubRepo() *stubRepo {
	return &stubRepo{favorites: make(map[pair]*domain.Favorite)}
}

func (r *stubRepo) Add(ctx context.Context, userID uint, productID int) (*domain.Favorite, error) {
	key := pair{userID, productID}
	if _, ok := r.favorites[key]; ok {
		return nil, domain.ErrAlreadyExists
	}
	r.nextID++
	fav := &domain.Favorite{ID: r.nextID, UserID: userID, ProductID: productID}
	r.favorites[key] = fav
	return fav, nil
}

func (r *stubRepo) Remove(ctx context.Context, userID uint, productID int) error {
	key := pair{userID, productID}
	if _, ok := r.favorites[key]; !ok {
		return domain.ErrNotFound
	}
	delete(r.favorites, key)
	return nil
}

func (r *stubRepo) IsFavorite(userID uint, productID int) (bool, error) {
	_, ok := r.favorites[pair{userID, productID}]
	return ok, nil
}

func (r *stubRepo) ListProducts(userID uint, limit, offset int) ([]product.Product, error) {
	var out []product.Product
	for key := range r.favorites {
		if key.userID == userID {
			out = append(out, product.Product{APIID: key.productID, Title: "Stub", Price: decimal.NewFromInt(1)})
		}
	}
	return out, nil
}

func (r *stubRepo) CountByUser(userID uint) (int64, error) {
	var n int64
	for key := range r.favorites {
		if key.userID == userID {
			n++
		}
	}
	return n, nil
}

type stubResolver struct {
	err error
}

func (s *stubResolver) Resolve(ctx context.Context, apiID int) (*product.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &product.Product{APIID: apiID, Title: "Backpack", Price: decimal.NewFromFloat(109.95)}, nil
}

// The handler registers its metrics in the default prometheus registry, so
// it is constructed once and shared; per-test state lives in the stubs.
var (
	handlerOnce sync.Once
	testRouter  *mux.Router
	testRepo    *stubRepo
	testRes     *stubResolver
)

func setup(t *testing.T) {
	t.Helper()
	handlerOnce.Do(func() {
		testRepo = newStubRepo()
		testRes = &stubResolver{}
		handler := favoriteHTTP.NewFavoriteHandler(testRepo, testRes, nil)
		testRouter = mux.NewRouter()
		handler.RegisterRoutes(testRouter)
	})
	testRepo.favorites = make(map[pair]*domain.Favorite)
	testRes.err = nil
}

func bearer(t *testing.T, userID uint) string {
	t.Helper()
	token, err := auth.GenerateToken(userID, "user@example.com", "customer")
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(t *testing.T, method, path, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	testRouter.ServeHTTP(rec, req)
	return rec
}

func TestFavoriteEndpoints(t *testing.T) {
	t.Run("requests without a token are rejected", func(t *testing.T) {
		setup(t)
		rec := doRequest(t, http.MethodPost, "/api/favorites/42", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("adding a favorite returns 201 with the product", func(t *testing.T) {
		setup(t)
		rec := doRequest(t, http.MethodPost, "/api/favorites/42", bearer(t, 1))

		require.Equal(t, http.StatusCreated, rec.Code)

		var body struct {
			Success bool `json:"success"`
			Data    struct {
				APIID int    `json:"api_id"`
				Title string `json:"title"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Success)
		assert.Equal(t, 42, body.Data.APIID)
		assert.Equal(t, "Backpack", body.Data.Title)
	})

	t.Run("re-favoriting returns 409", func(t *testing.T) {
		setup(t)
		token := bearer(t, 1)
		require.Equal(t, http.StatusCreated, doRequest(t, http.MethodPost, "/api/favorites/42", token).Code)

		rec := doRequest(t, http.MethodPost, "/api/favorites/42", token)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("an unknown product returns 404", func(t *testing.T) {
		setup(t)
		testRes.err = catalog.ErrNotFound

		rec := doRequest(t, http.MethodPost, "/api/favorites/999", bearer(t, 1))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("a catalog outage returns 502", func(t *testing.T) {
		setup(t)
		testRes.err = &catalog.TransientError{Op: "fetch product", Err: fmt.Errorf("connection refused")}

		rec := doRequest(t, http.MethodPost, "/api/favorites/42", bearer(t, 1))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("removing a missing favorite returns 404", func(t *testing.T) {
		setup(t)
		rec := doRequest(t, http.MethodDelete, "/api/favorites/42", bearer(t, 1))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("add then remove round trip", func(t *testing.T) {
		setup(t)
		token := bearer(t, 1)
		require.Equal(t, http.StatusCreated, doRequest(t, http.MethodPost, "/api/favorites/42", token).Code)
		assert.Equal(t, http.StatusOK, doRequest(t, http.MethodDelete, "/api/favorites/42", token).Code)

		exists, _ := testRepo.IsFavorite(1, 42)
		assert.False(t, exists)
	})

	t.Run("listing returns the caller's favorites only", func(t *testing.T) {
		setup(t)
		require.Equal(t, http.StatusCreated, doRequest(t, http.MethodPost, "/api/favorites/1", bearer(t, 1)).Code)
		require.Equal(t, http.StatusCreated, doRequest(t, http.MethodPost, "/api/favorites/2", bearer(t, 2)).Code)

		rec := doRequest(t, http.MethodGet, "/api/favorites", bearer(t, 1))
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Data struct {
				Products []struct {
					APIID int `json:"api_id"`
				} `json:"products"`
				Total    int64 `json:"total"`
				Page     int   `json:"page"`
				PageSize int   `json:"page_size"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Data.Products, 1)
		assert.Equal(t, 1, body.Data.Products[0].APIID)
		assert.Equal(t, int64(1), body.Data.Total)
		assert.Equal(t, 1, body.Data.Page)
		assert.Equal(t, 20, body.Data.PageSize)
	})
}
