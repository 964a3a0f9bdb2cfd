package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/favorite-products/internal/catalog"
	"github.com/tair/favorite-products/internal/favorite/domain"
	"github.com/tair/favorite-products/internal/favorite/usecase/command"
	"github.com/tair/favorite-products/internal/favorite/usecase/query"
	"github.com/tair/favorite-products/internal/server"
	"github.com/tair/favorite-products/pkg/logger"
)

// Response is the standard JSON envelope
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// FavoriteHandler handles HTTP requests for favorites using CQRS handlers
type FavoriteHandler struct {
	addHandler    *command.AddFavoriteHandler
	removeHandler *command.RemoveFavoriteHandler
	listHandler   *query.ListFavoritesHandler

	requestCounter *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// NewFavoriteHandler creates a favorite handler with manual DI
func NewFavoriteHandler(repo domain.FavoriteRepository, res command.ProductResolver, publisher command.FavoritePublisher) *FavoriteHandler {
	return NewFavoriteHandlerWithDI(
		command.NewAddFavoriteHandler(repo, res, publisher),
		command.NewRemoveFavoriteHandler(repo, publisher),
		query.NewListFavoritesHandler(repo),
	)
}

// NewFavoriteHandlerWithDI creates a favorite handler from prebuilt
// usecase handlers; used by Wire
func NewFavoriteHandlerWithDI(
	addHandler *command.AddFavoriteHandler,
	removeHandler *command.RemoveFavoriteHandler,
	listHandler *query.ListFavoritesHandler,
) *FavoriteHandler {
	requestCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "favorite_service_requests_total",
			Help: "Total number of requests to the favorites endpoints",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "favorite_service_request_duration_seconds",
			Help:    "Duration of favorites requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	prometheus.MustRegister(requestCounter)
	prometheus.MustRegister(requestLatency)

	return &FavoriteHandler{
		addHandler:     addHandler,
		removeHandler:  removeHandler,
		listHandler:    listHandler,
		requestCounter: requestCounter,
		requestLatency: requestLatency,
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware wraps handlers with Prometheus metrics
func (h *FavoriteHandler) metricsMiddleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		h.requestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
		h.requestLatency.WithLabelValues(r.Method, endpoint).Observe(duration)
	}
}

// RegisterRoutes registers the favorites routes; all require authentication
func (h *FavoriteHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/favorites", h.metricsMiddleware("/api/favorites", server.AuthMiddleware(h.ListFavorites))).Methods("GET")
	router.HandleFunc("/api/favorites/{id}", h.metricsMiddleware("/api/favorites/{id}", server.AuthMiddleware(h.AddFavorite))).Methods("POST")
	router.HandleFunc("/api/favorites/{id}", h.metricsMiddleware("/api/favorites/{id}", server.AuthMiddleware(h.RemoveFavorite))).Methods("DELETE")
}

// AddFavorite handles POST /api/favorites/{id}
func (h *FavoriteHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := server.UserFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Authentication required"})
		return
	}

	productID, err := productIDFromPath(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid product ID"})
		return
	}

	cmd := command.AddFavoriteCommand{UserID: userID, ProductID: productID}
	product, err := h.addHandler.Handle(r.Context(), cmd)
	if err != nil {
		h.respondAddError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Product added to favorites",
		Data:    product,
	})
}

// respondAddError maps add failures onto distinct HTTP statuses: a product
// that genuinely does not exist is a 404, while an external catalog outage
// is a 502 the client may retry.
func (h *FavoriteHandler) respondAddError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, command.ErrInvalidProductID):
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	case errors.Is(err, domain.ErrProductNotFound):
		respondJSON(w, http.StatusNotFound, Response{Success: false, Error: "Product not found or could not be fetched from the catalog"})
	case errors.Is(err, domain.ErrAlreadyExists):
		respondJSON(w, http.StatusConflict, Response{Success: false, Error: err.Error()})
	case catalog.IsTransient(err):
		logger.Error(r.Context()).Err(err).Msg("External catalog unavailable")
		respondJSON(w, http.StatusBadGateway, Response{Success: false, Error: "External catalog is temporarily unavailable, try again later"})
	default:
		logger.Error(r.Context()).Err(err).Msg("Failed to add favorite")
		respondJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to add favorite"})
	}
}

// RemoveFavorite handles DELETE /api/favorites/{id}
func (h *FavoriteHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := server.UserFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Authentication required"})
		return
	}

	productID, err := productIDFromPath(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid product ID"})
		return
	}

	cmd := command.RemoveFavoriteCommand{UserID: userID, ProductID: productID}
	if err := h.removeHandler.Handle(r.Context(), cmd); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondJSON(w, http.StatusNotFound, Response{Success: false, Error: "This product is not on your favorites"})
			return
		}
		logger.Error(r.Context()).Err(err).Msg("Failed to remove favorite")
		respondJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to remove favorite"})
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Product removed from favorites",
	})
}

// ListFavorites handles GET /api/favorites
func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := server.UserFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Authentication required"})
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	q := query.ListFavoritesQuery{UserID: userID, Page: page, PageSize: pageSize}
	result, err := h.listHandler.Handle(q)
	if err != nil {
		logger.Error(r.Context()).Err(err).Msg("Failed to list favorites")
		respondJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to list favorites"})
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

func productIDFromPath(r *http.Request) (int, error) {
	vars := mux.Vars(r)
	return strconv.Atoi(vars["id"])
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
