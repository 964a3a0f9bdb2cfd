package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/favorite-products/internal/server"
	"github.com/tair/favorite-products/internal/user/domain"
	"github.com/tair/favorite-products/internal/user/usecase/command"
	"github.com/tair/favorite-products/internal/user/usecase/query"
	"github.com/tair/favorite-products/pkg/logger"
)

// Response is the standard JSON envelope
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// UserHandler handles HTTP requests for users using CQRS handlers
type UserHandler struct {
	registerHandler *command.RegisterUserHandler
	loginHandler    *command.LoginUserHandler
	updateHandler   *command.UpdateUserHandler
	deleteHandler   *command.DeleteUserHandler

	getUserHandler *query.GetUserHandler
	listHandler    *query.ListUsersHandler

	requestCounter *prometheus.CounterVec
}

// NewUserHandler creates a user handler with manual DI
func NewUserHandler(repo domain.UserRepository) *UserHandler {
	return NewUserHandlerWithDI(
		command.NewRegisterUserHandler(repo),
		command.NewLoginUserHandler(repo),
		command.NewUpdateUserHandler(repo),
		command.NewDeleteUserHandler(repo),
		query.NewGetUserHandler(repo),
		query.NewListUsersHandler(repo),
	)
}

// NewUserHandlerWithDI creates a user handler from prebuilt usecase
// handlers; used by Wire
func NewUserHandlerWithDI(
	registerHandler *command.RegisterUserHandler,
	loginHandler *command.LoginUserHandler,
	updateHandler *command.UpdateUserHandler,
	deleteHandler *command.DeleteUserHandler,
	getUserHandler *query.GetUserHandler,
	listHandler *query.ListUsersHandler,
) *UserHandler {
	requestCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_service_requests_total",
			Help: "Total number of requests to the user endpoints",
		},
		[]string{"method", "endpoint", "status"},
	)
	prometheus.MustRegister(requestCounter)

	return &UserHandler{
		registerHandler: registerHandler,
		loginHandler:    loginHandler,
		updateHandler:   updateHandler,
		deleteHandler:   deleteHandler,
		getUserHandler:  getUserHandler,
		listHandler:     listHandler,
		requestCounter:  requestCounter,
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (h *UserHandler) metricsMiddleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		h.requestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
	}
}

// RegisterRoutes registers auth, self-service and admin user routes
func (h *UserHandler) RegisterRoutes(router *mux.Router) {
	// Public routes
	router.HandleFunc("/auth/register", h.metricsMiddleware("/auth/register", h.Register)).Methods("POST")
	router.HandleFunc("/auth/login", h.metricsMiddleware("/auth/login", h.Login)).Methods("POST")

	// Authenticated routes
	router.HandleFunc("/users/me", h.metricsMiddleware("/users/me", server.AuthMiddleware(h.Me))).Methods("GET")

	// Admin routes
	router.HandleFunc("/admin/users", h.metricsMiddleware("/admin/users", server.AdminMiddleware(h.ListUsers))).Methods("GET")
	router.HandleFunc("/admin/users", h.metricsMiddleware("/admin/users", server.AdminMiddleware(h.CreateUser))).Methods("POST")
	router.HandleFunc("/admin/users/{id}", h.metricsMiddleware("/admin/users/{id}", server.AdminMiddleware(h.GetUser))).Methods("GET")
	router.HandleFunc("/admin/users/{id}", h.metricsMiddleware("/admin/users/{id}", server.AdminMiddleware(h.UpdateUser))).Methods("PUT")
	router.HandleFunc("/admin/users/{id}", h.metricsMiddleware("/admin/users/{id}", server.AdminMiddleware(h.DeleteUser))).Methods("DELETE")
}

// Register handles POST /auth/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	cmd := command.RegisterUserCommand{Name: req.Name, Email: req.Email, Password: req.Password}
	user, err := h.registerHandler.Handle(cmd)
	if err != nil {
		respondJSON(w, registerStatus(err), Response{Success: false, Error: err.Error()})
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "User registered successfully",
		Data:    user,
	})
}

func registerStatus(err error) int {
	if errors.Is(err, domain.ErrEmailInUse) {
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

// Login handles POST /auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	cmd := command.LoginUserCommand{Email: req.Email, Password: req.Password}
	result, err := h.loginHandler.Handle(cmd)
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: err.Error()})
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: result})
}

// Me handles GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := server.UserFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Authentication required"})
		return
	}

	user, err := h.getUserHandler.Handle(query.GetUserQuery{ID: userID})
	if err != nil {
		respondJSON(w, http.StatusNotFound, Response{Success: false, Error: "User not found"})
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: user})
}

// CreateUser handles POST /admin/users; admins may set a role
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	cmd := command.RegisterUserCommand{Name: req.Name, Email: req.Email, Password: req.Password, Role: req.Role}
	user, err := h.registerHandler.Handle(cmd)
	if err != nil {
		respondJSON(w, registerStatus(err), Response{Success: false, Error: err.Error()})
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "User created successfully",
		Data:    user,
	})
}

// GetUser handles GET /admin/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromPath(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid user ID"})
		return
	}

	user, err := h.getUserHandler.Handle(query.GetUserQuery{ID: id})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondJSON(w, http.StatusNotFound, Response{Success: false, Error: err.Error()})
			return
		}
		logger.Error(r.Context()).Err(err).Msg("Failed to get user")
		respondJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to get user"})
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: user})
}

// UpdateUser handles PUT /admin/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromPath(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid user ID"})
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Email    *string `json:"email"`
		Password *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	cmd := command.UpdateUserCommand{ID: id, Name: req.Name, Email: req.Email, Password: req.Password}
	user, err := h.updateHandler.Handle(cmd)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			respondJSON(w, http.StatusNotFound, Response{Success: false, Error: err.Error()})
		case errors.Is(err, domain.ErrEmailInUse):
			respondJSON(w, http.StatusConflict, Response{Success: false, Error: err.Error()})
		default:
			respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		}
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "User updated successfully",
		Data:    user,
	})
}

// DeleteUser handles DELETE /admin/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromPath(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid user ID"})
		return
	}

	if err := h.deleteHandler.Handle(command.DeleteUserCommand{ID: id}); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondJSON(w, http.StatusNotFound, Response{Success: false, Error: err.Error()})
			return
		}
		logger.Error(r.Context()).Err(err).Msg("Failed to delete user")
		respondJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to delete user"})
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Message: "User deleted successfully"})
}

// ListUsers handles GET /admin/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	result, err := h.listHandler.Handle(query.ListUsersQuery{Limit: limit, Offset: offset})
	if err != nil {
		logger.Error(r.Context()).Err(err).Msg("Failed to list users")
		respondJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to list users"})
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: result})
}

func userIDFromPath(r *http.Request) (uint, error) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 32)
	return uint(id), err
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
