package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/oakline/ledger/internal/models"
	"github.com/oakline/ledger/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})

	transfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transfers_total",
		Help: "Transfer attempts by outcome",
	}, []string{"outcome"})
)

// Transfers is the slice of the transfer service the HTTP layer consumes.
type Transfers interface {
	ProcessTransfer(ctx context.Context, principal int64, req models.TransferRequest, meta models.RequestMeta) (*models.TransferResponse, error)
	Accounts(ctx context.Context, principal int64) ([]models.Account, error)
	Account(ctx context.Context, principal, id int64) (*models.Account, error)
	AccountTransactions(ctx context.Context, principal, accountID int64, limit, offset int) ([]models.Transaction, error)
}

// Auth opens and closes sessions.
type Auth interface {
	Login(ctx context.Context, email, password string, meta models.RequestMeta) (string, time.Time, error)
	Logout(ctx context.Context, token string, meta models.RequestMeta) error
}

// Sessions resolves tokens for the middleware.
type Sessions interface {
	Lookup(ctx context.Context, token string) (*models.Session, error)
}

type Handler struct {
	transfers Transfers
	auth      Auth
	sessions  Sessions
}

func NewHandler(transfers Transfers, auth Auth, sessions Sessions) *Handler {
	return &Handler{transfers: transfers, auth: auth, sessions: sessions}
}

// Register wires all routes onto the router.
func (h *Handler) Register(r *mux.Router) {
	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/login", h.Login).Methods("POST")
	apiV1.HandleFunc("/logout", h.requireSession(h.Logout)).Methods("POST")
	apiV1.HandleFunc("/transfers", h.requireSession(h.CreateTransfer)).Methods("POST")
	apiV1.HandleFunc("/accounts", h.requireSession(h.ListAccounts)).Methods("GET")
	apiV1.HandleFunc("/accounts/{id}", h.requireSession(h.GetAccount)).Methods("GET")
	apiV1.HandleFunc("/accounts/{id}/transactions", h.requireSession(h.ListAccountTransactions)).Methods("GET")
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpRequestsTotal.WithLabelValues("POST", "/login", "400").Inc()
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}

	token, expiresAt, err := h.auth.Login(r.Context(), req.Email, req.Password, requestMeta(r))
	if err != nil {
		httpRequestsTotal.WithLabelValues("POST", "/login", "401").Inc()
		respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	httpRequestsTotal.WithLabelValues("POST", "/login", "200").Inc()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"expires_at": expiresAt,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := r.Context().Value(tokenKey).(string)
	if err := h.auth.Logout(r.Context(), token, requestMeta(r)); err != nil {
		httpRequestsTotal.WithLabelValues("POST", "/logout", "500").Inc()
		respondWithError(w, http.StatusInternalServerError, "Logout failed")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "session", Value: "", Path: "/", MaxAge: -1})
	httpRequestsTotal.WithLabelValues("POST", "/logout", "200").Inc()
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/transfers"))
	defer timer.ObserveDuration()

	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpRequestsTotal.WithLabelValues("POST", "/transfers", "400").Inc()
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}

	resp, err := h.transfers.ProcessTransfer(r.Context(), principalFrom(r), req, requestMeta(r))
	if err != nil {
		code := statusForError(err)
		httpRequestsTotal.WithLabelValues("POST", "/transfers", strconv.Itoa(code)).Inc()
		transfersTotal.WithLabelValues(outcomeForError(err)).Inc()
		respondWithError(w, code, err.Error())
		return
	}

	httpRequestsTotal.WithLabelValues("POST", "/transfers", "200").Inc()
	transfersTotal.WithLabelValues("completed").Inc()
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.transfers.Accounts(r.Context(), principalFrom(r))
	if err != nil {
		httpRequestsTotal.WithLabelValues("GET", "/accounts", "500").Inc()
		respondWithError(w, http.StatusInternalServerError, "System error listing accounts")
		return
	}
	httpRequestsTotal.WithLabelValues("GET", "/accounts", "200").Inc()
	respondWithJSON(w, http.StatusOK, accounts)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		httpRequestsTotal.WithLabelValues("GET", "/accounts/{id}", "400").Inc()
		respondWithError(w, http.StatusBadRequest, "Invalid account id")
		return
	}

	account, err := h.transfers.Account(r.Context(), principalFrom(r), id)
	if err != nil {
		code := statusForError(err)
		httpRequestsTotal.WithLabelValues("GET", "/accounts/{id}", strconv.Itoa(code)).Inc()
		respondWithError(w, code, err.Error())
		return
	}

	httpRequestsTotal.WithLabelValues("GET", "/accounts/{id}", "200").Inc()
	respondWithJSON(w, http.StatusOK, account)
}

func (h *Handler) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		httpRequestsTotal.WithLabelValues("GET", "/accounts/{id}/transactions", "400").Inc()
		respondWithError(w, http.StatusBadRequest, "Invalid account id")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txs, err := h.transfers.AccountTransactions(r.Context(), principalFrom(r), id, limit, offset)
	if err != nil {
		code := statusForError(err)
		httpRequestsTotal.WithLabelValues("GET", "/accounts/{id}/transactions", strconv.Itoa(code)).Inc()
		respondWithError(w, code, err.Error())
		return
	}

	httpRequestsTotal.WithLabelValues("GET", "/accounts/{id}/transactions", "200").Inc()
	respondWithJSON(w, http.StatusOK, txs)
}

// statusForError maps the service error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrLimitExceeded),
		errors.Is(err, service.ErrAccountUnavailable),
		errors.Is(err, service.ErrInsufficientFunds):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func outcomeForError(err error) string {
	switch {
	case errors.Is(err, service.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, service.ErrLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidAmount):
		return "invalid"
	case errors.Is(err, service.ErrAccountNotFound), errors.Is(err, service.ErrAccountUnavailable):
		return "rejected"
	default:
		return "failed"
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
