package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tasklane.org/internal/accounts"
	"tasklane.org/internal/auth"
	"tasklane.org/internal/obs"
	"tasklane.org/internal/session"
	"tasklane.org/internal/stream"
	"tasklane.org/internal/todos"
)

const serviceName = "tasklane-api"

// Pinger reports backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks the database and, when configured, the session backend.
type ReadyProbe struct {
	DB       *sql.DB
	Sessions Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return err
		}
	}
	if rp.Sessions != nil {
		return rp.Sessions.Ping(ctx)
	}
	return nil
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// accountSessionPurger drops every session of an account. The in-memory
// session store implements it.
type accountSessionPurger interface {
	InvalidateAccount(ctx context.Context, accountID int64) error
}

// accountSessionRenamer rewrites the username held by an account's
// sessions. The in-memory session store implements it.
type accountSessionRenamer interface {
	RenameAccount(ctx context.Context, accountID int64, username string) error
}

// Options wires an API.
type Options struct {
	Version  string
	Logger   *slog.Logger
	Ready    ReadyProbe
	Accounts *accounts.Service
	Todos    *todos.Service
	Auth     *auth.Orchestrator
	// Sessions is consulted on account deletion when it can purge by account.
	Sessions auth.SessionStore
	// Gate defaults to DefaultGate(auth.Protected).
	Gate        *auth.Gate
	Cookie      session.CookieOptions
	Events      *stream.Stream
	RateBurst   int
	RatePerSec  int
	CORSOrigins []string
}

// API is the HTTP layer.
type API struct {
	mux         *http.ServeMux
	readyProbe  ReadyProbe
	version     string
	logger      *slog.Logger
	accounts    *accounts.Service
	todos       *todos.Service
	auth        *auth.Orchestrator
	resolver    *auth.Resolver
	gate        *auth.Gate
	cookie      session.CookieOptions
	events      *stream.Stream
	purger      accountSessionPurger
	renamer     accountSessionRenamer
	rateBurst   int
	ratePerSec  int
	corsOrigins map[string]bool
}

// New validates opts and registers routes.
func New(opts Options) (*API, error) {
	if opts.Accounts == nil || opts.Todos == nil || opts.Auth == nil {
		return nil, errors.New("httpapi: accounts, todos and auth are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = obs.Logger()
	}
	gate := opts.Gate
	if gate == nil {
		gate = DefaultGate(auth.Protected)
	}
	a := &API{
		mux:         http.NewServeMux(),
		readyProbe:  opts.Ready,
		version:     opts.Version,
		logger:      logger,
		accounts:    opts.Accounts,
		todos:       opts.Todos,
		auth:        opts.Auth,
		resolver:    opts.Auth.Resolver(),
		gate:        gate,
		cookie:      opts.Cookie,
		events:      opts.Events,
		rateBurst:   opts.RateBurst,
		ratePerSec:  opts.RatePerSec,
		corsOrigins: make(map[string]bool, len(opts.CORSOrigins)),
	}
	if p, ok := opts.Sessions.(accountSessionPurger); ok {
		a.purger = p
	}
	if rn, ok := opts.Sessions.(accountSessionRenamer); ok {
		a.renamer = rn
	}
	for _, o := range opts.CORSOrigins {
		a.corsOrigins[o] = true
	}
	a.routes()
	return a, nil
}

func (a *API) routes() {
	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /v1/info", a.Info)
	a.mux.Handle("GET /metrics", obs.Handler())

	a.mux.HandleFunc("POST /accounts/register", a.handleRegister)
	a.mux.HandleFunc("POST /accounts/login", a.handleLogin)
	a.mux.HandleFunc("POST /accounts/logout", a.handleLogout)
	a.mux.HandleFunc("GET /accounts/me", a.handleMe)
	a.mux.HandleFunc("GET /accounts", a.handleListAccounts)
	a.mux.HandleFunc("GET /accounts/{id}", a.handleGetAccount)
	a.mux.HandleFunc("PATCH /accounts/{id}", a.handleUpdateAccount)
	a.mux.HandleFunc("DELETE /accounts/{id}", a.handleDeleteAccount)

	a.mux.HandleFunc("POST /todos", a.handleCreateTodo)
	a.mux.HandleFunc("GET /todos", a.handleListTodos)
	a.mux.HandleFunc("GET /todos/my", a.handleListTodos)
	a.mux.HandleFunc("GET /todos/events", a.handleTodoEvents)
	a.mux.HandleFunc("GET /todos/account/{accountId}", a.handleListAccountTodos)
	a.mux.HandleFunc("GET /todos/{id}", a.handleGetTodo)
	a.mux.HandleFunc("PATCH /todos/{id}", a.handleUpdateTodo)
	a.mux.HandleFunc("DELETE /todos/{id}", a.handleDeleteTodo)
}

// Handler returns the fully wrapped handler. Authentication runs before
// the gate, and the gate runs before any route handler.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.enforceGate(h)
	h = a.authenticate(h)
	h = obs.Instrument(h)
	if a.rateBurst > 0 && a.ratePerSec > 0 {
		h = RateLimit(h, a.rateBurst, a.ratePerSec)
	}
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return h
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":      serviceName,
		"time":      time.Now().UTC().Format(time.RFC3339),
		"version":   a.version,
		"auth_mode": string(a.auth.Mode()),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
