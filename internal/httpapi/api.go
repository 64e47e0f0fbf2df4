package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"gocredo.org/internal/auth"
	"gocredo.org/internal/obs"
	"gocredo.org/internal/wellness"
)

// ReadyProbe reports whether downstream dependencies are reachable.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer of the wellness portal.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string
	auth       *auth.Service
	wellness   *wellness.Service

	maxBodyBytes int64
	rateBurst    int
	ratePerSec   int
}

// New wires routes for the given services.
func New(rp ReadyProbe, version string, authSvc *auth.Service, wellnessSvc *wellness.Service) *API {
	a := &API{
		mux:          http.NewServeMux(),
		readyProbe:   rp,
		version:      version,
		auth:         authSvc,
		wellness:     wellnessSvc,
		maxBodyBytes: 1 << 20,
		rateBurst:    20,
		ratePerSec:   10,
	}

	// ops
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/api/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	// credential issuance
	a.mux.HandleFunc("/api/auth/signup", a.handleSignup)
	a.mux.HandleFunc("/api/auth/login", a.handleLogin)
	a.mux.Handle("/api/auth/provision", RequireRole(auth.RoleAdmin)(http.HandlerFunc(a.handleProvision)))

	// wellness
	a.mux.Handle("/api/patient/dashboard", RequireRole(auth.RolePatient)(http.HandlerFunc(a.handleDashboard)))
	a.mux.Handle("/api/patient/logs", RequireRole(auth.RolePatient)(http.HandlerFunc(a.handleDailyLog)))
	a.mux.Handle("/api/patient/profile", requireAuthenticated(http.HandlerFunc(a.handleProfile)))
	a.mux.Handle("/api/provider/patients", RequireRole(auth.RoleProvider, auth.RoleAdmin)(http.HandlerFunc(a.handleProviderPatients)))
	a.mux.Handle("/api/notifications", requireAuthenticated(http.HandlerFunc(a.handleNotifications)))
	a.mux.Handle("/api/notifications/", requireAuthenticated(http.HandlerFunc(a.handleNotificationRead)))
	a.mux.HandleFunc("/api/public/tips", a.handleTips)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- ops handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "gocredo-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "gocredo-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
