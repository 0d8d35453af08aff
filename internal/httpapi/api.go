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

	"github.com/go-chi/chi/v5"

	"rollbook.org/internal/auth"
	"rollbook.org/internal/obs"
	"rollbook.org/internal/school"
)

// ReadyProbe reports readiness, usually by pinging the database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// API is the HTTP layer.
type API struct {
	router     chi.Router
	svc        *school.Service
	resolver   *auth.Resolver
	readyProbe ReadyProbe
	version    string

	rateBurst    int
	ratePerSec   int
	maxBodyBytes int64
}

func New(svc *school.Service, resolver *auth.Resolver, rp ReadyProbe, version string) *API {
	a := &API{
		svc:          svc,
		resolver:     resolver,
		readyProbe:   rp,
		version:      version,
		rateBurst:    20,
		ratePerSec:   10,
		maxBodyBytes: 1 << 20,
	}

	r := chi.NewRouter()

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Get("/v1/info", a.Info)
	r.Handle("/metrics", obs.Handler())

	r.Post("/signup", a.handleSignup)
	r.Post("/token", a.handleToken)

	r.Route("/v1/students", func(r chi.Router) {
		r.Post("/", a.handleStudentCreate)
		r.Get("/", a.handleStudentList)
		r.Get("/{id}", a.handleStudentGet)
		r.Put("/{id}", a.handleStudentUpdate)
		r.Delete("/{id}", a.handleStudentDelete)
	})

	r.Route("/v1/assessments", func(r chi.Router) {
		r.Post("/", a.handleAssessmentCreate)
		r.Get("/", a.handleAssessmentList)
		r.Put("/{id}", a.handleAssessmentUpdate)
		r.Delete("/{id}", a.handleAssessmentDelete)
	})

	r.Route("/v1/attendance", func(r chi.Router) {
		r.Post("/", a.handleAttendanceCreate)
		r.Get("/", a.handleAttendanceList)
	})

	a.router = r
	return a
}

// SetRateLimit tunes the per-IP limiter; call before Handler.
func (a *API) SetRateLimit(burst, perSec int) {
	if burst > 0 {
		a.rateBurst = burst
	}
	if perSec > 0 {
		a.ratePerSec = perSec
	}
}

// Handler assembles the middleware chain around the router.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = a.withAuth(h)
	h = obs.Instrument(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return h
}

// --- health handlers ---

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
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
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

// handleServiceError maps domain sentinels to HTTP status codes. The mapping
// lives only here; the service layer never sees status codes.
func (a *API) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, school.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, trimSentinel(err.Error()))
	case errors.Is(err, auth.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", `Bearer realm="rollbook"`)
		writeError(w, r, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, auth.ErrForbidden):
		w.Header().Set("WWW-Authenticate", `Bearer realm="rollbook"`)
		writeError(w, r, http.StatusForbidden, trimSentinel(err.Error()))
	case errors.Is(err, school.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	case errors.Is(err, school.ErrConflict):
		writeError(w, r, http.StatusConflict, "resource conflict")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// trimSentinel drops the package prefix sentinel errors carry.
func trimSentinel(msg string) string {
	for _, prefix := range []string{"school: ", "auth: "} {
		if rest, ok := strings.CutPrefix(msg, prefix); ok {
			return rest
		}
	}
	return msg
}

// principalOr401 fetches the authenticated principal or ends the request.
func principalOr401(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		w.Header().Set("WWW-Authenticate", `Bearer realm="rollbook"`)
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return p, true
}
