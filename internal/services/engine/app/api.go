package app

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/maanavrajesh/Tartan-Hacks-26/internal/platform/httpx"
	"github.com/maanavrajesh/Tartan-Hacks-26/internal/services/engine/domain"
	"github.com/maanavrajesh/Tartan-Hacks-26/internal/services/engine/storage"
)

// sessionReport is the GET /sessions/{id}/report response body. Both lists
// are newest first and always present, possibly empty.
type sessionReport struct {
	Stats    []storage.StatRecord    `json:"stats"`
	Insights []storage.InsightRecord `json:"insights"`
}

// clickRequest is the POST /click body. Ts is a pointer so a missing
// timestamp is distinguishable from zero.
type clickRequest struct {
	SessionID string   `json:"sessionId"`
	Ts        *float64 `json:"ts"`
	Mode      string   `json:"mode"`
	Question  string   `json:"question"`
}

// NewHandler builds the engine's HTTP query surface.
func NewHandler(orchestrator *Orchestrator, store storage.Store) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(http.MethodGet+" /up", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc(http.MethodGet+" /sessions", func(w http.ResponseWriter, r *http.Request) {
		sessions, err := store.ListSessions(httpx.RequestContext(r))
		if err != nil {
			_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "list sessions failed")
			return
		}
		if sessions == nil {
			sessions = []storage.SessionRecord{}
		}
		_ = httpx.WriteJSON(w, http.StatusOK, sessions)
	})

	mux.HandleFunc(http.MethodGet+" /sessions/{id}/report", func(w http.ResponseWriter, r *http.Request) {
		ctx := httpx.RequestContext(r)
		sessionID := r.PathValue("id")

		stats, err := store.ListStats(ctx, sessionID)
		if err != nil {
			_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "load report failed")
			return
		}
		insights, err := store.ListInsights(ctx, sessionID)
		if err != nil {
			_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "load report failed")
			return
		}

		report := sessionReport{Stats: stats, Insights: insights}
		if report.Stats == nil {
			report.Stats = []storage.StatRecord{}
		}
		if report.Insights == nil {
			report.Insights = []storage.InsightRecord{}
		}
		_ = httpx.WriteJSON(w, http.StatusOK, report)
	})

	mux.HandleFunc(http.MethodPost+" /click", func(w http.ResponseWriter, r *http.Request) {
		var req clickRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = httpx.WriteJSONError(w, http.StatusBadRequest, "sessionId and ts required")
			return
		}
		if req.SessionID == "" || req.Ts == nil {
			_ = httpx.WriteJSONError(w, http.StatusBadRequest, "sessionId and ts required")
			return
		}
		mode := req.Mode
		if mode == "" {
			mode = domain.ModeTeam
		}

		envelope, err := orchestrator.GenerateInsight(httpx.RequestContext(r), req.SessionID, *req.Ts, mode, req.Question)
		if err != nil {
			_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "insight generation failed")
			return
		}
		_ = httpx.WriteJSON(w, http.StatusOK, envelope)
	})

	return httpx.Chain(mux,
		httpx.RequestID(),
		httpx.RecoverPanic(),
		traceRequests(),
	)
}

// traceRequests records one span per request on the globally configured
// tracer provider. A no-op provider keeps this free when telemetry is off.
func traceRequests() httpx.Middleware {
	tracer := otel.Tracer("engine/api")
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
			span.SetAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			)
			defer span.End()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
