package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/rafhmansano/finpro/internal/snapshot"
)

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, portfolio Portfolio, snapshots *snapshot.Service, records RecordAppender, adminAPIKey string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(NewHandler(portfolio, snapshots, records), adminAPIKey),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewRouter registers every route on a new ServeMux. Mutating routes require
// the admin key when one is configured.
func NewRouter(handler *Handler, adminAPIKey string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/v1/users/{user}/positions", handler.GetPositions)
	mux.HandleFunc("GET /api/v1/users/{user}/valuations", handler.GetValuations)
	mux.HandleFunc("GET /api/v1/users/{user}/dividends", handler.GetDividends)
	mux.HandleFunc("GET /api/v1/users/{user}/report", handler.GetReport)

	mux.HandleFunc("GET /api/v1/users/{user}/snapshots/latest", handler.GetLatestSnapshot)
	mux.HandleFunc("GET /api/v1/users/{user}/snapshots/{date}", handler.GetSnapshotByDate)
	mux.HandleFunc("GET /api/v1/users/{user}/snapshots", handler.ListSnapshots)

	protect := func(h http.HandlerFunc) http.Handler {
		if adminAPIKey == "" {
			return h
		}
		return requireAuth(adminAPIKey, h)
	}
	mux.Handle("POST /api/v1/users/{user}/snapshots/generate", protect(handler.GenerateSnapshot))
	mux.Handle("POST /api/v1/users/{user}/imports/{kind}", protect(handler.ImportRecords))

	return mux
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
