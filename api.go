package main

import (
	"net/http"
	"time"

	"chime/state"
	"chime/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/infinitybotlist/eureka/zapchi"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var startedAt = time.Now()

// diagnosticsRouter serves the internal-only status surface. Not a public
// protocol.
func diagnosticsRouter(reminders store.Reminders, recipients store.Recipients) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer,
		middleware.RealIP,
		middleware.CleanPath,
		zapchi.Logger(state.Logger, "diagnostics"),
		middleware.Timeout(10*time.Second),
	)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		pending, err := reminders.CountPending(req.Context())

		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		recipientCount, err := recipients.Count(req.Context())

		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		bytes, err := json.Marshal(map[string]any{
			"pending_reminders": pending,
			"recipients":        recipientCount,
			"uptime_seconds":    int64(time.Since(startedAt).Seconds()),
		})

		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(bytes)
	})

	return r
}
