package main

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// StartMockServer runs a server with a route for each kind of outcome:
//
//	/good     200
//	/slow     responds after 5s, longer than the default probe timeout
//	/missing  404
//	/flaky    flips between 200 and 503 every 30 seconds
//	/moved    302 to /good (reported as OK, redirects are not followed)
//
// Call this in a goroutine before creating the monitor.
func StartMockServer(addr string) {
	if err := http.ListenAndServe(addr, mockRouter()); err != nil {
		slog.Error("mock server error", "error", err)
	}
}

func mockRouter() http.Handler {
	var (
		mu       sync.Mutex
		healthy  = true
		flipAt   = time.Now().Add(30 * time.Second)
		flipStep = 30 * time.Second
	)

	r := chi.NewRouter()

	r.HandleFunc("/good", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
		}
	})

	r.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.HandleFunc("/flaky", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		if time.Now().After(flipAt) {
			healthy = !healthy
			flipAt = time.Now().Add(flipStep)
			slog.Info("flaky route changed", "healthy", healthy)
		}
		up := healthy
		mu.Unlock()

		if up {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	r.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/good", http.StatusFound)
	})

	return r
}
