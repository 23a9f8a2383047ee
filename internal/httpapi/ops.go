package httpapi

import (
	"context"
	"net/http"
	"time"
)

const readyTimeout = 2 * time.Second

type statusBody struct {
	Status string `json:"status"`
}

// healthcheck reports liveness only. It never touches the store or cache.
func (a *API) healthcheck(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, r, http.StatusOK, statusBody{Status: "healthy"})
	return nil
}

// ready pings the store. The failure detail is only exposed here.
func (a *API) ready(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		return unavailable("store unreachable", err.Error(), err)
	}
	writeJSON(w, r, http.StatusOK, statusBody{Status: "ready"})
	return nil
}

func (a *API) cacheStats(w http.ResponseWriter, r *http.Request) error {
	if a.cache == nil {
		return unavailable("cache unavailable", "", nil)
	}
	stats, err := a.cache.Stats(r.Context())
	if err != nil {
		return unavailable("cache unavailable", "", err)
	}
	writeJSON(w, r, http.StatusOK, stats)
	return nil
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, r, http.StatusOK, a.metrics.Snapshot())
	return nil
}
