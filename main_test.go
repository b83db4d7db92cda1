package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"local-gallery/internal/handlers"
	"local-gallery/internal/library"
	"local-gallery/internal/startup"
)

func TestSetupRouterRegistersRoutes(t *testing.T) {
	h := handlers.New(library.New(), handlers.Options{})

	tests := []struct {
		name           string
		metricsEnabled bool
		wantMetrics    bool
	}{
		{name: "metrics enabled", metricsEnabled: true, wantMetrics: true},
		{name: "metrics disabled", metricsEnabled: false, wantMetrics: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routes, err := startup.GetRoutes(setupRouter(h, tt.metricsEnabled))
			if err != nil {
				t.Fatalf("GetRoutes: %v", err)
			}
			registered := make(map[string]bool)
			for _, r := range routes {
				registered[r.Method+" "+r.Path] = true
			}

			for _, want := range []string{
				"GET /health",
				"HEAD /livez",
				"GET /readyz",
				"GET /version",
				"POST /api/events",
				"GET /api/roots",
				"DELETE /api/roots",
				"GET /api/roots/records",
				"POST /api/roots/index",
				"DELETE /api/library",
				"GET /api/tree",
				"GET /api/layout",
				"GET /api/window",
				"GET /api/sidecar",
				"GET /api/thumbnail",
				"GET /api/state",
				"PUT /api/state",
			} {
				if !registered[want] {
					t.Errorf("route %q not registered", want)
				}
			}
			if registered["GET /metrics"] != tt.wantMetrics {
				t.Errorf("metrics route registered = %v, want %v", registered["GET /metrics"], tt.wantMetrics)
			}
		})
	}
}

func TestSetupRouterServesRequests(t *testing.T) {
	router := setupRouter(handlers.New(library.New(), handlers.Options{}), false)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/livez", http.StatusOK},
		{http.MethodGet, "/api/roots", http.StatusOK},
		{http.MethodGet, "/api/tree", http.StatusOK},
		{http.MethodPost, "/api/roots", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}
}
