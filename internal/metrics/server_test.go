package metrics_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/projectamerika/mayflower/internal/metrics"
	"github.com/stretchr/testify/assert"
)

func TestHealthz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		checks     map[string]metrics.HealthCheck
		wantStatus int
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
		},
		{
			name: "healthy dependency",
			checks: map[string]metrics.HealthCheck{
				"redis": func(context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "failing dependency",
			checks: map[string]metrics.HealthCheck{
				"redis": func(context.Context) error { return errors.New("down") },
			},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			metrics.NewRouter(tt.checks).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	metrics.ModerationActions.WithLabelValues("ban", "applied").Inc()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metrics.NewRouter(nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mayflower_moderation_actions_total")
}

func TestMetricsRejectsPost(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/metrics", nil)
	metrics.NewRouter(nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
