package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophdir/internal/models"
	"github.com/iudanet/gophdir/pkg/api"
)

func TestHealthHandler_Health(t *testing.T) {
	current := models.Version{Counter: 3, ReplicaID: "r1"}

	tests := []struct {
		status StatusFunc
		want   api.HealthResponse
		name   string
	}{
		{
			name: "plain service",
			want: api.HealthResponse{Status: "ok", Version: "1.2.3"},
		},
		{
			name: "directory replica",
			status: func(resp *api.HealthResponse) {
				resp.ReplicaID = "r1"
				resp.Role = "leader"
				resp.Current = &current
			},
			want: api.HealthResponse{Status: "ok", Version: "1.2.3", ReplicaID: "r1", Role: "leader", Current: &current},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(setupTestLogger(), "1.2.3", tt.status)

			w := httptest.NewRecorder()
			handler.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var got api.HealthResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
			assert.Equal(t, tt.want, got)
		})
	}
}
